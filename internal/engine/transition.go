package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Control tokens.
const (
	TokenClear      = "C"
	TokenClearEntry = "CE"
	TokenEquals     = "="
	TokenDecimal    = "."
)

// Machine computes keypad state transitions. The zero value is not usable;
// build one with NewMachine.
type Machine struct {
	maxDisplayLength  int
	maxHistoryEntries int
	now               func() time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxDisplayLength caps how many characters digit input may grow the
// display to. Non-positive values keep the default.
func WithMaxDisplayLength(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxDisplayLength = n
		}
	}
}

// WithMaxHistoryEntries caps the history length. Non-positive values keep
// the default.
func WithMaxHistoryEntries(n int) Option {
	return func(m *Machine) {
		if n > 0 {
			m.maxHistoryEntries = n
		}
	}
}

// WithClock sets the time source for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMachine returns a Machine with the keypad defaults applied.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		maxDisplayLength:  MaxDisplayLength,
		maxHistoryEntries: MaxHistoryEntries,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaxDisplayLength returns the configured display cap.
func (m *Machine) MaxDisplayLength() int { return m.maxDisplayLength }

// MaxHistoryEntries returns the configured history cap.
func (m *Machine) MaxHistoryEntries() int { return m.maxHistoryEntries }

// Next returns the state that follows s after token is pressed. s itself is
// never modified. An unrecognised token returns s unchanged together with
// ErrUnknownToken.
func (m *Machine) Next(s State, token string) (State, error) {
	next := s.Clone()

	switch {
	case token == TokenClear:
		return reset(next), nil
	case token == TokenClearEntry:
		next.Display = "0"
		next.WaitingForOperand = false
	case token == string(UnaryNegate), token == string(UnarySqrt), token == string(UnaryReciprocal):
		m.unary(&next, UnaryOperation(token))
	case token == TokenEquals:
		m.equals(&next)
	case IsBinaryOperation(token):
		m.operator(&next, Operation(token))
	case isInputToken(token):
		m.input(&next, token)
	case IsMemoryOperation(token):
		return m.ApplyMemory(next, MemoryOperation(token))
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownToken, token)
	}

	return next, nil
}

// Run feeds tokens through Next in order and stops at the first error.
func (m *Machine) Run(s State, tokens ...string) (State, error) {
	var err error
	for _, t := range tokens {
		s, err = m.Next(s, t)
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

// reset resets the calculation but keeps theme, memory and history.
func reset(s State) State {
	fresh := DefaultState()
	fresh.Theme = s.Theme
	fresh.Memory = s.Memory
	fresh.MemoryActive = s.MemoryActive
	fresh.History = s.History
	return fresh
}

func (m *Machine) unary(s *State, op UnaryOperation) {
	res := PerformUnaryOperation(ParseDisplayValue(s.Display), op)
	if res.Failed() {
		s.Display = ErrorDisplay
		return
	}

	s.Display = FormatDisplayValue(res.Result)
	if op != UnaryNegate {
		s.WaitingForOperand = true
	}
}

func (m *Machine) equals(s *State) {
	if !s.Pending() {
		return
	}

	left := *s.PreviousValue
	right := ParseDisplayValue(s.Display)
	res := PerformOperation(left, right, s.Operation)
	if res.Failed() {
		s.Display = ErrorDisplay
	} else {
		s.Display = FormatDisplayValue(res.Result)
		entry := NewEntry(Expression(left, s.Operation, right), res.Result, m.now())
		s.History = appendCapped(s.History, entry, m.maxHistoryEntries)
	}

	s.PreviousValue = nil
	s.Operation = ""
	s.WaitingForOperand = true
}

// operator chains left to right: a pending operation with a fresh right
// operand is resolved first and its result becomes the new left operand.
func (m *Machine) operator(s *State, op Operation) {
	var left float64

	if s.Pending() && !s.WaitingForOperand {
		res := PerformOperation(*s.PreviousValue, ParseDisplayValue(s.Display), s.Operation)
		if res.Failed() {
			s.Display = ErrorDisplay
		} else {
			s.Display = FormatDisplayValue(res.Result)
		}
		left = res.Result
	} else {
		left = ParseDisplayValue(s.Display)
	}

	s.PreviousValue = &left
	s.Operation = op
	s.WaitingForOperand = true
}

func (m *Machine) input(s *State, token string) {
	if s.WaitingForOperand || s.Display == ErrorDisplay {
		s.Display = startNumber(token)
		s.WaitingForOperand = false
		return
	}

	if token == TokenDecimal && strings.Contains(s.Display, TokenDecimal) {
		return
	}

	candidate := s.Display + token
	if s.Display == "0" && token != TokenDecimal {
		candidate = token
	}
	if utf8.RuneCountInString(candidate) <= m.maxDisplayLength {
		s.Display = candidate
	}
}

func startNumber(token string) string {
	if token == TokenDecimal {
		return "0."
	}
	return token
}

func isInputToken(token string) bool {
	if token == TokenDecimal {
		return true
	}
	return len(token) == 1 && token[0] >= '0' && token[0] <= '9'
}

// UseHistoryEntry puts a past result back on the display as a fresh operand.
func (m *Machine) UseHistoryEntry(s State, id string) (State, error) {
	e, ok := FindEntry(s.History, id)
	if !ok {
		return s, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	next := s.Clone()
	next.Display = FormatDisplayValue(e.Result)
	next.WaitingForOperand = true
	return next, nil
}

// ClearHistory drops every history entry.
func (m *Machine) ClearHistory(s State) State {
	next := s.Clone()
	next.History = []Entry{}
	return next
}

// SetTheme switches the UI theme.
func (m *Machine) SetTheme(s State, theme Theme) (State, error) {
	if !theme.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidTheme, theme)
	}
	next := s.Clone()
	next.Theme = theme
	return next, nil
}
