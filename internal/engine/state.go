package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Defaults for the keypad.
const (
	MaxDisplayLength  = 12
	MaxHistoryEntries = 50
	ErrorDisplay      = "Error"
)

// Theme is a UI preference carried with the state.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a known theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

var (
	ErrInvalidTheme  = errors.New("invalid theme")
	ErrInvalidState  = errors.New("invalid calculator state")
	ErrEntryNotFound = errors.New("history entry not found")
	ErrUnknownToken  = errors.New("unknown token")
	ErrUnknownMemOp  = errors.New("unknown memory operation")
)

var jsonNull = []byte("null")

// MarshalJSON writes the empty operation as null.
func (o Operation) MarshalJSON() ([]byte, error) {
	if o == "" {
		return jsonNull, nil
	}
	return json.Marshal(string(o))
}

// UnmarshalJSON reads null as the empty operation.
func (o *Operation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*o = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	return nil
}

// State is everything the keypad shows and remembers. Display is the
// authoritative input buffer; PreviousValue is only meaningful while
// Operation is set.
type State struct {
	Display           string    `json:"display"`
	PreviousValue     *float64  `json:"previousValue"`
	Operation         Operation `json:"operation"`
	WaitingForOperand bool      `json:"waitingForOperand"`
	Memory            float64   `json:"memory"`
	MemoryActive      bool      `json:"memoryActive"`
	History           []Entry   `json:"history"`
	Theme             Theme     `json:"theme"`
}

// DefaultState is the state of a freshly opened calculator.
func DefaultState() State {
	return State{
		Display: "0",
		History: []Entry{},
		Theme:   ThemeLight,
	}
}

// Pending reports whether an operation is waiting for its right operand.
func (s State) Pending() bool {
	return s.Operation != "" && s.PreviousValue != nil
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	c := s
	if s.PreviousValue != nil {
		v := *s.PreviousValue
		c.PreviousValue = &v
	}
	c.History = slices.Clone(s.History)
	if c.History == nil {
		c.History = []Entry{}
	}
	return c
}

// Validate checks a state loaded from outside the process.
func (s State) Validate() error {
	if s.Display != ErrorDisplay {
		if _, err := strconv.ParseFloat(s.Display, 64); err != nil {
			return fmt.Errorf("%w: display %q", ErrInvalidState, s.Display)
		}
	}
	if s.Operation != "" {
		if _, ok := operationSymbols[s.Operation]; !ok {
			return fmt.Errorf("%w: operation %q", ErrInvalidState, s.Operation)
		}
	}
	if s.Theme != "" && !s.Theme.Valid() {
		return fmt.Errorf("%w: theme %q", ErrInvalidState, s.Theme)
	}
	if !IsValidNumber(s.Memory) {
		return fmt.Errorf("%w: memory", ErrInvalidState)
	}
	return nil
}

// DisplayView is what a rendering layer needs: the main line and, while an
// operation is pending, a secondary "<left operand> <symbol>" line.
type DisplayView struct {
	Value     string `json:"value"`
	Secondary string `json:"secondary"`
}

// Display builds the view of s.
func Display(s State) DisplayView {
	view := DisplayView{Value: s.Display}
	if s.PreviousValue == nil && s.Operation == "" {
		return view
	}

	var left string
	if s.PreviousValue != nil {
		left = FormatDisplayValue(*s.PreviousValue)
	}
	symbol := Symbol(s.Operation)
	switch {
	case left != "" && symbol != "":
		view.Secondary = left + " " + symbol
	case symbol != "":
		view.Secondary = symbol
	default:
		view.Secondary = left
	}
	return view
}
