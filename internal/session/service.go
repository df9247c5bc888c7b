// Package session keeps one calculator per session ID, applies input to it
// and persists the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/perf"
	"go-chi-calculator/internal/store"
)

// StateKey is where the calculator state lives in the store. Sessions other
// than the default one are stored under "StateKey:<id>".
const StateKey = "calculator-state"

// DefaultID is the session used by single-user front ends such as the CLI.
const DefaultID = ""

var ErrSessionNotFound = errors.New("session not found")

// NewSessionID returns a fresh random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// Key returns the store key of session id.
func Key(id string) string {
	if id == DefaultID {
		return StateKey
	}
	return StateKey + ":" + id
}

type session struct {
	mu    sync.Mutex
	state engine.State
}

// Service owns the live sessions. Input for one session is applied in
// order; different sessions proceed independently.
type Service struct {
	adapter  *store.Adapter
	machine  *engine.Machine
	perf     *perf.Collector
	log      *zap.Logger
	debounce *Debouncer

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Service.
type Option func(*Service)

// WithDebounce sets how long writes are held back. Zero writes through.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = NewDebouncer(d)
	}
}

// WithCollector records timings and operation metrics.
func WithCollector(c *perf.Collector) Option {
	return func(s *Service) {
		s.perf = c
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a Service storing state in kv.
func New(kv store.KV, machine *engine.Machine, opts ...Option) (*Service, error) {
	s := &Service{
		machine:  machine,
		log:      zap.NewNop(),
		debounce: NewDebouncer(DefaultDebounce),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.machine == nil {
		s.machine = engine.NewMachine()
	}
	if s.perf == nil {
		c, err := perf.New(noop.NewMeterProvider().Meter("session"))
		if err != nil {
			return nil, fmt.Errorf("create collector: %w", err)
		}
		s.perf = c
	}
	s.adapter = store.NewAdapter(kv, s.log)
	return s, nil
}

// Machine returns the state machine the service drives.
func (s *Service) Machine() *engine.Machine {
	return s.machine
}

// Create starts a new session with the default state.
func (s *Service) Create(ctx context.Context) (string, engine.State) {
	id := NewSessionID()
	state := engine.DefaultState()

	s.mu.Lock()
	s.sessions[id] = &session{state: state}
	s.mu.Unlock()

	s.persist(id, state)
	s.log.Info("session created", zap.String("session_id", id))
	return id, state.Clone()
}

// Open returns session id, loading it from the store or starting it fresh.
func (s *Service) Open(ctx context.Context, id string) engine.State {
	sess, _ := s.lookup(ctx, id, true)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone()
}

// Get returns the state of an existing session.
func (s *Service) Get(ctx context.Context, id string) (engine.State, error) {
	sess, err := s.lookup(ctx, id, false)
	if err != nil {
		return engine.State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state.Clone(), nil
}

// lookup returns the live session id. A cold session is read from the store
// without holding s.mu, so a slow backend only delays callers of that id.
func (s *Service) lookup(ctx context.Context, id string, create bool) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	state, found := s.load(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	if !found && !create {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess = &session{state: state}
	s.sessions[id] = sess
	return sess, nil
}

func (s *Service) load(ctx context.Context, id string) (engine.State, bool) {
	key := Key(id)

	if _, err := s.adapter.KV().Get(ctx, key); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn("failed to read session", zap.String("session_id", id), zap.Error(err))
		}
		return engine.DefaultState(), false
	}

	state := store.Load(ctx, s.adapter, key, engine.DefaultState())
	if err := state.Validate(); err != nil {
		s.log.Warn("discarding invalid stored state", zap.String("session_id", id), zap.Error(err))
		return engine.DefaultState(), true
	}
	if state.History == nil {
		state.History = []engine.Entry{}
	}
	if state.Theme == "" {
		state.Theme = engine.ThemeLight
	}
	return state, true
}

func (s *Service) persist(id string, state engine.State) {
	snapshot := state.Clone()
	s.debounce.Do(id, func() {
		s.adapter.Save(context.Background(), Key(id), snapshot)
	})
}

// apply runs fn against session id under the session lock and persists the
// result. A failing fn leaves the session untouched.
func (s *Service) apply(ctx context.Context, id, name string, fn func(engine.State) (engine.State, error)) (engine.State, error) {
	sess, err := s.lookup(ctx, id, false)
	if err != nil {
		return engine.State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var next engine.State
	start := time.Now()
	measureErr := s.perf.Measure(name, func() {
		next, err = fn(sess.state)
	})
	elapsed := time.Since(start)
	if measureErr != nil {
		s.log.Debug("performance sample dropped", zap.String("operation", name), zap.Error(measureErr))
	}

	if err != nil {
		s.perf.RecordError(ctx, name)
		s.log.Info("input rejected",
			zap.String("session_id", id),
			zap.String("operation", name),
			zap.Error(err),
		)
		return sess.state.Clone(), err
	}

	if next.Display == engine.ErrorDisplay {
		s.perf.RecordError(ctx, name)
	} else {
		s.perf.RecordOperation(ctx, name, elapsed, engine.ParseDisplayValue(next.Display))
	}

	sess.state = next
	s.persist(id, next)
	return next.Clone(), nil
}

// Press applies a keypad token.
func (s *Service) Press(ctx context.Context, id, token string) (engine.State, error) {
	return s.apply(ctx, id, token, func(st engine.State) (engine.State, error) {
		return s.machine.Next(st, token)
	})
}

// ErrUnknownKey is returned by Key for keys with no keypad binding.
var ErrUnknownKey = errors.New("unknown key")

// Key applies a keyboard key.
func (s *Service) Key(ctx context.Context, id, key string) (engine.State, error) {
	token, ok := engine.KeyToToken(key)
	if !ok {
		if _, err := s.lookup(ctx, id, false); err != nil {
			return engine.State{}, err
		}
		return engine.State{}, fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return s.Press(ctx, id, token)
}

// Memory applies a memory key.
func (s *Service) Memory(ctx context.Context, id string, op engine.MemoryOperation) (engine.State, error) {
	return s.apply(ctx, id, string(op), func(st engine.State) (engine.State, error) {
		return s.machine.ApplyMemory(st, op)
	})
}

// UseHistory recalls a history entry onto the display.
func (s *Service) UseHistory(ctx context.Context, id, entryID string) (engine.State, error) {
	return s.apply(ctx, id, "history.use", func(st engine.State) (engine.State, error) {
		return s.machine.UseHistoryEntry(st, entryID)
	})
}

// ClearHistory empties the history of session id.
func (s *Service) ClearHistory(ctx context.Context, id string) (engine.State, error) {
	return s.apply(ctx, id, "history.clear", func(st engine.State) (engine.State, error) {
		return s.machine.ClearHistory(st), nil
	})
}

// SetTheme changes the theme of session id.
func (s *Service) SetTheme(ctx context.Context, id string, theme engine.Theme) (engine.State, error) {
	return s.apply(ctx, id, "theme", func(st engine.State) (engine.State, error) {
		return s.machine.SetTheme(st, theme)
	})
}

// Reset replaces session id with the default state, keeping only its theme.
func (s *Service) Reset(ctx context.Context, id string) (engine.State, error) {
	return s.apply(ctx, id, "reset", func(st engine.State) (engine.State, error) {
		fresh := engine.DefaultState()
		fresh.Theme = st.Theme
		return fresh, nil
	})
}

// Sessions reports how many sessions are live in memory.
func (s *Service) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Flush writes every state still waiting in the debouncer. It gives up
// when ctx is done; the writes keep running in the background.
func (s *Service) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.debounce.Flush()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush sessions: %w", ctx.Err())
	}
}
