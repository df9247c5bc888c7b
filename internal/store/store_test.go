package store

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"go-chi-calculator/internal/engine"
)

type failingKV struct {
	getErr error
	setErr error
}

func (f failingKV) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f failingKV) Set(context.Context, string, []byte) error  { return f.setErr }
func (f failingKV) Close() error                               { return nil }

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)

	sqliteKV, err := OpenSQLite(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { sqliteKV.Close() })

	return map[string]KV{
		BackendMemory: NewMemoryKV(),
		BackendFile:   fileKV,
		BackendSQLite: sqliteKV,
	}
}

func TestBackendsGetSet(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "calculator-state:missing")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "calculator-state:a", []byte(`{"display":"1"}`)))
			require.NoError(t, kv.Set(ctx, "calculator-state:a", []byte(`{"display":"2"}`)))

			got, err := kv.Get(ctx, "calculator-state:a")
			require.NoError(t, err)
			assert.JSONEq(t, `{"display":"2"}`, string(got))
		})
	}
}

func TestAdapterRoundTripsState(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := NewAdapter(kv, zap.NewNop())

			m := engine.NewMachine()
			state, err := m.Run(engine.DefaultState(), "5", "+", "3", "=", "M+", "2", "×")
			require.NoError(t, err)

			require.True(t, a.Save(ctx, "calculator-state", state))

			loaded := Load(ctx, a, "calculator-state", engine.DefaultState())
			assert.Equal(t, state.Display, loaded.Display)
			assert.Equal(t, state.Operation, loaded.Operation)
			assert.Equal(t, *state.PreviousValue, *loaded.PreviousValue)
			assert.Equal(t, state.Memory, loaded.Memory)
			require.Len(t, loaded.History, 1)
			assert.Equal(t, state.History[0].ID, loaded.History[0].ID)
			assert.True(t, state.History[0].Timestamp.Equal(loaded.History[0].Timestamp))
		})
	}
}

func TestLoadReturnsDefault(t *testing.T) {
	ctx := context.Background()
	def := engine.DefaultState()

	t.Run("missing key", func(t *testing.T) {
		a := NewAdapter(NewMemoryKV(), nil)
		assert.Equal(t, def, Load(ctx, a, "nope", def))
	})

	t.Run("empty value", func(t *testing.T) {
		kv := NewMemoryKV()
		require.NoError(t, kv.Set(ctx, "k", nil))
		assert.Equal(t, def, Load(ctx, NewAdapter(kv, nil), "k", def))
	})

	t.Run("corrupt value", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		kv := NewMemoryKV()
		require.NoError(t, kv.Set(ctx, "k", []byte("{not json")))

		assert.Equal(t, def, Load(ctx, NewAdapter(kv, zap.New(core)), "k", def))
		assert.Equal(t, 1, logs.FilterMessage("failed to decode value").Len())
	})

	t.Run("backend failure", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		a := NewAdapter(failingKV{getErr: errors.New("storage disabled")}, zap.New(core))

		assert.Equal(t, def, Load(ctx, a, "k", def))
		assert.Equal(t, 1, logs.FilterMessage("failed to load value").Len())
	})
}

func TestSaveSwallowsFailures(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	a := NewAdapter(failingKV{setErr: errors.New("quota exceeded")}, zap.New(core))

	assert.False(t, a.Save(ctx, "k", engine.DefaultState()))
	assert.Equal(t, 1, logs.FilterMessage("failed to save value").Len())

	assert.False(t, NewAdapter(NewMemoryKV(), zap.New(core)).Save(ctx, "k", func() {}))
	assert.Equal(t, 1, logs.FilterMessage("failed to encode value").Len())
}

func TestOpen(t *testing.T) {
	kv, err := Open(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(Config{Backend: BackendSQLite, DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteKV{}, kv)
	require.NoError(t, kv.Close())

	kv, err = Open(Config{Backend: BackendFile, DataDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	_, err = Open(Config{Backend: "redis"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
