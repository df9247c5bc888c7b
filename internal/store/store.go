// Package store persists calculator state as JSON blobs in a key-value
// backend. Persistence never fails the caller: Save reports success as a
// bool and Load falls back to a default.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is a byte-oriented key-value backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Adapter serializes values into a KV and swallows backend failures,
// logging them as warnings.
type Adapter struct {
	kv  KV
	log *zap.Logger
}

// NewAdapter wraps kv. A nil logger discards warnings.
func NewAdapter(kv KV, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{kv: kv, log: log}
}

// KV returns the wrapped backend.
func (a *Adapter) KV() KV {
	return a.kv
}

// Save writes value under key as JSON. It returns false if encoding or the
// write failed; the failure is logged, never returned.
func (a *Adapter) Save(ctx context.Context, key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		a.log.Warn("failed to encode value", zap.String("key", key), zap.Error(err))
		return false
	}

	if err := a.kv.Set(ctx, key, data); err != nil {
		a.log.Warn("failed to save value", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Load reads key into a T. It returns def when the key is absent or empty,
// or when reading or decoding fails.
func Load[T any](ctx context.Context, a *Adapter, key string, def T) T {
	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.Warn("failed to load value", zap.String("key", key), zap.Error(err))
		}
		return def
	}
	if len(data) == 0 {
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		a.log.Warn("failed to decode value", zap.String("key", key), zap.Error(err))
		return def
	}
	return v
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Config selects and locates a backend.
type Config struct {
	Backend string
	DataDir string
}

// Open creates the backend named by cfg.Backend.
func Open(cfg Config) (KV, error) {
	switch cfg.Backend {
	case BackendFile:
		kv, err := NewFileKV(nil, cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendSQLite:
		kv, err := OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendMemory, "":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
