package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-chi-calculator/internal/store"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(""))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, store.BackendFile, cfg.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 12, cfg.MaxDisplayLength)
	assert.Equal(t, 50, cfg.MaxHistoryEntries)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calculator.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
backend: sqlite
data_dir: /var/lib/calculator
debounce: 250ms
telemetry:
  enabled: true
`), 0o644))

	t.Setenv("CALCULATOR_MAX_HISTORY_ENTRIES", "10")
	t.Setenv("CALCULATOR_ADDR", ":7070")

	cfg, err := Load(New(path))
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, store.BackendSQLite, cfg.Backend)
	assert.Equal(t, "/var/lib/calculator", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 10, cfg.MaxHistoryEntries)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, store.Config{Backend: store.BackendSQLite, DataDir: "/var/lib/calculator"}, cfg.Store())
	assert.Len(t, cfg.MachineOptions(), 2)
}

func TestServiceNameFromOTelEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OTEL_SERVICE_NAME", "calc-test")

	cfg, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, "calc-test", cfg.ServiceName)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"backend", map[string]string{"CALCULATOR_BACKEND": "redis"}},
		{"display length", map[string]string{"CALCULATOR_MAX_DISPLAY_LENGTH": "0"}},
		{"debounce", map[string]string{"CALCULATOR_DEBOUNCE": "-1s"}},
		{"data dir", map[string]string{"CALCULATOR_DATA_DIR": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(New(""))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	assert.NoError(t, LoadDotEnv(), "missing .env is fine")

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CALCULATOR_LOG_LEVEL=debug\n"), 0o644))
	t.Setenv("CALCULATOR_LOG_LEVEL", "")
	os.Unsetenv("CALCULATOR_LOG_LEVEL")
	require.NoError(t, LoadDotEnv())

	cfg, err := Load(New(""))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}
