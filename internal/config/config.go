// Package config loads service settings from defaults, an optional
// calculator.yaml, a .env file and CALCULATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"go-chi-calculator/internal/engine"
	"go-chi-calculator/internal/session"
	"go-chi-calculator/internal/store"
)

const (
	configFileName = "calculator"
	configFileType = "yaml"
	envPrefix      = "CALCULATOR"
)

// Keys understood by Load.
const (
	KeyAddr              = "addr"
	KeyBackend           = "backend"
	KeyDataDir           = "data_dir"
	KeyDebounce          = "debounce"
	KeyMaxDisplayLength  = "max_display_length"
	KeyMaxHistoryEntries = "max_history_entries"
	KeyLogLevel          = "log_level"
	KeyTelemetryEnabled  = "telemetry.enabled"
	KeyServiceName       = "service_name"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the resolved service configuration.
type Config struct {
	Addr              string        `mapstructure:"addr"`
	Backend           string        `mapstructure:"backend"`
	DataDir           string        `mapstructure:"data_dir"`
	Debounce          time.Duration `mapstructure:"debounce"`
	MaxDisplayLength  int           `mapstructure:"max_display_length"`
	MaxHistoryEntries int           `mapstructure:"max_history_entries"`
	LogLevel          string        `mapstructure:"log_level"`
	ServiceName       string        `mapstructure:"service_name"`
	Telemetry         Telemetry     `mapstructure:"telemetry"`
}

// Telemetry toggles the OTLP exporters.
type Telemetry struct {
	Enabled bool `mapstructure:"enabled"`
}

// New returns a viper instance with defaults and environment binding set up.
// path names an explicit config file; when empty calculator.yaml is looked
// up in the working directory and is optional.
func New(path string) *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyBackend, store.BackendFile)
	v.SetDefault(KeyDataDir, ".calculator")
	v.SetDefault(KeyDebounce, session.DefaultDebounce)
	v.SetDefault(KeyMaxDisplayLength, engine.MaxDisplayLength)
	v.SetDefault(KeyMaxHistoryEntries, engine.MaxHistoryEntries)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyServiceName, "calculator")
	v.SetDefault(KeyTelemetryEnabled, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyServiceName, envPrefix+"_SERVICE_NAME", "OTEL_SERVICE_NAME")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	return v
}

// Load reads the configuration. A missing default config file is not an
// error; a missing explicit one is.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env when present. Variables already set in the process
// environment win.
func LoadDotEnv(filenames ...string) error {
	err := godotenv.Load(filenames...)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// Validate checks value ranges and the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case store.BackendFile, store.BackendSQLite, store.BackendMemory:
	default:
		return fmt.Errorf("%w: backend %q", ErrInvalidConfig, c.Backend)
	}
	if c.Backend != store.BackendMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data_dir is required for the %s backend", ErrInvalidConfig, c.Backend)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative", ErrInvalidConfig)
	}
	if c.MaxDisplayLength <= 0 {
		return fmt.Errorf("%w: max_display_length must be positive", ErrInvalidConfig)
	}
	if c.MaxHistoryEntries <= 0 {
		return fmt.Errorf("%w: max_history_entries must be positive", ErrInvalidConfig)
	}
	return nil
}

// Store returns the persistence settings.
func (c Config) Store() store.Config {
	return store.Config{Backend: c.Backend, DataDir: c.DataDir}
}

// MachineOptions returns the state machine limits.
func (c Config) MachineOptions() []engine.Option {
	return []engine.Option{
		engine.WithMaxDisplayLength(c.MaxDisplayLength),
		engine.WithMaxHistoryEntries(c.MaxHistoryEntries),
	}
}
