// Package config loads runtime settings from environment variables and an
// optional YAML file.
//
// Precedence, lowest first: built-in defaults, the YAML file, STATECORE_*
// environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STATECORE_"

// Config holds the settings consumed by app.New.
type Config struct {
	// DevMode enables the debug recorder and the console debug handle.
	DevMode bool `env:"DEV_MODE" yaml:"dev_mode"`

	// DBPath is the SQLite database used for persistence and debug history.
	// Empty keeps persisted state in memory for the life of the process.
	DBPath string `env:"DB" yaml:"db"`

	// PersistDebounce is the quiet window before state is written.
	PersistDebounce time.Duration `env:"PERSIST_DEBOUNCE" yaml:"persist_debounce"`

	// HistoryCapacity bounds the debug history.
	HistoryCapacity int `env:"HISTORY_CAPACITY" yaml:"history_capacity"`

	// StrictSchema validates every snapshot and hydrated record against
	// the CUE schema.
	StrictSchema bool `env:"STRICT_SCHEMA" yaml:"strict_schema"`

	// LoginPath is where signed-out users are sent.
	LoginPath string `env:"LOGIN_PATH" yaml:"login_path"`

	// InitialState is an optional .json or .cue overlay merged into the
	// initial state.
	InitialState string `env:"INITIAL_STATE" yaml:"initial_state"`

	// MetricsAddr serves Prometheus metrics when non-empty (e.g. ":9090").
	MetricsAddr string `env:"METRICS_ADDR" yaml:"metrics_addr"`

	// PrefersDark selects the system theme used when no explicit theme
	// preference is stored.
	PrefersDark bool `env:"PREFERS_DARK" yaml:"prefers_dark"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		PersistDebounce: 300 * time.Millisecond,
		HistoryCapacity: 50,
		LoginPath:       "/auth/login",
	}
}

// Load reads path (if non-empty) and then the process environment.
func Load(path string) (Config, error) {
	return LoadFrom(path, nil)
}

// LoadFrom is Load with an explicit environment. A nil environ reads the
// process environment.
func LoadFrom(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML decodes data onto cfg, rejecting unknown keys. An empty file
// leaves cfg unchanged.
func decodeYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse YAML: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.PersistDebounce <= 0 {
		errs = append(errs, fmt.Errorf("persist_debounce must be positive, got %s", c.PersistDebounce))
	}
	if c.HistoryCapacity <= 0 {
		errs = append(errs, fmt.Errorf("history_capacity must be positive, got %d", c.HistoryCapacity))
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		errs = append(errs, fmt.Errorf("login_path must start with /, got %q", c.LoginPath))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
