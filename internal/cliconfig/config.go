package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/forkpipe/pkg/fork"
)

// Config holds CLI configuration for forkpipe.
type Config struct {
	ChunkSize  int
	Executable string

	LogLevel string
	LogJSON  bool
	Quiet    bool

	ParentDeathSignal string

	MetricsAddr   string
	DebounceDelay time.Duration
	WaitTimeout   time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     fork.DefaultChunkSize,
		LogLevel:      "info",
		DebounceDelay: 500 * time.Millisecond,
		WaitTimeout:   30 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if _, err := parseSignal(c.ParentDeathSignal); err != nil {
		return fmt.Errorf("parent death signal: %w", err)
	}
	if c.DebounceDelay < 0 {
		return fmt.Errorf("debounce delay must not be negative")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}
	return nil
}

// ForkOptions converts the configuration into forker options.
func (c *Config) ForkOptions() ([]fork.Option, error) {
	opts := []fork.Option{fork.WithChunkSize(c.ChunkSize)}
	if c.Executable != "" {
		opts = append(opts, fork.WithExecutable(c.Executable))
	}
	sig, err := parseSignal(c.ParentDeathSignal)
	if err != nil {
		return nil, fmt.Errorf("parent death signal: %w", err)
	}
	if sig != nil {
		opts = append(opts, fork.WithParentDeathSignal(sig))
	}
	return opts, nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
