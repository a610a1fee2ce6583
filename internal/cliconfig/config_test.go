package cliconfig

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/forkpipe/pkg/fork"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ChunkSize != fork.DefaultChunkSize {
		t.Errorf("ChunkSize = %v, want %v", cfg.ChunkSize, fork.DefaultChunkSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.DebounceDelay != 500*time.Millisecond {
		t.Errorf("DebounceDelay = %v, want 500ms", cfg.DebounceDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := DefaultConfig()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"debug level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"signal by short name", func(c *Config) { c.ParentDeathSignal = "term" }, false},
		{"signal by full name", func(c *Config) { c.ParentDeathSignal = "SIGKILL" }, false},
		{"unknown signal", func(c *Config) { c.ParentDeathSignal = "SIGNOPE" }, true},
		{"negative debounce", func(c *Config) { c.DebounceDelay = -time.Second }, true},
		{"zero debounce", func(c *Config) { c.DebounceDelay = 0 }, false},
		{"zero wait timeout", func(c *Config) { c.WaitTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ForkOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.ForkOptions()
	if err != nil {
		t.Fatalf("ForkOptions() error = %v", err)
	}
	if len(opts) != 1 {
		t.Errorf("len(opts) = %d, want 1", len(opts))
	}

	cfg.Executable = "/usr/local/bin/forkpipe"
	cfg.ParentDeathSignal = "TERM"
	opts, err = cfg.ForkOptions()
	if err != nil {
		t.Fatalf("ForkOptions() error = %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("len(opts) = %d, want 3", len(opts))
	}

	cfg.ParentDeathSignal = "bogus"
	if _, err := cfg.ForkOptions(); err == nil {
		t.Error("ForkOptions() expected error for unknown signal")
	}
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantInfo bool
	}{
		{"info level", Config{LogLevel: "info", LogJSON: true}, true},
		{"warn level", Config{LogLevel: "warn", LogJSON: true}, false},
		{"quiet overrides info", Config{LogLevel: "info", LogJSON: true, Quiet: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := tt.cfg.newLogger(&buf)
			if err != nil {
				t.Fatalf("newLogger() error = %v", err)
			}
			logger.Info().Msg("hello")
			if got := strings.Contains(buf.String(), `"message":"hello"`); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v (output %q)", got, tt.wantInfo, buf.String())
			}
		})
	}

	cfg := Config{LogLevel: "nope"}
	if _, err := cfg.newLogger(&bytes.Buffer{}); err == nil {
		t.Error("newLogger() expected error for unknown level")
	}
}

func TestConfigSetter(t *testing.T) {
	s := newConfigSetter(map[string]bool{"chunk-size": true})

	n := 10
	s.setInt("chunk-size", 20, &n)
	if n != 10 {
		t.Errorf("changed flag overwritten: %d", n)
	}
	s.setInt("other", -1, &n)
	if n != 10 {
		t.Errorf("non-positive value applied: %d", n)
	}
	s.setInt("other", 30, &n)
	if n != 30 {
		t.Errorf("setInt = %d, want 30", n)
	}

	str := "keep"
	s.setString("x", "", &str)
	if str != "keep" {
		t.Errorf("empty string applied: %q", str)
	}
}
