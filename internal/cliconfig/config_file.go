package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ChunkSize         int    `toml:"chunk_size"`
	Executable        string `toml:"executable"`
	LogLevel          string `toml:"log_level"`
	LogJSON           *bool  `toml:"log_json"`
	Quiet             *bool  `toml:"quiet"`
	ParentDeathSignal string `toml:"parent_death_signal"`
	MetricsAddr       string `toml:"metrics_addr"`
	DebounceDelay     string `toml:"debounce"`
	WaitTimeout       string `toml:"wait_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.forkpipe/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".forkpipe", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setString("executable", fc.Executable, &cfg.Executable)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("parent-death-signal", fc.ParentDeathSignal, &cfg.ParentDeathSignal)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)

	if err := s.setDuration("debounce", fc.DebounceDelay, &cfg.DebounceDelay); err != nil {
		return err
	}
	if err := s.setDuration("wait-timeout", fc.WaitTimeout, &cfg.WaitTimeout); err != nil {
		return err
	}

	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)
	s.setBool("quiet", fc.Quiet, &cfg.Quiet)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
