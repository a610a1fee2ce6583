package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (FORKPIPE_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if err := s.setIntFromString("chunk-size", os.Getenv("FORKPIPE_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}
	s.setString("executable", os.Getenv("FORKPIPE_EXECUTABLE"), &cfg.Executable)
	s.setString("log-level", os.Getenv("FORKPIPE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("parent-death-signal", os.Getenv("FORKPIPE_PARENT_DEATH_SIGNAL"), &cfg.ParentDeathSignal)
	s.setString("metrics-addr", os.Getenv("FORKPIPE_METRICS_ADDR"), &cfg.MetricsAddr)

	if err := s.setDuration("debounce", os.Getenv("FORKPIPE_DEBOUNCE"), &cfg.DebounceDelay); err != nil {
		return err
	}
	if err := s.setDuration("wait-timeout", os.Getenv("FORKPIPE_WAIT_TIMEOUT"), &cfg.WaitTimeout); err != nil {
		return err
	}

	s.setBoolFromString("log-json", os.Getenv("FORKPIPE_LOG_JSON"), &cfg.LogJSON)
	s.setBoolFromString("quiet", os.Getenv("FORKPIPE_QUIET"), &cfg.Quiet)

	return nil
}
