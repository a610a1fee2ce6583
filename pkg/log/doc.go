// Package log provides the logging abstraction used by the forkpipe packages.
//
// Forkers, the metrics collector and the CLI all log through the Logger
// interface so that embedding applications can plug in their own backend.
// A zerolog adapter and the Discard logger are provided.
//
// # Usage
//
// Use the zerolog adapter:
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	f := fork.NewPiped(fork.WithLogger(logger))
//
// Or discard everything (the default for forkers):
//
//	logger := log.Discard
//
// # Child processes
//
// A child started by a forker inherits the parent's stderr, so loggers that
// write to os.Stderr keep working on both sides of the fork. Never log to
// os.Stdout inside a piped child: stdout is the capture channel.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
package log
