package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/forkpipe"
	"github.com/bft-labs/forkpipe/internal/cliconfig"
	_ "github.com/bft-labs/forkpipe/internal/tasks"
	"github.com/bft-labs/forkpipe/pkg/fork"
	"github.com/bft-labs/forkpipe/pkg/log"
	"github.com/bft-labs/forkpipe/pkg/metrics"
)

const longHelp = `Run registered tasks in child processes.

forkpipe re-executes itself to start a child that runs exactly one task and
exits. The parent either leaves the child running, runs a task of its own at
the same time, or captures everything the child writes to standard output.

Configuration is read from $HOME/.forkpipe/config.toml, then FORKPIPE_*
environment variables, then flags; later sources win.`

var exampleUsage = strings.TrimSpace(`
  forkpipe tasks
  forkpipe capture echo hello world
  forkpipe capture sum 1 2 3 --as float
  forkpipe run sleep 2s --main echo --main-arg parent --wait
  forkpipe watch ./input.txt pid --metrics-addr :9100
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return forkpipe.Version
}

// app is the state shared by subcommands once configuration is loaded.
type app struct {
	cfg     cliconfig.Config
	cfgPath string

	log     zerolog.Logger
	metrics *metrics.Collector
	opts    []fork.Option
}

func main() {
	forkpipe.Dispatch()

	a := &app{cfg: cliconfig.DefaultConfig(), log: cliconfig.Logger()}

	root := &cobra.Command{
		Use:               "forkpipe",
		Short:             "Run registered tasks in child processes",
		Long:              longHelp,
		Example:           exampleUsage,
		Version:           fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.forkpipe/config.toml)")
	flags.IntVar(&a.cfg.ChunkSize, "chunk-size", a.cfg.ChunkSize, "bytes read from the capture pipe at a time")
	flags.StringVar(&a.cfg.Executable, "executable", a.cfg.Executable, "binary to start children from (default: this binary)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "log level (debug, info, warn, error)")
	flags.BoolVar(&a.cfg.LogJSON, "log-json", a.cfg.LogJSON, "log JSON to stderr instead of console output")
	flags.BoolVarP(&a.cfg.Quiet, "quiet", "q", a.cfg.Quiet, "only log warnings and errors")
	flags.StringVar(&a.cfg.ParentDeathSignal, "parent-death-signal", a.cfg.ParentDeathSignal, "signal sent to children when forkpipe dies (Linux)")
	flags.StringVar(&a.cfg.MetricsAddr, "metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address")
	flags.DurationVar(&a.cfg.DebounceDelay, "debounce", a.cfg.DebounceDelay, "quiet period before watch re-runs a task")
	flags.DurationVar(&a.cfg.WaitTimeout, "wait-timeout", a.cfg.WaitTimeout, "how long run --wait waits for children")

	root.AddCommand(
		newTasksCmd(),
		newCaptureCmd(a),
		newRunCmd(a),
		newWatchCmd(a),
	)

	if err := root.Execute(); err != nil {
		a.log.Error().Err(err).Msg("forkpipe")
		os.Exit(1)
	}
}

// load builds the configuration from file, environment and flags, then the
// logger and forker options every subcommand uses.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, err := a.cfg.NewLogger()
	if err != nil {
		return err
	}
	a.log = logger
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")

	opts, err := a.cfg.ForkOptions()
	if err != nil {
		return err
	}
	a.metrics = metrics.New(nil)
	a.opts = append(opts,
		fork.WithLogger(log.NewZerologAdapterWithLogger(a.log)),
		fork.WithEventHandler(a.metrics),
	)
	return nil
}

// serveMetrics exposes /metrics until ctx is done when an address is set.
func (a *app) serveMetrics(ctx context.Context) {
	if a.cfg.MetricsAddr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("metrics server")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
