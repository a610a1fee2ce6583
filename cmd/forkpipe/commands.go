package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bft-labs/forkpipe/internal/watch"
	"github.com/bft-labs/forkpipe/pkg/fork"
	"github.com/bft-labs/forkpipe/pkg/invoke"
	"github.com/bft-labs/forkpipe/pkg/log"
)

func newTasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks children can run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range invoke.Default.Names() {
				f, _ := invoke.Lookup(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, f.Type())
			}
			return tw.Flush()
		},
	}
}

// bindTask resolves a registered task and binds command line arguments.
func bindTask(name string, raw []string) (*invoke.Unit, error) {
	f, ok := invoke.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown task %q (see forkpipe tasks)", name)
	}
	args, err := invoke.ParseArgs(f, raw)
	if err != nil {
		return nil, err
	}
	return f.Bind(args...), nil
}

func newCaptureCmd(a *app) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "capture <task> [args...]",
		Short: "Run a task in a child and print what it writes to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := bindTask(args[0], args[1:])
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			p := fork.NewPiped(a.opts...)
			if err := p.InvokeContext(ctx, unit); err != nil {
				return err
			}
			status := p.ExitStatus()

			if err := printResult(cmd, p, as); err != nil {
				return err
			}
			a.log.Info().Int("pid", status.Pid).Str("status", status.String()).Msg("child reaped")
			if !status.Completed() {
				return fmt.Errorf("task %s: %s", args[0], status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "parse the output as int, float, string or bool")
	return cmd
}

// printResult writes the captured output, parsed when as is set.
func printResult(cmd *cobra.Command, p *fork.PipedForker, as string) error {
	out := cmd.OutOrStdout()

	var (
		v   interface{}
		err error
	)
	switch as {
	case "":
		_, err = fmt.Fprint(out, p.TakeResult())
		return err
	case "int":
		v, err = fork.TakeResultAs[int64](p)
	case "float":
		v, err = fork.TakeResultAs[float64](p)
	case "string":
		v, err = fork.TakeResultAs[string](p)
	case "bool":
		v, err = fork.TakeResultAs[bool](p)
	default:
		p.TakeResult()
		return fmt.Errorf("--as: unsupported type %q", as)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, v)
	return err
}

func newRunCmd(a *app) *cobra.Command {
	var (
		mainTask string
		mainArgs []string
		wait     bool
	)

	cmd := &cobra.Command{
		Use:   "run <task> [args...]",
		Short: "Run a task in a child without capturing its output",
		Long: `Run a task in a child without capturing its output.

With --main, forkpipe runs a second task in its own process while the child
runs, and prints that task's result. Nothing orders the two.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			child, err := bindTask(args[0], args[1:])
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			a.serveMetrics(ctx)

			f := fork.New(a.opts...)
			childCtx := childContext(ctx, wait)

			if mainTask != "" {
				mainUnit, err := bindTask(mainTask, mainArgs)
				if err != nil {
					return err
				}
				result, err := f.RunWithContext(childCtx, mainUnit, child)
				if err != nil {
					return err
				}
				if result != nil {
					fmt.Fprintln(cmd.OutOrStdout(), result)
				}
			} else {
				h, err := f.RunContext(childCtx, child)
				if err != nil {
					return err
				}
				a.log.Info().Str("fork_id", h.ID()).Int("pid", h.Pid()).Msg("child started")
			}

			if !wait {
				return nil
			}
			waitCtx, cancel := context.WithTimeout(ctx, a.cfg.WaitTimeout)
			defer cancel()
			return f.Wait(waitCtx)
		},
	}
	cmd.Flags().StringVar(&mainTask, "main", "", "task to run in this process while the child runs")
	cmd.Flags().StringArrayVar(&mainArgs, "main-arg", nil, "argument for the --main task (repeatable)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the child to exit before returning")
	return cmd
}

// childContext is the context a run child is bound to. A child left running
// after the command returns must not be killed when the signal context is
// released, so only a waited-for child follows ctx.
func childContext(ctx context.Context, wait bool) context.Context {
	if wait {
		return ctx
	}
	return context.WithoutCancel(ctx)
}

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <path> <task> [args...]",
		Short: "Re-run a task in a child whenever a file changes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := bindTask(args[1], args[2:])
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()
			a.serveMetrics(ctx)

			p := fork.NewPiped(a.opts...)
			out := cmd.OutOrStdout()

			w := watch.New(args[0], watch.Config{DebounceDelay: a.cfg.DebounceDelay, Initial: true},
				func(ctx context.Context) {
					if err := p.InvokeContext(ctx, unit); err != nil {
						a.log.Error().Err(err).Msg("capture")
						return
					}
					fmt.Fprint(out, p.TakeResult())
					if st := p.ExitStatus(); !st.Completed() {
						a.log.Warn().Str("status", st.String()).Msg("task did not complete")
					}
				},
				log.NewZerologAdapterWithLogger(a.log),
			)
			return w.Run(ctx)
		},
	}
	return cmd
}
