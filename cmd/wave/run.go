package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/wave-testlib/bridge"
	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/judge"
	"github.com/wippyai/wave-testlib/wasmhost"
)

// guestFlags are shared by the commands that execute a wasm guest.
type guestFlags struct {
	memoryPages uint32
	timeout     time.Duration
}

func (g *guestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Uint32Var(&g.memoryPages, "memory-pages", 0, "guest memory limit in 64KiB pages (0 for the runtime default)")
	cmd.Flags().DurationVar(&g.timeout, "timeout", 0, "abort the guest after this long (0 for no limit)")
}

func (g *guestFlags) run(ctx context.Context, path string, r *wasmhost.Runner) error {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return errors.Load("read guest module "+path, err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	r.MemoryLimitPages = g.memoryPages

	start := time.Now()
	err = r.Execute(ctx, wasm)
	logging.Logger().Info("guest finished",
		zap.String("module", path),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("clean", err == nil))
	return err
}

func newCheckCmd(a *app) *cobra.Command {
	var g guestFlags
	cmd := &cobra.Command{
		Use:   "check <guest.wasm> <input> <output> <answer>",
		Short: "Run a wasm checker against a candidate output",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := judge.CheckerPaths{Input: args[1], Output: args[2], Answer: args[3]}
			r := &wasmhost.Runner{
				Bridge: bridge.Config{
					OpenChecker: func() (*judge.Checker, error) {
						return judge.OpenChecker(paths)
					},
				},
				Stdin:  a.stdin,
				Stdout: a.stdout,
				Stderr: a.stderr,
				Args:   args[1:],
			}
			a.reporter().Finish(g.run(cmd.Context(), args[0], r))
			return nil
		},
	}
	g.bind(cmd)
	return cmd
}

func newInteractCmd(a *app) *cobra.Command {
	var g guestFlags
	cmd := &cobra.Command{
		Use:   "interact <guest.wasm> <input> <answer>",
		Short: "Run a wasm interactor talking to the candidate over stdin/stdout",
		Long: `Run a wasm interactor. The candidate's output is read from stdin and
messages to the candidate are written to stdout, so both must be connected
to the candidate's pipes. The guest's own stdout goes to stderr.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := judge.InteractorPaths{Input: args[1], Answer: args[2]}
			r := &wasmhost.Runner{
				Bridge: bridge.Config{
					OpenInteractor: func() (*judge.Interactor, error) {
						return judge.OpenInteractor(paths, a.stdin, a.stdout)
					},
				},
				Stdout: a.stderr,
				Stderr: a.stderr,
				Args:   args[1:],
			}
			a.reporter().Finish(g.run(cmd.Context(), args[0], r))
			return nil
		},
	}
	g.bind(cmd)
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <input> <output> <answer>",
		Short: "Compare output with answer as sequences of floats",
		Long: `Compare every token of the answer, read as a float, with the matching
token of the output under the configured tolerance, then require the
output to end.`,
		Args: cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			judge.RunCheckerWith(a.reporter(), args, judge.FloatChecker(a.cfg.Tolerance))
			return nil
		},
	}
}
