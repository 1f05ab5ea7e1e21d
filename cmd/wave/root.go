package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wave-testlib/cmd/wave/config"
	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/verdict"
)

// app carries what commands share once flags are parsed.
type app struct {
	cfgFile string
	cfg     *config.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// exit terminates the process after a verdict or fault.
	exit func(code int)
}

func newApp() *app {
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		exit:   os.Exit,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "wave",
		Short:         "Run and debug checkers and interactors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg

			l, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.SetLogger(l)
			l.Debug("config loaded",
				zap.Float64("tolerance", cfg.Tolerance),
				zap.String("log_level", cfg.LogLevel),
				zap.Bool("color", cfg.Color))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default "+config.FileName+" if present)")
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		newCheckCmd(a),
		newInteractCmd(a),
		newCompareCmd(a),
		newInspectCmd(a),
	)
	return root
}

// reporter writes verdict lines to stderr, styled when stderr is a terminal.
func (a *app) reporter() *verdict.Reporter {
	diag := a.stderr
	if a.cfg != nil && a.cfg.Color && isTerminal(diag) {
		diag = &verdictWriter{w: diag, styles: newStyles(true)}
	}
	return &verdict.Reporter{Diag: diag, Exit: a.exit}
}

func isTerminal(w any) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
