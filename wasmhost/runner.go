package wasmhost

import (
	"context"
	stderrors "errors"
	"io"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/wave-testlib/bridge"
	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/verdict"
)

const wasiModuleName = wasi_snapshot_preview1.ModuleName

// Runner executes a checker or interactor compiled to a WASI preview1 core
// module that imports the wave module.
type Runner struct {
	// Bridge supplies the instances the guest creates.
	Bridge bridge.Config

	// Guest stdio. Nil streams are discarded (stdin reads EOF).
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Args are passed to the guest after its program name.
	Args []string

	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the wazero default.
	MemoryLimitPages uint32
}

// Execute runs the guest's _start and returns its outcome: nil when the guest
// finished without a verdict (an implicit accept), a *verdict.Verdict when it
// reached one, or a fault error.
func (r *Runner) Execute(ctx context.Context, wasm []byte) error {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if r.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(r.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasm)
	if err != nil {
		return errors.Load("compile guest module", err)
	}
	if err := CheckImports(compiled); err != nil {
		return err
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return errors.Instantiation(err)
	}

	b := bridge.New(r.Bridge)
	defer func() {
		if err := b.Close(); err != nil {
			logging.Logger().Warn("close bridge", zap.Error(err))
		}
	}()
	host := NewHost(b)
	if _, err := host.Instantiate(ctx, rt); err != nil {
		return err
	}

	modCfg := wazero.NewModuleConfig().
		WithName("guest").
		WithArgs(append([]string{"guest"}, r.Args...)...)
	if r.Stdin != nil {
		modCfg = modCfg.WithStdin(r.Stdin)
	}
	if r.Stdout != nil {
		modCfg = modCfg.WithStdout(r.Stdout)
	}
	if r.Stderr != nil {
		modCfg = modCfg.WithStderr(r.Stderr)
	}

	logging.Logger().Debug("starting guest", zap.Int("bytes", len(wasm)))
	mod, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if mod != nil {
		defer mod.Close(ctx)
	}
	outcome := classify(host, err)
	logging.Logger().Debug("guest finished", zap.NamedError("outcome", outcome))
	return outcome
}

func classify(host *Host, err error) error {
	switch t := host.Terminal().(type) {
	case *verdict.Verdict:
		return t
	case error:
		return t
	}

	if err == nil {
		return nil
	}
	if v, ok := verdict.Classify(err); ok {
		return v
	}
	var exit *sys.ExitError
	if stderrors.As(err, &exit) {
		if exit.ExitCode() == 0 {
			return nil
		}
		return errors.UnexpectedExit(exit.ExitCode())
	}
	if verdict.IsFault(err) {
		return err
	}
	return errors.Wrap(errors.PhaseRuntime, errors.KindInstantiation, err, "guest trapped")
}

// CheckImports verifies that every function the guest imports is provided by
// the wave module or WASI preview1.
func CheckImports(compiled wazero.CompiledModule) error {
	exports := Exports()
	var missing []string
	for _, fn := range compiled.ImportedFunctions() {
		mod, name, _ := fn.Import()
		switch mod {
		case wasiModuleName:
			continue
		case ModuleName:
			if slices.Contains(exports, name) {
				continue
			}
		}
		missing = append(missing, mod+"#"+name)
	}
	if len(missing) > 0 {
		return errors.NewMissingImportsError(missing)
	}
	return nil
}
