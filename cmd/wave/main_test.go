package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/verdict"
)

type harness struct {
	app    *app
	stdout bytes.Buffer
	stderr bytes.Buffer
	code   int
	exits  int
}

func newHarness(t *testing.T, stdin string) *harness {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Cleanup(func() { logging.SetLogger(nil) })

	h := &harness{code: -1}
	h.app = &app{
		stdin:  strings.NewReader(stdin),
		stdout: &h.stdout,
		stderr: &h.stderr,
		exit: func(code int) {
			h.code = code
			h.exits++
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := newRootCmd(h.app)
	cmd.SetArgs(args)
	cmd.SetOut(&h.stdout)
	cmd.SetErr(&h.stderr)
	return cmd.ExecuteContext(context.Background())
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		output string
		answer string
		flags  []string
		code   int
		line   string
	}{
		{name: "accepted", output: "1.0 2.0", answer: "1 2", code: verdict.ExitAccepted, line: "Accepted."},
		{name: "rejected", output: "1.5", answer: "1", code: verdict.ExitRejected, line: "Rejected: "},
		{name: "trailing output", output: "1 2", answer: "1", code: verdict.ExitRejected, line: `EOF expected, but found "2"`},
		{name: "loose tolerance", output: "1.5", answer: "1", flags: []string{"--tolerance", "0.5"}, code: verdict.ExitAccepted, line: "Accepted."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			in := writeFile(t, "input", "")
			out := writeFile(t, "output", tt.output)
			ans := writeFile(t, "answer", tt.answer)

			args := append([]string{"compare"}, tt.flags...)
			require.NoError(t, h.run(append(args, in, out, ans)...))
			assert.Equal(t, 1, h.exits)
			assert.Equal(t, tt.code, h.code)
			assert.Contains(t, h.stderr.String(), tt.line)
		})
	}
}

func TestCompare_MissingFileIsFault(t *testing.T) {
	h := newHarness(t, "")
	ans := writeFile(t, "answer", "1")

	require.NoError(t, h.run("compare", "nope-input", "nope-output", ans))
	assert.Equal(t, verdict.ExitFault, h.code)
	assert.Contains(t, h.stderr.String(), verdict.PrefixFault)
}

func TestCompare_ToleranceFromConfigFile(t *testing.T) {
	h := newHarness(t, "")
	cfg := writeFile(t, "wave.yaml", "tolerance: 1\n")
	in := writeFile(t, "input", "")
	out := writeFile(t, "output", "2")
	ans := writeFile(t, "answer", "1.5")

	require.NoError(t, h.run("--config", cfg, "compare", in, out, ans))
	assert.Equal(t, verdict.ExitAccepted, h.code)
}

func TestArgsValidated(t *testing.T) {
	h := newHarness(t, "")

	assert.Error(t, h.run("compare", "only-one"))
	assert.Error(t, h.run("check", "guest.wasm", "in"))
	assert.Error(t, h.run("interact", "guest.wasm"))
	assert.Zero(t, h.exits)
}

func TestBadConfigFails(t *testing.T) {
	h := newHarness(t, "")

	err := h.run("--log-level", "loud", "compare", "a", "b", "c")
	require.Error(t, err)
	assert.Zero(t, h.exits)
}

func TestCheck_GuestFaults(t *testing.T) {
	t.Run("missing module", func(t *testing.T) {
		h := newHarness(t, "")
		require.NoError(t, h.run("check", "missing.wasm", "in", "out", "ans"))
		assert.Equal(t, verdict.ExitFault, h.code)
		assert.Contains(t, h.stderr.String(), "read guest module")
	})

	t.Run("not wasm", func(t *testing.T) {
		h := newHarness(t, "")
		guest := writeFile(t, "guest.wasm", "definitely not wasm")
		require.NoError(t, h.run("check", guest, "in", "out", "ans"))
		assert.Equal(t, verdict.ExitFault, h.code)
		assert.Contains(t, h.stderr.String(), verdict.PrefixFault)
	})
}

func TestInteract_NotWasm(t *testing.T) {
	h := newHarness(t, "")
	guest := writeFile(t, "guest.wasm", "\x00asm garbage")

	require.NoError(t, h.run("interact", guest, "in", "ans"))
	assert.Equal(t, verdict.ExitFault, h.code)
	assert.Empty(t, h.stdout.String())
}

func TestInspect_RequiresTerminal(t *testing.T) {
	h := newHarness(t, "")
	f := writeFile(t, "output", "1 2 3")

	err := h.run("inspect", f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
}
