// Package judge builds the owning instances a checker or interactor works on
// and runs them under the verdict handler.
//
// A checker reads three streams: the test input, the candidate's output and
// the reference answer. Command-line arguments follow the testlib order:
//
//	checker <input> <output> <answer>
//
// An interactor reads the test input and the reference answer from files and
// talks to the candidate over a pipe: its read end carries the candidate's
// output and its write end feeds the candidate's input.
//
//	interactor <input> <answer>
package judge

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/wave-testlib/contract"
	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/internal/logging"
)

// CheckerPaths locates the files a checker reads.
type CheckerPaths struct {
	Input  string
	Output string
	Answer string
}

// InteractorPaths locates the files an interactor reads.
type InteractorPaths struct {
	Input  string
	Answer string
}

// CheckerArgs takes checker paths from command-line arguments (without the
// program name).
func CheckerArgs(args []string) (CheckerPaths, error) {
	if len(args) != 3 {
		return CheckerPaths{}, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("checker expects 3 arguments <input> <output> <answer>, got %d", len(args)))
	}
	return CheckerPaths{Input: args[0], Output: args[1], Answer: args[2]}, nil
}

// InteractorArgs takes interactor paths from command-line arguments.
func InteractorArgs(args []string) (InteractorPaths, error) {
	if len(args) != 2 {
		return InteractorPaths{}, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("interactor expects 2 arguments <input> <answer>, got %d", len(args)))
	}
	return InteractorPaths{Input: args[0], Answer: args[1]}, nil
}

// Checker owns the three readers of a static check.
type Checker struct {
	Input  *contract.Reader
	Answer *contract.Reader
	Output *contract.Reader

	closers []io.Closer
}

// NewChecker wraps already open streams. The streams are not closed by Close.
func NewChecker(input, output, answer io.Reader) *Checker {
	return &Checker{
		Input:  contract.NewReader(input),
		Output: contract.NewReader(output),
		Answer: contract.NewReader(answer),
	}
}

// OpenChecker opens the checker files. On failure nothing is left open.
func OpenChecker(p CheckerPaths) (*Checker, error) {
	var files opened
	input, err := files.open("input", p.Input)
	if err != nil {
		return nil, err
	}
	output, err := files.open("output", p.Output)
	if err != nil {
		return nil, err
	}
	answer, err := files.open("answer", p.Answer)
	if err != nil {
		return nil, err
	}

	c := NewChecker(input, output, answer)
	c.closers = files
	logging.Logger().Debug("checker opened",
		zap.String("input", p.Input),
		zap.String("output", p.Output),
		zap.String("answer", p.Answer))
	return c, nil
}

// Close closes the files opened by OpenChecker.
func (c *Checker) Close() error {
	err := closeAll(c.closers)
	c.closers = nil
	return err
}

// Drop releases the checker when its handle is removed.
func (c *Checker) Drop() {
	if err := c.Close(); err != nil {
		logging.Logger().Warn("close checker", zap.Error(err))
	}
}

// Interactor owns the streams of an interactive check.
type Interactor struct {
	Input    *contract.Reader
	Answer   *contract.Reader
	ReadEnd  *contract.Reader
	WriteEnd *bufio.Writer

	closers []io.Closer
}

// NewInteractor wraps already open streams.
func NewInteractor(input, answer, readEnd io.Reader, writeEnd io.Writer) *Interactor {
	return &Interactor{
		Input:    contract.NewReader(input),
		Answer:   contract.NewReader(answer),
		ReadEnd:  contract.NewReader(readEnd),
		WriteEnd: bufio.NewWriter(writeEnd),
	}
}

// OpenInteractor opens the interactor files and attaches the pipe ends.
func OpenInteractor(p InteractorPaths, readEnd io.Reader, writeEnd io.Writer) (*Interactor, error) {
	var files opened
	input, err := files.open("input", p.Input)
	if err != nil {
		return nil, err
	}
	answer, err := files.open("answer", p.Answer)
	if err != nil {
		return nil, err
	}

	it := NewInteractor(input, answer, readEnd, writeEnd)
	it.closers = files
	logging.Logger().Debug("interactor opened",
		zap.String("input", p.Input),
		zap.String("answer", p.Answer))
	return it, nil
}

// Flush writes buffered output to the candidate.
func (it *Interactor) Flush() error {
	if err := it.WriteEnd.Flush(); err != nil {
		return errors.Wrap(errors.PhaseRead, errors.KindIO, err, "flush write end")
	}
	return nil
}

// Close flushes the write end and closes the files opened by OpenInteractor.
func (it *Interactor) Close() error {
	err := it.Flush()
	err = stderrors.Join(err, closeAll(it.closers))
	it.closers = nil
	return err
}

// Drop releases the interactor when its handle is removed.
func (it *Interactor) Drop() {
	if err := it.Close(); err != nil {
		logging.Logger().Warn("close interactor", zap.Error(err))
	}
}

type opened []io.Closer

func (o *opened) open(role, path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		_ = closeAll(*o)
		*o = nil
		if stderrors.Is(err, os.ErrNotExist) {
			nf := errors.NotFound(errors.PhaseConfig, role+" file", path)
			nf.Cause = err
			return nil, nf
		}
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, fmt.Sprintf("open %s file %q", role, path))
	}
	*o = append(*o, f)
	return f, nil
}

func closeAll(cs []io.Closer) error {
	var errs []error
	for _, c := range cs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
