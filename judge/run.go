package judge

import (
	"io"
	"os"

	"github.com/wippyai/wave-testlib/verdict"
)

// RunChecker builds a checker from os.Args and runs fn under the default
// reporter. It does not return.
func RunChecker(fn func(c *Checker)) {
	RunCheckerWith(verdict.DefaultReporter(), os.Args[1:], fn)
}

// RunCheckerWith is RunChecker with an explicit reporter and arguments.
func RunCheckerWith(r *verdict.Reporter, args []string, fn func(c *Checker)) {
	paths, err := CheckerArgs(args)
	if err != nil {
		r.Fault(err)
		return
	}
	c, err := OpenChecker(paths)
	if err != nil {
		r.Fault(err)
		return
	}
	verdict.Run(r, func() {
		defer c.Drop()
		fn(c)
	})
}

// RunInteractor builds an interactor from os.Args, reading the candidate from
// stdin and writing to stdout, and runs fn under the default reporter.
func RunInteractor(fn func(it *Interactor)) {
	RunInteractorWith(verdict.DefaultReporter(), os.Args[1:], os.Stdin, os.Stdout, fn)
}

// RunInteractorWith is RunInteractor with explicit reporter, arguments and pipe ends.
func RunInteractorWith(r *verdict.Reporter, args []string, readEnd io.Reader, writeEnd io.Writer, fn func(it *Interactor)) {
	paths, err := InteractorArgs(args)
	if err != nil {
		r.Fault(err)
		return
	}
	it, err := OpenInteractor(paths, readEnd, writeEnd)
	if err != nil {
		r.Fault(err)
		return
	}
	verdict.Run(r, func() {
		defer it.Drop()
		fn(it)
		if err := it.Flush(); err != nil {
			panic(err)
		}
	})
}
