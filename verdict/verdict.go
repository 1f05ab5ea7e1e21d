// Package verdict defines the judged outcome of a check and the single place
// where it turns into process termination.
//
// Accept and Reject never return: they raise the verdict as a panic that
// unwinds to the top-level handler installed by Run, which writes the
// diagnostic line and exits. Catch intercepts the same panic for tests and for
// hosts that embed checkers.
package verdict

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/internal/logging"
)

// Process exit codes. Any code other than ExitAccepted and ExitRejected means
// the judging infrastructure failed, not the candidate.
const (
	ExitAccepted = 0
	ExitRejected = 255
	ExitFault    = 2
)

// Diagnostic prefixes scraped by judge infrastructure.
const (
	PrefixAccepted    = "Accepted."
	PrefixAcceptedMsg = "Accepted: "
	PrefixRejected    = "Rejected: "
	PrefixFault       = "Fault: "
)

// Outcome is Accepted or Rejected.
type Outcome uint8

const (
	Accepted Outcome = iota
	Rejected
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "rejected"
}

// Verdict is a final judged outcome. It is an error so it can travel through
// call chains that only speak error, such as a wasm guest call.
type Verdict struct {
	Message    string
	Outcome    Outcome
	HasMessage bool
}

func (v *Verdict) Error() string {
	return v.Line()
}

// Line is the diagnostic line written for v.
func (v *Verdict) Line() string {
	switch {
	case v.Outcome == Rejected:
		return PrefixRejected + v.Message
	case v.HasMessage:
		return PrefixAcceptedMsg + v.Message
	default:
		return PrefixAccepted
	}
}

// ExitCode is the process status for v.
func (v *Verdict) ExitCode() int {
	if v.Outcome == Accepted {
		return ExitAccepted
	}
	return ExitRejected
}

// Accept ends the check with an Accepted verdict. At most the first message is used.
func Accept(msg ...string) {
	v := &Verdict{Outcome: Accepted}
	if len(msg) > 0 {
		v.Message = msg[0]
		v.HasMessage = true
	}
	panic(v)
}

// Acceptf is Accept with a formatted message.
func Acceptf(format string, args ...any) {
	Accept(fmt.Sprintf(format, args...))
}

// Reject ends the check with a Rejected verdict.
func Reject(msg string) {
	panic(&Verdict{Outcome: Rejected, Message: msg, HasMessage: true})
}

// Rejectf is Reject with a formatted message.
func Rejectf(format string, args ...any) {
	Reject(fmt.Sprintf(format, args...))
}

// Reporter writes diagnostics and terminates the process.
type Reporter struct {
	Diag io.Writer
	Exit func(code int)
}

// DefaultReporter writes to stderr and calls os.Exit.
func DefaultReporter() *Reporter {
	return &Reporter{Diag: os.Stderr, Exit: os.Exit}
}

// Report writes the verdict line and exits with the verdict's code.
func (r *Reporter) Report(v *Verdict) {
	fmt.Fprintln(r.Diag, v.Line())
	logging.Logger().Debug("verdict reported", zap.Stringer("outcome", v.Outcome))
	r.Exit(v.ExitCode())
}

// Fault writes an infrastructure failure and exits with ExitFault.
func (r *Reporter) Fault(err error) {
	fmt.Fprintln(r.Diag, PrefixFault+err.Error())
	logging.Logger().Debug("checker fault", zap.Error(err))
	r.Exit(ExitFault)
}

// Finish reports the outcome classified from err. A nil err is an implicit
// Accepted verdict.
func (r *Reporter) Finish(err error) {
	if err == nil {
		r.Report(&Verdict{Outcome: Accepted})
		return
	}
	if v, ok := Classify(err); ok {
		r.Report(v)
		return
	}
	r.Fault(err)
}

// Run executes fn under the top-level handler. Verdicts and faults raised by
// fn are reported through r. Returning normally from fn counts as Accepted.
// Panics that are neither verdicts nor errors are re-raised.
func Run(r *Reporter, fn func()) {
	v, fault := Catch(fn)
	switch {
	case fault != nil:
		r.Fault(fault)
	case v != nil:
		r.Report(v)
	default:
		r.Report(&Verdict{Outcome: Accepted})
	}
}

// Catch runs fn and returns the verdict or fault it raised. Both are nil if
// fn returned normally.
func Catch(fn func()) (v *Verdict, fault error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		switch x := rec.(type) {
		case *Verdict:
			v = x
		case error:
			fault = x
		default:
			panic(rec)
		}
	}()
	fn()
	return nil, nil
}

// Classify extracts a verdict from err, looking through wrapping.
func Classify(err error) (*Verdict, bool) {
	var v *Verdict
	if stderrors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// IsFault reports whether err carries a library fault.
func IsFault(err error) bool {
	var fault *errors.Error
	return stderrors.As(err, &fault)
}
