// Package errors provides structured fault types for wave-testlib.
//
// A fault is an infrastructure failure: unreadable input, invalid UTF-8, a
// token that does not parse outside an expectation, a NaN tolerance, or a
// misused bridge handle. Faults are deliberately distinct from verdicts so a
// judge can tell "candidate wrong" apart from "checker broken".
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
//
//	err := errors.New(errors.PhaseParse, errors.KindParse).
//		Target("u8").
//		Detail("token %q out of range", tok).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidHandle(h, "reader")
//	err := errors.IO(cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
