// Package contract layers typed extraction and verdict-producing expectations
// on a tokenized.Reader.
//
// Every Expect* operation either returns a valid value or ends the check with
// a Rejected verdict (see package verdict), so a checker reads as a straight
// sequence of expectations:
//
//	for {
//		want, ok := contract.ReadTokenAs[float64](answer)
//		if !ok {
//			break
//		}
//		output.ExpectFloatEq(want, 1e-8)
//	}
//	output.ExpectEOF()
//
// Faults from the underlying stream (I/O, invalid UTF-8) and parse failures
// outside an expectation are raised as *errors.Error panics, which the
// top-level handler reports as infrastructure failures.
package contract

import (
	"fmt"
	"io"

	"github.com/wippyai/wave-testlib/floatcmp"
	"github.com/wippyai/wave-testlib/tokenized"
	"github.com/wippyai/wave-testlib/verdict"
)

// Rejection messages.
const (
	msgUnexpectedEOF = "Unexpected EOF."
)

// Reader is a contract-enforcing reader over exactly one token stream.
type Reader struct {
	inner *tokenized.Reader
}

// New wraps a tokenized reader.
func New(inner *tokenized.Reader) *Reader {
	return &Reader{inner: inner}
}

// NewReader tokenizes r.
func NewReader(r io.Reader) *Reader {
	return New(tokenized.NewReader(r))
}

// Inner returns the underlying tokenized reader.
func (r *Reader) Inner() *tokenized.Reader {
	return r.inner
}

// ReadToken returns the next token, or false at the end of the stream.
func (r *Reader) ReadToken() (string, bool) {
	return must(r.inner.ReadToken())
}

// ReadLine returns the next line, or false at the end of the stream.
func (r *Reader) ReadLine() (string, bool) {
	return must(r.inner.ReadLine())
}

func must(s string, err error) (string, bool) {
	if err == io.EOF {
		return "", false
	}
	if err != nil {
		panic(err)
	}
	return s, true
}

// next returns the next token or rejects on end of stream.
func (r *Reader) next() string {
	tok, ok := r.ReadToken()
	if !ok {
		verdict.Reject(msgUnexpectedEOF)
	}
	return tok
}

// ExpectToken expects the next token to equal expected, comparing ASCII case
// insensitively when ignoreCase is set.
func (r *Reader) ExpectToken(expected string, ignoreCase bool) string {
	tok := r.next()
	if !floatcmp.EqualStrings(tok, expected, ignoreCase) {
		verdict.Rejectf("expect %q, found %q", expected, tok)
	}
	return tok
}

// ExpectFloatEq expects a real number within tolerance of expected. NaN never matches.
func (r *Reader) ExpectFloatEq(expected, tolerance float64) float64 {
	return ExpectValueThat(r, func(v float64) error {
		if floatcmp.Compare(v, expected, tolerance) != floatcmp.Equal {
			return fmt.Errorf("expected %q, found %q", formatFloat(expected), formatFloat(v))
		}
		return nil
	})
}

// ExpectFloatNe expects a real number that is not within tolerance of expected.
// Incomparable values (NaN) pass.
func (r *Reader) ExpectFloatNe(expected, tolerance float64) float64 {
	return ExpectValueThat(r, func(v float64) error {
		if floatcmp.Compare(v, expected, tolerance) == floatcmp.Equal {
			return fmt.Errorf("unexpected value: %q", formatFloat(v))
		}
		return nil
	})
}

// ExpectEOF expects the stream to hold no further tokens.
func (r *Reader) ExpectEOF() {
	if tok, ok := r.ReadToken(); ok {
		verdict.Rejectf("EOF expected, but found %q", tok)
	}
}

// ExpectInt64 expects a signed 64-bit integer.
func (r *Reader) ExpectInt64() int64 { return ExpectType[int64](r) }

// ExpectUint64 expects an unsigned 64-bit integer.
func (r *Reader) ExpectUint64() uint64 { return ExpectType[uint64](r) }

// ExpectFloat64 expects a real number.
func (r *Reader) ExpectFloat64() float64 { return ExpectType[float64](r) }
