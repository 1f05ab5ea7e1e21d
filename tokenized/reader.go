// Package tokenized splits a byte stream into whitespace-separated tokens and
// lines without loading the stream into memory.
//
// A token is a maximal run of bytes other than space, '\t', '\r' and '\n'.
// A line is a maximal run of bytes other than '\r' and '\n'. Both are read by
// the same skip-then-collect routine: leading delimiter bytes are skipped, then
// bytes are collected until the next delimiter (which is consumed) or the end
// of the stream. For lines this means blank lines and the line break left
// behind by a previous token read are swallowed.
//
// End of stream is reported as io.EOF and is the normal way a read loop ends.
// Any other I/O error, or a token that is not valid UTF-8, is returned as an
// *errors.Error fault.
package tokenized

import (
	"bufio"
	stderrors "errors"
	"io"
	"iter"
	"unicode/utf8"

	"github.com/wippyai/wave-testlib/errors"
)

// Delimiter sets.
var (
	Whitespace = delimiters(" \t\r\n")
	LineBreak  = delimiters("\r\n")
)

// DelimiterSet is a byte membership table.
type DelimiterSet [256]bool

func delimiters(s string) *DelimiterSet {
	var set DelimiterSet
	for i := 0; i < len(s); i++ {
		set[s[i]] = true
	}
	return &set
}

// Contains reports whether c is in the set.
func (d *DelimiterSet) Contains(c byte) bool {
	return d[c]
}

// Reader tokenizes an underlying byte source.
type Reader struct {
	src *bufio.Reader
	buf []byte
}

// NewReader wraps r. If r is already a *bufio.Reader it is used directly.
func NewReader(r io.Reader) *Reader {
	src, ok := r.(*bufio.Reader)
	if !ok {
		src = bufio.NewReader(r)
	}
	return &Reader{src: src}
}

// ReadToken returns the next whitespace-delimited token, or io.EOF when no
// token remains.
func (r *Reader) ReadToken() (string, error) {
	return r.ReadUntil(Whitespace)
}

// ReadLine returns the next non-empty line without its line break, or io.EOF
// when the stream is exhausted.
func (r *Reader) ReadLine() (string, error) {
	return r.ReadUntil(LineBreak)
}

// ReadUntil skips leading bytes in delims, then collects bytes until the next
// byte in delims or the end of the stream. The terminating delimiter is
// consumed. io.EOF is returned only if the stream ends before any byte is
// collected.
func (r *Reader) ReadUntil(delims *DelimiterSet) (string, error) {
	var c byte
	for {
		b, err := r.readByte()
		if err != nil {
			return "", err
		}
		if !delims.Contains(b) {
			c = b
			break
		}
	}

	r.buf = r.buf[:0]
	for {
		r.buf = append(r.buf, c)
		b, err := r.readByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if delims.Contains(b) {
			break
		}
		c = b
	}

	if !utf8.Valid(r.buf) {
		return "", errors.InvalidUTF8(errors.PhaseRead, r.buf)
	}
	return string(r.buf), nil
}

func (r *Reader) readByte() (byte, error) {
	b, err := r.src.ReadByte()
	if err == nil {
		return b, nil
	}
	if stderrors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	return 0, errors.IO(err)
}

// Source returns the buffered byte source for callers that need raw access.
// Bytes read from it are not seen by the tokenizer.
func (r *Reader) Source() *bufio.Reader {
	return r.src
}

// Tokens iterates over the remaining tokens. A fault ends the iteration with a panic.
func (r *Reader) Tokens() iter.Seq[string] {
	return r.all(r.ReadToken)
}

// Lines iterates over the remaining lines. A fault ends the iteration with a panic.
func (r *Reader) Lines() iter.Seq[string] {
	return r.all(r.ReadLine)
}

func (r *Reader) all(next func() (string, error)) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			s, err := next()
			if err == io.EOF {
				return
			}
			if err != nil {
				panic(err)
			}
			if !yield(s) {
				return
			}
		}
	}
}
