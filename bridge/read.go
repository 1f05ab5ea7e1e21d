package bridge

import (
	"github.com/wippyai/wave-testlib/contract"
	"github.com/wippyai/wave-testlib/resource"
	"github.com/wippyai/wave-testlib/verdict"
)

// ReadToken delivers the next token of a reader handle into buf.
//
// It returns 0 when the stream holds no more tokens. A result greater than
// len(buf) is the size required for the token plus its NUL terminator; the
// token stays pending and the next call on the same handle delivers it
// without reading further. Otherwise the token and a NUL byte are copied to
// buf and the number of bytes written is returned.
func (b *Bridge) ReadToken(h Handle, buf []byte) uint32 {
	return b.deliver(h, buf, (*contract.Reader).ReadToken)
}

// ReadLine is ReadToken for lines. Token and line reads on one handle share
// its pending value.
func (b *Bridge) ReadLine(h Handle, buf []byte) uint32 {
	return b.deliver(h, buf, (*contract.Reader).ReadLine)
}

func (b *Bridge) deliver(h Handle, buf []byte, read func(*contract.Reader) (string, bool)) uint32 {
	r := b.reader(h)

	b.mu.Lock()
	v, ok := b.pending[h]
	b.mu.Unlock()

	if !ok {
		if v, ok = read(r); !ok {
			return 0
		}
	}

	need := len(v) + 1
	if need > len(buf) {
		b.mu.Lock()
		b.pending[h] = v
		b.mu.Unlock()
		return uint32(need)
	}

	copy(buf, v)
	buf[len(v)] = 0

	b.mu.Lock()
	delete(b.pending, h)
	b.mu.Unlock()
	return uint32(need)
}

// Pending reports whether a value is waiting on h for a larger buffer.
func (b *Bridge) Pending(h Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pending[h]
	return ok
}

func (b *Bridge) reader(h Handle) *contract.Reader {
	return lookup[*contract.Reader](b, h, resource.TypeReader)
}

// Typed expects. Each rejects unless the next token parses at that width.

func (b *Bridge) ExpectI8(h Handle) int8 { return contract.ExpectType[int8](b.reader(h)) }
func (b *Bridge) ExpectU8(h Handle) uint8 { return contract.ExpectType[uint8](b.reader(h)) }
func (b *Bridge) ExpectI16(h Handle) int16 { return contract.ExpectType[int16](b.reader(h)) }
func (b *Bridge) ExpectU16(h Handle) uint16 { return contract.ExpectType[uint16](b.reader(h)) }
func (b *Bridge) ExpectI32(h Handle) int32 { return contract.ExpectType[int32](b.reader(h)) }
func (b *Bridge) ExpectU32(h Handle) uint32 { return contract.ExpectType[uint32](b.reader(h)) }
func (b *Bridge) ExpectI64(h Handle) int64 { return contract.ExpectType[int64](b.reader(h)) }
func (b *Bridge) ExpectU64(h Handle) uint64 { return contract.ExpectType[uint64](b.reader(h)) }

// ExpectToken expects the next token to equal expected.
func (b *Bridge) ExpectToken(h Handle, expected string, ignoreCase bool) {
	b.reader(h).ExpectToken(expected, ignoreCase)
}

// ExpectSigned expects the next token to be the integer expected.
func (b *Bridge) ExpectSigned(h Handle, expected int64) {
	contract.ExpectEq(b.reader(h), expected)
}

// ExpectUnsigned expects the next token to be the unsigned integer expected.
func (b *Bridge) ExpectUnsigned(h Handle, expected uint64) {
	contract.ExpectEq(b.reader(h), expected)
}

// ExpectFloat expects a real number within tolerance of expected.
func (b *Bridge) ExpectFloat(h Handle, expected, tolerance float64) {
	b.reader(h).ExpectFloatEq(expected, tolerance)
}

// ExpectFloatNe expects a real number not within tolerance of expected.
func (b *Bridge) ExpectFloatNe(h Handle, expected, tolerance float64) {
	b.reader(h).ExpectFloatNe(expected, tolerance)
}

// ExpectEOF expects the reader to be exhausted.
func (b *Bridge) ExpectEOF(h Handle) {
	b.reader(h).ExpectEOF()
}

// Accept ends the check as Accepted.
func (b *Bridge) Accept() {
	verdict.Accept()
}

// AcceptMsg ends the check as Accepted with a message.
func (b *Bridge) AcceptMsg(msg string) {
	verdict.Accept(msg)
}

// Reject ends the check as Rejected.
func (b *Bridge) Reject(msg string) {
	verdict.Reject(msg)
}
