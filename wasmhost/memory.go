package wasmhost

import (
	"bytes"
	"unicode/utf8"

	"github.com/wippyai/wave-testlib/errors"
)

// Memory is the guest linear memory as seen by host functions.
// api.Memory satisfies it.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	Size() uint32
}

// maxCString bounds the scan for a terminator so a missing NUL cannot walk
// the whole memory.
const maxCString = 1 << 20

// ReadCString reads the NUL-terminated UTF-8 string at ptr.
func ReadCString(mem Memory, ptr uint32) (string, error) {
	if mem == nil {
		return "", errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Detail("guest module has no memory").
			Build()
	}
	size := mem.Size()
	if ptr >= size {
		return "", errors.OutOfBounds(errors.PhaseHost, uint64(ptr), 1, uint64(size))
	}
	n := min(size-ptr, maxCString)
	view, ok := mem.Read(ptr, n)
	if !ok {
		return "", errors.OutOfBounds(errors.PhaseHost, uint64(ptr), uint64(n), uint64(size))
	}
	end := bytes.IndexByte(view, 0)
	if end < 0 {
		return "", errors.New(errors.PhaseHost, errors.KindOutOfBounds).
			Value(ptr).
			Detail("string at %d has no terminator within %d bytes", ptr, n).
			Build()
	}
	s := view[:end]
	if !utf8.Valid(s) {
		return "", errors.InvalidUTF8(errors.PhaseHost, s)
	}
	return string(s), nil
}

// Buffer returns a writable view of count bytes at ptr.
func Buffer(mem Memory, ptr, count uint32) ([]byte, error) {
	if count == 0 {
		return nil, nil
	}
	if mem == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Detail("guest module has no memory").
			Build()
	}
	view, ok := mem.Read(ptr, count)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseHost, uint64(ptr), uint64(count), uint64(mem.Size()))
	}
	return view, nil
}
