package wasmhost

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Value type bytes.
const (
	vtI32 byte = 0x7f
	vtI64 byte = 0x7e
	vtF64 byte = 0x7c
)

// guest assembles a minimal core module: imported functions, one page of
// memory with optional data at offset 0, and a _start function.
type guest struct {
	imports []guestImport
	locals  uint32 // i32 locals of _start
	data    []byte
	code    []byte
}

type guestImport struct {
	module  string
	name    string
	params  []byte
	results []byte
}

func (g *guest) importWave(name string, params, results []byte) *guest {
	return g.importFunc(ModuleName, name, params, results)
}

func (g *guest) importFunc(module, name string, params, results []byte) *guest {
	g.imports = append(g.imports, guestImport{module: module, name: name, params: params, results: results})
	return g
}

// call emits a call to the named import.
func (g *guest) call(name string) []byte {
	for i, imp := range g.imports {
		if imp.name == name {
			return append([]byte{0x10}, uleb(uint64(i))...)
		}
	}
	panic("guest: no import " + name)
}

func (g *guest) emit(instrs ...[]byte) *guest {
	for _, in := range instrs {
		g.code = append(g.code, in...)
	}
	return g
}

func i32c(v int32) []byte { return append([]byte{0x41}, sleb(int64(v))...) }
func i64c(v int64) []byte { return append([]byte{0x42}, sleb(v)...) }

func f64c(v float64) []byte {
	b := make([]byte, 9)
	b[0] = 0x44
	binary.LittleEndian.PutUint64(b[1:], math.Float64bits(v))
	return b
}

func localGet(i uint32) []byte { return append([]byte{0x20}, uleb(uint64(i))...) }
func localSet(i uint32) []byte { return append([]byte{0x21}, uleb(uint64(i))...) }

var (
	drop        = []byte{0x1a}
	unreachable = []byte{0x00}
)

func ifElse(then, els []byte) []byte {
	out := []byte{0x04, 0x40}
	out = append(out, then...)
	out = append(out, 0x05)
	out = append(out, els...)
	return append(out, 0x0b)
}

func (g *guest) encode() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00})

	startIdx := uint64(len(g.imports))

	var types bytes.Buffer
	types.Write(uleb(startIdx + 1))
	for _, imp := range g.imports {
		types.WriteByte(0x60)
		types.Write(vec(imp.params))
		types.Write(vec(imp.results))
	}
	types.Write([]byte{0x60, 0x00, 0x00})
	section(&out, 1, types.Bytes())

	if len(g.imports) > 0 {
		var imps bytes.Buffer
		imps.Write(uleb(uint64(len(g.imports))))
		for i, imp := range g.imports {
			imps.Write(vec([]byte(imp.module)))
			imps.Write(vec([]byte(imp.name)))
			imps.WriteByte(0x00)
			imps.Write(uleb(uint64(i)))
		}
		section(&out, 2, imps.Bytes())
	}

	section(&out, 3, append([]byte{0x01}, uleb(startIdx)...))
	section(&out, 5, []byte{0x01, 0x00, 0x01})

	var exports bytes.Buffer
	exports.WriteByte(0x02)
	exports.Write(vec([]byte("_start")))
	exports.WriteByte(0x00)
	exports.Write(uleb(startIdx))
	exports.Write(vec([]byte("memory")))
	exports.Write([]byte{0x02, 0x00})
	section(&out, 7, exports.Bytes())

	var body bytes.Buffer
	if g.locals > 0 {
		body.WriteByte(0x01)
		body.Write(uleb(uint64(g.locals)))
		body.WriteByte(vtI32)
	} else {
		body.WriteByte(0x00)
	}
	body.Write(g.code)
	body.WriteByte(0x0b)
	var code bytes.Buffer
	code.WriteByte(0x01)
	code.Write(vec(body.Bytes()))
	section(&out, 10, code.Bytes())

	if len(g.data) > 0 {
		var data bytes.Buffer
		data.Write([]byte{0x01, 0x00, 0x41, 0x00, 0x0b})
		data.Write(vec(g.data))
		section(&out, 11, data.Bytes())
	}

	return out.Bytes()
}

func section(out *bytes.Buffer, id byte, content []byte) {
	out.WriteByte(id)
	out.Write(vec(content))
}

func vec(b []byte) []byte {
	return append(uleb(uint64(len(b))), b...)
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

// cstrings lays out NUL-terminated strings at fixed 16-byte slots and
// returns the data segment.
func cstrings(ss ...string) []byte {
	out := make([]byte, 16*len(ss))
	for i, s := range ss {
		copy(out[16*i:], s)
	}
	return out
}
