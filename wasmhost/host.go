package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wave-testlib/bridge"
	"github.com/wippyai/wave-testlib/errors"
)

// ModuleName is the import module guests link against.
const ModuleName = "wave"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
	f64 = api.ValueTypeF64
)

// hostFunc is one export of the wave module.
type hostFunc struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
	fn      func(h *Host, mem Memory, stack []uint64)
}

// Host adapts a bridge to the flat guest call surface. Handles, pointers and
// sizes are i32; strings are NUL-terminated UTF-8 in guest memory.
type Host struct {
	bridge *bridge.Bridge

	// terminal is the first verdict or fault raised by a host call.
	terminal any
}

// NewHost wraps b.
func NewHost(b *bridge.Bridge) *Host {
	return &Host{bridge: b}
}

// Bridge returns the bridge behind the host functions.
func (h *Host) Bridge() *bridge.Bridge {
	return h.bridge
}

// Terminal returns the verdict or fault that ended the guest, if any.
func (h *Host) Terminal() any {
	return h.terminal
}

// Exports lists the function names of the wave module.
func Exports() []string {
	names := make([]string, len(hostFuncs))
	for i, f := range hostFuncs {
		names[i] = f.name
	}
	return names
}

// Instantiate registers the wave module in rt.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	builder := rt.NewHostModuleBuilder(ModuleName)
	for _, f := range hostFuncs {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.guard(f), f.params, f.results).
			WithName(f.name).
			Export(f.name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Registration(ModuleName, "*", err)
	}
	return mod, nil
}

// guard records the first terminal panic before letting it unwind the guest.
func (h *Host) guard(f hostFunc) api.GoModuleFunc {
	return func(_ context.Context, mod api.Module, stack []uint64) {
		defer func() {
			if r := recover(); r != nil {
				if h.terminal == nil {
					h.terminal = r
				}
				panic(r)
			}
		}()
		var mem Memory
		if m := mod.Memory(); m != nil {
			mem = m
		}
		f.fn(h, mem, stack)
	}
}

func handle(v uint64) bridge.Handle {
	return bridge.Handle(api.DecodeU32(v))
}

func cstring(mem Memory, ptr uint64) string {
	s, err := ReadCString(mem, api.DecodeU32(ptr))
	if err != nil {
		panic(err)
	}
	return s
}

func buffer(mem Memory, ptr, size uint64) []byte {
	buf, err := Buffer(mem, api.DecodeU32(ptr), api.DecodeU32(size))
	if err != nil {
		panic(err)
	}
	return buf
}

func flag(v uint64) bool {
	return api.DecodeU32(v) != 0
}

// hostFuncs is the wave export table.
var hostFuncs = []hostFunc{
	{"wave_accept", nil, nil, func(h *Host, _ Memory, _ []uint64) {
		h.bridge.Accept()
	}},
	{"wave_accept_msg", []api.ValueType{i32}, nil, func(h *Host, mem Memory, s []uint64) {
		h.bridge.AcceptMsg(cstring(mem, s[0]))
	}},
	{"wave_reject", []api.ValueType{i32}, nil, func(h *Host, mem Memory, s []uint64) {
		h.bridge.Reject(cstring(mem, s[0]))
	}},

	{"wave_checker_create", nil, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.CheckerCreate()))
	}},
	{"wave_checker_release", []api.ValueType{i32}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.CheckerRelease(handle(s[0]))
	}},
	{"wave_checker_get_input_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.CheckerInput(handle(s[0]))))
	}},
	{"wave_checker_get_std_answer_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.CheckerAnswer(handle(s[0]))))
	}},
	{"wave_checker_get_user_answer_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.CheckerOutput(handle(s[0]))))
	}},

	{"wave_interactor_create", nil, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.InteractorCreate()))
	}},
	{"wave_interactor_release", []api.ValueType{i32}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.InteractorRelease(handle(s[0]))
	}},
	{"wave_interactor_get_input_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.InteractorInput(handle(s[0]))))
	}},
	{"wave_interactor_get_answer_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.InteractorAnswer(handle(s[0]))))
	}},
	{"wave_interactor_get_read_end_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.InteractorReadEnd(handle(s[0]))))
	}},
	{"wave_interactor_get_write_end_handle", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.InteractorWriteEnd(handle(s[0]))))
	}},

	// (handle, buffer, buffer_size) -> size
	{"wave_read_token", []api.ValueType{i32, i32, i32}, []api.ValueType{i32}, func(h *Host, mem Memory, s []uint64) {
		h.readInto(mem, s, h.bridge.ReadToken)
	}},
	{"wave_read_line", []api.ValueType{i32, i32, i32}, []api.ValueType{i32}, func(h *Host, mem Memory, s []uint64) {
		h.readInto(mem, s, h.bridge.ReadLine)
	}},

	{"wave_expect_i8", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeI32(int32(h.bridge.ExpectI8(handle(s[0]))))
	}},
	{"wave_expect_u8", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.ExpectU8(handle(s[0]))))
	}},
	{"wave_expect_i16", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeI32(int32(h.bridge.ExpectI16(handle(s[0]))))
	}},
	{"wave_expect_u16", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(uint32(h.bridge.ExpectU16(handle(s[0]))))
	}},
	{"wave_expect_i32", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeI32(h.bridge.ExpectI32(handle(s[0])))
	}},
	{"wave_expect_u32", []api.ValueType{i32}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeU32(h.bridge.ExpectU32(handle(s[0])))
	}},
	{"wave_expect_i64", []api.ValueType{i32}, []api.ValueType{i64}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeI64(h.bridge.ExpectI64(handle(s[0])))
	}},
	{"wave_expect_u64", []api.ValueType{i32}, []api.ValueType{i64}, func(h *Host, _ Memory, s []uint64) {
		s[0] = h.bridge.ExpectU64(handle(s[0]))
	}},

	// (handle, expected, ignore_case)
	{"wave_expect_token", []api.ValueType{i32, i32, i32}, nil, func(h *Host, mem Memory, s []uint64) {
		h.bridge.ExpectToken(handle(s[0]), cstring(mem, s[1]), flag(s[2]))
	}},
	{"wave_expect_signed", []api.ValueType{i32, i64}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.ExpectSigned(handle(s[0]), int64(s[1]))
	}},
	{"wave_expect_unsigned", []api.ValueType{i32, i64}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.ExpectUnsigned(handle(s[0]), s[1])
	}},
	{"wave_expect_fp", []api.ValueType{i32, f64, f64}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.ExpectFloat(handle(s[0]), api.DecodeF64(s[1]), api.DecodeF64(s[2]))
	}},
	{"wave_expect_fp_ne", []api.ValueType{i32, f64, f64}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.ExpectFloatNe(handle(s[0]), api.DecodeF64(s[1]), api.DecodeF64(s[2]))
	}},
	{"wave_expect_eof", []api.ValueType{i32}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.ExpectEOF(handle(s[0]))
	}},

	{"wave_cmp_fp", []api.ValueType{f64, f64, f64}, []api.ValueType{i32}, func(h *Host, _ Memory, s []uint64) {
		s[0] = api.EncodeI32(h.bridge.CompareFloat(api.DecodeF64(s[0]), api.DecodeF64(s[1]), api.DecodeF64(s[2])))
	}},
	{"wave_cmp_str", []api.ValueType{i32, i32}, []api.ValueType{i32}, func(h *Host, mem Memory, s []uint64) {
		s[0] = api.EncodeI32(h.bridge.CompareStrings(cstring(mem, s[0]), cstring(mem, s[1])))
	}},
	// (actual, expected, ignore_case) -> 0|1
	{"wave_cmp_str_eq", []api.ValueType{i32, i32, i32}, []api.ValueType{i32}, func(h *Host, mem Memory, s []uint64) {
		s[0] = api.EncodeI32(h.bridge.EqualStrings(cstring(mem, s[0]), cstring(mem, s[1]), flag(s[2])))
	}},

	// (handle, data, length) -> written
	{"wave_write", []api.ValueType{i32, i32, i32}, []api.ValueType{i32}, func(h *Host, mem Memory, s []uint64) {
		s[0] = api.EncodeU32(h.bridge.Write(handle(s[0]), buffer(mem, s[1], s[2])))
	}},
	{"wave_flush", []api.ValueType{i32}, nil, func(h *Host, _ Memory, s []uint64) {
		h.bridge.Flush(handle(s[0]))
	}},
}

func (h *Host) readInto(mem Memory, s []uint64, read func(bridge.Handle, []byte) uint32) {
	buf := buffer(mem, s[1], s[2])
	s[0] = api.EncodeU32(read(handle(s[0]), buf))
}
