package bridge

import (
	"bytes"
	stderrors "errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/floatcmp"
	"github.com/wippyai/wave-testlib/internal/logging"
	"github.com/wippyai/wave-testlib/judge"
	"github.com/wippyai/wave-testlib/verdict"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func checkerBridge(input, output, answer string) *Bridge {
	return New(Config{
		OpenChecker: func() (*judge.Checker, error) {
			return judge.NewChecker(strings.NewReader(input), strings.NewReader(output), strings.NewReader(answer)), nil
		},
	})
}

func fault(t *testing.T, fn func()) *errors.Error {
	t.Helper()
	v, err := verdict.Catch(fn)
	require.Nil(t, v, "expected a fault, got verdict %v", v)
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e), "fault %v is not *errors.Error", err)
	return e
}

func outcome(t *testing.T, fn func()) *verdict.Verdict {
	t.Helper()
	v, err := verdict.Catch(fn)
	require.NoError(t, err)
	return v
}

func TestReadToken_TwoPhase(t *testing.T) {
	b := checkerBridge("", "hello world", "")
	defer b.Close()
	out := b.CheckerOutput(b.CheckerCreate())

	small := make([]byte, 3)
	n := b.ReadToken(out, small)
	assert.Equal(t, uint32(6), n, "required size counts the terminator")
	assert.True(t, b.Pending(out))
	assert.Equal(t, []byte{0, 0, 0}, small, "undersized buffer is left untouched")

	// Asking again must not advance the cursor.
	assert.Equal(t, uint32(6), b.ReadToken(out, small))

	buf := make([]byte, 6)
	n = b.ReadToken(out, buf)
	assert.Equal(t, uint32(6), n)
	assert.Equal(t, "hello\x00", string(buf))
	assert.False(t, b.Pending(out))

	buf = make([]byte, 64)
	n = b.ReadToken(out, buf)
	assert.Equal(t, "world", string(buf[:n-1]))
	assert.Equal(t, byte(0), buf[n-1])

	assert.Equal(t, uint32(0), b.ReadToken(out, buf))
	assert.Equal(t, uint32(0), b.ReadToken(out, nil))
}

func TestReadToken_EmptyBuffer(t *testing.T) {
	b := checkerBridge("", "x", "")
	defer b.Close()
	out := b.CheckerOutput(b.CheckerCreate())

	assert.Equal(t, uint32(2), b.ReadToken(out, nil))
	buf := make([]byte, 2)
	assert.Equal(t, uint32(2), b.ReadToken(out, buf))
	assert.Equal(t, "x\x00", string(buf))
}

func TestReadLine_TwoPhase(t *testing.T) {
	b := checkerBridge("The quick brown fox\nThe lazy dog\n", "", "")
	defer b.Close()
	in := b.CheckerInput(b.CheckerCreate())

	n := b.ReadLine(in, make([]byte, 4))
	require.Equal(t, uint32(len("The quick brown fox")+1), n)

	buf := make([]byte, n)
	b.ReadLine(in, buf)
	assert.Equal(t, "The quick brown fox\x00", string(buf))

	tok := make([]byte, 16)
	n = b.ReadToken(in, tok)
	assert.Equal(t, "The", string(tok[:n-1]))

	line := make([]byte, 64)
	n = b.ReadLine(in, line)
	assert.Equal(t, "lazy dog", string(line[:n-1]))

	assert.Equal(t, uint32(0), b.ReadLine(in, line))
}

func TestPending_IsPerHandle(t *testing.T) {
	b := checkerBridge("input-token", "output-token", "answer-token")
	defer b.Close()
	c := b.CheckerCreate()
	in, out, ans := b.CheckerInput(c), b.CheckerOutput(c), b.CheckerAnswer(c)

	// Leave a value pending on every handle, then drain them in another order.
	small := make([]byte, 1)
	for _, h := range []Handle{in, out, ans} {
		require.Greater(t, b.ReadToken(h, small), uint32(len(small)))
	}

	for h, want := range map[Handle]string{ans: "answer-token", in: "input-token", out: "output-token"} {
		buf := make([]byte, 32)
		n := b.ReadToken(h, buf)
		assert.Equal(t, want, string(buf[:n-1]))
	}
}

func TestPending_SharedBetweenTokenAndLine(t *testing.T) {
	b := checkerBridge("", "a b\nc", "")
	defer b.Close()
	out := b.CheckerOutput(b.CheckerCreate())

	require.Equal(t, uint32(4), b.ReadLine(out, nil))

	buf := make([]byte, 8)
	n := b.ReadToken(out, buf)
	assert.Equal(t, "a b", string(buf[:n-1]), "the pending line is delivered first")

	n = b.ReadToken(out, buf)
	assert.Equal(t, "c", string(buf[:n-1]))
}

func TestSubHandles(t *testing.T) {
	b := checkerBridge("", "", "")
	defer b.Close()
	c := b.CheckerCreate()

	in := b.CheckerInput(c)
	assert.Equal(t, in, b.CheckerInput(c), "accessor returns the same sub-handle")
	assert.NotEqual(t, in, b.CheckerAnswer(c))
	assert.NotEqual(t, b.CheckerAnswer(c), b.CheckerOutput(c))
	assert.Equal(t, 4, b.Live())

	e := fault(t, func() { b.CheckerRelease(in) })
	assert.Equal(t, errors.KindTypeMismatch, e.Kind)

	e = fault(t, func() { b.CheckerInput(in) })
	assert.Equal(t, errors.KindTypeMismatch, e.Kind)

	b.CheckerRelease(c)
	assert.Equal(t, 0, b.Live())

	e = fault(t, func() { b.ReadToken(in, make([]byte, 8)) })
	assert.Equal(t, errors.KindInvalidHandle, e.Kind)
	assert.Equal(t, uint32(in), e.Handle)

	e = fault(t, func() { b.CheckerRelease(c) })
	assert.Equal(t, errors.KindInvalidHandle, e.Kind)
}

func TestRelease_DoesNotCorruptOthers(t *testing.T) {
	b := New(Config{
		OpenChecker: func() (*judge.Checker, error) {
			return judge.NewChecker(strings.NewReader(""), strings.NewReader("one two"), strings.NewReader("")), nil
		},
	})
	defer b.Close()

	first := b.CheckerCreate()
	firstOut := b.CheckerOutput(first)
	second := b.CheckerCreate()
	secondOut := b.CheckerOutput(second)

	require.Greater(t, b.ReadToken(firstOut, nil), uint32(0))
	require.Greater(t, b.ReadToken(secondOut, nil), uint32(0))
	b.CheckerRelease(first)
	assert.False(t, b.Pending(firstOut), "release clears the pending value")

	// Handles are not reused, so the stale ones keep failing.
	third := b.CheckerCreate()
	assert.NotEqual(t, first, third)
	assert.NotEqual(t, firstOut, b.CheckerOutput(third))
	fault(t, func() { b.ReadToken(firstOut, make([]byte, 8)) })

	buf := make([]byte, 8)
	n := b.ReadToken(secondOut, buf)
	assert.Equal(t, "one", string(buf[:n-1]))
	n = b.ReadToken(secondOut, buf)
	assert.Equal(t, "two", string(buf[:n-1]))
}

func TestExpects(t *testing.T) {
	b := checkerBridge("", "-128 255 -32768 65535 -2147483648 4294967295 -9223372036854775808 18446744073709551615", "")
	defer b.Close()
	out := b.CheckerOutput(b.CheckerCreate())

	assert.Nil(t, outcome(t, func() {
		assert.Equal(t, int8(math.MinInt8), b.ExpectI8(out))
		assert.Equal(t, uint8(math.MaxUint8), b.ExpectU8(out))
		assert.Equal(t, int16(math.MinInt16), b.ExpectI16(out))
		assert.Equal(t, uint16(math.MaxUint16), b.ExpectU16(out))
		assert.Equal(t, int32(math.MinInt32), b.ExpectI32(out))
		assert.Equal(t, uint32(math.MaxUint32), b.ExpectU32(out))
		assert.Equal(t, int64(math.MinInt64), b.ExpectI64(out))
		assert.Equal(t, uint64(math.MaxUint64), b.ExpectU64(out))
		b.ExpectEOF(out)
	}))
}

func TestExpects_Reject(t *testing.T) {
	tests := []struct {
		name   string
		output string
		fn     func(b *Bridge, h Handle)
		msg    string
	}{
		{"i8 overflow", "128", func(b *Bridge, h Handle) { b.ExpectI8(h) }, `Unexpected token: "128"`},
		{"u32 negative", "-1", func(b *Bridge, h Handle) { b.ExpectU32(h) }, `Unexpected token: "-1"`},
		{"eof", "", func(b *Bridge, h Handle) { b.ExpectI64(h) }, "Unexpected EOF."},
		{"token", "no", func(b *Bridge, h Handle) { b.ExpectToken(h, "yes", true) }, `expect "yes", found "no"`},
		{"signed", "-5", func(b *Bridge, h Handle) { b.ExpectSigned(h, 5) }, `Unexpected value: "-5": expected value: "5"`},
		{"unsigned", "6", func(b *Bridge, h Handle) { b.ExpectUnsigned(h, 5) }, `Unexpected value: "6": expected value: "5"`},
		{"float", "1.1", func(b *Bridge, h Handle) { b.ExpectFloat(h, 1, 1e-6) }, `Unexpected value: "1.1": expected "1", found "1.1"`},
		{"float ne", "1", func(b *Bridge, h Handle) { b.ExpectFloatNe(h, 1, 1e-6) }, `Unexpected value: "1": unexpected value: "1"`},
		{"trailing", "x", func(b *Bridge, h Handle) { b.ExpectEOF(h) }, `EOF expected, but found "x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := checkerBridge("", tt.output, "")
			defer b.Close()
			out := b.CheckerOutput(b.CheckerCreate())

			v := outcome(t, func() { tt.fn(b, out) })
			require.NotNil(t, v)
			assert.Equal(t, verdict.Rejected, v.Outcome)
			assert.Equal(t, tt.msg, v.Message)
		})
	}
}

func TestExpects_Pass(t *testing.T) {
	b := checkerBridge("", "YES 42 7 1.0000005 2", "")
	defer b.Close()
	out := b.CheckerOutput(b.CheckerCreate())

	assert.Nil(t, outcome(t, func() {
		b.ExpectToken(out, "yes", true)
		b.ExpectSigned(out, 42)
		b.ExpectUnsigned(out, 7)
		b.ExpectFloat(out, 1.0, 1e-6)
		b.ExpectFloatNe(out, 1.0, 1e-6)
		b.ExpectEOF(out)
	}))
}

func TestVerdicts(t *testing.T) {
	b := New(Config{})
	defer b.Close()

	v := outcome(t, b.Accept)
	assert.Equal(t, "Accepted.", v.Line())

	v = outcome(t, func() { b.AcceptMsg("ok") })
	assert.Equal(t, "Accepted: ok", v.Line())

	v = outcome(t, func() { b.Reject("bad") })
	assert.Equal(t, "Rejected: bad", v.Line())
}

func TestComparators(t *testing.T) {
	b := New(Config{})
	defer b.Close()

	assert.Equal(t, int32(-1), b.CompareFloat(1, 2, 0))
	assert.Equal(t, int32(0), b.CompareFloat(1.0000005, 1, 1e-6))
	assert.Equal(t, int32(1), b.CompareFloat(math.Inf(1), math.Inf(-1), 1))
	assert.Equal(t, floatcmp.CodeIncomparable, b.CompareFloat(math.NaN(), 0, 1))
	assert.Equal(t, int32(math.MaxInt32), b.CompareFloat(0, math.NaN(), 1))

	assert.Equal(t, int32(-1), b.CompareStrings("abc", "abd"))
	assert.Equal(t, int32(0), b.CompareStrings("abc", "abc"))
	assert.Equal(t, int32(1), b.CompareStrings("b", "abc"))

	assert.Equal(t, int32(1), b.EqualStrings("Hello", "hELLO", true))
	assert.Equal(t, int32(0), b.EqualStrings("Hello", "hELLO", false))

	e := fault(t, func() { b.CompareFloat(1, 1, math.NaN()) })
	assert.Equal(t, errors.KindNaNTolerance, e.Kind)
}

func TestInteractor(t *testing.T) {
	var toCandidate bytes.Buffer
	b := New(Config{
		OpenInteractor: func() (*judge.Interactor, error) {
			return judge.NewInteractor(strings.NewReader("3"), strings.NewReader("9"), strings.NewReader("9\n"), &toCandidate), nil
		},
	})
	defer b.Close()

	it := b.InteractorCreate()
	in, ans := b.InteractorInput(it), b.InteractorAnswer(it)
	rd, wr := b.InteractorReadEnd(it), b.InteractorWriteEnd(it)

	assert.Nil(t, outcome(t, func() {
		n := b.ExpectI32(in)
		assert.Equal(t, uint32(2), b.Write(wr, []byte("3\n")))
		assert.Empty(t, toCandidate.String())
		b.Flush(wr)
		assert.Equal(t, "3\n", toCandidate.String())
		b.ExpectSigned(rd, int64(n*n))
		b.ExpectSigned(ans, 9)
	}))

	// The write end is not a reader and a reader is not a write end.
	e := fault(t, func() { b.ReadToken(wr, nil) })
	assert.Equal(t, errors.KindTypeMismatch, e.Kind)
	e = fault(t, func() { b.Write(rd, []byte("x")) })
	assert.Equal(t, errors.KindTypeMismatch, e.Kind)
	e = fault(t, func() { b.CheckerRelease(it) })
	assert.Equal(t, errors.KindTypeMismatch, e.Kind)

	b.Write(wr, []byte("bye\n"))
	b.InteractorRelease(it)
	assert.Equal(t, "3\nbye\n", toCandidate.String(), "release flushes the write end")
	assert.Equal(t, 0, b.Live())
}

func TestCreate_Faults(t *testing.T) {
	b := New(Config{})
	e := fault(t, func() { b.CheckerCreate() })
	assert.Equal(t, errors.KindInvalidInput, e.Kind)
	e = fault(t, func() { b.InteractorCreate() })
	assert.Equal(t, errors.KindInvalidInput, e.Kind)
	require.NoError(t, b.Close())

	b = New(Config{
		OpenChecker: func() (*judge.Checker, error) {
			return judge.OpenChecker(judge.CheckerPaths{Input: "/nonexistent/input"})
		},
	})
	e = fault(t, func() { b.CheckerCreate() })
	assert.Equal(t, errors.KindNotFound, e.Kind)
	assert.Equal(t, 0, b.Live())
	require.NoError(t, b.Close())
}

func TestClose_ReleasesEverything(t *testing.T) {
	var toCandidate bytes.Buffer
	b := New(Config{
		OpenInteractor: func() (*judge.Interactor, error) {
			return judge.NewInteractor(strings.NewReader(""), strings.NewReader(""), strings.NewReader(""), &toCandidate), nil
		},
	})
	it := b.InteractorCreate()
	b.Write(b.InteractorWriteEnd(it), []byte("pending"))

	require.NoError(t, b.Close())
	assert.Equal(t, "pending", toCandidate.String())
	assert.Equal(t, 0, b.Live())
}

func TestLifecycleLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	b := checkerBridge("", "", "")
	c := b.CheckerCreate()
	b.CheckerInput(c)
	b.CheckerRelease(c)
	require.NoError(t, b.Close())

	created := logs.FilterMessage("handle created").All()
	require.Len(t, created, 2)
	assert.Equal(t, "checker", created[0].ContextMap()["type"])
	assert.Equal(t, "reader", created[1].ContextMap()["type"])
	assert.Equal(t, uint32(c), created[1].ContextMap()["parent"])
	assert.Equal(t, 2, logs.FilterMessage("handle dropped").Len())
}

func TestClose_LogsUnreleasedInstances(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	b := checkerBridge("", "", "")
	released := b.CheckerCreate()
	kept := b.CheckerCreate()
	b.CheckerOutput(kept)
	b.CheckerRelease(released)
	require.NoError(t, b.Close())

	leftover := logs.FilterMessage("instance released at close").All()
	require.Len(t, leftover, 1)
	assert.Equal(t, uint32(kept), leftover[0].ContextMap()["handle"])
	assert.Equal(t, "checker", leftover[0].ContextMap()["type"])
}

func TestCompareFloat_ActualFirst(t *testing.T) {
	b := checkerBridge("", "", "")
	t.Cleanup(func() { _ = b.Close() })

	assert.Equal(t, int32(1), b.CompareFloat(2, 1, 0), "actual above expected")
	assert.Equal(t, int32(-1), b.CompareFloat(1, 2, 0), "actual below expected")
}
