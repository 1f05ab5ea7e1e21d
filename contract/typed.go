package contract

import (
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/wave-testlib/errors"
	"github.com/wippyai/wave-testlib/verdict"
)

// Value is the set of types a token can be converted to.
type Value interface {
	int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | string | bool
}

// Parse converts a token to T. Integers are decimal with an optional sign,
// reals accept the usual decimal and exponent forms plus inf and nan, and
// booleans are exactly "true" or "false".
func Parse[T Value](tok string) (T, error) {
	var v T
	var err error
	switch p := any(&v).(type) {
	case *int:
		*p, err = strconv.Atoi(tok)
	case *int8:
		*p, err = parseInt[int8](tok, 8)
	case *int16:
		*p, err = parseInt[int16](tok, 16)
	case *int32:
		*p, err = parseInt[int32](tok, 32)
	case *int64:
		*p, err = strconv.ParseInt(tok, 10, 64)
	case *uint:
		*p, err = parseUint[uint](tok, strconv.IntSize)
	case *uint8:
		*p, err = parseUint[uint8](tok, 8)
	case *uint16:
		*p, err = parseUint[uint16](tok, 16)
	case *uint32:
		*p, err = parseUint[uint32](tok, 32)
	case *uint64:
		*p, err = strconv.ParseUint(tok, 10, 64)
	case *float32:
		var f float64
		f, err = parseFloat(tok, 32)
		*p = float32(f)
	case *float64:
		*p, err = parseFloat(tok, 64)
	case *string:
		*p = tok
	case *bool:
		switch tok {
		case "true":
			*p = true
		case "false":
			*p = false
		default:
			err = fmt.Errorf("invalid boolean %q", tok)
		}
	}
	return v, err
}

// parseFloat accepts decimal and exponent forms plus inf and nan. Hex floats
// and digit separators are not numbers here. Magnitudes beyond the type's
// range become infinities.
func parseFloat(tok string, bits int) (float64, error) {
	digits := strings.TrimLeft(tok, "+-")
	if strings.ContainsRune(tok, '_') || strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: tok, Err: strconv.ErrSyntax}
	}
	f, err := strconv.ParseFloat(tok, bits)
	if stderrors.Is(err, strconv.ErrRange) && math.IsInf(f, 0) {
		return f, nil
	}
	return f, err
}

func parseInt[T int8 | int16 | int32](tok string, bits int) (T, error) {
	n, err := strconv.ParseInt(tok, 10, bits)
	return T(n), err
}

func parseUint[T uint | uint8 | uint16 | uint32](tok string, bits int) (T, error) {
	n, err := strconv.ParseUint(tok, 10, bits)
	return T(n), err
}

// TypeName is the short name of T used in messages ("i32", "f64", ...).
func TypeName[T Value]() string {
	var v T
	switch any(v).(type) {
	case int:
		return "int"
	case int8:
		return "i8"
	case int16:
		return "i16"
	case int32:
		return "i32"
	case int64:
		return "i64"
	case uint:
		return "uint"
	case uint8:
		return "u8"
	case uint16:
		return "u16"
	case uint32:
		return "u32"
	case uint64:
		return "u64"
	case float32:
		return "f32"
	case float64:
		return "f64"
	case string:
		return "string"
	default:
		return "bool"
	}
}

// ReadTokenAs reads the next token as T. It returns false at the end of the
// stream. A token that does not parse is a fault, not a verdict.
func ReadTokenAs[T Value](r *Reader) (T, bool) {
	tok, ok := r.ReadToken()
	if !ok {
		var zero T
		return zero, false
	}
	v, err := Parse[T](tok)
	if err != nil {
		panic(errors.ParseFailed(tok, TypeName[T](), err))
	}
	return v, true
}

// ExpectType expects the next token to parse as T.
func ExpectType[T Value](r *Reader) T {
	tok := r.next()
	v, err := Parse[T](tok)
	if err != nil {
		verdict.Rejectf("Unexpected token: %q", tok)
	}
	return v
}

// ExpectValueThat expects the next token to parse as T and satisfy pred. The
// error returned by pred becomes part of the rejection message.
func ExpectValueThat[T Value](r *Reader, pred func(T) error) T {
	v := ExpectType[T](r)
	if err := pred(v); err != nil {
		verdict.Rejectf("Unexpected value: %q: %v", format(v), err)
	}
	return v
}

// ExpectEq expects the next token to parse as T and equal want.
func ExpectEq[T Value](r *Reader, want T) T {
	return ExpectValueThat(r, func(v T) error {
		if v != want {
			return fmt.Errorf("expected value: %q", format(want))
		}
		return nil
	})
}

// ExpectNe expects the next token to parse as T and differ from unwanted.
func ExpectNe[T Value](r *Reader, unwanted T) T {
	return ExpectValueThat(r, func(v T) error {
		if v == unwanted {
			return fmt.Errorf("value must differ from %q", format(unwanted))
		}
		return nil
	})
}

func format[T Value](v T) string {
	switch x := any(v).(type) {
	case float64:
		return formatFloat(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
