// Package floatcmp compares real numbers under an absolute tolerance.
package floatcmp

import (
	"math"

	"github.com/wippyai/wave-testlib/errors"
)

// DefaultTolerance is the tolerance used when a checker does not pick one.
const DefaultTolerance = 1e-8

// Ordering is the result of a tolerant comparison.
type Ordering int8

const (
	Less Ordering = iota - 1
	Equal
	Greater
	Incomparable
)

// Codes returned across the foreign boundary.
const (
	CodeLess         int32 = -1
	CodeEqual        int32 = 0
	CodeGreater      int32 = 1
	CodeIncomparable int32 = math.MaxInt32
)

// Code returns the integer code of o.
func (o Ordering) Code() int32 {
	switch o {
	case Less:
		return CodeLess
	case Equal:
		return CodeEqual
	case Greater:
		return CodeGreater
	default:
		return CodeIncomparable
	}
}

func (o Ordering) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	case Greater:
		return "greater"
	default:
		return "incomparable"
	}
}

// Compare compares lhs against rhs. Values within |tolerance| of each other
// are Equal. NaN operands are Incomparable. Two infinities are Equal when
// they share a sign and are otherwise ordered by sign, regardless of
// tolerance. A NaN tolerance is a programming error and panics with a fault.
func Compare(lhs, rhs, tolerance float64) Ordering {
	if math.IsNaN(tolerance) {
		panic(errors.NaNTolerance())
	}
	tolerance = math.Abs(tolerance)

	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return Incomparable
	}

	// Two infinities are ordered by sign alone, whatever the tolerance.
	if math.IsInf(lhs, 0) && math.IsInf(rhs, 0) {
		switch {
		case math.Signbit(lhs) == math.Signbit(rhs):
			return Equal
		case math.Signbit(lhs):
			return Less
		default:
			return Greater
		}
	}

	diff := lhs - rhs
	if math.Abs(diff) <= tolerance {
		return Equal
	}
	if diff < 0 {
		return Less
	}
	return Greater
}

// CompareStrings orders two strings byte-wise.
func CompareStrings(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

// EqualStrings reports whether a and b are equal, optionally ignoring ASCII case.
// Non-ASCII bytes always compare exactly.
func EqualStrings(a, b string, ignoreCase bool) bool {
	if !ignoreCase {
		return a == b
	}
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
