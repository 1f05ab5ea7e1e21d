package judge

import "github.com/wippyai/wave-testlib/contract"

// FloatChecker returns a checker body that reads every token of the reference
// answer as a float and expects the candidate output to match it within
// tolerance, then expects the output to end.
func FloatChecker(tolerance float64) func(c *Checker) {
	return func(c *Checker) {
		for {
			want, ok := contract.ReadTokenAs[float64](c.Answer)
			if !ok {
				break
			}
			c.Output.ExpectFloatEq(want, tolerance)
		}
		c.Output.ExpectEOF()
	}
}
