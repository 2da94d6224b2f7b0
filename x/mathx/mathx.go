// Package mathx holds small generic numeric helpers shared by the services.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// MulDiv returns v*num/den with den == 0 yielding 0.
// Intermediates use the operand type, so keep products in range.
func MulDiv[T constraints.Integer](v, num, den T) T {
	if den == 0 {
		return 0
	}
	return v * num / den
}
