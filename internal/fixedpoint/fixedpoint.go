// Package fixedpoint implements the scaled-integer arithmetic (τ, spec §3)
// used throughout the farming engine: checked add/sub/mul/div over a
// non-negative integer domain, plus mul_div computed through a wide
// intermediate so that a·b/c never overflows even when a and b are both
// large token amounts.
//
// All division here rounds toward zero (floor, since operands are
// non-negative) and always in favor of the program: callers that need the
// opposite rounding direction (a share kept by the pool rounds up) call
// DivCeil explicitly rather than relying on a variant of Div.
package fixedpoint

import (
	"math/big"
	"math/bits"

	"github.com/harvestlabs/farmengine/internal/errs"
)

// Amount is a non-negative scaled integer interpreted as DecimalPlaces
// fractional digits of one token (spec §3, τ). It is represented as a
// plain uint64 — the intermediate product used by MulDiv and MulDivCeil is
// 128 bits wide (bits.Mul64, with a math/big fallback for the division) so
// that this representation never silently wraps.
type Amount uint64

// DecimalPlaces is the number of fractional digits represented by the
// scaled integer domain. The spec requires "9-18 fractional digits"; this
// implementation fixes it at 9, matching the scale the teacher's reward
// index (core/rewards.Engine) uses for its own fixed-point index.
const DecimalPlaces = 9

// One represents 1.0 token in the scaled integer domain.
const One Amount = 1_000_000_000

// Add returns a+b, failing with ErrArithmeticOverflow on uint64 wraparound.
func Add(a, b Amount) (Amount, error) {
	sum := a + b
	if sum < a {
		return 0, errs.ErrArithmeticOverflow
	}
	return sum, nil
}

// Sub returns a-b, failing with ErrArithmeticOverflow if b > a (the domain
// is non-negative; there is no signed representation).
func Sub(a, b Amount) (Amount, error) {
	if b > a {
		return 0, errs.ErrArithmeticOverflow
	}
	return a - b, nil
}

// Mul returns a*b, failing with ErrArithmeticOverflow if the product does
// not fit in a uint64.
func Mul(a, b Amount) (Amount, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	return Amount(lo), nil
}

// Div returns floor(a/b), failing with ErrArithmeticOverflow when b is
// zero (division by zero is modeled as an overflow, matching the spec's
// treatment of all arithmetic failures as a single ArithmeticOverflow
// class rather than a distinct divide-by-zero error).
func Div(a, b Amount) (Amount, error) {
	if b == 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	return a / b, nil
}

// DivCeil returns ceil(a/b) — used wherever a division computes a share
// retained BY the pool rather than paid out to a user (spec §9, rounding
// direction).
func DivCeil(a, b Amount) (Amount, error) {
	if b == 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	q := a / b
	if a%b != 0 {
		var err error
		q, err = Add(q, 1)
		if err != nil {
			return 0, err
		}
	}
	return q, nil
}

// MulDiv computes floor(a*b/c) without intermediate overflow, using a
// 128-bit-wide product (via bits.Mul64) rescaled by c. Division rounds
// floor, always in favor of the program per spec §3.
func MulDiv(a, b, c Amount) (Amount, error) {
	if c == 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	quoHi, quoLo, _ := div128Rem(hi, lo, uint64(c))
	if quoHi != 0 {
		// The quotient itself overflows 64 bits.
		return 0, errs.ErrArithmeticOverflow
	}
	return Amount(quoLo), nil
}

// MulDivCeil is MulDiv with the final division rounded up, for shares that
// accrue to the pool rather than to a user.
func MulDivCeil(a, b, c Amount) (Amount, error) {
	if c == 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	if a == 0 || b == 0 {
		return 0, nil
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	quoHi, quoLo, rem := div128Rem(hi, lo, uint64(c))
	if quoHi != 0 {
		return 0, errs.ErrArithmeticOverflow
	}
	q := Amount(quoLo)
	if rem != 0 {
		var err error
		q, err = Add(q, 1)
		if err != nil {
			return 0, err
		}
	}
	return q, nil
}

func div128Rem(hi, lo, c uint64) (quoHi, quoLo, rem uint64) {
	if hi == 0 {
		return 0, lo / c, lo % c
	}
	// bits.Div64 panics on overflow (hi>=c); fall back to math/big for the
	// rare 128-bit-wide case so callers get ErrArithmeticOverflow instead
	// of a panic when the true quotient does not fit in 64 bits.
	num := new(big.Int).Lsh(new(big.Int).SetUint64(hi), 64)
	num.Or(num, new(big.Int).SetUint64(lo))
	denom := new(big.Int).SetUint64(c)
	q, r := new(big.Int).QuoRem(num, denom, new(big.Int))
	if !q.IsUint64() {
		return 1, 0, 0 // signal overflow via non-zero quoHi
	}
	return 0, q.Uint64(), r.Uint64()
}

// FindExponent returns the position (0-indexed from the LSB) of x's most
// significant set bit, or -1 for x == 0. Spec §4.1.
func FindExponent(x uint64) int {
	if x == 0 {
		return -1
	}
	return bits.Len64(x) - 1
}
