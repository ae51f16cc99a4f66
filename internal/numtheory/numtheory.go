// Package numtheory holds the integer primitives used by the score
// inverter: GCD over a group of coefficients, normalisation by that GCD,
// modular inverses and floor/ceiling division for signed operands.
package numtheory

import (
	"errors"

	"golang.org/x/exp/constraints"
)

var (
	ErrEmptyInput         = errors.New("numtheory: no values given")
	ErrNonPositiveModulus = errors.New("numtheory: modulus must be positive")
	ErrNoInverse          = errors.New("numtheory: no modular inverse")
	ErrNonPositiveDivisor = errors.New("numtheory: divisor must be positive")
)

func abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func gcd2[T constraints.Signed](a, b T) T {
	a, b = abs(a), abs(b)
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// GCD returns the greatest common divisor of all values.
// The result is non-negative and independent of argument order.
func GCD[T constraints.Signed](values ...T) (T, error) {
	if len(values) == 0 {
		return 0, ErrEmptyInput
	}
	g := abs(values[0])
	for _, v := range values[1:] {
		g = gcd2(g, v)
	}
	return g, nil
}

// Normalize divides every value by the GCD of the group.
// A group of zeros is returned unchanged.
func Normalize[T constraints.Signed](values ...T) ([]T, error) {
	g, err := GCD(values...)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(values))
	for i, v := range values {
		if g == 0 {
			out[i] = v
			continue
		}
		out[i] = v / g
	}
	return out, nil
}

// ModInverse returns x in [0, m) with a*x ≡ 1 (mod m).
// Iterative extended Euclid: (oldR, r) and (oldS, s) track the remainder
// sequence and the Bezout coefficient of a.
func ModInverse[T constraints.Signed](a, m T) (T, error) {
	if m < 1 {
		return 0, ErrNonPositiveModulus
	}
	oldR, r := Mod(a, m), m
	oldS, s := T(1), T(0)
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	if oldR != 1 {
		return 0, ErrNoInverse
	}
	return Mod(oldS, m), nil
}

// Mod returns the non-negative remainder of a modulo m (m > 0).
func Mod[T constraints.Signed](a, m T) T {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// FloorDiv returns floor(a/b). It panics when b <= 0.
func FloorDiv[T constraints.Signed](a, b T) T {
	if b <= 0 {
		panic(ErrNonPositiveDivisor)
	}
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// CeilDiv returns ceil(a/b). It panics when b <= 0.
func CeilDiv[T constraints.Signed](a, b T) T {
	if b <= 0 {
		panic(ErrNonPositiveDivisor)
	}
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

// AlignUp returns the smallest value >= low that is congruent to
// residue modulo step.
func AlignUp[T constraints.Signed](low, residue, step T) T {
	return residue + CeilDiv(low-residue, step)*step
}
