// Package bounds computes the candidate ranges walked by the score
// inverter: the reduced right-hand side k', the max combo C and the Good
// count G. Every range intersects a score-tolerance window with the
// combo constraint A >= E >= C >= ceil(E/(A-E+1)), where E = P+G.
package bounds

import (
	"iter"

	"score-inverter/internal/numtheory"
)

// Reduction holds the scoring weights after both GCD passes.
//
//	a1*P + a2*G + a3*C = G123 * (A1p*P + A2p*G + A3p*C)
//	A1p*P + A2p*G      = G12 * (A1pp*P + A2pp*G)
type Reduction struct {
	G123 int64
	A1p  int64
	A2p  int64
	A3p  int64
	G12  int64
	A1pp int64
	A2pp int64

	A3pInv  int64 // A3p^-1 mod G12
	A2ppInv int64 // A2pp^-1 mod A1pp
}

func (r Reduction) minPair() int64 {
	return min(r.A1pp, r.A2pp)
}

func (r Reduction) maxPair() int64 {
	return max(r.A1pp, r.A2pp)
}

// Range is an inclusive arithmetic progression Low, Low+Step, ..., <= High.
type Range struct {
	Low  int64
	High int64
	Step int64
}

// Empty reports whether the range has no members.
func (r Range) Empty() bool {
	return r.Step <= 0 || r.Low > r.High
}

// Len returns the number of members.
func (r Range) Len() int64 {
	if r.Empty() {
		return 0
	}
	return (r.High-r.Low)/r.Step + 1
}

// All yields each member in increasing order.
func (r Range) All() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		if r.Empty() {
			return
		}
		for v := r.Low; v <= r.High; v += r.Step {
			if !yield(v) {
				return
			}
		}
	}
}

// KPrimeRange returns every k with (S-0.5)*A <= k*g123 < (S+0.5)*A.
// The half-open window is evaluated on doubled integers.
func KPrimeRange(amount, score, g123 int64) Range {
	return Range{
		Low:  numtheory.CeilDiv((2*score-1)*amount, 2*g123),
		High: numtheory.CeilDiv((2*score+1)*amount, 2*g123) - 1,
		Step: 1,
	}
}

// ComboRange returns the combo candidates for a given k'. Only members of
// the residue class C ≡ A3p^-1 * k' (mod G12) can satisfy the two-variable
// sub-equation, so the range is stepped by G12.
func ComboRange(r Reduction, kp, amount, score int64) Range {
	// Hits contribute at most max(a1, a2)*A to the raw sum, the rest has to
	// come from combo: a3*C >= (S-0.5)*A - max(a1, a2)*A.
	hitMax := r.G123 * max(r.A1p, r.A2p)
	comboWeight := r.G123 * r.A3p
	cMin := max(0, numtheory.CeilDiv((2*score-1)*amount-2*hitMax*amount, 2*comboWeight))
	cMax := min(amount, numtheory.FloorDiv(kp, r.G12*r.minPair()+r.A3p))

	c0 := numtheory.Mod(r.A3pInv*numtheory.Mod(kp, r.G12), r.G12)
	return Range{
		Low:  numtheory.AlignUp(cMin, c0, r.G12),
		High: cMax,
		Step: r.G12,
	}
}

// EffectiveMax is the largest E that still allows a max combo of c over
// amount notes: E <= (A+1)*C/(C+1).
func EffectiveMax(c, amount int64) int64 {
	return numtheory.FloorDiv((amount+1)*c, c+1)
}

// ComboAdmissible reports whether k'' is reachable by some E in
// [C, EffectiveMax(C, A)], i.e. E*min <= k'' <= E*max.
func ComboAdmissible(r Reduction, kpp, c, amount int64) bool {
	eMax := EffectiveMax(c, amount)
	return c*r.minPair() <= kpp && kpp <= eMax*r.maxPair()
}

// GoodRange returns the Good candidates for A1pp*P + A2pp*G = k'' with
// C <= P+G <= EffectiveMax(C, A) and P >= 0. Requires A1pp > A2pp.
func GoodRange(r Reduction, kpp, c, amount int64) Range {
	d := r.A1pp - r.A2pp
	gMin := max(0, numtheory.CeilDiv(r.A1pp*c-kpp, d))
	gMax := min(
		numtheory.FloorDiv(kpp, r.A2pp),
		numtheory.FloorDiv(r.A1pp*EffectiveMax(c, amount)-kpp, d),
	)

	g0 := numtheory.Mod(r.A2ppInv*numtheory.Mod(kpp, r.A1pp), r.A1pp)
	return Range{
		Low:  numtheory.AlignUp(gMin, g0, r.A1pp),
		High: gMax,
		Step: r.A1pp,
	}
}
