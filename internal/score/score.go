// Package score is the forward calculator for the Phigros scoring rule:
//
//	score = round(900000*(Perfect + 0.65*Good)/A + 100000*MaxCombo/A)
//
// Forward mirrors the floating-point evaluation players use, Exact does the
// same rounding on integers.
package score

import (
	"errors"
	"math"
)

const (
	PerfectWeight = 900000
	GoodWeight    = 585000 // PerfectWeight * 0.65, kept as an integer literal
	ComboWeight   = 100000

	// MaxScore is the score of an all-Perfect full combo.
	MaxScore = PerfectWeight + ComboWeight

	// roundingBias pushes exact .5 results that float evaluation lands just
	// below back over the rounding boundary.
	roundingBias = 1e-7
)

var (
	ErrInvalidAmount = errors.New("score: amount must be positive")
	ErrInvalidRecord = errors.New("score: impossible play record")
)

// Forward evaluates the game's floating-point formula, rounded half up.
func Forward(combo, perfect, good, amount int64) int64 {
	a := float64(amount)
	raw := PerfectWeight*(float64(perfect)+0.65*float64(good))/a + ComboWeight*float64(combo)/a
	return int64(math.Round(raw + roundingBias))
}

// Sum is the unscaled score numerator a1*P + a2*G + a3*C.
func Sum(combo, perfect, good int64) int64 {
	return PerfectWeight*perfect + GoodWeight*good + ComboWeight*combo
}

// Exact rounds Sum/amount half up without floating point.
func Exact(combo, perfect, good, amount int64) int64 {
	num := 2*Sum(combo, perfect, good) + amount
	den := 2 * amount
	q := num / den
	if num%den != 0 && num < 0 {
		q--
	}
	return q
}

// Validate reports whether the record can occur on a chart of amount
// notes: 0 <= C <= P+G <= A, and the hits fit into runs no longer than C
// given the A-(P+G) misses separating them.
func Validate(combo, perfect, good, amount int64) error {
	if amount < 1 {
		return ErrInvalidAmount
	}
	if combo < 0 || perfect < 0 || good < 0 {
		return ErrInvalidRecord
	}
	e := perfect + good
	if e > amount || combo > e {
		return ErrInvalidRecord
	}
	runs := amount - e + 1
	if combo < (e+runs-1)/runs {
		return ErrInvalidRecord
	}
	return nil
}
