package inverter

import (
	"fmt"

	"score-inverter/internal/bounds"
	"score-inverter/internal/numtheory"
	"score-inverter/internal/score"
)

// phigros is the reduction of the fixed scoring weights. Failing to reduce
// constants is a defect, so it is caught at init.
var phigros = mustReduce(score.PerfectWeight, score.GoodWeight, score.ComboWeight)

// Reduce divides the weights by their common GCD, then divides the two hit
// weights by theirs, and precomputes the inverses that pick the residue
// classes of C and G. Perfect must outweigh Good.
func Reduce(perfect, good, combo int64) (bounds.Reduction, error) {
	if good <= 0 || combo <= 0 || perfect <= good {
		return bounds.Reduction{}, fmt.Errorf("%w: perfect=%d good=%d combo=%d",
			ErrInvalidWeights, perfect, good, combo)
	}

	g123, err := numtheory.GCD(perfect, good, combo)
	if err != nil {
		return bounds.Reduction{}, err
	}
	p, err := numtheory.Normalize(perfect, good, combo)
	if err != nil {
		return bounds.Reduction{}, err
	}
	g12, err := numtheory.GCD(p[0], p[1])
	if err != nil {
		return bounds.Reduction{}, err
	}
	pp, err := numtheory.Normalize(p[0], p[1])
	if err != nil {
		return bounds.Reduction{}, err
	}

	a3Inv, err := numtheory.ModInverse(p[2], g12)
	if err != nil {
		return bounds.Reduction{}, fmt.Errorf("%w: a3'=%d mod %d: %v", ErrInvariantViolation, p[2], g12, err)
	}
	a2Inv, err := numtheory.ModInverse(pp[1], pp[0])
	if err != nil {
		return bounds.Reduction{}, fmt.Errorf("%w: a2''=%d mod %d: %v", ErrInvariantViolation, pp[1], pp[0], err)
	}

	return bounds.Reduction{
		G123:    g123,
		A1p:     p[0],
		A2p:     p[1],
		A3p:     p[2],
		G12:     g12,
		A1pp:    pp[0],
		A2pp:    pp[1],
		A3pInv:  a3Inv,
		A2ppInv: a2Inv,
	}, nil
}

func mustReduce(perfect, good, combo int64) bounds.Reduction {
	r, err := Reduce(perfect, good, combo)
	if err != nil {
		panic(err)
	}
	return r
}
