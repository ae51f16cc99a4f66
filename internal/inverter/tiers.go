package inverter

import (
	"context"
	"fmt"
	"sync/atomic"

	"score-inverter/internal/bounds"
)

// budget caps the number of candidates visited by one solve. It is shared
// by all workers of that solve.
type budget struct {
	limit int64 // <= 0 means unlimited
	used  atomic.Int64
}

func (b *budget) charge(n int64) error {
	used := b.used.Add(n)
	if b.limit > 0 && used > b.limit {
		return fmt.Errorf("%w: limit %d", ErrBudgetExceeded, b.limit)
	}
	return nil
}

// solveKPrime enumerates every triple with a1'P + a2'G + a3'C = k'.
func solveKPrime(ctx context.Context, r bounds.Reduction, kp, amount, target int64, b *budget) ([]Solution, error) {
	var out []Solution
	for c := range bounds.ComboRange(r, kp, amount, target).All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.charge(1); err != nil {
			return nil, err
		}

		rest := kp - r.A3p*c
		if rest%r.G12 != 0 {
			return nil, fmt.Errorf("%w: k'=%d C=%d not divisible by %d", ErrInvariantViolation, kp, c, r.G12)
		}
		kpp := rest / r.G12
		if !bounds.ComboAdmissible(r, kpp, c, amount) {
			continue
		}

		var err error
		out, err = solveCombo(r, kpp, c, amount, b, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// solveCombo enumerates A1pp*P + A2pp*G = k'' for a fixed combo and
// appends the feasible triples to out.
func solveCombo(r bounds.Reduction, kpp, c, amount int64, b *budget, out []Solution) ([]Solution, error) {
	goods := bounds.GoodRange(r, kpp, c, amount)
	if err := b.charge(goods.Len()); err != nil {
		return nil, err
	}

	for g := range goods.All() {
		rest := kpp - g*r.A2pp
		if rest%r.A1pp != 0 {
			return nil, fmt.Errorf("%w: k''=%d G=%d not divisible by %d", ErrInvariantViolation, kpp, g, r.A1pp)
		}
		sol := Solution{Combo: c, Perfect: rest / r.A1pp, Good: g}
		if sol.feasible(amount) {
			out = append(out, sol)
		}
	}
	return out, nil
}
