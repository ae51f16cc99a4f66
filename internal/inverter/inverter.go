// Package inverter enumerates every (MaxCombo, Perfect, Good) record that
// produces a given Phigros score on a chart with a given number of notes.
//
// The raw score numerator 900000P + 585000G + 100000C is a linear
// Diophantine expression. After dividing out the coefficient GCDs the
// solver walks three tiers: the reduced right-hand side k', the combo C
// (restricted to one residue class modulo gcd(a1', a2')) and the Good
// count G (restricted to one residue class modulo a1'').
package inverter

import (
	"context"
	"errors"
	"fmt"
	stdmath "math"
	"runtime"
	"sync"

	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/sync/errgroup"

	"score-inverter/internal/bounds"
	"score-inverter/internal/score"
)

var (
	ErrInvalidAmount      = errors.New("amount must be at least 1")
	ErrAmountTooLarge     = errors.New("amount too large for exact arithmetic")
	ErrBudgetExceeded     = errors.New("iteration budget exceeded")
	ErrInvalidWeights     = errors.New("invalid scoring weights")
	ErrInvariantViolation = errors.New("reduction invariant violated")
)

// Solution is one play record consistent with the target score.
type Solution struct {
	Combo   int64 `json:"combo"`
	Perfect int64 `json:"perfect"`
	Good    int64 `json:"good"`
}

// Effective returns the number of non-miss judgements.
func (s Solution) Effective() int64 {
	return s.Perfect + s.Good
}

func (s Solution) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Combo, s.Perfect, s.Good)
}

// feasible checks A >= E >= C >= ceil(E/(A-E+1)).
func (s Solution) feasible(amount int64) bool {
	if s.Perfect < 0 || s.Good < 0 || s.Combo < 0 {
		return false
	}
	e := s.Effective()
	if e > amount || e < s.Combo {
		return false
	}
	runs := amount - e + 1
	return s.Combo >= (e+runs-1)/runs
}

// Config controls a Solver.
type Config struct {
	// Workers bounds the number of k' values solved concurrently.
	Workers int
	// MaxIterations caps the combo and good candidates visited per solve.
	// Zero disables the cap.
	MaxIterations int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:       runtime.NumCPU(),
		MaxIterations: 5_000_000,
	}
}

// Result is the outcome of a solve.
type Result struct {
	Solutions  []Solution
	KValues    int64 // size of the k' range
	Iterations int64 // candidates visited
}

// Solver inverts scores. It holds no state between calls and is safe for
// concurrent use.
type Solver struct {
	cfg Config
	red bounds.Reduction
}

// New creates a Solver for the Phigros weights.
func New(cfg Config) *Solver {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Solver{cfg: cfg, red: phigros}
}

// Solve returns every record for (amount, target) using DefaultConfig.
func Solve(amount, target int64) ([]Solution, error) {
	res, err := New(DefaultConfig()).Run(context.Background(), amount, target)
	if err != nil {
		return nil, err
	}
	return res.Solutions, nil
}

// Solve returns every record for (amount, target) in no particular order.
// An empty slice means no record produces the score.
func (s *Solver) Solve(ctx context.Context, amount, target int64) ([]Solution, error) {
	res, err := s.Run(ctx, amount, target)
	if err != nil {
		return nil, err
	}
	return res.Solutions, nil
}

// Run is Solve with enumeration statistics.
func (s *Solver) Run(ctx context.Context, amount, target int64) (*Result, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAmount, amount)
	}
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	res := &Result{Solutions: []Solution{}}
	// Sum <= MaxScore*A, so nothing rounds outside [0, MaxScore].
	if target < 0 || target > score.MaxScore {
		return res, nil
	}

	ks := bounds.KPrimeRange(amount, target, s.red.G123)
	res.KValues = ks.Len()
	b := &budget{limit: s.cfg.MaxIterations}

	if s.cfg.Workers == 1 || ks.Len() <= 1 {
		for kp := range ks.All() {
			sols, err := solveKPrime(ctx, s.red, kp, amount, target, b)
			if err != nil {
				return nil, err
			}
			res.Solutions = append(res.Solutions, sols...)
		}
		res.Iterations = b.used.Load()
		return res, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for kp := range ks.All() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			sols, err := solveKPrime(gctx, s.red, kp, amount, target, b)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Solutions = append(res.Solutions, sols...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Iterations = b.used.Load()
	return res, nil
}

// checkAmount rejects amounts whose window (2*MaxScore+1)*A or pigeonhole
// product A*(A+1) would overflow int64.
func checkAmount(amount int64) error {
	a := uint64(amount)
	window, overflow := math.SafeMul(a, 2*score.MaxScore+1)
	if overflow || window > stdmath.MaxInt64 {
		return fmt.Errorf("%w: %d", ErrAmountTooLarge, amount)
	}
	next, overflow := math.SafeAdd(a, 1)
	if overflow {
		return fmt.Errorf("%w: %d", ErrAmountTooLarge, amount)
	}
	square, overflow := math.SafeMul(a, next)
	if overflow || square > stdmath.MaxInt64 {
		return fmt.Errorf("%w: %d", ErrAmountTooLarge, amount)
	}
	return nil
}
