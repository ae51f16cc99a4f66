package inverter

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"score-inverter/internal/score"
)

func sortSolutions(sols []Solution) []Solution {
	out := slices.Clone(sols)
	slices.SortFunc(out, func(a, b Solution) int {
		return cmp.Or(
			cmp.Compare(a.Combo, b.Combo),
			cmp.Compare(a.Perfect, b.Perfect),
			cmp.Compare(a.Good, b.Good),
		)
	})
	return out
}

// bruteForce scores every record on a chart of amount notes.
func bruteForce(amount int64) map[int64][]Solution {
	byScore := make(map[int64][]Solution)
	for e := int64(0); e <= amount; e++ {
		for good := int64(0); good <= e; good++ {
			perfect := e - good
			for combo := int64(0); combo <= e; combo++ {
				if score.Validate(combo, perfect, good, amount) != nil {
					continue
				}
				s := score.Forward(combo, perfect, good, amount)
				byScore[s] = append(byScore[s], Solution{Combo: combo, Perfect: perfect, Good: good})
			}
		}
	}
	return byScore
}

func sequential() *Solver {
	return New(Config{Workers: 1})
}

func TestReduce_PhigrosWeights(t *testing.T) {
	r, err := Reduce(score.PerfectWeight, score.GoodWeight, score.ComboWeight)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	checks := []struct {
		name      string
		got, want int64
	}{
		{"G123", r.G123, 5000},
		{"A1p", r.A1p, 180},
		{"A2p", r.A2p, 117},
		{"A3p", r.A3p, 20},
		{"G12", r.G12, 9},
		{"A1pp", r.A1pp, 20},
		{"A2pp", r.A2pp, 13},
		{"A3pInv", r.A3pInv, 5},
		{"A2ppInv", r.A2ppInv, 17},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	if r != phigros {
		t.Errorf("package reduction %+v differs from %+v", phigros, r)
	}
}

func TestReduce_InvalidWeights(t *testing.T) {
	tests := []struct {
		name                 string
		perfect, good, combo int64
	}{
		{"good outweighs perfect", 100, 200, 10},
		{"equal hit weights", 100, 100, 10},
		{"zero good", 100, 0, 10},
		{"zero combo", 100, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reduce(tt.perfect, tt.good, tt.combo)
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("expected ErrInvalidWeights, got %v", err)
			}
		})
	}
}

func TestSolve_SingleNote(t *testing.T) {
	sols, err := Solve(1, 1000000)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	want := []Solution{{Combo: 1, Perfect: 1, Good: 0}}
	if !slices.Equal(sols, want) {
		t.Errorf("Solve(1, 1000000) = %v, want %v", sols, want)
	}
}

func TestSolve_FullCombo(t *testing.T) {
	sols, err := Solve(1000, 1000000)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !slices.Contains(sols, Solution{Combo: 1000, Perfect: 1000, Good: 0}) {
		t.Errorf("expected all-perfect full combo among %d solutions", len(sols))
	}
}

func TestSolve_AllMiss(t *testing.T) {
	sols, err := sequential().Solve(context.Background(), 7, 0)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if !slices.Contains(sols, Solution{}) {
		t.Errorf("expected (0, 0, 0) among %v", sols)
	}
}

func TestSolve_ImpossibleScores(t *testing.T) {
	for _, amount := range []int64{1, 7, 100, 1000, 5000, 12345} {
		for _, target := range []int64{-1000000, -1, 1000001, 1500000} {
			sols, err := Solve(amount, target)
			if err != nil {
				t.Errorf("Solve(%d, %d) error: %v", amount, target, err)
				continue
			}
			if sols == nil || len(sols) != 0 {
				t.Errorf("Solve(%d, %d) = %v, want empty", amount, target, sols)
			}
		}
	}
}

func TestSolve_ForcedCombo(t *testing.T) {
	sols, err := Solve(100, 900000)
	if err != nil {
		t.Fatalf("Solve failed: %v", err)
	}
	if len(sols) == 0 {
		t.Fatal("expected solutions for A=100 S=900000")
	}
	for _, s := range sols {
		if s.Effective() == 100 && s.Combo < 100 {
			t.Errorf("%v has no misses but combo < 100", s)
		}
	}
}

func TestSolve_InvalidAmount(t *testing.T) {
	for _, amount := range []int64{0, -1} {
		if _, err := Solve(amount, 1000000); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("Solve(%d, ...) expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestSolve_AmountTooLarge(t *testing.T) {
	for _, amount := range []int64{1 << 62, 4_000_000_000} {
		if _, err := Solve(amount, 500000); !errors.Is(err, ErrAmountTooLarge) {
			t.Errorf("Solve(%d, ...) expected ErrAmountTooLarge, got %v", amount, err)
		}
	}
	if err := checkAmount(3_000_000_000); err != nil {
		t.Errorf("checkAmount(3e9) = %v, want nil", err)
	}
}

func TestSolve_BudgetExceeded(t *testing.T) {
	s := New(Config{Workers: 1, MaxIterations: 10})
	_, err := s.Solve(context.Background(), 2000, 900000)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}

	s = New(Config{Workers: 4, MaxIterations: 10})
	_, err = s.Solve(context.Background(), 30000, 900000)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded from parallel solve, got %v", err)
	}
}

func TestSolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		s := New(Config{Workers: workers})
		if _, err := s.Solve(ctx, 12000, 900000); !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestRun_Stats(t *testing.T) {
	res, err := sequential().Run(context.Background(), 1, 1000000)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.KValues != 1 {
		t.Errorf("KValues = %d, want 1", res.KValues)
	}
	// one combo candidate and one good candidate
	if res.Iterations != 2 {
		t.Errorf("Iterations = %d, want 2", res.Iterations)
	}
}

func TestSolve_ParallelMatchesSequential(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct{ amount, target int64 }{
		{12000, 995000},
		{15000, 999000},
		{10001, 1000000},
	} {
		seq, err := sequential().Run(ctx, tc.amount, tc.target)
		if err != nil {
			t.Fatalf("sequential Run(%d, %d) failed: %v", tc.amount, tc.target, err)
		}
		if seq.KValues < 2 {
			t.Fatalf("A=%d: expected several k' values, got %d", tc.amount, seq.KValues)
		}
		par, err := New(Config{Workers: 4}).Run(ctx, tc.amount, tc.target)
		if err != nil {
			t.Fatalf("parallel Run(%d, %d) failed: %v", tc.amount, tc.target, err)
		}
		if !slices.Equal(sortSolutions(seq.Solutions), sortSolutions(par.Solutions)) {
			t.Errorf("A=%d S=%d: parallel result (%d) differs from sequential (%d)",
				tc.amount, tc.target, len(par.Solutions), len(seq.Solutions))
		}
	}
}

func TestSolve_MatchesBruteForceSmallCharts(t *testing.T) {
	s := sequential()
	ctx := context.Background()
	for amount := int64(1); amount <= 12; amount++ {
		expected := bruteForce(amount)
		for target, want := range expected {
			got, err := s.Solve(ctx, amount, target)
			if err != nil {
				t.Fatalf("Solve(%d, %d) failed: %v", amount, target, err)
			}
			if !slices.Equal(sortSolutions(got), sortSolutions(want)) {
				t.Fatalf("Solve(%d, %d) = %v, want %v", amount, target, sortSolutions(got), sortSolutions(want))
			}
		}
		// scores no record reaches
		for _, target := range []int64{1, 999999, 500001} {
			if _, ok := expected[target]; ok {
				continue
			}
			got, err := s.Solve(ctx, amount, target)
			if err != nil || len(got) != 0 {
				t.Errorf("Solve(%d, %d) = %v, %v; want empty", amount, target, got, err)
			}
		}
	}
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	cache := make(map[int64]map[int64][]Solution)
	s := sequential()

	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Int64Range(1, 50).Draw(t, "amount")
		expected, ok := cache[amount]
		if !ok {
			expected = bruteForce(amount)
			cache[amount] = expected
		}

		scores := make([]int64, 0, len(expected))
		for k := range expected {
			scores = append(scores, k)
		}
		slices.Sort(scores)
		target := rapid.OneOf(
			rapid.SampledFrom(scores),
			rapid.Int64Range(0, score.MaxScore),
		).Draw(t, "target")

		got, err := s.Solve(context.Background(), amount, target)
		if err != nil {
			t.Fatalf("Solve(%d, %d) failed: %v", amount, target, err)
		}
		want := expected[target]
		if !slices.Equal(sortSolutions(got), sortSolutions(want)) {
			t.Fatalf("Solve(%d, %d): got %d solutions, want %d", amount, target, len(got), len(want))
		}
	})
}

func TestSolve_ForwardConsistency(t *testing.T) {
	s := New(Config{Workers: 2})

	rapid.Check(t, func(t *rapid.T) {
		amount := rapid.Int64Range(1, 3000).Draw(t, "amount")

		// Half of the runs target a score some real record reaches.
		var target int64
		if rapid.Bool().Draw(t, "fromRecord") {
			e := rapid.Int64Range(0, amount).Draw(t, "effective")
			good := rapid.Int64Range(0, e).Draw(t, "good")
			runs := amount - e + 1
			combo := rapid.Int64Range((e+runs-1)/runs, e).Draw(t, "combo")
			target = score.Forward(combo, e-good, good, amount)
		} else {
			target = rapid.Int64Range(0, score.MaxScore).Draw(t, "target")
		}

		sols, err := s.Solve(context.Background(), amount, target)
		if err != nil {
			t.Fatalf("Solve(%d, %d) failed: %v", amount, target, err)
		}
		seen := make(map[Solution]bool, len(sols))
		for _, sol := range sols {
			if seen[sol] {
				t.Fatalf("duplicate solution %v", sol)
			}
			seen[sol] = true
			if got := score.Forward(sol.Combo, sol.Perfect, sol.Good, amount); got != target {
				t.Fatalf("%v scores %d on A=%d, want %d", sol, got, amount, target)
			}
			if got := score.Exact(sol.Combo, sol.Perfect, sol.Good, amount); got != target {
				t.Fatalf("%v scores %d exactly on A=%d, want %d", sol, got, amount, target)
			}
			if err := score.Validate(sol.Combo, sol.Perfect, sol.Good, amount); err != nil {
				t.Fatalf("%v invalid on A=%d: %v", sol, amount, err)
			}
		}
	})
}

func TestSolution_String(t *testing.T) {
	s := Solution{Combo: 12, Perfect: 10, Good: 3}
	if got := s.String(); got != "(12, 10, 3)" {
		t.Errorf("String() = %q", got)
	}
	if s.Effective() != 13 {
		t.Errorf("Effective() = %d, want 13", s.Effective())
	}
}
