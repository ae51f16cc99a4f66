package service

import (
	"errors"
	"fmt"

	"score-inverter/internal/score"
)

// ScoreReport is the forward score of one play record
type ScoreReport struct {
	Amount  int64  `json:"amount"`
	Combo   int64  `json:"combo"`
	Perfect int64  `json:"perfect"`
	Good    int64  `json:"good"`
	Score   int64  `json:"score"`
	Exact   int64  `json:"exact"`
	Valid   bool   `json:"valid"`
	Reason  string `json:"reason,omitempty"`
}

// ScoreOf computes the score a record would display. Impossible records
// are still scored and reported as not valid.
func ScoreOf(combo, perfect, good, amount int64) (*ScoreReport, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: got %d", score.ErrInvalidAmount, amount)
	}
	rep := &ScoreReport{
		Amount:  amount,
		Combo:   combo,
		Perfect: perfect,
		Good:    good,
		Score:   score.Forward(combo, perfect, good, amount),
		Exact:   score.Exact(combo, perfect, good, amount),
		Valid:   true,
	}
	if err := score.Validate(combo, perfect, good, amount); err != nil {
		if !errors.Is(err, score.ErrInvalidRecord) {
			return nil, err
		}
		rep.Valid = false
		rep.Reason = err.Error()
	}
	return rep, nil
}
