package engine

import (
	"fmt"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/entropy"
)

// BatchResult summarizes a batch of games played with one configuration.
type BatchResult struct {
	Games        int     `json:"games"`
	Bankruptcies int     `json:"bankruptcies"`
	Rate         float64 `json:"rate"` // Bankruptcies / Games
	AvgTurns     float64 `json:"avg_turns"`
}

// Estimator runs batches of games to estimate a bankruptcy rate.
type Estimator struct {
	Tuning agents.Tuning
}

// NewEstimator creates an Estimator with the given strategy tuning.
func NewEstimator(tuning agents.Tuning) *Estimator {
	return &Estimator{Tuning: tuning}
}

// Estimate plays numGames games. Every game draws its own stream from rng,
// reseats the roster uniformly at random and plays to termination, so any
// single game can be replayed from its derived seed.
func (e *Estimator) Estimate(p Params, roster agents.Roster, numGames int, rng *entropy.Source) (BatchResult, error) {
	if numGames < 1 {
		return BatchResult{}, fmt.Errorf("%w: num games must be at least 1, got %d", ErrInvalidConfiguration, numGames)
	}
	if err := p.Validate(); err != nil {
		return BatchResult{}, err
	}
	if len(roster) == 0 {
		return BatchResult{}, fmt.Errorf("%w: roster is empty", ErrInvalidConfiguration)
	}

	res := BatchResult{Games: numGames}
	totalTurns := 0
	for i := 0; i < numGames; i++ {
		gameRng := rng.Derive()
		seats := roster.Shuffled(gameRng)
		out, err := RunGame(p, seats, e.Tuning, gameRng, false)
		if err != nil {
			return BatchResult{}, fmt.Errorf("game %d: %w", i, err)
		}
		if out.Bankrupt {
			res.Bankruptcies++
		}
		totalTurns += out.Turns
	}

	res.Rate = float64(res.Bankruptcies) / float64(numGames)
	res.AvgTurns = float64(totalTurns) / float64(numGames)
	return res, nil
}
