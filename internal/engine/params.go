// Package engine simulates treasury games turn by turn and estimates
// bankruptcy rates over batches of games.
package engine

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidConfiguration reports parameters a game cannot be run with.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrSimulationDivergence reports a treasury that became NaN or infinite.
	ErrSimulationDivergence = errors.New("simulation diverged")
)

// Params are the economic constants of one game.
type Params struct {
	Treasury      float64 `json:"treasury" yaml:"treasury"`             // Initial pool
	MaxExtraction float64 `json:"max_extraction" yaml:"max_extraction"` // Per-seat per-turn cap
	InterestRate  float64 `json:"interest_rate" yaml:"interest_rate"`   // Applied to the remaining pool each turn
	MaxTurns      int     `json:"max_turns" yaml:"max_turns"`
}

// Validate checks that a game can be simulated with p. A zero extraction cap
// is allowed: nobody can draw and the pool only grows.
func (p Params) Validate() error {
	switch {
	case !finite(p.Treasury) || p.Treasury <= 0:
		return fmt.Errorf("%w: treasury must be positive, got %v", ErrInvalidConfiguration, p.Treasury)
	case !finite(p.MaxExtraction) || p.MaxExtraction < 0:
		return fmt.Errorf("%w: max extraction must be non-negative, got %v", ErrInvalidConfiguration, p.MaxExtraction)
	case !finite(p.InterestRate) || p.InterestRate < 0:
		return fmt.Errorf("%w: interest rate must be non-negative, got %v", ErrInvalidConfiguration, p.InterestRate)
	case p.MaxTurns < 1:
		return fmt.Errorf("%w: max turns must be at least 1, got %d", ErrInvalidConfiguration, p.MaxTurns)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("treasury=%.0f max_extraction=%.0f interest=%.2f turns=%d",
		p.Treasury, p.MaxExtraction, p.InterestRate, p.MaxTurns)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
