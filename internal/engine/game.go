package engine

import (
	"fmt"
	"math"

	"github.com/talgya/treasury-tuner/internal/agents"
)

// State is the phase of a game.
type State uint8

const (
	StateRunning State = iota
	StateBankrupt
	StateSurvived
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateBankrupt:
		return "bankrupt"
	case StateSurvived:
		return "survived"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// TurnRecord is one turn of a recorded game.
type TurnRecord struct {
	Turn            int     `json:"turn"`
	Extraction      float64 `json:"extraction"`
	AfterExtraction float64 `json:"after_extraction"`
	AfterInterest   float64 `json:"after_interest"` // Zero when the turn ended in bankruptcy
}

// Outcome is the terminal result of one game.
type Outcome struct {
	State         State        `json:"state"`
	Bankrupt      bool         `json:"bankrupt"`
	Turns         int          `json:"turns"` // Turn the game ended on
	FinalTreasury float64      `json:"final_treasury"`
	Trace         []TurnRecord `json:"trace,omitempty"`
}

// Rand is the randomness a game consumes.
type Rand interface {
	Float() float64
}

// RunGame plays one game with the seats in roster order. Each seat's request
// is clamped to [0, MaxExtraction] before it is summed; requests are never
// resolved against the available pool. With record set, every turn is kept
// in Outcome.Trace. rng may be nil only when no seat is Random or Defector.
func RunGame(p Params, roster agents.Roster, tuning agents.Tuning, rng Rand, record bool) (Outcome, error) {
	if err := p.Validate(); err != nil {
		return Outcome{}, err
	}
	if len(roster) == 0 {
		return Outcome{}, fmt.Errorf("%w: roster is empty", ErrInvalidConfiguration)
	}
	if rng == nil && stochastic(roster) {
		return Outcome{}, fmt.Errorf("%w: roster %s needs a random source", ErrInvalidConfiguration, roster)
	}

	var trace []TurnRecord
	if record {
		trace = make([]TurnRecord, 0, p.MaxTurns)
	}

	pool := p.Treasury
	for turn := 1; turn <= p.MaxTurns; turn++ {
		v := agents.View{
			Pool:         pool,
			Cap:          p.MaxExtraction,
			InterestRate: p.InterestRate,
			NumAgents:    len(roster),
			Turn:         turn,
			Horizon:      p.MaxTurns,
		}

		total := 0.0
		for _, kind := range roster {
			total += clamp(agents.Decide(kind, v, tuning, rng), p.MaxExtraction)
		}

		pool -= total
		if !finite(pool) {
			return Outcome{}, fmt.Errorf("%w: treasury %v after extraction on turn %d", ErrSimulationDivergence, pool, turn)
		}
		if pool <= 0 {
			if record {
				trace = append(trace, TurnRecord{Turn: turn, Extraction: total, AfterExtraction: pool})
			}
			return Outcome{State: StateBankrupt, Bankrupt: true, Turns: turn, FinalTreasury: pool, Trace: trace}, nil
		}

		after := pool
		pool += pool * p.InterestRate
		if !finite(pool) {
			return Outcome{}, fmt.Errorf("%w: treasury %v after interest on turn %d", ErrSimulationDivergence, pool, turn)
		}
		if record {
			trace = append(trace, TurnRecord{Turn: turn, Extraction: total, AfterExtraction: after, AfterInterest: pool})
		}
	}

	return Outcome{State: StateSurvived, Turns: p.MaxTurns, FinalTreasury: pool, Trace: trace}, nil
}

// stochastic reports whether any seat draws from the rng.
func stochastic(roster agents.Roster) bool {
	for _, k := range roster {
		if k == agents.Random || k == agents.Defector {
			return true
		}
	}
	return false
}

func clamp(amount, limit float64) float64 {
	if math.IsNaN(amount) || amount < 0 {
		return 0
	}
	return math.Min(amount, limit)
}
