package tuner

import (
	"fmt"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/engine"
)

// Preset bundles a search space with the strategy constants it was balanced for.
type Preset struct {
	Space      Space
	Tuning     agents.Tuning
	RosterPool []agents.Kind
}

// GridPreset scans 40M–100M treasuries, 2M–6M caps, 5–20% interest and 8–15
// turns against one greedy seat and a random mix of opportunists and defectors.
func GridPreset() Preset {
	return Preset{
		Space: Grid{
			Treasury:      []float64{40_000_000, 50_000_000, 60_000_000, 70_000_000, 80_000_000, 100_000_000},
			MaxExtraction: []float64{2_000_000, 3_000_000, 4_000_000, 5_000_000, 6_000_000},
			InterestRate:  []float64{0.05, 0.10, 0.15, 0.20},
			Turns:         []int{8, 10, 12, 15},
		},
		Tuning:     agents.Tuning{OpportunistThreshold: 0.8, DefectProbability: 0.2},
		RosterPool: []agents.Kind{agents.Opportunistic, agents.Defector},
	}
}

// NeighborhoodPreset scales a 100M treasury and 5M cap at 10% interest over
// 10 turns against one greedy seat and opportunists everywhere else.
func NeighborhoodPreset() Preset {
	return Preset{
		Space: Neighborhood{
			Seed:             engine.Params{Treasury: 100_000_000, MaxExtraction: 5_000_000, InterestRate: 0.10, MaxTurns: 10},
			TreasuryScales:   []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0},
			ExtractionScales: []float64{0.5, 0.75, 1.0, 1.5, 2.0, 3.0},
		},
		Tuning:     agents.Tuning{OpportunistThreshold: 0.7, DefectProbability: 0.2},
		RosterPool: []agents.Kind{agents.Opportunistic},
	}
}

// PresetByName resolves "grid" or "neighborhood".
func PresetByName(name string) (Preset, error) {
	switch name {
	case "grid":
		return GridPreset(), nil
	case "neighborhood":
		return NeighborhoodPreset(), nil
	default:
		return Preset{}, fmt.Errorf("unknown search %q (want grid or neighborhood)", name)
	}
}

// NewTuner wires a preset to the simulation engine.
func (p Preset) NewTuner(numGames int) *Tuner {
	return &Tuner{
		Space:      p.Space,
		Estimator:  engine.NewEstimator(p.Tuning),
		NumGames:   numGames,
		Target:     DefaultTarget,
		RosterPool: p.RosterPool,
	}
}
