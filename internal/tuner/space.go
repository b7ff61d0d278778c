// Package tuner searches a discrete space of economic parameters for the
// configuration whose estimated bankruptcy rate is closest to a target.
package tuner

import (
	"errors"
	"fmt"

	"github.com/talgya/treasury-tuner/internal/engine"
)

// ErrEmptySearchSpace is returned when an option set has no values.
var ErrEmptySearchSpace = errors.New("empty search space")

// Space enumerates candidate parameters in a fixed order.
type Space interface {
	Name() string
	Candidates() ([]engine.Params, error)
}

// Grid is the full Cartesian product of four independent option sets.
type Grid struct {
	Treasury      []float64 `yaml:"treasury" json:"treasury"`
	MaxExtraction []float64 `yaml:"max_extraction" json:"max_extraction"`
	InterestRate  []float64 `yaml:"interest_rate" json:"interest_rate"`
	Turns         []int     `yaml:"turns" json:"turns"`
}

func (g Grid) Name() string { return "grid" }

// Candidates lists every combination, treasury outermost and turns innermost.
func (g Grid) Candidates() ([]engine.Params, error) {
	if err := nonEmpty("treasury", len(g.Treasury)); err != nil {
		return nil, err
	}
	if err := nonEmpty("max_extraction", len(g.MaxExtraction)); err != nil {
		return nil, err
	}
	if err := nonEmpty("interest_rate", len(g.InterestRate)); err != nil {
		return nil, err
	}
	if err := nonEmpty("turns", len(g.Turns)); err != nil {
		return nil, err
	}
	if err := positive("treasury", g.Treasury); err != nil {
		return nil, err
	}
	if err := positive("max_extraction", g.MaxExtraction); err != nil {
		return nil, err
	}

	out := make([]engine.Params, 0, len(g.Treasury)*len(g.MaxExtraction)*len(g.InterestRate)*len(g.Turns))
	for _, t := range g.Treasury {
		for _, e := range g.MaxExtraction {
			for _, i := range g.InterestRate {
				for _, turns := range g.Turns {
					p := engine.Params{Treasury: t, MaxExtraction: e, InterestRate: i, MaxTurns: turns}
					if err := p.Validate(); err != nil {
						return nil, err
					}
					out = append(out, p)
				}
			}
		}
	}
	return out, nil
}

// Neighborhood scales a seed treasury and extraction cap while holding the
// interest rate and horizon fixed.
type Neighborhood struct {
	Seed             engine.Params `yaml:"seed" json:"seed"`
	TreasuryScales   []float64     `yaml:"treasury_scales" json:"treasury_scales"`
	ExtractionScales []float64     `yaml:"extraction_scales" json:"extraction_scales"`
}

func (n Neighborhood) Name() string { return "neighborhood" }

// Candidates lists every scale pair, treasury scale outermost.
func (n Neighborhood) Candidates() ([]engine.Params, error) {
	if err := nonEmpty("treasury_scales", len(n.TreasuryScales)); err != nil {
		return nil, err
	}
	if err := nonEmpty("extraction_scales", len(n.ExtractionScales)); err != nil {
		return nil, err
	}
	if err := positive("treasury_scales", n.TreasuryScales); err != nil {
		return nil, err
	}
	if err := positive("extraction_scales", n.ExtractionScales); err != nil {
		return nil, err
	}
	if err := positive("seed max_extraction", []float64{n.Seed.MaxExtraction}); err != nil {
		return nil, err
	}

	out := make([]engine.Params, 0, len(n.TreasuryScales)*len(n.ExtractionScales))
	for _, ts := range n.TreasuryScales {
		for _, es := range n.ExtractionScales {
			p := n.Seed
			p.Treasury = n.Seed.Treasury * ts
			p.MaxExtraction = n.Seed.MaxExtraction * es
			if err := p.Validate(); err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	return out, nil
}

func nonEmpty(name string, n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no %s options", ErrEmptySearchSpace, name)
	}
	return nil
}

func positive(name string, vals []float64) error {
	for _, v := range vals {
		if !(v > 0) {
			return fmt.Errorf("%w: %s option %v must be positive", engine.ErrInvalidConfiguration, name, v)
		}
	}
	return nil
}
