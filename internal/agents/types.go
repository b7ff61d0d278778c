// Package agents defines the extraction strategies seated at a treasury game.
// A strategy is stateless: every turn it looks at the visible state and asks
// for an amount to draw from the shared pool.
package agents

import (
	"fmt"
	"strings"
)

// Kind identifies one of the closed set of strategies.
type Kind uint8

const (
	Greedy        Kind = iota // Always draws the per-turn cap
	Cooperative                // Draws its share of the natural replenishment
	Random                     // Draws uniformly between zero and the cap
	Opportunistic              // Cooperative until late in the game, then greedy
	Defector                   // Cooperative, but occasionally greedy
)

// Kinds lists every strategy in declaration order.
var Kinds = []Kind{Greedy, Cooperative, Random, Opportunistic, Defector}

var kindNames = map[Kind]string{
	Greedy:        "greedy",
	Cooperative:   "cooperative",
	Random:        "random",
	Opportunistic: "opportunistic",
	Defector:      "defector",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind resolves a strategy name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown strategy %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// View is the game state a seat can see when it decides.
type View struct {
	Pool         float64 // Treasury before this turn's extraction
	Cap          float64 // Per-seat per-turn extraction cap
	InterestRate float64
	NumAgents    int
	Turn         int // 1-based
	Horizon      int // Max turns
}

// Tuning holds the constants that differ between balance configurations.
type Tuning struct {
	OpportunistThreshold float64 `yaml:"opportunist_threshold" json:"opportunist_threshold"` // Fraction of the horizon played cooperatively
	DefectProbability    float64 `yaml:"defect_probability" json:"defect_probability"`
}

// DefaultTuning switches opportunists for the last 20% of turns.
var DefaultTuning = Tuning{
	OpportunistThreshold: 0.8,
	DefectProbability:    0.2,
}
