// Package config loads tuning runs from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

// ErrInvalidConfig reports a config that cannot drive a tuning run.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes one tuning run.
type Config struct {
	Games   int     `yaml:"games"`
	Players []int   `yaml:"players"`
	Seed    int64   `yaml:"seed"` // 0 draws a seed from crypto/rand
	Target  float64 `yaml:"target"`
	Search  string  `yaml:"search"` // grid | neighborhood
	DBPath  string  `yaml:"db"`

	Grid         tuner.Grid         `yaml:"grid"`
	Neighborhood tuner.Neighborhood `yaml:"neighborhood"`

	// Strategies overrides the preset's constants field by field.
	Strategies StrategyOverride `yaml:"strategies"`
	// RosterPool overrides the preset's non-greedy seat pool when set.
	RosterPool []agents.Kind `yaml:"roster_pool"`
}

// StrategyOverride holds the strategy constants present in the file. Nil
// fields keep the preset's value.
type StrategyOverride struct {
	OpportunistThreshold *float64 `yaml:"opportunist_threshold"`
	DefectProbability    *float64 `yaml:"defect_probability"`
}

// Apply overlays the set fields on t.
func (o StrategyOverride) Apply(t agents.Tuning) agents.Tuning {
	if o.OpportunistThreshold != nil {
		t.OpportunistThreshold = *o.OpportunistThreshold
	}
	if o.DefectProbability != nil {
		t.DefectProbability = *o.DefectProbability
	}
	return t
}

func (o StrategyOverride) validate() error {
	if v := o.OpportunistThreshold; v != nil && !unit(*v) {
		return fmt.Errorf("%w: opportunist_threshold must be in [0,1], got %v", ErrInvalidConfig, *v)
	}
	if v := o.DefectProbability; v != nil && !unit(*v) {
		return fmt.Errorf("%w: defect_probability must be in [0,1], got %v", ErrInvalidConfig, *v)
	}
	return nil
}

// unit also rejects NaN.
func unit(v float64) bool {
	return v >= 0 && v <= 1
}

// Default returns the grid search over 3, 4 and 5 players.
func Default() *Config {
	grid := tuner.GridPreset().Space.(tuner.Grid)
	hood := tuner.NeighborhoodPreset().Space.(tuner.Neighborhood)
	return &Config{
		Games:        500,
		Players:      []int{3, 4, 5},
		Target:       tuner.DefaultTarget,
		Search:       "grid",
		DBPath:       "data/tuning.db",
		Grid:         grid,
		Neighborhood: hood,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays TUNER_DB, TUNER_GAMES and TUNER_SEED.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TUNER_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("TUNER_GAMES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TUNER_GAMES=%q", ErrInvalidConfig, v)
		}
		c.Games = n
	}
	if v := os.Getenv("TUNER_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TUNER_SEED=%q", ErrInvalidConfig, v)
		}
		c.Seed = n
	}
	return nil
}

// Validate checks the fields a run needs. Option sets are checked when the
// search enumerates them.
func (c *Config) Validate() error {
	if c.Games < 1 {
		return fmt.Errorf("%w: games must be at least 1, got %d", ErrInvalidConfig, c.Games)
	}
	if len(c.Players) == 0 {
		return fmt.Errorf("%w: no player counts", ErrInvalidConfig)
	}
	seen := make(map[int]bool, len(c.Players))
	for _, p := range c.Players {
		if p < 1 {
			return fmt.Errorf("%w: player count must be at least 1, got %d", ErrInvalidConfig, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: player count %d listed twice", ErrInvalidConfig, p)
		}
		seen[p] = true
	}
	if err := c.Strategies.validate(); err != nil {
		return err
	}
	if !unit(c.Target) {
		return fmt.Errorf("%w: target must be in [0,1], got %v", ErrInvalidConfig, c.Target)
	}
	if _, err := tuner.PresetByName(c.Search); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Tuner builds the tuner for the configured search.
func (c *Config) Tuner() (*tuner.Tuner, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	preset, _ := tuner.PresetByName(c.Search)
	switch preset.Space.(type) {
	case tuner.Grid:
		preset.Space = c.Grid
	case tuner.Neighborhood:
		preset.Space = c.Neighborhood
	}
	preset.Tuning = c.Strategies.Apply(preset.Tuning)
	if len(c.RosterPool) > 0 {
		preset.RosterPool = c.RosterPool
	}

	t := preset.NewTuner(c.Games)
	t.Target = c.Target
	return t, nil
}

// ParsePlayers parses a comma-separated list such as "3,4,5".
func ParsePlayers(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: player count %q", ErrInvalidConfig, part)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no player counts in %q", ErrInvalidConfig, s)
	}
	return out, nil
}
