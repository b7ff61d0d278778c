package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/engine"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
games: 200
players: [2, 6]
search: neighborhood
neighborhood:
  seed:
    treasury: 80000000
  treasury_scales: [1.0, 2.0]
strategies:
  opportunist_threshold: 0.75
  defect_probability: 0.3
roster_pool: [defector, random]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Games)
	assert.Equal(t, []int{2, 6}, cfg.Players)
	assert.Equal(t, "neighborhood", cfg.Search)
	assert.Equal(t, 80_000_000.0, cfg.Neighborhood.Seed.Treasury)
	assert.Equal(t, 5_000_000.0, cfg.Neighborhood.Seed.MaxExtraction, "untouched fields keep defaults")
	assert.Equal(t, []float64{1.0, 2.0}, cfg.Neighborhood.TreasuryScales)
	assert.Equal(t, []agents.Kind{agents.Defector, agents.Random}, cfg.RosterPool)
	require.NotNil(t, cfg.Strategies.OpportunistThreshold)
	assert.Equal(t, 0.75, *cfg.Strategies.OpportunistThreshold)

	tn, err := cfg.Tuner()
	require.NoError(t, err)
	assert.Equal(t, "neighborhood", tn.Space.Name())
	assert.Equal(t, 200, tn.NumGames)
	assert.Equal(t, []agents.Kind{agents.Defector, agents.Random}, tn.RosterPool)

	candidates, err := tn.Space.Candidates()
	require.NoError(t, err)
	assert.Len(t, candidates, 2*6)
}

func estimatorTuning(t *testing.T, tn *tuner.Tuner) agents.Tuning {
	t.Helper()
	est, ok := tn.Estimator.(*engine.Estimator)
	require.True(t, ok, "preset tuners run the engine estimator")
	return est.Tuning
}

func TestTuner_PartialStrategiesKeepPresetValues(t *testing.T) {
	path := writeConfig(t, "strategies:\n  opportunist_threshold: 0.7\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Strategies.DefectProbability)

	tn, err := cfg.Tuner()
	require.NoError(t, err)
	assert.Equal(t, agents.Tuning{OpportunistThreshold: 0.7, DefectProbability: 0.2}, estimatorTuning(t, tn))

	path = writeConfig(t, "search: neighborhood\nstrategies:\n  defect_probability: 0.5\n")
	cfg, err = Load(path)
	require.NoError(t, err)
	tn, err = cfg.Tuner()
	require.NoError(t, err)
	assert.Equal(t, agents.Tuning{OpportunistThreshold: 0.7, DefectProbability: 0.5}, estimatorTuning(t, tn))
}

func TestTuner_NoStrategiesUsesPreset(t *testing.T) {
	tn, err := Default().Tuner()
	require.NoError(t, err)
	assert.Equal(t, tuner.GridPreset().Tuning, estimatorTuning(t, tn))
}

func TestLoad_BadStrategyName(t *testing.T) {
	path := writeConfig(t, "roster_pool: [hoarder]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"zero games":     func(c *Config) { c.Games = 0 },
		"no players":     func(c *Config) { c.Players = nil },
		"zero players":   func(c *Config) { c.Players = []int{3, 0} },
		"dup players":    func(c *Config) { c.Players = []int{3, 4, 3} },
		"bad target":     func(c *Config) { c.Target = 1.5 },
		"unknown search": func(c *Config) { c.Search = "annealing" },
		"low threshold":  func(c *Config) { c.Strategies.OpportunistThreshold = ptr(-3.0) },
		"high threshold": func(c *Config) { c.Strategies.OpportunistThreshold = ptr(1.5) },
		"high defect":    func(c *Config) { c.Strategies.DefectProbability = ptr(7.0) },
		"nan defect":     func(c *Config) { c.Strategies.DefectProbability = ptr(math.NaN()) },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, name)
	}
}

func ptr(v float64) *float64 { return &v }

func TestValidate_StrategyBounds(t *testing.T) {
	path := writeConfig(t, "strategies: {opportunist_threshold: -3, defect_probability: 7}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	_, err = cfg.Tuner()
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = Default()
	cfg.Strategies = StrategyOverride{OpportunistThreshold: ptr(0), DefectProbability: ptr(1)}
	assert.NoError(t, cfg.Validate(), "bounds are inclusive")
}

func TestTuner_GridDefaults(t *testing.T) {
	tn, err := Default().Tuner()
	require.NoError(t, err)
	assert.Equal(t, "grid", tn.Space.Name())
	assert.Equal(t, tuner.DefaultTarget, tn.Target)
	assert.Equal(t, []agents.Kind{agents.Opportunistic, agents.Defector}, tn.RosterPool)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("TUNER_DB", "/tmp/x.db")
	t.Setenv("TUNER_GAMES", "42")
	t.Setenv("TUNER_SEED", "7")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 42, cfg.Games)
	assert.Equal(t, int64(7), cfg.Seed)

	t.Setenv("TUNER_GAMES", "lots")
	assert.ErrorIs(t, Default().ApplyEnv(), ErrInvalidConfig)
}

func TestParsePlayers(t *testing.T) {
	got, err := ParsePlayers("3, 4,5")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, got)

	_, err = ParsePlayers("3,x")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParsePlayers(" , ")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
