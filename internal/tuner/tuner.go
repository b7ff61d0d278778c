package tuner

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/engine"
	"github.com/talgya/treasury-tuner/internal/entropy"
)

// DefaultTarget is the bankruptcy rate a balanced game should hit.
const DefaultTarget = 0.5

// Estimator scores one candidate. *engine.Estimator satisfies it.
type Estimator interface {
	Estimate(p engine.Params, roster agents.Roster, numGames int, rng *entropy.Source) (engine.BatchResult, error)
}

// Evaluation is the score of one candidate.
type Evaluation struct {
	NumAgents    int           `json:"num_agents"`
	Index        int           `json:"index"` // Position in enumeration order
	Params       engine.Params `json:"params"`
	Rate         float64       `json:"rate"`
	Diff         float64       `json:"diff"`
	Bankruptcies int           `json:"bankruptcies"`
	Games        int           `json:"games"`
}

// Result is the best candidate found for one agent count.
type Result struct {
	NumAgents   int           `json:"num_agents"`
	Roster      agents.Roster `json:"roster"`
	Params      engine.Params `json:"params"`
	Rate        float64       `json:"rate"`
	Diff        float64       `json:"diff"`
	Candidates  int           `json:"candidates"`
	Evaluations []Evaluation  `json:"evaluations,omitempty"`
}

// Run is a full tuning pass over several agent counts.
type Run struct {
	ID         string    `json:"id"`
	Search     string    `json:"search"`
	NumGames   int       `json:"num_games"`
	Target     float64   `json:"target"`
	Seed       int64     `json:"seed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []*Result `json:"results"`
}

// Tuner scores every candidate of Space and keeps the one closest to Target.
type Tuner struct {
	Space      Space
	Estimator  Estimator
	NumGames   int
	Target     float64
	RosterPool []agents.Kind // Strategies for every seat after the greedy one

	// Observer, if set, is called after each candidate is scored.
	Observer func(Evaluation)
}

// Tune finds the best candidate for numAgents seats. The roster is built once
// from rng; every candidate then gets its own derived stream. Candidates are
// compared by |rate - target| and only a strictly smaller difference replaces
// the current best, so ties go to the earliest candidate.
func (t *Tuner) Tune(numAgents int, rng *entropy.Source) (*Result, error) {
	if numAgents < 1 {
		return nil, fmt.Errorf("%w: num agents must be at least 1, got %d", engine.ErrInvalidConfiguration, numAgents)
	}
	if t.NumGames < 1 {
		return nil, fmt.Errorf("%w: num games must be at least 1, got %d", engine.ErrInvalidConfiguration, t.NumGames)
	}
	if t.Space == nil || t.Estimator == nil {
		return nil, fmt.Errorf("%w: tuner needs a search space and an estimator", engine.ErrInvalidConfiguration)
	}

	candidates, err := t.Space.Candidates()
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s produced no candidates", ErrEmptySearchSpace, t.Space.Name())
	}

	roster, err := agents.BuildRoster(numAgents, t.RosterPool, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrInvalidConfiguration, err)
	}

	slog.Info("tuning started",
		"agents", numAgents,
		"search", t.Space.Name(),
		"candidates", len(candidates),
		"games", t.NumGames,
		"roster", roster.String(),
	)

	res := &Result{
		NumAgents:   numAgents,
		Roster:      roster,
		Candidates:  len(candidates),
		Evaluations: make([]Evaluation, 0, len(candidates)),
	}
	for i, p := range candidates {
		batch, err := t.Estimator.Estimate(p, roster, t.NumGames, rng.Derive())
		if err != nil {
			return nil, fmt.Errorf("candidate %d (%s): %w", i, p, err)
		}

		ev := Evaluation{
			NumAgents:    numAgents,
			Index:        i,
			Params:       p,
			Rate:         batch.Rate,
			Diff:         math.Abs(batch.Rate - t.Target),
			Bankruptcies: batch.Bankruptcies,
			Games:        batch.Games,
		}
		res.Evaluations = append(res.Evaluations, ev)
		if t.Observer != nil {
			t.Observer(ev)
		}
		slog.Debug("candidate scored", "agents", numAgents, "index", i, "params", p.String(), "rate", ev.Rate)

		if i == 0 || ev.Diff < res.Diff {
			res.Params = p
			res.Rate = ev.Rate
			res.Diff = ev.Diff
		}
	}

	slog.Info("tuning finished",
		"agents", numAgents,
		"best", res.Params.String(),
		"rate", fmt.Sprintf("%.3f", res.Rate),
	)
	return res, nil
}

// TuneAll tunes each agent count in order with one shared stream.
func (t *Tuner) TuneAll(counts []int, rng *entropy.Source) (*Run, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("%w: no agent counts to tune", engine.ErrInvalidConfiguration)
	}
	name := ""
	if t.Space != nil {
		name = t.Space.Name()
	}
	run := &Run{
		ID:        uuid.NewString(),
		Search:    name,
		NumGames:  t.NumGames,
		Target:    t.Target,
		Seed:      rng.Seed(),
		StartedAt: time.Now().UTC(),
	}
	for _, n := range counts {
		res, err := t.Tune(n, rng)
		if err != nil {
			return nil, fmt.Errorf("tune %d agents: %w", n, err)
		}
		run.Results = append(run.Results, res)
	}
	run.FinishedAt = time.Now().UTC()
	return run, nil
}
