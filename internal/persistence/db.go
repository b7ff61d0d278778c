// Package persistence provides SQLite-based storage for tuning runs.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/engine"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned by LoadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// DB wraps a SQLite connection for tuning run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		search TEXT NOT NULL,
		num_games INTEGER NOT NULL,
		target REAL NOT NULL,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		num_agents INTEGER NOT NULL,
		roster TEXT NOT NULL,
		treasury REAL NOT NULL,
		max_extraction REAL NOT NULL,
		interest_rate REAL NOT NULL,
		max_turns INTEGER NOT NULL,
		rate REAL NOT NULL,
		diff REAL NOT NULL,
		candidates INTEGER NOT NULL,
		PRIMARY KEY (run_id, num_agents)
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		run_id TEXT NOT NULL REFERENCES runs(id),
		num_agents INTEGER NOT NULL,
		idx INTEGER NOT NULL,
		treasury REAL NOT NULL,
		max_extraction REAL NOT NULL,
		interest_rate REAL NOT NULL,
		max_turns INTEGER NOT NULL,
		rate REAL NOT NULL,
		bankruptcies INTEGER NOT NULL,
		games INTEGER NOT NULL,
		PRIMARY KEY (run_id, num_agents, idx)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveRun writes a run with its results and every evaluation.
func (db *DB) SaveRun(run *tuner.Run) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs (id, search, num_games, target, seed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Search, run.NumGames, run.Target, run.Seed,
		run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO evaluations
		(run_id, num_agents, idx, treasury, max_extraction, interest_rate, max_turns, rate, bankruptcies, games)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range run.Results {
		_, err := tx.Exec(`INSERT INTO results
			(run_id, num_agents, roster, treasury, max_extraction, interest_rate, max_turns, rate, diff, candidates)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, r.NumAgents, r.Roster.String(),
			r.Params.Treasury, r.Params.MaxExtraction, r.Params.InterestRate, r.Params.MaxTurns,
			r.Rate, r.Diff, r.Candidates,
		)
		if err != nil {
			return fmt.Errorf("insert result %d agents: %w", r.NumAgents, err)
		}

		for _, ev := range r.Evaluations {
			_, err := stmt.Exec(
				run.ID, ev.NumAgents, ev.Index,
				ev.Params.Treasury, ev.Params.MaxExtraction, ev.Params.InterestRate, ev.Params.MaxTurns,
				ev.Rate, ev.Bankruptcies, ev.Games,
			)
			if err != nil {
				return fmt.Errorf("insert evaluation %d/%d: %w", ev.NumAgents, ev.Index, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('last_run', ?)", run.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("tuning run saved", "id", run.ID, "results", len(run.Results))
	return nil
}

type runRow struct {
	ID         string  `db:"id"`
	Search     string  `db:"search"`
	NumGames   int     `db:"num_games"`
	Target     float64 `db:"target"`
	Seed       int64   `db:"seed"`
	StartedAt  string  `db:"started_at"`
	FinishedAt string  `db:"finished_at"`
}

func (r runRow) run() (*tuner.Run, error) {
	started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	finished, err := time.Parse(time.RFC3339Nano, r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s finished_at: %w", r.ID, err)
	}
	return &tuner.Run{
		ID:         r.ID,
		Search:     r.Search,
		NumGames:   r.NumGames,
		Target:     r.Target,
		Seed:       r.Seed,
		StartedAt:  started,
		FinishedAt: finished,
	}, nil
}

type resultRow struct {
	NumAgents     int     `db:"num_agents"`
	Roster        string  `db:"roster"`
	Treasury      float64 `db:"treasury"`
	MaxExtraction float64 `db:"max_extraction"`
	InterestRate  float64 `db:"interest_rate"`
	MaxTurns      int     `db:"max_turns"`
	Rate          float64 `db:"rate"`
	Diff          float64 `db:"diff"`
	Candidates    int     `db:"candidates"`
}

type evaluationRow struct {
	NumAgents     int     `db:"num_agents"`
	Index         int     `db:"idx"`
	Treasury      float64 `db:"treasury"`
	MaxExtraction float64 `db:"max_extraction"`
	InterestRate  float64 `db:"interest_rate"`
	MaxTurns      int     `db:"max_turns"`
	Rate          float64 `db:"rate"`
	Bankruptcies  int     `db:"bankruptcies"`
	Games         int     `db:"games"`
}

// LoadRun reads a run back. With evaluations unset only the best result per
// agent count is loaded.
func (db *DB) LoadRun(id string, evaluations bool) (*tuner.Run, error) {
	var row runRow
	err := db.conn.Get(&row, "SELECT id, search, num_games, target, seed, started_at, finished_at FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	run, err := row.run()
	if err != nil {
		return nil, err
	}

	var results []resultRow
	if err := db.conn.Select(&results, `SELECT num_agents, roster, treasury, max_extraction, interest_rate,
		max_turns, rate, diff, candidates FROM results WHERE run_id = ? ORDER BY rowid`, id); err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	byCount := make(map[int]*tuner.Result, len(results))
	for _, rr := range results {
		roster, err := agents.ParseRoster(rr.Roster)
		if err != nil {
			return nil, fmt.Errorf("result %d agents: %w", rr.NumAgents, err)
		}
		res := &tuner.Result{
			NumAgents: rr.NumAgents,
			Roster:    roster,
			Params: engine.Params{
				Treasury: rr.Treasury, MaxExtraction: rr.MaxExtraction,
				InterestRate: rr.InterestRate, MaxTurns: rr.MaxTurns,
			},
			Rate:       rr.Rate,
			Diff:       rr.Diff,
			Candidates: rr.Candidates,
		}
		run.Results = append(run.Results, res)
		byCount[res.NumAgents] = res
	}

	if !evaluations {
		return run, nil
	}

	var evs []evaluationRow
	if err := db.conn.Select(&evs, `SELECT num_agents, idx, treasury, max_extraction, interest_rate, max_turns,
		rate, bankruptcies, games FROM evaluations WHERE run_id = ? ORDER BY num_agents, idx`, id); err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}
	for _, e := range evs {
		res, ok := byCount[e.NumAgents]
		if !ok {
			continue
		}
		res.Evaluations = append(res.Evaluations, tuner.Evaluation{
			NumAgents: e.NumAgents,
			Index:     e.Index,
			Params: engine.Params{
				Treasury: e.Treasury, MaxExtraction: e.MaxExtraction,
				InterestRate: e.InterestRate, MaxTurns: e.MaxTurns,
			},
			Rate:         e.Rate,
			Diff:         math.Abs(e.Rate - run.Target),
			Bankruptcies: e.Bankruptcies,
			Games:        e.Games,
		})
	}
	return run, nil
}

// RecentRuns returns the most recent runs, newest first, without evaluations.
func (db *DB) RecentRuns(limit int) ([]*tuner.Run, error) {
	var ids []string
	if err := db.conn.Select(&ids, "SELECT id FROM runs ORDER BY started_at DESC LIMIT ?", limit); err != nil {
		return nil, err
	}
	runs := make([]*tuner.Run, 0, len(ids))
	for _, id := range ids {
		run, err := db.LoadRun(id, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
