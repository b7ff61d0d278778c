package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/treasury-tuner/internal/agents"
	"github.com/talgya/treasury-tuner/internal/engine"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tuning.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRun(id string, started time.Time) *tuner.Run {
	p1 := engine.Params{Treasury: 60_000_000, MaxExtraction: 4_000_000, InterestRate: 0.1, MaxTurns: 10}
	p2 := engine.Params{Treasury: 80_000_000, MaxExtraction: 5_000_000, InterestRate: 0.15, MaxTurns: 12}
	return &tuner.Run{
		ID:         id,
		Search:     "grid",
		NumGames:   100,
		Target:     0.5,
		Seed:       42,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Results: []*tuner.Result{{
			NumAgents:  3,
			Roster:     agents.Roster{agents.Greedy, agents.Defector, agents.Opportunistic},
			Params:     p2,
			Rate:       0.48,
			Diff:       0.02,
			Candidates: 2,
			Evaluations: []tuner.Evaluation{
				{NumAgents: 3, Index: 0, Params: p1, Rate: 0.9, Diff: 0.4, Bankruptcies: 90, Games: 100},
				{NumAgents: 3, Index: 1, Params: p2, Rate: 0.48, Diff: 0.02, Bankruptcies: 48, Games: 100},
			},
		}},
	}
}

func TestSaveRun_LoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("run-1", started)

	require.NoError(t, db.SaveRun(run))

	got, err := db.LoadRun("run-1", true)
	require.NoError(t, err)
	assert.Equal(t, "grid", got.Search)
	assert.Equal(t, int64(42), got.Seed)
	assert.True(t, got.StartedAt.Equal(started))
	require.Len(t, got.Results, 1)

	res := got.Results[0]
	assert.Equal(t, run.Results[0].Roster, res.Roster)
	assert.Equal(t, run.Results[0].Params, res.Params)
	assert.Equal(t, 0.48, res.Rate)
	require.Len(t, res.Evaluations, 2)
	assert.Equal(t, 90, res.Evaluations[0].Bankruptcies)
	assert.InDelta(t, 0.4, res.Evaluations[0].Diff, 1e-12)

	summary, err := db.LoadRun("run-1", false)
	require.NoError(t, err)
	assert.Empty(t, summary.Results[0].Evaluations)

	last, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, "run-1", last)
}

func TestLoadRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.LoadRun("missing", false)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveRun_DuplicateIDRollsBack(t *testing.T) {
	db := openTestDB(t)
	run := sampleRun("dup", time.Now())
	require.NoError(t, db.SaveRun(run))
	assert.Error(t, db.SaveRun(run))

	got, err := db.LoadRun("dup", true)
	require.NoError(t, err)
	assert.Len(t, got.Results[0].Evaluations, 2)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.SaveRun(sampleRun(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := db.RecentRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)

	_, err = db.GetMeta("absent")
	assert.Error(t, err)
}

func TestLoadRun_CorruptTimestamp(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.SaveRun(sampleRun("bad-time", time.Now())))
	_, err := db.conn.Exec("UPDATE runs SET started_at = 'yesterday' WHERE id = ?", "bad-time")
	require.NoError(t, err)

	_, err = db.LoadRun("bad-time", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "started_at")

	_, err = db.RecentRuns(10)
	assert.Error(t, err)
}
