// Command tuner searches for treasury parameters that bankrupt about half of
// all simulated games.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/profile"

	"github.com/talgya/treasury-tuner/internal/config"
	"github.com/talgya/treasury-tuner/internal/entropy"
	"github.com/talgya/treasury-tuner/internal/persistence"
	"github.com/talgya/treasury-tuner/internal/report"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

func main() {
	games := flag.Int("games", 500, "games simulated per candidate")
	players := flag.String("players", "3,4,5", "comma-separated player counts to tune")
	search := flag.String("search", "grid", "search space: grid or neighborhood")
	configPath := flag.String("config", "", "YAML config file")
	seed := flag.Int64("seed", 0, "random seed (0 draws one)")
	dbPath := flag.String("db", "", "SQLite file for saved runs (\"-\" disables saving)")
	verbose := flag.Bool("verbose", false, "log every scored candidate")
	cpuProfile := flag.String("cpuprofile", "", "write a CPU profile into this directory")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if *cpuProfile != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile), profile.NoShutdownHook).Stop()
	}

	if err := run(*configPath, flagOverrides{
		games:   *games,
		players: *players,
		search:  *search,
		seed:    *seed,
		db:      *dbPath,
	}); err != nil {
		slog.Error("tuning failed", "error", err)
		os.Exit(1)
	}
}

// flagOverrides holds flag values; only flags given on the command line win
// over the config file and environment.
type flagOverrides struct {
	games   int
	players string
	search  string
	seed    int64
	db      string
}

func run(configPath string, fo flagOverrides) error {
	// ── Configuration ─────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}

	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "games":
			cfg.Games = fo.games
		case "players":
			p, err := config.ParsePlayers(fo.players)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Players = p
		case "search":
			cfg.Search = fo.search
		case "seed":
			cfg.Seed = fo.seed
		case "db":
			cfg.DBPath = fo.db
		}
	})
	if flagErr != nil {
		return flagErr
	}

	t, err := cfg.Tuner()
	if err != nil {
		return err
	}
	t.Observer = progressLogger(t)

	// ── Tuning ────────────────────────────────────────────────────────
	rng := entropy.New(cfg.Seed)
	slog.Info("treasury tuner starting",
		"search", cfg.Search,
		"games", cfg.Games,
		"players", fmt.Sprint(cfg.Players),
		"seed", rng.Seed(),
	)

	tuningRun, err := t.TuneAll(cfg.Players, rng)
	if err != nil {
		return err
	}
	report.WriteRun(os.Stdout, tuningRun)

	// ── Persistence ───────────────────────────────────────────────────
	if cfg.DBPath == "" || cfg.DBPath == "-" {
		return nil
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveRun(tuningRun); err != nil {
		return err
	}
	slog.Info("run saved", "id", tuningRun.ID, "db", cfg.DBPath)
	return nil
}

// progressLogger reports every tenth of the candidates for long searches.
func progressLogger(t *tuner.Tuner) func(tuner.Evaluation) {
	total := 0
	if cands, err := t.Space.Candidates(); err == nil {
		total = len(cands)
	}
	step := max(total/10, 1)
	return func(ev tuner.Evaluation) {
		done := ev.Index + 1
		if total < 20 || done%step != 0 {
			return
		}
		slog.Info("progress",
			"agents", ev.NumAgents,
			"done", done,
			"of", total,
		)
	}
}
