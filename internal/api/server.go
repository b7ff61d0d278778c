// Package api provides a read-only HTTP API over stored tuning runs.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/treasury-tuner/internal/persistence"
	"github.com/talgya/treasury-tuner/internal/tuner"
)

// RunStore is the subset of persistence.DB the API reads from.
type RunStore interface {
	RecentRuns(limit int) ([]*tuner.Run, error)
	LoadRun(id string, evaluations bool) (*tuner.Run, error)
	GetMeta(key string) (string, error)
}

// Server serves stored tuning runs over HTTP.
type Server struct {
	Store RunStore
	Port  int

	started time.Time
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	// Full evaluation dumps are large; keep clients polite.
	detailLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/run/", RateLimitMiddleware(detailLimiter, s.handleRunDetail))
	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// devOrigins are the local dashboard dev servers that chart stored runs.
var devOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// runOrigins returns the browser origins allowed to read runs: devOrigins
// plus each entry of the comma-separated list.
func runOrigins(list string) map[string]bool {
	allowed := make(map[string]bool, len(devOrigins))
	for _, o := range devOrigins {
		allowed[o] = true
	}
	for _, o := range strings.Split(list, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return allowed
}

// corsMiddleware lets run dashboards on the origins from CORS_ORIGINS fetch
// the read-only endpoints. Preflights are answered here.
func corsMiddleware(next http.Handler) http.Handler {
	allowed := runOrigins(os.Getenv("CORS_ORIGINS"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowed[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	lastRun, err := s.Store.GetMeta("last_run")
	if err != nil {
		lastRun = ""
	}
	writeJSON(w, map[string]any{
		"name":     "treasury-tuner",
		"uptime":   time.Since(s.started).Round(time.Second).String(),
		"last_run": lastRun,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.Store.RecentRuns(limit)
	if err != nil {
		slog.Error("list runs failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// handleRunDetail serves GET /api/v1/run/:id. Add ?evaluations=1 for every
// scored candidate.
func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/run/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "run id required", http.StatusBadRequest)
		return
	}
	withEvals := r.URL.Query().Get("evaluations") == "1"

	run, err := s.Store.LoadRun(id, withEvals)
	if errors.Is(err, persistence.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("load run failed", "id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
