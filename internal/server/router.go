package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/outriggerhq/outrigger/internal/schedule"
)

// RuleSource exposes the most recently built rule set.
type RuleSource interface {
	LastRules() []schedule.Rule
}

// Pinger checks entity store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LockLister exposes the dispatch locks currently held across the fleet.
type LockLister interface {
	Held(ctx context.Context) ([]string, error)
}

// NewRouter builds the ops HTTP surface: health, metrics, and read-only
// views of the current schedule and the held dispatch locks.
func NewRouter(rules RuleSource, db Pinger, locks LockLister) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.Ping(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/v1/rules", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"rules": rules.LastRules(),
		})
	})

	r.Get("/api/v1/locks", func(w http.ResponseWriter, req *http.Request) {
		held, err := locks.Held(req.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if held == nil {
			held = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"locks": held})
	})

	return r
}

// RequestLogger middleware logs HTTP requests with structured logging.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}
