package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openpulse/pulse/internal/core/ports"
	"github.com/openpulse/pulse/internal/core/services"
	"github.com/openpulse/pulse/internal/metrics"
)

// Config carries the HTTP-layer tunables.
type Config struct {
	HeartbeatInterval time.Duration
	WatchPollInterval time.Duration
	WatchMaxWait      time.Duration
	StaticDir         string
}

type Server struct {
	logger   *slog.Logger
	notifier *services.Notifier
	executor *services.Executor
	watcher  *services.Watcher
	pool     *services.TaskPool
	repo     ports.Repository
	recorder *metrics.Recorder
	cfg      Config
}

func NewServer(
	logger *slog.Logger,
	notifier *services.Notifier,
	executor *services.Executor,
	watcher *services.Watcher,
	pool *services.TaskPool,
	repo ports.Repository,
	recorder *metrics.Recorder,
	cfg Config,
) *Server {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Server{
		logger:   logger,
		notifier: notifier,
		executor: executor,
		watcher:  watcher,
		pool:     pool,
		repo:     repo,
		recorder: recorder,
		cfg:      cfg,
	}
}

// Handler returns the http.Handler for the server. SSE and the API routes
// are dispatched by hand; static files and metrics go through the mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.cfg.StaticDir != "" {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
	if s.recorder != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.recorder.Registry(), promhttp.HandlerOpts{}))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Notifications API
		if r.Method == "GET" && r.URL.Path == "/v1/notifications/stream" {
			s.handleNotificationStream(w, r)
			return
		}
		if r.Method == "GET" && r.URL.Path == "/v1/notifications/stats" {
			s.handleNotificationStats(w, r)
			return
		}
		if r.Method == "GET" && r.URL.Path == "/v1/notifications/recent" {
			s.handleRecentNotifications(w, r)
			return
		}
		// Runs API
		if r.Method == "POST" && r.URL.Path == "/v1/runs" {
			s.handleCreateRun(w, r)
			return
		}
		if r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/v1/runs/") {
			s.handleGetRun(w, r)
			return
		}
		// Newsletters API
		if r.Method == "GET" && r.URL.Path == "/v1/newsletters" {
			s.handleListNewsletters(w, r)
			return
		}
		if r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/v1/newsletters/") {
			s.handleGetNewsletter(w, r)
			return
		}
		// Schedules API
		if r.Method == "GET" && r.URL.Path == "/v1/schedules" {
			s.handleListSchedules(w, r)
			return
		}
		if r.Method == "POST" && r.URL.Path == "/v1/schedules" {
			s.handleCreateSchedule(w, r)
			return
		}
		if r.Method == "POST" && strings.HasPrefix(r.URL.Path, "/v1/schedules/") && strings.HasSuffix(r.URL.Path, "/toggle") {
			s.handleToggleSchedule(w, r)
			return
		}
		if r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/v1/schedules/") {
			s.handleGetSchedule(w, r)
			return
		}
		if r.Method == "DELETE" && strings.HasPrefix(r.URL.Path, "/v1/schedules/") {
			s.handleDeleteSchedule(w, r)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// pathID extracts the ID segment following a prefix, rejecting nested paths.
func pathID(path, prefix string) string {
	id := strings.TrimPrefix(path, prefix)
	id = strings.TrimSuffix(id, "/")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
