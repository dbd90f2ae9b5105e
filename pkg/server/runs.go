package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/openpulse/pulse/internal/core/domain"
	"github.com/openpulse/pulse/internal/core/services"
)

type createRunRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Interests string `json:"interests"`
	Notify    bool   `json:"notify"`
}

// handleCreateRun starts a newsletter generation run in the background and
// returns immediately. When notify is set, the run is tracked and watched
// so its outcome reaches the notification stream.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := s.executor.StartRun(r.Context(), services.RunInput{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Interests: req.Interests,
	})
	if err != nil {
		s.logger.Error("failed to create run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	s.notifier.Track(run.ID, run.WorkflowID, run.UserID, run.SessionID, req.Notify)

	runID := run.ID
	if err := s.pool.Submit(r.Context(), fmt.Sprintf("run-%s", runID), func(ctx context.Context) {
		s.executor.Execute(ctx, runID)
	}); err != nil {
		s.logger.Error("failed to queue run", "run_id", runID, "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "server is busy, try again later")
		return
	}
	if req.Notify {
		if err := s.pool.Submit(r.Context(), fmt.Sprintf("watch-%s", runID), func(ctx context.Context) {
			s.watcher.Watch(ctx, runID, s.executor.Handle(runID), services.WatcherConfig{
				PollInterval: s.cfg.WatchPollInterval,
				MaxWait:      s.cfg.WatchMaxWait,
			})
		}); err != nil {
			s.logger.Error("failed to queue run watch", "run_id", runID, "error", err)
		}
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": run.ID,
		"status": run.Status,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/v1/runs/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	run, err := s.executor.GetRun(r.Context(), domain.RunID(id))
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, "run not found")
			return
		}
		s.logger.Error("failed to load run", "run_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}
