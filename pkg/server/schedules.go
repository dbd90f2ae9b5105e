package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openpulse/pulse/internal/core/domain"
)

type createScheduleRequest struct {
	Name        string `json:"name"`
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	Interests   string `json:"interests"`
	Notify      bool   `json:"notify"`
	Type        string `json:"type"`
	IntervalSec int    `json:"interval_sec"`
	Hour        int    `json:"hour"`
	Minute      int    `json:"minute"`
	NextRun     string `json:"next_run"` // RFC3339, optional for one_shot
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.repo.ListSchedules(r.Context())
	if err != nil {
		s.logger.Error("failed to list schedules", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	if schedules == nil {
		schedules = []domain.Schedule{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now()
	sched := domain.Schedule{
		ID:          domain.ScheduleID(uuid.New().String()),
		Name:        req.Name,
		UserID:      req.UserID,
		SessionID:   req.SessionID,
		Interests:   req.Interests,
		Notify:      req.Notify,
		Type:        domain.ScheduleType(req.Type),
		IntervalSec: req.IntervalSec,
		Hour:        req.Hour,
		Minute:      req.Minute,
		Status:      domain.ScheduleStatusActive,
		CreatedAt:   now,
	}
	if sched.UserID == "" {
		sched.UserID = "default"
	}

	switch sched.Type {
	case domain.ScheduleTypeOneShot:
		sched.NextRun = now
		if req.NextRun != "" {
			at, err := time.Parse(time.RFC3339, req.NextRun)
			if err != nil {
				s.writeError(w, http.StatusBadRequest, "next_run must be RFC3339")
				return
			}
			sched.NextRun = at
		}
	case domain.ScheduleTypeInterval:
		if req.IntervalSec <= 0 {
			s.writeError(w, http.StatusBadRequest, "interval_sec must be positive for interval schedules")
			return
		}
		sched.NextRun = now.Add(time.Duration(req.IntervalSec) * time.Second)
	case domain.ScheduleTypeDaily:
		if req.Hour < 0 || req.Hour > 23 || req.Minute < 0 || req.Minute > 59 {
			s.writeError(w, http.StatusBadRequest, "hour and minute must form a valid time of day")
			return
		}
		next := time.Date(now.Year(), now.Month(), now.Day(), req.Hour, req.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		sched.NextRun = next
	default:
		s.writeError(w, http.StatusBadRequest, "type must be one_shot, interval or daily")
		return
	}

	if err := s.repo.SaveSchedule(r.Context(), &sched); err != nil {
		s.logger.Error("failed to save schedule", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	s.logger.Info("schedule created", "schedule_id", sched.ID, "type", sched.Type, "next_run", sched.NextRun)
	s.writeJSON(w, http.StatusCreated, sched)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/v1/schedules/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	sched, err := s.repo.GetSchedule(r.Context(), domain.ScheduleID(id))
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			s.writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.logger.Error("failed to load schedule", "schedule_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	s.writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/v1/schedules/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	if _, err := s.repo.GetSchedule(r.Context(), domain.ScheduleID(id)); err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			s.writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	if err := s.repo.DeleteSchedule(r.Context(), domain.ScheduleID(id)); err != nil {
		s.logger.Error("failed to delete schedule", "schedule_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleToggleSchedule flips a schedule between active and paused.
// Completed one-shots stay completed.
func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/toggle")
	id := pathID(path, "/v1/schedules/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing schedule id")
		return
	}

	sched, err := s.repo.GetSchedule(r.Context(), domain.ScheduleID(id))
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			s.writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}

	switch sched.Status {
	case domain.ScheduleStatusActive:
		sched.Status = domain.ScheduleStatusPaused
	case domain.ScheduleStatusPaused:
		sched.Status = domain.ScheduleStatusActive
	default:
		s.writeError(w, http.StatusConflict, "completed schedules cannot be toggled")
		return
	}

	if err := s.repo.SaveSchedule(r.Context(), sched); err != nil {
		s.logger.Error("failed to save schedule", "schedule_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save schedule")
		return
	}

	s.writeJSON(w, http.StatusOK, sched)
}
