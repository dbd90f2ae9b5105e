package server

import (
	"errors"
	"net/http"

	"github.com/openpulse/pulse/internal/core/domain"
)

func (s *Server) handleListNewsletters(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")

	newsletters, err := s.repo.ListNewsletters(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list newsletters", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list newsletters")
		return
	}
	if newsletters == nil {
		newsletters = []domain.Newsletter{}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"newsletters": newsletters,
		"count":       len(newsletters),
	})
}

func (s *Server) handleGetNewsletter(w http.ResponseWriter, r *http.Request) {
	id := pathID(r.URL.Path, "/v1/newsletters/")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing newsletter id")
		return
	}

	nl, err := s.repo.GetNewsletter(r.Context(), domain.NewsletterID(id))
	if err != nil {
		if errors.Is(err, domain.ErrNewsletterNotFound) {
			s.writeError(w, http.StatusNotFound, "newsletter not found")
			return
		}
		s.logger.Error("failed to load newsletter", "newsletter_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load newsletter")
		return
	}

	s.writeJSON(w, http.StatusOK, nl)
}
