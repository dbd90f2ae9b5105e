package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// handleNotificationStream serves the SSE feed of workflow completions.
// Every connection gets its own subscriber; the subscription is torn down
// exactly once when the client goes away, however that happens.
func (s *Server) handleNotificationStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	clientID, ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(clientID)

	connected, _ := json.Marshal(map[string]string{
		"message":   "Connected to workflow notifications",
		"client_id": clientID,
	})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()

	heartbeat := time.NewTicker(s.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				// Dropped by the broadcaster for falling behind.
				return
			}
			data, err := json.Marshal(n)
			if err != nil {
				s.logger.Error("failed to marshal notification", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: workflow_completed\ndata: %s\n\n", data)
			flusher.Flush()
		case <-heartbeat.C:
			data, _ := json.Marshal(map[string]string{
				"timestamp": time.Now().Format(time.RFC3339),
			})
			fmt.Fprintf(w, "event: heartbeat\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) handleNotificationStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.notifier.Stats())
}

func (s *Server) handleRecentNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	notifications := s.notifier.Recent(limit)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}
