package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/lacquerai/gambit/internal/dataset"
	"github.com/lacquerai/gambit/internal/engine"
	"github.com/lacquerai/gambit/internal/stats"
)

// SplitResponse is the body of GET /api/v1/splits/{name}.
type SplitResponse struct {
	RunID        string            `json:"run_id"`
	Shape        engine.SplitShape `json:"shape"`
	Distribution *stats.Summary    `json:"distribution,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// latestOr503 returns the latest report or answers 503 itself.
func (s *Server) latestOr503(w http.ResponseWriter) *engine.Report {
	report := s.store.Latest()
	if report != nil {
		return report
	}

	body := map[string]any{"error": "no report available yet"}
	if err := s.store.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
	return nil
}

// getReport returns the latest report
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	if report := s.latestOr503(w); report != nil {
		writeJSON(w, http.StatusOK, report)
	}
}

// getSplit returns the shape and, when computed, the distribution of a split
func (s *Server) getSplit(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	split, err := dataset.ParseSplit(name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("split '%s' not found", name))
		return
	}

	report := s.latestOr503(w)
	if report == nil {
		return
	}

	shape, ok := report.Shape(split)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("split '%s' not found", name))
		return
	}

	resp := SplitResponse{RunID: report.RunID, Shape: shape}
	if summary, ok := report.Distribution(split); ok {
		resp.Distribution = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

// refresh reruns the pipeline and returns the new report
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	report, err := s.Refresh(r.Context())
	switch {
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		log.Info().
			Str("run_id", report.RunID).
			Dur("duration", report.Duration).
			Msg("Dataset refreshed")
		writeJSON(w, http.StatusOK, report)
	}
}

// streamEvents upgrades to a websocket that receives the events of every
// subsequent run
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	s.hub.Add(conn)
	defer func() {
		s.hub.Remove(conn)
		conn.Close()
	}()

	// Reads only detect the client going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":           "healthy",
		"report_available": s.store.Latest() != nil,
		"refreshing":       s.manager.Running(),
		"clients":          s.hub.Count(),
		"timestamp":        time.Now(),
	}
	if last := s.store.LastRun(); !last.IsZero() {
		body["last_run"] = last
	}
	if err := s.store.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}
