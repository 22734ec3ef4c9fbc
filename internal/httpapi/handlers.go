package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/1broseidon/dtop/internal/automation"
	"github.com/1broseidon/dtop/internal/desktop"
	"github.com/1broseidon/dtop/internal/platform"
)

const (
	defaultLogsLimit     = 50
	maxLogsLimit         = 500
	defaultRequestsLimit = 20
)

type windowResponse struct {
	ID     platform.WindowID `json:"id"`
	Title  string            `json:"title"`
	Bounds platform.Rect     `json:"bounds"`
}

type mapRequest struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Tolerance *float64 `json:"tolerance,omitempty"`
}

type automateRequest struct {
	WindowID platform.WindowID   `json:"window_id"`
	Actions  []automation.Action `json:"actions"`
}

type automateResponse struct {
	Status   string `json:"status"`
	RunID    string `json:"run_id"`
	Executed int    `json:"executed"`
	Warning  string `json:"warning,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	okJSON(w, map[string]string{"message": "API is running. See /api/v1/health."})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	okJSON(w, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.opts.Windows.List(r.Context())
	if err != nil {
		s.logger.Error("list windows failed", "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list windows: %v", err))
		return
	}
	out := make([]windowResponse, 0, len(windows))
	for _, win := range windows {
		out = append(out, windowResponse{ID: win.ID, Title: win.DisplayTitle(), Bounds: win.Bounds})
	}
	okJSON(w, out)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	id := platform.WindowID(chi.URLParam(r, "id"))
	shot, err := s.opts.Capture.Screenshot(r.Context(), id)
	if err != nil {
		s.logger.Warn("screenshot failed", "window_id", id, "error", err)
		writeError(w, http.StatusNotFound, fmt.Sprintf("Window not found or screenshot failed: %v", err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Length", strconv.Itoa(len(shot.PNG)))
	h.Set("X-Window-X", strconv.Itoa(shot.Bounds.X))
	h.Set("X-Window-Y", strconv.Itoa(shot.Bounds.Y))
	h.Set("X-Window-Width", strconv.Itoa(shot.Bounds.Width))
	h.Set("X-Window-Height", strconv.Itoa(shot.Bounds.Height))
	if shot.RestoreErr != nil {
		h.Set("X-Focus-Restore-Warning", shot.RestoreErr.Error())
	}
	w.WriteHeader(http.StatusOK)
	w.Write(shot.PNG)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	id := platform.WindowID(chi.URLParam(r, "id"))

	var req mapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tol := 0.0
	if req.Tolerance != nil {
		tol = *req.Tolerance
	}
	if tol <= 0 {
		tol = s.opts.Mapper.Tolerance()
	}

	pt, err := s.opts.Mapper.Map(r.Context(), id, req.X, req.Y, desktop.Size{Width: req.Width, Height: req.Height}, tol)
	switch {
	case err == nil:
		okJSON(w, pt)
	case errors.Is(err, desktop.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, desktop.ErrDriftExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, desktop.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("map failed", "window_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleAutomate(w http.ResponseWriter, r *http.Request) {
	var req automateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.WindowID == "" {
		writeError(w, http.StatusBadRequest, "window_id is required")
		return
	}

	report, err := s.opts.Automation.Run(r.Context(), req.WindowID, req.Actions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Automation failed: %v", err))
		return
	}

	resp := automateResponse{Status: "ok", RunID: report.RunID, Executed: report.Executed}
	if report.RestoreErr != nil {
		resp.Warning = report.RestoreErr.Error()
	}
	okJSON(w, resp)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, defaultLogsLimit, 1, maxLogsLimit)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("limit must be an integer between 1 and %d", maxLogsLimit))
		return
	}
	if s.opts.Requests == nil {
		okJSON(w, []json.RawMessage{})
		return
	}
	entries, err := s.opts.Requests.Tail(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read logs: %v", err))
		return
	}
	if entries == nil {
		entries = []json.RawMessage{}
	}
	okJSON(w, entries)
}

func (s *Server) handleRequestsLog(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r, defaultRequestsLimit, 1, 0)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
		return
	}
	if s.opts.Requests == nil {
		okJSON(w, map[string]any{"log": []string{}})
		return
	}
	lines, err := s.opts.Requests.AccessTail(limit)
	if err != nil {
		okJSON(w, map[string]any{"log": []string{}, "error": err.Error()})
		return
	}
	okJSON(w, map[string]any{"log": lines})
}
