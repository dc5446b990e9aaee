// Package api provides the HTTP API for the agent server.
// It exposes REST endpoints for agent lifecycle and SSE for log and
// event streaming.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/2811Yash/Voice-AI/internal/agent"
	"github.com/2811Yash/Voice-AI/internal/log"
	"github.com/2811Yash/Voice-AI/internal/sessions"
)

// ExitSentinel is the final line emitted on the log stream when the
// worker process ends.
const ExitSentinel = "agent process exited"

const defaultSessionLimit = 20

// Handler provides HTTP endpoints for agent operations.
type Handler struct {
	supervisor *agent.Supervisor
	sessions   *sessions.Service
	keepAlive  time.Duration
}

// HandlerConfig configures the API handler.
type HandlerConfig struct {
	// Supervisor manages the worker process lifecycle (required).
	Supervisor *agent.Supervisor
	// Sessions serves run history (optional; /sessions 404s when nil).
	Sessions *sessions.Service
	// KeepAlive is the idle interval between SSE ping comments.
	// Zero means the 25s default.
	KeepAlive time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(cfg HandlerConfig) *Handler {
	keepAlive := cfg.KeepAlive
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &Handler{
		supervisor: cfg.Supervisor,
		sessions:   cfg.Sessions,
		keepAlive:  keepAlive,
	}
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Agent lifecycle
	mux.HandleFunc("POST /start", h.StartAgent)
	mux.HandleFunc("POST /stop", h.StopAgent)
	mux.HandleFunc("GET /status", h.Status)

	// Streaming
	mux.HandleFunc("GET /logs/stream", h.StreamLogs)
	mux.HandleFunc("GET /events/stream", h.StreamEvents)

	// History
	mux.HandleFunc("GET /sessions", h.Sessions)

	// Health check
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

// === Request/Response Types ===

// StartRequest is the request body for starting the agent.
// All fields are optional; empty values fall back to configured defaults.
type StartRequest struct {
	Instructions string `json:"instructions,omitempty"`
	Voice        string `json:"voice,omitempty"`
	Model        string `json:"model,omitempty"`
}

// AgentResponse is the response body for lifecycle endpoints.
type AgentResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	PID     int    `json:"pid,omitempty"`
}

// StatusResponse is the response body for GET /status.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the response body for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Agent  string `json:"agent"`
}

// SessionResponse is the response body for a single session.
type SessionResponse struct {
	GUID      string     `json:"guid"`
	Model     string     `json:"model"`
	Voice     string     `json:"voice"`
	PID       int        `json:"pid"`
	State     string     `json:"state"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ListSessionsResponse is the response body for listing sessions.
type ListSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// === Handlers ===

// StartAgent launches the worker process.
// POST /start
func (h *Handler) StartAgent(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	pid, err := h.supervisor.Start(r.Context(), agent.StartConfig{
		Instructions: req.Instructions,
		Voice:        req.Voice,
		Model:        req.Model,
	})
	if errors.Is(err, agent.ErrAlreadyRunning) {
		h.writeJSON(w, http.StatusOK, AgentResponse{
			Message: "Agent already running",
			Status:  string(agent.StatusRunning),
		})
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to start agent", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, AgentResponse{
		Message: "Agent started",
		Status:  string(agent.StatusRunning),
		PID:     pid,
	})
}

// StopAgent terminates the worker process.
// POST /stop
func (h *Handler) StopAgent(w http.ResponseWriter, r *http.Request) {
	err := h.supervisor.Stop(r.Context())
	if errors.Is(err, agent.ErrNotRunning) {
		h.writeJSON(w, http.StatusOK, AgentResponse{
			Message: "Agent was not running",
			Status:  string(agent.StatusStopped),
		})
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to stop agent", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, AgentResponse{
		Message: "Agent stopped",
		Status:  string(agent.StatusStopped),
	})
}

// Status reports whether the agent is running.
// GET /status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: string(h.supervisor.Status())})
}

// Health returns the server health and current agent state.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Agent:  string(h.supervisor.Status()),
	})
}

// Sessions returns recent agent runs, newest first.
// GET /sessions?limit=N
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		h.writeError(w, http.StatusNotFound, "Session history not enabled", "")
		return
	}

	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = parsed
	}

	list, err := h.sessions.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list sessions", err.Error())
		return
	}

	resp := ListSessionsResponse{
		Sessions: make([]SessionResponse, 0, len(list)),
		Total:    len(list),
	}
	for _, s := range list {
		resp.Sessions = append(resp.Sessions, SessionResponse{
			GUID:      s.GUID(),
			Model:     s.Model(),
			Voice:     s.Voice(),
			PID:       s.PID(),
			State:     s.State().String(),
			StartedAt: s.StartedAt(),
			EndedAt:   s.EndedAt(),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// StreamLogs streams raw worker output lines via SSE.
// GET /logs/stream
func (h *Handler) StreamLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := h.beginStream(w)
	if !ok {
		return
	}

	sub, backlog := h.supervisor.Logs().Subscribe()
	defer h.supervisor.Logs().Unsubscribe(sub)

	emit := func(line agent.LogLine) bool {
		if line.End {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", ExitSentinel)
			flusher.Flush()
			return false
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", line.Text)
		flusher.Flush()
		return true
	}

	for _, ev := range backlog {
		if !emit(ev.Payload) {
			return
		}
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !emit(ev.Payload) {
				return
			}
		}
	}
}

// StreamEvents streams structured transcript and state events via SSE.
// GET /events/stream
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := h.beginStream(w)
	if !ok {
		return
	}

	sub, backlog := h.supervisor.Events().Subscribe()
	defer h.supervisor.Events().Unsubscribe(sub)

	emit := func(ev agent.Event) bool {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error(log.CatAPI, "failed to marshal event", "error", err)
			return true
		}
		_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
		return !ev.IsTerminal()
	}

	for _, ev := range backlog {
		if !emit(ev.Payload) {
			return
		}
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if !emit(ev.Payload) {
				return
			}
		}
	}
}

// === Helpers ===

// beginStream sets SSE headers and returns the flusher for the connection.
func (h *Handler) beginStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Streaming not supported", "")
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return flusher, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
