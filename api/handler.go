// Package api serves conversation sessions over HTTP. Every question
// response has the same shape the terminal UI shows.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/DachengChen/askSQL/assistant"
	"github.com/DachengChen/askSQL/db"
	"github.com/DachengChen/askSQL/metrics"
	"github.com/DachengChen/askSQL/querylog"
)

const maxBodyBytes = 64 << 10

// Asker answers questions within a session.
type Asker interface {
	Ask(ctx context.Context, s *assistant.Session, question string) (*assistant.Response, error)
	Explain(ctx context.Context, question, sql string) string
}

// Schemas exposes the shared schema snapshot.
type Schemas interface {
	Schema(ctx context.Context) (*db.Schema, error)
	Refresh(ctx context.Context) (*db.Schema, error)
}

// QueryLog lists past turns.
type QueryLog interface {
	List(ctx context.Context, f querylog.Filter) ([]querylog.Entry, error)
	Stats(ctx context.Context) (querylog.Stats, error)
}

type Dependencies struct {
	Logger   *slog.Logger
	Sessions *assistant.Manager
	Pipeline Asker
	Schemas  Schemas
	// QueryLog is optional.
	QueryLog QueryLog
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     int       `json:"turns"`
}

type questionRequest struct {
	Question string `json:"question"`
}

type explainRequest struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

func NewHandler(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "asksql"})
	})
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, toSession(deps.Sessions.Create()))
	})
	mux.HandleFunc("GET /v1/sessions", func(w http.ResponseWriter, _ *http.Request) {
		sessions := deps.Sessions.List()
		out := make([]sessionResponse, len(sessions))
		for i, s := range sessions {
			out[i] = toSession(s)
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
	})
	mux.HandleFunc("DELETE /v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !deps.Sessions.Delete(r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /v1/sessions/{id}/questions", func(w http.ResponseWriter, r *http.Request) {
		handleQuestion(deps, w, r)
	})
	mux.HandleFunc("POST /v1/sessions/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		s.Reset()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /v1/sessions/{id}/history", func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(deps, w, r)
		if !ok {
			return
		}
		turns := s.History.All()
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer", false)
				return
			}
			turns = s.History.Recent(limit)
		}
		writeJSON(w, http.StatusOK, map[string]any{"session_id": s.ID, "turns": turns})
	})

	mux.HandleFunc("POST /v1/explain", func(w http.ResponseWriter, r *http.Request) {
		var req explainRequest
		if !decode(w, r, &req) {
			return
		}
		if req.SQL == "" {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", false)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"explanation": deps.Pipeline.Explain(r.Context(), req.Question, req.SQL)})
	})

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Schemas.Schema(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})
	mux.HandleFunc("POST /v1/schema/refresh", func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Schemas.Refresh(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "SCHEMA_UNAVAILABLE", err.Error(), true)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	mux.HandleFunc("GET /v1/querylog", func(w http.ResponseWriter, r *http.Request) {
		if deps.QueryLog == nil {
			writeError(w, http.StatusNotFound, "QUERY_LOG_DISABLED", "query log is disabled", false)
			return
		}
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		entries, err := deps.QueryLog.List(r.Context(), querylog.Filter{
			SessionID: q.Get("session_id"),
			Status:    q.Get("status"),
			Limit:     limit,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "QUERY_LOG_FAILED", err.Error(), true)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
	})
	mux.HandleFunc("GET /v1/querylog/stats", func(w http.ResponseWriter, r *http.Request) {
		if deps.QueryLog == nil {
			writeError(w, http.StatusNotFound, "QUERY_LOG_DISABLED", "query log is disabled", false)
			return
		}
		st, err := deps.QueryLog.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "QUERY_LOG_FAILED", err.Error(), true)
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	var h http.Handler = mux
	h = metrics.Middleware(h)
	if deps.Logger != nil {
		h = metrics.Logging(deps.Logger)(h)
	}
	return h
}

func handleQuestion(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	s, ok := lookup(deps, w, r)
	if !ok {
		return
	}
	var req questionRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := deps.Pipeline.Ask(r.Context(), s, req.Question)
	if err != nil && resp == nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), false)
		return
	}
	status := http.StatusOK
	if resp.Error != nil {
		status = statusFor(resp.Error.Kind)
	}
	writeJSON(w, status, resp)
}

// statusFor maps a turn error kind to an HTTP status.
func statusFor(kind string) int {
	switch kind {
	case assistant.KindInvalidInput:
		return http.StatusBadRequest
	case assistant.KindPolicy, assistant.KindExtraction, string(db.SyntaxError), string(db.NotPermitted):
		return http.StatusUnprocessableEntity
	case "rate_limited":
		return http.StatusTooManyRequests
	case "auth_failure", "unavailable", "invalid_response":
		return http.StatusBadGateway
	case string(db.Timeout):
		return http.StatusGatewayTimeout
	case string(db.ConnectionLost):
		return http.StatusServiceUnavailable
	case assistant.KindCanceled:
		return 499
	}
	return http.StatusInternalServerError
}

func lookup(deps Dependencies, w http.ResponseWriter, r *http.Request) (*assistant.Session, bool) {
	s, ok := deps.Sessions.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false)
	}
	return s, ok
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large", false)
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error(), false)
		return false
	}
	return true
}

func toSession(s *assistant.Session) sessionResponse {
	return sessionResponse{ID: s.ID, CreatedAt: s.CreatedAt, Turns: s.History.Len()}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, retryable bool) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
	})
}
