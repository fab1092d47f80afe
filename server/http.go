package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/graphql-go/relay"

	"procinfo/api"
	"procinfo/collector"
	"procinfo/query"
)

const requestIDHeader = "X-Request-ID"

// statusClientClosed is logged for queries the client abandoned.
const statusClientClosed = 499

// Handler returns the HTTP routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	gql := &relay.Handler{Schema: s.schema}
	mux.Handle("POST /{$}", gql)
	mux.Handle("POST /graphql", gql)
	mux.HandleFunc("GET /{$}", servePlayground)

	mux.HandleFunc("GET /api/processes", s.handleProcesses)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.logRequests(mux)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	f, err := query.ParseValues(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, api.CodeInvalidFilter, err)
		return
	}

	procs, err := s.engine.Execute(r.Context(), f)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, procs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:       "ok",
		Version:      s.version,
		Host:         s.hostInfo(r.Context()),
		Capabilities: s.caps,
	})
}

func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, api.CodeInvalidFilter, err)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// client went away during the settle delay, nobody reads the body
		s.logger.Debug("query abandoned", "path", r.URL.Path, "error", err)
		w.WriteHeader(statusClientClosed)
	case errors.Is(err, collector.ErrEnumeration):
		s.logger.Error("process enumeration failed", "error", err)
		writeError(w, http.StatusInternalServerError, api.CodeEnumerationFailed, err)
	default:
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, api.CodeInternal, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, api.ErrorResponse{Error: err.Error(), Code: code})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
