// Package api exposes the HTTP interface for the searchive service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/searchive/searchive/internal/archive"
	"github.com/searchive/searchive/internal/middleware"
	"github.com/searchive/searchive/internal/session"
)

// Pipeline runs one query through search, extraction and archival.
type Pipeline interface {
	Run(ctx context.Context, query string, count int, includeNews bool) (session.RunReport, error)
}

// Archive is the read-side of the archive consumed by inspection
// endpoints.
type Archive interface {
	Stats() archive.Stats
	URLEntry(key string) (archive.URLEntry, bool)
	URLCount() int
	DayFiles() ([]string, error)
}

// Server wires HTTP handlers to the pipeline and archive.
type Server struct {
	router   chi.Router
	pipeline Pipeline
	archive  Archive
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(pipeline Pipeline, archiveStore Archive, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: pipeline,
		archive:  archiveStore,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(middleware.Metrics)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/stats", s.getStats)
		r.Get("/files", s.listFiles)
		r.Get("/urls/{key}", s.getURLEntry)
		r.Post("/search", s.runSearch)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The archive is opened before the server starts; once serving, the
	// process is ready.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	stats := s.archive.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"search":     stats.Search,
		"extraction": stats.Extraction,
		"url_count":  s.archive.URLCount(),
	})
}

func (s *Server) listFiles(w http.ResponseWriter, _ *http.Request) {
	files, err := s.archive.DayFiles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list archive files")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) getURLEntry(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	entry, ok := s.archive.URLEntry(key)
	if !ok {
		writeError(w, http.StatusNotFound, "url not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

type searchRequest struct {
	Query       string `json:"query"`
	Count       int    `json:"count"`
	IncludeNews bool   `json:"include_news"`
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	report, err := s.pipeline.Run(r.Context(), req.Query, req.Count, req.IncludeNews)
	if err != nil && len(report.Results) == 0 {
		// The query call itself failed; nothing was produced.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	payload := map[string]any{"report": report}
	if err != nil {
		// Archival is a side effect: the pipeline output is still
		// returned, with the write failure reported alongside.
		payload["archive_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, payload)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
