// Package http exposes the data-access layer over JSON endpoints. Every
// identifier in a request body is validated by the lower layers before any
// SQL runs; this package only translates between JSON shapes and typed
// errors on one side and repository calls on the other.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/tablekit/tablekit/pkg/errors"
	"github.com/tablekit/tablekit/server/aggregate"
	"github.com/tablekit/tablekit/server/config"
	"github.com/tablekit/tablekit/server/query"
	"github.com/tablekit/tablekit/server/repository"
	"github.com/tablekit/tablekit/server/schema"
	"github.com/tablekit/tablekit/utils"
)

// Server represents the HTTP protocol server
type Server struct {
	engine *query.Engine
	repo   *repository.Repository
	logger zerolog.Logger
	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a new HTTP server instance
func NewServer(engine *query.Engine, repo *repository.Repository, logger zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		engine: engine,
		repo:   repo,
		logger: logger.With().Str("component", "http-server").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Handler returns the fully-routed handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/select", s.handleSelect)
	mux.HandleFunc("/create", s.handleCreate)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/delete", s.handleDelete)
	mux.HandleFunc("/distinct-values", s.handleDistinctValues)
	mux.HandleFunc("/distinct-rows", s.handleDistinctRows)
	mux.HandleFunc("/aggregate-records", s.handleAggregateRecords)
	mux.HandleFunc("/tree", s.handleTree)

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/health", s.handleHealth)

	return s.withRequestLogging(mux)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !config.HTTP_SERVER_ENABLED {
		s.logger.Info().Msg("HTTP server is disabled")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", config.DEFAULT_SERVER_ADDRESS, config.HTTP_SERVER_PORT)
	s.logger.Info().Str("address", addr).Msg("Starting HTTP server")

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.logger.Info().Msg("HTTP server started successfully")
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping HTTP server")

	s.cancel()

	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("Error during HTTP server shutdown")
		}
	}

	s.wg.Wait()

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// GetStatus returns server status
func (s *Server) GetStatus() map[string]interface{} {
	return map[string]interface{}{
		"enabled": config.HTTP_SERVER_ENABLED,
		"address": config.DEFAULT_SERVER_ADDRESS,
		"port":    config.HTTP_SERVER_PORT,
	}
}

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withRequestLogging tags every request with a ULID and logs its outcome.
func (s *Server) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := utils.GenerateULIDString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError maps a typed error onto an HTTP status. Validation failures
// carry their message to the caller; everything else gets a generic body
// with the detail only in the log.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := "internal server error"
	if status != http.StatusInternalServerError {
		message = err.Error()
	} else {
		s.logger.Error().Err(err).Msg("Request failed")
	}
	s.writeJSON(w, status, map[string]any{
		"error": message,
		"code":  errors.GetCode(err),
	})
}

func statusForError(err error) int {
	switch {
	case errors.HasCode(err, schema.ErrUnknownTable),
		errors.HasCode(err, schema.ErrUnknownColumn),
		errors.HasCode(err, schema.ErrInvalidIdentifier),
		errors.HasCode(err, query.ErrValidationFailed),
		errors.HasCode(err, query.ErrInvalidDirection),
		errors.HasCode(err, query.ErrInvalidFilter),
		errors.HasCode(err, query.ErrInvalidValue),
		errors.HasCode(err, query.ErrEmptyProperties),
		errors.HasCode(err, repository.ErrUnknownProperty),
		errors.HasCode(err, aggregate.ErrUnknownType):
		return http.StatusBadRequest
	case errors.HasCode(err, repository.ErrParentNotFound):
		return http.StatusNotFound
	case errors.HasCode(err, query.ErrConstraintViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}
