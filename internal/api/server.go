package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"discshelf/internal/collection"
	"discshelf/internal/identification"
	"discshelf/internal/library"
	"discshelf/internal/logging"
	"discshelf/internal/matching"
	"discshelf/internal/services"
)

const maxBodyBytes = 1 << 20

// Resolver runs lookups.
type Resolver interface {
	Lookup(ctx context.Context, input string) (*identification.Result, error)
}

// Library is the collection surface the API writes through.
type Library interface {
	List(ctx context.Context, filter string) ([]collection.MovieRecord, error)
	Refresh(ctx context.Context) ([]collection.MovieRecord, error)
	AddCandidate(ctx context.Context, req library.AddRequest) (collection.AddResult, error)
	Remove(ctx context.Context, criteria collection.MovieRecord) (bool, error)
	ReadOnly() bool
	BackendName() string
}

// Options configures the server.
type Options struct {
	Bind           string
	AllowedOrigins []string
	Resolver       Resolver
	Library        Library
	Logger         *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	bind     string
	resolver Resolver
	library  Library
	logger   *slog.Logger
	router   chi.Router

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router. It does not listen until Start.
func NewServer(opts Options) (*Server, error) {
	if opts.Resolver == nil || opts.Library == nil {
		return nil, errors.New("api server requires a resolver and a library")
	}
	s := &Server{
		bind:     strings.TrimSpace(opts.Bind),
		resolver: opts.Resolver,
		library:  opts.Library,
		logger:   logging.NewComponentLogger(opts.Logger, "api"),
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.logger))
	r.Use(corsHandler(opts.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Route("/api", func(r chi.Router) {
		r.Get("/lookup", s.handleLookup)
		r.Get("/movies", s.handleListMovies)
		r.Post("/movies", s.handleAddMovie)
		r.Delete("/movies", s.handleDeleteMovie)
	})
	s.router = r

	s.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the bind address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.library.Refresh(r.Context()); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, r, http.StatusBadRequest, "query parameter q is required")
		return
	}
	result, err := s.resolver.Lookup(r.Context(), query)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromLookupResult(result))
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.library.List(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if movies == nil {
		movies = []collection.MovieRecord{}
	}
	s.writeJSON(w, http.StatusOK, MoviesResponse{
		Backend:  s.library.BackendName(),
		ReadOnly: s.library.ReadOnly(),
		Count:    len(movies),
		Movies:   movies,
	})
}

func (s *Server) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	var req AddMovieRequest
	if !s.decode(w, r, &req) {
		return
	}

	addReq := library.AddRequest{UPC: req.UPC, Note: req.Note}
	switch {
	case req.Candidate != nil:
		addReq.Candidate = *req.Candidate
	case strings.TrimSpace(req.Input) != "":
		candidate, upc, err := s.resolveCandidate(r.Context(), req.Input, req.Pick)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		addReq.Candidate = candidate
		if addReq.UPC == "" {
			addReq.UPC = upc
		}
	default:
		s.writeError(w, r, http.StatusBadRequest, "candidate or input is required")
		return
	}

	result, err := s.library.AddCandidate(r.Context(), addReq)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	s.writeJSON(w, status, AddMovieResponse{Record: result.Record, Duplicate: result.Duplicate, Movies: result.Movies})
}

// resolveCandidate looks input up and returns the auto-selected candidate or
// the picked choice. Ambiguous results without a pick are a validation error.
func (s *Server) resolveCandidate(ctx context.Context, input string, pick int) (matching.Candidate, string, error) {
	result, err := s.resolver.Lookup(ctx, input)
	if err != nil {
		return matching.Candidate{}, "", err
	}
	if pick > 0 {
		candidate, ok := result.Pick(pick)
		if !ok {
			return matching.Candidate{}, "", services.Wrap(services.ErrValidation, "api", "add", "pick "+strconv.Itoa(pick)+" is out of range", nil)
		}
		return candidate, result.UPC, nil
	}
	if candidate, ok := result.Selected(); ok {
		return candidate, result.UPC, nil
	}
	if result.NotFound() {
		return matching.Candidate{}, "", services.Wrap(services.ErrNotFound, "api", "add", input, nil)
	}
	return matching.Candidate{}, "", services.Wrap(services.ErrValidation, "api", "add", "several matches; choose one with pick", nil)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	var req DeleteMovieRequest
	if r.ContentLength != 0 {
		if !s.decode(w, r, &req) {
			return
		}
	} else {
		q := r.URL.Query()
		req.RecordID = q.Get("record_id")
		req.AddedAt = q.Get("added_at")
		req.Title = q.Get("title")
		req.UPC = q.Get("upc")
		if raw := q.Get("id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				s.writeError(w, r, http.StatusBadRequest, "id must be numeric")
				return
			}
			req.ExternalID = id
		}
	}
	if req == (DeleteMovieRequest{}) {
		s.writeError(w, r, http.StatusBadRequest, "no record criteria supplied")
		return
	}

	removed, err := s.library.Remove(r.Context(), CriteriaFromRequest(req))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, DeleteMovieResponse{Removed: removed})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// statusFor maps error markers to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrReadOnly):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrWriteConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrNetworkTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, services.ErrHTTP), errors.Is(err, services.ErrTransient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.StatusText(err)),
			logging.String(logging.FieldImpact, "client received an error"),
		)
	}
	s.writeError(w, r, status, services.StatusText(err))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	rid, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, status, ErrorResponse{Error: message, RequestID: rid})
}
