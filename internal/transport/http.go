package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/JamesPrial/bookstore-api/internal/storage"
	"github.com/JamesPrial/bookstore-api/pkg/books"
	"github.com/JamesPrial/bookstore-api/pkg/config"
	"github.com/JamesPrial/bookstore-api/pkg/errors"
	"github.com/JamesPrial/bookstore-api/pkg/logging"
)

const (
	defaultListLimit = 100
	readTimeout      = 15 * time.Second
	writeTimeout     = 30 * time.Second
)

// BackendResolver produces the storage backend for a request cycle. The
// binding to a concrete adapter happens here on every call, so a registry
// reset takes effect without restarting the server.
type BackendResolver func(ctx context.Context) (storage.Backend, error)

// Server is the REST HTTP surface over the book storage backends
type Server struct {
	cfg     *config.Settings
	resolve BackendResolver
	router  *mux.Router
	server  *http.Server
	logger  *slog.Logger
}

// NewServer creates the HTTP server and wires up all routes
func NewServer(cfg *config.Settings, resolve BackendResolver) *Server {
	s := &Server{
		cfg:     cfg,
		resolve: resolve,
		router:  mux.NewRouter(),
		logger:  logging.GetGlobalLogger("transport.http"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/books", s.handleCreateBook).Methods(http.MethodPost)
	s.router.HandleFunc("/books", s.handleListBooks).Methods(http.MethodGet)
	// /books/search must be registered before /books/{id} so "search" is not
	// taken as an identifier
	s.router.HandleFunc("/books/search", s.handleSearchBooks).Methods(http.MethodGet)
	s.router.HandleFunc("/books/{id}", s.handleGetBook).Methods(http.MethodGet)
	s.router.HandleFunc("/books/{id}", s.handleUpdateBook).Methods(http.MethodPut)
	s.router.HandleFunc("/books/{id}", s.handleDeleteBook).Methods(http.MethodDelete)
}

// Start begins listening for HTTP requests and blocks until the context is
// cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.HTTPHost, s.cfg.HTTPPort)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.logger.InfoContext(ctx, "HTTP server starting",
		slog.String("address", addr),
		slog.String("backend", s.cfg.DatabaseType),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.ErrorContext(ctx, "HTTP server error",
				slog.String("error", err.Error()),
			)
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoContext(ctx, "HTTP server context cancelled")
		return s.Stop(context.Background())
	case err := <-errChan:
		return err
	}
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error during HTTP server shutdown",
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.InfoContext(ctx, "HTTP server stopped")
	}
	return err
}

// ServeHTTP lets the server be driven directly by httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleIndex reports service information
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":             "Book catalog API",
		"status":              "running",
		"configured_database": s.cfg.DatabaseType,
		"endpoints": map[string]string{
			"health": "/health",
			"books":  "/books",
		},
	})
}

// handleHealth probes the configured backend. The probe itself never errors;
// a resolution failure or unhealthy status maps to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":             books.StatusUnhealthy,
			"configured_adapter": s.cfg.DatabaseType,
			"error":              errors.GetMessage(err),
		})
		return
	}

	health := backend.HealthCheck(ctx)
	status := http.StatusOK
	if !health.Healthy() {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, map[string]interface{}{
		"status":             health.Status,
		"configured_adapter": s.cfg.DatabaseType,
		"database":           health,
	})
}

type bookCreateRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   *int   `json:"year"`
}

// handleCreateBook creates a new book record
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req bookCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.ValidationInvalid("body", "malformed JSON"))
		return
	}
	if err := validateTitle(req.Title); err != nil {
		s.writeError(w, err)
		return
	}
	if err := validateAuthor(req.Author); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Year == nil {
		s.writeError(w, errors.ValidationRequired("year"))
		return
	}
	if err := validateYear(*req.Year); err != nil {
		s.writeError(w, err)
		return
	}

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	book, err := backend.CreateBook(ctx, req.Title, req.Author, *req.Year)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, book)
}

// handleListBooks returns books with pagination
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip, limit, perr := parsePaging(r)
	if perr != nil {
		s.writeError(w, perr)
		return
	}

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := backend.ListBooks(ctx, skip, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleSearchBooks filters books by title, author and year
func (s *Server) handleSearchBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter books.BookFilter
	q := r.URL.Query()
	if title := q.Get("title"); title != "" {
		filter.Title = &title
	}
	if author := q.Get("author"); author != "" {
		filter.Author = &author
	}
	if yearStr := q.Get("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			s.writeError(w, errors.ValidationInvalid("year", "must be an integer"))
			return
		}
		filter.Year = &year
	}

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := backend.SearchBooks(ctx, filter)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// handleGetBook returns a single book by id
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	book, err := backend.GetBook(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if book == nil {
		s.writeError(w, errors.NotFound("book", id))
		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

// handleUpdateBook applies a partial update and returns the resulting record
func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var upd books.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeError(w, errors.ValidationInvalid("body", "malformed JSON"))
		return
	}
	if upd.Title != nil {
		if err := validateTitle(*upd.Title); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if upd.Author != nil {
		if err := validateAuthor(*upd.Author); err != nil {
			s.writeError(w, err)
			return
		}
	}
	if upd.Year != nil {
		if err := validateYear(*upd.Year); err != nil {
			s.writeError(w, err)
			return
		}
	}

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	book, err := backend.UpdateBook(ctx, id, upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if book == nil {
		s.writeError(w, errors.NotFound("book", id))
		return
	}

	s.writeJSON(w, http.StatusOK, book)
}

// handleDeleteBook removes a book by id
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	backend, err := s.resolve(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}

	deleted, err := backend.DeleteBook(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !deleted {
		s.writeError(w, errors.NotFound("book", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func validateTitle(title string) *errors.AppError {
	if title == "" {
		return errors.ValidationRequired("title")
	}
	if len(title) > books.MaxTitleLength {
		return errors.ValidationInvalid("title", fmt.Sprintf("must be at most %d characters", books.MaxTitleLength))
	}
	return nil
}

func validateAuthor(author string) *errors.AppError {
	if author == "" {
		return errors.ValidationRequired("author")
	}
	if len(author) > books.MaxAuthorLength {
		return errors.ValidationInvalid("author", fmt.Sprintf("must be at most %d characters", books.MaxAuthorLength))
	}
	return nil
}

func validateYear(year int) *errors.AppError {
	if year < books.MinYear || year > books.MaxYear {
		return errors.Newf(errors.ErrCodeValidationRange,
			"year must be between %d and %d, got %d", books.MinYear, books.MaxYear, year)
	}
	return nil
}

func parsePaging(r *http.Request) (skip, limit int, err *errors.AppError) {
	skip, limit = 0, defaultListLimit
	q := r.URL.Query()

	if skipStr := q.Get("skip"); skipStr != "" {
		parsed, parseErr := strconv.Atoi(skipStr)
		if parseErr != nil {
			return 0, 0, errors.ValidationInvalid("skip", "must be an integer")
		}
		skip = parsed
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		parsed, parseErr := strconv.Atoi(limitStr)
		if parseErr != nil {
			return 0, 0, errors.ValidationInvalid("limit", "must be an integer")
		}
		limit = parsed
	}

	if skip < 0 {
		return 0, 0, errors.Newf(errors.ErrCodeValidationRange, "skip must be >= 0, got %d", skip)
	}
	if limit < 1 || limit > books.MaxListLimit {
		return 0, 0, errors.Newf(errors.ErrCodeValidationRange,
			"limit must be between 1 and %d, got %d", books.MaxListLimit, limit)
	}
	return skip, limit, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}

// writeError maps an error to its HTTP status and writes the client-safe
// error body. The internal cause is logged, never sent.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	httpErr := errors.ToHTTPError(err)
	if errors.IsServerError(err) {
		s.logger.Error("Request failed",
			slog.String("code", string(httpErr.Code)),
			slog.Any("cause", errors.GetInternal(err)),
		)
	}
	s.writeJSON(w, httpErr.Status, httpErr)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "Request completed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
