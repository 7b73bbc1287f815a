package api

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"sasu-tax/adapters/storage"
	"sasu-tax/api/envelope"
	"sasu-tax/core/rates"
	"sasu-tax/internal/errors"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Options configures a Server
type Options struct {
	Registry *rates.Registry
	Store    storage.Store

	// DefaultYear applies when a request names no tax year
	DefaultYear int

	Version string
	Logger  *zap.Logger

	CORSOrigins []string

	// RateLimitPerMinute is the per-IP budget on /api/v1; zero disables limiting
	RateLimitPerMinute int
}

// Server is the API server
type Server struct {
	registry    *rates.Registry
	store       storage.Store
	defaultYear int
	version     string
	logger      *zap.Logger
	router      chi.Router

	// limiter is nil when rate limiting is disabled
	limiter *ipLimiter
}

// NewServer creates the API server and registers its routes
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = storage.NewMemoryStore()
	}

	s := &Server{
		registry:    opts.Registry,
		store:       store,
		defaultYear: opts.DefaultYear,
		version:     opts.Version,
		logger:      logger,
		router:      chi.NewRouter(),
	}

	s.registerRoutes(opts)
	return s
}

func (s *Server) registerRoutes(opts Options) {
	r := s.router

	r.Use(requestUUID)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(s.rateLimit(opts.RateLimitPerMinute))
		}

		r.Route("/tax", func(r chi.Router) {
			r.Post("/calculate", s.handleCalculate)
			r.Post("/optimize", s.handleOptimize)
			r.Post("/compare-years", s.handleCompareYears)

			r.Post("/calculations", s.handleSaveCalculation)
			r.Get("/calculations", s.handleListCalculations)
			r.Get("/calculations/{id}", s.handleGetCalculation)
			r.Put("/calculations/{id}", s.handleUpdateCalculation)
			r.Delete("/calculations/{id}", s.handleDeleteCalculation)
		})

		r.Get("/rates", s.handleListRates)
		r.Get("/rates/{year}", s.handleGetRates)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, recorderFor(r), http.StatusNotFound, string(errors.TypeNotFound), "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, recorderFor(r), http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path)
	})
}

// Close stops background work started by NewServer. The store is left open.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":  "healthy",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// handleVersion handles GET /version
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"version":      s.version,
		"engine":       "sasu-tax",
		"api_version":  "v1",
		"tax_years":    s.registry.Years(),
		"default_year": s.defaultYear,
	}, http.StatusOK)
}

func recorderFor(r *http.Request) *envelope.Recorder {
	return envelope.Start(middleware.GetReqID(r.Context()))
}

// decode reads a JSON body strictly: unknown fields and trailing data are rejected
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.TypeInvalidInput, "invalid JSON body", err)
	}
	if dec.More() {
		return errors.InvalidInput("invalid JSON body: unexpected data after the object")
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, rec *envelope.Recorder, data interface{}, status int) {
	s.writeJSON(w, rec.Success(data), status)
}

func (s *Server) writeError(w http.ResponseWriter, rec *envelope.Recorder, status int, code, message string) {
	s.writeJSON(w, rec.Failure(code, message), status)
}

// writeFailure maps a domain error onto a status code
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, rec *envelope.Recorder, err error) {
	errType := errors.TypeOf(err)

	status := http.StatusInternalServerError
	switch errType {
	case errors.TypeInvalidInput:
		status = http.StatusBadRequest
	case errors.TypeNotFound:
		status = http.StatusNotFound
	case errors.TypeNoFeasibleSolution:
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	s.writeError(w, rec, status, string(errType), errorMessage(err))
}

func errorMessage(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) {
		if e.Cause != nil && e.Type == errors.TypeInvalidInput {
			return e.Message + ": " + e.Cause.Error()
		}
		return e.Message
	}
	return err.Error()
}
