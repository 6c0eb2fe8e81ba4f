// Package questionserver exposes the question broker's ask/answer/skip/
// reject concurrency contract over HTTP, so an out-of-process client
// (an editor extension, a TUI, a remote collaborator) can resolve a
// question() tool call it did not itself invoke in-process.
package questionserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opencode-ai/opencode-engine/internal/apperr"
	"github.com/opencode-ai/opencode-engine/internal/question"
)

// Config holds server configuration.
type Config struct {
	Port         int
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8799,
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server is the HTTP surface for a question.Broker.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	broker  *question.Broker
}

// New creates a Server wrapping broker.
func New(cfg *Config, broker *question.Broker) *Server {
	r := chi.NewRouter()

	s := &Server{
		config: cfg,
		router: r,
		broker: broker,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Route("/session/{sessionID}/questions", func(r chi.Router) {
		r.Get("/", s.listPending)
		r.Get("/first", s.getFirst)
		r.Post("/{questionID}/answer", s.answerQuestion)
		r.Post("/{questionID}/skip", s.skipQuestion)
		r.Post("/{questionID}/reject", s.rejectQuestion)
	})
}

// Start starts the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeAppErr maps a typed apperr.Kind to an HTTP status and writes it.
func writeAppErr(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case apperr.NotFound:
		writeError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case apperr.Cancelled:
		writeError(w, http.StatusConflict, ErrCodeInvalidRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
	}
}
