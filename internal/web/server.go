package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/realtime"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	service        *attendance.Service
	hub            *realtime.Hub
	sessionManager *middleware.SessionManager
	authGate       *middleware.AuthGate
}

// NewServer creates a new web server. sessionRepo may be nil, in which case
// operator sessions live only in memory. operators may be nil, which disables
// operator registration.
func NewServer(cfg *config.Config, port int, host string, svc *attendance.Service, hub *realtime.Hub,
	sessionRepo middleware.SessionRepository, operators middleware.OperatorRepository) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(cfg.Auth.SessionSecret, sessionRepo)

	authGate := middleware.NewAuthGate(cfg.Auth.Enabled(), operators)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := authGate.Load(ctx); err != nil {
		log.Printf("Warning: %v", err)
	}

	s := &Server{
		config:         cfg,
		router:         r,
		service:        svc,
		hub:            hub,
		sessionManager: sessionManager,
		authGate:       authGate,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: the attendance stream is long-lived and sets its own write deadlines.
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	s.sessionManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
