package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"friendify/internal/auth"
	"friendify/internal/db"
	"friendify/internal/reconcile"
	"friendify/internal/refresh"
	"friendify/internal/spotify"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	CronSecret   string
	Database     *db.DB
	Logger       *log.Logger
}

// Server is the HTTP server for the Friendify API.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions SessionManager
	handlers *Handlers
	logger   *log.Logger
}

// NewServer creates a new web server and wires the full service graph:
// authenticator, token client, reconciler, and refresh orchestrator.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr)
	}

	authenticator := auth.New(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI)
	tokenClient := spotify.NewTokenClient(cfg.ClientID)
	reconciler := reconcile.New(cfg.Database.Tracks())
	refresher := refresh.New(
		cfg.Database.Users(),
		cfg.Database.Tracks(),
		tokenClient,
		refresh.TrackSourceFunc(spotify.FetchTopTracks),
		reconciler,
		refresh.WithLogger(cfg.Logger),
	)
	sessions := NewDBSessionStore(cfg.Database)

	handlers := &Handlers{
		auth:        authenticator,
		tokens:      tokenClient,
		sessions:    sessions,
		users:       cfg.Database.Users(),
		tracks:      cfg.Database.Tracks(),
		reconciler:  reconciler,
		refresher:   refresher,
		redirectURI: cfg.RedirectURI,
		cronSecret:  cfg.CronSecret,
		logger:      cfg.Logger,
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: sessions,
		handlers: handlers,
		logger:   cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handlers.Home)

	// Auth routes
	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Post("/auth/logout", s.handlers.Logout)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/me", s.handlers.Me)
		r.Get("/tracks", s.handlers.AllTracks)
		r.Get("/getTrackOfDay", s.handlers.GetTrackOfDay)
		r.Get("/updateTrackOfDay", s.handlers.UpdateTrackOfDay)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
