// Package web runs the JSON API server.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mkadlec/facegallery/internal/config"
	"github.com/mkadlec/facegallery/internal/database"
	"github.com/mkadlec/facegallery/internal/identity"
	"github.com/mkadlec/facegallery/internal/web/handlers"
	"github.com/mkadlec/facegallery/internal/web/middleware"
)

// Server represents the API server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	engine   *identity.Engine
	faces    database.FaceStore
	people   database.PersonStore
	detector handlers.Detector
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	engine *identity.Engine,
	faces database.FaceStore,
	people database.PersonStore,
	detector handlers.Detector,
) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		router:   r,
		engine:   engine,
		faces:    faces,
		people:   people,
		detector: detector,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(5 * time.Minute))
	r.Use(middleware.CORS())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // long timeout for photo uploads
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
