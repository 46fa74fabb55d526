package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/LaunchDay-Studio-Inc/linesremain/internal/config"
	"github.com/LaunchDay-Studio-Inc/linesremain/internal/sim"
)

// Server ties the router, the WebSocket hub and the engine together
// behind one listener.
type Server struct {
	engine      *sim.Engine
	hub         *Hub
	router      *chi.Mux
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer wires the full API. Construction is side-effect free;
// nothing listens until Start.
func NewServer(engine *sim.Engine, loader PlayerLoader, cfg config.ServerConfig) *Server {
	s := &Server{
		engine:      engine,
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}
	s.hub = NewHub(engine, loader, cfg.MaxClients, cfg.MaxClientsPerIP, nil)
	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Hub:         s.hub,
		RateLimiter: s.rateLimiter,
	})
	return s
}

// Hub exposes the hub so the caller can wire it as the engine's sink.
func (s *Server) Hub() *Hub { return s.hub }

// Router returns the handler, for httptest in integration tests.
func (s *Server) Router() http.Handler { return s.router }

// Start listens and serves until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("api: listening on %s", addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener and the rate limiter sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
