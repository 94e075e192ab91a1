package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"scraper/internal/config"
	"scraper/internal/monitoring"
	"scraper/internal/scraper"
	"scraper/internal/storage"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	scraper    *scraper.Scraper
	pgSink     *storage.PostgresSink // nil when not configured
	visited    *storage.VisitedStore // nil when not configured
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, sc *scraper.Scraper, pg *storage.PostgresSink, vs *storage.VisitedStore, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:  cfg,
		scraper: sc,
		pgSink:  pg,
		visited: vs,
		metrics: m,
		logger:  l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
