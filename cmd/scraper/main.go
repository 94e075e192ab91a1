package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scraper/internal/api"
	"scraper/internal/config"
	"scraper/internal/fetch"
	"scraper/internal/monitoring"
	"scraper/internal/proxy"
	"scraper/internal/scraper"
	"scraper/internal/storage"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}
	if cfg.LogLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	}

	// Initialize Storage Layer
	csvSink := storage.NewCSVSink(cfg.CSVFilename, cfg.CSVEncoding, logger)
	sinks := []scraper.Sink{csvSink}

	var pgSink *storage.PostgresSink
	if cfg.PostgresURL != "" {
		pgSink, err = storage.NewPostgresSink(cfg.PostgresURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pgSink.Close()
		sinks = append(sinks, pgSink)
	}

	var visitedStore *storage.VisitedStore
	var visited scraper.VisitedStore
	if cfg.RedisAddr != "" {
		ttl := time.Duration(cfg.VisitedTTLDays) * 24 * time.Hour
		visitedStore = storage.NewVisitedStore(cfg.RedisAddr, ttl)
		visited = visitedStore
	}

	// Initialize Monitoring, Proxies
	metrics := monitoring.NewMetrics()
	proxyManager := proxy.NewManager(
		config.SplitList(cfg.Proxies),
		config.SplitList(cfg.UserAgents),
		time.Now().UnixNano(),
	)

	// Initialize Fetcher and Core Scraper
	fetcher := fetch.NewFetcher(fetch.Options{
		Timeout:      time.Duration(cfg.RequestTimeout) * time.Second,
		TLSVerify:    cfg.TLSVerify,
		MaxRedirects: cfg.MaxRedirects,
		MaxRetries:   cfg.MaxRetries,
		BaseDelay:    time.Duration(cfg.RetryBaseDelay * float64(time.Second)),
	}, proxyManager, logger)

	coreScraper := scraper.NewScraper(cfg, fetcher, sinks, visited, metrics, logger)

	// Initialize API Server
	server := api.NewServer(cfg, coreScraper, pgSink, visitedStore, metrics, logger)

	// Graceful Shutdown
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	coreScraper.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
