package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"scraper/internal/domain"
	"scraper/internal/scraper"
)

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req domain.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	keywords := scraper.ParseKeywords(req.Keywords)
	if !s.scraper.Start(keywords) {
		s.respondWithError(w, http.StatusConflict, "Scraper is already running")
		return
	}

	s.logger.Info("scraping task started", zap.Strings("keywords", keywords))
	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Scraping task started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if !s.scraper.Stop() {
		s.respondWithError(w, http.StatusConflict, "Scraper is not running")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stop requested"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondWithJSON(w, http.StatusOK, s.scraper.Job().Status())
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.Atoi(r.URL.Query().Get("last_index"))
	logs, next := s.scraper.Job().Logs(since)
	s.respondWithJSON(w, http.StatusOK, domain.LogsResponse{Logs: logs, NextIndex: next})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.respondWithJSON(w, http.StatusOK, s.scraper.Job().Preview(limit))
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := map[string]string{"scraper": "healthy"}
	isHealthy := true

	if s.pgSink != nil {
		if err := s.pgSink.Ping(ctx); err != nil {
			healthStatus["postgres"] = "unhealthy"
			isHealthy = false
			s.logger.Error("health check failed for postgres", zap.Error(err))
		} else {
			healthStatus["postgres"] = "healthy"
		}
	}

	if s.visited != nil {
		if err := s.visited.Ping(ctx); err != nil {
			healthStatus["redis"] = "unhealthy"
			isHealthy = false
			s.logger.Error("health check failed for redis", zap.Error(err))
		} else {
			healthStatus["redis"] = "healthy"
		}
	}

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
