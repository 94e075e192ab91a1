package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scraper/internal/config"
	"scraper/internal/domain"
	"scraper/internal/fetch"
	"scraper/internal/monitoring"
	"scraper/internal/proxy"
	"scraper/internal/scraper"
)

type discardSink struct{}

func (discardSink) Save(ctx context.Context, records []domain.ArticleRecord) error {
	return nil
}

func newTestServer(t *testing.T, baseURL string) *Server {
	t.Helper()
	cfg := &config.Config{
		BaseURL:        baseURL,
		Selectors:      config.Selectors{ArticleLinks: "a.article-link"},
		MaxPages:       1,
		MaxRetries:     1,
		RequestTimeout: 5,
		TLSVerify:      true,
		MaxRedirects:   5,
		ServerPort:     "0",
	}
	fetcher := fetch.NewFetcher(fetch.Options{
		Timeout:      5 * time.Second,
		TLSVerify:    true,
		MaxRedirects: 5,
		MaxRetries:   1,
		BaseDelay:    time.Millisecond,
	}, proxy.NewManager(nil, nil, 1), zap.NewNop())

	m := testMetrics()
	sc := scraper.NewScraper(cfg, fetcher, []scraper.Sink{discardSink{}}, nil, m, zap.NewNop())
	return NewServer(cfg, sc, nil, nil, m, zap.NewNop())
}

var metricsOnce sync.Once
var sharedMetrics *monitoring.Metrics

// promauto registers globally, so all tests share one Metrics value.
func testMetrics() *monitoring.Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = monitoring.NewMetrics()
	})
	return sharedMetrics
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleStopWhenIdle(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodPost, "/api/stop", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "Scraper is not running", body["error"])
}

func TestHandleStatusShape(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var status domain.StatusResponse
	decodeJSON(t, rec, &status)
	assert.False(t, status.IsRunning)
	assert.Zero(t, status.TotalLinks)
}

func TestHandleStartRejectsSecondStart(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer upstream.Close()
	defer close(release)

	s := newTestServer(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/start", strings.NewReader(`{"keywords":"合同, 侵权"}`))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/start", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Stop the in-flight run and wait for it to wind down.
	req = httptest.NewRequest(http.MethodPost, "/api/stop", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	deadline := time.Now().Add(5 * time.Second)
	for s.scraper.Job().Status().IsRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, s.scraper.Job().Status().IsRunning)
}

func TestHandleStartAcceptsEmptyBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body></body></html>`)
	}))
	defer upstream.Close()

	s := newTestServer(t, upstream.URL)

	req := httptest.NewRequest(http.MethodPost, "/api/start", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	deadline := time.Now().Add(5 * time.Second)
	for s.scraper.Job().Status().IsRunning && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandleLogsCursor(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")
	s.scraper.Job().Logf("manual line one")
	s.scraper.Job().Logf("manual line two")

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var logs domain.LogsResponse
	decodeJSON(t, rec, &logs)
	require.Len(t, logs.Logs, 2)
	assert.Equal(t, 2, logs.NextIndex)

	req = httptest.NewRequest(http.MethodGet, "/api/logs?last_index=2", nil)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	decodeJSON(t, rec, &logs)
	assert.Empty(t, logs.Logs)
	assert.Equal(t, 2, logs.NextIndex)
}

func TestHandlePreviewEmpty(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/preview?limit=5", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var preview domain.PreviewResponse
	decodeJSON(t, rec, &preview)
	assert.Empty(t, preview.Items)
	assert.Zero(t, preview.Total)
}

func TestHandleHealthWithoutOptionalStores(t *testing.T) {
	s := newTestServer(t, "http://127.0.0.1:0")

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decodeJSON(t, rec, &body)
	assert.Equal(t, "healthy", body["scraper"])
}
