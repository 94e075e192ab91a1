package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	PagesFetched     prometheus.Counter
	ArticlesTotal    prometheus.Counter
	BestsellersTotal prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		PagesFetched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_list_pages_fetched_total",
			Help: "The total number of list pages fetched",
		}),
		ArticlesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_articles_processed_total",
			Help: "The total number of detail pages processed",
		}),
		BestsellersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_bestsellers_found_total",
			Help: "The total number of bestseller articles found",
		}),
		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}), // e.g. 'fetch_failed', 'sink_failed'
	}
}

func (m *Metrics) IncErrorsTotal(errorType string) {
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
