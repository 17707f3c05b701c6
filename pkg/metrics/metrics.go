// Package metrics exposes the Prometheus registry used by artic-select.
// Metrics are declared with promauto in the package that records them;
// this package is the catalogue and the HTTP handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package records into.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer served by Handler.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metric catalogue
//
// API client (pkg/client):
//   - artic_requests_total{status} (Counter): requests by HTTP status or outcome
//   - artic_request_duration_seconds (Histogram): request latency
//   - artic_errors_total{class} (Counter): errors by class (client, server, rate_limit, network, decode)
//   - artic_retries_total{error_class} (Counter): retry attempts when retries are enabled
//   - artic_retry_exhausted_total{error_class} (Counter): requests that used every attempt
//
// Rate limiting (pkg/ratelimit):
//   - artic_rate_limit_waits_total (Counter): requests delayed by the token bucket or a pause
//   - artic_rate_limit_pauses_total (Counter): pauses triggered by 429 responses
//
// Response cache (pkg/cache):
//   - artic_response_cache_hits_total (Counter)
//   - artic_response_cache_misses_total (Counter)
//   - artic_response_cache_revalidated_total (Counter): 304 responses served from cache
//   - artic_response_cache_errors_total{operation} (Counter)
//
// Page cache (pkg/pagecache):
//   - artic_page_cache_hits_total (Counter)
//   - artic_page_cache_misses_total (Counter)
//   - artic_page_cache_pages (Gauge): pages held by live sessions
//
// Batch fetch (pkg/pagination):
//   - artic_batch_fetch_pages_total{outcome} (Counter): pages fetched by bulk batches
//   - artic_batch_fetch_duration_seconds (Histogram)
//
// Bulk selection (pkg/bulk):
//   - artic_bulk_selections_total{outcome} (Counter): ok, skipped, saturated, failed
//   - artic_bulk_selected_records_total (Counter): records added by bulk selection
//
// Example queries:
//
//   # Page cache hit rate
//   sum(rate(artic_page_cache_hits_total[5m])) /
//   (sum(rate(artic_page_cache_hits_total[5m])) + sum(rate(artic_page_cache_misses_total[5m])))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(artic_request_duration_seconds_bucket[5m]))
