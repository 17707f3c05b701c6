// Package client provides the Art Institute of Chicago API client with rate
// limiting, optional response caching, and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/cache"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public artic.edu API root.
const DefaultBaseURL = "https://api.artic.edu/api/v1"

// MaxPageSize is the largest limit the artworks endpoint accepts.
const MaxPageSize = 100

// HeaderAICUserAgent is the header the artic API asks clients to identify with.
const HeaderAICUserAgent = "AIC-User-Agent"

var (
	articRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_requests_total",
		Help: "Total artic API requests by status",
	}, []string{"status"})

	articRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_request_duration_seconds",
		Help:    "artic API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	articErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_errors_total",
		Help: "Total artic API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root; "/artworks" is appended to it.
	BaseURL string

	// UserAgent identifies the application (REQUIRED).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// PageSize is sent as the limit parameter so the server pages the
	// collection the same way the caller counts pages (default 12, max 100).
	PageSize int

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// Rate limiting
	RateLimit float64 // requests per second, <= 0 disables
	Burst     int

	// Retry. Zero MaxRetries means every request is attempted once.
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache is an optional shared response cache.
	Cache *cache.Manager

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      userAgent,
		PageSize:       artwork.DefaultPageSize,
		Timeout:        30 * time.Second,
		RateLimit:      ratelimit.DefaultRequestsPerSecond,
		Burst:          ratelimit.DefaultBurst,
		MaxRetries:     0,
		InitialBackoff: time.Second,
	}
}

// Client fetches artwork pages from the artic API. It implements
// artwork.PageSource.
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Manager
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

var _ artwork.PageSource = (*Client)(nil)

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = artwork.DefaultPageSize
	}
	if cfg.PageSize > MaxPageSize {
		return nil, fmt.Errorf("page size must be <= %d (got %d)", MaxPageSize, cfg.PageSize)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	logger := logging.NewLogger("artic-client")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit,
			Burst:             cfg.Burst,
		}, logger),
		cache:   cfg.Cache,
		baseURL: base,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
//
// Server errors, 429s, and network failures are returned as errors (after any
// configured retries). Other non-2xx statuses are returned to the caller.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		articRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Cache lookup
	cacheKey := cache.KeyForRequest(req)
	var cachedEntry *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		switch {
		case err == nil:
			cachedEntry = entry
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	if cachedEntry != nil && !cachedEntry.IsExpired() {
		cache.CacheHits.Inc()
		articRequestsTotal.WithLabelValues("cache_hit").Inc()
		c.logger.Debug().
			Str("key", cacheKey.String()).
			Dur("ttl", cachedEntry.TTL()).
			Msg("Serving response from cache")
		return cache.EntryToResponse(cachedEntry, req), nil
	}

	// Step 2: Conditional request for a stale entry
	if cachedEntry != nil && cache.CanRevalidate(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 3: Identification headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set(HeaderAICUserAgent, c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 4: Execute with rate limiting and optional retry
	var resp *http.Response
	retryCfg := RetryConfigFor(c.config.MaxRetries, c.config.InitialBackoff)
	err := retryWithBackoff(ctx, retryCfg, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			articErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			articRequestsTotal.WithLabelValues("network_error").Inc()
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}

		c.limiter.Observe(resp)
		articRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		errClass := classify(resp, nil)
		if errClass == "" {
			return nil
		}

		articErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("artic request error")

		if shouldRetry(errClass) {
			resp.Body.Close()
			return &APIError{StatusCode: resp.StatusCode, ErrorClass: errClass, Message: resp.Status}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Step 5: 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		resp.Body.Close()
		cache.Revalidated.Inc()
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		refreshed, err := c.cache.Refresh(ctx, cacheKey, cache.Freshness(resp.Header, time.Now()))
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
			refreshed = cachedEntry
		}
		return cache.EntryToResponse(refreshed, req), nil
	}

	// Step 6: Store successful responses
	if resp.StatusCode == http.StatusOK && c.cache != nil {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			resp.Body.Close()
			return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
		}
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// artworksResponse is the subset of the /artworks document the client reads.
type artworksResponse struct {
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
	Data []artwork.Record `json:"data"`
}

// FetchPage retrieves one page of artworks.
func (c *Client) FetchPage(ctx context.Context, page int) (artwork.Page, error) {
	if page < 1 {
		return artwork.Page{}, fmt.Errorf("%w (got %d)", ErrInvalidPage, page)
	}

	u := *c.baseURL
	u.Path = u.Path + "/artworks"
	u.RawQuery = url.Values{
		"page":  []string{strconv.Itoa(page)},
		"limit": []string{strconv.Itoa(c.config.PageSize)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return artwork.Page{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return artwork.Page{}, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return artwork.Page{}, fmt.Errorf("fetch page %d: %w", page, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classify(resp, nil),
			Message:    strings.TrimSpace(string(body)),
		})
	}

	var doc artworksResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		articErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return artwork.Page{}, fmt.Errorf("fetch page %d: %w", page, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "invalid artworks document",
			Err:        err,
		})
	}
	if doc.Data == nil {
		doc.Data = []artwork.Record{}
	}

	c.logger.Debug().
		Int("page", page).
		Int("records", len(doc.Data)).
		Int("total", doc.Pagination.Total).
		Msg("Fetched page")

	return artwork.Page{Number: page, Records: doc.Data, Total: doc.Pagination.Total}, nil
}

// RateLimitState returns the limiter state.
func (c *Client) RateLimitState() ratelimit.State {
	return c.limiter.State()
}

// Cache returns the response cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
