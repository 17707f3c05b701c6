package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/artic-select/internal/testutil"
	"github.com/Sternrassler/artic-select/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const testUserAgent = "artic-select-test/1.0 (test@example.com)"

// setupTestRedis creates a test Redis client.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // Use a separate DB for tests
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func newTestClient(t *testing.T, mock *testutil.MockArtic, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig(testUserAgent)
	cfg.BaseURL = mock.URL() + "/api/v1"
	cfg.RateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "valid config",
			config: DefaultConfig(testUserAgent),
		},
		{
			name:   "empty base url uses default",
			config: Config{UserAgent: testUserAgent},
		},
		{
			name:        "empty user agent",
			config:      DefaultConfig(""),
			expectError: true,
		},
		{
			name:        "relative base url",
			config:      Config{UserAgent: testUserAgent, BaseURL: "api/v1"},
			expectError: true,
		},
		{
			name:        "negative retries",
			config:      Config{UserAgent: testUserAgent, MaxRetries: -1},
			expectError: true,
		},
		{
			name:        "page size above api limit",
			config:      Config{UserAgent: testUserAgent, PageSize: MaxPageSize + 1},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.expectError {
				t.Errorf("New() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(testUserAgent)

	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.Cache != nil {
		t.Error("Cache should be disabled by default")
	}
	if cfg.PageSize != 12 {
		t.Errorf("PageSize = %d, want 12", cfg.PageSize)
	}
}

func TestFetchPage_SendsPageSizeAsLimit(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 50))
	defer mock.Close()
	c := newTestClient(t, mock, func(cfg *Config) { cfg.PageSize = 20 })

	page, err := c.FetchPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	ids := page.IDs()
	if len(ids) != 20 || ids[0] != 21 || ids[19] != 40 {
		t.Errorf("IDs() = %v, want 21..40", ids)
	}

	last, err := c.FetchPage(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchPage(3) failed: %v", err)
	}
	if len(last.Records) != 10 {
		t.Errorf("last page has %d records, want 10", len(last.Records))
	}
}

func TestFetchPage_Success(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 30))
	defer mock.Close()
	c := newTestClient(t, mock, nil)

	page, err := c.FetchPage(context.Background(), 2)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if page.Number != 2 {
		t.Errorf("Number = %d, want 2", page.Number)
	}
	if page.Total != 30 {
		t.Errorf("Total = %d, want 30", page.Total)
	}
	ids := page.IDs()
	if len(ids) != 12 || ids[0] != 13 || ids[11] != 24 {
		t.Errorf("IDs() = %v, want 13..24", ids)
	}
	if page.Records[0].Title != "Artwork 13" {
		t.Errorf("Title = %q", page.Records[0].Title)
	}
}

func TestFetchPage_LastPageAndBeyond(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 30))
	defer mock.Close()
	c := newTestClient(t, mock, nil)

	last, err := c.FetchPage(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchPage(3) failed: %v", err)
	}
	if len(last.Records) != 6 {
		t.Errorf("last page has %d records, want 6", len(last.Records))
	}

	beyond, err := c.FetchPage(context.Background(), 9)
	if err != nil {
		t.Fatalf("FetchPage(9) failed: %v", err)
	}
	if len(beyond.Records) != 0 || beyond.Records == nil {
		t.Errorf("page beyond range should be empty and non-nil, got %v", beyond.Records)
	}
}

func TestFetchPage_SendsIdentificationHeaders(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 5))
	defer mock.Close()
	c := newTestClient(t, mock, nil)

	if _, err := c.FetchPage(context.Background(), 1); err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	h := mock.LastRequestHeader()
	if h.Get("User-Agent") != testUserAgent {
		t.Errorf("User-Agent = %q", h.Get("User-Agent"))
	}
	if h.Get(HeaderAICUserAgent) != testUserAgent {
		t.Errorf("%s = %q", HeaderAICUserAgent, h.Get(HeaderAICUserAgent))
	}
	if h.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", h.Get("Accept"))
	}
}

func TestFetchPage_InvalidPage(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 5))
	defer mock.Close()
	c := newTestClient(t, mock, nil)

	_, err := c.FetchPage(context.Background(), 0)
	if !errors.Is(err, ErrInvalidPage) {
		t.Errorf("error = %v, want ErrInvalidPage", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestFetchPage_ErrorClasses(t *testing.T) {
	tests := []struct {
		name      string
		response  testutil.MockResponse
		wantClass ErrorClass
		wantCode  int
	}{
		{name: "server error", response: testutil.NewServerErrorResponse(), wantClass: ErrorClassServer, wantCode: 500},
		{name: "not found", response: testutil.NewNotFoundResponse(), wantClass: ErrorClassClient, wantCode: 404},
		{name: "rate limited", response: testutil.NewTooManyRequestsResponse(1), wantClass: ErrorClassRateLimit, wantCode: 429},
		{
			name:      "malformed body",
			response:  testutil.MockResponse{StatusCode: 200, Body: `{"data": [`},
			wantClass: ErrorClassDecode,
			wantCode:  200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockArtic(testutil.Records(1, 24))
			defer mock.Close()
			mock.SetPageResponse(1, tt.response)
			c := newTestClient(t, mock, nil)

			_, err := c.FetchPage(context.Background(), 1)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.ErrorClass != tt.wantClass {
				t.Errorf("ErrorClass = %q, want %q", apiErr.ErrorClass, tt.wantClass)
			}
			if apiErr.StatusCode != tt.wantCode {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantCode)
			}
			if mock.RequestCount() != 1 {
				t.Errorf("RequestCount = %d, want 1 (no automatic retries)", mock.RequestCount())
			}
		})
	}
}

func TestFetchPage_RetriesWhenEnabled(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 24))
	defer mock.Close()

	var calls atomic.Int32
	mock.SetHandler("/api/v1/artworks", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body := testutil.ArtworksBody{Data: testutil.Records(1, 12)}
		body.Pagination.Total = 24
		json.NewEncoder(w).Encode(body)
	})

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.MaxRetries = 2
		cfg.InitialBackoff = time.Millisecond
	})

	page, err := c.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(page.Records) != 12 {
		t.Errorf("got %d records, want 12", len(page.Records))
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestFetchPage_TooManyRequestsPausesLimiter(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 24))
	defer mock.Close()
	mock.SetPageResponse(1, testutil.NewTooManyRequestsResponse(30))
	c := newTestClient(t, mock, nil)

	if _, err := c.FetchPage(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	state := c.RateLimitState()
	if !state.IsPaused() {
		t.Fatal("limiter should be paused after 429")
	}
	if state.TimeUntilResume() < 25*time.Second {
		t.Errorf("TimeUntilResume = %v, want ~30s", state.TimeUntilResume())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.FetchPage(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("paused request error = %v, want deadline exceeded", err)
	}
	if mock.PageRequestCount(2) != 0 {
		t.Error("paused limiter should hold the request")
	}
}

func TestFetchPage_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockArtic(testutil.Records(1, 24))
	defer mock.Close()
	mock.SetPageResponse(1, testutil.MockResponse{StatusCode: 200, Body: "{}", Delay: 200 * time.Millisecond})
	c := newTestClient(t, mock, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorClass != ErrorClassNetwork {
		t.Errorf("error = %v, want network APIError", err)
	}
}

func TestFetchPage_CacheServesFreshResponses(t *testing.T) {
	mgr := cache.NewManager(setupTestRedis(t))
	mock := testutil.NewMockArtic(testutil.Records(1, 24))
	defer mock.Close()
	c := newTestClient(t, mock, func(cfg *Config) { cfg.Cache = mgr })

	for i := 0; i < 3; i++ {
		page, err := c.FetchPage(context.Background(), 1)
		if err != nil {
			t.Fatalf("FetchPage #%d failed: %v", i, err)
		}
		if len(page.Records) != 12 {
			t.Errorf("FetchPage #%d returned %d records", i, len(page.Records))
		}
	}

	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}

func TestFetchPage_CacheRevalidatesStaleResponses(t *testing.T) {
	mgr := cache.NewManager(setupTestRedis(t))
	mock := testutil.NewMockArtic(testutil.Records(1, 24))
	defer mock.Close()

	mock.SetHandler("/api/v1/artworks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.Header().Set("Cache-Control", "max-age=300")
			w.WriteHeader(http.StatusNotModified)
			return
		}
		body := testutil.ArtworksBody{Data: testutil.Records(1, 12)}
		body.Pagination.Total = 24
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Cache-Control", "max-age=0")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(body)
	})

	c := newTestClient(t, mock, func(cfg *Config) { cfg.Cache = mgr })
	ctx := context.Background()

	if _, err := c.FetchPage(ctx, 1); err != nil {
		t.Fatalf("first FetchPage failed: %v", err)
	}

	page, err := c.FetchPage(ctx, 1)
	if err != nil {
		t.Fatalf("revalidated FetchPage failed: %v", err)
	}
	if len(page.Records) != 12 || page.Total != 24 {
		t.Errorf("revalidated page = %d records, total %d", len(page.Records), page.Total)
	}
	if mock.ConditionalCount() != 1 {
		t.Errorf("ConditionalCount = %d, want 1", mock.ConditionalCount())
	}

	// Refreshed by the 304, so served from cache.
	if _, err := c.FetchPage(ctx, 1); err != nil {
		t.Fatalf("third FetchPage failed: %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("RequestCount = %d, want 2", mock.RequestCount())
	}
}
