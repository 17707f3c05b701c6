package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
)

// MockResponse defines a canned response for one page of the mock API.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockArtic is a configurable mock of the artic.edu artworks endpoint.
// By default it serves the records it was created with, twelve per page
// unless the request carries a limit parameter.
type MockArtic struct {
	server   *httptest.Server
	mu       sync.RWMutex
	records  []artwork.Record
	pageSize int
	pages    map[int]MockResponse
	handlers map[string]http.HandlerFunc

	requestCount      int
	conditionalCount  int
	pageCounts        map[int]int
	lastRequestHeader http.Header
}

// NewMockArtic starts a mock server over the given records.
func NewMockArtic(records []artwork.Record) *MockArtic {
	mock := &MockArtic{
		records:    records,
		pageSize:   artwork.DefaultPageSize,
		pages:      make(map[int]MockResponse),
		handlers:   make(map[string]http.HandlerFunc),
		pageCounts: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		mock.mu.Lock()
		mock.requestCount++
		mock.pageCounts[page]++
		mock.lastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, hasHandler := mock.handlers[r.URL.Path]
		canned, hasCanned := mock.pages[page]
		mock.mu.Unlock()

		switch {
		case hasHandler:
			handler(w, r)
		case hasCanned:
			writeCanned(w, canned)
		default:
			mock.defaultHandler(w, r, page)
		}
	}))

	return mock
}

// URL returns the base URL of the mock API.
func (m *MockArtic) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockArtic) Close() {
	m.server.Close()
}

// SetHandler overrides the handler for a path.
func (m *MockArtic) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPageResponse configures a canned response for a page number.
func (m *MockArtic) SetPageResponse(page int, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// ClearPageResponse restores default behaviour for a page number.
func (m *MockArtic) ClearPageResponse(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, page)
}

// RequestCount returns the number of requests served.
func (m *MockArtic) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PageRequestCount returns how often a page number was requested.
func (m *MockArtic) PageRequestCount(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pageCounts[page]
}

// ConditionalCount returns the number of conditional requests served.
func (m *MockArtic) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockArtic) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// Reset clears all tracking counters.
func (m *MockArtic) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.pageCounts = make(map[int]int)
	m.lastRequestHeader = nil
}

func (m *MockArtic) defaultHandler(w http.ResponseWriter, r *http.Request, page int) {
	limit := m.pageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	etag := fmt.Sprintf(`"page-%d-limit-%d"`, page, limit)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, err := json.Marshal(m.pageBody(page, limit))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// ArtworksBody mirrors the JSON document returned by GET /artworks.
type ArtworksBody struct {
	Pagination struct {
		Total       int `json:"total"`
		Limit       int `json:"limit"`
		Offset      int `json:"offset"`
		TotalPages  int `json:"total_pages"`
		CurrentPage int `json:"current_page"`
	} `json:"pagination"`
	Data []artwork.Record `json:"data"`
}

// pageBody builds the document for page with limit records per page, the
// way the artic API honours the limit parameter.
func (m *MockArtic) pageBody(page, limit int) ArtworksBody {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var body ArtworksBody
	total := len(m.records)
	body.Pagination.Total = total
	body.Pagination.Limit = limit
	body.Pagination.Offset = (page - 1) * limit
	body.Pagination.TotalPages = artwork.TotalPages(total, limit)
	body.Pagination.CurrentPage = page
	body.Data = []artwork.Record{}

	start := (page - 1) * limit
	if page >= 1 && start < total {
		end := min(start+limit, total)
		body.Data = append(body.Data, m.records[start:end]...)
	}
	return body
}

func writeCanned(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"status": 500, "error": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewTooManyRequestsResponse creates a 429 response with a Retry-After header.
func NewTooManyRequestsResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"status": 429, "error": "Too many requests"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  strconv.Itoa(retryAfter),
		},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"status": 404, "error": "Not found"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
