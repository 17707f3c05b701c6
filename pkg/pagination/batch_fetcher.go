package pagination

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	batchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_batch_fetch_pages_total",
		Help: "Total pages requested by batch fetches by outcome",
	}, []string{"outcome"}) // "ok", "failed", "cancelled"

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "artic_batch_fetch_duration_seconds",
		Help:    "Duration of complete batch fetches in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})
)

// ErrIncompleteBatch is returned when workers stopped before every page arrived.
var ErrIncompleteBatch = errors.New("batch fetch incomplete")

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests.
	// The artic API allows 60 req/min, so a handful of workers is plenty.
	MaxConcurrency int

	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageError identifies the page that made a batch fail.
type PageError struct {
	Page int
	Err  error
}

// Error implements the error interface.
func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PageError) Unwrap() error {
	return e.Err
}

// pageResult represents the result of fetching a single page
type pageResult struct {
	pageNumber int
	page       artwork.Page
	err        error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher struct {
	source artwork.PageSource
	config Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(source artwork.PageSource, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{
		source: source,
		config: config,
	}
}

// FetchPages fetches the given pages in parallel. It returns a map of page
// number to page holding every requested page, or nil and an error. On
// failure the error is a *PageError for the first page that failed.
func (bf *BatchFetcher) FetchPages(ctx context.Context, pages []int) (map[int]artwork.Page, error) {
	queue := normalize(pages)
	if len(queue) == 0 {
		return map[int]artwork.Page{}, nil
	}

	start := time.Now()
	log.Debug().
		Ints("pages", queue).
		Int("workers", min(bf.config.MaxConcurrency, len(queue))).
		Msg("Starting batch page fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int, len(queue))
	for _, p := range queue {
		pageQueue <- p
	}
	close(pageQueue)

	pageResults := make(chan pageResult, len(queue))

	var wg sync.WaitGroup
	for i := 0; i < min(bf.config.MaxConcurrency, len(queue)); i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	results := make(map[int]artwork.Page, len(queue))
	var firstErr error
	for result := range pageResults {
		if result.err != nil {
			if firstErr == nil {
				firstErr = &PageError{Page: result.pageNumber, Err: result.err}
				cancel()
			}
			continue
		}
		results[result.pageNumber] = result.page
	}

	if firstErr == nil && len(results) < len(queue) {
		firstErr = fmt.Errorf("%w: %d/%d pages: %w", ErrIncompleteBatch, len(results), len(queue), ctx.Err())
	}

	if firstErr != nil {
		unfetched := len(queue) - len(results)
		var pageErr *PageError
		if errors.As(firstErr, &pageErr) {
			batchPagesTotal.WithLabelValues("failed").Inc()
			unfetched--
		}
		batchPagesTotal.WithLabelValues("cancelled").Add(float64(unfetched))
		log.Warn().
			Err(firstErr).
			Ints("pages", queue).
			Int("fetched", len(results)).
			Dur("duration", time.Since(start)).
			Msg("Batch fetch failed - discarding pages")
		return nil, firstErr
	}

	batchPagesTotal.WithLabelValues("ok").Add(float64(len(results)))
	batchDuration.Observe(time.Since(start).Seconds())
	log.Debug().
		Int("pages", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return results, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher) worker(ctx context.Context, pageQueue <-chan int, results chan<- pageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.source.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
		}

		// results is buffered for every page, so this never blocks
		results <- pageResult{pageNumber: pageNum, page: page, err: err}
		if err != nil {
			return
		}
		pagesProcessed++
	}
}

// normalize drops invalid and duplicate page numbers and sorts the rest.
func normalize(pages []int) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p >= 1 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
