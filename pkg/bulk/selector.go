// Package bulk implements "select the first N" across a paginated collection.
//
// A Selector plans which pages it needs starting from the page in view,
// batch fetches the ones the page cache does not hold yet, and only then
// commits records to the selection store in ascending page order and in the
// order the source returned them. A failed fetch commits nothing.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/pagecache"
	"github.com/Sternrassler/artic-select/pkg/selection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	bulkSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "artic_bulk_selections_total",
		Help: "Total bulk selections by outcome",
	}, []string{"outcome"}) // "completed", "saturated", "noop", "failed", "invalid"

	bulkSelectedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_bulk_selected_records_total",
		Help: "Total records added to selections by bulk selection",
	})
)

// ErrInvalidTarget is returned for a target count below 1.
var ErrInvalidTarget = errors.New("bulk target must be a positive integer")

// Fetcher loads a batch of pages, all or nothing.
type Fetcher interface {
	FetchPages(ctx context.Context, pages []int) (map[int]artwork.Page, error)
}

// Config holds selector configuration.
type Config struct {
	// PageSize is the fixed number of records per page.
	PageSize int

	// Policy relates the target to the current selection size.
	Policy Policy
}

// Request describes one bulk selection.
type Request struct {
	// Target is the count entered by the user.
	Target int

	// StartPage is the page in view. Pages before it are not considered.
	StartPage int

	// TotalRecords is the collection size. When zero the total reported by
	// the start page is used, fetching it if it is not cached.
	TotalRecords int
}

// Result reports what a bulk selection did.
type Result struct {
	// Added holds the records this call selected, in commit order.
	Added []artwork.Record

	// Selected is the store size after the call.
	Selected int

	// FetchedPages lists the pages that had to be fetched, ascending.
	FetchedPages []int

	// Skipped counts walked records that were already selected.
	Skipped int

	// Saturated is set when the collection ran out before the target was met.
	Saturated bool
}

// Selector runs bulk selections against one session's cache and store.
type Selector struct {
	cache   *pagecache.Cache
	store   *selection.Store
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger

	// commitMu keeps commit phases strictly sequential.
	commitMu sync.Mutex
}

// NewSelector creates a selector.
func NewSelector(cache *pagecache.Cache, store *selection.Store, fetcher Fetcher, cfg Config) *Selector {
	if cfg.PageSize <= 0 {
		cfg.PageSize = artwork.DefaultPageSize
	}
	return &Selector{
		cache:   cache,
		store:   store,
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.NewLogger("bulk-selector"),
	}
}

// Policy returns the configured policy.
func (s *Selector) Policy() Policy {
	return s.config.Policy
}

// Select grows the selection store towards req.Target.
func (s *Selector) Select(ctx context.Context, req Request) (Result, error) {
	if req.Target <= 0 {
		bulkSelectionsTotal.WithLabelValues("invalid").Inc()
		return Result{Selected: s.store.Size()}, fmt.Errorf("%w (got %d)", ErrInvalidTarget, req.Target)
	}

	start := time.Now()
	startPage := max(req.StartPage, 1)
	need := s.config.Policy.needed(req.Target, s.store.Size())
	if need <= 0 {
		bulkSelectionsTotal.WithLabelValues("noop").Inc()
		s.logger.Debug().
			Int("target", req.Target).
			Int("selected", s.store.Size()).
			Msg("Bulk target already met")
		return Result{Selected: s.store.Size()}, nil
	}

	var fetched []int
	total := req.TotalRecords
	if total <= 0 {
		p, wasFetched, err := s.startPage(ctx, startPage)
		if err != nil {
			bulkSelectionsTotal.WithLabelValues("failed").Inc()
			return Result{Selected: s.store.Size()}, fmt.Errorf("bulk select: %w", err)
		}
		if wasFetched {
			fetched = append(fetched, startPage)
		}
		total = p.Total
	}
	totalPages := artwork.TotalPages(total, s.config.PageSize)

	planned, lastPage, err := s.plan(ctx, startPage, totalPages, total, need)
	fetched = append(fetched, planned...)
	if err != nil {
		bulkSelectionsTotal.WithLabelValues("failed").Inc()
		s.logger.Warn().
			Err(err).
			Int("target", req.Target).
			Int("start_page", startPage).
			Msg("Bulk selection aborted")
		return Result{Selected: s.store.Size(), FetchedPages: fetched}, fmt.Errorf("bulk select: %w", err)
	}

	res := s.commit(startPage, lastPage, need)
	res.FetchedPages = fetched

	outcome := "completed"
	if res.Saturated {
		outcome = "saturated"
	}
	bulkSelectionsTotal.WithLabelValues(outcome).Inc()
	bulkSelectedRecords.Add(float64(len(res.Added)))

	s.logger.Info().
		Str("policy", s.config.Policy.String()).
		Int("target", req.Target).
		Int("added", len(res.Added)).
		Int("selected", res.Selected).
		Ints("pages", fetched).
		Bool("saturated", res.Saturated).
		Dur("duration", time.Since(start)).
		Msg("Bulk selection complete")

	return res, nil
}

// startPage returns the start page from the cache, fetching it when the
// collection total is not known yet.
func (s *Selector) startPage(ctx context.Context, n int) (artwork.Page, bool, error) {
	if p, ok := s.cache.Get(n); ok {
		return p, false, nil
	}
	pages, err := s.fetcher.FetchPages(ctx, []int{n})
	if err != nil {
		return artwork.Page{}, false, err
	}
	p, ok := pages[n]
	if !ok {
		return artwork.Page{}, false, fmt.Errorf("page %d missing from batch", n)
	}
	p.Number = n
	s.cache.Put(p)
	return p, true, nil
}

// plan makes sure every page needed to find `need` unselected records is in
// the cache. Uncached pages are assumed to be full; if fetched pages turn out
// to hold fewer candidates, planning continues with the next pages.
// It returns the fetched pages and the last page the commit has to walk.
func (s *Selector) plan(ctx context.Context, startPage, totalPages, total, need int) ([]int, int, error) {
	var fetched []int
	candidates := 0
	page := startPage
	seen := make(map[int]bool)

	for candidates < need && page <= totalPages {
		var missing []int
		for candidates < need && page <= totalPages {
			if p, ok := s.cache.Get(page); ok {
				candidates += s.unselected(p, seen)
			} else {
				missing = append(missing, page)
				candidates += artwork.PageLen(page, total, s.config.PageSize)
			}
			page++
		}
		if len(missing) == 0 {
			break
		}

		s.logger.Debug().
			Ints("pages", missing).
			Int("need", need).
			Msg("Fetching pages for bulk selection")

		pages, err := s.fetcher.FetchPages(ctx, missing)
		if err != nil {
			return fetched, 0, err
		}
		for _, n := range missing {
			p, ok := pages[n]
			if !ok {
				return fetched, 0, fmt.Errorf("page %d missing from batch", n)
			}
			p.Number = n
			s.cache.Put(p)
		}
		for _, n := range missing {
			fetched = append(fetched, n)
			cached, _ := s.cache.Get(n)
			candidates += s.unselected(cached, seen) - artwork.PageLen(n, total, s.config.PageSize)
		}
	}

	return fetched, page - 1, nil
}

// commit walks the planned pages in order and adds unselected records.
func (s *Selector) commit(startPage, lastPage, need int) Result {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	var res Result
	for n := startPage; n <= lastPage && len(res.Added) < need; n++ {
		p, ok := s.cache.Get(n)
		if !ok {
			continue
		}
		for _, r := range p.Records {
			if len(res.Added) == need {
				break
			}
			if s.store.Add(r) {
				res.Added = append(res.Added, r)
			} else {
				res.Skipped++
			}
		}
	}

	res.Selected = s.store.Size()
	res.Saturated = len(res.Added) < need
	return res
}

// unselected counts the records of p that are neither selected nor already
// counted in seen, and marks them as seen. A record repeated across pages
// is a single candidate.
func (s *Selector) unselected(p artwork.Page, seen map[int]bool) int {
	n := 0
	for _, r := range p.Records {
		if seen[r.ID] || s.store.IsSelected(r.ID) {
			continue
		}
		seen[r.ID] = true
		n++
	}
	return n
}
