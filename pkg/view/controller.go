// Package view drives one selection session: the page in view, its loading
// state, and the page-local projection of the selection store.
//
// A Controller owns the session's page cache, selection store and bulk
// selector. Surfaces (the TUI, the HTTP API, the headless CLI) call its
// operations and render the ViewState it returns; every operation recomputes
// the derived selection before returning.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/pagecache"
	"github.com/Sternrassler/artic-select/pkg/pagination"
	"github.com/Sternrassler/artic-select/pkg/selection"
	"github.com/rs/zerolog"
)

var (
	// ErrStaleResponse is returned by a page load superseded by a newer one.
	// The fetched page is still cached.
	ErrStaleResponse = errors.New("page response superseded by a newer navigation")

	// ErrBulkInProgress is returned when a bulk selection is already running.
	ErrBulkInProgress = errors.New("bulk selection already in progress")

	// ErrInvalidCount is returned for bulk counts that are not non-negative integers.
	ErrInvalidCount = errors.New("invalid bulk count")

	// ErrInvalidPage is returned for page numbers outside the collection.
	ErrInvalidPage = errors.New("invalid page number")

	// ErrNotOnPage is returned when a row edit names a record that is not displayed.
	ErrNotOnPage = errors.New("record is not on the current page")

	// ErrNotLoaded is returned by row edits before the first page has loaded.
	ErrNotLoaded = errors.New("no page loaded")
)

// Config holds controller configuration.
type Config struct {
	// PageSize is the fixed number of records per page.
	PageSize int

	// Policy is the bulk selection policy.
	Policy bulk.Policy

	// Fetch configures the bulk batch fetcher.
	Fetch pagination.Config

	// ZeroClears makes a bulk count of 0 clear the selection. When false a
	// count of 0 is rejected like any other invalid count.
	ZeroClears bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:   artwork.DefaultPageSize,
		Policy:     bulk.FillTo,
		Fetch:      pagination.DefaultConfig(),
		ZeroClears: true,
	}
}

// Controller is one selection session. It is safe for concurrent use.
type Controller struct {
	source   artwork.PageSource
	cache    *pagecache.Cache
	store    *selection.Store
	selector *bulk.Selector
	config   Config
	logger   zerolog.Logger

	mu          sync.Mutex
	current     artwork.Page
	loaded      bool
	requested   int
	total       int
	state       State
	generation  uint64
	bulkLoading bool
}

// New creates a session over source.
func New(source artwork.PageSource, cfg Config) *Controller {
	if cfg.PageSize <= 0 {
		cfg.PageSize = artwork.DefaultPageSize
	}

	cache := pagecache.New()
	store := selection.NewStore()
	fetcher := pagination.NewBatchFetcher(source, cfg.Fetch)

	return &Controller{
		source: source,
		cache:  cache,
		store:  store,
		selector: bulk.NewSelector(cache, store, fetcher, bulk.Config{
			PageSize: cfg.PageSize,
			Policy:   cfg.Policy,
		}),
		config:    cfg,
		logger:    logging.NewLogger("view-controller"),
		requested: 1,
	}
}

// Load loads the requested page (page 1 for a new session).
func (c *Controller) Load(ctx context.Context) (ViewState, error) {
	c.mu.Lock()
	n := c.requested
	if c.loaded {
		n = c.current.Number
	}
	c.mu.Unlock()
	return c.GoToPage(ctx, n)
}

// GoToPage displays page n, from the page cache or the source. On failure
// the previously displayed page stays in place. If another navigation starts
// before this one completes, the result is discarded with ErrStaleResponse.
func (c *Controller) GoToPage(ctx context.Context, n int) (ViewState, error) {
	c.mu.Lock()
	if n < 1 || (c.loaded && n > artwork.TotalPages(c.total, c.config.PageSize) && c.total > 0) {
		defer c.mu.Unlock()
		return c.snapshotLocked(), fmt.Errorf("%w: %d", ErrInvalidPage, n)
	}
	c.generation++
	gen := c.generation
	c.requested = n
	c.state = StateLoading
	c.mu.Unlock()

	p, hit, err := c.cache.GetOrFetch(ctx, c.source, n)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Warn().
			Int("page", n).
			Int("current", c.requested).
			Msg("Discarding stale page response")
		return c.snapshotLocked(), ErrStaleResponse
	}

	c.state = StateIdle
	if err != nil {
		if c.loaded {
			c.requested = c.current.Number
		}
		c.logger.Warn().Err(err).Int("page", n).Msg("Page load failed")
		return c.snapshotLocked(), err
	}

	c.current = p
	c.total = p.Total
	c.loaded = true
	c.logger.Info().
		Int("page", n).
		Int("records", len(p.Records)).
		Int("total", p.Total).
		Bool("cache_hit", hit).
		Msg("Page loaded")

	return c.snapshotLocked(), nil
}

// NextPage moves one page forward.
func (c *Controller) NextPage(ctx context.Context) (ViewState, error) {
	return c.GoToPage(ctx, c.currentPage()+1)
}

// PrevPage moves one page back.
func (c *Controller) PrevPage(ctx context.Context) (ViewState, error) {
	return c.GoToPage(ctx, c.currentPage()-1)
}

func (c *Controller) currentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return 0
	}
	return c.current.Number
}

// ToggleRow selects or deselects one record of the current page.
func (c *Controller) ToggleRow(id int, checked bool) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return c.snapshotLocked(), ErrNotLoaded
	}
	r, ok := c.current.Find(id)
	if !ok {
		return c.snapshotLocked(), fmt.Errorf("%w: %d", ErrNotOnPage, id)
	}

	if checked {
		c.store.Add(r)
	} else {
		c.store.Remove(id)
	}
	return c.snapshotLocked(), nil
}

// ApplyPageSelection reconciles the current page against the ids the table
// reports as selected: listed rows are added, unlisted rows are removed.
// Selections on other pages are untouched and unknown ids are ignored.
func (c *Controller) ApplyPageSelection(ids []int) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return c.snapshotLocked(), ErrNotLoaded
	}

	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, r := range c.current.Records {
		if want[r.ID] {
			c.store.Add(r)
		} else {
			c.store.Remove(r.ID)
		}
	}
	return c.snapshotLocked(), nil
}

// ToggleAll selects or deselects every record on the current page.
func (c *Controller) ToggleAll(checked bool) (ViewState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		return c.snapshotLocked(), ErrNotLoaded
	}
	for _, r := range c.current.Records {
		if checked {
			c.store.Add(r)
		} else {
			c.store.Remove(r.ID)
		}
	}
	return c.snapshotLocked(), nil
}

// Clear empties the selection.
func (c *Controller) Clear() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.logger.Debug().Msg("Selection cleared")
	return c.snapshotLocked()
}

// SubmitBulk runs a bulk selection of n records starting at the current page.
// While it runs BulkLoading is set and further submissions fail with
// ErrBulkInProgress.
func (c *Controller) SubmitBulk(ctx context.Context, n int) (ViewState, bulk.Result, error) {
	c.mu.Lock()
	switch {
	case n < 0, n == 0 && !c.config.ZeroClears:
		defer c.mu.Unlock()
		return c.snapshotLocked(), bulk.Result{Selected: c.store.Size()}, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	case c.bulkLoading:
		defer c.mu.Unlock()
		return c.snapshotLocked(), bulk.Result{Selected: c.store.Size()}, ErrBulkInProgress
	case n == 0:
		defer c.mu.Unlock()
		c.store.Clear()
		return c.snapshotLocked(), bulk.Result{}, nil
	}

	start := 1
	if c.loaded {
		start = c.current.Number
	}
	req := bulk.Request{Target: n, StartPage: start, TotalRecords: c.total}
	c.bulkLoading = true
	c.mu.Unlock()

	res, err := c.selector.Select(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.bulkLoading = false
	if err != nil {
		c.logger.Error().Err(err).Int("target", n).Msg("Bulk selection failed")
	}
	return c.snapshotLocked(), res, err
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// SelectedRecords returns every selected record in selection order.
func (c *Controller) SelectedRecords() []artwork.Record {
	return c.store.Records()
}

// Policy returns the bulk selection policy of the session.
func (c *Controller) Policy() bulk.Policy {
	return c.config.Policy
}

// CachedPages returns the page numbers held by the session page cache.
func (c *Controller) CachedPages() []int {
	return c.cache.Pages()
}

// Close releases the session.
func (c *Controller) Close() {
	c.cache.Release()
}

func (c *Controller) snapshotLocked() ViewState {
	v := ViewState{
		RequestedPage: c.requested,
		TotalRecords:  c.total,
		TotalPages:    artwork.TotalPages(c.total, c.config.PageSize),
		PageSize:      c.config.PageSize,
		State:         c.state,
		Loading:       c.state == StateLoading,
		BulkLoading:   c.bulkLoading,
		Records:       []artwork.Record{},
		SelectedIDs:   []int{},
		SelectionSize: c.store.Size(),
	}
	if !c.loaded {
		return v
	}

	v.Page = c.current.Number
	v.Records = append(v.Records, c.current.Records...)
	v.Selection = DeriveSelection(c.current.Records, c.store)
	for _, r := range v.Selection.Selected {
		v.SelectedIDs = append(v.SelectedIDs, r.ID)
	}
	v.HeaderChecked = v.Selection.Header == HeaderChecked
	v.HeaderPartial = v.Selection.Header == HeaderPartial
	return v
}
