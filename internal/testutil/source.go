// Package testutil provides test doubles for the artwork page source.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/artic-select/pkg/artwork"
)

// ErrInjected is returned by StaticSource for pages configured to fail.
var ErrInjected = errors.New("injected fetch failure")

// StaticSource is an in-memory artwork.PageSource over a fixed collection.
// It records how often each page was requested.
type StaticSource struct {
	mu       sync.Mutex
	records  []artwork.Record
	pageSize int
	calls    map[int]int
	failing  map[int]error
	delays   map[int]time.Duration
	gates    map[int]chan struct{}
}

// NewStaticSource creates a source with the given records split into pages of pageSize.
func NewStaticSource(records []artwork.Record, pageSize int) *StaticSource {
	return &StaticSource{
		records:  records,
		pageSize: pageSize,
		calls:    make(map[int]int),
		failing:  make(map[int]error),
		delays:   make(map[int]time.Duration),
		gates:    make(map[int]chan struct{}),
	}
}

// NewSequentialSource creates a source of n records with ids 1..n.
func NewSequentialSource(n, pageSize int) *StaticSource {
	return NewStaticSource(Records(1, n), pageSize)
}

// Records builds records with ids from..to inclusive.
func Records(from, to int) []artwork.Record {
	out := make([]artwork.Record, 0, to-from+1)
	for id := from; id <= to; id++ {
		out = append(out, Record(id))
	}
	return out
}

// Record builds a record with deterministic display fields.
func Record(id int) artwork.Record {
	return artwork.Record{
		ID:            id,
		Title:         fmt.Sprintf("Artwork %d", id),
		PlaceOfOrigin: "Chicago",
		ArtistDisplay: fmt.Sprintf("Artist %d", id),
		DateStart:     1900 + id%100,
		DateEnd:       1901 + id%100,
	}
}

// FailPage makes subsequent fetches of page return err (ErrInjected when nil).
func (s *StaticSource) FailPage(page int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	s.failing[page] = err
}

// RecoverPage removes a failure injected with FailPage.
func (s *StaticSource) RecoverPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failing, page)
}

// DelayPage makes fetches of page wait d before answering.
func (s *StaticSource) DelayPage(page int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[page] = d
}

// HoldPage blocks fetches of page until the returned release func is called.
func (s *StaticSource) HoldPage(page int) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gate := make(chan struct{})
	s.gates[page] = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// FetchPage implements artwork.PageSource.
func (s *StaticSource) FetchPage(ctx context.Context, page int) (artwork.Page, error) {
	s.mu.Lock()
	s.calls[page]++
	err := s.failing[page]
	delay := s.delays[page]
	gate := s.gates[page]
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return artwork.Page{}, ctx.Err()
		}
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return artwork.Page{}, ctx.Err()
		}
	}

	if err != nil {
		return artwork.Page{}, err
	}

	return s.page(page), nil
}

func (s *StaticSource) page(n int) artwork.Page {
	total := len(s.records)
	p := artwork.Page{Number: n, Total: total, Records: []artwork.Record{}}

	start := (n - 1) * s.pageSize
	if n < 1 || start >= total {
		return p
	}
	end := min(start+s.pageSize, total)

	p.Records = append(p.Records, s.records[start:end]...)
	return p
}

// Calls returns the number of fetches issued for page.
func (s *StaticSource) Calls(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[page]
}

// TotalCalls returns the number of fetches across all pages.
func (s *StaticSource) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// Reset clears call counters.
func (s *StaticSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[int]int)
}
