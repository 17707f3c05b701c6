// Package selection keeps the set of records a user has chosen across pages.
package selection

import (
	"sync"

	"github.com/Sternrassler/artic-select/pkg/artwork"
)

// Store is an id-keyed set of records that remembers insertion order.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[int]artwork.Record
	order   []int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{records: make(map[int]artwork.Record)}
}

// IsSelected reports whether id is in the store.
func (s *Store) IsSelected(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok
}

// Add inserts r. It returns false when a record with the same id is already
// selected; the stored record is left as it was.
func (s *Store) Add(r artwork.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r.ID]; ok {
		return false
	}
	s.records[r.ID] = r
	s.order = append(s.order, r.ID)
	return true
}

// Remove deletes id. Removing an absent id is a no-op that returns false.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[int]artwork.Record)
	s.order = nil
}

// Size returns the number of selected records.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SelectedSubsetOf returns the records of rs that are selected, in the order of rs.
func (s *Store) SelectedSubsetOf(rs []artwork.Record) []artwork.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]artwork.Record, 0, len(rs))
	for _, r := range rs {
		if _, ok := s.records[r.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Records returns the selected records in insertion order.
func (s *Store) Records() []artwork.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]artwork.Record, len(s.order))
	for i, id := range s.order {
		out[i] = s.records[id]
	}
	return out
}

// IDs returns the selected ids in insertion order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
