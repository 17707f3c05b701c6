package view

import (
	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/selection"
)

// State is the page loading state.
type State int

const (
	// StateIdle means the current page is displayed and no load is in flight.
	StateIdle State = iota

	// StateLoading means a page load is in flight.
	StateLoading
)

func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// HeaderState is the "select all on this page" checkbox state.
type HeaderState int

const (
	HeaderUnchecked HeaderState = iota
	HeaderPartial
	HeaderChecked
)

// PageSelection is the page-local view of the selection store.
type PageSelection struct {
	// Selected is the subset of the page's records that are selected, in page order.
	Selected []artwork.Record

	// Header is the state of the page checkbox.
	Header HeaderState
}

// IsSelected reports whether id is among the selected rows.
func (ps PageSelection) IsSelected(id int) bool {
	for _, r := range ps.Selected {
		if r.ID == id {
			return true
		}
	}
	return false
}

// DeriveSelection computes the page-local selection for records from store.
// It has no side effects.
func DeriveSelection(records []artwork.Record, store *selection.Store) PageSelection {
	selected := store.SelectedSubsetOf(records)

	header := HeaderUnchecked
	switch {
	case len(records) > 0 && len(selected) == len(records):
		header = HeaderChecked
	case len(selected) > 0:
		header = HeaderPartial
	}

	return PageSelection{Selected: selected, Header: header}
}

// ViewState is a copy of everything a surface needs to render the table.
type ViewState struct {
	// Page is the page number of Records. Zero before the first load.
	Page int `json:"page"`

	// RequestedPage is the page being loaded when State is loading.
	RequestedPage int `json:"requested_page"`

	TotalRecords int `json:"total_records"`
	TotalPages   int `json:"total_pages"`
	PageSize     int `json:"page_size"`

	State       State `json:"-"`
	Loading     bool  `json:"loading"`
	BulkLoading bool  `json:"bulk_loading"`

	Records   []artwork.Record `json:"records"`
	Selection PageSelection    `json:"-"`

	// SelectedIDs mirrors Selection for JSON consumers.
	SelectedIDs []int `json:"selected_ids"`

	// HeaderChecked and HeaderPartial mirror Selection.Header.
	HeaderChecked bool `json:"header_checked"`
	HeaderPartial bool `json:"header_partial"`

	// SelectionSize is the size of the whole selection store.
	SelectionSize int `json:"selection_size"`
}

// HasNext reports whether a page follows the current one.
func (v ViewState) HasNext() bool {
	return v.Page > 0 && v.Page < v.TotalPages
}

// HasPrev reports whether a page precedes the current one.
func (v ViewState) HasPrev() bool {
	return v.Page > 1
}
