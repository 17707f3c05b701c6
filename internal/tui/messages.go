package tui

import (
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/view"
)

// pageLoadedMsg carries the outcome of a page navigation.
type pageLoadedMsg struct {
	page  int
	state view.ViewState
	err   error
}

// bulkDoneMsg carries the outcome of a bulk selection.
type bulkDoneMsg struct {
	state  view.ViewState
	result bulk.Result
	err    error
}

// selectionMsg carries the outcome of a synchronous selection edit.
type selectionMsg struct {
	state view.ViewState
	err   error
}
