package view

import (
	"errors"
	"testing"

	"github.com/Sternrassler/artic-select/internal/testutil"
	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/selection"
)

func TestParseBulkCount(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "15", want: 15},
		{input: " 3 ", want: 3},
		{input: "0", want: 0},
		{input: "", wantErr: true},
		{input: "   ", wantErr: true},
		{input: "-2", wantErr: true},
		{input: "ten", wantErr: true},
		{input: "1.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBulkCount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBulkCount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidCount) {
				t.Errorf("error = %v, want ErrInvalidCount", err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseBulkCount(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestBulkButtonLabel(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		bulkLoading bool
		wantLabel   string
		wantEnabled bool
	}{
		{name: "loading", input: "5", bulkLoading: true, wantLabel: "Selecting...", wantEnabled: false},
		{name: "empty", input: "", wantLabel: "Select items", wantEnabled: false},
		{name: "invalid", input: "abc", wantLabel: "Select items", wantEnabled: false},
		{name: "zero", input: "0", wantLabel: "Clear Selection", wantEnabled: true},
		{name: "count", input: "20", wantLabel: "Select 20 items", wantEnabled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, enabled := BulkButtonLabel(tt.input, tt.bulkLoading)
			if label != tt.wantLabel || enabled != tt.wantEnabled {
				t.Errorf("BulkButtonLabel(%q, %v) = %q, %v; want %q, %v",
					tt.input, tt.bulkLoading, label, enabled, tt.wantLabel, tt.wantEnabled)
			}
		})
	}
}

func TestDeriveSelection(t *testing.T) {
	page := testutil.Records(1, 4)

	tests := []struct {
		name       string
		selected   []int
		wantIDs    []int
		wantHeader HeaderState
	}{
		{name: "nothing selected", selected: nil, wantIDs: []int{}, wantHeader: HeaderUnchecked},
		{name: "some selected", selected: []int{3, 1}, wantIDs: []int{1, 3}, wantHeader: HeaderPartial},
		{name: "all selected", selected: []int{1, 2, 3, 4}, wantIDs: []int{1, 2, 3, 4}, wantHeader: HeaderChecked},
		{name: "only other pages selected", selected: []int{40, 41}, wantIDs: []int{}, wantHeader: HeaderUnchecked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := selection.NewStore()
			for _, id := range tt.selected {
				store.Add(testutil.Record(id))
			}

			ps := DeriveSelection(page, store)
			if len(ps.Selected) != len(tt.wantIDs) {
				t.Fatalf("Selected = %v, want ids %v", ps.Selected, tt.wantIDs)
			}
			for i, r := range ps.Selected {
				if r.ID != tt.wantIDs[i] {
					t.Errorf("Selected[%d] = %d, want %d", i, r.ID, tt.wantIDs[i])
				}
			}
			if ps.Header != tt.wantHeader {
				t.Errorf("Header = %v, want %v", ps.Header, tt.wantHeader)
			}
		})
	}
}

func TestDeriveSelection_EmptyPage(t *testing.T) {
	ps := DeriveSelection([]artwork.Record{}, selection.NewStore())
	if ps.Header != HeaderUnchecked || len(ps.Selected) != 0 {
		t.Errorf("empty page selection = %+v", ps)
	}
}
