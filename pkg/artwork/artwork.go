// Package artwork defines the records served by the Art Institute of Chicago
// collection API and the page abstraction the selection packages work with.
package artwork

import (
	"context"
)

// DefaultPageSize is the number of records the artworks endpoint returns per page.
const DefaultPageSize = 12

// Record is a single artwork. Identity is by ID only.
type Record struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	PlaceOfOrigin string  `json:"place_of_origin"`
	ArtistDisplay string  `json:"artist_display"`
	Inscriptions  *string `json:"inscriptions"`
	DateStart     int     `json:"date_start"`
	DateEnd       int     `json:"date_end"`
}

// InscriptionsText returns the inscriptions or an empty string when the API sent null.
func (r Record) InscriptionsText() string {
	if r.Inscriptions == nil {
		return ""
	}
	return *r.Inscriptions
}

// Page is one server-paginated batch of records.
// Pages are treated as immutable once fetched.
type Page struct {
	// Number is the 1-based page index that produced the page.
	Number int `json:"number"`

	// Records are in the order returned by the source.
	Records []Record `json:"records"`

	// Total is the record count across the whole collection as reported
	// alongside this page.
	Total int `json:"total"`
}

// IDs returns the record ids of the page in source order.
func (p Page) IDs() []int {
	ids := make([]int, len(p.Records))
	for i, r := range p.Records {
		ids[i] = r.ID
	}
	return ids
}

// Find returns the record with the given id if it is on the page.
func (p Page) Find(id int) (Record, bool) {
	for _, r := range p.Records {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

// PageSource fetches a single page of the remote collection.
type PageSource interface {
	// FetchPage returns the records for a 1-based page number together with
	// the collection total.
	FetchPage(ctx context.Context, page int) (Page, error)
}

// PageSourceFunc adapts a function to PageSource.
type PageSourceFunc func(ctx context.Context, page int) (Page, error)

// FetchPage calls f(ctx, page).
func (f PageSourceFunc) FetchPage(ctx context.Context, page int) (Page, error) {
	return f(ctx, page)
}

// TotalPages returns ceil(totalRecords / pageSize).
func TotalPages(totalRecords, pageSize int) int {
	if totalRecords <= 0 || pageSize <= 0 {
		return 0
	}
	return (totalRecords + pageSize - 1) / pageSize
}

// PageLen returns the expected number of records on a page. The last page may be
// shorter; pages outside the collection have length 0.
func PageLen(page, totalRecords, pageSize int) int {
	if page < 1 || page > TotalPages(totalRecords, pageSize) {
		return 0
	}
	remaining := totalRecords - (page-1)*pageSize
	return min(remaining, pageSize)
}
