package models

import (
	"strings"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Filter selects registrations for the admin table. Query is matched
// case-insensitively against guardian name and email, participant names,
// the payment intent and record IDs.
type Filter struct {
	Query  string `json:"q,omitempty"`
	Status Status `json:"status,omitempty"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// Normalize trims the query and clamps paging values.
func (f *Filter) Normalize() {
	f.Query = strings.ToLower(strings.TrimSpace(f.Query))
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Matches reports whether r passes the status and query conditions.
// Paging is not applied here.
func (f Filter) Matches(r *Registration) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Query == "" {
		return true
	}
	haystack := r.SearchText()
	for _, term := range strings.Fields(strings.ToLower(f.Query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// Page is one page of the admin table.
type Page struct {
	Items  []*Registration `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// Paginate slices the full match list according to the filter.
func Paginate(all []*Registration, f Filter) Page {
	page := Page{Total: len(all), Limit: f.Limit, Offset: f.Offset, Items: []*Registration{}}
	if f.Offset >= len(all) {
		return page
	}
	end := min(f.Offset+f.Limit, len(all))
	page.Items = all[f.Offset:end]
	return page
}
