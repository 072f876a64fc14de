// Package query holds the paging and filtering primitives shared by list endpoints.
package query

import "strconv"

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a normalized page request.
type Page struct {
	Page  int
	Limit int
}

// NewPage clamps page and limit: page below 1 becomes 1, limit below 1 becomes 1
// and limit above MaxLimit becomes MaxLimit.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Page: page, Limit: limit}
}

// ParsePage builds a Page from raw query values. Missing or non-numeric values
// fall back to the defaults; numeric values are clamped by NewPage.
func ParsePage(rawPage, rawLimit string) Page {
	return NewPage(parseOr(rawPage, DefaultPage), parseOr(rawLimit, DefaultLimit))
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block returned alongside a page of results.
type Meta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// MetaFor computes the pagination block for total matching rows.
func (p Page) MetaFor(total int) Meta {
	pages := 0
	if total > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{Total: total, Page: p.Page, Limit: p.Limit, Pages: pages}
}

// Window returns the [start, end) slice bounds of this page over n items.
func (p Page) Window(n int) (int, int) {
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

func parseOr(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
