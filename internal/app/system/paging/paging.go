// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of tasks on a board page.
const PageSize = 20

// MaxPageSize caps client-requested page sizes.
const MaxPageSize = 100

// ParsePage extracts the 1-based "page" query parameter.
// Returns 1 if not present or invalid.
func ParsePage(r *http.Request) int {
	return parsePositive(query.Get(r, "page"), 1)
}

// ParsePageSize extracts the "page_size" query parameter, clamped to
// MaxPageSize. Returns PageSize if not present or invalid.
func ParsePageSize(r *http.Request) int {
	n := parsePositive(query.Get(r, "page_size"), PageSize)
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Window describes one page of an in-memory list.
type Window struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Pages    int  `json:"pages"`
	Total    int  `json:"total"`
	Start    int  `json:"start"` // 1-based index of the first row (0 if empty)
	End      int  `json:"end"`   // 1-based index of the last row (0 if empty)
	HasPrev  bool `json:"has_prev"`
	HasNext  bool `json:"has_next"`
}

// Compute returns the window for page of a list of total rows.
// A page past the end is clamped to the last page.
func Compute(total, page, size int) Window {
	if size < 1 {
		size = PageSize
	}
	if page < 1 {
		page = 1
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	if page > pages {
		page = pages
	}

	w := Window{Page: page, PageSize: size, Pages: pages, Total: total}
	if total > 0 {
		w.Start = (page-1)*size + 1
		w.End = w.Start + size - 1
		if w.End > total {
			w.End = total
		}
	}
	w.HasPrev = page > 1
	w.HasNext = page < pages
	return w
}

// Slice returns the rows inside w.
func Slice[T any](rows []T, w Window) []T {
	if w.Start == 0 {
		return []T{}
	}
	return rows[w.Start-1 : w.End]
}
