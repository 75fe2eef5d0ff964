// Package paginator splits ordered listings into fixed-size pages.
//
// Page numbers come straight from the "page" query parameter. Missing or
// malformed input selects the first page, and numbers outside the valid range
// are clamped to the nearest page, so lookups never fail.
package paginator

import (
	"errors"
	"strconv"
	"strings"
)

// Page describes one window over a sequence of Total items.
type Page struct {
	Number   int
	PerPage  int
	Total    int64
	NumPages int
}

// New computes the page selected by raw for a sequence of total items.
// perPage values below 1 are treated as 1.
func New(total int64, perPage int, raw string) Page {
	if perPage < 1 {
		perPage = 1
	}
	if total < 0 {
		total = 0
	}
	numPages := int((total + int64(perPage) - 1) / int64(perPage))
	if numPages < 1 {
		// an empty listing still renders one (empty) page
		numPages = 1
	}
	return Page{
		Number:   clamp(parseNumber(raw), numPages),
		PerPage:  perPage,
		Total:    total,
		NumPages: numPages,
	}
}

// parseNumber reads a page number. Out-of-range integers saturate so they
// clamp to the first or last page.
func parseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		return n
	}
	if err != nil {
		return 1
	}
	return n
}

func clamp(n, numPages int) int {
	if n < 1 {
		return 1
	}
	if n > numPages {
		return numPages
	}
	return n
}

// Offset is the index of the first item on the page.
func (p Page) Offset() int { return (p.Number - 1) * p.PerPage }

// Limit is the maximum number of items on the page.
func (p Page) Limit() int { return p.PerPage }

// Len is the number of items actually on the page.
func (p Page) Len() int {
	rest := p.Total - int64(p.Offset())
	if rest <= 0 {
		return 0
	}
	if rest > int64(p.PerPage) {
		return p.PerPage
	}
	return int(rest)
}

func (p Page) HasNext() bool       { return p.Number < p.NumPages }
func (p Page) HasPrevious() bool   { return p.Number > 1 }
func (p Page) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

func (p Page) NextNumber() int {
	if p.HasNext() {
		return p.Number + 1
	}
	return p.Number
}

func (p Page) PreviousNumber() int {
	if p.HasPrevious() {
		return p.Number - 1
	}
	return p.Number
}

// StartIndex is the 1-based position of the first item, 0 for an empty page.
func (p Page) StartIndex() int {
	if p.Len() == 0 {
		return 0
	}
	return p.Offset() + 1
}

// EndIndex is the 1-based position of the last item, 0 for an empty page.
func (p Page) EndIndex() int {
	if p.Len() == 0 {
		return 0
	}
	return p.Offset() + p.Len()
}

// Range lists every page number, for rendering page links.
func (p Page) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// Window is a page together with the items it holds.
type Window[T any] struct {
	Page
	Items []T
}

// Paginate slices an in-memory sequence. It never modifies items.
func Paginate[T any](items []T, perPage int, raw string) Window[T] {
	p := New(int64(len(items)), perPage, raw)
	start := p.Offset()
	end := start + p.Len()
	return Window[T]{Page: p, Items: items[start:end:end]}
}
