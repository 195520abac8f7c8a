// Package pagination windows ordered result sets into 1-indexed pages.
//
// The web and API surfaces disagree on what an out-of-range page means, so
// callers pick an Overflow policy:
//
//	req, err := pagination.ParseRequest(c.Query("page"), c.Query("page_size"), 2, 100)
//	page, err := pagination.Paginate(req, pagination.ClampToLast, repo.CountReviews, repo.ListReviews)
package pagination

import (
	"strconv"
	"strings"

	"github.com/mrlokans/goodreads/internal/apperr"
)

// Overflow decides what happens when the requested page does not exist.
type Overflow int

const (
	// ClampToLast serves the last page instead (web pages).
	ClampToLast Overflow = iota
	// EmptyPage serves no items and no next link (API).
	EmptyPage
)

// Request is a validated page request. Number may be out of range; that is
// resolved by Paginate according to the overflow policy.
type Request struct {
	Number int
	Size   int
}

// ParseRequest reads raw query values. A missing or non-numeric page becomes
// page 1. A missing or non-numeric page size falls back to defaultSize, a size
// above maxSize is capped, and a size of zero or less is rejected.
func ParseRequest(rawPage, rawSize string, defaultSize, maxSize int) (Request, error) {
	req := Request{Number: 1, Size: defaultSize}

	if n, err := strconv.Atoi(strings.TrimSpace(rawPage)); err == nil {
		req.Number = n
	}

	if s := strings.TrimSpace(rawSize); s != "" {
		size, err := strconv.Atoi(s)
		if err == nil {
			if size <= 0 {
				return Request{}, apperr.Invalid("page_size", "Ensure this value is greater than 0.")
			}
			req.Size = size
		}
	}

	if req.Size <= 0 {
		return Request{}, apperr.Invalid("page_size", "Ensure this value is greater than 0.")
	}
	if maxSize > 0 && req.Size > maxSize {
		req.Size = maxSize
	}
	return req, nil
}

// Offset returns the zero-based index of the first item on page number.
func Offset(number, size int) int {
	if number < 1 {
		return 0
	}
	return (number - 1) * size
}

// NumPages returns how many pages count items fill. An empty result still has
// one (empty) page.
func NumPages(count int64, size int) int {
	if count <= 0 || size <= 0 {
		return 1
	}
	return int((count + int64(size) - 1) / int64(size))
}

// Page is one window of results.
type Page[T any] struct {
	Items      []T
	Number     int
	Size       int
	Count      int64
	TotalPages int
	// OutOfRange is set when EmptyPage replaced a missing page.
	OutOfRange bool
}

func (p *Page[T]) HasNext() bool {
	return !p.OutOfRange && p.Number < p.TotalPages
}

func (p *Page[T]) HasPrevious() bool {
	return !p.OutOfRange && p.Number > 1
}

func (p *Page[T]) NextNumber() int {
	return p.Number + 1
}

func (p *Page[T]) PreviousNumber() int {
	return p.Number - 1
}

// HasOtherPages reports whether navigation links are worth rendering.
func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

// Counter returns the total number of items in the ordered set.
type Counter func() (int64, error)

// Fetcher returns the items in [offset, offset+limit) of the ordered set.
type Fetcher[T any] func(limit, offset int) ([]T, error)

// Paginate resolves req against the current item count and fetches the window.
func Paginate[T any](req Request, overflow Overflow, count Counter, fetch Fetcher[T]) (*Page[T], error) {
	if req.Size <= 0 {
		return nil, apperr.Invalid("page_size", "Ensure this value is greater than 0.")
	}

	total, err := count()
	if err != nil {
		return nil, err
	}

	page := &Page[T]{
		Number:     req.Number,
		Size:       req.Size,
		Count:      total,
		TotalPages: NumPages(total, req.Size),
	}

	if req.Number < 1 || req.Number > page.TotalPages {
		if overflow == EmptyPage {
			page.OutOfRange = true
			page.Items = []T{}
			return page, nil
		}
		page.Number = page.TotalPages
	}

	items, err := fetch(req.Size, Offset(page.Number, req.Size))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	page.Items = items
	return page, nil
}
