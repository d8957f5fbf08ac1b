package dataprocessing

import (
	"github.com/davallejo/telco-churn-dashboard/internal/errors"
	"github.com/davallejo/telco-churn-dashboard/pkg/contracts/domain"
)

// DefaultPageSize is the number of records shown per table page.
const DefaultPageSize = 10

// Navigation actions.
const (
	ActionNext  = "next"
	ActionPrev  = "prev"
	ActionFirst = "first"
	ActionLast  = "last"
	ActionGoTo  = "goto"
)

func normalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return size
}

// TotalPages returns ceil(n / size). It is 0 for an empty view.
func TotalPages(n, size int) int {
	size = normalizePageSize(size)
	return (n + size - 1) / size
}

// Paginate slices page (1-based) out of view. It does not clamp: a page
// past the end yields no records. FirstIndex and LastIndex follow the
// status line "showing first - last of total".
func Paginate(view []domain.Record, page, size int) domain.PageWindow {
	size = normalizePageSize(size)
	if page < 1 {
		page = 1
	}
	n := len(view)

	start := (page - 1) * size
	end := page * size
	lo, hi := min(start, n), min(end, n)

	return domain.PageWindow{
		Records:      view[lo:hi],
		Page:         page,
		PageSize:     size,
		TotalPages:   TotalPages(n, size),
		TotalRecords: n,
		FirstIndex:   start + 1,
		LastIndex:    hi,
	}
}

// lastPage is the highest page navigation may reach. An empty view still
// has page 1.
func lastPage(totalPages int) int {
	return max(totalPages, 1)
}

// Next advances one page, never past the last.
func Next(page, totalPages int) int {
	return min(lastPage(totalPages), page+1)
}

// Prev goes back one page, never below 1. A page left out of range by a
// narrower filter lands on the last page.
func Prev(page, totalPages int) int {
	return GoTo(page-1, totalPages)
}

// GoTo clamps target into [1, totalPages].
func GoTo(target, totalPages int) int {
	return min(max(target, 1), lastPage(totalPages))
}

// Navigate applies a named action to the current page.
func Navigate(page, totalPages int, action string, target int) (int, error) {
	switch action {
	case ActionNext:
		return Next(page, totalPages), nil
	case ActionPrev:
		return Prev(page, totalPages), nil
	case ActionFirst:
		return 1, nil
	case ActionLast:
		return lastPage(totalPages), nil
	case ActionGoTo:
		return GoTo(target, totalPages), nil
	}
	return page, errors.ErrInvalidNavigation
}
