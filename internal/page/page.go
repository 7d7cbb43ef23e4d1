// Package page slices filtered sequences into pages. Pagination is pure and
// stateless: identical inputs always produce identical output.
package page

// Bounds on page parameters, enforced at the request boundary before the
// pager runs.
const (
	MinPage     = 1
	MinPageSize = 1
	MaxPageSize = 10000
)

// Window is one computed page over a sequence of Total items. Start and End
// are slice bounds into the source sequence (Start == End for an empty
// page).
type Window struct {
	Start       int
	End         int
	Total       int
	Page        int
	PageSize    int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// Paginate computes the window for one page. Callers validate page and size
// against the bounds above before calling; out-of-range values are a
// boundary validation error, never clamped here.
//
// disable=true returns everything as a single page and reports the page
// size as the total item count. A page beyond the last yields an empty
// window with HasNext=false; that is not an error.
func Paginate(total, pageNum, size int, disable bool) Window {
	if disable {
		return Window{
			Start:      0,
			End:        total,
			Total:      total,
			Page:       1,
			PageSize:   total,
			TotalPages: totalPages(total, max(total, 1)),
		}
	}

	w := Window{
		Total:      total,
		Page:       pageNum,
		PageSize:   size,
		TotalPages: totalPages(total, size),
	}
	w.Start = (pageNum - 1) * size
	if w.Start > total {
		w.Start = total
	}
	w.End = w.Start + size
	if w.End > total {
		w.End = total
	}
	w.HasNext = pageNum < w.TotalPages
	w.HasPrevious = pageNum > 1 && total > 0
	return w
}

func totalPages(total, size int) int {
	if total == 0 {
		return 0
	}
	return (total + size - 1) / size
}
