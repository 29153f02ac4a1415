package request

// Pagination describes where a result page sits in the total result list.
type Pagination struct {
	CurrentPage       int
	CurrentPageCapped int
	LastPage          int
	PageSize          int
	Total             int64
	// RangeStart and RangeEnd are 1-based positions of the first and last result shown.
	RangeStart int64
	RangeEnd   int64
	// NeedsRedirect is set when the requested page is past the last page with results.
	NeedsRedirect bool
}

// Paginate computes page numbers for an offset, page size and total hit count.
// The last page is capped at MaxPages.
func Paginate(from, size int, total int64) Pagination {
	if size < 1 {
		size = DefaultSize
	}
	if from < 0 {
		from = 0
	}
	current := from/size + 1

	last := int((total + int64(size) - 1) / int64(size))
	last = min(max(last, 1), MaxPages)
	capped := max(1, min(last, current))

	p := Pagination{
		CurrentPage:       current,
		CurrentPageCapped: capped,
		LastPage:          last,
		PageSize:          size,
		Total:             total,
		NeedsRedirect:     current != capped || (total > 0 && int64(from) >= total),
	}
	if total > 0 && int64(from) < total {
		p.RangeStart = int64(from) + 1
		p.RangeEnd = min(int64(from+size), total)
	}
	return p
}
