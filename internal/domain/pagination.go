package domain

// PaginationParams holds offset-based pagination for request listings.
// A zero PageSize means "no limit".
type PaginationParams struct {
	Page     int
	PageSize int
}

// Offset returns the row offset for the current page (0-based).
func (p PaginationParams) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Window slices n items to the current page bounds, clamped to [0, n].
func (p PaginationParams) Window(n int) (start, end int) {
	if p.PageSize < 1 {
		return 0, n
	}
	start = min(p.Offset(), n)
	end = min(start+p.PageSize, n)
	return start, end
}
