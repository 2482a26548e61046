package repository

// PageRequest selects a zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps the request into sane bounds so repositories never see a
// negative page or an unbounded size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Offset is the row offset for the normalized request.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one page of results plus the totals the transport layer needs to
// build pagination metadata.
type Page[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

func (p Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.Size) - 1) / int64(p.Size))
}

func (p Page[T]) HasNext() bool {
	return p.Page+1 < p.TotalPages()
}

func (p Page[T]) HasPrevious() bool {
	return p.Page > 0
}
