package model

import "math"

// Pagination defaults.
const (
	DefaultPageSize = 20
	MaxPageSize     = 2000
)

// Sort orders results by one property.
type Sort struct {
	Property string
	Desc     bool
}

// PageRequest selects one page of a collection. Page is zero-based.
type PageRequest struct {
	Page int
	Size int
	Sort []Sort
}

// Offset returns the number of rows to skip. It saturates at math.MaxInt
// instead of overflowing.
func (p PageRequest) Offset() int {
	if p.Page <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Page > MaxPage(p.Size) {
		return math.MaxInt
	}
	return p.Page * p.Size
}

// MaxPage returns the largest page whose offset fits in an int at size.
func MaxPage(size int) int {
	if size <= 0 {
		return math.MaxInt
	}
	return math.MaxInt / size
}

// Normalize clamps page and size and falls back to ordering by id.
func (p PageRequest) Normalize(defaultSize, maxSize int) PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if p.Size > maxSize {
		p.Size = maxSize
	}
	if p.Page > MaxPage(p.Size) {
		p.Page = MaxPage(p.Size)
	}
	if len(p.Sort) == 0 {
		p.Sort = []Sort{{Property: "id"}}
	}
	return p
}

// Page is one slice of a collection plus the collection size.
type Page[T any] struct {
	Content []T
	Total   int64
	Page    int
	Size    int
}

// TotalPages returns the number of pages for the collection.
func (p *Page[T]) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return int((p.Total + int64(p.Size) - 1) / int64(p.Size))
}

// Filter restricts a listing. Empty slices match everything.
type Filter struct {
	IDs       []int64
	PersonIDs []int64
}
