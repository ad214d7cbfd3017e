package shared

import (
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// MaxPage bounds ?page= so page*per_page cannot overflow an int or produce a
// negative OFFSET.
const MaxPage = 100_000

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// PageRequest is the normalised page/per_page pair read from a query string.
type PageRequest struct {
	Page    int
	PerPage int
}

// Offset returns the SQL offset for the page.
func (p PageRequest) Offset() int {
	return PageOffset(p.Page, p.PerPage)
}

// PageOffset is (page-1)*perPage with page clamped to [1, MaxPage] and
// perPage to [0, maxPerPage].
func PageOffset(page, perPage int) int {
	page = min(max(page, 1), MaxPage)
	perPage = min(max(perPage, 0), maxPerPage)
	return (page - 1) * perPage
}

// PageFromRequest parses ?page= and ?per_page=, falling back to defaults on
// missing or invalid values.
func PageFromRequest(r *http.Request) PageRequest {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	perPage, err := strconv.Atoi(q.Get("per_page"))
	if err != nil || perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return PageRequest{Page: page, PerPage: perPage}
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}
