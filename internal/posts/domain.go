package posts

import (
	"time"

	"github.com/quill-api/quill/internal/shared"
)

// Post is a blog post owned by an account.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	Published bool      `json:"published"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter narrows a post listing. Only published posts are listed.
type ListFilter struct {
	OwnerID *int64
	Page    int
	PerPage int
}

func (f ListFilter) offset() int {
	return shared.PageOffset(f.Page, f.PerPage)
}
