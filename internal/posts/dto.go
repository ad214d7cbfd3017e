package posts

import "github.com/quill-api/quill/internal/shared"

// CreatePostRequest is the payload for POST /posts.
type CreatePostRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content" validate:"required"`
	Summary   string `json:"summary" validate:"max=500"`
	Published bool   `json:"published"`
}

// UpdatePostRequest carries a partial update; nil fields are left unchanged.
type UpdatePostRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content   *string `json:"content,omitempty" validate:"omitempty,min=1"`
	Summary   *string `json:"summary,omitempty" validate:"omitempty,max=500"`
	Published *bool   `json:"published,omitempty"`
}

// ListPostsResponse wraps a page of posts.
type ListPostsResponse struct {
	Items      []Post            `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
