package users

import "github.com/quill-api/quill/internal/shared"

// CreateUserRequest is the payload for registration and admin account creation.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=80,username"`
	Email     string `json:"email" validate:"required,email,max=120"`
	Password  string `json:"password" validate:"required,max=72,password"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
	IsAdmin   bool   `json:"is_admin"`
}

// UpdateUserRequest carries a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=80,username"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Password  *string `json:"password,omitempty" validate:"omitempty,max=72,password"`
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=50"`
	IsAdmin   *bool   `json:"is_admin,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

func (r UpdateUserRequest) touchesPrivileges() bool {
	return r.IsAdmin != nil || r.IsActive != nil
}

// ListUsersResponse wraps a page of public users.
type ListUsersResponse struct {
	Items      []PublicUser      `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}
