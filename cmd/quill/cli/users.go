package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/quill-api/quill/internal/users"
)

// AccountCreator is the users.Service method used to create sample accounts.
type AccountCreator interface {
	Create(ctx context.Context, req users.CreateUserRequest, actorID int64) (users.User, error)
}

// CreateUsersOptions configures the create-users command.
type CreateUsersOptions struct {
	Count    int
	Password string
	Stdout   io.Writer
	Stderr   io.Writer
	// NewSuffix returns a unique suffix per account; defaults to a short uuid.
	NewSuffix func() string
}

// CreateUsersCommand creates Count sample accounts through the account service
// so they pass the same validation and hashing as registrations.
func CreateUsersCommand(ctx context.Context, accounts AccountCreator, opts CreateUsersOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Count <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "create-users: -count must be positive")
		return 1
	}
	if opts.Password == "" {
		opts.Password = "Password123!"
	}
	if opts.NewSuffix == nil {
		opts.NewSuffix = func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
		}
	}
	for i := 0; i < opts.Count; i++ {
		suffix := opts.NewSuffix()
		u, err := accounts.Create(ctx, users.CreateUserRequest{
			Username:  "user_" + suffix,
			Email:     "user_" + suffix + "@example.com",
			Password:  opts.Password,
			FirstName: "Sample",
			LastName:  fmt.Sprintf("User %d", i+1),
		}, 0)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "create-users: account %d: %v\n", i+1, err)
			return 1
		}
		_, _ = fmt.Fprintf(opts.Stdout, "created %s (id=%d)\n", u.Username, u.ID)
	}
	_, _ = fmt.Fprintf(opts.Stdout, "%d users created\n", opts.Count)
	return 0
}
