package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quill-api/quill/internal/platform/db"
)

// Hasher produces password hashes for seeded accounts.
type Hasher interface {
	Hash(password string) (string, error)
}

// SeedOptions configures the seed command.
type SeedOptions struct {
	AdminPassword string
	Stdout        io.Writer
	Stderr        io.Writer
}

type samplePost struct {
	title, content, summary string
}

var samplePosts = []samplePost{
	{title: "Welcome to Quill", content: "This is your first blog post.", summary: "Getting started with Quill"},
	{title: "API Documentation", content: "Register at /auth/register, then send the token as a Bearer header.", summary: "API usage guide"},
}

// SeedCommand creates the admin account and sample posts in one transaction.
// Existing rows are left untouched, so the command can be rerun.
func SeedCommand(ctx context.Context, pool *pgxpool.Pool, hasher Hasher, opts SeedOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = "Admin123!"
	}
	hash, err := hasher.Hash(opts.AdminPassword)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "seed: hash admin password: %v\n", err)
		return 1
	}

	var adminCreated, postsCreated bool
	err = db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var adminID int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE username = 'admin'`).Scan(&adminID)
		if errors.Is(err, pgx.ErrNoRows) {
			err = tx.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, first_name, last_name, is_admin, is_active)
				VALUES ('admin', 'admin@example.com', $1, 'Admin', 'User', TRUE, TRUE)
				RETURNING id`, hash).Scan(&adminID)
			adminCreated = err == nil
		}
		if err != nil {
			return fmt.Errorf("admin account: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
			return fmt.Errorf("count posts: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, p := range samplePosts {
			if _, err := tx.Exec(ctx, `INSERT INTO posts (title, content, summary, published, owner_id)
				VALUES ($1, $2, $3, TRUE, $4)`, p.title, p.content, p.summary, adminID); err != nil {
				return fmt.Errorf("sample post %q: %w", p.title, err)
			}
		}
		postsCreated = true
		return nil
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "seed: %v\n", err)
		return 1
	}
	if adminCreated {
		_, _ = fmt.Fprintln(opts.Stdout, "admin user created")
	}
	if postsCreated {
		_, _ = fmt.Fprintln(opts.Stdout, "sample posts created")
	}
	_, _ = fmt.Fprintln(opts.Stdout, "database seeded")
	return 0
}
