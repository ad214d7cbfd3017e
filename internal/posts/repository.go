package posts

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quill-api/quill/internal/platform/db"
	"github.com/quill-api/quill/internal/platform/httpx"
)

const postColumns = `id, title, content, summary, published, owner_id, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for posts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a post.
func (r *Repository) Create(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO posts (title, content, summary, published, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+postColumns,
		p.Title, p.Content, p.Summary, p.Published, p.OwnerID)
	created, err := scanPost(row)
	if err != nil {
		if db.ForeignKeyViolation(err) {
			return Post{}, fmt.Errorf("owner does not exist: %w", httpx.ErrValidation)
		}
		return Post{}, err
	}
	return created, nil
}

// Get fetches a post by id regardless of publication state.
func (r *Repository) Get(ctx context.Context, id int64) (Post, error) {
	p, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return p, nil
}

// List uses a dynamic query because the owner filter is optional.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	where := ` WHERE published`
	args := []any{}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		where += ` AND owner_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + postColumns + ` FROM posts` + where + ` ORDER BY created_at DESC, id DESC`
	args = append(args, filter.PerPage)
	query += ` LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.offset())
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	list := make([]Post, 0, filter.PerPage)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// Update writes the mutable columns of p.
func (r *Repository) Update(ctx context.Context, p Post) (Post, error) {
	row := r.pool.QueryRow(ctx, `UPDATE posts SET title = $2, content = $3, summary = $4, published = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+postColumns,
		p.ID, p.Title, p.Content, p.Summary, p.Published)
	updated, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return updated, nil
}

// Delete removes a post permanently.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Summary, &p.Published, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

var _ RepositoryPort = (*Repository)(nil)
