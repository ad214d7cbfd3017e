package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/platform/db"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, is_admin, is_active, last_login_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a user and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (username, email, password_hash, first_name, last_name, is_admin, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin, u.IsActive)
	created, err := scanUser(row)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return created, nil
}

// GetByID fetches a user by primary key.
func (r *Repository) GetByID(ctx context.Context, id int64) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByUsername fetches a user by exact username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetByEmail fetches a user by case-insensitive email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

// List returns active users ordered by id together with the total count.
func (r *Repository) List(ctx context.Context, page shared.PageRequest) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_active`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY id LIMIT $1 OFFSET $2`, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]User, 0, page.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update writes every mutable column of u.
func (r *Repository) Update(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET
			username = $2, email = $3, password_hash = $4, first_name = $5, last_name = $6,
			is_admin = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsAdmin, u.IsActive)
	updated, err := scanUser(row)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return updated, nil
}

// SetActive toggles the is_active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user not found: %w", httpx.ErrNotFound)
	}
	return nil
}

// TouchLastLogin records a successful login time.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at.UTC())
	return err
}

// FindIdentity satisfies authz.IdentityStore.
func (r *Repository) FindIdentity(ctx context.Context, id int64) (authz.Identity, error) {
	var identity authz.Identity
	err := r.pool.QueryRow(ctx, `SELECT id, is_admin, is_active FROM users WHERE id = $1`, id).
		Scan(&identity.ID, &identity.IsAdmin, &identity.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Identity{}, authz.ErrIdentityNotFound
	}
	return identity, err
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("user not found: %w", httpx.ErrNotFound)
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsAdmin, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func mapWriteError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user not found: %w", httpx.ErrNotFound)
	}
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case db.ConstraintUsersEmail:
			return ErrEmailTaken
		default:
			return ErrUsernameTaken
		}
	}
	return err
}

var (
	_ RepositoryPort      = (*Repository)(nil)
	_ authz.IdentityStore = (*Repository)(nil)
)
