// Package memstore holds in-memory repositories for tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
	"github.com/quill-api/quill/internal/users"
)

// Users mirrors users.Repository, including its unique constraints.
type Users struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]users.User
}

// NewUsers returns an empty store.
func NewUsers() *Users {
	return &Users{rows: make(map[int64]users.User)}
}

func (s *Users) conflict(u users.User) error {
	for _, existing := range s.rows {
		if existing.ID == u.ID {
			continue
		}
		if existing.Username == u.Username {
			return users.ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return users.ErrEmailTaken
		}
	}
	return nil
}

// Create inserts u with a fresh id.
func (s *Users) Create(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = 0
	if err := s.conflict(u); err != nil {
		return users.User{}, err
	}
	s.nextID++
	now := time.Now().UTC()
	u.ID = s.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	s.rows[u.ID] = u
	return u, nil
}

func notFound() error {
	return fmt.Errorf("user not found: %w", httpx.ErrNotFound)
}

// GetByID returns the user with id.
func (s *Users) GetByID(_ context.Context, id int64) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return users.User{}, notFound()
	}
	return u, nil
}

// GetByUsername returns the user with the exact username.
func (s *Users) GetByUsername(_ context.Context, username string) (users.User, error) {
	return s.find(func(u users.User) bool { return u.Username == username })
}

// GetByEmail matches case-insensitively.
func (s *Users) GetByEmail(_ context.Context, email string) (users.User, error) {
	return s.find(func(u users.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Users) find(match func(users.User) bool) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.rows {
		if match(u) {
			return u, nil
		}
	}
	return users.User{}, notFound()
}

// List returns active users ordered by id.
func (s *Users) List(_ context.Context, page shared.PageRequest) ([]users.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := make([]users.User, 0, len(s.rows))
	for _, u := range s.rows {
		if u.IsActive {
			active = append(active, u)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	total := len(active)
	start := min(page.Offset(), total)
	end := min(start+page.PerPage, total)
	return active[start:end], total, nil
}

// Update replaces the stored row.
func (s *Users) Update(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[u.ID]
	if !ok {
		return users.User{}, notFound()
	}
	if err := s.conflict(u); err != nil {
		return users.User{}, err
	}
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.rows[u.ID] = u
	return u, nil
}

// SetActive flips the active flag.
func (s *Users) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return notFound()
	}
	u.IsActive = active
	s.rows[id] = u
	return nil
}

// TouchLastLogin stamps last_login_at.
func (s *Users) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return notFound()
	}
	u.LastLoginAt = &at
	s.rows[id] = u
	return nil
}

// FindIdentity satisfies authz.IdentityStore.
func (s *Users) FindIdentity(_ context.Context, id int64) (authz.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.rows[id]
	if !ok {
		return authz.Identity{}, authz.ErrIdentityNotFound
	}
	return authz.Identity{ID: u.ID, IsAdmin: u.IsAdmin, IsActive: u.IsActive}, nil
}

// Count returns the number of stored rows.
func (s *Users) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

var (
	_ users.RepositoryPort = (*Users)(nil)
	_ authz.IdentityStore  = (*Users)(nil)
)
