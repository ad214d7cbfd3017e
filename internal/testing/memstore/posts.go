package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quill-api/quill/internal/posts"
	"github.com/quill-api/quill/internal/shared"
)

// Posts mirrors posts.Repository.
type Posts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]posts.Post
	gets   int
}

// NewPosts returns an empty store.
func NewPosts() *Posts {
	return &Posts{rows: make(map[int64]posts.Post)}
}

// Create inserts p with a fresh id.
func (s *Posts) Create(_ context.Context, p posts.Post) (posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	p.ID = s.nextID
	p.CreatedAt, p.UpdatedAt = now, now
	s.rows[p.ID] = p
	return p, nil
}

// Get returns a post by id and counts the lookup.
func (s *Posts) Get(_ context.Context, id int64) (posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	p, ok := s.rows[id]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	return p, nil
}

// List returns published posts, newest first.
func (s *Posts) List(_ context.Context, filter posts.ListFilter) ([]posts.Post, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]posts.Post, 0, len(s.rows))
	for _, p := range s.rows {
		if !p.Published {
			continue
		}
		if filter.OwnerID != nil && p.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := min(shared.PageOffset(filter.Page, filter.PerPage), total)
	end := min(start+filter.PerPage, total)
	return out[start:end], total, nil
}

// Update replaces the stored row.
func (s *Posts) Update(_ context.Context, p posts.Post) (posts.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rows[p.ID]
	if !ok {
		return posts.Post{}, posts.ErrNotFound
	}
	p.OwnerID = current.OwnerID
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.rows[p.ID] = p
	return p, nil
}

// Delete removes a row.
func (s *Posts) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return posts.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Gets reports how many times Get reached the store.
func (s *Posts) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

var _ posts.RepositoryPort = (*Posts)(nil)
