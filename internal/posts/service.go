package posts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
)

const auditEntity = "post"

// ErrNotFound is returned when a post does not exist.
var ErrNotFound = fmt.Errorf("post not found: %w", httpx.ErrNotFound)

// RepositoryPort defines data access methods for posts.
type RepositoryPort interface {
	Create(ctx context.Context, p Post) (Post, error)
	Get(ctx context.Context, id int64) (Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, int, error)
	Update(ctx context.Context, p Post) (Post, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles post business logic.
type Service struct {
	repo      RepositoryPort
	cache     *Cache
	audit     shared.AuditRecorder
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewService builds Service instance. cache and audit may be nil.
func NewService(repo RepositoryPort, cache *Cache, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		logger:    logger,
		validator: shared.NewValidator(),
		now:       time.Now,
	}
}

// Create stores a post owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreatePostRequest) (Post, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return Post{}, err
	}
	created, err := s.repo.Create(ctx, Post{
		Title:     req.Title,
		Content:   req.Content,
		Summary:   req.Summary,
		Published: req.Published,
		OwnerID:   ownerID,
	})
	if err != nil {
		return Post{}, err
	}
	s.record(ctx, ownerID, shared.AuditActionCreate, created.ID)
	return created, nil
}

// Get returns a post, consulting the cache first.
func (s *Service) Get(ctx context.Context, id int64) (Post, error) {
	return s.cache.Fetch(ctx, id, s.repo.Get)
}

// List returns a page of published posts.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	return s.repo.List(ctx, filter)
}

// Owner reports the owner of a post, used for authorization before mutation.
func (s *Service) Owner(ctx context.Context, id int64) (int64, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.OwnerID, nil
}

// Update applies a partial update. Authorization is checked by the caller.
func (s *Service) Update(ctx context.Context, id int64, req UpdatePostRequest, actorID int64) (Post, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return Post{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if req.Title != nil {
		current.Title = *req.Title
	}
	if req.Content != nil {
		current.Content = *req.Content
	}
	if req.Summary != nil {
		current.Summary = *req.Summary
	}
	if req.Published != nil {
		current.Published = *req.Published
	}
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Post{}, err
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, actorID, shared.AuditActionUpdate, id)
	return updated, nil
}

// Delete removes a post. Authorization is checked by the caller.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	s.record(ctx, actorID, shared.AuditActionDelete, id)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, postID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(postID, 10),
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit post change", slog.String("action", action), slog.Any("error", err))
	}
}
