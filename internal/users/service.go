package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
)

const auditEntity = "user"

var (
	// ErrUsernameTaken is returned when the username belongs to another account.
	ErrUsernameTaken = fmt.Errorf("username already exists: %w", httpx.ErrConflict)
	// ErrEmailTaken is returned when the email belongs to another account.
	ErrEmailTaken = fmt.Errorf("email already exists: %w", httpx.ErrConflict)
	// ErrPrivilegedField is returned when a non-admin touches is_admin or is_active.
	ErrPrivilegedField = fmt.Errorf("only admins may change is_admin or is_active: %w", httpx.ErrForbidden)
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, u User) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, page shared.PageRequest) ([]User, int, error)
	Update(ctx context.Context, u User) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// PasswordHasher produces one-way password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	hasher    PasswordHasher
	audit     shared.AuditRecorder
	logger    *slog.Logger
	validator *validator.Validate
	now       func() time.Time
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, hasher PasswordHasher, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		audit:     audit,
		logger:    logger,
		validator: shared.NewValidator(),
		now:       time.Now,
	}
}

// Create validates and persists a new account. actorID is zero for self-registration.
func (s *Service) Create(ctx context.Context, req CreateUserRequest, actorID int64) (User, error) {
	req.Username = NormalizeUsername(req.Username)
	req.Email = NormalizeEmail(req.Email)
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return User{}, err
	}
	if err := s.ensureAvailable(ctx, 0, req.Username, req.Email); err != nil {
		return User{}, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	created, err := s.repo.Create(ctx, User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
	})
	if err != nil {
		return User{}, err
	}
	action := shared.AuditActionCreate
	if actorID == 0 {
		actorID = created.ID
		action = shared.AuditActionRegister
	}
	s.record(ctx, actorID, action, created.ID, map[string]any{"username": created.Username, "is_admin": created.IsAdmin})
	return created, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername returns the account with the exact username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.GetByUsername(ctx, NormalizeUsername(username))
}

// List returns a page of active users.
func (s *Service) List(ctx context.Context, page shared.PageRequest) ([]User, int, error) {
	return s.repo.List(ctx, page)
}

// Update applies a partial update on behalf of actor. Ownership is checked by
// the caller; privilege fields are checked here.
func (s *Service) Update(ctx context.Context, id int64, req UpdateUserRequest, actor authz.Principal) (User, error) {
	if req.touchesPrivileges() && !actor.IsAdmin {
		return User{}, ErrPrivilegedField
	}
	if req.Username != nil {
		v := NormalizeUsername(*req.Username)
		req.Username = &v
	}
	if req.Email != nil {
		v := NormalizeEmail(*req.Email)
		req.Email = &v
	}
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return User{}, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	username, email := "", ""
	if req.Username != nil && *req.Username != current.Username {
		username = *req.Username
		current.Username = username
	}
	if req.Email != nil && *req.Email != current.Email {
		email = *req.Email
		current.Email = email
	}
	if err := s.ensureAvailable(ctx, id, username, email); err != nil {
		return User{}, err
	}
	if req.FirstName != nil {
		current.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		current.LastName = *req.LastName
	}
	if req.IsAdmin != nil {
		current.IsAdmin = *req.IsAdmin
	}
	if req.IsActive != nil {
		current.IsActive = *req.IsActive
	}
	changedPassword := false
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return User{}, fmt.Errorf("users: hash password: %w", err)
		}
		current.PasswordHash = hash
		changedPassword = true
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor.ID, shared.AuditActionUpdate, id, map[string]any{"password_changed": changedPassword})
	return updated, nil
}

// Deactivate soft-deletes an account. Accounts are never removed.
func (s *Service) Deactivate(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditActionDeactivate, id, nil)
	return nil
}

// RecordLogin stamps last_login_at.
func (s *Service) RecordLogin(ctx context.Context, id int64) error {
	return s.repo.TouchLastLogin(ctx, id, s.now())
}

// ensureAvailable reports a conflict when username or email is held by an
// account other than selfID. Empty values are skipped. The unique indexes
// still decide races between concurrent writers.
func (s *Service) ensureAvailable(ctx context.Context, selfID int64, username, email string) error {
	if username != "" {
		existing, err := s.repo.GetByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrUsernameTaken
		case err != nil && !errors.Is(err, httpx.ErrNotFound):
			return err
		}
	}
	if email != "" {
		existing, err := s.repo.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return ErrEmailTaken
		case err != nil && !errors.Is(err, httpx.ErrNotFound):
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit user change", slog.String("action", action), slog.Any("error", err))
	}
}
