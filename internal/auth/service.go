package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
	"github.com/quill-api/quill/internal/users"
)

// ErrInvalidCredentials is the single login failure, whatever the cause.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)

// Accounts is the slice of users.Service the auth flows rely on.
type Accounts interface {
	Create(ctx context.Context, req users.CreateUserRequest, actorID int64) (users.User, error)
	Get(ctx context.Context, id int64) (users.User, error)
	GetByUsername(ctx context.Context, username string) (users.User, error)
	RecordLogin(ctx context.Context, id int64) error
}

// Enqueuer schedules the welcome email for a fresh account.
type Enqueuer interface {
	EnqueueWelcome(ctx context.Context, email, username string) error
}

// Session is the outcome of a successful register or login.
type Session struct {
	Token   string
	Account users.User
}

// Service wraps registration and login rules.
type Service struct {
	accounts  Accounts
	hasher    *PasswordHasher
	tokens    *TokenService
	mailer    Enqueuer
	logger    *slog.Logger
	validator *validator.Validate
}

// NewService constructs a new Service. mailer may be nil.
func NewService(accounts Accounts, hasher *PasswordHasher, tokens *TokenService, mailer Enqueuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		mailer:    mailer,
		logger:    logger,
		validator: shared.NewValidator(),
	}
}

// Register creates a non-admin account and issues its first token.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	account, err := s.accounts.Create(ctx, users.CreateUserRequest{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, 0)
	if err != nil {
		return Session{}, err
	}
	token, err := s.tokens.Issue(account.ID, 0)
	if err != nil {
		return Session{}, err
	}
	if s.mailer != nil {
		if err := s.mailer.EnqueueWelcome(ctx, account.Email, account.Username); err != nil {
			s.logger.Warn("enqueue welcome email", slog.Int64("account_id", account.ID), slog.Any("error", err))
		}
	}
	return Session{Token: token, Account: account}, nil
}

// Login checks credentials. Unknown, inactive and wrong-password attempts all
// fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	if err := shared.ValidateStruct(s.validator, req); err != nil {
		return Session{}, err
	}
	account, err := s.accounts.GetByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, httpx.ErrNotFound) {
			return Session{}, err
		}
		s.hasher.Burn(req.Password)
		return Session{}, ErrInvalidCredentials
	}
	if !s.hasher.Verify(req.Password, account.PasswordHash) || !account.IsActive {
		return Session{}, ErrInvalidCredentials
	}
	if err := s.accounts.RecordLogin(ctx, account.ID); err != nil {
		s.logger.Warn("record login", slog.Int64("account_id", account.ID), slog.Any("error", err))
	}
	token, err := s.tokens.Issue(account.ID, 0)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, Account: account}, nil
}

// Me returns the account behind an authenticated id.
func (s *Service) Me(ctx context.Context, id int64) (users.User, error) {
	return s.accounts.Get(ctx, id)
}

// ExpiresIn is the lifetime in seconds of tokens issued by Register and Login.
func (s *Service) ExpiresIn() int64 {
	return int64(s.tokens.DefaultTTL().Seconds())
}
