package app

import (
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/quill-api/quill/internal/audit"
	audithttp "github.com/quill-api/quill/internal/audit/http"
	"github.com/quill-api/quill/internal/auth"
	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/observability"
	"github.com/quill-api/quill/internal/posts"
	"github.com/quill-api/quill/internal/shared"
	"github.com/quill-api/quill/internal/users"
	"github.com/quill-api/quill/jobs"
)

// AccountStore is what the API needs from account persistence.
type AccountStore interface {
	users.RepositoryPort
	authz.IdentityStore
}

// Dependencies are the external collaborators of the HTTP API. Stores are
// required; everything else may be nil. The jobs, audit and metrics routes
// stay mounted without their dependency and answer 503.
type Dependencies struct {
	Accounts  AccountStore
	Posts     posts.RepositoryPort
	Audit     shared.AuditRecorder
	Timeline  audit.Repository
	Redis     *redis.Client
	Mailer    auth.Enqueuer
	Inspector jobs.QueueInspector
	Metrics   *observability.Metrics
}

// API bundles the constructed services so commands can reuse them.
type API struct {
	Handler  http.Handler
	Hasher   *auth.PasswordHasher
	Tokens   *auth.TokenService
	Accounts *users.Service
	Posts    *posts.Service
}

// NewAPI constructs services, handlers and the router from cfg and deps.
func NewAPI(cfg *Config, logger *slog.Logger, deps Dependencies) *API {
	if logger == nil {
		logger = slog.Default()
	}
	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL)
	guard := authz.NewGuard(tokens, deps.Accounts, logger)

	accounts := users.NewService(deps.Accounts, hasher, deps.Audit, logger)
	var cache *posts.Cache
	if deps.Redis != nil {
		cache = posts.NewCache(deps.Redis, cfg.PostCacheTTL, logger)
		if deps.Metrics != nil {
			if err := cache.Instrument(deps.Metrics.Registerer()); err != nil {
				logger.Warn("instrument post cache", slog.Any("error", err))
			}
		}
	}
	postService := posts.NewService(deps.Posts, cache, deps.Audit, logger)
	authService := auth.NewService(accounts, hasher, tokens, deps.Mailer, logger)

	handler := NewRouter(RouterParams{
		Logger: logger,
		Config: cfg,
		AuthHandler: auth.NewHandler(logger, authService, guard,
			auth.WithRateLimits(RateLimit(cfg.LoginRateLimit), RateLimit(cfg.RegisterRateLimit))),
		UsersHandler: users.NewHandler(logger, accounts, guard),
		PostsHandler: posts.NewHandler(logger, postService, guard),
		JobHandler:   jobs.NewHandler(deps.Inspector, logger),
		AuditHandler: audithttp.NewHandler(logger, audit.NewService(deps.Timeline), guard),
		Metrics:      deps.Metrics,
		AccessLog:    !InTestMode(),
	})
	return &API{
		Handler:  handler,
		Hasher:   hasher,
		Tokens:   tokens,
		Accounts: accounts,
		Posts:    postService,
	}
}
