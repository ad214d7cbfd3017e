package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/platform/httpx"
)

const tokenType = "Bearer"

// Middleware wraps a single route.
type Middleware = func(http.Handler) http.Handler

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	guard         *authz.Guard
	loginLimit    Middleware
	registerLimit Middleware
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithRateLimits attaches per-route limiters to login and register. Nil
// limiters are skipped.
func WithRateLimits(login, register Middleware) HandlerOption {
	return func(h *Handler) {
		h.loginLimit = login
		h.registerLimit = register
	}
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, service: service, guard: guard}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(limit(h.registerLimit)...).Post("/register", h.handleRegister)
	r.With(limit(h.loginLimit)...).Post("/login", h.handleLogin)
	r.Get("/me", h.handleMe)
}

func limit(mw Middleware) []func(http.Handler) http.Handler {
	if mw == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{mw}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.fail(w, "register", err)
		return
	}
	public := session.Account.Public()
	h.logger.Info("account registered", slog.Int64("account_id", session.Account.ID))
	httpx.JSON(w, http.StatusCreated, TokenResponse{
		AccessToken: session.Token,
		TokenType:   tokenType,
		ExpiresIn:   h.service.ExpiresIn(),
		User:        &public,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	session, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.fail(w, "login", err)
		return
	}
	httpx.JSON(w, http.StatusOK, TokenResponse{
		AccessToken: session.Token,
		TokenType:   tokenType,
		ExpiresIn:   h.service.ExpiresIn(),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	decision := h.guard.Authenticate(r.Context(), authz.BearerToken(r))
	if !decision.Allowed {
		h.fail(w, "me guard", decision.Err())
		return
	}
	account, err := h.service.Me(r.Context(), decision.Principal.ID)
	if err != nil {
		h.fail(w, "me", err)
		return
	}
	httpx.JSON(w, http.StatusOK, MeResponse{User: account.Public()})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.Unexpected(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
