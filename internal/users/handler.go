package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quill-api/quill/internal/authz"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/shared"
)

// Handler manages user endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   *authz.Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *authz.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Get("/{id}", h.getUser)
	r.Put("/{id}", h.updateUser)
	r.Delete("/{id}", h.deleteUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	list, total, err := h.service.List(r.Context(), page)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListUsersResponse{
		Items:      PublicList(list),
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user.Public())
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	decision := h.guard.RequireAdmin(r.Context(), authz.BearerToken(r))
	if !decision.Allowed {
		h.fail(w, "create user guard", decision.Err())
		return
	}
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), req, decision.Principal.ID)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user.Public())
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	decision := h.guard.Authorize(r.Context(), authz.BearerToken(r), id)
	if !decision.Allowed {
		h.fail(w, "update user guard", decision.Err())
		return
	}
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, req, decision.Principal)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user.Public())
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	decision := h.guard.Authorize(r.Context(), authz.BearerToken(r), id)
	if !decision.Allowed {
		h.fail(w, "delete user guard", decision.Err())
		return
	}
	if err := h.service.Deactivate(r.Context(), id, decision.Principal.ID); err != nil {
		h.fail(w, "deactivate user", err)
		return
	}
	httpx.NoContent(w)
}

// fail logs unexpected errors before mapping them to a response.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.Unexpected(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id: %w", httpx.ErrValidation)
	}
	return id, nil
}
