package posts

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

// Handler manages post endpoints.
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

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPosts)
	r.Post("/", h.createPost)
	r.Get("/{id}", h.getPost)
	r.Put("/{id}", h.updatePost)
	r.Delete("/{id}", h.deletePost)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	page := shared.PageFromRequest(r)
	filter := ListFilter{Page: page.Page, PerPage: page.PerPage}
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		owner, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || owner <= 0 {
			httpx.RespondError(w, fmt.Errorf("invalid owner_id: %w", httpx.ErrValidation))
			return
		}
		filter.OwnerID = &owner
	}
	list, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list posts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, ListPostsResponse{
		Items:      list,
		Pagination: shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	id, err := postID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	decision := h.guard.Authenticate(r.Context(), authz.BearerToken(r))
	if !decision.Allowed {
		h.fail(w, "create post guard", decision.Err())
		return
	}
	var req CreatePostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Create(r.Context(), decision.Principal.ID, req)
	if err != nil {
		h.fail(w, "create post", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	id, decision, ok := h.authorizeMutation(w, r)
	if !ok {
		return
	}
	var req UpdatePostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	post, err := h.service.Update(r.Context(), id, req, decision.Principal.ID)
	if err != nil {
		h.fail(w, "update post", err)
		return
	}
	httpx.JSON(w, http.StatusOK, post)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, decision, ok := h.authorizeMutation(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, decision.Principal.ID); err != nil {
		h.fail(w, "delete post", err)
		return
	}
	httpx.NoContent(w)
}

// authorizeMutation authenticates the caller, resolves the post owner and
// checks ownership. It writes the error response itself when ok is false.
func (h *Handler) authorizeMutation(w http.ResponseWriter, r *http.Request) (int64, authz.Decision, bool) {
	id, err := postID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, authz.Decision{}, false
	}
	decision := h.guard.Authenticate(r.Context(), authz.BearerToken(r))
	if !decision.Allowed {
		h.fail(w, "post guard", decision.Err())
		return 0, decision, false
	}
	owner, err := h.service.Owner(r.Context(), id)
	if err != nil {
		h.fail(w, "resolve post owner", err)
		return 0, decision, false
	}
	if !decision.Principal.CanModify(owner) {
		decision = decision.Forbid()
		httpx.RespondError(w, decision.Err())
		return 0, decision, false
	}
	return id, decision, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.Unexpected(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func postID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id: %w", httpx.ErrValidation)
	}
	return id, nil
}
