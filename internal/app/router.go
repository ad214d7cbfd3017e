package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/quill-api/quill/internal/audit/http"
	"github.com/quill-api/quill/internal/auth"
	"github.com/quill-api/quill/internal/observability"
	"github.com/quill-api/quill/internal/platform/httpx"
	"github.com/quill-api/quill/internal/posts"
	"github.com/quill-api/quill/internal/users"
	"github.com/quill-api/quill/jobs"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "dev"

var apiEndpoints = map[string]string{
	"auth":    "/auth",
	"users":   "/users",
	"posts":   "/posts",
	"audit":   "/audit",
	"jobs":    "/jobs",
	"health":  "/healthz",
	"metrics": "/metrics",
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	UsersHandler *users.Handler
	PostsHandler *posts.Handler
	JobHandler   *jobs.Handler
	AuditHandler *audithttp.Handler
	Metrics      *observability.Metrics
	AccessLog    bool
}

// NewRouter constructs the chi.Router with Quill defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.AccessLog {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	info := func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"name":      "Quill API",
			"version":   Version,
			"endpoints": apiEndpoints,
		})
	}
	r.Get("/", info)
	r.Get("/api", info)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/posts", params.PostsHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	// A nil *Metrics answers 503.
	r.Handle("/metrics", params.Metrics.Handler())
	return r
}
