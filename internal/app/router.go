package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/amparo-app/amparo/internal/assistance"
	"github.com/amparo-app/amparo/internal/audit"
	"github.com/amparo-app/amparo/internal/auth"
	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/events"
	"github.com/amparo-app/amparo/internal/finance"
	"github.com/amparo-app/amparo/internal/members"
	"github.com/amparo-app/amparo/internal/observability"
	"github.com/amparo-app/amparo/internal/shared"
	"github.com/amparo-app/amparo/internal/users"
	"github.com/amparo-app/amparo/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	Guard authz.Guard

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *authz.Handler
	MembersHandler     *members.Handler
	EventsHandler      *events.Handler
	FinanceHandler     *finance.Handler
	AssistanceHandler  *assistance.Handler
	AuditHandler       *audit.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Amparo defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		// Administration surfaces sit behind an any-manage gate before
		// their per-module guards apply.
		r.Group(func(r chi.Router) {
			r.Use(params.Guard.RequireAnyManage())
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})
		if params.MembersHandler != nil {
			r.Route("/members", params.MembersHandler.MountRoutes)
		}
		if params.EventsHandler != nil {
			r.Route("/events", params.EventsHandler.MountRoutes)
		}
		if params.FinanceHandler != nil {
			r.Route("/finance", params.FinanceHandler.MountRoutes)
		}
		if params.AssistanceHandler != nil {
			r.Route("/assistance", params.AssistanceHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		r.NotFound(spaHandler(staticFS))
	}

	return r
}

// spaHandler serves embedded static assets and falls back to index.html so
// client side routes resolve after a hard refresh.
func spaHandler(staticFS fs.FS) http.HandlerFunc {
	fileServer := http.FileServer(http.FS(staticFS))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}
		if _, err := fs.Stat(staticFS, path); err != nil {
			// Assets are cached browser side; index.html must not be so the
			// shell picks up new builds.
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFileFS(w, r, staticFS, "index.html")
			return
		}
		if path != "index.html" {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		fileServer.ServeHTTP(w, r)
	}
}
