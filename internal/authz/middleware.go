package authz

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/amparo-app/amparo/internal/platform/httpx"
	"github.com/amparo-app/amparo/internal/shared"
)

// Guard wires permission checks into HTTP routes. It resolves the subject
// from the session once per request and consults the evaluator; any
// failure along the way denies.
type Guard struct {
	Service *Service
	Logger  *slog.Logger
	// Denials, when set, counts refused checks per module.
	Denials interface{ CountDenial(module string) }
}

// Require gates a route behind a (module, action) capability.
func (g Guard) Require(module Module, action Action) func(http.Handler) http.Handler {
	return g.check(string(module), func(subject *Subject) bool {
		return g.Service.Evaluator().HasPermission(subject, module, action)
	})
}

// RequireAnyManage gates the admin area: any manage grant passes.
func (g Guard) RequireAnyManage() func(http.Handler) http.Handler {
	return g.check("admin", func(subject *Subject) bool {
		return g.Service.Evaluator().HasAnyManagePermission(subject)
	})
}

func (g Guard) check(module string, allowed func(*Subject) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := g.currentUserID(r)
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
				return
			}
			subject, err := g.Service.Subject(r.Context(), userID)
			if err != nil {
				// Snapshot fetch failure means the subject is treated as
				// absent: deny rather than error out.
				if g.Logger != nil {
					g.Logger.Warn("authz subject load", slog.Int64("user_id", userID), slog.Any("error", err))
				}
				g.countDenial(module)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			if !allowed(subject) {
				g.countDenial(module)
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
		})
	}
}

func (g Guard) countDenial(module string) {
	if g.Denials != nil {
		g.Denials.CountDenial(module)
	}
}

func (g Guard) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
