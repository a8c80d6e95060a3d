package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/platform/httpx"
	"github.com/amparo-app/amparo/internal/shared"
	"github.com/amparo-app/amparo/internal/users"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	accounts       *users.Service
	subjects       *authz.Service
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, accounts *users.Service, subjects *authz.Service, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		accounts:       accounts,
		subjects:       subjects,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/me", h.handleMe)
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// handleRegister is the setup-exempt registration flow: anyone may create
// an account, which lands in pending state until an administrator approves.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	user, err := h.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateEmail) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "email already registered")
			return
		}
		h.logger.Error("register", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrAccountRejected) {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "account rejected")
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid credentials")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, errors.New("session missing"))
		return
	}
	if err := h.sessionManager.Renew(r.Context(), sess); err != nil {
		h.logger.Warn("renew session", slog.Any("error", err))
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.respondMe(w, r, user.ID)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"logged_out": true})
}

// handleMe returns the subject snapshot, its effective permission matrix
// and a CSRF token. The SPA calls it on boot to drive conditional
// rendering; unauthenticated callers get an empty subject, not an error.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
	}

	userID := int64(0)
	if sess != nil && sess.User() != "" {
		userID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}
	if userID == 0 {
		httpx.JSON(w, http.StatusOK, meResponse{CSRFToken: csrfToken})
		return
	}
	h.respondMeWithToken(w, r, userID, csrfToken)
}

type meResponse struct {
	Subject     *authz.Subject                         `json:"subject,omitempty"`
	Permissions map[authz.Module]map[authz.Action]bool `json:"permissions,omitempty"`
	AnyManage   bool                                   `json:"any_manage"`
	CSRFToken   string                                 `json:"csrf_token,omitempty"`
}

func (h *Handler) respondMe(w http.ResponseWriter, r *http.Request, userID int64) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
	}
	h.respondMeWithToken(w, r, userID, csrfToken)
}

func (h *Handler) respondMeWithToken(w http.ResponseWriter, r *http.Request, userID int64, csrfToken string) {
	subject, err := h.subjects.Subject(r.Context(), userID)
	if err != nil {
		// Snapshot fetch failure degrades to an anonymous response.
		h.logger.Warn("load subject", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.JSON(w, http.StatusOK, meResponse{CSRFToken: csrfToken})
		return
	}
	eval := h.subjects.Evaluator()
	permissions := make(map[authz.Module]map[authz.Action]bool, len(authz.Modules()))
	for _, module := range authz.Modules() {
		byAction := make(map[authz.Action]bool, len(authz.Actions()))
		for _, action := range authz.Actions() {
			byAction[action] = eval.HasPermission(subject, module, action)
		}
		permissions[module] = byAction
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		Subject:     subject,
		Permissions: permissions,
		AnyManage:   eval.HasAnyManagePermission(subject),
		CSRFToken:   csrfToken,
	})
}
