package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/amparo-app/amparo/internal/platform/httpx"
)

// Handler exposes the permission administration endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     Guard
	validator *validator.Validate
}

// NewHandler constructs the permissions Handler.
func NewHandler(logger *slog.Logger, service *Service, guard Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers permission administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(ModulePermissions, ActionView))
		r.Get("/policy", h.showPolicy)
		r.Get("/users/{id}", h.showUserPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(ModulePermissions, ActionManage))
		r.Put("/users/{id}", h.setUserOverrides)
	})
}

type policyResponse struct {
	Modules  []Module                     `json:"modules"`
	Actions  []Action                     `json:"actions"`
	Roles    []Role                       `json:"roles"`
	Defaults map[Role]map[Module][]Action `json:"defaults"`
	Exempt   []string                     `json:"exempt"`
}

func (h *Handler) showPolicy(w http.ResponseWriter, r *http.Request) {
	policy := h.service.Evaluator().Policy()
	exempt := policy.Exempt()
	keys := make([]string, 0, len(exempt))
	for _, perm := range exempt {
		keys = append(keys, perm.Key())
	}
	httpx.JSON(w, http.StatusOK, policyResponse{
		Modules:  Modules(),
		Actions:  Actions(),
		Roles:    Roles(),
		Defaults: policy.Defaults(),
		Exempt:   keys,
	})
}

type userPermissionsResponse struct {
	Subject   *Subject                   `json:"subject"`
	Overrides map[string]bool            `json:"overrides"`
	Effective map[Module]map[Action]bool `json:"effective"`
}

func (h *Handler) showUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}
	subject, err := h.service.Subject(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	eval := h.service.Evaluator()
	effective := make(map[Module]map[Action]bool, len(Modules()))
	for _, module := range Modules() {
		byAction := make(map[Action]bool, len(Actions()))
		for _, action := range Actions() {
			byAction[action] = eval.HasPermission(subject, module, action)
		}
		effective[module] = byAction
	}
	httpx.JSON(w, http.StatusOK, userPermissionsResponse{
		Subject:   subject,
		Overrides: subject.Overrides.Grants(),
		Effective: effective,
	})
}

type overridesRequest struct {
	Grants map[string]bool `json:"grants" validate:"required"`
}

func (h *Handler) setUserOverrides(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid user id")
		return
	}

	var req overridesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	// Unknown pairs would be inert once stored, but the edit surface
	// rejects them so typos surface to the administrator immediately.
	overrides := make(OverrideSet, len(req.Grants))
	for key, allowed := range req.Grants {
		perm, ok := ParsePermissionKey(key)
		if !ok || !KnownModule(perm.Module) || !KnownAction(perm.Action) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("unknown permission %q", key))
			return
		}
		overrides[perm] = allowed
	}

	actorID := int64(0)
	if actor := SubjectFromContext(r.Context()); actor != nil {
		actorID = actor.ID
	}
	if err := h.service.SetOverrides(r.Context(), actorID, userID, overrides); err != nil {
		h.logger.Error("set overrides", slog.Int64("user_id", userID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grants": overrides.Grants()})
}
