package assistance

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/platform/httpx"
	"github.com/amparo-app/amparo/internal/shared"
)

// Handler wires assistance case endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs the assistance Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers assistance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleAssistance, authz.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleAssistance, authz.ActionCreate))
		r.Post("/", h.open)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleAssistance, authz.ActionUpdate))
		r.Post("/{id}/status", h.transition)
		r.Put("/{id}/description", h.annotate)
	})
}

type openRequest struct {
	AssistedName string `json:"assisted_name" validate:"required,min=2"`
	Document     string `json:"document" validate:"omitempty,max=32"`
	Description  string `json:"description" validate:"required,min=2,max=8000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress closed"`
}

type annotateRequest struct {
	Description string `json:"description" validate:"required,min=2,max=8000"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	status := CaseStatus(r.URL.Query().Get("status"))
	result, total, err := h.service.List(r.Context(), status, (page-1)*perPage, perPage)
	if err != nil {
		h.logger.Error("list assistance cases", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"fichas":     result,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	ficha, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ficha)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ficha, err := h.service.Open(r.Context(), h.actorID(r), req.AssistedName, req.Document, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ficha)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	ficha, err := h.service.Transition(r.Context(), h.actorID(r), id, CaseStatus(req.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ficha)
}

func (h *Handler) annotate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req annotateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Annotate(r.Context(), h.actorID(r), id, req.Description); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h *Handler) actorID(r *http.Request) int64 {
	if actor := authz.SubjectFromContext(r.Context()); actor != nil {
		return actor.ID
	}
	return 0
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid case id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidCase):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("assistance handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
