package events

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
)

// Handler wires event scheduling endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs the events Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers event routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleEvents, authz.ActionView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleEvents, authz.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleEvents, authz.ActionUpdate))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleEvents, authz.ActionDelete))
		r.Delete("/{id}", h.remove)
	})
}

type eventRequest struct {
	Title       string `json:"title" validate:"required,min=2"`
	Description string `json:"description" validate:"omitempty,max=4000"`
	Location    string `json:"location" validate:"omitempty,max=200"`
	StartsAt    string `json:"starts_at" validate:"required"`
	EndsAt      string `json:"ends_at" validate:"required"`
	Capacity    int    `json:"capacity" validate:"omitempty,min=0"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	result, total, err := h.service.ListUpcoming(r.Context(), (page-1)*perPage, perPage)
	if err != nil {
		h.logger.Error("list events", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events":     result,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	event, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, event)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	event, ok := h.decode(w, r)
	if !ok {
		return
	}
	created, err := h.service.Create(r.Context(), event)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	event, ok := h.decode(w, r)
	if !ok {
		return
	}
	event.ID = id
	updated, err := h.service.Update(r.Context(), event)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Event, bool) {
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return Event{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Event{}, false
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "starts_at must be RFC3339")
		return Event{}, false
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ends_at must be RFC3339")
		return Event{}, false
	}
	return Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid event id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrInvalidEvent):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("events handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
