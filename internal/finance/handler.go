package finance

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

// Handler wires financial tracking endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Guard
	validator *validator.Validate
}

// NewHandler constructs the finance Handler.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers finance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleFinance, authz.ActionView))
		r.Get("/", h.list)
		r.Get("/summary", h.summary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleFinance, authz.ActionCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.ModuleFinance, authz.ActionDelete))
		r.Delete("/{id}", h.remove)
	})
}

type entryRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=income expense"`
	Category    string `json:"category" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	OccurredOn  string `json:"occurred_on" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	page, perPage := shared.PageParams(r)
	result, total, err := h.service.ListMonth(r.Context(), year, month, (page-1)*perPage, perPage)
	if err != nil {
		h.logger.Error("list finance entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"entries":    result,
		"pagination": shared.NewPagination(page, perPage, total),
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.period(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), year, month)
	if err != nil {
		h.logger.Error("finance summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	occurredOn, _ := time.Parse("2006-01-02", req.OccurredOn)
	created, err := h.service.Create(r.Context(), Entry{
		Kind:        Kind(req.Kind),
		Category:    req.Category,
		Description: req.Description,
		AmountCents: req.AmountCents,
		OccurredOn:  occurredOn,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidEntry) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
		h.logger.Error("create finance entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("delete finance entry", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())
	if raw := r.URL.Query().Get("year"); raw != "" {
		year, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, _ = strconv.Atoi(raw)
	}
	if year < 1900 || year > 3000 || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid period")
		return 0, 0, false
	}
	return year, month, true
}
