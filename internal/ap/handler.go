package ap

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages payable endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payable routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/settle", h.settle)
	r.Post("/{id}/cancel", h.cancel)
}

type createRequest struct {
	SupplierID int64  `json:"supplier_id" validate:"required"`
	Amount     string `json:"amount" validate:"required"`
	DueDate    string `json:"due_date" validate:"required"`
	OrderRef   string `json:"order_ref"`
}

type updateRequest struct {
	Amount  *string `json:"amount"`
	DueDate *string `json:"due_date"`
	Status  *string `json:"status"`
}

type settleRequest struct {
	SettledAt *string `json:"settled_at"`
}

type entryResponse struct {
	ID         int64      `json:"id"`
	Code       string     `json:"code"`
	SupplierID int64      `json:"supplier_id"`
	Amount     string     `json:"amount"`
	AmountBRL  string     `json:"amount_brl"`
	DueDate    string     `json:"due_date"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
	Status     string     `json:"status"`
	OrderRef   string     `json:"order_ref,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func entryView(e Entry) entryResponse {
	return entryResponse{
		ID:         e.ID,
		Code:       e.Code,
		SupplierID: e.SupplierID,
		Amount:     e.Amount.StringFixed(2),
		AmountBRL:  shared.FormatBRL(e.Amount),
		DueDate:    e.DueDate.Format("2006-01-02"),
		SettledAt:  e.SettledAt,
		Status:     string(e.Status),
		OrderRef:   e.OrderRef,
		CreatedAt:  e.CreatedAt,
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid amount")
		return
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid due_date, expected YYYY-MM-DD")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Create(r.Context(), actor, CreateInput{
		SupplierID: req.SupplierID,
		Amount:     amount,
		DueDate:    dueDate,
		OrderRef:   req.OrderRef,
	})
	if err != nil {
		h.logger.Error("create payable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entryView(entry))
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req settleRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
	}
	var settledAt *time.Time
	if req.SettledAt != nil {
		t, err := time.Parse(time.RFC3339, *req.SettledAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid settled_at, expected RFC3339")
			return
		}
		settledAt = &t
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Settle(r.Context(), actor, id, settledAt)
	if err != nil {
		h.logger.Error("settle payable", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryView(entry))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	entry, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryView(entry))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	// A status change in the patch goes through the same paths as the
	// dedicated endpoints so settlement always posts its cash movement.
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var entry Entry
		switch status {
		case StatusSettled:
			entry, err = h.service.Settle(r.Context(), actor, id, nil)
		case StatusCancelled:
			entry, err = h.service.Cancel(r.Context(), actor, id)
		default:
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "status can only change to settled or cancelled")
			return
		}
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, entryView(entry))
		return
	}
	var patch Patch
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid amount")
			return
		}
		patch.Amount = &amount
	}
	if req.DueDate != nil {
		dueDate, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid due_date, expected YYYY-MM-DD")
			return
		}
		patch.DueDate = &dueDate
	}
	entry, err := h.service.Update(r.Context(), actor, id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryView(entry))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entryView(entry))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := Filter{Limit: 200}
	if v := r.URL.Query().Get("supplier_id"); v != "" {
		filter.SupplierID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := ParseStatus(v)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Status = status
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list payables", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView(e))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
