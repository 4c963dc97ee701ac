package procurement

import (
	"errors"
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

// Handler manages purchase order endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idempotency: idem, validator: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/receive", h.receive)
	r.Post("/{id}/cancel", h.cancel)
}

type itemRequest struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice *string `json:"unit_price"`
}

type createRequest struct {
	SupplierID int64         `json:"supplier_id" validate:"required"`
	Notes      string        `json:"notes"`
	Items      []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateRequest struct {
	Notes *string `json:"notes"`
}

type itemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID         int64          `json:"id"`
	Code       string         `json:"code"`
	SupplierID int64          `json:"supplier_id"`
	Status     string         `json:"status"`
	Total      string         `json:"total"`
	TotalBRL   string         `json:"total_brl"`
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	ReceivedAt *time.Time     `json:"received_at,omitempty"`
	Items      []itemResponse `json:"items,omitempty"`
}

func orderView(o Order) orderResponse {
	view := orderResponse{
		ID:         o.ID,
		Code:       o.Code,
		SupplierID: o.SupplierID,
		Status:     string(o.Status),
		Total:      o.Total.StringFixed(2),
		TotalBRL:   shared.FormatBRL(o.Total),
		Notes:      o.Notes,
		CreatedAt:  o.CreatedAt,
		ReceivedAt: o.ReceivedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, itemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal().StringFixed(2),
		})
	}
	return view
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
	input := CreateInput{SupplierID: req.SupplierID, Notes: req.Notes}
	for _, line := range req.Items {
		item := ItemInput{ProductID: line.ProductID, Quantity: line.Quantity}
		if line.UnitPrice != nil {
			price, err := decimal.NewFromString(*line.UnitPrice)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid unit price")
				return
			}
			item.UnitPrice = &price
		}
		input.Items = append(input.Items, item)
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Create(r.Context(), actor, input)
	if err != nil {
		h.logger.Error("create purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderView(order))
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Approve(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "procurement.receive"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Receive(r.Context(), actor, id)
	if err != nil {
		if key != "" {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		h.logger.Error("receive purchase order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
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
	order, err := h.service.Update(r.Context(), actor, id, Patch{Notes: req.Notes})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
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
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
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
	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list purchase orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
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
