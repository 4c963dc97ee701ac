package sales

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

// Handler manages sales order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sales order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Post("/{id}/finalize", h.finalize)
	r.Post("/{id}/cancel", h.cancel)
}

type itemRequest struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice *string `json:"unit_price"`
	Discount  string  `json:"discount"`
}

type createRequest struct {
	CustomerID    int64         `json:"customer_id" validate:"required"`
	SellerID      int64         `json:"seller_id"`
	PaymentMethod string        `json:"payment_method" validate:"required"`
	Freight       string        `json:"freight"`
	Discount      string        `json:"discount"`
	Notes         string        `json:"notes"`
	Items         []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateRequest struct {
	Freight       *string `json:"freight"`
	Discount      *string `json:"discount"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
	Status        *string `json:"status"`
}

type itemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Discount  string `json:"discount"`
	LineTotal string `json:"line_total"`
}

type orderResponse struct {
	ID            int64          `json:"id"`
	Code          string         `json:"code"`
	CustomerID    int64          `json:"customer_id"`
	SellerID      int64          `json:"seller_id,omitempty"`
	Status        string         `json:"status"`
	PaymentMethod string         `json:"payment_method"`
	Freight       string         `json:"freight"`
	Discount      string         `json:"discount"`
	Subtotal      string         `json:"subtotal"`
	Total         string         `json:"total"`
	TotalBRL      string         `json:"total_brl"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	Items         []itemResponse `json:"items,omitempty"`
}

func orderView(o Order) orderResponse {
	view := orderResponse{
		ID:            o.ID,
		Code:          o.Code,
		CustomerID:    o.CustomerID,
		SellerID:      o.SellerID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Freight:       o.Freight.StringFixed(2),
		Discount:      o.Discount.StringFixed(2),
		Subtotal:      o.Subtotal.StringFixed(2),
		Total:         o.Total.StringFixed(2),
		TotalBRL:      shared.FormatBRL(o.Total),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
	}
	for _, item := range o.Items {
		view.Items = append(view.Items, itemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Discount:  item.Discount.StringFixed(2),
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
	payment, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	freight, err := parseAmount(req.Freight)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid freight")
		return
	}
	discount, err := parseAmount(req.Discount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid discount")
		return
	}
	input := CreateInput{
		CustomerID:    req.CustomerID,
		SellerID:      req.SellerID,
		PaymentMethod: payment,
		Freight:       freight,
		Discount:      discount,
		Notes:         req.Notes,
	}
	for _, line := range req.Items {
		itemDiscount, err := parseAmount(line.Discount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid item discount")
			return
		}
		item := ItemInput{ProductID: line.ProductID, Quantity: line.Quantity, Discount: itemDiscount}
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
		h.logger.Error("create sales order", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderView(order))
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
	var patch Patch
	if req.Freight != nil {
		freight, err := decimal.NewFromString(*req.Freight)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid freight")
			return
		}
		patch.Freight = &freight
	}
	if req.Discount != nil {
		discount, err := decimal.NewFromString(*req.Discount)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid discount")
			return
		}
		patch.Discount = &discount
	}
	if req.PaymentMethod != nil {
		payment, err := ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		patch.PaymentMethod = &payment
	}
	if req.Notes != nil {
		patch.Notes = req.Notes
	}
	if req.Status != nil {
		status, err := ParseStatus(*req.Status)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		patch.Status = &status
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Update(r.Context(), actor, id, patch)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderView(order))
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	order, err := h.service.Finalize(r.Context(), actor, id)
	if err != nil {
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
		h.logger.Error("cancel sales order", slog.Any("error", err))
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
	if v := r.URL.Query().Get("customer_id"); v != "" {
		filter.CustomerID, _ = strconv.ParseInt(v, 10, 64)
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
		h.logger.Error("list sales orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		views = append(views, orderView(o))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
