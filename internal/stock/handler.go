package stock

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler manages stock ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   *catalog.Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, catalogSvc *catalog.Service) *Handler {
	return &Handler{logger: logger, service: service, catalog: catalogSvc, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.listMovements)
	r.Post("/movements", h.createMovement)
	r.Get("/movements/{id}", h.getMovement)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}/history", h.productHistory)
}

type createMovementRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Kind      string `json:"kind" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Reason    string `json:"reason"`
	Reference string `json:"reference"`
}

type movementResponse struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Kind       string    `json:"kind"`
	Quantity   int64     `json:"quantity"`
	Reason     string    `json:"reason,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	ActorID    int64     `json:"actor_id"`
}

func movementView(mv Movement) movementResponse {
	return movementResponse{
		ID:         mv.ID,
		ProductID:  mv.ProductID,
		Kind:       string(mv.Kind),
		Quantity:   mv.Quantity,
		Reason:     mv.Reason,
		Reference:  mv.Reference,
		OccurredAt: mv.OccurredAt,
		ActorID:    mv.ActorID,
	}
}

func (h *Handler) createMovement(w http.ResponseWriter, r *http.Request) {
	var req createMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	kind, err := ParseKind(req.Kind)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	mv, err := h.service.RecordMovement(r.Context(), MovementInput{
		ProductID: req.ProductID,
		Kind:      kind,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
		ActorID:   actor.ID,
	})
	if err != nil {
		h.logger.Error("record stock movement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movementView(mv))
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter := MovementFilter{Limit: 200}
	if v := r.URL.Query().Get("product_id"); v != "" {
		filter.ProductID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind, err := ParseKind(v)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Kind = kind
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]movementResponse, 0, len(movements))
	for _, mv := range movements {
		views = append(views, movementView(mv))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getMovement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid movement id")
		return
	}
	mv, err := h.service.GetMovement(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movementView(mv))
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := catalog.ProductFilter{Limit: 200}
	if v := r.URL.Query().Get("category_id"); v != "" {
		filter.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}
	filter.BelowMinimum = r.URL.Query().Get("below_minimum") == "true"
	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list stock products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	type productStock struct {
		ID           int64  `json:"id"`
		SKU          string `json:"sku"`
		Name         string `json:"name"`
		MinStock     int64  `json:"min_stock"`
		CurrentStock int64  `json:"current_stock"`
		BelowMinimum bool   `json:"below_minimum"`
	}
	views := make([]productStock, 0, len(products))
	for _, p := range products {
		views = append(views, productStock{
			ID:           p.ID,
			SKU:          p.SKU,
			Name:         p.Name,
			MinStock:     p.MinStock,
			CurrentStock: p.CurrentStock,
			BelowMinimum: p.BelowMinimum(),
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) productHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if _, err := h.catalog.GetProduct(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.History(r.Context(), id, "")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]movementResponse, 0, len(movements))
	for _, mv := range movements {
		views = append(views, movementView(mv))
	}
	httpx.JSON(w, http.StatusOK, views)
}
