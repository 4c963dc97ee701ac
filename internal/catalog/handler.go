package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the catalog read models plus the administrative
// product edit.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Patch("/products/{id}", h.updateProduct)
	r.Get("/partners/{id}", h.getPartner)
}

type productResponse struct {
	ID           int64  `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CategoryID   int64  `json:"category_id,omitempty"`
	CostPrice    string `json:"cost_price"`
	SalePrice    string `json:"sale_price"`
	MinStock     int64  `json:"min_stock"`
	CurrentStock int64  `json:"current_stock"`
	Active       bool   `json:"active"`
}

func productView(p Product) productResponse {
	return productResponse{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		CategoryID:   p.CategoryID,
		CostPrice:    p.CostPrice.StringFixed(2),
		SalePrice:    p.SalePrice.StringFixed(2),
		MinStock:     p.MinStock,
		CurrentStock: p.CurrentStock,
		Active:       p.Active,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter := ProductFilter{Limit: 200}
	if v := r.URL.Query().Get("category_id"); v != "" {
		filter.CategoryID, _ = strconv.ParseInt(v, 10, 64)
	}
	filter.BelowMinimum = r.URL.Query().Get("below_minimum") == "true"
	filter.ActiveOnly = r.URL.Query().Get("active") == "true"

	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]productResponse, 0, len(products))
	for _, p := range products {
		views = append(views, productView(p))
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productView(product))
}

type productPatchRequest struct {
	Name      *string `json:"name"`
	SKU       *string `json:"sku"`
	CostPrice *string `json:"cost_price"`
	SalePrice *string `json:"sale_price"`
	MinStock  *int64  `json:"min_stock"`
	Active    *bool   `json:"active"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if !actor.IsAdmin() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "product edits require the admin role")
		return
	}
	var req productPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	patch := ProductPatch{
		Name:     req.Name,
		SKU:      req.SKU,
		MinStock: req.MinStock,
		Active:   req.Active,
	}
	if req.CostPrice != nil {
		amount, err := decimal.NewFromString(*req.CostPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid cost price")
			return
		}
		patch.CostPrice = &amount
	}
	if req.SalePrice != nil {
		amount, err := decimal.NewFromString(*req.SalePrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale price")
			return
		}
		patch.SalePrice = &amount
	}
	product, err := h.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		h.logger.Error("update product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, productView(product))
}

func (h *Handler) getPartner(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid partner id")
		return
	}
	partner, err := h.service.GetPartner(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, partnerResponse{
		ID:         partner.ID,
		Name:       partner.Name,
		Document:   partner.Document,
		IsCustomer: partner.Roles.CanBuy(),
		IsSupplier: partner.Roles.CanSupply(),
		Active:     partner.Active,
	})
}

type partnerResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Document   string `json:"document"`
	IsCustomer bool   `json:"is_customer"`
	IsSupplier bool   `json:"is_supplier"`
	Active     bool   `json:"active"`
}
