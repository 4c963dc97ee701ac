package cashbook

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

// Handler manages cash ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers cash ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/movements", h.listMovements)
	r.Post("/movements", h.createMovement)
	r.Get("/movements/{id}", h.getMovement)
	r.Get("/balance", h.balance)
}

type createMovementRequest struct {
	Kind        string `json:"kind" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	Description string `json:"description" validate:"required"`
	Reference   string `json:"reference"`
}

type movementResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	AmountBRL   string    `json:"amount_brl"`
	Description string    `json:"description"`
	Reference   string    `json:"reference,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
	ActorID     int64     `json:"actor_id"`
}

func movementView(mv Movement) movementResponse {
	return movementResponse{
		ID:          mv.ID,
		Kind:        string(mv.Kind),
		Amount:      mv.Amount.StringFixed(2),
		AmountBRL:   shared.FormatBRL(mv.Amount),
		Description: mv.Description,
		Reference:   mv.Reference,
		OccurredAt:  mv.OccurredAt,
		ActorID:     mv.ActorID,
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
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid amount")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	mv, err := h.service.RecordMovement(r.Context(), MovementInput{
		Kind:        kind,
		Amount:      amount,
		Description: req.Description,
		Reference:   req.Reference,
		ActorID:     actor.ID,
	})
	if err != nil {
		h.logger.Error("record cash movement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movementView(mv))
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list cash movements", slog.Any("error", err))
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

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Summarize(r.Context(), filter)
	if err != nil {
		h.logger.Error("cash balance", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{
		"total_in":    summary.TotalIn.StringFixed(2),
		"total_out":   summary.TotalOut.StringFixed(2),
		"net":         summary.Net.StringFixed(2),
		"balance":     summary.Balance.StringFixed(2),
		"balance_brl": shared.FormatBRL(summary.Balance),
	})
}

func filterFromQuery(r *http.Request) (MovementFilter, error) {
	filter := MovementFilter{Limit: 200}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind, err := ParseKind(v)
		if err != nil {
			return MovementFilter{}, err
		}
		filter.Kind = kind
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return MovementFilter{}, shared.ErrValidation
		}
		filter.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return MovementFilter{}, shared.ErrValidation
		}
		filter.To = t
	}
	return filter, nil
}
