package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/cashbook"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/stock"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	AuthMiddleware *auth.Middleware

	AuthHandler        *auth.Handler
	CatalogHandler     *catalog.Handler
	StockHandler       *stock.Handler
	CashbookHandler    *cashbook.Handler
	ReceivablesHandler *ar.Handler
	PayablesHandler    *ap.Handler
	SalesHandler       *sales.Handler
	ProcurementHandler *procurement.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.WithActor)

		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireActor)

			r.Route("/catalog", params.CatalogHandler.MountRoutes)
			r.Route("/stock", params.StockHandler.MountRoutes)
			r.Route("/cash", params.CashbookHandler.MountRoutes)
			r.Route("/receivables", params.ReceivablesHandler.MountRoutes)
			r.Route("/payables", params.PayablesHandler.MountRoutes)
			r.Route("/sales-orders", params.SalesHandler.MountRoutes)
			r.Route("/purchase-orders", params.ProcurementHandler.MountRoutes)

			if params.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(auth.RequireAdmin)
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}
