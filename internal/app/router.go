package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ItsMalma/fiems-sub000/internal/documents"
	"github.com/ItsMalma/fiems-sub000/internal/masterdata"
	"github.com/ItsMalma/fiems-sub000/internal/observability"
	"github.com/ItsMalma/fiems-sub000/internal/pricing"
	"github.com/ItsMalma/fiems-sub000/internal/quotations"
	"github.com/ItsMalma/fiems-sub000/internal/schedules"
	"github.com/ItsMalma/fiems-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	MasterDataHandler *masterdata.Handler
	PricingHandler    *pricing.Handler
	QuotationsHandler *quotations.Handler
	SchedulesHandler  *schedules.Handler
	DocumentsHandler  *documents.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with FIEMS defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.MasterDataHandler != nil {
		params.MasterDataHandler.MountRoutes(r)
	}
	if params.PricingHandler != nil {
		params.PricingHandler.MountRoutes(r)
	}
	if params.QuotationsHandler != nil {
		params.QuotationsHandler.MountRoutes(r)
	}
	if params.SchedulesHandler != nil {
		params.SchedulesHandler.MountRoutes(r)
	}
	if params.DocumentsHandler != nil {
		params.DocumentsHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
