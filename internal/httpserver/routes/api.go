package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/duewatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/duewatch/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/duewatch/internal/httpserver/mw"
)

func init() { Register("api", registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(api chi.Router) {
		api.Use(
			mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger),
			mw.EnforceHost(d.AllowedHosts, d.Logger),
		)

		api.With(mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.ScanRateBurst,
			RefillPerIPPerMin: d.ScanRatePerMin,
			MaxEntries:        4096,
			TrustProxy:        d.TrustProxy,
		})).Post("/scan", handlers.Scan(d))

		api.Get("/assignments", handlers.ListAssignments(d))
		api.Get("/assignments/summary", handlers.Summary(d))
		api.Patch("/assignments/{id}", handlers.SetCompleted(d))
		api.Delete("/assignments/{id}", handlers.DeleteAssignment(d))

		api.Get("/settings/scan-enabled", handlers.GetScanEnabled(d))
		api.Put("/settings/scan-enabled", handlers.PutScanEnabled(d))
	})
}
