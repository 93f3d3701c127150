/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     One zerolog line per request, tagged with the request ID
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests, origins from CORS_ORIGINS

ROUTE GROUPS:
  /api/health           Liveness
  /api/warehouses/*     Warehouse directory
  /api/medicines/*      Medicine catalog
  /api/suppliers/*      Suppliers
  /api/batches/*        Import, transfer, expiry queries
  /api/sell             FEFO sale
  /api/stock            Stock levels
  /api/logs/{kind}      Movement logs
  /api/alerts/*         Expiry watcher
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go, handlers_stock.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Warehouse directory
		r.Route("/warehouses", func(r chi.Router) {
			r.Get("/", h.ListWarehouses)
			r.Post("/", h.CreateWarehouse)
			r.Get("/{id}", h.GetWarehouse)
			r.Put("/{id}", h.UpdateWarehouse)
			r.Get("/{id}/batches", h.GetWarehouseBatches)
		})

		// Catalog
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", h.ListMedicines)
			r.Post("/", h.CreateMedicine)
			r.Get("/{id}", h.GetMedicine)
			r.Put("/{id}", h.UpdateMedicine)
			r.Delete("/{id}", h.DeleteMedicine)
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", h.ListSuppliers)
			r.Post("/", h.CreateSupplier)
			r.Delete("/{id}", h.DeleteSupplier)
		})

		// Stock movements
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/import", h.ImportBatch)
			r.Post("/transfer", h.TransferBatch)
			r.Get("/expiring", h.ListExpiring)
			r.Get("/expired", h.ListExpired)
			r.Get("/{id}", h.GetBatch)
		})
		r.Post("/sell", h.Sell)

		// Reporting
		r.Get("/stock", h.GetStockLevels)
		r.Get("/logs/{kind}", h.GetMovementLog)

		// Expiry watcher
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/expiry", h.GetExpiryReport)
			r.Post("/expiry/run", h.RunExpiryCheck)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetLedger)
		})
	})

	return r
}

// requestLogger logs method, path, status and latency for every request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("latency", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
