/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. CORS:       Cross-origin requests for the game client

ROUTE GROUPS:
  /api/barrels/*     Barrel purchases (deliver + plan)
  /api/bottler/*     Bottling runs (deliver + plan)
  /api/inventory/*   Capacity (deliver + plan + audit)
  /api/carts/*       Cart lifecycle and order search
  /api/catalog       Sellable offers
  /api/potions       Potion definitions
  /api/info/*        Game clock ticks
  /api/admin/*       Reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. The allowed
// CORS origins come from configuration so deployed game clients work.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Barrel routes
		r.Route("/barrels", func(r chi.Router) {
			r.Post("/deliver/{order_id}", h.DeliverBarrels)
			r.Post("/plan", h.PlanBarrels)
		})

		// Bottler routes
		r.Route("/bottler", func(r chi.Router) {
			r.Post("/deliver/{order_id}", h.DeliverBottles)
			r.Post("/plan", h.PlanBottling)
		})

		// Inventory routes
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/audit", h.Audit)
			r.Post("/deliver/{order_id}", h.DeliverCapacity)
			r.Post("/plan", h.PlanCapacity)
		})

		// Cart routes
		r.Route("/carts", func(r chi.Router) {
			r.Post("/", h.CreateCart)
			r.Get("/search", h.SearchOrders)
			r.Post("/{id}/items/{sku}", h.SetItemQuantity)
			r.Post("/{id}/checkout", h.Checkout)
		})

		// Catalog
		r.Get("/catalog", h.Catalog)

		// Potion definitions
		r.Route("/potions", func(r chi.Router) {
			r.Get("/", h.ListPotions)
			r.Post("/", h.SavePotion)
		})

		// Game clock
		r.Post("/info/current_time", h.RecordTick)

		// Admin routes
		r.Post("/admin/reset", h.ResetShop)
	})

	return r
}
