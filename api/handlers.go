/*
handlers.go - HTTP API handlers for the potion shop engine

PURPOSE:
  Exposes the shop engine via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to domain logic.

ENDPOINTS:
  Deliveries (idempotent per order id):
    POST   /api/barrels/deliver/{order_id}    Record barrel purchase
    POST   /api/bottler/deliver/{order_id}    Record bottling run
    POST   /api/inventory/deliver/{order_id}  Record capacity purchase

  Plans (pure, no state change):
    POST   /api/barrels/plan                  Plan barrel purchases
    POST   /api/bottler/plan                  Plan bottling
    POST   /api/inventory/plan                Plan capacity purchases

  Carts:
    POST   /api/carts                         Create cart
    POST   /api/carts/{id}/items/{sku}        Stage potions (adds)
    POST   /api/carts/{id}/checkout           Settle cart
    GET    /api/carts/search                  Search sold line items

  Shop:
    GET    /api/catalog                       Sellable offers
    GET    /api/inventory/audit               Totals for reconciliation
    GET    /api/potions                       List potion definitions
    POST   /api/potions                       Create/update a potion
    POST   /api/info/current_time             Game clock tick
    POST   /api/admin/reset                   Wipe and re-seed

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (validator tags, then cross-field checks)
  3. Call domain logic (shop service, planners)
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, bad state (empty cart)
  - 404: Cart or potion not found
  - 409: Insufficient resources, concurrent-writer conflicts
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - shop/: Domain logic the handlers delegate to
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/planner"
	"github.com/warp/shop-engine/shop"
	"github.com/warp/shop-engine/store/sqlite"
)

// tickWindow is how far back a clock tick folds sales when rolling up
// analytics. The game clock ticks every two real hours.
const tickWindow = 2 * time.Hour

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *shop.Service
	Store   *sqlite.Store
	Planner *planner.PurchasePlanner
	Log     zerolog.Logger

	validate *validator.Validate
}

// NewHandler creates a handler backed by the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	svc := shop.NewService(store)
	svc.Sales = store
	return &Handler{
		Service:  svc,
		Store:    store,
		Planner:  &planner.PurchasePlanner{},
		Log:      log,
		validate: validator.New(),
	}
}

// =============================================================================
// DELIVERY HANDLERS
// =============================================================================

// DeliverBarrels records a barrel purchase: gold out, liquid in.
// POST /api/barrels/deliver/{order_id}
func (h *Handler) DeliverBarrels(w http.ResponseWriter, r *http.Request) {
	orderID := engine.OrderID(chi.URLParam(r, "order_id"))

	var dtos []BarrelDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	barrels := make([]shop.Barrel, 0, len(dtos))
	for _, d := range dtos {
		if err := h.validate.Struct(d); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid barrel", err)
			return
		}
		b := d.toBarrel()
		if err := b.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid barrel", err)
			return
		}
		barrels = append(barrels, b)
	}

	if err := h.Service.DeliverBarrels(r.Context(), orderID, barrels); err != nil {
		h.writeDomainError(w, "Failed to deliver barrels", err)
		return
	}

	h.Log.Info().Str("order_id", string(orderID)).Int("barrels", len(barrels)).
		Msg("barrels delivered")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeliverBottles records a bottling run: potions in, liquid out.
// POST /api/bottler/deliver/{order_id}
func (h *Handler) DeliverBottles(w http.ResponseWriter, r *http.Request) {
	orderID := engine.OrderID(chi.URLParam(r, "order_id"))

	var dtos []PotionMixDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mixes := make([]shop.BottleMix, 0, len(dtos))
	for _, d := range dtos {
		if err := h.validate.Struct(d); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid potion mix", err)
			return
		}
		mixes = append(mixes, d.toMix())
	}

	if err := h.Service.DeliverBottles(r.Context(), orderID, mixes); err != nil {
		h.writeDomainError(w, "Failed to deliver bottles", err)
		return
	}

	h.Log.Info().Str("order_id", string(orderID)).Int("mixes", len(mixes)).
		Msg("bottles delivered")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DeliverCapacity records a capacity purchase in whole units.
// POST /api/inventory/deliver/{order_id}
func (h *Handler) DeliverCapacity(w http.ResponseWriter, r *http.Request) {
	orderID := engine.OrderID(chi.URLParam(r, "order_id"))

	var req CapacityPurchaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid capacity purchase", err)
		return
	}

	err := h.Service.DeliverCapacity(r.Context(), orderID, req.PotionCapacity, req.MlCapacity)
	if err != nil {
		h.writeDomainError(w, "Failed to deliver capacity", err)
		return
	}

	h.Log.Info().Str("order_id", string(orderID)).
		Int("potion_units", req.PotionCapacity).Int("ml_units", req.MlCapacity).
		Msg("capacity delivered")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// PlanBarrels selects purchases from a wholesale catalog.
// POST /api/barrels/plan
func (h *Handler) PlanBarrels(w http.ResponseWriter, r *http.Request) {
	var dtos []BarrelDTO
	if err := json.NewDecoder(r.Body).Decode(&dtos); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	balances, err := h.Service.Balances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read balances", err)
		return
	}

	offers := make([]planner.Offer, 0, len(dtos))
	for _, d := range dtos {
		o := planner.Offer{
			SKU:         d.SKU,
			MlPerBarrel: d.MlPerBarrel,
			Price:       d.Price,
			Quantity:    d.Quantity,
		}
		copy(o.Fractions[:], d.PotionType)
		offers = append(offers, o)
	}

	orders := h.Planner.Plan(planner.PurchaseInput{
		Gold:              balances.Gold,
		MaxLiquidCapacity: balances.MaxLiquidCapacity,
		Liquid:            balances.Liquid,
		Offers:            offers,
	})

	dtosOut := make([]BarrelOrderDTO, len(orders))
	for i, o := range orders {
		dtosOut[i] = BarrelOrderDTO{SKU: o.SKU, Quantity: o.Quantity}
	}
	writeJSON(w, http.StatusOK, dtosOut)
}

// PlanBottling allocates remaining shelf capacity across active recipes.
// POST /api/bottler/plan
func (h *Handler) PlanBottling(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balances, err := h.Service.Balances(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read balances", err)
		return
	}
	potions, err := h.Service.Potions(ctx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list potions", err)
		return
	}

	recipes := make([]engine.Recipe, len(potions))
	for i, p := range potions {
		recipes[i] = p.Recipe
	}

	orders := planner.PlanBottling(planner.BottlingInput{
		Liquid:            balances.Liquid,
		Recipes:           recipes,
		TotalPotions:      balances.TotalPotions(),
		MaxPotionCapacity: balances.MaxPotionCapacity,
	})

	dtos := make([]PotionMixDTO, len(orders))
	for i, o := range orders {
		dtos[i] = PotionMixDTO{PotionType: recipeToSlice(o.Recipe), Quantity: o.Quantity}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PlanCapacity recommends capacity units to buy from the utilization
// thresholds.
// POST /api/inventory/plan
func (h *Handler) PlanCapacity(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Service.Balances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read balances", err)
		return
	}

	plan := planner.PlanCapacity(planner.CapacityInput{
		Gold:              balances.Gold,
		LiquidUtilization: balances.LiquidUtilization(),
		PotionUtilization: balances.PotionUtilization(),
	})

	writeJSON(w, http.StatusOK, CapacityPurchaseDTO{
		PotionCapacity: plan.PotionUnits,
		MlCapacity:     plan.MlUnits,
	})
}

// =============================================================================
// CART HANDLERS
// =============================================================================

// CreateCart opens a cart for a customer.
// POST /api/carts
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid customer", err)
		return
	}

	id, err := h.Service.CreateCart(r.Context(), engine.Customer{
		Name:           req.CustomerName,
		CharacterClass: req.CharacterClass,
		Level:          req.Level,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create cart", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateCartResponse{CartID: string(id)})
}

// SetItemQuantity stages potions in a cart. Repeats for the same SKU add.
// POST /api/carts/{id}/items/{sku}
func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	cartID := engine.CartID(chi.URLParam(r, "id"))
	sku := chi.URLParam(r, "sku")

	var req SetItemQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}

	if err := h.Service.SetItemQuantity(r.Context(), cartID, sku, req.Quantity); err != nil {
		h.writeDomainError(w, "Failed to stage item", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Checkout settles a cart. Replays return the original totals.
// POST /api/carts/{id}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID := engine.CartID(chi.URLParam(r, "id"))

	res, err := h.Service.Checkout(r.Context(), cartID)
	if err != nil {
		h.writeDomainError(w, "Failed to check out cart", err)
		return
	}

	h.Log.Info().Str("cart_id", string(cartID)).
		Int("potions", res.TotalPotions).Int("gold", res.TotalGold).
		Msg("cart checked out")
	writeJSON(w, http.StatusOK, CheckoutResponse{
		TotalPotionsBought: res.TotalPotions,
		TotalGoldPaid:      res.TotalGold,
	})
}

// SearchOrders returns a page of sold line items.
// GET /api/carts/search
func (h *Handler) SearchOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := h.Service.SearchOrders(r.Context(), shop.SearchQuery{
		CustomerName: q.Get("customer_name"),
		SKU:          q.Get("potion_sku"),
		SortKey:      shop.SortKey(q.Get("sort_col")),
		SortOrder:    shop.SortOrder(q.Get("sort_order")),
		Page:         q.Get("search_page"),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to search orders", err)
		return
	}

	results := make([]SearchResultDTO, len(page.Results))
	for i, res := range page.Results {
		results[i] = SearchResultDTO{
			LineItemID:    res.LineItemID,
			ItemSKU:       res.ItemSKU,
			CustomerName:  res.CustomerName,
			LineItemTotal: res.LineTotal,
			Timestamp:     res.Timestamp.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Previous: page.Previous,
		Next:     page.Next,
		Results:  results,
	})
}

// =============================================================================
// SHOP HANDLERS
// =============================================================================

// Catalog returns the active, in-stock offers.
// GET /api/catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Catalog(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build catalog", err)
		return
	}

	dtos := make([]CatalogItemDTO, len(items))
	for i, item := range items {
		dtos[i] = CatalogItemDTO{
			SKU:        item.SKU,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
			PotionType: recipeToSlice(item.Recipe),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Audit returns inventory totals for external reconciliation.
// GET /api/inventory/audit
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	audit, err := h.Service.Audit(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to audit inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, AuditResponse{
		NumberOfPotions: audit.NumberOfPotions,
		MlInBarrels:     audit.MlInBarrels,
		Gold:            audit.Gold,
	})
}

// ListPotions returns all potion definitions.
// GET /api/potions
func (h *Handler) ListPotions(w http.ResponseWriter, r *http.Request) {
	potions, err := h.Service.Potions(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list potions", err)
		return
	}

	dtos := make([]PotionDTO, len(potions))
	for i, p := range potions {
		dtos[i] = PotionDTO{
			SKU:        p.SKU,
			Name:       p.Name,
			Price:      p.Price,
			PotionType: recipeToSlice(p.Recipe),
			IsActive:   p.IsActive,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SavePotion creates or updates a potion definition.
// POST /api/potions
func (h *Handler) SavePotion(w http.ResponseWriter, r *http.Request) {
	var req PotionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid potion", err)
		return
	}

	err := h.Service.DefinePotion(r.Context(), engine.Potion{
		SKU:      req.SKU,
		Name:     req.Name,
		Price:    req.Price,
		Recipe:   sliceToRecipe(req.PotionType),
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save potion", err)
		return
	}

	writeJSON(w, http.StatusCreated, req)
}

// RecordTick folds recent sales into the per-tick analytics.
// POST /api/info/current_time
func (h *Handler) RecordTick(w http.ResponseWriter, r *http.Request) {
	var req TickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tick", err)
		return
	}

	stats, err := h.Store.RecordTick(r.Context(), req.DayOfWeek, req.HourOfDay, tickWindow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to record tick", err)
		return
	}

	h.Log.Info().Str("day", stats.DayOfWeek).Int("hour", stats.HourOfDay).
		Int("sales", stats.TotalSales).Int("gold", stats.TotalGold).
		Msg("tick recorded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ResetShop wipes all economic state and re-seeds the defaults.
// POST /api/admin/reset
func (h *Handler) ResetShop(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset shop", err)
		return
	}
	// Seeding gold/capacity happened in Reset; restore default potions too.
	if err := h.Service.Bootstrap(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to re-seed shop", err)
		return
	}

	h.Log.Warn().Msg("shop reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors onto HTTP statuses. Resource
// shortfalls are conflicts: the request was well-formed, the shop state
// just cannot honor it right now.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrInsufficientStock),
		errors.Is(err, engine.ErrInsufficientGold),
		errors.Is(err, engine.ErrInsufficientLiquid):
		writeError(w, http.StatusConflict, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case engine.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.Error().Err(err).Msg(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
