/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

WIRE FORMAT NOTES:
  Color-indexed values travel as 4-element arrays in RGBD order, matching
  the buying-side wholesale protocol. Barrels carry fractional color
  splits summing to 1.0; potions carry integer percentages summing
  to 100.

VALIDATION:
  Struct tags (go-playground/validator) declare the field-level rules;
  handlers run the validator and add the cross-field checks (fraction
  sums, recipe sums) that tags cannot express.

SEE ALSO:
  - handlers.go: Uses these types
  - shop/deliveries.go: Domain-side validation of barrels and mixes
*/
package api

import (
	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/shop"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BarrelDTO is one wholesale barrel line, in a delivery or a plan input.
type BarrelDTO struct {
	SKU         string    `json:"sku" validate:"required"`
	MlPerBarrel int       `json:"ml_per_barrel" validate:"gt=0"`
	PotionType  []float64 `json:"potion_type" validate:"len=4,dive,gte=0,lte=1"`
	Price       int       `json:"price" validate:"gte=0"`
	Quantity    int       `json:"quantity" validate:"gte=0"`
}

// BarrelOrderDTO is one purchase instruction in a plan response.
type BarrelOrderDTO struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// PotionMixDTO is one bottled batch: integer color percentages summing
// to 100, and a quantity. Used both for bottler deliveries and plans.
type PotionMixDTO struct {
	PotionType []int `json:"potion_type" validate:"len=4,dive,gte=0,lte=100"`
	Quantity   int   `json:"quantity" validate:"gt=0"`
}

// CapacityPurchaseDTO carries whole capacity units, not raw slots/ml.
type CapacityPurchaseDTO struct {
	PotionCapacity int `json:"potion_capacity" validate:"gte=0"`
	MlCapacity     int `json:"ml_capacity" validate:"gte=0"`
}

// AuditResponse summarizes inventory for external reconciliation.
type AuditResponse struct {
	NumberOfPotions int `json:"number_of_potions"`
	MlInBarrels     int `json:"ml_in_barrels"`
	Gold            int `json:"gold"`
}

// CreateCartRequest identifies the visiting customer.
type CreateCartRequest struct {
	CustomerName   string `json:"customer_name" validate:"required"`
	CharacterClass string `json:"character_class"`
	Level          int    `json:"level" validate:"gte=0"`
}

// CreateCartResponse returns the new cart's id.
type CreateCartResponse struct {
	CartID string `json:"cart_id"`
}

// SetItemQuantityRequest stages potions in a cart. Repeats add.
type SetItemQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

// CheckoutResponse reports the totals of a settled cart. Replayed
// checkouts of the same cart return the same totals.
type CheckoutResponse struct {
	TotalPotionsBought int `json:"total_potions_bought"`
	TotalGoldPaid      int `json:"total_gold_paid"`
}

// CatalogItemDTO is one sellable offer.
type CatalogItemDTO struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Price      int    `json:"price"`
	PotionType []int  `json:"potion_type"`
}

// PotionDTO represents a potion definition in requests and responses.
type PotionDTO struct {
	SKU        string `json:"sku" validate:"required,uppercase"`
	Name       string `json:"name" validate:"required"`
	Price      int    `json:"price" validate:"gt=0,lte=500"`
	PotionType []int  `json:"potion_type" validate:"len=4,dive,gte=0,lte=100"`
	IsActive   bool   `json:"is_active"`
}

// SearchResultDTO is one row of the order search.
type SearchResultDTO struct {
	LineItemID    int    `json:"line_item_id"`
	ItemSKU       string `json:"item_sku"`
	CustomerName  string `json:"customer_name"`
	LineItemTotal int    `json:"line_item_total"`
	Timestamp     string `json:"timestamp"`
}

// SearchResponse is a page of search results with opaque page tokens.
type SearchResponse struct {
	Previous string            `json:"previous"`
	Next     string            `json:"next"`
	Results  []SearchResultDTO `json:"results"`
}

// TickRequest is the game clock notification.
type TickRequest struct {
	DayOfWeek string `json:"day_of_week" validate:"required"`
	HourOfDay int    `json:"hour_of_day" validate:"gte=0,lte=23"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func (d BarrelDTO) toBarrel() shop.Barrel {
	b := shop.Barrel{
		SKU:         d.SKU,
		MlPerBarrel: d.MlPerBarrel,
		Price:       d.Price,
		Quantity:    d.Quantity,
	}
	copy(b.Fractions[:], d.PotionType)
	return b
}

func (d PotionMixDTO) toMix() shop.BottleMix {
	m := shop.BottleMix{Quantity: d.Quantity}
	copy(m.Recipe[:], d.PotionType)
	return m
}

func recipeToSlice(r engine.Recipe) []int {
	out := make([]int, engine.NumColors)
	copy(out, r[:])
	return out
}

func sliceToRecipe(s []int) engine.Recipe {
	var r engine.Recipe
	copy(r[:], s)
	return r
}
