/*
Package engine provides the core ledger-based accounting engine.

PURPOSE:
  This package contains the types and algorithms for tracking the shop's
  resources: gold, raw liquid by color, bottled potions by SKU, and storage
  capacity. Every balance is derived by folding an append-only ledger.
  There is no mutable "gold" column anywhere - balance is always a sum of
  signed deltas.

KEY CONCEPTS IN THIS FILE (types.go):
  - Color / ColorVolumes: the four liquid colors and a per-color ml vector
  - TransactionKind: what kind of economic event produced a ledger entry
  - GoldEntry / LiquidEntry / PotionEntry / CapacityEntry: one immutable
    ledger row per resource class
  - Potion: a sellable SKU with its recipe (percentages summing to 100)
  - Cart: a customer's staged order, OPEN until checked out (terminal)

DESIGN PRINCIPLES:
  1. Immutability: ledger entries are never modified or deleted
  2. Idempotency: entries are keyed by (order_id, kind) so replayed
     deliveries resolve to no-ops
  3. Auditability: every balance change is traceable to an order
  4. Derivation: gold, ml, stock, and capacity are all folds over entries

SEE ALSO:
  - ledger.go: idempotent append operations and balance aggregation
  - store.go: persistence interfaces
  - errors.go: error taxonomy
*/
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ECONOMY CONSTANTS
// =============================================================================

const (
	// BaseGold is the gold balance seeded on a fresh (or reset) shop.
	BaseGold = 100

	// BasePotionCapacity and BaseLiquidCapacityMl are the free capacity
	// units every shop starts with. They double as the floor reported when
	// the capacity ledger is empty.
	BasePotionCapacity   = 50
	BaseLiquidCapacityMl = 10000

	// CapacityUnitPotions / CapacityUnitMl / CapacityUnitCost describe one
	// purchasable capacity unit: +50 potion slots or +10,000 ml, at 1,000
	// gold per unit.
	CapacityUnitPotions = 50
	CapacityUnitMl      = 10000
	CapacityUnitCost    = 1000

	// PotionUnitMl is the liquid volume one full-strength (100%) potion
	// consumes when bottled.
	PotionUnitMl = 100

	// MaxCatalogSize is the largest number of SKUs the catalog may offer
	// at one time.
	MaxCatalogSize = 6
)

// =============================================================================
// COLORS - the four raw liquid classes
// =============================================================================

type Color int

const (
	Red Color = iota
	Green
	Blue
	Dark
)

// NumColors is the fixed width of every color vector in the system.
const NumColors = 4

var colorNames = [NumColors]string{"red", "green", "blue", "dark"}

func (c Color) String() string {
	if c < 0 || int(c) >= NumColors {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// Colors lists all colors in canonical order (red, green, blue, dark).
func Colors() [NumColors]Color {
	return [NumColors]Color{Red, Green, Blue, Dark}
}

// ColorVolumes is a signed per-color ml vector. Used both for balances
// ("how much of each color do we hold") and for ledger deltas.
type ColorVolumes [NumColors]int

func (v ColorVolumes) Total() int {
	total := 0
	for _, ml := range v {
		total += ml
	}
	return total
}

func (v ColorVolumes) Add(o ColorVolumes) ColorVolumes {
	for i := range v {
		v[i] += o[i]
	}
	return v
}

func (v ColorVolumes) Sub(o ColorVolumes) ColorVolumes {
	for i := range v {
		v[i] -= o[i]
	}
	return v
}

func (v ColorVolumes) Neg() ColorVolumes {
	for i := range v {
		v[i] = -v[i]
	}
	return v
}

// HasNegative reports whether any color is below zero. A negative liquid
// balance is a bug signal, never silently clamped.
func (v ColorVolumes) HasNegative() bool {
	for _, ml := range v {
		if ml < 0 {
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSACTION KINDS
// =============================================================================

// TransactionKind tags every ledger entry with the economic event that
// produced it. (order_id, kind) identifies one external event; replays of
// the same pair are absorbed as no-ops.
type TransactionKind string

const (
	KindBarrelPurchase  TransactionKind = "BARREL_PURCHASE"  // liquid in, gold out
	KindBottling        TransactionKind = "BOTTLING"         // potions in, liquid out
	KindPotionSale      TransactionKind = "POTION_SALE"      // gold in, potions out
	KindCapacityUpgrade TransactionKind = "CAPACITY_UPGRADE" // capacity in, gold out
	KindShopReset       TransactionKind = "SHOP_RESET"       // seed entries after a reset
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EntryID string

func NewEntryID() EntryID {
	return EntryID(uuid.NewString())
}

// OrderID identifies one external event (a delivery, a cart checkout).
// Deliveries carry the exchange's order id; checkouts use the cart id.
type OrderID string

type CartID string

func NewCartID() CartID {
	return CartID(uuid.NewString())
}

// =============================================================================
// LEDGER ENTRIES - one immutable row per resource class
// =============================================================================

// GoldEntry is a signed gold movement (+income, -expense). Keyed globally.
type GoldEntry struct {
	ID        EntryID
	OrderID   OrderID
	Kind      TransactionKind
	Delta     int
	CreatedAt time.Time
}

// LiquidEntry carries the signed deltas for every color at once, so a
// mixed-color barrel delivery is a single atomic row. Keyed globally.
type LiquidEntry struct {
	ID        EntryID
	OrderID   OrderID
	Kind      TransactionKind
	Deltas    ColorVolumes
	CreatedAt time.Time
}

// PotionEntry is a signed stock change for one SKU. A transaction may carry
// several line items; each is unique by (order_id, line_item_id, kind).
type PotionEntry struct {
	ID         EntryID
	OrderID    OrderID
	LineItemID int
	Kind       TransactionKind
	SKU        string
	Delta      int
	CreatedAt  time.Time
}

// PotionLine is the caller-facing shape of one potion delta before it is
// assigned a line item id.
type PotionLine struct {
	SKU   string
	Delta int
}

// CapacityEntry raises the potion and/or liquid ceilings. The paired gold
// debit is a separate GoldEntry under the same order id.
type CapacityEntry struct {
	ID          EntryID
	OrderID     OrderID
	Kind        TransactionKind
	PotionDelta int
	MlDelta     int
	CreatedAt   time.Time
}

// =============================================================================
// POTIONS - sellable SKU definitions
// =============================================================================

// Recipe holds the percentage of each color in one potion. Percentages are
// non-negative integers summing to exactly 100.
type Recipe [NumColors]int

func (r Recipe) Validate() error {
	sum := 0
	for i, pct := range r {
		if pct < 0 {
			return fmt.Errorf("%w: %s percentage is negative", ErrInvalidRecipe, Color(i))
		}
		sum += pct
	}
	if sum != 100 {
		return fmt.Errorf("%w: percentages sum to %d, want 100", ErrInvalidRecipe, sum)
	}
	return nil
}

// MlPerPotion returns the ml of each color consumed by bottling a single
// potion of this recipe.
func (r Recipe) MlPerPotion() ColorVolumes {
	var ml ColorVolumes
	for i, pct := range r {
		ml[i] = pct * PotionUnitMl / 100
	}
	return ml
}

type Potion struct {
	SKU      string
	Name     string
	Price    int
	Recipe   Recipe
	IsActive bool
}

// =============================================================================
// CARTS
// =============================================================================

// Cart is a customer's staged order. Lifecycle: created OPEN, items staged
// via accumulating upsert, then one terminal transition to checked out.
type Cart struct {
	ID             CartID
	CustomerName   string
	CharacterClass string
	Level          int
	CheckedOut     bool
	CreatedAt      time.Time
}

// Customer describes who a cart is created for.
type Customer struct {
	Name           string
	CharacterClass string
	Level          int
}
