/*
Package shop is the domain layer over the ledger engine.

PURPOSE:
  Wraps the generic ledger engine with the shop's business operations:
  cart lifecycle and checkout, barrel/bottle/capacity deliveries, the
  customer-facing catalog, and sold-order search. Every operation here is
  expressed as guarded ledger appends - the shop never mutates a balance
  directly.

SEE ALSO:
  - cart.go: cart state machine and checkout
  - deliveries.go: idempotent external deliveries
  - catalog.go: active SKU listing and default potion set
  - search.go: sold line item search with explicit comparators
*/
package shop

import (
	"context"

	"github.com/warp/shop-engine/engine"
)

// Service exposes the shop's operations to the request-handling layer.
type Service struct {
	Store  engine.TxStore
	Ledger *engine.Ledger

	// Sales is optional; search is unavailable without it.
	Sales SaleReader
}

func NewService(store engine.TxStore) *Service {
	return &Service{
		Store:  store,
		Ledger: engine.NewLedger(store),
	}
}

// Balances returns the current derived state of the shop.
func (s *Service) Balances(ctx context.Context) (engine.Balances, error) {
	return s.Ledger.Balances(ctx)
}

// Audit summarizes the inventory for external reconciliation: total potion
// count, total ml across all colors, and gold.
type Audit struct {
	NumberOfPotions int
	MlInBarrels     int
	Gold            int
}

func (s *Service) Audit(ctx context.Context) (Audit, error) {
	b, err := s.Ledger.Balances(ctx)
	if err != nil {
		return Audit{}, err
	}
	return Audit{
		NumberOfPotions: b.TotalPotions(),
		MlInBarrels:     b.TotalLiquidMl(),
		Gold:            b.Gold,
	}, nil
}

// seedOrderID keys the idempotent bootstrap entries. Replayed bootstraps
// are absorbed by the guard, so startup can always call Bootstrap.
const seedOrderID engine.OrderID = "bootstrap"

// Bootstrap seeds a fresh shop: starting gold, the free base capacity
// unit, and the default potion definitions. Safe to call on every start.
func (s *Service) Bootstrap(ctx context.Context) error {
	if _, err := s.Ledger.AppendGold(ctx, seedOrderID, engine.KindShopReset, engine.BaseGold); err != nil {
		return err
	}
	if _, err := s.Ledger.AppendCapacity(ctx, seedOrderID, engine.KindShopReset,
		engine.BasePotionCapacity, engine.BaseLiquidCapacityMl); err != nil {
		return err
	}
	for _, p := range DefaultPotions() {
		existing, err := s.Store.GetPotion(ctx, p.SKU)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.Store.SavePotion(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// DefinePotion registers or updates a sellable SKU.
func (s *Service) DefinePotion(ctx context.Context, p engine.Potion) error {
	if err := p.Recipe.Validate(); err != nil {
		return err
	}
	return s.Store.SavePotion(ctx, p)
}

// Potions lists potion definitions.
func (s *Service) Potions(ctx context.Context, activeOnly bool) ([]engine.Potion, error) {
	return s.Store.ListPotions(ctx, activeOnly)
}
