/*
deliveries.go - Idempotent processing of external deliveries

PURPOSE:
  The wholesale exchange delivers barrels, bottling runs, and capacity
  purchases asynchronously, retrying on any network hiccup. Every delivery
  carries an order id; processing is idempotent on (order_id, kind), so a
  replayed delivery is a no-op success.

EACH DELIVERY IS ONE ATOMIC EVENT:
  Barrels:  liquid credits + gold debit
  Bottles:  potion credits + liquid debits
  Capacity: capacity credit + gold debit
  All rows of an event share the order id and commit together.

FLOORS:
  A delivery that would push gold or a liquid color negative is rejected
  whole. Negative balances are bug signals, never silently clamped.
*/
package shop

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/engine"
)

// =============================================================================
// BARRELS
// =============================================================================

// Barrel is one delivered (or offered) wholesale barrel line.
type Barrel struct {
	SKU         string
	MlPerBarrel int
	// Fractions of each color in the barrel, summing to 1.0 within 1e-6.
	Fractions [engine.NumColors]float64
	Price     int
	Quantity  int
}

// fractionTolerance bounds the accepted drift in a barrel's color split.
const fractionTolerance = 1e-6

func (b Barrel) Validate() error {
	if b.MlPerBarrel <= 0 {
		return fmt.Errorf("barrel %s: ml_per_barrel must be positive", b.SKU)
	}
	if b.Price < 0 || b.Quantity < 0 {
		return fmt.Errorf("barrel %s: price and quantity must be non-negative", b.SKU)
	}
	sum := 0.0
	for _, f := range b.Fractions {
		if f < 0 {
			return fmt.Errorf("barrel %s: negative color fraction", b.SKU)
		}
		sum += f
	}
	if math.Abs(sum-1.0) >= fractionTolerance {
		return fmt.Errorf("barrel %s: color fractions sum to %v, want 1.0", b.SKU, sum)
	}
	return nil
}

// MlAdded converts the barrel line into per-color ml, using decimal
// arithmetic so the float fractions cannot drift the ledger.
func (b Barrel) MlAdded() engine.ColorVolumes {
	var ml engine.ColorVolumes
	volume := decimal.NewFromInt(int64(b.MlPerBarrel * b.Quantity))
	for i, f := range b.Fractions {
		ml[i] = int(decimal.NewFromFloat(f).Mul(volume).Round(0).IntPart())
	}
	return ml
}

// DeliverBarrels records a barrel delivery: liquid in, gold out, one
// atomic event keyed by orderID. Replays are absorbed.
func (s *Service) DeliverBarrels(ctx context.Context, orderID engine.OrderID, barrels []Barrel) error {
	goldPaid := 0
	var added engine.ColorVolumes
	for _, b := range barrels {
		if err := b.Validate(); err != nil {
			return err
		}
		goldPaid += b.Price * b.Quantity
		added = added.Add(b.MlAdded())
	}

	_, err := s.Ledger.WithGuard(ctx, engine.LedgerGold, orderID, engine.KindBarrelPurchase, func(st engine.Store) error {
		gold, err := st.GoldBalance(ctx)
		if err != nil {
			return err
		}
		if gold-goldPaid < 0 {
			return fmt.Errorf("barrel order %s costs %d, have %d: %w",
				orderID, goldPaid, gold, engine.ErrInsufficientGold)
		}
		now := time.Now().UTC()
		err = st.AppendGold(ctx, engine.GoldEntry{
			ID:        engine.NewEntryID(),
			OrderID:   orderID,
			Kind:      engine.KindBarrelPurchase,
			Delta:     -goldPaid,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		return st.AppendLiquid(ctx, engine.LiquidEntry{
			ID:        engine.NewEntryID(),
			OrderID:   orderID,
			Kind:      engine.KindBarrelPurchase,
			Deltas:    added,
			CreatedAt: now,
		})
	})
	return err
}

// =============================================================================
// BOTTLES
// =============================================================================

// BottleMix is one bottled batch: a recipe and how many were produced.
type BottleMix struct {
	Recipe   engine.Recipe
	Quantity int
}

// DeliverBottles records a bottling run: potion stock in, liquid out.
// Each mix is matched to a defined SKU by its exact recipe.
func (s *Service) DeliverBottles(ctx context.Context, orderID engine.OrderID, mixes []BottleMix) error {
	for _, m := range mixes {
		if err := m.Recipe.Validate(); err != nil {
			return err
		}
		if m.Quantity <= 0 {
			return fmt.Errorf("bottle quantity must be positive, got %d", m.Quantity)
		}
	}

	_, err := s.Ledger.WithGuard(ctx, engine.LedgerPotion, orderID, engine.KindBottling, func(st engine.Store) error {
		potions, err := st.ListPotions(ctx, false)
		if err != nil {
			return err
		}
		bySKU := make(map[engine.Recipe]string, len(potions))
		for _, p := range potions {
			bySKU[p.Recipe] = p.SKU
		}

		var consumed engine.ColorVolumes
		lines := make([]engine.PotionLine, 0, len(mixes))
		for _, m := range mixes {
			sku, ok := bySKU[m.Recipe]
			if !ok {
				return fmt.Errorf("no potion defined for recipe %v: %w", m.Recipe, engine.ErrPotionNotFound)
			}
			lines = append(lines, engine.PotionLine{SKU: sku, Delta: m.Quantity})
			per := m.Recipe.MlPerPotion()
			for i := range per {
				consumed[i] += per[i] * m.Quantity
			}
		}

		liquid, err := st.LiquidBalance(ctx)
		if err != nil {
			return err
		}
		for i := range consumed {
			if liquid[i]-consumed[i] < 0 {
				return &engine.InsufficientLiquidError{
					Color:     engine.Color(i),
					Requested: consumed[i],
					Available: liquid[i],
				}
			}
		}

		if err := engine.AppendPotionLines(ctx, st, orderID, engine.KindBottling, lines); err != nil {
			return err
		}
		return st.AppendLiquid(ctx, engine.LiquidEntry{
			ID:        engine.NewEntryID(),
			OrderID:   orderID,
			Kind:      engine.KindBottling,
			Deltas:    consumed.Neg(),
			CreatedAt: time.Now().UTC(),
		})
	})
	return err
}

// =============================================================================
// CAPACITY
// =============================================================================

// DeliverCapacity records a capacity purchase: potionUnits shelf units and
// mlUnits barrel units, 1,000 gold each.
func (s *Service) DeliverCapacity(ctx context.Context, orderID engine.OrderID, potionUnits, mlUnits int) error {
	if potionUnits < 0 || mlUnits < 0 {
		return fmt.Errorf("capacity units must be non-negative")
	}
	if potionUnits == 0 && mlUnits == 0 {
		return nil
	}
	goldCost := (potionUnits + mlUnits) * engine.CapacityUnitCost

	_, err := s.Ledger.WithGuard(ctx, engine.LedgerCapacity, orderID, engine.KindCapacityUpgrade, func(st engine.Store) error {
		gold, err := st.GoldBalance(ctx)
		if err != nil {
			return err
		}
		if gold-goldCost < 0 {
			return fmt.Errorf("capacity order %s costs %d, have %d: %w",
				orderID, goldCost, gold, engine.ErrInsufficientGold)
		}
		now := time.Now().UTC()
		err = st.AppendCapacity(ctx, engine.CapacityEntry{
			ID:          engine.NewEntryID(),
			OrderID:     orderID,
			Kind:        engine.KindCapacityUpgrade,
			PotionDelta: potionUnits * engine.CapacityUnitPotions,
			MlDelta:     mlUnits * engine.CapacityUnitMl,
			CreatedAt:   now,
		})
		if err != nil {
			return err
		}
		return st.AppendGold(ctx, engine.GoldEntry{
			ID:        engine.NewEntryID(),
			OrderID:   orderID,
			Kind:      engine.KindCapacityUpgrade,
			Delta:     -goldCost,
			CreatedAt: now,
		})
	})
	return err
}
