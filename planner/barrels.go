/*
Package planner holds the shop's planning heuristics as pure functions
over explicit input structs.

PURPOSE:
  Planning is deliberately separated from I/O: the request layer folds the
  ledgers into balances, builds an input struct, and the planner produces a
  plan. Heuristic variants can be swapped and tested without a database.

PLANNERS:
  barrels.go:  which wholesale barrels to buy (deficit-weighted scoring)
  bottler.go:  how many potions of each recipe to bottle
  capacity.go: when to buy more shelf/barrel capacity
*/
package planner

import (
	"math/rand"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/shop-engine/engine"
)

// =============================================================================
// PURCHASE PLANNER - deficit-weighted barrel selection
// =============================================================================

// Offer is one wholesale catalog line.
type Offer struct {
	SKU         string
	MlPerBarrel int
	Fractions   [engine.NumColors]float64
	Price       int
	Quantity    int
}

// BarrelOrder is one purchase instruction.
type BarrelOrder struct {
	SKU      string
	Quantity int
}

// PurchaseInput is everything the purchase planner looks at.
type PurchaseInput struct {
	Gold              int
	MaxLiquidCapacity int
	Liquid            engine.ColorVolumes

	// Weights boost a color's target level above the even split. Zero
	// means 1.0 (no boost).
	Weights [engine.NumColors]float64

	Offers []Offer
}

// PurchasePlanner scores offers by how much they reduce the current color
// deficits. Rand drives only the no-deficit fallback; tests inject a
// seeded source.
type PurchasePlanner struct {
	Rand *rand.Rand
}

// Plan selects the offer whose color mix best fills the current deficits,
// at the maximum affordable/available/capacity-respecting quantity.
//
// Policy (deliberately single and deterministic):
//  1. Drop offers that are unaffordable, junk-tier, or over capacity.
//  2. deficit[c] = max(0, target[c] - current[c]), target = cap/4 * weight.
//  3. score = sum over colors of fraction * deficit * ml_per_barrel.
//  4. Highest score wins; ties keep the earliest catalog position.
//  5. No positive score: buy 1 of a random affordable offer, else nothing.
func (p *PurchasePlanner) Plan(in PurchaseInput) []BarrelOrder {
	currentTotal := in.Liquid.Total()

	eligible := make([]int, 0, len(in.Offers))
	for i, o := range in.Offers {
		if o.Price > in.Gold || o.Quantity <= 0 || o.MlPerBarrel <= 0 {
			continue
		}
		if isJunk(o.SKU) {
			continue
		}
		if currentTotal+o.MlPerBarrel > in.MaxLiquidCapacity {
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) == 0 {
		return nil
	}

	deficits := p.deficits(in)

	best := -1
	bestScore := decimal.Zero
	for _, i := range eligible {
		score := offerScore(in.Offers[i], deficits)
		// Strict inequality keeps the earliest offer on ties.
		if score.IsPositive() && (best == -1 || score.GreaterThan(bestScore)) {
			best = i
			bestScore = score
		}
	}

	if best == -1 {
		// All colors at or above target. Spend spare gold on a random
		// affordable barrel rather than idling.
		pick := eligible[p.intn(len(eligible))]
		return []BarrelOrder{{SKU: in.Offers[pick].SKU, Quantity: 1}}
	}

	offer := in.Offers[best]
	qty := offer.Quantity
	if affordable := in.Gold / offer.Price; offer.Price > 0 && affordable < qty {
		qty = affordable
	}
	if fits := (in.MaxLiquidCapacity - currentTotal) / offer.MlPerBarrel; fits < qty {
		qty = fits
	}
	if qty < 1 {
		qty = 1
	}
	return []BarrelOrder{{SKU: offer.SKU, Quantity: qty}}
}

func (p *PurchasePlanner) deficits(in PurchaseInput) [engine.NumColors]decimal.Decimal {
	var deficits [engine.NumColors]decimal.Decimal
	evenTarget := decimal.NewFromInt(int64(in.MaxLiquidCapacity)).
		Div(decimal.NewFromInt(engine.NumColors))
	for i := range deficits {
		weight := in.Weights[i]
		if weight == 0 {
			weight = 1.0
		}
		target := evenTarget.Mul(decimal.NewFromFloat(weight))
		deficit := target.Sub(decimal.NewFromInt(int64(in.Liquid[i])))
		if deficit.IsNegative() {
			deficit = decimal.Zero
		}
		deficits[i] = deficit
	}
	return deficits
}

func offerScore(o Offer, deficits [engine.NumColors]decimal.Decimal) decimal.Decimal {
	volume := decimal.NewFromInt(int64(o.MlPerBarrel))
	score := decimal.Zero
	for i, f := range o.Fractions {
		if f == 0 || deficits[i].IsZero() {
			continue
		}
		score = score.Add(decimal.NewFromFloat(f).Mul(deficits[i]).Mul(volume))
	}
	return score
}

// isJunk flags the exchange's junk-tier barrels, which are never worth
// shelf space.
func isJunk(sku string) bool {
	return strings.Contains(strings.ToUpper(sku), "JUNK")
}

func (p *PurchasePlanner) intn(n int) int {
	if p.Rand != nil {
		return p.Rand.Intn(n)
	}
	return rand.Intn(n)
}
