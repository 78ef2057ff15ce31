package planner_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/planner"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func largeBarrel(sku string, color engine.Color, price int) planner.Offer {
	o := planner.Offer{
		SKU:         sku,
		MlPerBarrel: 10000,
		Price:       price,
		Quantity:    1,
	}
	o.Fractions[color] = 1
	return o
}

func seededPlanner(seed int64) *planner.PurchasePlanner {
	return &planner.PurchasePlanner{Rand: rand.New(rand.NewSource(seed))}
}

// =============================================================================
// DEFICIT-WEIGHTED SELECTION
// =============================================================================

func TestPlan_EqualDeficits_TieKeepsCatalogOrder(t *testing.T) {
	// GIVEN: Empty barrels, equal red and green deficits, two large
	//        barrels differing only in price
	// WHEN: Planning with both affordable
	// THEN: Equal scores; the earlier catalog entry wins

	p := seededPlanner(1)
	orders := p.Plan(planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 20000,
		Offers: []planner.Offer{
			largeBarrel("LARGE_RED_BARREL", engine.Red, 500),
			largeBarrel("LARGE_GREEN_BARREL", engine.Green, 400),
		},
	})

	require.Len(t, orders, 1)
	assert.Equal(t, "LARGE_RED_BARREL", orders[0].SKU)
	assert.Equal(t, 1, orders[0].Quantity)
}

func TestPlan_LargerDeficit_Wins(t *testing.T) {
	// Red is half-stocked, green empty: the green barrel scores higher.

	p := seededPlanner(1)
	orders := p.Plan(planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 40000,
		Liquid:            engine.ColorVolumes{5000, 0, 0, 0},
		Offers: []planner.Offer{
			largeBarrel("LARGE_RED_BARREL", engine.Red, 500),
			largeBarrel("LARGE_GREEN_BARREL", engine.Green, 400),
		},
	})

	require.Len(t, orders, 1)
	assert.Equal(t, "LARGE_GREEN_BARREL", orders[0].SKU)
}

func TestPlan_Deterministic(t *testing.T) {
	// Same input, same plan, every time.

	in := planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 20000,
		Offers: []planner.Offer{
			largeBarrel("LARGE_RED_BARREL", engine.Red, 500),
			largeBarrel("LARGE_GREEN_BARREL", engine.Green, 400),
		},
	}

	first := seededPlanner(1).Plan(in)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, seededPlanner(int64(i)).Plan(in),
			"positive-score planning must not depend on the random source")
	}
}

func TestPlan_Weights_ShiftTargets(t *testing.T) {
	// Boosting dark's weight makes the dark barrel outscore red even
	// though both colors are empty.

	p := seededPlanner(1)
	in := planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 20000,
		Weights:           [engine.NumColors]float64{0, 0, 0, 2.0},
		Offers: []planner.Offer{
			largeBarrel("LARGE_RED_BARREL", engine.Red, 500),
			largeBarrel("LARGE_DARK_BARREL", engine.Dark, 750),
		},
	}

	orders := p.Plan(in)
	require.Len(t, orders, 1)
	assert.Equal(t, "LARGE_DARK_BARREL", orders[0].SKU)
}

// =============================================================================
// ELIGIBILITY FILTERS
// =============================================================================

func TestPlan_FiltersJunkUnaffordableOverCapacity(t *testing.T) {
	p := seededPlanner(1)

	junk := largeBarrel("JUNK_RED_BARREL", engine.Red, 10)
	tooExpensive := largeBarrel("LARGE_RED_BARREL", engine.Red, 5000)
	tooBig := largeBarrel("HUGE_GREEN_BARREL", engine.Green, 100)
	tooBig.MlPerBarrel = 50000
	small := largeBarrel("SMALL_BLUE_BARREL", engine.Blue, 100)
	small.MlPerBarrel = 500

	orders := p.Plan(planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 20000,
		Offers:            []planner.Offer{junk, tooExpensive, tooBig, small},
	})

	require.Len(t, orders, 1)
	assert.Equal(t, "SMALL_BLUE_BARREL", orders[0].SKU)
}

func TestPlan_NoEligibleOffers_EmptyPlan(t *testing.T) {
	p := seededPlanner(1)

	orders := p.Plan(planner.PurchaseInput{
		Gold:              50,
		MaxLiquidCapacity: 20000,
		Offers: []planner.Offer{
			largeBarrel("LARGE_RED_BARREL", engine.Red, 500),
		},
	})
	assert.Empty(t, orders)
}

// =============================================================================
// QUANTITY POLICY
// =============================================================================

func TestPlan_Quantity_CappedByGoldAndCapacity(t *testing.T) {
	// Offer has 10 barrels; gold affords 3; capacity fits 2.

	p := seededPlanner(1)
	offer := largeBarrel("MED_RED_BARREL", engine.Red, 300)
	offer.MlPerBarrel = 2500
	offer.Quantity = 10

	orders := p.Plan(planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 5000,
		Offers:            []planner.Offer{offer},
	})

	require.Len(t, orders, 1)
	assert.Equal(t, 2, orders[0].Quantity)
}

// =============================================================================
// NO-DEFICIT FALLBACK
// =============================================================================

func TestPlan_AllTargetsMet_BuysOneRandomEligible(t *testing.T) {
	// All colors at their (weighted-down) targets: no positive score.
	// Spare gold still buys a single random eligible barrel.

	offer := largeBarrel("SMALL_RED_BARREL", engine.Red, 100)
	offer.MlPerBarrel = 500
	offer.Quantity = 5

	in := planner.PurchaseInput{
		Gold:              1000,
		MaxLiquidCapacity: 40000,
		Liquid:            engine.ColorVolumes{5000, 5000, 5000, 5000},
		Weights:           [engine.NumColors]float64{0.5, 0.5, 0.5, 0.5},
		Offers:            []planner.Offer{offer},
	}

	orders := seededPlanner(7).Plan(in)
	require.Len(t, orders, 1)
	assert.Equal(t, "SMALL_RED_BARREL", orders[0].SKU)
	assert.Equal(t, 1, orders[0].Quantity, "fallback buys exactly one")
}
