package shop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/shop"
)

// =============================================================================
// BARREL DELIVERIES
// =============================================================================

func redBarrel(qty int) shop.Barrel {
	return shop.Barrel{
		SKU:         "SMALL_RED_BARREL",
		MlPerBarrel: 500,
		Fractions:   [engine.NumColors]float64{1, 0, 0, 0},
		Price:       60,
		Quantity:    qty,
	}
}

func TestDeliverBarrels_DebitsGoldCreditsLiquid(t *testing.T) {
	// GIVEN: 200 gold
	// WHEN: Two 500ml red barrels at 60 gold each arrive
	// THEN: Gold drops by 120 and red liquid rises by 1000ml, atomically

	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendGold(ctx, "seed", engine.KindShopReset, 200)
	require.NoError(t, err)

	require.NoError(t, s.DeliverBarrels(ctx, "order-1", []shop.Barrel{redBarrel(2)}))

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, b.Gold)
	assert.Equal(t, engine.ColorVolumes{1000, 0, 0, 0}, b.Liquid)
}

func TestDeliverBarrels_Replay_Absorbed(t *testing.T) {
	// The wholesaler retries deliveries. Same order id, same kind: no-op.

	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendGold(ctx, "seed", engine.KindShopReset, 200)
	require.NoError(t, err)

	require.NoError(t, s.DeliverBarrels(ctx, "order-1", []shop.Barrel{redBarrel(2)}))
	require.NoError(t, s.DeliverBarrels(ctx, "order-1", []shop.Barrel{redBarrel(2)}))

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 80, b.Gold, "replay must not pay twice")
	assert.Equal(t, 1000, b.TotalLiquidMl(), "replay must not credit twice")
}

func TestDeliverBarrels_InsufficientGold_NothingCommitted(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendGold(ctx, "seed", engine.KindShopReset, 100)
	require.NoError(t, err)

	err = s.DeliverBarrels(ctx, "order-1", []shop.Barrel{redBarrel(2)})
	require.ErrorIs(t, err, engine.ErrInsufficientGold)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, b.Gold)
	assert.Equal(t, 0, b.TotalLiquidMl())

	// The guard row rolled back too, so a corrected retry can apply.
	require.NoError(t, s.DeliverBarrels(ctx, "order-1", []shop.Barrel{redBarrel(1)}))
}

func TestDeliverBarrels_BadFractions_Rejected(t *testing.T) {
	s := newTestService(t)

	bad := redBarrel(1)
	bad.Fractions = [engine.NumColors]float64{0.5, 0.2, 0, 0}
	err := s.DeliverBarrels(context.Background(), "order-1", []shop.Barrel{bad})
	assert.Error(t, err)
}

// =============================================================================
// BOTTLE DELIVERIES
// =============================================================================

func TestDeliverBottles_CreditsStockDebitsLiquid(t *testing.T) {
	// GIVEN: 1000ml red liquid and a pure red SKU
	// WHEN: 5 pure red potions are bottled (100ml each)
	// THEN: Stock +5, red liquid -500

	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 0)
	_, err := s.Ledger.AppendLiquid(ctx, "seed", engine.KindShopReset,
		engine.ColorVolumes{1000, 0, 0, 0})
	require.NoError(t, err)

	err = s.DeliverBottles(ctx, "bottling-1", []shop.BottleMix{
		{Recipe: engine.Recipe{100, 0, 0, 0}, Quantity: 5},
	})
	require.NoError(t, err)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Potions["RED_POTION"])
	assert.Equal(t, engine.ColorVolumes{500, 0, 0, 0}, b.Liquid)
}

func TestDeliverBottles_InsufficientLiquid_NothingCommitted(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 0)
	_, err := s.Ledger.AppendLiquid(ctx, "seed", engine.KindShopReset,
		engine.ColorVolumes{300, 0, 0, 0})
	require.NoError(t, err)

	err = s.DeliverBottles(ctx, "bottling-1", []shop.BottleMix{
		{Recipe: engine.Recipe{100, 0, 0, 0}, Quantity: 5},
	})
	require.Error(t, err)

	var liquidErr *engine.InsufficientLiquidError
	require.ErrorAs(t, err, &liquidErr)
	assert.Equal(t, engine.Red, liquidErr.Color)
	assert.Equal(t, 500, liquidErr.Requested)
	assert.Equal(t, 300, liquidErr.Available)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Potions["RED_POTION"])
	assert.Equal(t, 300, b.Liquid[engine.Red])
}

func TestDeliverBottles_UnknownRecipe_Rejected(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendLiquid(ctx, "seed", engine.KindShopReset,
		engine.ColorVolumes{1000, 1000, 0, 0})
	require.NoError(t, err)

	err = s.DeliverBottles(ctx, "bottling-1", []shop.BottleMix{
		{Recipe: engine.Recipe{50, 50, 0, 0}, Quantity: 1},
	})
	assert.ErrorIs(t, err, engine.ErrPotionNotFound)
}

func TestDeliverBottles_Replay_Absorbed(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 0)
	_, err := s.Ledger.AppendLiquid(ctx, "seed", engine.KindShopReset,
		engine.ColorVolumes{1000, 0, 0, 0})
	require.NoError(t, err)

	mixes := []shop.BottleMix{{Recipe: engine.Recipe{100, 0, 0, 0}, Quantity: 5}}
	require.NoError(t, s.DeliverBottles(ctx, "bottling-1", mixes))
	require.NoError(t, s.DeliverBottles(ctx, "bottling-1", mixes))

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Potions["RED_POTION"])
	assert.Equal(t, 500, b.Liquid[engine.Red])
}

// =============================================================================
// CAPACITY DELIVERIES
// =============================================================================

func TestDeliverCapacity_ExpandsAndCharges(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendGold(ctx, "seed", engine.KindShopReset, 2500)
	require.NoError(t, err)
	_, err = s.Ledger.AppendCapacity(ctx, "seed", engine.KindShopReset,
		engine.BasePotionCapacity, engine.BaseLiquidCapacityMl)
	require.NoError(t, err)

	require.NoError(t, s.DeliverCapacity(ctx, "upgrade-1", 1, 1))

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, b.Gold)
	assert.Equal(t, 100, b.MaxPotionCapacity)
	assert.Equal(t, 20000, b.MaxLiquidCapacity)
}

func TestDeliverCapacity_InsufficientGold_Rejected(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	_, err := s.Ledger.AppendGold(ctx, "seed", engine.KindShopReset, 999)
	require.NoError(t, err)

	err = s.DeliverCapacity(ctx, "upgrade-1", 1, 0)
	assert.ErrorIs(t, err, engine.ErrInsufficientGold)
}

func TestDeliverCapacity_ZeroUnits_NoOp(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	require.NoError(t, s.DeliverCapacity(ctx, "upgrade-1", 0, 0))

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Gold)
}
