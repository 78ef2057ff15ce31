package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/engine/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*engine.Ledger, *store.TxMemory) {
	t.Helper()
	mem := store.NewTxMemory()
	return engine.NewLedger(mem), mem
}

// =============================================================================
// FOLD CORRECTNESS
// =============================================================================

func TestLedger_GoldBalance_IsSumOfDeltas(t *testing.T) {
	// GIVEN: A sequence of signed gold entries
	// WHEN: Reading balances
	// THEN: Gold equals the fold of all deltas

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	applied, err := ledger.AppendGold(ctx, "seed", engine.KindShopReset, 100)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = ledger.AppendGold(ctx, "order-1", engine.KindBarrelPurchase, -60)
	require.NoError(t, err)
	_, err = ledger.AppendGold(ctx, "cart-1", engine.KindPotionSale, 150)
	require.NoError(t, err)

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 190, b.Gold)
}

func TestLedger_LiquidBalance_FoldsPerColor(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AppendLiquid(ctx, "order-1", engine.KindBarrelPurchase,
		engine.ColorVolumes{1000, 500, 0, 0})
	require.NoError(t, err)
	_, err = ledger.AppendLiquid(ctx, "bottling-1", engine.KindBottling,
		engine.ColorVolumes{-300, 0, 0, 0})
	require.NoError(t, err)

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.ColorVolumes{700, 500, 0, 0}, b.Liquid)
	assert.Equal(t, 1200, b.TotalLiquidMl())
}

func TestLedger_PotionStocks_FoldPerSKU(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AppendPotions(ctx, "bottling-1", engine.KindBottling, []engine.PotionLine{
		{SKU: "RED_POTION", Delta: 5},
		{SKU: "BLUE_POTION", Delta: 3},
	})
	require.NoError(t, err)
	_, err = ledger.AppendPotions(ctx, "cart-1", engine.KindPotionSale, []engine.PotionLine{
		{SKU: "RED_POTION", Delta: -2},
	})
	require.NoError(t, err)

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Potions["RED_POTION"])
	assert.Equal(t, 3, b.Potions["BLUE_POTION"])
	assert.Equal(t, 6, b.TotalPotions())
}

// =============================================================================
// IDEMPOTENCY GUARD
// =============================================================================

func TestLedger_ReplayedOrder_IsAbsorbed(t *testing.T) {
	// GIVEN: An order already applied to the gold ledger
	// WHEN: The same (order_id, kind) is appended again
	// THEN: The replay reports applied=false, no error, balance unchanged

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	applied, err := ledger.AppendGold(ctx, "order-7", engine.KindBarrelPurchase, -40)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.AppendGold(ctx, "order-7", engine.KindBarrelPurchase, -40)
	require.NoError(t, err)
	assert.False(t, applied, "replay must be a no-op success")

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, -40, b.Gold)
}

func TestLedger_SameOrder_DifferentKinds_BothApply(t *testing.T) {
	// Uniqueness is on (order_id, kind), not order_id alone. A single
	// game order can touch several ledgers under different kinds.

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	applied, err := ledger.AppendGold(ctx, "order-9", engine.KindBarrelPurchase, -10)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = ledger.AppendGold(ctx, "order-9", engine.KindCapacityUpgrade, -1000)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestLedger_WithGuard_RollsBackOnError(t *testing.T) {
	// GIVEN: A guarded multi-append that fails partway
	// WHEN: The callback returns an error
	// THEN: Nothing is committed and the order can be retried

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := ledger.WithGuard(ctx, engine.LedgerGold, "order-3", engine.KindBarrelPurchase,
		func(s engine.Store) error {
			if err := s.AppendGold(ctx, engine.GoldEntry{
				ID: engine.NewEntryID(), OrderID: "order-3",
				Kind: engine.KindBarrelPurchase, Delta: -25,
			}); err != nil {
				return err
			}
			return boom
		})
	require.ErrorIs(t, err, boom)

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Gold, "failed guard must leave no trace")

	// Retry succeeds because the guard row rolled back too.
	applied, err := ledger.AppendGold(ctx, "order-3", engine.KindBarrelPurchase, -25)
	require.NoError(t, err)
	assert.True(t, applied)
}

// =============================================================================
// CAPACITY FLOOR
// =============================================================================

func TestLedger_EmptyCapacityLedger_UsesBaseCapacity(t *testing.T) {
	// An unseeded shop still reports the free base unit.

	ledger, _ := newTestLedger(t)

	b, err := ledger.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.BasePotionCapacity, b.MaxPotionCapacity)
	assert.Equal(t, engine.BaseLiquidCapacityMl, b.MaxLiquidCapacity)
}

func TestLedger_CapacityUpgrades_Accumulate(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.AppendCapacity(ctx, "seed", engine.KindShopReset,
		engine.BasePotionCapacity, engine.BaseLiquidCapacityMl)
	require.NoError(t, err)
	_, err = ledger.AppendCapacity(ctx, "upgrade-1", engine.KindCapacityUpgrade,
		engine.CapacityUnitPotions, 0)
	require.NoError(t, err)

	b, err := ledger.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, b.MaxPotionCapacity)
	assert.Equal(t, 10000, b.MaxLiquidCapacity)
}
