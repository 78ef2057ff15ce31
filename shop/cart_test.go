package shop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/engine/store"
	"github.com/warp/shop-engine/shop"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *shop.Service {
	t.Helper()
	return shop.NewService(store.NewTxMemory())
}

// stockPotion defines a SKU and puts qty units on the shelf.
func stockPotion(t *testing.T, s *shop.Service, sku string, price, qty int) {
	t.Helper()
	ctx := context.Background()

	err := s.DefinePotion(ctx, engine.Potion{
		SKU: sku, Name: sku, Price: price,
		Recipe: engine.Recipe{100, 0, 0, 0}, IsActive: true,
	})
	require.NoError(t, err)

	_, err = s.Ledger.AppendPotions(ctx, engine.OrderID("stock-"+sku), engine.KindBottling,
		[]engine.PotionLine{{SKU: sku, Delta: qty}})
	require.NoError(t, err)
}

func newCartWith(t *testing.T, s *shop.Service, sku string, qty int) engine.CartID {
	t.Helper()
	ctx := context.Background()

	id, err := s.CreateCart(ctx, engine.Customer{Name: "Scaramouche", CharacterClass: "bard", Level: 4})
	require.NoError(t, err)
	require.NoError(t, s.SetItemQuantity(ctx, id, sku, qty))
	return id
}

// =============================================================================
// CHECKOUT
// =============================================================================

func TestCheckout_SettlesCart(t *testing.T) {
	// GIVEN: 10 RED_POTION at 50 gold, a cart staging 3
	// WHEN: Checking out
	// THEN: Totals are {3, 150}; stock and gold ledgers reflect the sale

	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 10)
	cartID := newCartWith(t, s, "RED_POTION", 3)

	res, err := s.Checkout(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPotions)
	assert.Equal(t, 150, res.TotalGold)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Potions["RED_POTION"])
	assert.Equal(t, 150, b.Gold)
}

func TestCheckout_Replay_ReturnsSameTotals(t *testing.T) {
	// GIVEN: A settled cart
	// WHEN: The checkout request is replayed
	// THEN: The same totals come back and no further ledger rows appear

	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 10)
	cartID := newCartWith(t, s, "RED_POTION", 3)

	first, err := s.Checkout(ctx, cartID)
	require.NoError(t, err)

	second, err := s.Checkout(ctx, cartID)
	require.NoError(t, err, "replayed checkout must succeed")
	assert.Equal(t, first, second)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, b.Potions["RED_POTION"], "replay must not sell twice")
	assert.Equal(t, 150, b.Gold, "replay must not pay twice")
}

func TestCheckout_InsufficientStock_NothingCommitted(t *testing.T) {
	// GIVEN: Only 2 potions on the shelf, a cart staging 5
	// WHEN: Checking out
	// THEN: InsufficientStockError; cart stays open, balances untouched

	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 2)
	cartID := newCartWith(t, s, "RED_POTION", 5)

	_, err := s.Checkout(ctx, cartID)
	require.Error(t, err)

	var stockErr *engine.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "RED_POTION", stockErr.SKU)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	b, err := s.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Potions["RED_POTION"], "failed checkout must not touch stock")
	assert.Equal(t, 0, b.Gold)

	cart, _, err := s.Cart(ctx, cartID)
	require.NoError(t, err)
	assert.False(t, cart.CheckedOut, "failed checkout must leave the cart open")
}

func TestCheckout_EmptyCart_Rejected(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cartID, err := s.CreateCart(ctx, engine.Customer{Name: "Nobody"})
	require.NoError(t, err)

	_, err = s.Checkout(ctx, cartID)
	assert.ErrorIs(t, err, engine.ErrEmptyCart)
}

func TestCheckout_UnknownCart_NotFound(t *testing.T) {
	s := newTestService(t)

	_, err := s.Checkout(context.Background(), "no-such-cart")
	assert.ErrorIs(t, err, engine.ErrCartNotFound)
}

func TestCheckout_MultipleSKUs_SumsLines(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 10)
	stockPotion(t, s, "DARK_POTION", 75, 4)

	cartID := newCartWith(t, s, "RED_POTION", 2)
	require.NoError(t, s.SetItemQuantity(ctx, cartID, "DARK_POTION", 1))

	res, err := s.Checkout(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalPotions)
	assert.Equal(t, 175, res.TotalGold)
}

// =============================================================================
// STAGING ITEMS
// =============================================================================

func TestSetItemQuantity_RepeatAdds(t *testing.T) {
	// Staging the same SKU twice accumulates instead of replacing.

	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 10)
	cartID := newCartWith(t, s, "RED_POTION", 2)

	require.NoError(t, s.SetItemQuantity(ctx, cartID, "RED_POTION", 3))

	_, items, err := s.Cart(ctx, cartID)
	require.NoError(t, err)
	assert.Equal(t, 5, items["RED_POTION"])
}

func TestSetItemQuantity_Validation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	stockPotion(t, s, "RED_POTION", 50, 10)
	cartID := newCartWith(t, s, "RED_POTION", 1)

	t.Run("zero quantity rejected", func(t *testing.T) {
		err := s.SetItemQuantity(ctx, cartID, "RED_POTION", 0)
		assert.Error(t, err)
	})

	t.Run("unknown SKU rejected", func(t *testing.T) {
		err := s.SetItemQuantity(ctx, cartID, "PLAID_POTION", 1)
		assert.ErrorIs(t, err, engine.ErrPotionNotFound)
	})

	t.Run("unknown cart rejected", func(t *testing.T) {
		err := s.SetItemQuantity(ctx, "no-such-cart", "RED_POTION", 1)
		assert.ErrorIs(t, err, engine.ErrCartNotFound)
	})

	t.Run("closed cart rejected", func(t *testing.T) {
		_, err := s.Checkout(ctx, cartID)
		require.NoError(t, err)
		err = s.SetItemQuantity(ctx, cartID, "RED_POTION", 1)
		assert.ErrorIs(t, err, engine.ErrCartClosed)
	})
}
