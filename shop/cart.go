/*
cart.go - Cart state machine and checkout

PURPOSE:
  Carts stage a customer's requested quantities per SKU, then commit them
  in a single atomic checkout. The lifecycle is OPEN -> CHECKED_OUT with no
  reverse transition and no deletion.

CHECKOUT INVARIANT (the chief correctness invariant of the system):
  Marking the cart checked out, crediting gold, and debiting potion stock
  commit together or not at all. Potions are never debited without the
  matching gold credit, and vice versa.

CONCURRENCY:
  The whole read-check-write span runs inside one store transaction, which
  the store serializes against all other writers. Two checkouts competing
  for the same limited stock therefore cannot both pass the sufficiency
  gate. Conflicts surface as engine.ErrConflict and are retried a bounded
  number of times.

IDEMPOTENCY:
  Checkout is idempotent on the cart itself: a second call returns the same
  totals and appends nothing. The ledger rows are keyed by the cart id, so
  even a lost is_checked_out flag could not double-write them.
*/
package shop

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/warp/shop-engine/engine"
)

// checkoutRetries bounds retry-on-conflict at the call boundary. Only
// retryable conflicts are retried; everything else surfaces immediately.
const checkoutRetries = 3

// CheckoutResult reports what a completed checkout sold.
type CheckoutResult struct {
	TotalPotions int
	TotalGold    int
}

// errAlreadyCheckedOut is internal: checkoutOnce raises it to roll back
// the (empty) transaction, and Checkout converts it to a success carrying
// the recomputed totals.
var errAlreadyCheckedOut = errors.New("cart already checked out")

// CreateCart opens an empty cart for a customer.
func (s *Service) CreateCart(ctx context.Context, customer engine.Customer) (engine.CartID, error) {
	cart := engine.Cart{
		ID:             engine.NewCartID(),
		CustomerName:   customer.Name,
		CharacterClass: customer.CharacterClass,
		Level:          customer.Level,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.Store.CreateCart(ctx, cart); err != nil {
		return "", err
	}
	return cart.ID, nil
}

// Cart returns a cart and its staged items.
func (s *Service) Cart(ctx context.Context, id engine.CartID) (*engine.Cart, map[string]int, error) {
	var cart *engine.Cart
	var items map[string]int
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		var err error
		if cart, err = st.GetCart(ctx, id); err != nil {
			return err
		}
		if cart == nil {
			return engine.ErrCartNotFound
		}
		items, err = st.CartItems(ctx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return cart, items, nil
}

// SetItemQuantity stages qty more units of a SKU in an open cart. The
// upsert ADDS to any existing staged quantity; it does not overwrite.
func (s *Service) SetItemQuantity(ctx context.Context, id engine.CartID, sku string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	return s.Store.WithTx(ctx, func(st engine.Store) error {
		cart, err := st.GetCart(ctx, id)
		if err != nil {
			return err
		}
		if cart == nil {
			return fmt.Errorf("cart %s: %w", id, engine.ErrCartNotFound)
		}
		if cart.CheckedOut {
			return fmt.Errorf("cart %s: %w", id, engine.ErrCartClosed)
		}
		potion, err := st.GetPotion(ctx, sku)
		if err != nil {
			return err
		}
		if potion == nil {
			return fmt.Errorf("sku %s: %w", sku, engine.ErrPotionNotFound)
		}
		return st.UpsertCartItem(ctx, id, sku, qty)
	})
}

// Checkout commits a cart: inventory sufficiency gate, then atomically
// mark checked out + gold credit + per-SKU potion debits, all tagged
// POTION_SALE under the cart's id.
func (s *Service) Checkout(ctx context.Context, id engine.CartID) (CheckoutResult, error) {
	var res CheckoutResult
	var err error
	for attempt := 0; attempt < checkoutRetries; attempt++ {
		res, err = s.checkoutOnce(ctx, id)
		if !engine.IsRetryable(err) {
			break
		}
	}
	return res, err
}

func (s *Service) checkoutOnce(ctx context.Context, id engine.CartID) (CheckoutResult, error) {
	var res CheckoutResult
	err := s.Store.WithTx(ctx, func(st engine.Store) error {
		cart, err := st.GetCart(ctx, id)
		if err != nil {
			return err
		}
		if cart == nil {
			return fmt.Errorf("cart %s: %w", id, engine.ErrCartNotFound)
		}

		items, err := st.CartItems(ctx, id)
		if err != nil {
			return err
		}

		// Deterministic SKU order: line item ids and error reporting do
		// not depend on map iteration.
		skus := make([]string, 0, len(items))
		for sku, qty := range items {
			if qty > 0 {
				skus = append(skus, sku)
			}
		}
		sort.Strings(skus)

		if len(skus) == 0 {
			return fmt.Errorf("cart %s: %w", id, engine.ErrEmptyCart)
		}

		lines := make([]engine.PotionLine, 0, len(skus))
		for _, sku := range skus {
			potion, err := st.GetPotion(ctx, sku)
			if err != nil {
				return err
			}
			if potion == nil {
				return fmt.Errorf("sku %s: %w", sku, engine.ErrPotionNotFound)
			}
			qty := items[sku]
			res.TotalPotions += qty
			res.TotalGold += qty * potion.Price
			lines = append(lines, engine.PotionLine{SKU: sku, Delta: -qty})
		}

		// Idempotent on the cart: same totals, no new rows.
		if cart.CheckedOut {
			return errAlreadyCheckedOut
		}

		// Inventory sufficiency gate: all SKUs or nothing.
		for _, sku := range skus {
			available, err := st.PotionStock(ctx, sku)
			if err != nil {
				return err
			}
			if available < items[sku] {
				return &engine.InsufficientStockError{
					SKU:       sku,
					Requested: items[sku],
					Available: available,
				}
			}
		}

		if err := st.MarkCartCheckedOut(ctx, id); err != nil {
			return err
		}
		err = st.AppendGold(ctx, engine.GoldEntry{
			ID:        engine.NewEntryID(),
			OrderID:   engine.OrderID(id),
			Kind:      engine.KindPotionSale,
			Delta:     res.TotalGold,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return engine.AppendPotionLines(ctx, st, engine.OrderID(id), engine.KindPotionSale, lines)
	})

	if errors.Is(err, errAlreadyCheckedOut) {
		return res, nil
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	return res, nil
}
