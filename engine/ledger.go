/*
ledger.go - Idempotent appends and balance aggregation

PURPOSE:
  The Ledger is the write path for every economic event. Each append is
  guarded by (order_id, kind): a replayed delivery is absorbed as a no-op
  success instead of double-counting. Balance is always computed by folding
  entries - there is no counter that can drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never updated or deleted
  2. IDEMPOTENT: same (order_id, kind) = one set of entries, ever
  3. ATOMIC: all rows of one event commit together or not at all

IDEMPOTENT-REPLAY SEMANTICS:
  Every append returns (applied, err). A fresh event yields (true, nil); a
  replay yields (false, nil). Duplicate detection is two-layered: a guard
  query inside the same transaction as the insert, backed by a unique index
  in the store for concurrent retries racing past the query.

EXAMPLE FLOW:
  1. Exchange delivers barrels under order 42:
       gold  ledger: -500 (BARREL_PURCHASE, order 42)
       liquid ledger: +10000 red (BARREL_PURCHASE, order 42)
  2. Exchange retries order 42: guard sees it, nothing written, success.

SEE ALSO:
  - store.go: the persistence contract the guard relies on
  - shop/deliveries.go: composite events built on WithGuard
*/
package engine

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// LEDGER
// =============================================================================

// Ledger owns idempotent writes to, and consistent reads from, the four
// resource ledgers.
type Ledger struct {
	Store TxStore
}

func NewLedger(store TxStore) *Ledger {
	return &Ledger{Store: store}
}

// =============================================================================
// IDEMPOTENCY GUARD
// =============================================================================

// WithGuard runs fn inside one storage transaction, but only if no entry
// for (orderID, kind) exists yet in the anchor ledger. Returns applied =
// false (and no error) when the event was already recorded.
//
// The guard also absorbs ErrDuplicateOrder raised by the store's unique
// indexes, which covers two concurrent first deliveries of the same order:
// one commits, the other resolves to a no-op success.
func (l *Ledger) WithGuard(ctx context.Context, table LedgerTable, orderID OrderID, kind TransactionKind, fn func(Store) error) (applied bool, err error) {
	err = l.Store.WithTx(ctx, func(s Store) error {
		exists, err := s.HasOrder(ctx, table, orderID, kind)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateOrder
		}
		applied = true
		return fn(s)
	})
	if errors.Is(err, ErrDuplicateOrder) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

// =============================================================================
// SINGLE-LEDGER APPENDS
// =============================================================================

// AppendGold records one signed gold movement for an order.
func (l *Ledger) AppendGold(ctx context.Context, orderID OrderID, kind TransactionKind, delta int) (bool, error) {
	return l.WithGuard(ctx, LedgerGold, orderID, kind, func(s Store) error {
		return s.AppendGold(ctx, GoldEntry{
			ID:        NewEntryID(),
			OrderID:   orderID,
			Kind:      kind,
			Delta:     delta,
			CreatedAt: time.Now().UTC(),
		})
	})
}

// AppendLiquid records the per-color deltas of one order as a single row.
func (l *Ledger) AppendLiquid(ctx context.Context, orderID OrderID, kind TransactionKind, deltas ColorVolumes) (bool, error) {
	return l.WithGuard(ctx, LedgerLiquid, orderID, kind, func(s Store) error {
		return s.AppendLiquid(ctx, LiquidEntry{
			ID:        NewEntryID(),
			OrderID:   orderID,
			Kind:      kind,
			Deltas:    deltas,
			CreatedAt: time.Now().UTC(),
		})
	})
}

// AppendPotions records one potion stock change per line item, all under
// the same order. Line item ids are assigned in input order, starting at 1.
func (l *Ledger) AppendPotions(ctx context.Context, orderID OrderID, kind TransactionKind, lines []PotionLine) (bool, error) {
	return l.WithGuard(ctx, LedgerPotion, orderID, kind, func(s Store) error {
		return AppendPotionLines(ctx, s, orderID, kind, lines)
	})
}

// AppendPotionLines inserts potion entries for each line inside an already
// open transaction. Exposed for composite events (checkout, bottling) that
// mix potion rows with rows in other ledgers.
func AppendPotionLines(ctx context.Context, s Store, orderID OrderID, kind TransactionKind, lines []PotionLine) error {
	now := time.Now().UTC()
	for i, line := range lines {
		err := s.AppendPotion(ctx, PotionEntry{
			ID:         NewEntryID(),
			OrderID:    orderID,
			LineItemID: i + 1,
			Kind:       kind,
			SKU:        line.SKU,
			Delta:      line.Delta,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// AppendCapacity raises the capacity ceilings for an order. The gold cost
// is the caller's to record alongside (see shop.DeliverCapacity).
func (l *Ledger) AppendCapacity(ctx context.Context, orderID OrderID, kind TransactionKind, potionDelta, mlDelta int) (bool, error) {
	return l.WithGuard(ctx, LedgerCapacity, orderID, kind, func(s Store) error {
		return s.AppendCapacity(ctx, CapacityEntry{
			ID:          NewEntryID(),
			OrderID:     orderID,
			Kind:        kind,
			PotionDelta: potionDelta,
			MlDelta:     mlDelta,
			CreatedAt:   time.Now().UTC(),
		})
	})
}

// =============================================================================
// BALANCE AGGREGATION
// =============================================================================

// Balances folds all four ledgers into the current derived state. Reads
// run inside one storage transaction so a concurrent multi-row event is
// observed either completely or not at all.
func (l *Ledger) Balances(ctx context.Context) (Balances, error) {
	var b Balances
	err := l.Store.WithTx(ctx, func(s Store) error {
		return ReadBalances(ctx, s, &b)
	})
	if err != nil {
		return Balances{}, err
	}
	return b, nil
}

// ReadBalances populates b from an already open transactional view.
func ReadBalances(ctx context.Context, s Store, b *Balances) error {
	var err error
	if b.Gold, err = s.GoldBalance(ctx); err != nil {
		return err
	}
	if b.Liquid, err = s.LiquidBalance(ctx); err != nil {
		return err
	}
	if b.Potions, err = s.PotionStocks(ctx); err != nil {
		return err
	}
	potionCap, mlCap, err := s.CapacityBalance(ctx)
	if err != nil {
		return err
	}
	// Empty capacity ledger reads as the free base unit of each kind.
	if potionCap == 0 {
		potionCap = BasePotionCapacity
	}
	if mlCap == 0 {
		mlCap = BaseLiquidCapacityMl
	}
	b.MaxPotionCapacity = potionCap
	b.MaxLiquidCapacity = mlCap
	return nil
}
