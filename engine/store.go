/*
store.go - Persistence interfaces for ledgers, potions, and carts

PURPOSE:
  Defines the contract between the engine and the database. The ledger
  tables are APPEND-ONLY: the interface exposes no update or delete for
  them. Cart rows are the one mutable exception and only ever move forward
  (item quantities accumulate; is_checked_out flips once).

APPEND-ONLY CONTRACT:
  - AppendGold/AppendLiquid/AppendPotion/AppendCapacity insert single rows
  - Duplicate (order_id, kind) inserts fail with ErrDuplicateOrder, backed
    by unique indexes so the guarantee holds under concurrent retries
  - Balance reads are consistent folds: a reader never observes half of a
    multi-row transaction

ATOMICITY:
  WithTx runs a function against a transactional view of the store. All
  writes inside commit together or roll back together, including on caller
  cancellation. Everything that touches more than one row goes through it.

IMPLEMENTATIONS:
  - store/sqlite: production store (single writer, WAL)
  - engine/store: in-memory store for tests and dev
*/
package engine

import "context"

// =============================================================================
// LEDGER TABLES
// =============================================================================

// LedgerTable names one of the four append-only ledgers for existence
// checks. The guard probes the table that anchors a transaction kind.
type LedgerTable string

const (
	LedgerGold     LedgerTable = "gold"
	LedgerLiquid   LedgerTable = "liquid"
	LedgerPotion   LedgerTable = "potion"
	LedgerCapacity LedgerTable = "capacity"
)

// =============================================================================
// STORE
// =============================================================================

// Store is the storage collaborator. Ledger methods are append-only;
// balance methods fold committed rows.
type Store interface {
	// --- ledger appends (the ONLY ledger writes) ---

	AppendGold(ctx context.Context, e GoldEntry) error
	AppendLiquid(ctx context.Context, e LiquidEntry) error
	AppendPotion(ctx context.Context, e PotionEntry) error
	AppendCapacity(ctx context.Context, e CapacityEntry) error

	// HasOrder reports whether any entry for (orderID, kind) exists in the
	// given ledger. Used by the idempotency guard inside the same atomic
	// unit as the insert.
	HasOrder(ctx context.Context, table LedgerTable, orderID OrderID, kind TransactionKind) (bool, error)

	// --- balance folds (signed sums; zero when no rows) ---

	GoldBalance(ctx context.Context) (int, error)
	LiquidBalance(ctx context.Context) (ColorVolumes, error)
	PotionStock(ctx context.Context, sku string) (int, error)
	PotionStocks(ctx context.Context) (map[string]int, error)
	CapacityBalance(ctx context.Context) (potionCap, mlCap int, err error)

	// --- potion definitions ---

	SavePotion(ctx context.Context, p Potion) error
	GetPotion(ctx context.Context, sku string) (*Potion, error)
	ListPotions(ctx context.Context, activeOnly bool) ([]Potion, error)

	// --- carts (owned by the checkout state machine) ---

	CreateCart(ctx context.Context, c Cart) error
	GetCart(ctx context.Context, id CartID) (*Cart, error)
	UpsertCartItem(ctx context.Context, id CartID, sku string, qty int) error
	CartItems(ctx context.Context, id CartID) (map[string]int, error)
	MarkCartCheckedOut(ctx context.Context, id CartID) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support. The read-check-write spans
// in checkout and the deliveries run entirely inside WithTx, which is the
// no-oversell gate: the store serializes writers for the duration.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view. fn returning an
	// error rolls everything back; nil commits.
	WithTx(ctx context.Context, fn func(Store) error) error
}
