/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.TxStore plus the reporting queries (sold line items,
  tick analytics) using SQLite. In production the same patterns apply to
  PostgreSQL - only minor SQL dialect differences, and row-level locking
  instead of the store-level mutex.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement touches a ledger table (Reset wipes them
  wholesale, which is an admin operation, not a correction path). Unique
  indexes on (order_id, transaction_type) turn replayed deliveries into
  engine.ErrDuplicateOrder, which the engine absorbs as success.

KEY TABLES:
  gold_ledger, liquid_ledger, potion_ledger, capacity_ledger:
      immutable ledgers, one per resource class
  potions:           SKU definitions (recipe percentages, price, active flag)
  carts, cart_items: checkout staging; item quantities only accumulate
  time_analytics:    per-tick sales rollups

CONCURRENCY:
  A store-level RWMutex serializes writers; WithTx holds the write lock
  for the whole read-check-write span, which is what makes the checkout
  sufficiency gate race-free. SQLite busy errors map to engine.ErrConflict
  so callers can retry.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better read
  concurrency and crash recovery.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/ledger.go: Idempotency guard built on WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/shop-engine/engine"
	"github.com/warp/shop-engine/shop"
)

// Store implements engine.TxStore and shop.SaleReader using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Gold ledger (append-only)
	CREATE TABLE IF NOT EXISTS gold_ledger (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		gold_delta INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_gold_order_kind
		ON gold_ledger(order_id, transaction_type);

	-- Liquid ledger: one row carries all four color deltas
	CREATE TABLE IF NOT EXISTS liquid_ledger (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		red_ml_delta INTEGER NOT NULL,
		green_ml_delta INTEGER NOT NULL,
		blue_ml_delta INTEGER NOT NULL,
		dark_ml_delta INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_liquid_order_kind
		ON liquid_ledger(order_id, transaction_type);

	-- Potion ledger: per-SKU stock deltas, line items within an order
	CREATE TABLE IF NOT EXISTS potion_ledger (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		line_item_id INTEGER NOT NULL,
		sku TEXT NOT NULL,
		quantity_delta INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_potion_order_line_kind
		ON potion_ledger(order_id, line_item_id, transaction_type);
	CREATE INDEX IF NOT EXISTS idx_potion_sku
		ON potion_ledger(sku);

	-- Capacity ledger
	CREATE TABLE IF NOT EXISTS capacity_ledger (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		potion_capacity_delta INTEGER NOT NULL,
		ml_capacity_delta INTEGER NOT NULL,
		transaction_type TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_capacity_order_kind
		ON capacity_ledger(order_id, transaction_type);

	-- Potion definitions
	CREATE TABLE IF NOT EXISTS potions (
		sku TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price INTEGER NOT NULL,
		red_pct INTEGER NOT NULL,
		green_pct INTEGER NOT NULL,
		blue_pct INTEGER NOT NULL,
		dark_pct INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	-- Carts and staged items
	CREATE TABLE IF NOT EXISTS carts (
		cart_id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		character_class TEXT,
		level INTEGER,
		is_checked_out BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS cart_items (
		cart_id TEXT NOT NULL REFERENCES carts(cart_id),
		sku TEXT NOT NULL REFERENCES potions(sku),
		quantity INTEGER NOT NULL,
		UNIQUE(cart_id, sku)
	);
	CREATE INDEX IF NOT EXISTS idx_cart_items_cart
		ON cart_items(cart_id);

	-- Per-tick sales rollups
	CREATE TABLE IF NOT EXISTS time_analytics (
		day_of_week TEXT NOT NULL,
		hour_of_day INTEGER NOT NULL,
		total_sales INTEGER NOT NULL DEFAULT 0,
		total_gold INTEGER NOT NULL DEFAULT 0,
		visitor_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE(day_of_week, hour_of_day)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so the query helpers
// below serve direct calls and transactional calls alike.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER APPENDS (engine.Store)
// =============================================================================

func (s *Store) AppendGold(ctx context.Context, e engine.GoldEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendGold(ctx, s.db, e)
}

func appendGold(ctx context.Context, q dbtx, e engine.GoldEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO gold_ledger (id, order_id, gold_delta, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.OrderID, e.Delta, e.Kind, formatTime(e.CreatedAt),
	)
	return mapWriteError(err, "append gold entry")
}

func (s *Store) AppendLiquid(ctx context.Context, e engine.LiquidEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLiquid(ctx, s.db, e)
}

func appendLiquid(ctx context.Context, q dbtx, e engine.LiquidEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO liquid_ledger
		(id, order_id, red_ml_delta, green_ml_delta, blue_ml_delta, dark_ml_delta, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrderID,
		e.Deltas[engine.Red], e.Deltas[engine.Green], e.Deltas[engine.Blue], e.Deltas[engine.Dark],
		e.Kind, formatTime(e.CreatedAt),
	)
	return mapWriteError(err, "append liquid entry")
}

func (s *Store) AppendPotion(ctx context.Context, e engine.PotionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPotion(ctx, s.db, e)
}

func appendPotion(ctx context.Context, q dbtx, e engine.PotionEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO potion_ledger
		(id, order_id, line_item_id, sku, quantity_delta, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrderID, e.LineItemID, e.SKU, e.Delta, e.Kind, formatTime(e.CreatedAt),
	)
	return mapWriteError(err, "append potion entry")
}

func (s *Store) AppendCapacity(ctx context.Context, e engine.CapacityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendCapacity(ctx, s.db, e)
}

func appendCapacity(ctx context.Context, q dbtx, e engine.CapacityEntry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO capacity_ledger
		(id, order_id, potion_capacity_delta, ml_capacity_delta, transaction_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.OrderID, e.PotionDelta, e.MlDelta, e.Kind, formatTime(e.CreatedAt),
	)
	return mapWriteError(err, "append capacity entry")
}

var ledgerTables = map[engine.LedgerTable]string{
	engine.LedgerGold:     "gold_ledger",
	engine.LedgerLiquid:   "liquid_ledger",
	engine.LedgerPotion:   "potion_ledger",
	engine.LedgerCapacity: "capacity_ledger",
}

func (s *Store) HasOrder(ctx context.Context, table engine.LedgerTable, orderID engine.OrderID, kind engine.TransactionKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasOrder(ctx, s.db, table, orderID, kind)
}

func hasOrder(ctx context.Context, q dbtx, table engine.LedgerTable, orderID engine.OrderID, kind engine.TransactionKind) (bool, error) {
	name, ok := ledgerTables[table]
	if !ok {
		return false, fmt.Errorf("unknown ledger table %q", table)
	}
	// Table name comes from the closed map above, never from callers.
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+name+" WHERE order_id = ? AND transaction_type = ?",
		orderID, kind,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// BALANCE FOLDS (engine.Store)
// =============================================================================

func (s *Store) GoldBalance(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return goldBalance(ctx, s.db)
}

func goldBalance(ctx context.Context, q dbtx) (int, error) {
	var gold int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(gold_delta), 0) FROM gold_ledger",
	).Scan(&gold)
	return gold, err
}

func (s *Store) LiquidBalance(ctx context.Context) (engine.ColorVolumes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return liquidBalance(ctx, s.db)
}

func liquidBalance(ctx context.Context, q dbtx) (engine.ColorVolumes, error) {
	var v engine.ColorVolumes
	err := q.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(red_ml_delta), 0),
			COALESCE(SUM(green_ml_delta), 0),
			COALESCE(SUM(blue_ml_delta), 0),
			COALESCE(SUM(dark_ml_delta), 0)
		FROM liquid_ledger`,
	).Scan(&v[engine.Red], &v[engine.Green], &v[engine.Blue], &v[engine.Dark])
	return v, err
}

func (s *Store) PotionStock(ctx context.Context, sku string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return potionStock(ctx, s.db, sku)
}

func potionStock(ctx context.Context, q dbtx, sku string) (int, error) {
	var stock int
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(quantity_delta), 0) FROM potion_ledger WHERE sku = ?",
		sku,
	).Scan(&stock)
	return stock, err
}

func (s *Store) PotionStocks(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return potionStocks(ctx, s.db)
}

func potionStocks(ctx context.Context, q dbtx) (map[string]int, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT sku, COALESCE(SUM(quantity_delta), 0) FROM potion_ledger GROUP BY sku",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := make(map[string]int)
	for rows.Next() {
		var sku string
		var qty int
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, err
		}
		stocks[sku] = qty
	}
	return stocks, rows.Err()
}

func (s *Store) CapacityBalance(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return capacityBalance(ctx, s.db)
}

func capacityBalance(ctx context.Context, q dbtx) (int, int, error) {
	var potionCap, mlCap int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(potion_capacity_delta), 0), COALESCE(SUM(ml_capacity_delta), 0)
		FROM capacity_ledger`,
	).Scan(&potionCap, &mlCap)
	return potionCap, mlCap, err
}

// =============================================================================
// POTION DEFINITIONS (engine.Store)
// =============================================================================

func (s *Store) SavePotion(ctx context.Context, p engine.Potion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePotion(ctx, s.db, p)
}

func savePotion(ctx context.Context, q dbtx, p engine.Potion) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO potions (sku, name, price, red_pct, green_pct, blue_pct, dark_pct, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sku) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			red_pct = excluded.red_pct,
			green_pct = excluded.green_pct,
			blue_pct = excluded.blue_pct,
			dark_pct = excluded.dark_pct,
			is_active = excluded.is_active`,
		p.SKU, p.Name, p.Price,
		p.Recipe[engine.Red], p.Recipe[engine.Green], p.Recipe[engine.Blue], p.Recipe[engine.Dark],
		p.IsActive,
	)
	return mapWriteError(err, "save potion")
}

func (s *Store) GetPotion(ctx context.Context, sku string) (*engine.Potion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPotion(ctx, s.db, sku)
}

func getPotion(ctx context.Context, q dbtx, sku string) (*engine.Potion, error) {
	var p engine.Potion
	err := q.QueryRowContext(ctx, `
		SELECT sku, name, price, red_pct, green_pct, blue_pct, dark_pct, is_active
		FROM potions WHERE sku = ?`, sku,
	).Scan(&p.SKU, &p.Name, &p.Price,
		&p.Recipe[engine.Red], &p.Recipe[engine.Green], &p.Recipe[engine.Blue], &p.Recipe[engine.Dark],
		&p.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPotions(ctx context.Context, activeOnly bool) ([]engine.Potion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPotions(ctx, s.db, activeOnly)
}

func listPotions(ctx context.Context, q dbtx, activeOnly bool) ([]engine.Potion, error) {
	query := `
		SELECT sku, name, price, red_pct, green_pct, blue_pct, dark_pct, is_active
		FROM potions`
	if activeOnly {
		query += " WHERE is_active"
	}
	query += " ORDER BY sku"

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var potions []engine.Potion
	for rows.Next() {
		var p engine.Potion
		err := rows.Scan(&p.SKU, &p.Name, &p.Price,
			&p.Recipe[engine.Red], &p.Recipe[engine.Green], &p.Recipe[engine.Blue], &p.Recipe[engine.Dark],
			&p.IsActive)
		if err != nil {
			return nil, err
		}
		potions = append(potions, p)
	}
	return potions, rows.Err()
}

// =============================================================================
// CARTS (engine.Store)
// =============================================================================

func (s *Store) CreateCart(ctx context.Context, c engine.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCart(ctx, s.db, c)
}

func createCart(ctx context.Context, q dbtx, c engine.Cart) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO carts (cart_id, customer_name, character_class, level, is_checked_out, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.CustomerName, c.CharacterClass, c.Level, c.CheckedOut, formatTime(c.CreatedAt),
	)
	return mapWriteError(err, "create cart")
}

func (s *Store) GetCart(ctx context.Context, id engine.CartID) (*engine.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCart(ctx, s.db, id)
}

func getCart(ctx context.Context, q dbtx, id engine.CartID) (*engine.Cart, error) {
	var c engine.Cart
	var createdAt string
	err := q.QueryRowContext(ctx, `
		SELECT cart_id, customer_name, COALESCE(character_class, ''), COALESCE(level, 0), is_checked_out, created_at
		FROM carts WHERE cart_id = ?`, id,
	).Scan(&c.ID, &c.CustomerName, &c.CharacterClass, &c.Level, &c.CheckedOut, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func (s *Store) UpsertCartItem(ctx context.Context, id engine.CartID, sku string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertCartItem(ctx, s.db, id, sku, qty)
}

func upsertCartItem(ctx context.Context, q dbtx, id engine.CartID, sku string, qty int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, sku, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(cart_id, sku) DO UPDATE
		SET quantity = cart_items.quantity + excluded.quantity`,
		id, sku, qty,
	)
	return mapWriteError(err, "upsert cart item")
}

func (s *Store) CartItems(ctx context.Context, id engine.CartID) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cartItems(ctx, s.db, id)
}

func cartItems(ctx context.Context, q dbtx, id engine.CartID) (map[string]int, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT sku, quantity FROM cart_items WHERE cart_id = ?", id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string]int)
	for rows.Next() {
		var sku string
		var qty int
		if err := rows.Scan(&sku, &qty); err != nil {
			return nil, err
		}
		items[sku] = qty
	}
	return items, rows.Err()
}

func (s *Store) MarkCartCheckedOut(ctx context.Context, id engine.CartID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markCartCheckedOut(ctx, s.db, id)
}

func markCartCheckedOut(ctx context.Context, q dbtx, id engine.CartID) error {
	res, err := q.ExecContext(ctx,
		"UPDATE carts SET is_checked_out = TRUE WHERE cart_id = ?", id,
	)
	if err != nil {
		return mapWriteError(err, "mark cart checked out")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return engine.ErrCartNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore)
// =============================================================================

// WithTx executes fn within a database transaction, holding the writer
// lock so concurrent read-check-write spans serialize.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapWriteError(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return mapWriteError(err, "commit transaction")
	}
	return nil
}

// txStore routes engine.Store calls through an open transaction. The
// parent's lock is already held; no further locking here.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) AppendGold(ctx context.Context, e engine.GoldEntry) error {
	return appendGold(ctx, ts.tx, e)
}

func (ts *txStore) AppendLiquid(ctx context.Context, e engine.LiquidEntry) error {
	return appendLiquid(ctx, ts.tx, e)
}

func (ts *txStore) AppendPotion(ctx context.Context, e engine.PotionEntry) error {
	return appendPotion(ctx, ts.tx, e)
}

func (ts *txStore) AppendCapacity(ctx context.Context, e engine.CapacityEntry) error {
	return appendCapacity(ctx, ts.tx, e)
}

func (ts *txStore) HasOrder(ctx context.Context, table engine.LedgerTable, orderID engine.OrderID, kind engine.TransactionKind) (bool, error) {
	return hasOrder(ctx, ts.tx, table, orderID, kind)
}

func (ts *txStore) GoldBalance(ctx context.Context) (int, error) {
	return goldBalance(ctx, ts.tx)
}

func (ts *txStore) LiquidBalance(ctx context.Context) (engine.ColorVolumes, error) {
	return liquidBalance(ctx, ts.tx)
}

func (ts *txStore) PotionStock(ctx context.Context, sku string) (int, error) {
	return potionStock(ctx, ts.tx, sku)
}

func (ts *txStore) PotionStocks(ctx context.Context) (map[string]int, error) {
	return potionStocks(ctx, ts.tx)
}

func (ts *txStore) CapacityBalance(ctx context.Context) (int, int, error) {
	return capacityBalance(ctx, ts.tx)
}

func (ts *txStore) SavePotion(ctx context.Context, p engine.Potion) error {
	return savePotion(ctx, ts.tx, p)
}

func (ts *txStore) GetPotion(ctx context.Context, sku string) (*engine.Potion, error) {
	return getPotion(ctx, ts.tx, sku)
}

func (ts *txStore) ListPotions(ctx context.Context, activeOnly bool) ([]engine.Potion, error) {
	return listPotions(ctx, ts.tx, activeOnly)
}

func (ts *txStore) CreateCart(ctx context.Context, c engine.Cart) error {
	return createCart(ctx, ts.tx, c)
}

func (ts *txStore) GetCart(ctx context.Context, id engine.CartID) (*engine.Cart, error) {
	return getCart(ctx, ts.tx, id)
}

func (ts *txStore) UpsertCartItem(ctx context.Context, id engine.CartID, sku string, qty int) error {
	return upsertCartItem(ctx, ts.tx, id, sku, qty)
}

func (ts *txStore) CartItems(ctx context.Context, id engine.CartID) (map[string]int, error) {
	return cartItems(ctx, ts.tx, id)
}

func (ts *txStore) MarkCartCheckedOut(ctx context.Context, id engine.CartID) error {
	return markCartCheckedOut(ctx, ts.tx, id)
}

// =============================================================================
// SOLD LINE ITEMS (shop.SaleReader)
// =============================================================================

// SoldLineItems returns one row per potion-sale line, joined with its cart
// and potion definition. Filters arrive as bound parameters; sorting
// happens in the shop layer via explicit comparators.
func (s *Store) SoldLineItems(ctx context.Context, customerName, sku string) ([]shop.SoldLineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT pl.order_id, pl.sku, p.name, c.customer_name,
		       -pl.quantity_delta, -pl.quantity_delta * p.price, pl.created_at
		FROM potion_ledger pl
		JOIN carts c ON c.cart_id = pl.order_id
		JOIN potions p ON p.sku = pl.sku
		WHERE pl.transaction_type = ? AND pl.quantity_delta < 0`
	args := []any{engine.KindPotionSale}
	if customerName != "" {
		query += " AND c.customer_name = ?"
		args = append(args, customerName)
	}
	if sku != "" {
		query += " AND pl.sku = ?"
		args = append(args, sku)
	}
	query += " ORDER BY pl.created_at ASC, pl.order_id ASC, pl.line_item_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []shop.SoldLineItem
	for rows.Next() {
		var item shop.SoldLineItem
		var soldAt string
		err := rows.Scan(&item.CartID, &item.SKU, &item.PotionName, &item.CustomerName,
			&item.Quantity, &item.LineTotal, &soldAt)
		if err != nil {
			return nil, err
		}
		item.SoldAt = parseTime(soldAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// TICK ANALYTICS
// =============================================================================

// TickStats summarizes the sales activity recorded for one game-time tick.
type TickStats struct {
	DayOfWeek    string
	HourOfDay    int
	TotalSales   int
	TotalGold    int
	VisitorCount int
}

// RecordTick rolls up potion sales and cart traffic from the trailing
// window into time_analytics, upserting on (day, hour).
func (s *Store) RecordTick(ctx context.Context, day string, hour int, window time.Duration) (TickStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := formatTime(time.Now().UTC().Add(-window))
	stats := TickStats{DayOfWeek: day, HourOfDay: hour}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT order_id), COALESCE(SUM(gold_delta), 0)
		FROM gold_ledger
		WHERE transaction_type = ? AND created_at >= ?`,
		engine.KindPotionSale, since,
	).Scan(&stats.TotalSales, &stats.TotalGold)
	if err != nil {
		return TickStats{}, err
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM carts WHERE created_at >= ?", since,
	).Scan(&stats.VisitorCount)
	if err != nil {
		return TickStats{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO time_analytics (day_of_week, hour_of_day, total_sales, total_gold, visitor_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(day_of_week, hour_of_day) DO UPDATE SET
			total_sales = excluded.total_sales,
			total_gold = excluded.total_gold,
			visitor_count = excluded.visitor_count,
			created_at = excluded.created_at`,
		stats.DayOfWeek, stats.HourOfDay, stats.TotalSales, stats.TotalGold, stats.VisitorCount,
		formatTime(time.Now().UTC()),
	)
	if err != nil {
		return TickStats{}, mapWriteError(err, "record tick")
	}
	return stats, nil
}

// =============================================================================
// ADMIN RESET
// =============================================================================

// Reset wipes all economic state and re-seeds the starting gold and the
// free base capacity. For admin and demo use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapWriteError(err, "begin reset")
	}
	defer sqlTx.Rollback()

	for _, table := range []string{
		"cart_items", "carts",
		"gold_ledger", "liquid_ledger", "potion_ledger", "capacity_ledger",
		"time_analytics",
	} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	// Seed under the bootstrap order id so a later startup Bootstrap is
	// absorbed by the idempotency guard instead of double-crediting.
	now := formatTime(time.Now().UTC())
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO gold_ledger (id, order_id, gold_delta, transaction_type, created_at)
		VALUES (?, 'bootstrap', ?, ?, ?)`,
		engine.NewEntryID(), engine.BaseGold, engine.KindShopReset, now,
	)
	if err != nil {
		return err
	}
	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO capacity_ledger (id, order_id, potion_capacity_delta, ml_capacity_delta, transaction_type, created_at)
		VALUES (?, 'bootstrap', ?, ?, ?, ?)`,
		engine.NewEntryID(), engine.BasePotionCapacity, engine.BaseLiquidCapacityMl, engine.KindShopReset, now,
	)
	if err != nil {
		return err
	}
	return sqlTx.Commit()
}

// =============================================================================
// HELPERS
// =============================================================================

// timeFormat is RFC3339 with a fixed-width fraction so the stored text
// sorts and compares lexicographically in timestamp order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func mapWriteError(err error, op string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return engine.ErrDuplicateOrder
	}
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked") {
		return fmt.Errorf("%s: %w", op, engine.ErrConflict)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
