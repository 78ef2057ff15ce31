// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/shop-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	gold     []engine.GoldEntry
	liquid   []engine.LiquidEntry
	potion   []engine.PotionEntry
	capacity []engine.CapacityEntry

	// (table, order, kind) seen so far; mirrors the sqlite unique indexes
	orders map[orderKey]bool

	potions   map[string]engine.Potion
	carts     map[engine.CartID]engine.Cart
	cartItems map[engine.CartID]map[string]int
}

type orderKey struct {
	Table   engine.LedgerTable
	OrderID engine.OrderID
	Kind    engine.TransactionKind
}

func NewMemory() *Memory {
	return &Memory{
		orders:    make(map[orderKey]bool),
		potions:   make(map[string]engine.Potion),
		carts:     make(map[engine.CartID]engine.Cart),
		cartItems: make(map[engine.CartID]map[string]int),
	}
}

// =============================================================================
// LEDGER APPENDS
// =============================================================================

func (m *Memory) AppendGold(_ context.Context, e engine.GoldEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := orderKey{engine.LedgerGold, e.OrderID, e.Kind}
	if m.orders[k] {
		return engine.ErrDuplicateOrder
	}
	m.gold = append(m.gold, e)
	m.orders[k] = true
	return nil
}

func (m *Memory) AppendLiquid(_ context.Context, e engine.LiquidEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := orderKey{engine.LedgerLiquid, e.OrderID, e.Kind}
	if m.orders[k] {
		return engine.ErrDuplicateOrder
	}
	m.liquid = append(m.liquid, e)
	m.orders[k] = true
	return nil
}

func (m *Memory) AppendPotion(_ context.Context, e engine.PotionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Potion rows are unique by (order, line item, kind); the order-level
	// key is recorded once for the guard's existence probe.
	for _, existing := range m.potion {
		if existing.OrderID == e.OrderID && existing.LineItemID == e.LineItemID && existing.Kind == e.Kind {
			return engine.ErrDuplicateOrder
		}
	}
	m.potion = append(m.potion, e)
	m.orders[orderKey{engine.LedgerPotion, e.OrderID, e.Kind}] = true
	return nil
}

func (m *Memory) AppendCapacity(_ context.Context, e engine.CapacityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := orderKey{engine.LedgerCapacity, e.OrderID, e.Kind}
	if m.orders[k] {
		return engine.ErrDuplicateOrder
	}
	m.capacity = append(m.capacity, e)
	m.orders[k] = true
	return nil
}

func (m *Memory) HasOrder(_ context.Context, table engine.LedgerTable, orderID engine.OrderID, kind engine.TransactionKind) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[orderKey{table, orderID, kind}], nil
}

// =============================================================================
// BALANCE FOLDS
// =============================================================================

func (m *Memory) GoldBalance(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, e := range m.gold {
		total += e.Delta
	}
	return total, nil
}

func (m *Memory) LiquidBalance(_ context.Context) (engine.ColorVolumes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total engine.ColorVolumes
	for _, e := range m.liquid {
		total = total.Add(e.Deltas)
	}
	return total, nil
}

func (m *Memory) PotionStock(_ context.Context, sku string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, e := range m.potion {
		if e.SKU == sku {
			total += e.Delta
		}
	}
	return total, nil
}

func (m *Memory) PotionStocks(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stocks := make(map[string]int)
	for _, e := range m.potion {
		stocks[e.SKU] += e.Delta
	}
	return stocks, nil
}

func (m *Memory) CapacityBalance(_ context.Context) (int, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	potionCap, mlCap := 0, 0
	for _, e := range m.capacity {
		potionCap += e.PotionDelta
		mlCap += e.MlDelta
	}
	return potionCap, mlCap, nil
}

// =============================================================================
// POTION DEFINITIONS
// =============================================================================

func (m *Memory) SavePotion(_ context.Context, p engine.Potion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.potions[p.SKU] = p
	return nil
}

func (m *Memory) GetPotion(_ context.Context, sku string) (*engine.Potion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.potions[sku]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPotions(_ context.Context, activeOnly bool) ([]engine.Potion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var potions []engine.Potion
	for _, p := range m.potions {
		if activeOnly && !p.IsActive {
			continue
		}
		potions = append(potions, p)
	}
	return potions, nil
}

// =============================================================================
// CARTS
// =============================================================================

func (m *Memory) CreateCart(_ context.Context, c engine.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.ID] = c
	m.cartItems[c.ID] = make(map[string]int)
	return nil
}

func (m *Memory) GetCart(_ context.Context, id engine.CartID) (*engine.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.carts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) UpsertCartItem(_ context.Context, id engine.CartID, sku string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, ok := m.cartItems[id]
	if !ok {
		return engine.ErrCartNotFound
	}
	items[sku] += qty
	return nil
}

func (m *Memory) CartItems(_ context.Context, id engine.CartID) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make(map[string]int, len(m.cartItems[id]))
	for sku, qty := range m.cartItems[id] {
		items[sku] = qty
	}
	return items, nil
}

func (m *Memory) MarkCartCheckedOut(_ context.Context, id engine.CartID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[id]
	if !ok {
		return engine.ErrCartNotFound
	}
	c.CheckedOut = true
	m.carts[id] = c
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn against the store, simulated with a snapshot +
// rollback on error. The outer mutex serializes transactions, which is the
// same single-writer discipline the sqlite store provides.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snap := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	gold      []engine.GoldEntry
	liquid    []engine.LiquidEntry
	potion    []engine.PotionEntry
	capacity  []engine.CapacityEntry
	orders    map[orderKey]bool
	potions   map[string]engine.Potion
	carts     map[engine.CartID]engine.Cart
	cartItems map[engine.CartID]map[string]int
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	snap := memorySnapshot{
		gold:      append([]engine.GoldEntry{}, tm.gold...),
		liquid:    append([]engine.LiquidEntry{}, tm.liquid...),
		potion:    append([]engine.PotionEntry{}, tm.potion...),
		capacity:  append([]engine.CapacityEntry{}, tm.capacity...),
		orders:    make(map[orderKey]bool, len(tm.orders)),
		potions:   make(map[string]engine.Potion, len(tm.potions)),
		carts:     make(map[engine.CartID]engine.Cart, len(tm.carts)),
		cartItems: make(map[engine.CartID]map[string]int, len(tm.cartItems)),
	}
	for k, v := range tm.orders {
		snap.orders[k] = v
	}
	for k, v := range tm.potions {
		snap.potions[k] = v
	}
	for k, v := range tm.carts {
		snap.carts[k] = v
	}
	for k, v := range tm.cartItems {
		items := make(map[string]int, len(v))
		for sku, qty := range v {
			items[sku] = qty
		}
		snap.cartItems[k] = items
	}
	return snap
}

func (tm *TxMemory) restore(snap memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.gold = snap.gold
	tm.liquid = snap.liquid
	tm.potion = snap.potion
	tm.capacity = snap.capacity
	tm.orders = snap.orders
	tm.potions = snap.potions
	tm.carts = snap.carts
	tm.cartItems = snap.cartItems
}
