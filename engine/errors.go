/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. Domain packages and the API layer
  match these with errors.Is/errors.As and wrap them with extra context.

ERROR CATEGORIES:
  1. Not-found errors   - unknown carts, SKUs, orders
  2. State errors       - mutating a checked-out cart, empty checkout
  3. Resource errors    - insufficient stock / gold / liquid
  4. Concurrency errors - retryable conflicts, absorbed duplicates

DUPLICATES:
  ErrDuplicateOrder is internal plumbing. The idempotency guard converts it
  to a no-op success; it never reaches API callers as a failure.
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateOrder is returned by stores when an entry for the same
	// (order_id, kind) already exists. The ledger absorbs it as success.
	ErrDuplicateOrder = errors.New("duplicate order")

	// ErrCartNotFound is returned when a cart id references nothing.
	ErrCartNotFound = errors.New("cart not found")

	// ErrPotionNotFound is returned when a SKU has no potion definition.
	ErrPotionNotFound = errors.New("potion not found")

	// ErrCartClosed is returned when mutating a checked-out cart.
	ErrCartClosed = errors.New("cart already checked out")

	// ErrEmptyCart is returned when checking out a cart with no staged
	// quantity above zero.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock is returned when checkout would push a SKU's
	// potion balance below zero. Nothing is committed.
	ErrInsufficientStock = errors.New("insufficient potion stock")

	// ErrInsufficientGold is returned when a purchase would push the gold
	// balance below zero.
	ErrInsufficientGold = errors.New("insufficient gold")

	// ErrInsufficientLiquid is returned when bottling would push a color's
	// liquid balance below zero.
	ErrInsufficientLiquid = errors.New("insufficient liquid")

	// ErrInvalidRecipe is returned for recipes not summing to 100.
	ErrInvalidRecipe = errors.New("invalid recipe")

	// ErrConflict is returned when the store detects a concurrent writer.
	// Callers may retry a bounded number of times.
	ErrConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - carry additional context
// =============================================================================

// InsufficientStockError reports which SKU fell short at checkout.
type InsufficientStockError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.SKU, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// InsufficientLiquidError reports which color a bottling run would overdraw.
type InsufficientLiquidError struct {
	Color     Color
	Requested int
	Available int
}

func (e *InsufficientLiquidError) Error() string {
	return fmt.Sprintf("insufficient %s liquid: requested %d ml, available %d ml",
		e.Color, e.Requested, e.Available)
}

func (e *InsufficientLiquidError) Unwrap() error {
	return ErrInsufficientLiquid
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to invalid caller input
// or state, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCartClosed) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientGold) ||
		errors.Is(err, ErrInsufficientLiquid) ||
		errors.Is(err, ErrInvalidRecipe)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrPotionNotFound)
}
