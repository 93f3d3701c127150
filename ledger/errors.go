/*
errors.go - Centralized error types for the stock ledger

PURPOSE:
  All error kinds the ledger can return, in one place. Callers match with
  errors.Is / errors.As; the presentation layer turns them into status
  codes or messages.

ERROR CATEGORIES:
  1. NotFound - unknown warehouse, batch, medicine or supplier id
  2. InvalidQuantity - zero quantity, or more than is available
     (InsufficientQuantityError for transfers, InsufficientStockError for sales)
  3. InvalidTimestamp - unparseable or missing expiry date
  4. Configuration - no point-of-sale warehouse to sell from

The ledger never panics on bad input.

SEE ALSO:
  - api/handlers.go: status code mapping
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is wrapped by every NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity is returned for zero quantities and wrapped by the
	// insufficient quantity/stock errors.
	ErrInvalidQuantity = errors.New("invalid quantity")

	ErrInvalidPrice         = errors.New("invalid price: must be greater than zero")
	ErrInvalidTimestamp     = errors.New("invalid timestamp")
	ErrInvalidName          = errors.New("invalid name: must not be empty")
	ErrInvalidWarehouseType = errors.New("invalid warehouse type")

	// ErrNoPointOfSaleWarehouse is returned by Sell when no warehouse id is
	// given and none of type point_of_sale exists.
	ErrNoPointOfSaleWarehouse = errors.New("no point-of-sale warehouse configured")

	// ErrNotPointOfSale is returned by Sell for a hub warehouse.
	ErrNotPointOfSale = errors.New("warehouse is not a point of sale")

	ErrSameWarehouse = errors.New("batch is already in the destination warehouse")

	// ErrSnapshotNotFound is returned by a SnapshotStore with nothing saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type EntityKind string

const (
	KindWarehouse EntityKind = "warehouse"
	KindBatch     EntityKind = "batch"
	KindMedicine  EntityKind = "medicine"
	KindSupplier  EntityKind = "supplier"
)

type NotFoundError struct {
	Kind EntityKind
	ID   uint32
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientQuantityError is returned when a transfer asks for more than
// the source batch holds. Nothing is mutated.
type InsufficientQuantityError struct {
	BatchID   BatchID
	Requested uint32
	Available uint32
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("insufficient quantity in batch %d: requested %d, available %d",
		e.BatchID, e.Requested, e.Available)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInvalidQuantity }

// InsufficientStockError is returned when the in-stock batches of a medicine
// in a warehouse cannot cover a sale. Nothing is mutated.
type InsufficientStockError struct {
	MedicineID  MedicineID
	WarehouseID WarehouseID
	Requested   uint32
	Available   uint32
	ShortBy     uint32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of medicine %d in warehouse %d: requested %d, available %d, short by %d",
		e.MedicineID, e.WarehouseID, e.Requested, e.Available, e.ShortBy)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInvalidQuantity }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidTimestamp) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidWarehouseType) ||
		errors.Is(err, ErrNoPointOfSaleWarehouse) ||
		errors.Is(err, ErrNotPointOfSale) ||
		errors.Is(err, ErrSameWarehouse)
}
