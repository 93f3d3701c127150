/*
Package ledger provides the batch-level stock ledger for pharmaceutical stock.

PURPOSE:
  Tracks stock across warehouses at lot (batch) granularity so every unit
  sold or moved can be traced back to a specific import event, price and
  expiry date. The ledger creates batches on import, splits them on
  transfer and drains them First-Expiry-First-Out on sale.

KEY CONCEPTS IN THIS FILE (types.go):
  - Warehouse: a named location, either a distribution hub or a point of sale
  - StockBatch: a lot of one medicine in one warehouse, drained over time
  - Medicine / Supplier: master data, keyed collections with no logic
  - Identifiers: one integer type per collection so ids cannot be mixed

INVARIANTS:
  1. A batch is never deleted, only drained to zero
  2. Quantity only decreases after a batch is created
  3. MedicineName, UnitPrice and ExpiryDate never change once set
  4. Ids are never reused, even for drained batches

SEE ALSO:
  - ledger.go: Import, Transfer, Sell, ExpiringWithin
  - fefo.go: First-Expiry-First-Out allocation
  - movement.go: Import/Export/Transfer audit records
  - state.go: Snapshot (serialisable state) and id counters
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WarehouseID uint32
type BatchID uint32
type MedicineID uint32
type SupplierID uint32
type RecordID uint32

// =============================================================================
// WAREHOUSE - Named location with a type tag
// =============================================================================

type WarehouseType string

const (
	WarehouseHub         WarehouseType = "hub"
	WarehousePointOfSale WarehouseType = "point_of_sale"
)

// ParseWarehouseType accepts the canonical names plus a few spellings used
// by older clients ("pos", "point-of-sale", "distribution").
func ParseWarehouseType(s string) (WarehouseType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hub", "distribution", "distribution_hub":
		return WarehouseHub, nil
	case "point_of_sale", "point-of-sale", "pos":
		return WarehousePointOfSale, nil
	}
	return "", ErrInvalidWarehouseType
}

func (t WarehouseType) Valid() bool {
	return t == WarehouseHub || t == WarehousePointOfSale
}

type Warehouse struct {
	ID   WarehouseID   `json:"id"`
	Name string        `json:"name"`
	Type WarehouseType `json:"type"`
}

// =============================================================================
// STOCK BATCH - One lot of one medicine in one warehouse
// =============================================================================

// StockBatch is created by Import or Transfer and only ever drained.
// MedicineName is a snapshot taken at creation: renaming or deleting the
// medicine later must not rewrite history.
type StockBatch struct {
	ID           BatchID         `json:"id"`
	MedicineID   MedicineID      `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	WarehouseID  WarehouseID     `json:"warehouse_id"`
	Quantity     uint32          `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ExpiryDate   time.Time       `json:"expiry_date"`
	ImportDate   time.Time       `json:"import_date"`
}

func (b StockBatch) InStock() bool { return b.Quantity > 0 }

// BatchFilter narrows Batches(). Zero values match everything.
type BatchFilter struct {
	MedicineID  MedicineID
	WarehouseID WarehouseID
	InStockOnly bool
}

func (f BatchFilter) match(b StockBatch) bool {
	if f.MedicineID != 0 && b.MedicineID != f.MedicineID {
		return false
	}
	if f.WarehouseID != 0 && b.WarehouseID != f.WarehouseID {
		return false
	}
	if f.InStockOnly && !b.InStock() {
		return false
	}
	return true
}

// StockLevel aggregates in-stock batches per (medicine, warehouse).
type StockLevel struct {
	MedicineID    MedicineID  `json:"medicine_id"`
	MedicineName  string      `json:"medicine_name"`
	WarehouseID   WarehouseID `json:"warehouse_id"`
	Quantity      uint64      `json:"quantity"`
	Batches       int         `json:"batches"`
	NearestExpiry time.Time   `json:"nearest_expiry"`
}

// =============================================================================
// MASTER DATA
// =============================================================================

type Medicine struct {
	ID           MedicineID      `json:"id"`
	Name         string          `json:"name"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

type Supplier struct {
	ID      SupplierID `json:"id"`
	Name    string     `json:"name"`
	Contact string     `json:"contact,omitempty"`
}
