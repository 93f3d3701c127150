package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MOVEMENT LOG - Append-only audit records
// =============================================================================
//
// Three independent streams, each with its own id sequence. Records are
// written by the ledger as a side effect of Import, Sell and Transfer and are
// never modified afterwards. Batches are authoritative; the log is audit.

type MovementKind string

const (
	MovementImport   MovementKind = "import"
	MovementExport   MovementKind = "export"
	MovementTransfer MovementKind = "transfer"
)

// ImportRecord snapshots the medicine, quantity and price of a new batch at
// the instant it was created.
type ImportRecord struct {
	ID           RecordID        `json:"id"`
	BatchID      BatchID         `json:"batch_id"`
	MedicineID   MedicineID      `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	WarehouseID  WarehouseID     `json:"warehouse_id"`
	Quantity     uint32          `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Timestamp    time.Time       `json:"timestamp"`
}

// ExportRecord is written once per sale. Price is the quantity-weighted
// average of the drained batches; Allocations keeps the per-lot detail.
type ExportRecord struct {
	ID           RecordID        `json:"id"`
	MedicineID   MedicineID      `json:"medicine_id"`
	MedicineName string          `json:"medicine_name"`
	WarehouseID  WarehouseID     `json:"warehouse_id"`
	Amount       uint32          `json:"amount"`
	Price        decimal.Decimal `json:"price"`
	Allocations  []Allocation    `json:"allocations"`
	Timestamp    time.Time       `json:"timestamp"`
}

// TransferRecord references the source batch as it was at transfer time.
type TransferRecord struct {
	ID              RecordID    `json:"id"`
	BatchID         BatchID     `json:"batch_id"`
	NewBatchID      BatchID     `json:"new_batch_id"`
	MedicineID      MedicineID  `json:"medicine_id"`
	MedicineName    string      `json:"medicine_name"`
	FromWarehouseID WarehouseID `json:"from_warehouse_id"`
	ToWarehouseID   WarehouseID `json:"to_warehouse_id"`
	Quantity        uint32      `json:"quantity"`
	Timestamp       time.Time   `json:"timestamp"`
}

func (r ExportRecord) clone() ExportRecord {
	r.Allocations = append([]Allocation(nil), r.Allocations...)
	return r
}
