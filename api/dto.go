/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Ledger types already
  carry json tags and are returned as-is; this file holds request bodies,
  small response wrappers and the error envelope.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers
  - *DTO: Listing types that are not ledger types

VALIDATION:
  Request types carry go-playground/validator tags, checked by
  validateRequest before the ledger is called. The ledger re-checks its own
  invariants; tags only give earlier, field-level messages.

SEE ALSO:
  - handlers.go: Uses these types
  - validate.go: Validator setup and custom tags
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/pharma-stock/ledger"
)

// =============================================================================
// DIRECTORY AND CATALOG
// =============================================================================

type WarehouseRequest struct {
	Name string `json:"name" validate:"required"`
	Type string `json:"type" validate:"required,warehouse_type"`
}

type MedicineRequest struct {
	Name         string          `json:"name" validate:"required"`
	Manufacturer string          `json:"manufacturer"`
	DefaultPrice decimal.Decimal `json:"default_price"`
}

type SupplierRequest struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact"`
}

// =============================================================================
// STOCK MOVEMENTS
// =============================================================================

// ImportRequest creates a batch. MedicineName may be omitted when the
// medicine is in the catalog. ExpiryDate accepts YYYY-MM-DD or RFC3339.
type ImportRequest struct {
	MedicineID   uint32          `json:"medicine_id" validate:"required"`
	MedicineName string          `json:"medicine_name"`
	WarehouseID  uint32          `json:"warehouse_id" validate:"required"`
	Quantity     uint32          `json:"quantity" validate:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	ExpiryDate   string          `json:"expiry_date" validate:"required"`
}

type ImportResponse struct {
	BatchID ledger.BatchID `json:"batch_id"`
}

type TransferRequest struct {
	BatchID       uint32 `json:"batch_id" validate:"required"`
	ToWarehouseID uint32 `json:"to_warehouse_id" validate:"required"`
	Quantity      uint32 `json:"quantity" validate:"required"`
}

type TransferResponse struct {
	NewBatchID ledger.BatchID `json:"new_batch_id"`
}

// SellRequest omits warehouse_id to sell from the default point of sale.
type SellRequest struct {
	MedicineID  uint32 `json:"medicine_id" validate:"required"`
	Quantity    uint32 `json:"quantity" validate:"required"`
	WarehouseID uint32 `json:"warehouse_id"`
}

// ExpiringResponse wraps an expiry window: AsOf is the clock reading the
// cutoff was derived from.
type ExpiringResponse struct {
	Days    int                 `json:"days"`
	AsOf    time.Time           `json:"as_of"`
	Cutoff  time.Time           `json:"cutoff"`
	Batches []ledger.StockBatch `json:"batches"`
}

// =============================================================================
// MISC
// =============================================================================

type HealthResponse struct {
	Status     string `json:"status"`
	Store      string `json:"store"`
	Warehouses int    `json:"warehouses"`
	Batches    int    `json:"batches"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
