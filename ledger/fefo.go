package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FEFO - First-Expiry-First-Out allocation
// =============================================================================

// Allocation is the quantity drained from one batch by a sale.
type Allocation struct {
	BatchID    BatchID         `json:"batch_id"`
	Quantity   uint32          `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ExpiryDate time.Time       `json:"expiry_date"`
}

// Plan is the outcome of PlanFEFO. A plan that does not cover the requested
// quantity must not be applied.
type Plan struct {
	Requested   uint32
	Covered     uint32
	Available   uint64
	Allocations []Allocation
}

func (p Plan) Complete() bool { return p.Covered == p.Requested }

func (p Plan) ShortBy() uint32 { return p.Requested - p.Covered }

// WeightedPrice is sum(price_i * drained_i) / covered.
func (p Plan) WeightedPrice() decimal.Decimal {
	if p.Covered == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, a := range p.Allocations {
		total = total.Add(a.UnitPrice.Mul(decimal.NewFromInt(int64(a.Quantity))))
	}
	return total.Div(decimal.NewFromInt(int64(p.Covered)))
}

// PlanFEFO selects in-stock batches of medicineID in warehouseID, orders them
// by expiry (ties by batch id) and drains min(remaining, batch.Quantity) from
// each until quantity is covered. It does not modify batches.
func PlanFEFO(batches []StockBatch, medicineID MedicineID, warehouseID WarehouseID, quantity uint32) Plan {
	candidates := make([]StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.MedicineID == medicineID && b.WarehouseID == warehouseID && b.InStock() {
			candidates = append(candidates, b)
		}
	}
	sortFEFO(candidates)

	plan := Plan{Requested: quantity}
	for _, b := range candidates {
		plan.Available += uint64(b.Quantity)
	}

	remaining := quantity
	for _, b := range candidates {
		if remaining == 0 {
			break
		}
		take := min(remaining, b.Quantity)
		plan.Allocations = append(plan.Allocations, Allocation{
			BatchID:    b.ID,
			Quantity:   take,
			UnitPrice:  b.UnitPrice,
			ExpiryDate: b.ExpiryDate,
		})
		remaining -= take
	}
	plan.Covered = quantity - remaining
	return plan
}

func sortFEFO(batches []StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
		}
		return batches[i].ID < batches[j].ID
	})
}
