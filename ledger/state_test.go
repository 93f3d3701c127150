package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/ledger"
)

func TestSnapshot_CloneIsDeep(t *testing.T) {
	orig := ledger.Snapshot{
		Warehouses: []ledger.Warehouse{{ID: 1, Name: "Hub", Type: ledger.WarehouseHub}},
		Batches:    []ledger.StockBatch{batch(1, 1, 1, 5, 10, day(2026, time.January, 1))},
		ExportLog: []ledger.ExportRecord{{
			ID:          1,
			Amount:      2,
			Allocations: []ledger.Allocation{{BatchID: 1, Quantity: 2, UnitPrice: decimal.NewFromInt(10)}},
		}},
	}

	cp := orig.Clone()
	cp.Warehouses[0].Name = "changed"
	cp.Batches[0].Quantity = 0
	cp.ExportLog[0].Allocations[0].Quantity = 99

	assert.Equal(t, "Hub", orig.Warehouses[0].Name)
	assert.Equal(t, uint32(5), orig.Batches[0].Quantity)
	assert.Equal(t, uint32(2), orig.ExportLog[0].Allocations[0].Quantity)
}

func TestSnapshot_Reconcile(t *testing.T) {
	s := ledger.Snapshot{
		Warehouses:  []ledger.Warehouse{{ID: 3}, {ID: 1}},
		Batches:     []ledger.StockBatch{{ID: 7}, {ID: 2}},
		Medicines:   []ledger.Medicine{{ID: 4}},
		ImportLog:   []ledger.ImportRecord{{ID: 5}},
		TransferLog: []ledger.TransferRecord{{ID: 2}},
		Counters:    ledger.Counters{Batch: 9, Export: 6},
	}

	s.Reconcile()

	assert.Equal(t, ledger.WarehouseID(3), s.Counters.Warehouse)
	// Counters already ahead of the data are kept.
	assert.Equal(t, ledger.BatchID(9), s.Counters.Batch)
	assert.Equal(t, ledger.MedicineID(4), s.Counters.Medicine)
	assert.Equal(t, ledger.SupplierID(0), s.Counters.Supplier)
	assert.Equal(t, ledger.RecordID(5), s.Counters.Import)
	assert.Equal(t, ledger.RecordID(6), s.Counters.Export)
	assert.Equal(t, ledger.RecordID(2), s.Counters.Transfer)
}

func TestSnapshot_TotalQuantity(t *testing.T) {
	s := ledger.Snapshot{Batches: []ledger.StockBatch{
		batch(1, 1, 1, 5, 1, day(2026, time.January, 1)),
		batch(2, 1, 2, 7, 1, day(2026, time.January, 1)),
		batch(3, 2, 1, 100, 1, day(2026, time.January, 1)),
	}}

	assert.Equal(t, uint64(12), s.TotalQuantity(1))
	assert.Equal(t, uint64(0), s.TotalQuantity(9))
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-01-31", day(2026, time.January, 31)},
		{"2026-01-31T12:30:00", time.Date(2026, time.January, 31, 12, 30, 0, 0, time.UTC)},
		{"2026-01-31T12:30:00+02:00", time.Date(2026, time.January, 31, 10, 30, 0, 0, time.UTC)},
		{" 2026-01-31 ", day(2026, time.January, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ledger.ParseExpiry(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"", "31/01/2026", "tomorrow"} {
		_, err := ledger.ParseExpiry(bad)
		assert.ErrorIs(t, err, ledger.ErrInvalidTimestamp, bad)
	}
}

func TestParseWarehouseType(t *testing.T) {
	typ, err := ledger.ParseWarehouseType("point_of_sale")
	require.NoError(t, err)
	assert.Equal(t, ledger.WarehousePointOfSale, typ)

	typ, err = ledger.ParseWarehouseType("hub")
	require.NoError(t, err)
	assert.Equal(t, ledger.WarehouseHub, typ)

	_, err = ledger.ParseWarehouseType("garage")
	assert.ErrorIs(t, err, ledger.ErrInvalidWarehouseType)
}
