package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/ledger"
	"github.com/warp/pharma-stock/store/file"
)

func TestLoad_MissingFile(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "data.json"))

	_, err := store.Load(context.Background())

	assert.ErrorIs(t, err, ledger.ErrSnapshotNotFound)
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"warehouses": [`), 0o644))

	_, err := file.New(path).Load(context.Background())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrSnapshotNotFound)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "data.json")
	store := file.New(path)
	expiry := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	want := ledger.Snapshot{
		Warehouses: []ledger.Warehouse{{ID: 1, Name: "Hub", Type: ledger.WarehouseHub}},
		Batches: []ledger.StockBatch{{
			ID: 1, MedicineID: 1, MedicineName: "Ibuprofen", WarehouseID: 1, Quantity: 6,
			UnitPrice: decimal.RequireFromString("2.35"), ExpiryDate: expiry, ImportDate: expiry,
		}},
		ExportLog: []ledger.ExportRecord{{
			ID: 1, MedicineID: 1, Amount: 2, Price: decimal.RequireFromString("2.35"),
			Allocations: []ledger.Allocation{{BatchID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("2.35"), ExpiryDate: expiry}},
		}},
		Counters: ledger.Counters{Warehouse: 1, Batch: 1, Export: 1},
	}

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Warehouses, got.Warehouses)
	assert.Equal(t, want.Counters, got.Counters)
	require.Len(t, got.Batches, 1)
	assert.True(t, got.Batches[0].UnitPrice.Equal(want.Batches[0].UnitPrice))
	assert.True(t, got.Batches[0].ExpiryDate.Equal(expiry))
	require.Len(t, got.ExportLog, 1)
	assert.Equal(t, uint32(2), got.ExportLog[0].Allocations[0].Quantity)

	// No temp files are left next to the document.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLedger_FallsBackOnCorruptDocument(t *testing.T) {
	// GIVEN: A truncated data.json
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	// WHEN: The ledger opens it
	l := ledger.Open(ctx, file.New(path))

	// THEN: It starts empty and the next mutation rewrites a valid document
	assert.Empty(t, l.Warehouses())
	_, err := l.CreateWarehouse(ctx, "Hub", ledger.WarehouseHub)
	require.NoError(t, err)

	snap, err := file.New(path).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Warehouses, 1)
}

func TestNew_DefaultPath(t *testing.T) {
	assert.Equal(t, file.DefaultPath, file.New("").Path())
}

func TestLedger_SavesAfterCallerCancels(t *testing.T) {
	// GIVEN: A ledger on a JSON document and a request context already cancelled
	path := filepath.Join(t.TempDir(), "data.json")
	l := ledger.Open(context.Background(), file.New(path))
	hub, err := l.CreateWarehouse(context.Background(), "Hub", ledger.WarehouseHub)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN: An import runs on the cancelled context
	id, err := l.Import(ctx, ledger.ImportInput{
		MedicineID: 1, MedicineName: "Ibuprofen", WarehouseID: hub.ID, Quantity: 10,
		UnitPrice: decimal.NewFromInt(2), ExpiryDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// THEN: The batch is on disk after a restart
	reopened := ledger.Open(context.Background(), file.New(path))
	batches := reopened.Batches(ledger.BatchFilter{})
	require.Len(t, batches, 1)
	assert.Equal(t, id, batches[0].ID)
}
