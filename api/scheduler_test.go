package api

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/ledger"
)

func TestExpiryWatcher_RunOnce(t *testing.T) {
	// GIVEN: One expired lot, one expiring in 10 days, one healthy
	ts := newTestServer(t)
	ts.seedWarehouses(t)
	ts.importBatch(t, 1, 10, "1.00", "2025-03-01")
	ts.importBatch(t, 2, 10, "1.00", "2025-03-20")
	ts.importBatch(t, 1, 10, "1.00", "2026-01-01")

	var buf bytes.Buffer
	w := NewExpiryWatcher(ts.h.Ledger, 30, "", zerolog.New(&buf))

	// WHEN: Running the scan
	report := w.RunOnce(context.Background())

	// THEN: Batches are split into expired and expiring
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, testNow, report.RanAt)
	assert.Equal(t, 30, report.Days)
	require.Len(t, report.Expired, 1)
	assert.Equal(t, ledger.BatchID(1), report.Expired[0].ID)
	require.Len(t, report.Expiring, 1)
	assert.Equal(t, ledger.BatchID(2), report.Expiring[0].ID)

	// AND: One warning per batch is logged
	out := buf.String()
	assert.Contains(t, out, `"message":"batch expired"`)
	assert.Contains(t, out, `"message":"batch expiring soon"`)
	assert.Contains(t, out, `"component":"expiry_watcher"`)

	// AND: The report is kept
	last, ok := w.Last()
	require.True(t, ok)
	assert.Equal(t, report.ID, last.ID)
}

func TestExpiryWatcher_PartitionsAgainstRunTime(t *testing.T) {
	// GIVEN: A clock that moves on every reading and a lot expiring
	// half an hour after the scan starts
	clock := &stepClock{now: testNow}
	ts := newSteppingServer(t, clock)
	ts.seedWarehouses(t)
	id, err := ts.h.Ledger.Import(context.Background(), ledger.ImportInput{
		MedicineID: 1, MedicineName: "Amoxicillin 500mg", WarehouseID: 1, Quantity: 10,
		UnitPrice: decimal.NewFromInt(1), ExpiryDate: testNow.Add(30 * time.Minute),
	})
	require.NoError(t, err)
	clock.set(testNow)
	w := NewExpiryWatcher(ts.h.Ledger, 1, "", zerolog.Nop())

	// WHEN: Running the scan
	report := w.RunOnce(context.Background())

	// THEN: The lot is still expiring as of the run time
	assert.Equal(t, testNow, report.RanAt)
	assert.Empty(t, report.Expired)
	require.Len(t, report.Expiring, 1)
	assert.Equal(t, id, report.Expiring[0].ID)
	assert.Equal(t, 1, clock.reads)
}

func TestExpiryWatcher_EachRunHasNewID(t *testing.T) {
	ts := newTestServer(t)
	w := NewExpiryWatcher(ts.h.Ledger, 7, "", zerolog.Nop())

	_, ok := w.Last()
	assert.False(t, ok)

	first := w.RunOnce(context.Background())
	second := w.RunOnce(context.Background())

	assert.NotEqual(t, first.ID, second.ID)
	assert.Empty(t, second.Expired)
	assert.Empty(t, second.Expiring)
}

func TestExpiryWatcher_StartStop(t *testing.T) {
	ts := newTestServer(t)

	t.Run("empty schedule is disabled", func(t *testing.T) {
		w := NewExpiryWatcher(ts.h.Ledger, 30, "", zerolog.Nop())
		require.NoError(t, w.Start())
		w.Stop()
	})

	t.Run("invalid schedule", func(t *testing.T) {
		w := NewExpiryWatcher(ts.h.Ledger, 30, "every morning", zerolog.Nop())
		err := w.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid expiry schedule")
	})

	t.Run("valid schedule", func(t *testing.T) {
		w := NewExpiryWatcher(ts.h.Ledger, 30, "0 7 * * *", zerolog.Nop())
		require.NoError(t, w.Start())
		require.NoError(t, w.Start(), "second start is a no-op")
		w.Stop()
		w.Stop()
	})
}

func TestExpiryAlertEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.h.Watcher = NewExpiryWatcher(ts.h.Ledger, 30, "", zerolog.Nop())
	ts.seedWarehouses(t)
	ts.importBatch(t, 2, 10, "1.00", "2025-03-20")

	// GET runs a scan when none exists yet
	rec := ts.do(t, http.MethodGet, "/api/alerts/expiry", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[ExpiryReport](t, rec)
	assert.Len(t, first.Expiring, 1)

	// and returns the same report afterwards
	rec = ts.do(t, http.MethodGet, "/api/alerts/expiry", nil)
	assert.Equal(t, first.ID, decode[ExpiryReport](t, rec).ID)

	// POST forces a new scan
	rec = ts.do(t, http.MethodPost, "/api/alerts/expiry/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, first.ID, decode[ExpiryReport](t, rec).ID)
}
