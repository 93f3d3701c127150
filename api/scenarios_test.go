/*
scenarios_test.go - Tests for demo scenario loading

Each scenario is checked for the state it promises: warehouses, lots,
movement logs and expiry exposure.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/pharma-stock/ledger"
)

func loadScenario(t *testing.T, ts *testServer, id string) {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestScenario_PharmacyChain(t *testing.T) {
	// GIVEN: A fresh server
	ts := newTestServer(t)

	// WHEN: Loading the pharmacy chain
	loadScenario(t, ts, "pharmacy-chain")
	l := ts.h.Ledger

	// THEN: One hub and two pharmacies
	ws := l.Warehouses()
	require.Len(t, ws, 3)
	assert.Equal(t, ledger.WarehouseHub, ws[0].Type)
	assert.Equal(t, ledger.WarehousePointOfSale, ws[1].Type)
	assert.Equal(t, ledger.WarehousePointOfSale, ws[2].Type)
	assert.Len(t, l.Medicines(), 4)
	assert.Len(t, l.Suppliers(), 2)

	// AND: Five imports, four transfers, one sale
	assert.Len(t, l.ImportLog(), 5)
	assert.Len(t, l.TransferLog(), 4)
	exports := l.ExportLog()
	require.Len(t, exports, 1)

	// AND: The sale drained the 60-day lot before the 180-day lot
	sale := exports[0]
	assert.Equal(t, uint32(250), sale.Amount)
	require.Len(t, sale.Allocations, 2)
	assert.Equal(t, ledger.BatchID(6), sale.Allocations[0].BatchID)
	assert.Equal(t, uint32(200), sale.Allocations[0].Quantity)
	assert.Equal(t, ledger.BatchID(7), sale.Allocations[1].BatchID)
	assert.Equal(t, uint32(50), sale.Allocations[1].Quantity)
	// (200*0.42 + 50*0.40) / 250
	assert.True(t, decimal.RequireFromString("0.416").Equal(sale.Price), sale.Price.String())

	// AND: Quantity is conserved across hub and pharmacies
	snap := l.Snapshot()
	assert.Equal(t, uint64(1500-250), snap.TotalQuantity(1))

	// AND: Only the omeprazole lot falls inside the 30-day window
	expiring, err := l.ExpiringWithin(context.Background(), 30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "Omeprazole 20mg", expiring[0].MedicineName)
}

func TestScenario_ExpiryAlerts(t *testing.T) {
	ts := newTestServer(t)
	loadScenario(t, ts, "expiry-alerts")

	w := NewExpiryWatcher(ts.h.Ledger, 30, "", ts.h.log)
	report := w.RunOnce(context.Background())

	require.Len(t, report.Expired, 1)
	assert.Equal(t, ledger.BatchID(1), report.Expired[0].ID)
	require.Len(t, report.Expiring, 2)
	assert.Equal(t, ledger.BatchID(2), report.Expiring[0].ID)
	assert.Equal(t, ledger.BatchID(3), report.Expiring[1].ID)

	drained, err := ts.h.Ledger.Batch(5)
	require.NoError(t, err)
	assert.Zero(t, drained.Quantity, "drained lot must not alert")
}

func TestScenario_ReloadNeverReusesIDs(t *testing.T) {
	// GIVEN: The pharmacy chain loaded once (batches 1 to 9)
	ts := newTestServer(t)
	loadScenario(t, ts, "pharmacy-chain")

	// WHEN: Loading it again
	loadScenario(t, ts, "pharmacy-chain")

	// THEN: Only the second load's data is left
	assert.Len(t, ts.h.Ledger.Warehouses(), 3)
	assert.Len(t, ts.h.Ledger.ImportLog(), 5)

	// AND: Its ids continue after the first load's
	batches := ts.h.Ledger.Batches(ledger.BatchFilter{})
	require.Len(t, batches, 9)
	assert.Equal(t, ledger.BatchID(10), batches[0].ID)
	assert.Equal(t, ledger.WarehouseID(4), ts.h.Ledger.Warehouses()[0].ID)
}

func TestScenario_CurrentAndReset(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())

	loadScenario(t, ts, "expiry-alerts")
	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "expiry-alerts", decode[ScenarioDTO](t, rec).ID)

	rec = ts.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, ts.h.Ledger.Warehouses())
	rec = ts.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.JSONEq(t, "null", rec.Body.String())
}

func TestScenario_Unknown(t *testing.T) {
	ts := newTestServer(t)
	loadScenario(t, ts, "pharmacy-chain")

	rec := ts.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "hospital"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, ts.h.Ledger.Warehouses(), 3, "unknown scenario must not reset the ledger")
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	rec := newTestServer(t).do(t, http.MethodGet, "/api/scenarios", nil)
	listed := decode[[]ScenarioDTO](t, rec)
	require.Len(t, listed, len(scenarioLoaders))

	for _, s := range listed {
		t.Run(s.ID, func(t *testing.T) {
			ts := newTestServer(t)
			require.NoError(t, ts.h.loadScenario(context.Background(), s.ID))
		})
	}
}
