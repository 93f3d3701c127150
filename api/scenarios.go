/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the ledger with realistic
	data for demos and integration tests. Every scenario is replayed through
	the public ledger operations, so the resulting logs and id counters look
	exactly like real usage.

AVAILABLE SCENARIOS:

	empty:           No data at all
	pharmacy-chain:  One hub, two pharmacies, catalog, transfers and a FEFO sale
	expiry-alerts:   Lots that are expired, expiring soon, drained and healthy

HOW SCENARIOS WORK:
 1. Reset the ledger (id counters are kept)
 2. Create warehouses, medicines and suppliers
 3. Import batches with expiry dates relative to the ledger clock
 4. Optionally transfer and sell

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "pharmacy-chain"}

NOTE:

	Scenarios wipe the ledger. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - scheduler.go: the expiry-alerts scenario feeds the watcher
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/pharma-stock/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No warehouses, no stock",
	},
	{
		ID:          "pharmacy-chain",
		Name:        "Pharmacy Chain",
		Description: "Distribution hub supplying two pharmacies; transfers and a FEFO sale across two lots",
	},
	{
		ID:          "expiry-alerts",
		Name:        "Expiry Alerts",
		Description: "Expired, soon-to-expire, drained and healthy lots for the expiry watcher",
	},
}

var scenarioLoaders = map[string]func(ctx context.Context, l *ledger.Ledger) error{
	"empty":          func(context.Context, *ledger.Ledger) error { return nil },
	"pharmacy-chain": loadPharmacyChainScenario,
	"expiry-alerts":  loadExpiryAlertsScenario,
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the ledger and loads a scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		status := http.StatusInternalServerError
		if _, known := scenarioLoaders[req.ScenarioID]; !known {
			status = http.StatusNotFound
		}
		writeError(w, status, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// ResetLedger wipes all data.
// POST /api/scenarios/reset
func (h *Handler) ResetLedger(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Reset(r.Context()); err != nil {
		h.writeLedgerError(w, r, "Failed to reset ledger", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	load, ok := scenarioLoaders[id]
	if !ok {
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err := h.Ledger.Reset(ctx); err != nil {
		return err
	}
	if err := load(ctx, h.Ledger); err != nil {
		return fmt.Errorf("scenario %s: %w", id, err)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	h.log.Info().Str("scenario", id).Msg("scenario loaded")
	return nil
}

// =============================================================================
// SEEDER - Sticky-error wrapper over ledger operations
// =============================================================================

type seeder struct {
	ctx context.Context
	l   *ledger.Ledger
	now time.Time
	err error
}

func newSeeder(ctx context.Context, l *ledger.Ledger) *seeder {
	now := l.Now()
	return &seeder{ctx: ctx, l: l, now: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)}
}

// inDays returns midnight UTC, n days from today.
func (s *seeder) inDays(n int) time.Time { return s.now.AddDate(0, 0, n) }

func (s *seeder) warehouse(name string, typ ledger.WarehouseType) ledger.WarehouseID {
	if s.err != nil {
		return 0
	}
	w, err := s.l.CreateWarehouse(s.ctx, name, typ)
	s.err = err
	return w.ID
}

func (s *seeder) medicine(name, manufacturer, price string) ledger.MedicineID {
	if s.err != nil {
		return 0
	}
	m, err := s.l.CreateMedicine(s.ctx, ledger.MedicineInput{
		Name:         name,
		Manufacturer: manufacturer,
		DefaultPrice: decimal.RequireFromString(price),
	})
	s.err = err
	return m.ID
}

func (s *seeder) supplier(name, contact string) {
	if s.err != nil {
		return
	}
	_, s.err = s.l.CreateSupplier(s.ctx, name, contact)
}

func (s *seeder) importBatch(med ledger.MedicineID, wh ledger.WarehouseID, qty uint32, price string, expiresInDays int) ledger.BatchID {
	if s.err != nil {
		return 0
	}
	id, err := s.l.Import(s.ctx, ledger.ImportInput{
		MedicineID:  med,
		WarehouseID: wh,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
		ExpiryDate:  s.inDays(expiresInDays),
	})
	s.err = err
	return id
}

func (s *seeder) transfer(batch ledger.BatchID, to ledger.WarehouseID, qty uint32) {
	if s.err != nil {
		return
	}
	_, s.err = s.l.Transfer(s.ctx, ledger.TransferInput{BatchID: batch, ToWarehouseID: to, Quantity: qty})
}

func (s *seeder) sell(med ledger.MedicineID, at ledger.WarehouseID, qty uint32) {
	if s.err != nil {
		return
	}
	_, s.err = s.l.Sell(s.ctx, ledger.SellInput{MedicineID: med, Quantity: qty, WarehouseID: at})
}

// =============================================================================
// SCENARIO: Pharmacy Chain
// =============================================================================

func loadPharmacyChainScenario(ctx context.Context, l *ledger.Ledger) error {
	s := newSeeder(ctx, l)

	hub := s.warehouse("Central Distribution Hub", ledger.WarehouseHub)
	downtown := s.warehouse("Downtown Pharmacy", ledger.WarehousePointOfSale)
	riverside := s.warehouse("Riverside Pharmacy", ledger.WarehousePointOfSale)

	amox := s.medicine("Amoxicillin 500mg", "Medipharm", "0.45")
	ibu := s.medicine("Ibuprofen 400mg", "Novalab", "0.20")
	para := s.medicine("Paracetamol 1g", "Novalab", "0.15")
	omep := s.medicine("Omeprazole 20mg", "Gastrix", "0.30")

	s.supplier("MedSupply Wholesale", "orders@medsupply.example")
	s.supplier("Novalab Direct", "+1 555 0100")

	amoxLate := s.importBatch(amox, hub, 1000, "0.40", 180)
	amoxEarly := s.importBatch(amox, hub, 500, "0.42", 60)
	ibuLot := s.importBatch(ibu, hub, 2000, "0.18", 365)
	paraLot := s.importBatch(para, hub, 3000, "0.12", 540)
	s.importBatch(omep, hub, 800, "0.28", 20)

	s.transfer(amoxEarly, downtown, 200)
	s.transfer(amoxLate, downtown, 150)
	s.transfer(ibuLot, riverside, 400)
	s.transfer(paraLot, downtown, 500)

	// Drains the 60-day lot (200) before touching the 180-day lot (50 of 150).
	s.sell(amox, downtown, 250)

	return s.err
}

// =============================================================================
// SCENARIO: Expiry Alerts
// =============================================================================

func loadExpiryAlertsScenario(ctx context.Context, l *ledger.Ledger) error {
	s := newSeeder(ctx, l)

	hub := s.warehouse("Cold Chain Hub", ledger.WarehouseHub)
	pharmacy := s.warehouse("Hospital Pharmacy", ledger.WarehousePointOfSale)

	insulin := s.medicine("Insulin Glargine 100U/ml", "Sanova", "24.50")
	vaccine := s.medicine("Influenza Vaccine 0.5ml", "Biovax", "11.00")
	saline := s.medicine("Saline 0.9% 500ml", "Fluidix", "1.10")

	s.importBatch(insulin, hub, 40, "22.00", -3)      // expired
	s.importBatch(vaccine, hub, 120, "10.00", 5)      // expiring this week
	s.importBatch(insulin, pharmacy, 15, "23.10", 25) // inside a 30-day window
	s.importBatch(saline, hub, 600, "0.95", 400)      // healthy

	// Drained lot: expires tomorrow but holds nothing, so it never alerts.
	s.importBatch(vaccine, pharmacy, 10, "10.00", 1)
	s.sell(vaccine, pharmacy, 10)

	return s.err
}
