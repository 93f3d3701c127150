package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/pharma-stock/ledger"
)

// =============================================================================
// BATCH ENDPOINTS
// =============================================================================

// ListBatches returns batches, optionally filtered.
// GET /api/batches?medicine_id=1&warehouse_id=2&in_stock=true
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	medID, err := queryUint(r, "medicine_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	whID, err := queryUint(r, "warehouse_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	inStock := false
	if raw := r.URL.Query().Get("in_stock"); raw != "" {
		if inStock, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid filter", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, h.Ledger.Batches(ledger.BatchFilter{
		MedicineID:  ledger.MedicineID(medID),
		WarehouseID: ledger.WarehouseID(whID),
		InStockOnly: inStock,
	}))
}

// GetBatch returns one batch, drained or not.
// GET /api/batches/{id}
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b, err := h.Ledger.Batch(ledger.BatchID(id))
	if err != nil {
		h.writeLedgerError(w, r, "Batch not found", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ImportBatch creates a batch.
// POST /api/batches/import
func (h *Handler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	expiry, err := ledger.ParseExpiry(req.ExpiryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expiry_date", err)
		return
	}

	id, err := h.Ledger.Import(r.Context(), ledger.ImportInput{
		MedicineID:   ledger.MedicineID(req.MedicineID),
		MedicineName: req.MedicineName,
		WarehouseID:  ledger.WarehouseID(req.WarehouseID),
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		ExpiryDate:   expiry,
	})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to import batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{BatchID: id})
}

// TransferBatch moves quantity from a batch into a new batch elsewhere.
// POST /api/batches/transfer
func (h *Handler) TransferBatch(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	id, err := h.Ledger.Transfer(r.Context(), ledger.TransferInput{
		BatchID:       ledger.BatchID(req.BatchID),
		ToWarehouseID: ledger.WarehouseID(req.ToWarehouseID),
		Quantity:      req.Quantity,
	})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to transfer batch", err)
		return
	}
	writeJSON(w, http.StatusCreated, TransferResponse{NewBatchID: id})
}

// Sell consumes stock first-expiry-first-out and returns the export record.
// POST /api/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rec, err := h.Ledger.Sell(r.Context(), ledger.SellInput{
		MedicineID:  ledger.MedicineID(req.MedicineID),
		Quantity:    req.Quantity,
		WarehouseID: ledger.WarehouseID(req.WarehouseID),
	})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to sell", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// =============================================================================
// EXPIRY ENDPOINTS
// =============================================================================

// ListExpiring returns in-stock batches expiring within ?days (inclusive).
// GET /api/batches/expiring?days=30
func (h *Handler) ListExpiring(w http.ResponseWriter, r *http.Request) {
	days := h.ExpiryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days", err)
			return
		}
		days = v
	}

	window, err := h.Ledger.ExpiringWindow(r.Context(), days)
	if err != nil {
		h.writeLedgerError(w, r, "Invalid days", err)
		return
	}
	if window.Batches == nil {
		window.Batches = []ledger.StockBatch{}
	}
	writeJSON(w, http.StatusOK, ExpiringResponse{
		Days:    days,
		AsOf:    window.Now,
		Cutoff:  window.Cutoff,
		Batches: window.Batches,
	})
}

// ListExpired returns in-stock batches already past expiry.
// GET /api/batches/expired
func (h *Handler) ListExpired(w http.ResponseWriter, r *http.Request) {
	batches := h.Ledger.Expired(r.Context())
	if batches == nil {
		batches = []ledger.StockBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

// GetExpiryReport returns the watcher's last report, running one if the
// watcher has not run yet.
// GET /api/alerts/expiry
func (h *Handler) GetExpiryReport(w http.ResponseWriter, r *http.Request) {
	if h.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Expiry watcher not configured", nil)
		return
	}
	report, ok := h.Watcher.Last()
	if !ok {
		report = h.Watcher.RunOnce(r.Context())
	}
	writeJSON(w, http.StatusOK, report)
}

// RunExpiryCheck runs the watcher now.
// POST /api/alerts/expiry/run
func (h *Handler) RunExpiryCheck(w http.ResponseWriter, r *http.Request) {
	if h.Watcher == nil {
		writeError(w, http.StatusServiceUnavailable, "Expiry watcher not configured", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.Watcher.RunOnce(r.Context()))
}

// =============================================================================
// REPORTING ENDPOINTS
// =============================================================================

// GetStockLevels returns in-stock totals per medicine and warehouse.
// GET /api/stock
func (h *Handler) GetStockLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ledger.StockLevels())
}

// GetMovementLog returns one of the three movement logs.
// GET /api/logs/{kind}   kind = imports | exports | transfers
func (h *Handler) GetMovementLog(w http.ResponseWriter, r *http.Request) {
	switch ledger.MovementKind(singular(chi.URLParam(r, "kind"))) {
	case ledger.MovementImport:
		writeJSON(w, http.StatusOK, h.Ledger.ImportLog())
	case ledger.MovementExport:
		writeJSON(w, http.StatusOK, h.Ledger.ExportLog())
	case ledger.MovementTransfer:
		writeJSON(w, http.StatusOK, h.Ledger.TransferLog())
	default:
		writeError(w, http.StatusNotFound, "Unknown log", nil)
	}
}

func singular(kind string) string {
	if n := len(kind); n > 1 && kind[n-1] == 's' {
		return kind[:n-1]
	}
	return kind
}
