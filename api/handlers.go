/*
handlers.go - HTTP API handlers for the pharmacy stock ledger

PURPOSE:
  Exposes the batch ledger via REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the ledger.

ENDPOINTS:
  Directory:
    GET    /api/warehouses                 List warehouses
    POST   /api/warehouses                 Create warehouse
    GET    /api/warehouses/{id}            Get warehouse
    PUT    /api/warehouses/{id}            Rename / retype warehouse
    GET    /api/warehouses/{id}/batches    In-stock batches in a warehouse

  Catalog:
    GET|POST          /api/medicines
    GET|PUT|DELETE    /api/medicines/{id}
    GET|POST          /api/suppliers
    DELETE            /api/suppliers/{id}

  Stock (handlers_stock.go):
    POST   /api/batches/import     Import a new batch
    POST   /api/batches/transfer   Move quantity to another warehouse
    POST   /api/sell               FEFO sale
    GET    /api/batches/expiring   Batches expiring within N days
    GET    /api/stock              Stock levels per medicine and warehouse
    GET    /api/logs/{kind}        Movement logs

ERROR HANDLING:
  Errors are returned as JSON ErrorResponse with status:
  - 400: Validation errors, invalid input
  - 404: Unknown warehouse, batch, medicine or supplier
  - 422: Not enough quantity in a batch or stock for a sale
  - 500: Internal errors

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/warp/pharma-stock/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger  *ledger.Ledger
	Watcher *ExpiryWatcher

	// StoreName is reported by /api/health.
	StoreName string
	// ExpiryDays is the default window for /api/batches/expiring.
	ExpiryDays int

	log zerolog.Logger

	mu              sync.Mutex
	currentScenario string
}

type HandlerOption func(*Handler)

func WithLogger(log zerolog.Logger) HandlerOption {
	return func(h *Handler) { h.log = log }
}

func WithWatcher(w *ExpiryWatcher) HandlerOption {
	return func(h *Handler) { h.Watcher = w }
}

func WithStoreName(name string) HandlerOption {
	return func(h *Handler) { h.StoreName = name }
}

func WithExpiryDays(days int) HandlerOption {
	return func(h *Handler) { h.ExpiryDays = days }
}

// NewHandler creates a handler over l.
func NewHandler(l *ledger.Ledger, opts ...HandlerOption) *Handler {
	h := &Handler{
		Ledger:     l,
		StoreName:  "memory",
		ExpiryDays: 30,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health reports liveness and a few counts.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Store:      h.StoreName,
		Warehouses: len(h.Ledger.Warehouses()),
		Batches:    len(h.Ledger.Batches(ledger.BatchFilter{})),
	})
}

// =============================================================================
// WAREHOUSE ENDPOINTS
// =============================================================================

// ListWarehouses returns all warehouses in id order.
// GET /api/warehouses
func (h *Handler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Ledger.Warehouses())
}

// CreateWarehouse adds a warehouse.
// POST /api/warehouses
func (h *Handler) CreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req WarehouseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	typ, _ := ledger.ParseWarehouseType(req.Type) // checked by the validator

	wh, err := h.Ledger.CreateWarehouse(r.Context(), req.Name, typ)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to create warehouse", err)
		return
	}
	writeJSON(w, http.StatusCreated, wh)
}

// GetWarehouse returns one warehouse.
// GET /api/warehouses/{id}
func (h *Handler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wh, err := h.Ledger.Warehouse(ledger.WarehouseID(id))
	if err != nil {
		h.writeLedgerError(w, r, "Warehouse not found", err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// UpdateWarehouse edits name and type.
// PUT /api/warehouses/{id}
func (h *Handler) UpdateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req WarehouseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	typ, _ := ledger.ParseWarehouseType(req.Type)

	wh, err := h.Ledger.UpdateWarehouse(r.Context(), ledger.WarehouseID(id), req.Name, typ)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update warehouse", err)
		return
	}
	writeJSON(w, http.StatusOK, wh)
}

// GetWarehouseBatches returns the in-stock batches held in a warehouse.
// GET /api/warehouses/{id}/batches
func (h *Handler) GetWarehouseBatches(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !h.Ledger.WarehouseExists(ledger.WarehouseID(id)) {
		h.writeLedgerError(w, r, "Warehouse not found",
			&ledger.NotFoundError{Kind: ledger.KindWarehouse, ID: id})
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.Batches(ledger.BatchFilter{
		WarehouseID: ledger.WarehouseID(id),
		InStockOnly: true,
	}))
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListMedicines returns the medicine catalog.
// GET /api/medicines
func (h *Handler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	meds := h.Ledger.Medicines()
	if meds == nil {
		meds = []ledger.Medicine{}
	}
	writeJSON(w, http.StatusOK, meds)
}

// CreateMedicine adds a catalog entry.
// POST /api/medicines
func (h *Handler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req MedicineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	med, err := h.Ledger.CreateMedicine(r.Context(), ledger.MedicineInput{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		DefaultPrice: req.DefaultPrice,
	})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to create medicine", err)
		return
	}
	writeJSON(w, http.StatusCreated, med)
}

// GetMedicine returns one catalog entry.
// GET /api/medicines/{id}
func (h *Handler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	med, err := h.Ledger.Medicine(ledger.MedicineID(id))
	if err != nil {
		h.writeLedgerError(w, r, "Medicine not found", err)
		return
	}
	writeJSON(w, http.StatusOK, med)
}

// UpdateMedicine replaces a catalog entry. Existing batches keep the name
// they were created with.
// PUT /api/medicines/{id}
func (h *Handler) UpdateMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req MedicineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	med, err := h.Ledger.UpdateMedicine(r.Context(), ledger.MedicineID(id), ledger.MedicineInput{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		DefaultPrice: req.DefaultPrice,
	})
	if err != nil {
		h.writeLedgerError(w, r, "Failed to update medicine", err)
		return
	}
	writeJSON(w, http.StatusOK, med)
}

// DeleteMedicine removes a catalog entry.
// DELETE /api/medicines/{id}
func (h *Handler) DeleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteMedicine(r.Context(), ledger.MedicineID(id)); err != nil {
		h.writeLedgerError(w, r, "Failed to delete medicine", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSuppliers returns all suppliers.
// GET /api/suppliers
func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	sups := h.Ledger.Suppliers()
	if sups == nil {
		sups = []ledger.Supplier{}
	}
	writeJSON(w, http.StatusOK, sups)
}

// CreateSupplier adds a supplier.
// POST /api/suppliers
func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req SupplierRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	sp, err := h.Ledger.CreateSupplier(r.Context(), req.Name, req.Contact)
	if err != nil {
		h.writeLedgerError(w, r, "Failed to create supplier", err)
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}

// DeleteSupplier removes a supplier.
// DELETE /api/suppliers/{id}
func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.Ledger.DeleteSupplier(r.Context(), ledger.SupplierID(id)); err != nil {
		h.writeLedgerError(w, r, "Failed to delete supplier", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps ledger errors to HTTP status codes.
func statusFor(err error) int {
	var (
		insufficientQty   *ledger.InsufficientQuantityError
		insufficientStock *ledger.InsufficientStockError
	)
	switch {
	case errors.As(err, &insufficientQty), errors.As(err, &insufficientStock):
		return http.StatusUnprocessableEntity
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case ledger.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg(message)
	}
	writeError(w, status, message, err)
}

// decodeAndValidate reads a JSON body into dst and runs the validator.
// On failure it writes a 400 and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validateRequest(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", fmt.Errorf("%q is not a positive integer", raw))
		return 0, false
	}
	return uint32(id), true
}

// queryUint parses an optional unsigned query parameter; absent means 0.
func queryUint(r *http.Request, key string) (uint32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a non-negative integer", key, raw)
	}
	return uint32(v), nil
}
