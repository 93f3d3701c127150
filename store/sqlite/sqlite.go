/*
Package sqlite provides a SQLite-backed ledger.SnapshotStore.

PURPOSE:
  Persists the whole ledger state as relational rows, one table per
  collection, so the data can be inspected with any SQLite client while the
  ledger keeps its load-everything/save-everything contract.

KEY TABLES:
  warehouses:    directory
  batches:       every batch ever created, drained ones included
  medicines:     catalog
  suppliers:     supplier master data
  import_log:    one row per import
  export_log:    one row per sale, allocations as JSON
  transfer_log:  one row per transfer
  counters:      single row, last id per collection

SAVE SEMANTICS:
  Save replaces every table inside one SQL transaction. A crash mid-save
  rolls back to the previous snapshot; readers never see a mix.

  Load on a database that has never been saved (no counters row) returns
  ledger.ErrSnapshotNotFound.

CONCURRENCY:
  Uses sync.Mutex around Save/Load and a single open connection, which also
  keeps ":memory:" databases on one connection.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  l := ledger.Open(ctx, store)

SEE ALSO:
  - ledger/store.go: SnapshotStore interface
  - store/file: JSON document implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/pharma-stock/ledger"
)

// Store implements ledger.SnapshotStore using SQLite.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS warehouses (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id INTEGER PRIMARY KEY,
			medicine_id INTEGER NOT NULL,
			medicine_name TEXT NOT NULL,
			warehouse_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price TEXT NOT NULL,
			expiry_date TEXT NOT NULL,
			import_date TEXT NOT NULL
		)`,
		// FEFO candidate lookups when browsing the database by hand.
		`CREATE INDEX IF NOT EXISTS idx_batches_medicine_warehouse_expiry
			ON batches(medicine_id, warehouse_id, expiry_date)`,
		`CREATE TABLE IF NOT EXISTS medicines (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			manufacturer TEXT NOT NULL DEFAULT '',
			default_price TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS suppliers (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			contact TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS import_log (
			id INTEGER PRIMARY KEY,
			batch_id INTEGER NOT NULL,
			medicine_id INTEGER NOT NULL,
			medicine_name TEXT NOT NULL,
			warehouse_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			price TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS export_log (
			id INTEGER PRIMARY KEY,
			medicine_id INTEGER NOT NULL,
			medicine_name TEXT NOT NULL,
			warehouse_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			price TEXT NOT NULL,
			allocations_json TEXT NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transfer_log (
			id INTEGER PRIMARY KEY,
			batch_id INTEGER NOT NULL,
			new_batch_id INTEGER NOT NULL,
			medicine_id INTEGER NOT NULL,
			medicine_name TEXT NOT NULL,
			from_warehouse_id INTEGER NOT NULL,
			to_warehouse_id INTEGER NOT NULL,
			quantity INTEGER NOT NULL,
			timestamp TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_warehouse INTEGER NOT NULL,
			last_batch INTEGER NOT NULL,
			last_medicine INTEGER NOT NULL,
			last_supplier INTEGER NOT NULL,
			last_import INTEGER NOT NULL,
			last_export INTEGER NOT NULL,
			last_transfer INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ROW TYPES
// =============================================================================

type warehouseRow struct {
	ID   ledger.WarehouseID   `db:"id"`
	Name string               `db:"name"`
	Type ledger.WarehouseType `db:"type"`
}

type batchRow struct {
	ID           ledger.BatchID     `db:"id"`
	MedicineID   ledger.MedicineID  `db:"medicine_id"`
	MedicineName string             `db:"medicine_name"`
	WarehouseID  ledger.WarehouseID `db:"warehouse_id"`
	Quantity     uint32             `db:"quantity"`
	UnitPrice    decimal.Decimal    `db:"unit_price"`
	ExpiryDate   string             `db:"expiry_date"`
	ImportDate   string             `db:"import_date"`
}

type medicineRow struct {
	ID           ledger.MedicineID `db:"id"`
	Name         string            `db:"name"`
	Manufacturer string            `db:"manufacturer"`
	DefaultPrice decimal.Decimal   `db:"default_price"`
}

type supplierRow struct {
	ID      ledger.SupplierID `db:"id"`
	Name    string            `db:"name"`
	Contact string            `db:"contact"`
}

type importRow struct {
	ID           ledger.RecordID    `db:"id"`
	BatchID      ledger.BatchID     `db:"batch_id"`
	MedicineID   ledger.MedicineID  `db:"medicine_id"`
	MedicineName string             `db:"medicine_name"`
	WarehouseID  ledger.WarehouseID `db:"warehouse_id"`
	Quantity     uint32             `db:"quantity"`
	Price        decimal.Decimal    `db:"price"`
	Timestamp    string             `db:"timestamp"`
}

type exportRow struct {
	ID              ledger.RecordID    `db:"id"`
	MedicineID      ledger.MedicineID  `db:"medicine_id"`
	MedicineName    string             `db:"medicine_name"`
	WarehouseID     ledger.WarehouseID `db:"warehouse_id"`
	Amount          uint32             `db:"amount"`
	Price           decimal.Decimal    `db:"price"`
	AllocationsJSON string             `db:"allocations_json"`
	Timestamp       string             `db:"timestamp"`
}

type transferRow struct {
	ID              ledger.RecordID    `db:"id"`
	BatchID         ledger.BatchID     `db:"batch_id"`
	NewBatchID      ledger.BatchID     `db:"new_batch_id"`
	MedicineID      ledger.MedicineID  `db:"medicine_id"`
	MedicineName    string             `db:"medicine_name"`
	FromWarehouseID ledger.WarehouseID `db:"from_warehouse_id"`
	ToWarehouseID   ledger.WarehouseID `db:"to_warehouse_id"`
	Quantity        uint32             `db:"quantity"`
	Timestamp       string             `db:"timestamp"`
}

type countersRow struct {
	Warehouse ledger.WarehouseID `db:"last_warehouse"`
	Batch     ledger.BatchID     `db:"last_batch"`
	Medicine  ledger.MedicineID  `db:"last_medicine"`
	Supplier  ledger.SupplierID  `db:"last_supplier"`
	Import    ledger.RecordID    `db:"last_import"`
	Export    ledger.RecordID    `db:"last_export"`
	Transfer  ledger.RecordID    `db:"last_transfer"`
	SavedAt   string             `db:"saved_at"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// =============================================================================
// SAVE
// =============================================================================

var tables = []string{
	"warehouses", "batches", "medicines", "suppliers",
	"import_log", "export_log", "transfer_log", "counters",
}

// Save replaces the stored snapshot atomically.
func (s *Store) Save(ctx context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, w := range snap.Warehouses {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO warehouses (id, name, type) VALUES (:id, :name, :type)`,
			warehouseRow{ID: w.ID, Name: w.Name, Type: w.Type}); err != nil {
			return fmt.Errorf("failed to save warehouse %d: %w", w.ID, err)
		}
	}

	for _, b := range snap.Batches {
		row := batchRow{
			ID:           b.ID,
			MedicineID:   b.MedicineID,
			MedicineName: b.MedicineName,
			WarehouseID:  b.WarehouseID,
			Quantity:     b.Quantity,
			UnitPrice:    b.UnitPrice,
			ExpiryDate:   formatTime(b.ExpiryDate),
			ImportDate:   formatTime(b.ImportDate),
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO batches
			(id, medicine_id, medicine_name, warehouse_id, quantity, unit_price, expiry_date, import_date)
			VALUES (:id, :medicine_id, :medicine_name, :warehouse_id, :quantity, :unit_price, :expiry_date, :import_date)`,
			row); err != nil {
			return fmt.Errorf("failed to save batch %d: %w", b.ID, err)
		}
	}

	for _, m := range snap.Medicines {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO medicines (id, name, manufacturer, default_price)
			VALUES (:id, :name, :manufacturer, :default_price)`,
			medicineRow{ID: m.ID, Name: m.Name, Manufacturer: m.Manufacturer, DefaultPrice: m.DefaultPrice}); err != nil {
			return fmt.Errorf("failed to save medicine %d: %w", m.ID, err)
		}
	}

	for _, sp := range snap.Suppliers {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO suppliers (id, name, contact) VALUES (:id, :name, :contact)`,
			supplierRow{ID: sp.ID, Name: sp.Name, Contact: sp.Contact}); err != nil {
			return fmt.Errorf("failed to save supplier %d: %w", sp.ID, err)
		}
	}

	if err := saveLogs(ctx, tx, snap); err != nil {
		return err
	}

	c := snap.Counters
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO counters (id, last_warehouse, last_batch, last_medicine, last_supplier, last_import, last_export, last_transfer, saved_at)
		VALUES (1, :last_warehouse, :last_batch, :last_medicine, :last_supplier, :last_import, :last_export, :last_transfer, :saved_at)`,
		countersRow{
			Warehouse: c.Warehouse,
			Batch:     c.Batch,
			Medicine:  c.Medicine,
			Supplier:  c.Supplier,
			Import:    c.Import,
			Export:    c.Export,
			Transfer:  c.Transfer,
			SavedAt:   formatTime(time.Now()),
		}); err != nil {
		return fmt.Errorf("failed to save counters: %w", err)
	}

	return tx.Commit()
}

func saveLogs(ctx context.Context, tx *sqlx.Tx, snap ledger.Snapshot) error {
	for _, r := range snap.ImportLog {
		row := importRow{
			ID:           r.ID,
			BatchID:      r.BatchID,
			MedicineID:   r.MedicineID,
			MedicineName: r.MedicineName,
			WarehouseID:  r.WarehouseID,
			Quantity:     r.Quantity,
			Price:        r.Price,
			Timestamp:    formatTime(r.Timestamp),
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO import_log
			(id, batch_id, medicine_id, medicine_name, warehouse_id, quantity, price, timestamp)
			VALUES (:id, :batch_id, :medicine_id, :medicine_name, :warehouse_id, :quantity, :price, :timestamp)`,
			row); err != nil {
			return fmt.Errorf("failed to save import record %d: %w", r.ID, err)
		}
	}

	for _, r := range snap.ExportLog {
		allocs, err := json.Marshal(r.Allocations)
		if err != nil {
			return fmt.Errorf("failed to encode allocations of export %d: %w", r.ID, err)
		}
		row := exportRow{
			ID:              r.ID,
			MedicineID:      r.MedicineID,
			MedicineName:    r.MedicineName,
			WarehouseID:     r.WarehouseID,
			Amount:          r.Amount,
			Price:           r.Price,
			AllocationsJSON: string(allocs),
			Timestamp:       formatTime(r.Timestamp),
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO export_log
			(id, medicine_id, medicine_name, warehouse_id, amount, price, allocations_json, timestamp)
			VALUES (:id, :medicine_id, :medicine_name, :warehouse_id, :amount, :price, :allocations_json, :timestamp)`,
			row); err != nil {
			return fmt.Errorf("failed to save export record %d: %w", r.ID, err)
		}
	}

	for _, r := range snap.TransferLog {
		row := transferRow{
			ID:              r.ID,
			BatchID:         r.BatchID,
			NewBatchID:      r.NewBatchID,
			MedicineID:      r.MedicineID,
			MedicineName:    r.MedicineName,
			FromWarehouseID: r.FromWarehouseID,
			ToWarehouseID:   r.ToWarehouseID,
			Quantity:        r.Quantity,
			Timestamp:       formatTime(r.Timestamp),
		}
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO transfer_log
			(id, batch_id, new_batch_id, medicine_id, medicine_name, from_warehouse_id, to_warehouse_id, quantity, timestamp)
			VALUES (:id, :batch_id, :new_batch_id, :medicine_id, :medicine_name, :from_warehouse_id, :to_warehouse_id, :quantity, :timestamp)`,
			row); err != nil {
			return fmt.Errorf("failed to save transfer record %d: %w", r.ID, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load reads the stored snapshot. Collections come back in id order.
func (s *Store) Load(ctx context.Context) (*ledger.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c countersRow
	err := s.db.GetContext(ctx, &c,
		`SELECT last_warehouse, last_batch, last_medicine, last_supplier, last_import, last_export, last_transfer, saved_at
		FROM counters WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	snap := &ledger.Snapshot{Counters: ledger.Counters{
		Warehouse: c.Warehouse,
		Batch:     c.Batch,
		Medicine:  c.Medicine,
		Supplier:  c.Supplier,
		Import:    c.Import,
		Export:    c.Export,
		Transfer:  c.Transfer,
	}}

	var warehouses []warehouseRow
	if err := s.db.SelectContext(ctx, &warehouses, `SELECT id, name, type FROM warehouses ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load warehouses: %w", err)
	}
	for _, w := range warehouses {
		snap.Warehouses = append(snap.Warehouses, ledger.Warehouse{ID: w.ID, Name: w.Name, Type: w.Type})
	}

	var batches []batchRow
	if err := s.db.SelectContext(ctx, &batches, `
		SELECT id, medicine_id, medicine_name, warehouse_id, quantity, unit_price, expiry_date, import_date
		FROM batches ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load batches: %w", err)
	}
	for _, b := range batches {
		expiry, err := parseTime(b.ExpiryDate)
		if err != nil {
			return nil, err
		}
		imported, err := parseTime(b.ImportDate)
		if err != nil {
			return nil, err
		}
		snap.Batches = append(snap.Batches, ledger.StockBatch{
			ID:           b.ID,
			MedicineID:   b.MedicineID,
			MedicineName: b.MedicineName,
			WarehouseID:  b.WarehouseID,
			Quantity:     b.Quantity,
			UnitPrice:    b.UnitPrice,
			ExpiryDate:   expiry,
			ImportDate:   imported,
		})
	}

	var medicines []medicineRow
	if err := s.db.SelectContext(ctx, &medicines,
		`SELECT id, name, manufacturer, default_price FROM medicines ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load medicines: %w", err)
	}
	for _, m := range medicines {
		snap.Medicines = append(snap.Medicines, ledger.Medicine{
			ID: m.ID, Name: m.Name, Manufacturer: m.Manufacturer, DefaultPrice: m.DefaultPrice,
		})
	}

	var suppliers []supplierRow
	if err := s.db.SelectContext(ctx, &suppliers, `SELECT id, name, contact FROM suppliers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	for _, sp := range suppliers {
		snap.Suppliers = append(snap.Suppliers, ledger.Supplier{ID: sp.ID, Name: sp.Name, Contact: sp.Contact})
	}

	if err := s.loadLogs(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) loadLogs(ctx context.Context, snap *ledger.Snapshot) error {
	var imports []importRow
	if err := s.db.SelectContext(ctx, &imports, `
		SELECT id, batch_id, medicine_id, medicine_name, warehouse_id, quantity, price, timestamp
		FROM import_log ORDER BY id`); err != nil {
		return fmt.Errorf("failed to load import log: %w", err)
	}
	for _, r := range imports {
		ts, err := parseTime(r.Timestamp)
		if err != nil {
			return err
		}
		snap.ImportLog = append(snap.ImportLog, ledger.ImportRecord{
			ID:           r.ID,
			BatchID:      r.BatchID,
			MedicineID:   r.MedicineID,
			MedicineName: r.MedicineName,
			WarehouseID:  r.WarehouseID,
			Quantity:     r.Quantity,
			Price:        r.Price,
			Timestamp:    ts,
		})
	}

	var exports []exportRow
	if err := s.db.SelectContext(ctx, &exports, `
		SELECT id, medicine_id, medicine_name, warehouse_id, amount, price, allocations_json, timestamp
		FROM export_log ORDER BY id`); err != nil {
		return fmt.Errorf("failed to load export log: %w", err)
	}
	for _, r := range exports {
		ts, err := parseTime(r.Timestamp)
		if err != nil {
			return err
		}
		var allocs []ledger.Allocation
		if err := json.Unmarshal([]byte(r.AllocationsJSON), &allocs); err != nil {
			return fmt.Errorf("invalid allocations for export %d: %w", r.ID, err)
		}
		snap.ExportLog = append(snap.ExportLog, ledger.ExportRecord{
			ID:           r.ID,
			MedicineID:   r.MedicineID,
			MedicineName: r.MedicineName,
			WarehouseID:  r.WarehouseID,
			Amount:       r.Amount,
			Price:        r.Price,
			Allocations:  allocs,
			Timestamp:    ts,
		})
	}

	var transfers []transferRow
	if err := s.db.SelectContext(ctx, &transfers, `
		SELECT id, batch_id, new_batch_id, medicine_id, medicine_name, from_warehouse_id, to_warehouse_id, quantity, timestamp
		FROM transfer_log ORDER BY id`); err != nil {
		return fmt.Errorf("failed to load transfer log: %w", err)
	}
	for _, r := range transfers {
		ts, err := parseTime(r.Timestamp)
		if err != nil {
			return err
		}
		snap.TransferLog = append(snap.TransferLog, ledger.TransferRecord{
			ID:              r.ID,
			BatchID:         r.BatchID,
			NewBatchID:      r.NewBatchID,
			MedicineID:      r.MedicineID,
			MedicineName:    r.MedicineName,
			FromWarehouseID: r.FromWarehouseID,
			ToWarehouseID:   r.ToWarehouseID,
			Quantity:        r.Quantity,
			Timestamp:       ts,
		})
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// SavedAt reports when the stored snapshot was written. The zero time means
// nothing has been saved.
func (s *Store) SavedAt(ctx context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT saved_at FROM counters WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(raw)
}
