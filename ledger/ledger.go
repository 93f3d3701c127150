/*
ledger.go - Batch ledger operations

PURPOSE:
  The Ledger is the single owner of all stock state. Every batch and every
  movement record is created here, through Import, Transfer and Sell.

CRITICAL INVARIANTS:
  1. CONSERVATION: Transfer moves exactly q units from a source batch into a
     new destination batch. Sell removes exactly the sold amount.
  2. ALL-OR-NOTHING: A failing operation leaves every batch untouched.
  3. FEFO: Sales drain the earliest-expiring batch first, ties by batch id.
  4. BATCH BEFORE RECORD: A batch is stored before its movement record is
     appended. Batches are authoritative; the log is audit.

CONCURRENCY:
  One sync.RWMutex covers the whole state. Mutations take the write lock,
  run against a clone and commit the clone on success, so readers (which
  take the read lock and copy out) never observe a half-applied change.

PERSISTENCE:
  After a successful mutation the committed state is handed to the
  SnapshotStore, outside the lock. Saves are ordered by a version counter
  so an older state never overwrites a newer one. A failed save is logged;
  the in-memory mutation stands.

EXAMPLE FLOW:
  1. Import 10 units of Amoxicillin into Hub (batch 1)
  2. Transfer 4 units of batch 1 to Pharmacy: batch 1 = 6, batch 2 = 4
  3. Sell 3 units at Pharmacy: batch 2 = 1, one export record

SEE ALSO:
  - fefo.go: allocation planning
  - state.go: Snapshot and id counters
  - store.go: SnapshotStore
*/
package ledger

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	mu      sync.RWMutex
	state   Snapshot
	version uint64

	saveMu   sync.Mutex
	savedVer uint64
	store    SnapshotStore
	clock    Clock
	log      zerolog.Logger
}

type Option func(*Ledger)

func WithClock(c Clock) Option { return func(l *Ledger) { l.clock = c } }

func WithLogger(log zerolog.Logger) Option { return func(l *Ledger) { l.log = log } }

func WithStore(s SnapshotStore) Option { return func(l *Ledger) { l.store = s } }

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		clock: SystemClock{},
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open creates a ledger backed by store and loads its last snapshot.
// A missing or unreadable snapshot yields an empty ledger, never an error.
func Open(ctx context.Context, store SnapshotStore, opts ...Option) *Ledger {
	l := New(append(opts, WithStore(store))...)
	if store == nil {
		return l
	}

	snap, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		l.log.Info().Msg("no snapshot found, starting with an empty ledger")
		return l
	case err != nil:
		l.log.Warn().Err(err).Msg("snapshot unreadable, starting with an empty ledger")
		return l
	case snap == nil:
		return l
	}

	state := snap.Clone()
	state.Reconcile()
	l.state = state
	l.log.Info().
		Int("warehouses", len(state.Warehouses)).
		Int("batches", len(state.Batches)).
		Msg("ledger loaded from snapshot")
	return l
}

// mutate runs fn against a working copy under the write lock and commits it
// only if fn succeeds.
func (l *Ledger) mutate(ctx context.Context, op string, fn func(s *Snapshot, now time.Time) error) error {
	l.mu.Lock()
	work := l.state.Clone()
	if err := fn(&work, l.clock.Now()); err != nil {
		l.mu.Unlock()
		l.log.Debug().Str("op", op).Err(err).Msg("ledger operation rejected")
		return err
	}
	l.state = work
	l.version++
	ver := l.version
	l.mu.Unlock()

	l.persist(ctx, op, ver, work)
	return nil
}

// view runs fn under the read lock. fn must copy anything it returns.
func (l *Ledger) view(fn func(s *Snapshot)) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	fn(&l.state)
}

func (l *Ledger) persist(ctx context.Context, op string, ver uint64, snap Snapshot) {
	if l.store == nil {
		return
	}
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if ver <= l.savedVer {
		return
	}
	// Already committed: save even if the caller has gone away.
	if err := l.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		l.log.Error().Err(err).Str("op", op).Uint64("version", ver).Msg("failed to save snapshot")
		return
	}
	l.savedVer = ver
}

// Now reads the ledger clock.
func (l *Ledger) Now() time.Time { return l.clock.Now() }

// Snapshot returns a deep copy of the committed state.
func (l *Ledger) Snapshot() Snapshot {
	var cp Snapshot
	l.view(func(s *Snapshot) { cp = s.Clone() })
	return cp
}

// Reset empties the ledger. Id counters are kept so ids are never reused.
func (l *Ledger) Reset(ctx context.Context) error {
	return l.mutate(ctx, "reset", func(s *Snapshot, _ time.Time) error {
		*s = Snapshot{Counters: s.Counters}
		return nil
	})
}

// =============================================================================
// IMPORT
// =============================================================================

type ImportInput struct {
	MedicineID MedicineID
	// MedicineName may be left empty when the medicine is in the catalog.
	MedicineName string
	WarehouseID  WarehouseID
	Quantity     uint32
	UnitPrice    decimal.Decimal
	ExpiryDate   time.Time
}

// Import creates a new batch and appends an Import record.
func (l *Ledger) Import(ctx context.Context, in ImportInput) (BatchID, error) {
	if in.Quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	if !in.UnitPrice.IsPositive() {
		return 0, ErrInvalidPrice
	}
	if in.ExpiryDate.IsZero() {
		return 0, ErrInvalidTimestamp
	}

	var id BatchID
	err := l.mutate(ctx, "import", func(s *Snapshot, now time.Time) error {
		if s.warehouse(in.WarehouseID) == nil {
			return &NotFoundError{Kind: KindWarehouse, ID: uint32(in.WarehouseID)}
		}
		name := strings.TrimSpace(in.MedicineName)
		if name == "" {
			m := s.medicine(in.MedicineID)
			if m == nil {
				return &NotFoundError{Kind: KindMedicine, ID: uint32(in.MedicineID)}
			}
			name = m.Name
		}

		batch := StockBatch{
			ID:           s.nextBatchID(),
			MedicineID:   in.MedicineID,
			MedicineName: name,
			WarehouseID:  in.WarehouseID,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			ExpiryDate:   in.ExpiryDate,
			ImportDate:   now,
		}
		s.Batches = append(s.Batches, batch)
		s.appendImport(ImportRecord{
			BatchID:      batch.ID,
			MedicineID:   batch.MedicineID,
			MedicineName: batch.MedicineName,
			WarehouseID:  batch.WarehouseID,
			Quantity:     batch.Quantity,
			Price:        batch.UnitPrice,
			Timestamp:    now,
		})
		id = batch.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.log.Info().
		Uint32("batch_id", uint32(id)).
		Uint32("medicine_id", uint32(in.MedicineID)).
		Uint32("warehouse_id", uint32(in.WarehouseID)).
		Uint32("quantity", in.Quantity).
		Msg("batch imported")
	return id, nil
}

// =============================================================================
// TRANSFER
// =============================================================================

type TransferInput struct {
	BatchID       BatchID
	ToWarehouseID WarehouseID
	Quantity      uint32
}

// Transfer splits quantity off a batch into a new batch at the destination.
// It never merges into an existing destination batch: each transfer is its
// own lot, traceable to its source through the Transfer record.
func (l *Ledger) Transfer(ctx context.Context, in TransferInput) (BatchID, error) {
	if in.Quantity == 0 {
		return 0, ErrInvalidQuantity
	}

	var newID BatchID
	var from WarehouseID
	err := l.mutate(ctx, "transfer", func(s *Snapshot, now time.Time) error {
		src := s.batch(in.BatchID)
		if src == nil {
			return &NotFoundError{Kind: KindBatch, ID: uint32(in.BatchID)}
		}
		if s.warehouse(in.ToWarehouseID) == nil {
			return &NotFoundError{Kind: KindWarehouse, ID: uint32(in.ToWarehouseID)}
		}
		if src.WarehouseID == in.ToWarehouseID {
			return ErrSameWarehouse
		}
		if in.Quantity > src.Quantity {
			return &InsufficientQuantityError{
				BatchID:   src.ID,
				Requested: in.Quantity,
				Available: src.Quantity,
			}
		}

		src.Quantity -= in.Quantity
		dst := StockBatch{
			ID:           s.nextBatchID(),
			MedicineID:   src.MedicineID,
			MedicineName: src.MedicineName,
			WarehouseID:  in.ToWarehouseID,
			Quantity:     in.Quantity,
			UnitPrice:    src.UnitPrice,
			ExpiryDate:   src.ExpiryDate,
			ImportDate:   now,
		}
		from = src.WarehouseID
		// src points into s.Batches; copy what the record needs before appending.
		record := TransferRecord{
			BatchID:         src.ID,
			NewBatchID:      dst.ID,
			MedicineID:      src.MedicineID,
			MedicineName:    src.MedicineName,
			FromWarehouseID: src.WarehouseID,
			ToWarehouseID:   in.ToWarehouseID,
			Quantity:        in.Quantity,
			Timestamp:       now,
		}
		s.Batches = append(s.Batches, dst)
		s.appendTransfer(record)
		newID = dst.ID
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.log.Info().
		Uint32("batch_id", uint32(in.BatchID)).
		Uint32("new_batch_id", uint32(newID)).
		Uint32("from_warehouse_id", uint32(from)).
		Uint32("to_warehouse_id", uint32(in.ToWarehouseID)).
		Uint32("quantity", in.Quantity).
		Msg("batch transferred")
	return newID, nil
}

// =============================================================================
// SELL (FEFO)
// =============================================================================

type SellInput struct {
	MedicineID MedicineID
	Quantity   uint32
	// WarehouseID selects the point of sale. Zero means the first
	// point-of-sale warehouse in the directory.
	WarehouseID WarehouseID
}

// Sell drains batches of a medicine in a point-of-sale warehouse, earliest
// expiry first, and appends one Export record priced at the quantity-weighted
// average of the drained batches.
func (l *Ledger) Sell(ctx context.Context, in SellInput) (ExportRecord, error) {
	if in.Quantity == 0 {
		return ExportRecord{}, ErrInvalidQuantity
	}

	var rec ExportRecord
	err := l.mutate(ctx, "sell", func(s *Snapshot, now time.Time) error {
		pos, err := resolvePointOfSale(s, in.WarehouseID)
		if err != nil {
			return err
		}

		plan := PlanFEFO(s.Batches, in.MedicineID, pos.ID, in.Quantity)
		if !plan.Complete() {
			return &InsufficientStockError{
				MedicineID:  in.MedicineID,
				WarehouseID: pos.ID,
				Requested:   in.Quantity,
				Available:   uint32(min(plan.Available, uint64(in.Quantity))),
				ShortBy:     plan.ShortBy(),
			}
		}

		var name string
		for _, a := range plan.Allocations {
			b := s.batch(a.BatchID)
			if b == nil || b.Quantity < a.Quantity {
				// PlanFEFO only reads batches from s; this cannot happen.
				panic("ledger: FEFO plan out of sync with batches")
			}
			b.Quantity -= a.Quantity
			if name == "" {
				name = b.MedicineName
			}
		}

		rec = s.appendExport(ExportRecord{
			MedicineID:   in.MedicineID,
			MedicineName: name,
			WarehouseID:  pos.ID,
			Amount:       in.Quantity,
			Price:        plan.WeightedPrice(),
			Allocations:  plan.Allocations,
			Timestamp:    now,
		}).clone()
		return nil
	})
	if err != nil {
		return ExportRecord{}, err
	}

	l.log.Info().
		Uint32("medicine_id", uint32(in.MedicineID)).
		Uint32("warehouse_id", uint32(rec.WarehouseID)).
		Uint32("quantity", in.Quantity).
		Int("batches_drained", len(rec.Allocations)).
		Str("price", rec.Price.String()).
		Msg("stock sold")
	return rec, nil
}

func resolvePointOfSale(s *Snapshot, id WarehouseID) (*Warehouse, error) {
	if id == 0 {
		pos := s.firstPointOfSale()
		if pos == nil {
			return nil, ErrNoPointOfSaleWarehouse
		}
		return pos, nil
	}
	w := s.warehouse(id)
	if w == nil {
		return nil, &NotFoundError{Kind: KindWarehouse, ID: uint32(id)}
	}
	if w.Type != WarehousePointOfSale {
		return nil, ErrNotPointOfSale
	}
	return w, nil
}

// =============================================================================
// EXPIRY QUERY
// =============================================================================

// ExpiryWindow is the result of one expiry query together with the clock
// reading it was evaluated against.
type ExpiryWindow struct {
	Now     time.Time
	Cutoff  time.Time
	Batches []StockBatch
}

// ExpiringWindow returns every in-stock batch, in any warehouse, whose expiry
// is at or before now + days. The boundary is inclusive. Batches are ordered
// by expiry, then id. The clock is read once; Now and Cutoff are the values
// the filter used.
func (l *Ledger) ExpiringWindow(_ context.Context, days int) (ExpiryWindow, error) {
	if days < 0 {
		return ExpiryWindow{}, ErrInvalidQuantity
	}
	now := l.clock.Now()
	w := ExpiryWindow{Now: now, Cutoff: now.AddDate(0, 0, days)}

	l.view(func(s *Snapshot) {
		for _, b := range s.Batches {
			if b.InStock() && !b.ExpiryDate.After(w.Cutoff) {
				w.Batches = append(w.Batches, b)
			}
		}
	})
	sortFEFO(w.Batches)
	return w, nil
}

// ExpiringWithin is ExpiringWindow without the clock reading.
func (l *Ledger) ExpiringWithin(ctx context.Context, days int) ([]StockBatch, error) {
	w, err := l.ExpiringWindow(ctx, days)
	return w.Batches, err
}

// Expired is ExpiringWithin(0): in-stock batches expiring at or before now.
func (l *Ledger) Expired(ctx context.Context) []StockBatch {
	out, _ := l.ExpiringWithin(ctx, 0)
	return out
}

// sortWarehouses keeps listing output stable regardless of insert order.
func sortWarehouses(ws []Warehouse) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].ID < ws[j].ID })
}
