package ledger

import (
	"context"
	"strings"
	"time"
)

// =============================================================================
// WAREHOUSE DIRECTORY
// =============================================================================

// CreateWarehouse adds a warehouse with the next sequential id.
func (l *Ledger) CreateWarehouse(ctx context.Context, name string, typ WarehouseType) (Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Warehouse{}, ErrInvalidName
	}
	if !typ.Valid() {
		return Warehouse{}, ErrInvalidWarehouseType
	}

	var w Warehouse
	err := l.mutate(ctx, "create_warehouse", func(s *Snapshot, _ time.Time) error {
		w = Warehouse{ID: s.nextWarehouseID(), Name: name, Type: typ}
		s.Warehouses = append(s.Warehouses, w)
		return nil
	})
	if err != nil {
		return Warehouse{}, err
	}
	l.log.Info().Uint32("warehouse_id", uint32(w.ID)).Str("type", string(w.Type)).Msg("warehouse created")
	return w, nil
}

// UpdateWarehouse edits name and type. Batches keep referring to the same id.
func (l *Ledger) UpdateWarehouse(ctx context.Context, id WarehouseID, name string, typ WarehouseType) (Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Warehouse{}, ErrInvalidName
	}
	if !typ.Valid() {
		return Warehouse{}, ErrInvalidWarehouseType
	}

	var w Warehouse
	err := l.mutate(ctx, "update_warehouse", func(s *Snapshot, _ time.Time) error {
		existing := s.warehouse(id)
		if existing == nil {
			return &NotFoundError{Kind: KindWarehouse, ID: uint32(id)}
		}
		existing.Name = name
		existing.Type = typ
		w = *existing
		return nil
	})
	return w, err
}

// WarehouseExists is the existence check consumed by Import and Transfer.
func (l *Ledger) WarehouseExists(id WarehouseID) bool {
	var ok bool
	l.view(func(s *Snapshot) { ok = s.warehouse(id) != nil })
	return ok
}

func (l *Ledger) Warehouse(id WarehouseID) (Warehouse, error) {
	var (
		w  Warehouse
		ok bool
	)
	l.view(func(s *Snapshot) {
		if found := s.warehouse(id); found != nil {
			w, ok = *found, true
		}
	})
	if !ok {
		return Warehouse{}, &NotFoundError{Kind: KindWarehouse, ID: uint32(id)}
	}
	return w, nil
}

func (l *Ledger) Warehouses() []Warehouse {
	var out []Warehouse
	l.view(func(s *Snapshot) { out = append([]Warehouse{}, s.Warehouses...) })
	sortWarehouses(out)
	return out
}
