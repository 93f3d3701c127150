package ledger

import "sort"

// =============================================================================
// READ-ONLY ACCESSORS
// =============================================================================
//
// Everything returned here is a copy; callers cannot reach ledger-owned
// state through it.

func (l *Ledger) Batch(id BatchID) (StockBatch, error) {
	var (
		b  StockBatch
		ok bool
	)
	l.view(func(s *Snapshot) {
		if found := s.batch(id); found != nil {
			b, ok = *found, true
		}
	})
	if !ok {
		return StockBatch{}, &NotFoundError{Kind: KindBatch, ID: uint32(id)}
	}
	return b, nil
}

// Batches returns batches matching f in id order.
func (l *Ledger) Batches(f BatchFilter) []StockBatch {
	out := []StockBatch{}
	l.view(func(s *Snapshot) {
		for _, b := range s.Batches {
			if f.match(b) {
				out = append(out, b)
			}
		}
	})
	return out
}

// StockLevels totals in-stock batches per (medicine, warehouse), ordered by
// medicine then warehouse.
func (l *Ledger) StockLevels() []StockLevel {
	type key struct {
		m MedicineID
		w WarehouseID
	}
	levels := map[key]*StockLevel{}
	l.view(func(s *Snapshot) {
		for _, b := range s.Batches {
			if !b.InStock() {
				continue
			}
			k := key{b.MedicineID, b.WarehouseID}
			lvl, ok := levels[k]
			if !ok {
				lvl = &StockLevel{
					MedicineID:    b.MedicineID,
					MedicineName:  b.MedicineName,
					WarehouseID:   b.WarehouseID,
					NearestExpiry: b.ExpiryDate,
				}
				levels[k] = lvl
			}
			lvl.Quantity += uint64(b.Quantity)
			lvl.Batches++
			if b.ExpiryDate.Before(lvl.NearestExpiry) {
				lvl.NearestExpiry = b.ExpiryDate
			}
		}
	})

	out := make([]StockLevel, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, *lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MedicineID != out[j].MedicineID {
			return out[i].MedicineID < out[j].MedicineID
		}
		return out[i].WarehouseID < out[j].WarehouseID
	})
	return out
}

func (l *Ledger) ImportLog() []ImportRecord {
	out := []ImportRecord{}
	l.view(func(s *Snapshot) { out = append(out, s.ImportLog...) })
	return out
}

func (l *Ledger) ExportLog() []ExportRecord {
	out := []ExportRecord{}
	l.view(func(s *Snapshot) {
		for _, r := range s.ExportLog {
			out = append(out, r.clone())
		}
	})
	return out
}

func (l *Ledger) TransferLog() []TransferRecord {
	out := []TransferRecord{}
	l.view(func(s *Snapshot) { out = append(out, s.TransferLog...) })
	return out
}
