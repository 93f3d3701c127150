/*
state.go - The ledger aggregate and its serialisable form

PURPOSE:
  Snapshot is the whole ledger state: directory, batches, master data, the
  three movement logs and the id counters. It is both the in-memory
  representation (owned by Ledger, never shared) and the unit the
  SnapshotStore loads and saves wholesale.

ID ALLOCATION:
  Each collection has its own counter holding the last id handed out.
  next = last + 1, starting at 1. Counters are bumped together with the
  insert, never derived from "last element + 1", so drained or deleted
  entries never give their ids back.

  After a load, Reconcile() raises each counter to at least the maximum id
  present, so a document written without counters still allocates safely.

COPY DISCIPLINE:
  Mutations run against Clone() and replace the committed state on success.
  A committed Snapshot is therefore never written to again, which is what
  lets the ledger hand it to the store after releasing its lock.
*/
package ledger

// Counters holds the last id assigned per collection.
type Counters struct {
	Warehouse WarehouseID `json:"warehouse"`
	Batch     BatchID     `json:"batch"`
	Medicine  MedicineID  `json:"medicine"`
	Supplier  SupplierID  `json:"supplier"`
	Import    RecordID    `json:"import"`
	Export    RecordID    `json:"export"`
	Transfer  RecordID    `json:"transfer"`
}

// Snapshot is the serialisable representation of the ledger state.
type Snapshot struct {
	Warehouses  []Warehouse      `json:"warehouses"`
	Batches     []StockBatch     `json:"batches"`
	Medicines   []Medicine       `json:"medicines"`
	Suppliers   []Supplier       `json:"suppliers"`
	ImportLog   []ImportRecord   `json:"import_log"`
	ExportLog   []ExportRecord   `json:"export_log"`
	TransferLog []TransferRecord `json:"transfer_log"`
	Counters    Counters         `json:"counters"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	cp := Snapshot{
		Warehouses:  append([]Warehouse(nil), s.Warehouses...),
		Batches:     append([]StockBatch(nil), s.Batches...),
		Medicines:   append([]Medicine(nil), s.Medicines...),
		Suppliers:   append([]Supplier(nil), s.Suppliers...),
		ImportLog:   append([]ImportRecord(nil), s.ImportLog...),
		ExportLog:   make([]ExportRecord, len(s.ExportLog)),
		TransferLog: append([]TransferRecord(nil), s.TransferLog...),
		Counters:    s.Counters,
	}
	for i, r := range s.ExportLog {
		cp.ExportLog[i] = r.clone()
	}
	return cp
}

// Reconcile raises every counter to at least the largest id in its
// collection.
func (s *Snapshot) Reconcile() {
	for _, w := range s.Warehouses {
		s.Counters.Warehouse = max(s.Counters.Warehouse, w.ID)
	}
	for _, b := range s.Batches {
		s.Counters.Batch = max(s.Counters.Batch, b.ID)
	}
	for _, m := range s.Medicines {
		s.Counters.Medicine = max(s.Counters.Medicine, m.ID)
	}
	for _, sp := range s.Suppliers {
		s.Counters.Supplier = max(s.Counters.Supplier, sp.ID)
	}
	for _, r := range s.ImportLog {
		s.Counters.Import = max(s.Counters.Import, r.ID)
	}
	for _, r := range s.ExportLog {
		s.Counters.Export = max(s.Counters.Export, r.ID)
	}
	for _, r := range s.TransferLog {
		s.Counters.Transfer = max(s.Counters.Transfer, r.ID)
	}
}

// TotalQuantity sums the remaining quantity of a medicine over all batches.
func (s Snapshot) TotalQuantity(medicineID MedicineID) uint64 {
	var total uint64
	for _, b := range s.Batches {
		if b.MedicineID == medicineID {
			total += uint64(b.Quantity)
		}
	}
	return total
}

// =============================================================================
// LOOKUPS AND ALLOCATION (used under the ledger lock)
// =============================================================================

func (s *Snapshot) warehouse(id WarehouseID) *Warehouse {
	for i := range s.Warehouses {
		if s.Warehouses[i].ID == id {
			return &s.Warehouses[i]
		}
	}
	return nil
}

func (s *Snapshot) batch(id BatchID) *StockBatch {
	for i := range s.Batches {
		if s.Batches[i].ID == id {
			return &s.Batches[i]
		}
	}
	return nil
}

func (s *Snapshot) medicine(id MedicineID) *Medicine {
	for i := range s.Medicines {
		if s.Medicines[i].ID == id {
			return &s.Medicines[i]
		}
	}
	return nil
}

func (s *Snapshot) firstPointOfSale() *Warehouse {
	for i := range s.Warehouses {
		if s.Warehouses[i].Type == WarehousePointOfSale {
			return &s.Warehouses[i]
		}
	}
	return nil
}

func (s *Snapshot) nextWarehouseID() WarehouseID {
	s.Counters.Warehouse++
	return s.Counters.Warehouse
}

func (s *Snapshot) nextBatchID() BatchID {
	s.Counters.Batch++
	return s.Counters.Batch
}

func (s *Snapshot) nextMedicineID() MedicineID {
	s.Counters.Medicine++
	return s.Counters.Medicine
}

func (s *Snapshot) nextSupplierID() SupplierID {
	s.Counters.Supplier++
	return s.Counters.Supplier
}

func (s *Snapshot) appendImport(r ImportRecord) ImportRecord {
	s.Counters.Import++
	r.ID = s.Counters.Import
	s.ImportLog = append(s.ImportLog, r)
	return r
}

func (s *Snapshot) appendExport(r ExportRecord) ExportRecord {
	s.Counters.Export++
	r.ID = s.Counters.Export
	s.ExportLog = append(s.ExportLog, r)
	return r
}

func (s *Snapshot) appendTransfer(r TransferRecord) TransferRecord {
	s.Counters.Transfer++
	r.ID = s.Counters.Transfer
	s.TransferLog = append(s.TransferLog, r)
	return r
}
