package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MEDICINE CATALOG
// =============================================================================
//
// Plain keyed collection. Batches copy the medicine name at creation and are
// never joined back against the catalog, so edits and deletes here do not
// touch stock or history.

type MedicineInput struct {
	Name         string
	Manufacturer string
	DefaultPrice decimal.Decimal
}

func (in MedicineInput) validate() (MedicineInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Manufacturer = strings.TrimSpace(in.Manufacturer)
	if in.Name == "" {
		return in, ErrInvalidName
	}
	if in.DefaultPrice.IsNegative() {
		return in, ErrInvalidPrice
	}
	return in, nil
}

func (l *Ledger) CreateMedicine(ctx context.Context, in MedicineInput) (Medicine, error) {
	in, err := in.validate()
	if err != nil {
		return Medicine{}, err
	}
	var m Medicine
	err = l.mutate(ctx, "create_medicine", func(s *Snapshot, _ time.Time) error {
		m = Medicine{
			ID:           s.nextMedicineID(),
			Name:         in.Name,
			Manufacturer: in.Manufacturer,
			DefaultPrice: in.DefaultPrice,
		}
		s.Medicines = append(s.Medicines, m)
		return nil
	})
	return m, err
}

func (l *Ledger) UpdateMedicine(ctx context.Context, id MedicineID, in MedicineInput) (Medicine, error) {
	in, err := in.validate()
	if err != nil {
		return Medicine{}, err
	}
	var m Medicine
	err = l.mutate(ctx, "update_medicine", func(s *Snapshot, _ time.Time) error {
		existing := s.medicine(id)
		if existing == nil {
			return &NotFoundError{Kind: KindMedicine, ID: uint32(id)}
		}
		existing.Name = in.Name
		existing.Manufacturer = in.Manufacturer
		existing.DefaultPrice = in.DefaultPrice
		m = *existing
		return nil
	})
	return m, err
}

// DeleteMedicine removes the catalog entry only; its batches remain.
func (l *Ledger) DeleteMedicine(ctx context.Context, id MedicineID) error {
	return l.mutate(ctx, "delete_medicine", func(s *Snapshot, _ time.Time) error {
		for i, m := range s.Medicines {
			if m.ID == id {
				s.Medicines = append(s.Medicines[:i], s.Medicines[i+1:]...)
				return nil
			}
		}
		return &NotFoundError{Kind: KindMedicine, ID: uint32(id)}
	})
}

func (l *Ledger) Medicine(id MedicineID) (Medicine, error) {
	var (
		m  Medicine
		ok bool
	)
	l.view(func(s *Snapshot) {
		if found := s.medicine(id); found != nil {
			m, ok = *found, true
		}
	})
	if !ok {
		return Medicine{}, &NotFoundError{Kind: KindMedicine, ID: uint32(id)}
	}
	return m, nil
}

func (l *Ledger) Medicines() []Medicine {
	var out []Medicine
	l.view(func(s *Snapshot) { out = append([]Medicine{}, s.Medicines...) })
	return out
}

// =============================================================================
// SUPPLIERS
// =============================================================================

func (l *Ledger) CreateSupplier(ctx context.Context, name, contact string) (Supplier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Supplier{}, ErrInvalidName
	}
	var sp Supplier
	err := l.mutate(ctx, "create_supplier", func(s *Snapshot, _ time.Time) error {
		sp = Supplier{ID: s.nextSupplierID(), Name: name, Contact: strings.TrimSpace(contact)}
		s.Suppliers = append(s.Suppliers, sp)
		return nil
	})
	return sp, err
}

func (l *Ledger) DeleteSupplier(ctx context.Context, id SupplierID) error {
	return l.mutate(ctx, "delete_supplier", func(s *Snapshot, _ time.Time) error {
		for i, sp := range s.Suppliers {
			if sp.ID == id {
				s.Suppliers = append(s.Suppliers[:i], s.Suppliers[i+1:]...)
				return nil
			}
		}
		return &NotFoundError{Kind: KindSupplier, ID: uint32(id)}
	})
}

func (l *Ledger) Suppliers() []Supplier {
	var out []Supplier
	l.view(func(s *Snapshot) { out = append([]Supplier{}, s.Suppliers...) })
	return out
}
