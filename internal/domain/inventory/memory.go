package inventory

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore хранит товары и отчёты в памяти процесса. Все операции
// выполняются под одной блокировкой, наружу отдаются копии.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	reports  []DamageReport

	// id товаров и отчётов независимы, как BIGSERIAL у двух таблиц
	nextProductID int64
	nextReportID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]Product)}
}

func (s *MemoryStore) CreateProduct(_ context.Context, p NewProduct) (*Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.Barcode]; ok {
		return nil, ErrDuplicateBarcode
	}
	s.nextProductID++
	out := Product{
		ID:         s.nextProductID,
		Barcode:    p.Barcode,
		Name:       p.Name,
		ExpiryDate: DateOf(p.ExpiryDate),
		Quantity:   p.Quantity,
		AddedDate:  DateOf(p.AddedDate),
		OwnerID:    p.OwnerID,
	}
	s.products[p.Barcode] = out
	return &out, nil
}

func (s *MemoryStore) FindProductByBarcode(_ context.Context, barcode string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[barcode]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) RecordDamage(_ context.Context, d NewDamage) (*DamageReport, error) {
	if err := validateDamage(d); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := DamageReport{
		Barcode:    d.Barcode,
		Name:       d.Name,
		Quantity:   d.Quantity,
		Reason:     d.Reason,
		ReportDate: DateOf(d.ReportDate),
		OwnerID:    d.OwnerID,
	}
	if p, ok := s.products[d.Barcode]; ok {
		rep.Name = p.Name
		p.Quantity = remaining(p.Quantity, d.Quantity)
		s.products[d.Barcode] = p
	}
	s.nextReportID++
	rep.ID = s.nextReportID
	s.reports = append(s.reports, rep)
	return &rep, nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productsLocked(), nil
}

func (s *MemoryStore) ListDamageReports(_ context.Context) ([]DamageReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reportsLocked(), nil
}

func (s *MemoryStore) ExportSnapshot(_ context.Context) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{Products: s.productsLocked(), DamageReports: s.reportsLocked()}, nil
}

func (s *MemoryStore) productsLocked() []Product {
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		return out[i].Barcode < out[j].Barcode
	})
	return out
}

func (s *MemoryStore) reportsLocked() []DamageReport {
	out := make([]DamageReport, len(s.reports))
	copy(out, s.reports)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ReportDate.Equal(out[j].ReportDate) {
			return out[i].ReportDate.After(out[j].ReportDate)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
