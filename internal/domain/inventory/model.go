package inventory

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout формат календарной даты (срок годности, даты добавления и отчёта).
const DateLayout = "2006-01-02"

var (
	ErrDuplicateBarcode = errors.New("inventory: barcode already registered")
	ErrNotFound         = errors.New("inventory: product not found")
	// ErrInvalidInput запись не прошла проверку до обращения к хранилищу.
	ErrInvalidInput     = errors.New("inventory: invalid input")
)

// StoreError ошибка хранилища (I/O, соединение, SQL).
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("inventory: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

type Product struct {
	ID         int64
	Barcode    string
	Name       string
	ExpiryDate time.Time
	Quantity   int
	AddedDate  time.Time
	OwnerID    int64
}

type DamageReport struct {
	ID         int64
	Barcode    string
	Name       string
	Quantity   int
	Reason     string
	ReportDate time.Time
	OwnerID    int64
}

// NewProduct входные данные для CreateProduct.
type NewProduct struct {
	Barcode    string
	Name       string
	ExpiryDate time.Time
	Quantity   int
	AddedDate  time.Time
	OwnerID    int64
}

// NewDamage входные данные для RecordDamage. Name используется только
// если товара с таким штрихкодом нет.
type NewDamage struct {
	Barcode    string
	Name       string
	Quantity   int
	Reason     string
	ReportDate time.Time
	OwnerID    int64
}

type Snapshot struct {
	Products      []Product
	DamageReports []DamageReport
}

// DateOf отбрасывает время и зону: полночь UTC того же календарного дня.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate разбирает дату в формате YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}

// remaining остаток после списания; не уходит ниже нуля.
func remaining(stock, damaged int) int {
	if left := stock - damaged; left > 0 {
		return left
	}
	return 0
}

func validateProduct(p NewProduct) error {
	if !IsBarcode(p.Barcode) {
		return fmt.Errorf("%w: barcode %q", ErrInvalidInput, p.Barcode)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: quantity must be >= 0", ErrInvalidInput)
	}
	return nil
}

func validateDamage(d NewDamage) error {
	if d.Barcode == "" {
		return fmt.Errorf("%w: empty barcode", ErrInvalidInput)
	}
	if d.Quantity <= 0 {
		return fmt.Errorf("%w: qty must be > 0", ErrInvalidInput)
	}
	return nil
}

// IsBarcode true, если s непустая и состоит только из цифр 0-9.
func IsBarcode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
