package dialog

import (
	"time"

	"github.com/Spok95/inventory-bot/internal/domain/inventory"
)

type State string

const (
	StateMainMenu State = "main_menu"

	// Новый товар
	StateNewBarcode State = "new:barcode"
	StateNewExpiry  State = "new:expiry" // срок годности
	StateNewQty     State = "new:qty"
	StateNewName    State = "new:name"

	// Порча
	StateDmgBarcode State = "dmg:barcode"
	StateDmgName    State = "dmg:name" // штрихкод не зарегистрирован, спрашиваем название
	StateDmgQty     State = "dmg:qty"
	StateDmgReason  State = "dmg:reason"
)

// Step логический шаг диалога, к которому относится состояние.
type Step string

const (
	StepMainMenu       Step = "MainMenu"
	StepEnterBarcode   Step = "EnterBarcode"
	StepDamagedEntry   Step = "DamagedEntry"
	StepProductDetails Step = "ProductDetails"
	StepDamageDetails  Step = "DamageDetails"
	StepProductName    Step = "ProductName"
)

func (s State) Step() Step {
	switch s {
	case StateNewBarcode:
		return StepEnterBarcode
	case StateDmgBarcode:
		return StepDamagedEntry
	case StateNewExpiry, StateNewQty:
		return StepProductDetails
	case StateDmgQty, StateDmgReason:
		return StepDamageDetails
	case StateNewName, StateDmgName:
		return StepProductName
	default:
		return StepMainMenu
	}
}

// NewProductDraft накопленные поля нового товара.
type NewProductDraft struct {
	Barcode  string
	Expiry   time.Time
	Quantity int
}

// DamagedItemDraft накопленные поля отчёта о порче.
// Registered/Available заполняются по результату поиска штрихкода.
type DamagedItemDraft struct {
	Barcode    string
	Name       string
	Registered bool
	Available  int
	Quantity   int
}

// forgetLookup сбрасывает всё, что зависело от введённого штрихкода.
func (d *DamagedItemDraft) forgetLookup() {
	d.Name = ""
	d.Registered = false
	d.Available = 0
	d.Quantity = 0
}

type Session struct {
	ChatID     int64
	State      State
	NewProduct *NewProductDraft
	Damaged    *DamagedItemDraft
	UpdatedAt  time.Time
}

// Reset очищает черновики и возвращает сессию в главное меню.
func (s *Session) Reset() {
	s.State = StateMainMenu
	s.NewProduct = nil
	s.Damaged = nil
}

// BeginNewProduct начинает сценарий добавления товара.
func (s *Session) BeginNewProduct() *NewProductDraft {
	s.Reset()
	s.NewProduct = &NewProductDraft{}
	s.State = StateNewBarcode
	return s.NewProduct
}

// BeginDamaged начинает сценарий отчёта о порче.
func (s *Session) BeginDamaged() *DamagedItemDraft {
	s.Reset()
	s.Damaged = &DamagedItemDraft{}
	s.State = StateDmgBarcode
	return s.Damaged
}

// BackToDamagedBarcode возвращает к вводу штрихкода порчи, забывая результат поиска.
func (s *Session) BackToDamagedBarcode() {
	if s.Damaged != nil {
		s.Damaged.forgetLookup()
	}
	s.State = StateDmgBarcode
}

// Fields накопленные значения черновика плоской картой, для логов.
func (s Session) Fields() map[string]any {
	f := map[string]any{}
	switch {
	case s.NewProduct != nil:
		d := s.NewProduct
		f["isDamaged"] = false
		if d.Barcode != "" {
			f["barcode"] = d.Barcode
		}
		if !d.Expiry.IsZero() {
			f["expiryDate"] = d.Expiry.Format(inventory.DateLayout)
		}
		if d.Quantity > 0 {
			f["quantity"] = d.Quantity
		}
	case s.Damaged != nil:
		d := s.Damaged
		f["isDamaged"] = true
		if d.Barcode != "" {
			f["barcode"] = d.Barcode
		}
		if d.Name != "" {
			f["productName"] = d.Name
		}
		if d.Registered {
			f["currentQuantity"] = d.Available
		}
		if d.Quantity > 0 {
			f["quantity"] = d.Quantity
		}
	}
	return f
}
