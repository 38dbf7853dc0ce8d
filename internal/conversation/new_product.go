package conversation

import (
	"errors"
	"fmt"

	"github.com/Spok95/inventory-bot/internal/dialog"
	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/infra/metrics"
)

func (e *Engine) askNewBarcode(t *turn) {
	t.sess.State = dialog.StateNewBarcode
	t.say("📦 Please enter the barcode (digits only):", navKeyboard())
}

func (e *Engine) askExpiry(t *turn) {
	t.sess.State = dialog.StateNewExpiry
	t.say("📅 Choose the expiry date:", expiryKeyboard())
}

func (e *Engine) askNewQuantity(t *turn) {
	t.sess.State = dialog.StateNewQty
	t.say("🧮 Choose the quantity:", newQuantityKeyboard())
}

func (e *Engine) askProductName(t *turn) {
	t.sess.State = dialog.StateNewName
	t.say("📝 Please enter the product name:", navKeyboard())
}

func (e *Engine) onNewBarcode(t *turn) {
	d := t.sess.NewProduct
	if d == nil {
		e.missingDraft(t)
		return
	}
	barcode, err := parseBarcode(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}
	d.Barcode = barcode
	e.askExpiry(t)
}

func (e *Engine) onExpiry(t *turn) {
	d := t.sess.NewProduct
	if d == nil {
		e.missingDraft(t)
		return
	}
	if t.text == BtnManualDate {
		t.say("📅 Please enter the expiry date (YYYY-MM-DD):", navKeyboard())
		return
	}
	expiry, err := parseExpiry(t.text, e.today())
	if err != nil {
		e.reject(t, err)
		return
	}
	d.Expiry = expiry
	e.askNewQuantity(t)
}

func (e *Engine) onNewQuantity(t *turn) {
	d := t.sess.NewProduct
	if d == nil {
		e.missingDraft(t)
		return
	}
	if t.text == BtnOtherQty {
		t.say("🧮 Please enter the quantity:", navKeyboard())
		return
	}
	q, err := parseQuantity(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}
	d.Quantity = q
	e.askProductName(t)
}

func (e *Engine) onProductName(t *turn) {
	d := t.sess.NewProduct
	if d == nil || d.Barcode == "" || d.Expiry.IsZero() || d.Quantity <= 0 {
		e.missingDraft(t)
		return
	}
	name, err := parseName(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}

	p, err := e.store.CreateProduct(t.ctx, inventory.NewProduct{
		Barcode:    d.Barcode,
		Name:       name,
		ExpiryDate: d.Expiry,
		Quantity:   d.Quantity,
		AddedDate:  e.today(),
		OwnerID:    t.in.UserID,
	})
	switch {
	case errors.Is(err, inventory.ErrDuplicateBarcode):
		metrics.Commits.WithLabelValues("product", "duplicate").Inc()
		e.log.Info("duplicate barcode", "chat_id", t.in.SessionID, "barcode", d.Barcode)
		t.say("❌ This barcode is already registered!", nil)
		e.mainMenu(t)
		return
	case err != nil:
		metrics.Commits.WithLabelValues("product", "error").Inc()
		e.fail(t, "create product", err)
		return
	}

	metrics.Commits.WithLabelValues("product", "ok").Inc()
	e.log.Info("product created",
		"chat_id", t.in.SessionID,
		"barcode", p.Barcode,
		"qty", p.Quantity,
	)
	t.say(fmt.Sprintf("✅ Product added successfully!\n\nName: %s\nBarcode: %s\nQuantity: %d\nExpiry date: %s",
		p.Name, p.Barcode, p.Quantity, p.ExpiryDate.Format(inventory.DateLayout)), nil)
	e.mainMenu(t)
}
