package conversation

import (
	"errors"
	"fmt"

	"github.com/Spok95/inventory-bot/internal/dialog"
	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/infra/metrics"
)

func (e *Engine) askDamagedBarcode(t *turn) {
	t.sess.State = dialog.StateDmgBarcode
	t.say("🗑️ Please enter the barcode of the damaged item:", navKeyboard())
}

func (e *Engine) askDamagedName(t *turn) {
	t.sess.State = dialog.StateDmgName
	t.say("📝 This barcode is not registered. Please enter the name of the damaged item:", navKeyboard())
}

func (e *Engine) askDamagedQuantity(t *turn) {
	t.sess.State = dialog.StateDmgQty
	d := t.sess.Damaged
	if d != nil && d.Registered {
		t.say(fmt.Sprintf("🧮 Choose the damaged quantity (available: %d):", d.Available), damagedQuantityKeyboard(true))
		return
	}
	t.say("🧮 Please enter the damaged quantity:", damagedQuantityKeyboard(false))
}

func (e *Engine) askReason(t *turn) {
	t.sess.State = dialog.StateDmgReason
	t.say("📝 Choose the damage reason:", reasonKeyboard())
}

func (e *Engine) onDamagedBarcode(t *turn) {
	d := t.sess.Damaged
	if d == nil {
		e.missingDraft(t)
		return
	}
	barcode, err := parseBarcode(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}

	p, err := e.store.FindProductByBarcode(t.ctx, barcode)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		d.Barcode = barcode
		d.Registered = false
		e.askDamagedName(t)
	case err != nil:
		e.fail(t, "find product", err)
	default:
		d.Barcode = barcode
		d.Name = p.Name
		d.Registered = true
		d.Available = p.Quantity
		e.askDamagedQuantity(t)
	}
}

func (e *Engine) onDamagedName(t *turn) {
	d := t.sess.Damaged
	if d == nil || d.Barcode == "" {
		e.missingDraft(t)
		return
	}
	name, err := parseName(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}
	d.Name = name
	e.askDamagedQuantity(t)
}

func (e *Engine) onDamagedQuantity(t *turn) {
	d := t.sess.Damaged
	if d == nil || d.Barcode == "" {
		e.missingDraft(t)
		return
	}
	if t.text == BtnOtherQty {
		t.say("🧮 Please enter the quantity:", navKeyboard())
		return
	}
	q, err := parseQuantity(t.text)
	if err == nil && d.Registered {
		err = checkAvailable(q, d.Available)
	}
	if err != nil {
		e.reject(t, err)
		return
	}
	d.Quantity = q
	e.askReason(t)
}

func (e *Engine) onDamageReason(t *turn) {
	d := t.sess.Damaged
	if d == nil || d.Barcode == "" || d.Quantity <= 0 {
		e.missingDraft(t)
		return
	}
	if t.text == BtnOtherReason {
		t.say("📝 Please enter the damage reason:", navKeyboard())
		return
	}
	reason, err := parseReason(t.text)
	if err != nil {
		e.reject(t, err)
		return
	}

	rep, err := e.store.RecordDamage(t.ctx, inventory.NewDamage{
		Barcode:    d.Barcode,
		Name:       d.Name,
		Quantity:   d.Quantity,
		Reason:     reason,
		ReportDate: e.today(),
		OwnerID:    t.in.UserID,
	})
	if err != nil {
		metrics.Commits.WithLabelValues("damage", "error").Inc()
		e.fail(t, "record damage", err)
		return
	}

	metrics.Commits.WithLabelValues("damage", "ok").Inc()
	e.log.Info("damage recorded",
		"chat_id", t.in.SessionID,
		"barcode", rep.Barcode,
		"qty", rep.Quantity,
		"registered", d.Registered,
	)
	t.say(fmt.Sprintf("✅ Damaged item recorded successfully!\n\nBarcode: %s\nName: %s\nDamaged quantity: %d\nReason: %s",
		rep.Barcode, rep.Name, rep.Quantity, rep.Reason), nil)
	e.mainMenu(t)
}
