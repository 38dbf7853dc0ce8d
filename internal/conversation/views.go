package conversation

import (
	"fmt"
	"strings"

	"github.com/Spok95/inventory-bot/internal/domain/inventory"
	"github.com/Spok95/inventory-bot/internal/export"
)

const (
	listChunk = 10
	separator = "────────────────────\n"
)

func (e *Engine) listProducts(t *turn) {
	products, err := e.store.ListProducts(t.ctx)
	if err != nil {
		e.fail(t, "list products", err)
		return
	}
	if len(products) == 0 {
		t.say("📭 No items registered yet", nil)
		e.mainMenu(t)
		return
	}
	for i := 0; i < len(products); i += listChunk {
		var sb strings.Builder
		sb.WriteString("📋 Items list:\n\n")
		for _, p := range products[i:min(i+listChunk, len(products))] {
			fmt.Fprintf(&sb, "🏷️ Barcode: %s\n📌 Name: %s\n📅 Expiry date: %s\n🧮 Quantity: %d\n%s",
				p.Barcode, p.Name, p.ExpiryDate.Format(inventory.DateLayout), p.Quantity, separator)
		}
		t.say(sb.String(), nil)
	}
	e.mainMenu(t)
}

func (e *Engine) listDamaged(t *turn) {
	reports, err := e.store.ListDamageReports(t.ctx)
	if err != nil {
		e.fail(t, "list damage reports", err)
		return
	}
	if len(reports) == 0 {
		t.say("📭 No damaged items recorded", nil)
		e.mainMenu(t)
		return
	}
	for i := 0; i < len(reports); i += listChunk {
		var sb strings.Builder
		sb.WriteString("🗑️ Damaged items list:\n\n")
		for _, d := range reports[i:min(i+listChunk, len(reports))] {
			fmt.Fprintf(&sb, "🏷️ Barcode: %s\n📌 Name: %s\n🧮 Damaged quantity: %d\n📝 Reason: %s\n📅 Report date: %s\n%s",
				d.Barcode, d.Name, d.Quantity, d.Reason, d.ReportDate.Format(inventory.DateLayout), separator)
		}
		t.say(sb.String(), nil)
	}
	e.mainMenu(t)
}

// export отправляет .xlsx со всеми товарами и отчётами; файл живёт только в памяти.
func (e *Engine) export(t *turn) {
	snap, err := e.store.ExportSnapshot(t.ctx)
	if err != nil {
		e.fail(t, "export snapshot", err)
		return
	}
	if len(snap.Products) == 0 && len(snap.DamageReports) == 0 {
		t.say("📭 No data to export", nil)
		e.mainMenu(t)
		return
	}
	data, err := export.Write(snap)
	if err != nil {
		e.fail(t, "export write", err)
		return
	}
	t.msgs = append(t.msgs, Message{Document: &Document{
		Name:    export.FileName(e.now().In(e.loc)),
		Data:    data,
		Caption: "📤 Inventory data exported successfully",
	}})
	e.log.Info("inventory exported",
		"chat_id", t.in.SessionID,
		"products", len(snap.Products),
		"damage_reports", len(snap.DamageReports),
	)
	e.mainMenu(t)
}
