package conversation

import (
	"strconv"
	"strings"
)

// Подписи кнопок. Транспорт показывает их как reply-клавиатуру,
// пользователь присылает их обратно текстом.
const (
	BtnHome = "🏠 Main menu"
	BtnBack = "🔙 Back"

	BtnAddItem     = "➕ Add new item"
	BtnAddDamaged  = "🗑️ Add damaged item"
	BtnListItems   = "📋 List items"
	BtnListDamaged = "📦 List damaged"
	BtnExport      = "📤 Export data"

	BtnToday      = "Today"
	BtnTomorrow   = "Tomorrow"
	BtnWeek       = "In a week"
	BtnMonth      = "In a month"
	BtnManualDate = "Enter date manually"

	BtnOtherQty    = "Enter other quantity"
	BtnOtherReason = "Enter other reason"
)

var expiryOffsets = map[string]int{
	BtnToday:    0,
	BtnTomorrow: 1,
	BtnWeek:     7,
	BtnMonth:    30,
}

// DamageReasons готовые причины порчи.
var DamageReasons = []string{"Expired", "Damaged in storage", "Damaged in transit", "Manufacturing defect"}

func isHome(text string) bool { return text == BtnHome || strings.EqualFold(text, "home") }

func isBack(text string) bool { return text == BtnBack || strings.EqualFold(text, "back") }

func mainMenuKeyboard() [][]string {
	return [][]string{
		{BtnAddItem, BtnAddDamaged},
		{BtnListItems, BtnListDamaged},
		{BtnExport},
	}
}

func navKeyboard() [][]string {
	return [][]string{{BtnBack, BtnHome}}
}

func expiryKeyboard() [][]string {
	return [][]string{
		{BtnToday, BtnTomorrow},
		{BtnWeek, BtnMonth},
		{BtnManualDate, BtnBack},
		{BtnHome},
	}
}

func quantityKeyboard(quick ...int) [][]string {
	var rows [][]string
	for i := 0; i < len(quick); i += 3 {
		end := min(i+3, len(quick))
		row := make([]string, 0, end-i)
		for _, q := range quick[i:end] {
			row = append(row, strconv.Itoa(q))
		}
		rows = append(rows, row)
	}
	return append(rows, []string{BtnOtherQty, BtnBack}, []string{BtnHome})
}

func newQuantityKeyboard() [][]string { return quantityKeyboard(1, 5, 10, 20, 50, 100) }

func damagedQuantityKeyboard(registered bool) [][]string {
	if registered {
		return quantityKeyboard(1, 2, 5, 10, 20, 50)
	}
	return quantityKeyboard(1, 2, 5, 10)
}

func reasonKeyboard() [][]string {
	return [][]string{
		{DamageReasons[0], DamageReasons[1]},
		{DamageReasons[2], DamageReasons[3]},
		{BtnOtherReason, BtnBack},
		{BtnHome},
	}
}
