package conversation

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Spok95/inventory-bot/internal/domain/inventory"
)

// ValidationError неверный ввод; Msg показывается пользователю, шаг не меняется.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg) }

func invalid(field, msg string) *ValidationError { return &ValidationError{Field: field, Msg: msg} }

func parseBarcode(text string) (string, error) {
	if !inventory.IsBarcode(text) {
		return "", invalid("barcode", "❌ The barcode must contain digits only!")
	}
	return text, nil
}

// parseExpiry понимает кнопки относительных сроков и дату YYYY-MM-DD.
func parseExpiry(text string, today time.Time) (time.Time, error) {
	if days, ok := expiryOffsets[text]; ok {
		return inventory.DateOf(today).AddDate(0, 0, days), nil
	}
	d, err := inventory.ParseDate(text)
	if err != nil {
		return time.Time{}, invalid("expiry", "❌ Invalid date format! Use YYYY-MM-DD")
	}
	return d, nil
}

func parseQuantity(text string) (int, error) {
	q, err := strconv.Atoi(text)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, invalid("quantity", "❌ The quantity is too large!")
		}
		return 0, invalid("quantity", "❌ The quantity must be a whole number!")
	}
	if q <= 0 {
		return 0, invalid("quantity", "❌ The quantity must be greater than zero!")
	}
	if q > math.MaxInt32 {
		return 0, invalid("quantity", "❌ The quantity is too large!")
	}
	return q, nil
}

func checkAvailable(q, available int) error {
	if q > available {
		return invalid("quantity", fmt.Sprintf("❌ The entered quantity (%d) is greater than the available quantity (%d)!", q, available))
	}
	return nil
}

func parseName(text string) (string, error) {
	if text == "" {
		return "", invalid("name", "❌ The name cannot be empty!")
	}
	return text, nil
}

func parseReason(text string) (string, error) {
	if text == "" {
		return "", invalid("reason", "❌ The reason cannot be empty!")
	}
	return text, nil
}
