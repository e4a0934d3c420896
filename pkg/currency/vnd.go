// Package currency formats money amounts for display.
package currency

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vietnamese = message.NewPrinter(language.Vietnamese)

// FormatVND renders amount the way the storefront shows prices, e.g. "598.000đ".
// Đồng has no minor unit, so the amount is rounded to a whole number.
func FormatVND(amount decimal.Decimal) string {
	return vietnamese.Sprintf("%d", amount.Round(0).IntPart()) + "đ"
}
