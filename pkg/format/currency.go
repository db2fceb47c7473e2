// Package format renders amounts and ratios for human-readable output.
package format

import (
	"math"

	"github.com/iwvelando/rental-analytics/pkg/mathutil"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "€"

var printer = message.NewPrinter(language.English)

// Currency returns an amount with the currency symbol and thousands
// separators (e.g., "-€1,234.56").
func Currency(amount float64) string {
	amount = mathutil.Round(amount)
	formatted := NumericCurrency(math.Abs(amount))
	if amount < 0 {
		return "-" + CurrencySymbol + formatted
	}
	return CurrencySymbol + formatted
}

// NumericCurrency returns an amount with separators and no symbol
// (e.g., "-1,234.56").
func NumericCurrency(amount float64) string {
	amount = mathutil.Round(amount)
	if amount == 0 {
		// Avoid "-0.00".
		amount = 0
	}
	return printer.Sprintf("%.2f", amount)
}

// Percent renders a percentage value (e.g., 7.116 as "7.12%").
func Percent(value float64) string {
	return printer.Sprintf("%.2f%%", value)
}

// Ratio renders a coverage ratio (e.g., 1.2363 as "1.24x").
func Ratio(value float64) string {
	return printer.Sprintf("%.2fx", value)
}
