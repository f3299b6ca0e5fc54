// Package format renders amounts for reports and narratives.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 {
		return "-$" + formatted
	}
	return "$" + formatted
}

// WholeCurrency returns a dollar amount with no cents (e.g., "$1,234").
func WholeCurrency(amount float64) string {
	if amount < 0 {
		return "-$" + printer.Sprintf("%.0f", math.Abs(amount))
	}
	return "$" + printer.Sprintf("%.0f", amount)
}

// Whole returns amount with thousands separators and no decimals (e.g., "-1,234").
func Whole(amount float64) string {
	return printer.Sprintf("%.0f", amount)
}

// Percent renders a ratio (0.25) as a one-decimal percentage ("25.0%").
func Percent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
