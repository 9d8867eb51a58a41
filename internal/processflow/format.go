package processflow

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders an amount with its ISO currency code and grouping,
// e.g. "KES 12,500.00". Unknown codes are printed as given.
func formatAmount(code string, amount float64) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return amountPrinter.Sprintf("%.2f", amount)
	}
	if unit, err := currency.ParseISO(code); err == nil {
		code = unit.String()
	}
	return amountPrinter.Sprintf("%s %.2f", code, amount)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
