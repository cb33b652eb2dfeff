package core

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatCount renders a whole number with thousands separators, e.g. 1,234,567.
func FormatCount(v float64) string {
	return numberPrinter.Sprintf("%d", int64(math.Round(v)))
}

func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
