package shared

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brlPrinter = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL renders an amount as Brazilian currency for human-facing
// descriptions and exports, e.g. "R$ 1.234,56". The digits come from the
// decimal's own string form so large amounts keep every digit.
func FormatBRL(amount decimal.Decimal) string {
	s := amount.Round(2).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}
	units, cents, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(units, 10, 64)
	if err != nil {
		return sign + "R$ " + units + "," + cents
	}
	return brlPrinter.Sprintf("R$ %s%d,%s", sign, n, cents)
}
