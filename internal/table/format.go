package table

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders a monetary value in Brazilian convention:
// "R$ 1.234,56" (dot thousands separator, comma decimal separator).
func FormatBRL(d decimal.Decimal) string {
	return "R$ " + FormatBR(d, 2)
}

// FormatBR renders a decimal with Brazilian separators and the given
// number of fraction digits.
func FormatBR(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}
