package pricefile

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyPrice    = errors.New("price is empty")
	ErrNotANumber    = errors.New("price is not a number")
	ErrNegativePrice = errors.New("price is negative")
)

// ParsePrice reads a price written the way spreadsheets and people write
// them: "1 500,00 ₽", "$1,234.50", "20,000", "1.234.567".
//
// With both separators present the last one is the decimal point. A lone
// comma is a thousands separator when exactly three digits follow it and a
// decimal point otherwise. A lone dot is a decimal point unless it repeats
// or more than three digits follow it.
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyPrice
	}

	negative := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' || r == '−':
			if b.Len() == 0 {
				negative = true
			}
		}
	}

	digits := b.String()
	if strings.IndexFunc(digits, func(r rune) bool { return r >= '0' && r <= '9' }) < 0 {
		return decimal.Zero, ErrNotANumber
	}

	normalized := normalizeSeparators(digits)
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	if negative && !d.IsZero() {
		return decimal.Zero, ErrNegativePrice
	}

	return d, nil
}

func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			return decimalAt(strings.ReplaceAll(s, ".", ""), ",")
		}
		return strings.ReplaceAll(s, ",", "")

	case hasComma:
		after := s[strings.LastIndex(s, ",")+1:]
		if len(after) == 1 || len(after) == 2 {
			return decimalAt(s, ",")
		}
		return strings.ReplaceAll(s, ",", "")

	case hasDot:
		after := s[strings.LastIndex(s, ".")+1:]
		if strings.Count(s, ".") > 1 || len(after) > 3 || len(after) == 0 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}

	return s
}

// decimalAt drops every sep except the last one, which becomes a dot.
func decimalAt(s, sep string) string {
	i := strings.LastIndex(s, sep)
	return strings.ReplaceAll(s[:i], sep, "") + "." + s[i+len(sep):]
}
