// Package core holds the cost record model and the normalizer that turns
// an untyped spreadsheet into cleaned, typed records.
//
// This file contains the locale-aware currency helpers. Source sheets use
// the Brazilian convention: "." groups thousands and "," separates decimals.
package core

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseLocaleDecimal parses a locale-formatted amount such as "1.234,56".
//
// Thousands separators are removed and the decimal comma becomes a dot
// before parsing. NaN and infinities are rejected.
//
// Examples:
//
//	ParseLocaleDecimal("1.234,56") -> 1234.56, nil
//	ParseLocaleDecimal("-45,00")   -> -45, nil
//	ParseLocaleDecimal("N/A")      -> 0, ErrInvalidAmount
func ParseLocaleDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

// CoerceValue turns a Value cell into an amount. Numeric cells pass
// through, strings are parsed with ParseLocaleDecimal. ok is false when the
// cell could not be read; the amount is then 0.
func CoerceValue(v any) (amount float64, ok bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case float32:
		return CoerceValue(float64(x))
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case string:
		f, err := ParseLocaleDecimal(x)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatBRL renders an amount as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	p := message.NewPrinter(language.BrazilianPortuguese)
	return "R$ " + p.Sprintf("%.2f", v)
}
