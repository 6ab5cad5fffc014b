// Package core provides money parsing and formatting utilities.
//
// Amounts are integers in minor currency units. For the default CLP locale
// the minor unit is the peso itself, so there are no decimals to render.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultLocale         = "es-CL"
	DefaultCurrencySymbol = "$"
)

// Formatter renders amounts with a fixed locale convention: locale digit
// grouping, a currency symbol prefix and zero decimals.
type Formatter struct {
	tag    language.Tag
	symbol string
}

// NewFormatter builds a Formatter for a BCP 47 locale tag such as "es-CL".
func NewFormatter(locale, symbol string) (Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return Formatter{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	return Formatter{tag: tag, symbol: symbol}, nil
}

var defaultFormatter = Formatter{tag: language.MustParse(DefaultLocale), symbol: DefaultCurrencySymbol}

// DefaultFormatter returns the es-CL / "$" formatter.
func DefaultFormatter() Formatter {
	return defaultFormatter
}

// Format renders amount, e.g. 1234567 -> "$1.234.567" for es-CL.
func (f Formatter) Format(amount int64) string {
	neg := amount < 0
	abs := uint64(amount)
	if neg {
		abs = uint64(-(amount + 1)) + 1
	}
	s := f.symbol + message.NewPrinter(f.tag).Sprintf("%d", abs)
	if neg {
		return "-" + s
	}
	return s
}

// FormatCurrency formats amount with the default formatter.
func FormatCurrency(amount int64) string {
	return defaultFormatter.Format(amount)
}

// ParseCurrencyInput keeps only digits and '-' from text and parses the
// result. Anything unparseable, including empty input, yields 0.
//
// Examples:
//
//	ParseCurrencyInput("$1.234.567") -> 1234567
//	ParseCurrencyInput("-$500")      -> -500
//	ParseCurrencyInput("abc")        -> 0
func ParseCurrencyInput(text string) int64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, text)
	if cleaned == "" {
		return 0
	}
	v, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseWholeAmount parses a positive whole amount typed by a user, accepting
// grouping separators and a currency symbol ("$12.500" -> 12500).
func ParseWholeAmount(s string) (int64, error) {
	v := ParseCurrencyInput(s)
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
