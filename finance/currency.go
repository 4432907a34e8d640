package finance

import (
	"regexp"
	"strings"
)

const defaultScale = 2

var currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// Minor-unit scales that differ from the fiat default of 2.
var currencyScales = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"BHD": 3,
	"KWD": 3,
	"OMR": 3,
	"BTC": 8,
	"ETH": 8,
	"SOL": 8,
}

// Scale returns the number of fractional digits used by the currency's
// minor unit.
func Scale(currency string) int32 {
	if s, ok := currencyScales[currency]; ok {
		return s
	}
	return defaultScale
}

// NormalizeCurrency upper-cases and validates a currency code.
func NormalizeCurrency(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if !currencyCodeRegex.MatchString(c) {
		return "", invalid("currency", "%q is not a currency code", code)
	}
	return c, nil
}
