package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// countryCurrency lists the markets the program runs in. It doubles as the
// reverse lookup the payment processor needs when opening a recipient.
var countryCurrency = map[string]string{
	"GB": "GBP",
	"AU": "AUD",
	"CA": "CAD",
	"IE": "EUR",
	"NZ": "NZD",
	"US": "USD",
}

// CurrencyForCountry resolves the ISO 4217 code for an ISO 3166 country.
// Known markets come from the table; other regions fall back to CLDR data.
func CurrencyForCountry(country string) (string, error) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if cur, ok := countryCurrency[country]; ok {
		return cur, nil
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return "", ValidationError("unknown country %q", country)
	}
	unit, ok := currency.FromRegion(region)
	if !ok {
		return "", ValidationError("no currency for country %q", country)
	}
	return unit.String(), nil
}

// CountryForCurrency is the inverse used for payment account creation.
func CountryForCurrency(cur string) (string, error) {
	cur = strings.ToUpper(strings.TrimSpace(cur))
	for country, c := range countryCurrency {
		if c == cur {
			return country, nil
		}
	}
	return "", ValidationError("currency %q is not served by any market", cur)
}

// RoundToMinorUnit rounds an amount to the currency's standard scale
// (2 for USD, 0 for JPY, ...).
func RoundToMinorUnit(amount decimal.Decimal, cur string) (decimal.Decimal, error) {
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse currency %q: %w", cur, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Round(int32(scale)), nil
}

// MinorUnits converts an amount to the integer minor units payment APIs expect.
func MinorUnits(amount decimal.Decimal, cur string) (int64, error) {
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return 0, fmt.Errorf("parse currency %q: %w", cur, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart(), nil
}

// FormatAmount renders an amount at the currency's scale, e.g. "4" for JPY
// and "4.00" for USD. Unknown codes fall back to two decimals.
func FormatAmount(amount decimal.Decimal, cur string) string {
	unit, err := currency.ParseISO(cur)
	if err != nil {
		return amount.StringFixed(2)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return amount.StringFixed(int32(scale))
}
