// Package money holds the decimal policy shared by every amount in the ledger.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Places is the precision of a whole-currency amount.
	Places int32 = 2
	// FractionalPlaces is the precision kept for converted amounts below one cent.
	FractionalPlaces int32 = 4
)

var cent = decimal.New(1, -Places)

// Parse reads a decimal amount from its string form.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Round applies the ledger rounding rule: two places, or four when the
// magnitude is below one cent. Callers round once, after all multiplication.
func Round(v decimal.Decimal) decimal.Decimal {
	if v.Abs().LessThan(cent) {
		return v.Round(FractionalPlaces)
	}
	return v.Round(Places)
}

// Format renders an amount for people: rounded per Round, with two places
// always shown and four kept for sub-cent amounts.
func Format(v decimal.Decimal) string {
	r := Round(v)
	if !r.IsZero() && r.Abs().LessThan(cent) {
		return r.StringFixed(FractionalPlaces)
	}
	return r.StringFixed(Places)
}

// Convert multiplies amount by rate and rounds the product.
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// HasValidPrecision reports whether v carries at most two decimal places.
func HasValidPrecision(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(Places))
}

// Sum adds amounts without intermediate rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
