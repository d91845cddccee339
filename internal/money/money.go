// Package money does currency arithmetic in decimal so sums of many
// float amounts round to the minor unit without drift.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the reporting currency.
const MinorUnits = 2

// Round rounds v to the minor unit.
func Round(v float64) float64 {
	return RoundTo(v, MinorUnits)
}

// RoundTo rounds v to the given number of decimal places. Non-finite
// values round to 0.
func RoundTo(v float64, places int32) float64 {
	if !finite(v) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Accumulator sums amounts incrementally.
type Accumulator struct {
	total decimal.Decimal
}

// Add adds an amount. Non-finite values are skipped.
func (a *Accumulator) Add(v float64) {
	if !finite(v) {
		return
	}
	a.total = a.total.Add(decimal.NewFromFloat(v))
}

// Total returns the running total rounded to the minor unit, or 0 once
// the total no longer fits a float64.
func (a *Accumulator) Total() float64 {
	v := a.total.Round(MinorUnits).InexactFloat64()
	if !finite(v) {
		return 0
	}
	return v
}

// Parse reads a loosely formatted amount such as "$1,299.00" or "USD 12".
// Every character other than digits, '.' and '-' is dropped before parsing;
// anything that still does not parse, or overflows float64, yields 0.
func Parse(raw string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	v := d.InexactFloat64()
	if !finite(v) {
		return 0
	}
	return v
}

// Format renders v with exactly MinorUnits decimals.
func Format(v float64) string {
	if !finite(v) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(MinorUnits)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
