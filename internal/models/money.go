package models

import (
	"math"
	"strconv"
)

// Cents is a monetary amount in hundredths of the currency unit.
// Amounts are summed as integers so totals stay exact.
type Cents int64

// CentsFromFloat rounds a decimal amount to the nearest cent, half away from zero.
func CentsFromFloat(amount float64) Cents {
	return Cents(math.Round(amount * 100))
}

// Float returns the amount as a decimal number for display.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// String formats the amount with exactly two decimal places, e.g. "-12.05".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := v % 100
	s := sign + strconv.FormatInt(v/100, 10) + "."
	if frac < 10 {
		s += "0"
	}
	return s + strconv.FormatInt(frac, 10)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

