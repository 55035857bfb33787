package service

import "github.com/shopspring/decimal"

// Amount-unit discipline: order creation talks to providers in minor units
// (paise), webhook captures arrive in major units (rupees). Everything past
// the intake boundary is major units with two decimals. A mixed comparison
// is a silent 100x bug, so the conversions live in one place.

// MinorToMajor converts paise to rupees.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Shift(-2)
}

// MajorToMinor converts rupees to paise, rounding half-up to a whole paisa.
func MajorToMinor(major decimal.Decimal) int64 {
	return major.Shift(2).Round(0).IntPart()
}
