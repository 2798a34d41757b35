// Package currency holds minor-unit-exact money arithmetic and the rules
// for choosing which currency an offer is quoted in.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMinorUnits applies to currencies missing from the table.
const DefaultMinorUnits = 2

// RateDisclosureDigits is the number of fractional digits of a disclosed FX rate.
const RateDisclosureDigits = 5

var minorUnits = map[string]int32{
	"EUR": 2,
	"TRY": 2,
	"USD": 2,
	"GBP": 2,
	"JPY": 0,
	"CHF": 2,
	"SEK": 2,
}

// Normalize trims and upper-cases a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MinorUnits returns the number of minor-unit digits for code.
func MinorUnits(code string) int32 {
	if d, ok := minorUnits[Normalize(code)]; ok {
		return d
	}
	return DefaultMinorUnits
}

// RoundMoney rounds amount to the minor-unit precision of code, half-up.
func RoundMoney(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// ToMajor converts an integer minor-unit amount to a major-unit decimal.
func ToMajor(minor int64, code string) decimal.Decimal {
	return decimal.New(minor, -MinorUnits(code))
}

// ApplyFX converts baseMinor (minor units of baseCode) into minor units of
// displayCode using rate. It also returns the rate rounded to exactly
// RateDisclosureDigits fractional digits, rounded half to even, which is
// what gets disclosed.
func ApplyFX(baseMinor int64, baseCode, displayCode string, rate decimal.Decimal) (int64, decimal.Decimal) {
	baseAmount := ToMajor(baseMinor, baseCode)
	displayAmount := RoundMoney(baseAmount.Mul(rate), displayCode)
	displayMinor := displayAmount.Shift(MinorUnits(displayCode)).IntPart()
	return displayMinor, rate.RoundBank(RateDisclosureDigits)
}
