package csvrow

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrEmptyAmount = errors.New("empty amount")

var amountNoise = strings.NewReplacer(
	" ", "",
	"\u00a0", "",
	"\u00a3", "",
	"\u20ac", "",
	"$", "",
)

// ParseAmount parses a major-unit amount such as "-12.50", "1,234.56" or "45,00".
//
// Commas are thousands separators, except that a lone comma followed by exactly two digits
// (and no dot anywhere) is read as a decimal comma.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := amountNoise.Replace(strings.TrimSpace(s))
	if clean == "" || clean == "-" || clean == "+" {
		return decimal.Zero, ErrEmptyAmount
	}

	if isDecimalComma(clean) {
		clean = strings.Replace(clean, ",", ".", 1)
	} else {
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}

func isDecimalComma(s string) bool {
	if strings.Contains(s, ".") || strings.Count(s, ",") != 1 {
		return false
	}

	idx := strings.IndexByte(s, ',')

	return len(s)-idx-1 == 2
}

// MinorUnits converts a major-unit amount to non-negative minor units, rounding half away from zero.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Abs().Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
