package transaction

import (
	"github.com/shopspring/decimal"
)

// FormatAmount renders minor units as a signed major-unit amount, e.g. "-12.50 GBP".
func FormatAmount(amount int64, typ Type, currency string) string {
	d := decimal.New(amount, -2)
	if typ == TypeExpense {
		d = d.Neg()
	}

	s := d.StringFixed(2)
	if currency == "" {
		return s
	}

	return s + " " + currency
}
