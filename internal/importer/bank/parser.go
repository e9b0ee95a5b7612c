// Package bank reads statements exported by retail banks: day-first dates, separate debit and
// credit columns (or one signed amount column) and loosely named headers.
package bank

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
)

// DefaultCurrency is used for rows without a currency column or cell.
const DefaultCurrency = "GBP"

const minFields = 2

var (
	ErrMissingDateColumn    = errors.New("bank statement has no date column")
	ErrMissingAmountColumns = errors.New("bank statement has no amount, debit or credit column")
)

// Record is one parsed data row.
type Record struct {
	Date        string // Raw, usually DD/MM/YYYY
	Description string
	Amount      decimal.Decimal // Signed, major units
	Currency    string
	Balance     string
	Account     string
}

type columns struct {
	date, description          int
	debit, credit, amount      int
	currency, balance, account int
}

// Header aliases, tried in order: exact matches first, then substrings.
var (
	dateAliases        = []string{"date", "transaction date", "posting date", "posted transactions date"}
	descriptionAliases = []string{"description", "details", "narrative", "memo", "transaction description", "reference"}
	debitAliases       = []string{"debit", "paid out", "money out", "withdrawal"}
	creditAliases      = []string{"credit", "paid in", "money in", "deposit"}
	amountAliases      = []string{"amount", "value"}
	currencyAliases    = []string{"currency", "ccy"}
	balanceAliases     = []string{"balance"}
	accountAliases     = []string{"account", "account name", "product"}
)

func resolveColumns(header []string) columns {
	cols := csvrow.NewColumns(header)

	// Debit and credit are claimed before the generic amount column so "Debit Amount" is never
	// taken for the signed amount.
	c := columns{
		date:    cols.Resolve(true, dateAliases...),
		debit:   cols.Resolve(true, debitAliases...),
		credit:  cols.Resolve(true, creditAliases...),
		balance: cols.Resolve(true, balanceAliases...),
	}

	c.amount = cols.Resolve(true, amountAliases...)
	c.description = cols.Resolve(true, descriptionAliases...)
	c.currency = cols.Resolve(true, currencyAliases...)
	c.account = cols.Resolve(true, accountAliases...)

	return c
}

// Parse reads a whole bank statement. Malformed rows are skipped and reported; only a missing
// date column, a missing amount family or a file without data rows fails the parse.
func Parse(text string) (*csvrow.Result[Record], error) {
	lines := csvrow.Lines(csvrow.StripBOM(text))
	if len(lines) < 2 {
		return nil, csvrow.ErrTooFewLines
	}

	cols := resolveColumns(csvrow.Split(lines[0]))
	if cols.date < 0 {
		return nil, ErrMissingDateColumn
	}

	if cols.amount < 0 && cols.debit < 0 && cols.credit < 0 {
		return nil, ErrMissingAmountColumns
	}

	return csvrow.Walk(lines, minFields, cols.record), nil
}

func (c columns) record(row []string) (Record, error) {
	amount, err := c.signedAmount(row)
	if err != nil {
		return Record{}, err
	}

	balance := csvrow.Cell(row, c.balance)
	if balance != "" {
		if _, err := csvrow.ParseAmount(balance); err != nil {
			return Record{}, fmt.Errorf("parse balance %q: %w", balance, err)
		}
	}

	currency := csvrow.Cell(row, c.currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	return Record{
		Date:        csvrow.Cell(row, c.date),
		Description: csvrow.Cell(row, c.description),
		Amount:      amount,
		Currency:    currency,
		Balance:     balance,
		Account:     csvrow.Cell(row, c.account),
	}, nil
}

// signedAmount applies the column precedence: debit, then credit, then the signed amount column.
func (c columns) signedAmount(row []string) (decimal.Decimal, error) {
	if d, ok := nonZero(csvrow.Cell(row, c.debit)); ok {
		return d.Abs().Neg(), nil
	}

	if d, ok := nonZero(csvrow.Cell(row, c.credit)); ok {
		return d.Abs(), nil
	}

	if c.amount < 0 {
		return decimal.Zero, csvrow.ErrInvalidAmount
	}

	d, err := csvrow.ParseAmount(csvrow.Cell(row, c.amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", csvrow.ErrInvalidAmount, err)
	}

	return d, nil
}

func nonZero(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}

	d, err := csvrow.ParseAmount(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}
