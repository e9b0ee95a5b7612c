// Package card reads statements exported by card and e-money providers (Revolut-style exports
// with started/completed timestamps, a fee column and a state column).
package card

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
)

// DefaultCurrency is assigned at parse time to rows without a currency cell.
const DefaultCurrency = "GBP"

const minFields = 3

var ErrMissingAmountColumn = errors.New("card statement has no amount column")

// Record is one parsed data row.
type Record struct {
	Type          string
	Product       string
	StartedDate   string
	CompletedDate string
	Description   string
	Amount        decimal.Decimal // Signed, major units
	Fee           decimal.Decimal
	Currency      string
	State         string
	Balance       string
	Payee         string
	Payer         string
}

type columns struct {
	typ, product, started, completed, description int
	amount, fee, currency, state, balance         int
	payee, payer                                  int
}

func resolveColumns(header []string) columns {
	cols := csvrow.NewColumns(header)

	return columns{
		typ:         cols.Resolve(false, "type"),
		product:     cols.Resolve(false, "product"),
		started:     cols.Resolve(false, "started date"),
		completed:   cols.Resolve(false, "completed date"),
		description: cols.Resolve(false, "description"),
		amount:      cols.Resolve(false, "amount"),
		fee:         cols.Resolve(false, "fee"),
		currency:    cols.Resolve(false, "currency"),
		state:       cols.Resolve(false, "state"),
		balance:     cols.Resolve(false, "balance"),
		payee:       cols.Resolve(false, "payee", "to"),
		payer:       cols.Resolve(false, "payer", "from"),
	}
}

// Parse reads a whole card statement. Malformed rows are skipped and reported; only a missing
// amount column or a file without data rows fails the parse.
func Parse(text string) (*csvrow.Result[Record], error) {
	lines := csvrow.Lines(text)
	if len(lines) < 2 {
		return nil, csvrow.ErrTooFewLines
	}

	cols := resolveColumns(csvrow.Split(lines[0]))
	if cols.amount < 0 {
		return nil, ErrMissingAmountColumn
	}

	return csvrow.Walk(lines, minFields, cols.record), nil
}

func (c columns) record(row []string) (Record, error) {
	amount, err := csvrow.ParseAmount(csvrow.Cell(row, c.amount))
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", csvrow.ErrInvalidAmount, err)
	}

	fee := decimal.Zero
	if s := csvrow.Cell(row, c.fee); s != "" {
		if fee, err = csvrow.ParseAmount(s); err != nil {
			return Record{}, fmt.Errorf("parse fee %q: %w", s, err)
		}
	}

	currency := csvrow.Cell(row, c.currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	return Record{
		Type:          csvrow.Cell(row, c.typ),
		Product:       csvrow.Cell(row, c.product),
		StartedDate:   csvrow.Cell(row, c.started),
		CompletedDate: csvrow.Cell(row, c.completed),
		Description:   csvrow.Cell(row, c.description),
		Amount:        amount,
		Fee:           fee,
		Currency:      currency,
		State:         csvrow.Cell(row, c.state),
		Balance:       csvrow.Cell(row, c.balance),
		Payee:         csvrow.Cell(row, c.payee),
		Payer:         csvrow.Cell(row, c.payer),
	}, nil
}
