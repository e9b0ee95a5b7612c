package card

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// fallbackCurrency fills an empty currency during conversion. It differs from DefaultCurrency
// and existing data depends on both, so they are kept apart.
const fallbackCurrency = "EUR"

const transferLiteral = "transfer"

type Categorizer interface {
	Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error)
}

type Converter struct {
	provider    string
	categorizer Categorizer
}

func NewConverter(provider string, categorizer Categorizer) *Converter {
	return &Converter{provider: provider, categorizer: categorizer}
}

// Convert maps a parsed row to the canonical transaction shape. now is used when neither
// timestamp column can be parsed.
func (c *Converter) Convert(ctx context.Context, rec Record, now time.Time) (transaction.CreateParams, error) {
	typ := transaction.TypeFromSign(rec.Amount.IsNegative())
	title, subtitle := titles(rec, typ)

	categoryID, err := c.categorizer.Resolve(ctx, title, subtitle, typ == transaction.TypeExpense)
	if err != nil {
		return transaction.CreateParams{}, fmt.Errorf("resolve category for %q: %w", title, err)
	}

	currency := rec.Currency
	if currency == "" {
		currency = fallbackCurrency
	}

	return transaction.CreateParams{
		Provider:    c.provider,
		Title:       title,
		Subtitle:    subtitle,
		DisplayName: title,
		Amount:      csvrow.MinorUnits(rec.Amount),
		Type:        typ,
		Currency:    currency,
		CategoryID:  categoryID,
		Date:        recordDate(rec, now),
	}, nil
}

func recordDate(rec Record, now time.Time) time.Time {
	if t, ok := csvrow.ParseTimestamp(rec.StartedDate); ok {
		return t
	}

	if t, ok := csvrow.ParseTimestamp(rec.CompletedDate); ok {
		return t
	}

	return now
}

// titles picks title and subtitle. A real description wins and the counterparty becomes the
// subtitle; a blank description or the bare "Transfer" literal swaps the roles.
func titles(rec Record, typ transaction.Type) (string, string) {
	counterparty := rec.Payer
	if typ == transaction.TypeExpense {
		counterparty = rec.Payee
	}

	if rec.Description != "" && !strings.EqualFold(rec.Description, transferLiteral) {
		return rec.Description, counterparty
	}

	title := counterparty
	if title == "" {
		title = typ.Label()
	}

	subtitle := rec.Description
	if subtitle == "" {
		subtitle = typ.Label()
	}

	return title, subtitle
}
