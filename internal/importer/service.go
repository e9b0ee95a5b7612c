package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/card"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Categorizer interface {
	Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error)
}

// Providers holds the labels stamped on transactions of each dialect.
type Providers struct {
	Card string
	Bank string
}

// Label returns the provider label for d.
func (p Providers) Label(d Dialect) string {
	switch d {
	case DialectCard:
		return p.Card
	case DialectBank:
		return p.Bank
	}

	return ""
}

// Batch is a parsed statement awaiting confirmation. Callers hold on to it between preview and
// import; nothing is cached here.
type Batch struct {
	Dialect     Dialect
	Provider    string
	Candidates  []transaction.CreateParams
	Total       int
	Parsed      int
	Skipped     int
	SkippedRows []csvrow.Skipped
	// Balances are the closing balances the statement reports, one per account.
	Balances []balance.Balance
}

type Service struct {
	providers Providers
	card      *card.Converter
	bank      *bank.Converter
	now       func() time.Time
}

func NewService(providers Providers, categorizer Categorizer, logger *slog.Logger) *Service {
	return &Service{
		providers: providers,
		card:      card.NewConverter(providers.Card, categorizer),
		bank:      bank.NewConverter(providers.Bank, categorizer, logger),
		now:       time.Now,
	}
}

// Preview decodes, parses and canonicalizes a statement. DialectUnknown auto-detects the layout.
func (s *Service) Preview(ctx context.Context, r io.Reader, dialect Dialect) (*Batch, error) {
	text, err := encoding.DecodeText(r)
	if err != nil {
		return nil, err
	}

	if dialect == DialectUnknown {
		dialect = DetectFormat(text)
	}

	switch dialect {
	case DialectCard:
		res, err := card.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse card statement: %w", err)
		}

		balanceOf := func(rec card.Record) (string, string) { return "", rec.Balance }

		return canonicalize(ctx, s.providers.Card, dialect, res, s.card.Convert, balanceOf, s.now())
	case DialectBank:
		res, err := bank.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse bank statement: %w", err)
		}

		balanceOf := func(rec bank.Record) (string, string) { return rec.Account, rec.Balance }

		return canonicalize(ctx, s.providers.Bank, dialect, res, s.bank.Convert, balanceOf, s.now())
	}

	return nil, ErrUnknownFormat
}

type convertFunc[T any] func(ctx context.Context, rec T, now time.Time) (transaction.CreateParams, error)

// balanceFunc returns the account label (empty for the provider's only account) and the raw
// balance cell of a record.
type balanceFunc[T any] func(rec T) (account, cell string)

func canonicalize[T any](
	ctx context.Context,
	provider string,
	dialect Dialect,
	res *csvrow.Result[T],
	convert convertFunc[T],
	balanceOf balanceFunc[T],
	now time.Time,
) (*Batch, error) {
	candidates := make([]transaction.CreateParams, 0, len(res.Records))

	var closing closingBalances

	for _, rec := range res.Records {
		p, err := convert(ctx, rec, now)
		if err != nil {
			return nil, fmt.Errorf("canonicalize %s row: %w", dialect, err)
		}

		candidates = append(candidates, p)

		account, cell := balanceOf(rec)
		if account == "" {
			account = provider
		}

		closing.observe(account, cell, p)
	}

	return &Batch{
		Dialect:     dialect,
		Provider:    provider,
		Candidates:  candidates,
		Total:       res.Total,
		Parsed:      res.Parsed(),
		Skipped:     res.Skipped,
		SkippedRows: res.SkippedRows,
		Balances:    closing.list,
	}, nil
}
