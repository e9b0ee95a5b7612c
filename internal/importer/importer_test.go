package importer_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/card"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const (
	cardStatement = "Type,Product,Started Date,Completed Date,Description,Amount,Fee,Currency,State,Balance\n" +
		"CARD_PAYMENT,Current,2024-03-01 10:15:30,2024-03-01 12:00:00,Tesco,-12.50,0.00,GBP,COMPLETED,87.50\n" +
		"TRANSFER,Current,2024-03-02 09:00:00,2024-03-02 09:00:00,To pocket GBP Holiday,-50.00,0.00,GBP,COMPLETED,37.50\n" +
		"CARD_PAYMENT,Current\n"

	bankStatement = "Date,Description,Debit,Credit,Balance\n" +
		"05/01/2024,SQ *COFFEE,\"45,00\",,955.00\n" +
		"06/01/2024,SALARY,,1500.00,2455.00\n"
)

type categorizerFunc func(ctx context.Context, title, subtitle string, isExpense bool) (string, error)

func (f categorizerFunc) Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error) {
	return f(ctx, title, subtitle, isExpense)
}

func TestDetectFormat(t *testing.T) {
	type testCase struct {
		name string
		text string
		want importer.Dialect
	}

	tests := []testCase{
		{
			name: "CardHeader",
			text: "Type,Product,Started Date,Completed Date,Description,Amount,Fee,Currency,State,Balance\n",
			want: importer.DialectCard,
		},
		{
			name: "CardStartedCompleted",
			text: "Started Date,Completed Date,Description,Amount\n",
			want: importer.DialectCard,
		},
		{
			name: "CardAmountFeeCurrencyState",
			text: "Amount,Fee,Currency,State\n",
			want: importer.DialectCard,
		},
		{
			name: "BankHeader",
			text: "Date,Description,Debit,Credit,Balance\n",
			want: importer.DialectBank,
		},
		{
			name: "BankPostedTransactions",
			text: "\ufeffPosted Transactions Date,Description,Debit Amount,Credit Amount\n",
			want: importer.DialectBank,
		},
		{
			name: "BankBeforeLooseCardRule",
			text: "Date,Amount,Fee,Currency,State,Debit,Credit,Balance\n",
			want: importer.DialectBank,
		},
		{
			name: "StructuralBank",
			text: "Date,Amount,Ref,Note\n05/01/2024,-3.00,x,y\n",
			want: importer.DialectBank,
		},
		{
			name: "StructuralCard",
			text: "a,b,c,d,e,f,g,h,i,j\n1,2,3,4,5,6,7,8,9,10\n",
			want: importer.DialectCard,
		},
		{
			name: "LeadingBlankLines",
			text: "\n\r\nDate,Amount,Ref,Note\n\n05/01/2024,-3.00,x,y\n",
			want: importer.DialectBank,
		},
		{
			name: "StructuralTooFewColumns",
			text: "Date,Amount\n05/01/2024,-3.00\n",
			want: importer.DialectUnknown,
		},
		{
			name: "Empty",
			text: "",
			want: importer.DialectUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.DetectFormat(tt.text))
		})
	}
}

func TestParseDialect(t *testing.T) {
	d, err := importer.ParseDialect(" Card ")
	require.NoError(t, err)
	assert.Equal(t, importer.DialectCard, d)

	d, err = importer.ParseDialect("")
	require.NoError(t, err)
	assert.Equal(t, importer.DialectUnknown, d)

	_, err = importer.ParseDialect("ofx")
	assert.ErrorIs(t, err, importer.ErrUnknownFormat)
}

func newService(cat categorizerFunc) *importer.Service {
	return importer.NewService(
		importer.Providers{Card: "Revolut", Bank: "Bank"},
		cat,
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
	)
}

func TestService_Preview_Card(t *testing.T) {
	svc := newService(func(context.Context, string, string, bool) (string, error) { return "general", nil })

	batch, err := svc.Preview(context.Background(), strings.NewReader(cardStatement), importer.DialectUnknown)
	require.NoError(t, err)

	assert.Equal(t, importer.DialectCard, batch.Dialect)
	assert.Equal(t, "Revolut", batch.Provider)
	assert.Equal(t, 3, batch.Total)
	assert.Equal(t, 2, batch.Parsed)
	assert.Equal(t, 1, batch.Skipped)
	assert.Equal(t, []csvrow.Skipped{{Line: 4, Reason: csvrow.ReasonNotEnoughColumns}}, batch.SkippedRows)

	require.Len(t, batch.Candidates, 2)
	assert.Equal(t, "Tesco", batch.Candidates[0].Title)
	assert.Equal(t, int64(1250), batch.Candidates[0].Amount)
	assert.Equal(t, transaction.TypeExpense, batch.Candidates[0].Type)
	assert.Equal(t, "Revolut", batch.Candidates[0].Provider)

	assert.Equal(t, []balance.Balance{{
		Account:   "Revolut",
		Amount:    3750,
		Currency:  "GBP",
		UpdatedAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	}}, batch.Balances)
}

func TestService_Preview_Bank(t *testing.T) {
	svc := newService(func(_ context.Context, _ string, _ string, isExpense bool) (string, error) {
		if isExpense {
			return "spend", nil
		}

		return "earn", nil
	})

	batch, err := svc.Preview(context.Background(), strings.NewReader(bankStatement), importer.DialectUnknown)
	require.NoError(t, err)

	assert.Equal(t, importer.DialectBank, batch.Dialect)
	require.Len(t, batch.Candidates, 2)

	assert.Equal(t, "COFFEE", batch.Candidates[0].DisplayName)
	assert.Equal(t, int64(4500), batch.Candidates[0].Amount)
	assert.Equal(t, "spend", batch.Candidates[0].CategoryID)
	assert.Equal(t, "Bank", batch.Candidates[0].Subtitle)
	assert.Equal(t, "earn", batch.Candidates[1].CategoryID)

	require.Len(t, batch.Balances, 1)
	assert.Equal(t, "Bank", batch.Balances[0].Account)
	assert.Equal(t, int64(245500), batch.Balances[0].Amount)
}

func TestService_Preview_BalancesPerAccountLatestRow(t *testing.T) {
	svc := newService(func(context.Context, string, string, bool) (string, error) { return "c", nil })

	statement := "Date,Description,Amount,Balance,Account\n" +
		"07/01/2024,RENT,-800.00,-150.25,Current\n" +
		"06/01/2024,SALARY,1500.00,649.75,Current\n" +
		"06/01/2024,INTEREST,1.20,5001.20,Savings\n" +
		"08/01/2024,FEE,-2.00,,Current\n"

	batch, err := svc.Preview(context.Background(), strings.NewReader(statement), importer.DialectBank)
	require.NoError(t, err)

	require.Len(t, batch.Balances, 2)
	assert.Equal(t, "Current", batch.Balances[0].Account)
	assert.Equal(t, int64(-15025), batch.Balances[0].Amount)
	assert.Equal(t, time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC), batch.Balances[0].UpdatedAt)
	assert.Equal(t, "Savings", batch.Balances[1].Account)
	assert.Equal(t, int64(500120), batch.Balances[1].Amount)
}

func TestService_Preview_ForcedDialect(t *testing.T) {
	svc := newService(func(context.Context, string, string, bool) (string, error) { return "c", nil })

	_, err := svc.Preview(context.Background(), strings.NewReader(bankStatement), importer.DialectCard)
	assert.ErrorIs(t, err, card.ErrMissingAmountColumn)
}

func TestService_Preview_Unknown(t *testing.T) {
	svc := newService(func(context.Context, string, string, bool) (string, error) { return "c", nil })

	_, err := svc.Preview(context.Background(), strings.NewReader("hello\nworld\n"), importer.DialectUnknown)
	assert.ErrorIs(t, err, importer.ErrUnknownFormat)
}

func TestService_Preview_CategorizerFailure(t *testing.T) {
	svc := newService(func(context.Context, string, string, bool) (string, error) {
		return "", errors.New("category store down")
	})

	batch, err := svc.Preview(context.Background(), strings.NewReader(cardStatement), importer.DialectUnknown)
	assert.Error(t, err)
	assert.Nil(t, batch)
}
