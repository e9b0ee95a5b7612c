package bank_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/importer/bank"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type categorizerFunc func(ctx context.Context, title, subtitle string, isExpense bool) (string, error)

func (f categorizerFunc) Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error) {
	return f(ctx, title, subtitle, isExpense)
}

func staticCategory(id string) categorizerFunc {
	return func(context.Context, string, string, bool) (string, error) { return id, nil }
}

func TestParse_DebitCredit(t *testing.T) {
	text := "\ufeffDate,Description,Debit,Credit,Balance\r\n" +
		"05/01/2024,CARD PAYMENT TO TESCO,\"45,00\",,955.00\r\n" +
		"06/01/2024,SALARY,,\"1,500.00\",\"2,455.00\"\r\n" +
		"07/01/2024,ODD ROW,0.00,12.00,2467.00\r\n"

	res, err := bank.Parse(text)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 0, res.Skipped)

	assert.Equal(t, "05/01/2024", res.Records[0].Date)
	assert.True(t, decimal.RequireFromString("-45").Equal(res.Records[0].Amount))
	assert.True(t, decimal.RequireFromString("1500").Equal(res.Records[1].Amount))
	assert.True(t, decimal.RequireFromString("12").Equal(res.Records[2].Amount), "zero debit falls through to credit")
	assert.Equal(t, bank.DefaultCurrency, res.Records[0].Currency)
}

func TestParse_HeaderAliases(t *testing.T) {
	text := "Transaction Date,Transaction Type,Sort Code,Account Number,Transaction Description,Debit Amount,Credit Amount,Balance\n" +
		"12/02/24,DEB,11-22-33,12345678,PAYPAL *EBAY,9.99,,100.00\n"

	res, err := bank.Parse(text)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	assert.Equal(t, "12/02/24", rec.Date)
	assert.Equal(t, "PAYPAL *EBAY", rec.Description)
	assert.Equal(t, "12345678", rec.Account)
	assert.True(t, decimal.RequireFromString("-9.99").Equal(rec.Amount))
}

func TestParse_SignedAmountColumn(t *testing.T) {
	text := "Date,Amount,Currency,Memo\n" +
		"01/03/2024,-20.00,EUR,Dinner\n" +
		"02/03/2024,35.10,,Refund\n"

	res, err := bank.Parse(text)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	assert.True(t, decimal.RequireFromString("-20").Equal(res.Records[0].Amount))
	assert.Equal(t, "EUR", res.Records[0].Currency)
	assert.Equal(t, "Dinner", res.Records[0].Description)
	assert.Equal(t, bank.DefaultCurrency, res.Records[1].Currency)
}

func TestParse_SkippedRows(t *testing.T) {
	text := "Date,Description,Debit,Credit,Balance\n" +
		"05/01/2024,OK,1.00,,10.00\n" +
		"   \n" +
		"lonely\n" +
		"06/01/2024,NO AMOUNT,,,10.00\n" +
		"07/01/2024,BAD BALANCE,1.00,,n/a\n"

	res, err := bank.Parse(text)
	require.NoError(t, err)

	assert.Len(t, res.Records, 1)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, res.Total, res.Parsed()+res.Skipped)
	assert.Equal(t, []csvrow.Skipped{
		{Line: 3, Reason: csvrow.ReasonEmptyLine},
		{Line: 4, Reason: csvrow.ReasonNotEnoughColumns},
		{Line: 5, Reason: csvrow.ReasonInvalidAmount},
		{Line: 6, Reason: csvrow.ReasonParseError},
	}, res.SkippedRows)
}

func TestParse_Fatal(t *testing.T) {
	type testCase struct {
		name    string
		text    string
		wantErr error
	}

	tests := []testCase{
		{name: "SingleLine", text: "Date,Amount", wantErr: csvrow.ErrTooFewLines},
		{name: "NoDate", text: "Description,Amount\nx,1\n", wantErr: bank.ErrMissingDateColumn},
		{name: "NoAmounts", text: "Date,Description,Balance\n01/01/2024,x,1\n", wantErr: bank.ErrMissingAmountColumns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bank.Parse(tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseDate(t *testing.T) {
	type testCase struct {
		name   string
		in     string
		want   time.Time
		wantOK bool
	}

	tests := []testCase{
		{name: "FourDigitYear", in: "05/01/2024", want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "TwoDigitYear", in: "5/1/24", want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), wantOK: true},
		{name: "ISOFallback", in: "2024-01-05 13:00:00", want: time.Date(2024, 1, 5, 13, 0, 0, 0, time.UTC), wantOK: true},
		{name: "ImpossibleDay", in: "31/02/2024"},
		{name: "Garbage", in: "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bank.ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)

			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	type testCase struct {
		name  string
		title string
		want  string
	}

	tests := []testCase{
		{name: "Plain", title: "TESCO STORES", want: "TESCO STORES"},
		{name: "SquarePrefix", title: "SQ *COFFEE HOUSE", want: "COFFEE HOUSE"},
		{name: "CaseInsensitive", title: "sumup *Market Stall", want: "Market Stall"},
		{name: "NestedPrefixes", title: "PAYPAL *SQ *BAKERY", want: "BAKERY"},
		{name: "CardMask", title: "AMAZON **1234", want: "AMAZON"},
		{name: "LongerDigitRunKept", title: "SHOP **123456", want: "SHOP **123456"},
		{name: "TrailingAsterisks", title: "UBER TRIP***", want: "UBER TRIP"},
		{name: "OnlyNoise", title: "SQ *", want: "SQ *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bank.DisplayName(tt.title))
		})
	}
}

func TestConverter_Convert(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var logs bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logs, nil))
	conv := bank.NewConverter("Bank", staticCategory("shopping"), logger)

	type args struct {
		rec bank.Record
	}

	type testCase struct {
		name         string
		args         args
		wantTitle    string
		wantSubtitle string
		wantDisplay  string
		wantType     transaction.Type
		wantAmount   int64
		wantDate     time.Time
		wantWarn     bool
	}

	tests := []testCase{
		{
			name: "DebitRow",
			args: args{rec: bank.Record{
				Date:        "05/01/2024",
				Description: "SQ *COFFEE **4321",
				Amount:      decimal.RequireFromString("-45.00"),
				Currency:    "GBP",
				Account:     "Current Account",
			}},
			wantTitle:    "SQ *COFFEE **4321",
			wantSubtitle: "Current Account",
			wantDisplay:  "COFFEE",
			wantType:     transaction.TypeExpense,
			wantAmount:   4500,
			wantDate:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "BlankDescriptionAndAccount",
			args: args{rec: bank.Record{
				Date:     "06/01/24",
				Amount:   decimal.RequireFromString("10"),
				Currency: "GBP",
			}},
			wantTitle:    "Income",
			wantSubtitle: "Bank",
			wantDisplay:  "Income",
			wantType:     transaction.TypeIncome,
			wantAmount:   1000,
			wantDate:     time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "UnparseableDate",
			args: args{rec: bank.Record{
				Date:        "someday",
				Description: "Rent",
				Amount:      decimal.RequireFromString("-900"),
				Currency:    "GBP",
			}},
			wantTitle:    "Rent",
			wantSubtitle: "Bank",
			wantDisplay:  "Rent",
			wantType:     transaction.TypeExpense,
			wantAmount:   90000,
			wantDate:     now,
			wantWarn:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()

			got, err := conv.Convert(context.Background(), tt.args.rec, now)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, got.Title)
			assert.Equal(t, tt.wantSubtitle, got.Subtitle)
			assert.Equal(t, tt.wantDisplay, got.DisplayName)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantDate, got.Date)
			assert.Equal(t, "shopping", got.CategoryID)
			assert.Equal(t, "Bank", got.Provider)
			assert.Equal(t, tt.wantWarn, logs.Len() > 0)
		})
	}
}

func TestParseAndConvert_DecimalCommaDebit(t *testing.T) {
	res, err := bank.Parse("Date,Description,Debit,Credit,Balance\n05/01/2024,Groceries,\"45,00\",,100\n")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)

	conv := bank.NewConverter("Bank", staticCategory("food"), slog.Default())
	got, err := conv.Convert(context.Background(), res.Records[0], time.Now())
	require.NoError(t, err)

	assert.Equal(t, transaction.TypeExpense, got.Type)
	assert.Equal(t, int64(4500), got.Amount)
}
