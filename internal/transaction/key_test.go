package transaction_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func TestNewKey(t *testing.T) {
	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)

	a := transaction.NewKey("  Coffee   SHOP ", 350, transaction.TypeExpense, morning)
	b := transaction.NewKey("coffee shop", -350, transaction.TypeExpense, evening)

	assert.Equal(t, a, b)
	assert.Equal(t, "coffee shop", a.Title)
	assert.Equal(t, int64(350), a.Amount)
	assert.Equal(t, "2024-03-01", a.Day)

	assert.NotEqual(t, a, transaction.NewKey("coffee shop", 350, transaction.TypeIncome, morning))
	assert.NotEqual(t, a, transaction.NewKey("coffee shop", 351, transaction.TypeExpense, morning))
	assert.NotEqual(t, a, transaction.NewKey("coffee shop", 350, transaction.TypeExpense, morning.AddDate(0, 0, 1)))
}

func TestFilterDuplicates(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	existing := []*transaction.Transaction{
		{ID: uuid.New(), Title: "Coffee", Amount: 350, Type: transaction.TypeExpense, Date: day},
		{ID: uuid.New(), Title: "Salary", Amount: 200000, Type: transaction.TypeIncome, Date: day},
	}

	type testCase struct {
		name      string
		candidate transaction.CreateParams
		wantDupe  bool
	}

	tests := []testCase{
		{
			name:      "SameKey",
			candidate: transaction.CreateParams{Title: "COFFEE", Amount: 350, Type: transaction.TypeExpense, Date: day.Add(9 * time.Hour)},
			wantDupe:  true,
		},
		{
			name:      "OneCentOff",
			candidate: transaction.CreateParams{Title: "Coffee", Amount: 351, Type: transaction.TypeExpense, Date: day},
		},
		{
			name:      "NextDay",
			candidate: transaction.CreateParams{Title: "Coffee", Amount: 350, Type: transaction.TypeExpense, Date: day.AddDate(0, 0, 1)},
		},
		{
			name:      "OppositeType",
			candidate: transaction.CreateParams{Title: "Coffee", Amount: 350, Type: transaction.TypeIncome, Date: day},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, dupes := transaction.FilterDuplicates(existing, []transaction.CreateParams{tt.candidate})
			if tt.wantDupe {
				assert.Empty(t, fresh)
				assert.Len(t, dupes, 1)

				return
			}

			assert.Len(t, fresh, 1)
			assert.Empty(t, dupes)
		})
	}
}

func TestFilterDuplicates_ReimportIsIdempotent(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	candidates := []transaction.CreateParams{
		{Title: "Coffee", Amount: 350, Type: transaction.TypeExpense, Date: day},
		{Title: "Rent", Amount: 90000, Type: transaction.TypeExpense, Date: day.AddDate(0, 0, 2)},
		{Title: "Salary", Amount: 200000, Type: transaction.TypeIncome, Date: day.AddDate(0, 0, 3)},
	}

	fresh, dupes := transaction.FilterDuplicates(nil, candidates)
	assert.Len(t, fresh, 3)
	assert.Empty(t, dupes)

	var persisted []*transaction.Transaction
	for _, p := range fresh {
		persisted = append(persisted, &transaction.Transaction{
			ID: uuid.New(), Title: p.Title, Amount: p.Amount, Type: p.Type, Date: p.Date,
		})
	}

	fresh, dupes = transaction.FilterDuplicates(persisted, candidates)
	assert.Empty(t, fresh)
	assert.Len(t, dupes, 3)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "-12.50 GBP", transaction.FormatAmount(1250, transaction.TypeExpense, "GBP"))
	assert.Equal(t, "1500.00 EUR", transaction.FormatAmount(150000, transaction.TypeIncome, "EUR"))
	assert.Equal(t, "0.05", transaction.FormatAmount(5, transaction.TypeIncome, ""))
}
