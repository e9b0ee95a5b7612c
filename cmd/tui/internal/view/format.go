package view

import (
	"context"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats minor units as a signed amount with its currency.
func FormatAmount(amount int64, typ transaction.Type, currency string) string {
	return transaction.FormatAmount(amount, typ, currency)
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
