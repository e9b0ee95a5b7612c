package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type represents the type of transaction (income or expense).
type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

// TypeFromSign returns TypeExpense for negative amounts and TypeIncome otherwise.
func TypeFromSign(negative bool) Type {
	if negative {
		return TypeExpense
	}

	return TypeIncome
}

// Valid reports whether t is income or expense.
func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Opposite returns the other transaction type.
func (t Type) Opposite() Type {
	if t == TypeExpense {
		return TypeIncome
	}

	return TypeExpense
}

// Label is the generic title used for rows without a usable description.
func (t Type) Label() string {
	if t == TypeExpense {
		return "Expense"
	}

	return "Income"
}

var (
	ErrNotFound           = errors.New("transaction not found")
	ErrInvalid            = errors.New("invalid transaction")
	ErrAnalyticsProtected = errors.New("transaction is a linked transfer and must stay excluded from analytics")
)

// Transaction represents a persisted financial transaction.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Provider    string // Source dialect label, e.g. "Revolut"
	Title       string
	Subtitle    string
	DisplayName string
	Amount      int64 // Amount in cents, never negative
	Type        Type
	Currency    string
	CategoryID  string
	Date        time.Time

	ExcludeFromAnalytics bool
	IsAnalyticsProtected bool
	// MatchedTransferID points at the other side of a transfer. The target may have been
	// deleted since; readers must tolerate a dangling id.
	MatchedTransferID *uuid.UUID
	ImportBatchID     *uuid.UUID

	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
}

// IsLinked reports whether the transaction already takes part in a transfer.
func (t *Transaction) IsLinked() bool {
	return t.IsAnalyticsProtected || t.MatchedTransferID != nil
}

// Validate enforces the canonical shape: a non-negative amount, a known type and protected
// transactions staying excluded from analytics.
func (t *Transaction) Validate() error {
	if t.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalid, t.Amount)
	}

	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalid, t.Type)
	}

	if t.IsAnalyticsProtected && !t.ExcludeFromAnalytics {
		return ErrAnalyticsProtected
	}

	return nil
}

// TransferLink is the partial update applied to both sides of a detected transfer.
type TransferLink struct {
	CategoryID        string
	MatchedTransferID *uuid.UUID
}
