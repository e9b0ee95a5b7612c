package reconcile

import (
	"context"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=deps.go -destination=deps_mock.go -package=reconcile
type Transactions interface {
	ListAll(ctx context.Context, userID uuid.UUID) ([]*transaction.Transaction, error)
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	CreateBatch(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error)
	LinkTransfer(ctx context.Context, id uuid.UUID, link transaction.TransferLink) error
	UnlinkTransfer(ctx context.Context, id uuid.UUID, categoryID string) error
	DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) (int64, error)
}

type Categories interface {
	TransferCategoryID(ctx context.Context) (string, error)
	Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error)
}

type Balances interface {
	Snapshot(ctx context.Context, userID, batchID uuid.UUID) error
	Restore(ctx context.Context, userID, batchID uuid.UUID) error
	Apply(ctx context.Context, userID uuid.UUID, reported []balance.Balance) error
}
