package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	LinkTransfer(ctx context.Context, id uuid.UUID, link TransferLink) error
	UnlinkTransfer(ctx context.Context, id uuid.UUID, categoryID string) error

	ListTransactions(ctx context.Context, filter ListFilter) ([]*Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) (int64, error)

	// BeginImport opens a database transaction holding the user's import lock.
	BeginImport(ctx context.Context, userID uuid.UUID) (ImportTx, error)
}

type ImportTx interface {
	// FindDuplicates returns the user's stored transactions sharing a Key with any of params.
	FindDuplicates(ctx context.Context, userID uuid.UUID, params []CreateParams) ([]*Transaction, error)
	CreateTransactions(ctx context.Context, txs []*Transaction) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams is the canonical shape every import dialect converges to before persistence.
type CreateParams struct {
	UserID      uuid.UUID
	Provider    string
	Title       string
	Subtitle    string
	DisplayName string
	Amount      int64 // Minor units, never negative; the sign lives in Type
	Type        Type
	Currency    string
	CategoryID  string
	Date        time.Time

	ExcludeFromAnalytics bool
	IsAnalyticsProtected bool
	MatchedTransferID    *uuid.UUID
	ImportBatchID        *uuid.UUID
}

type ListFilter struct {
	UserID        *uuid.UUID
	Provider      *string
	ImportBatchID *uuid.UUID
	StartDate     *time.Time
	EndDate       *time.Time
}

// Validate checks params against the same rules as a stored transaction.
func (p CreateParams) Validate() error {
	return p.toTransaction().Validate()
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	tx := params.toTransaction()
	if err := tx.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, filter)
}

// ListAll returns the user's full transaction history, the baseline for dedup and transfer matching.
func (s *Service) ListAll(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	return s.repo.ListTransactions(ctx, ListFilter{UserID: &userID})
}

func (s *Service) Update(ctx context.Context, tx *Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	return s.repo.UpdateTransaction(ctx, tx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTransaction(ctx, id)
}

// LinkTransfer marks a transaction as one side of a transfer: transfer category, excluded from
// analytics, protected, and (optionally) pointing at its counterpart. It is idempotent.
func (s *Service) LinkTransfer(ctx context.Context, id uuid.UUID, link TransferLink) error {
	if err := s.repo.LinkTransfer(ctx, id, link); err != nil {
		return fmt.Errorf("link transfer %s: %w", id, err)
	}

	return nil
}

// UnlinkTransfer releases one side of a transfer: the link and both analytics flags are
// cleared and categoryID replaces the transfer category.
func (s *Service) UnlinkTransfer(ctx context.Context, id uuid.UUID, categoryID string) error {
	if err := s.repo.UnlinkTransfer(ctx, id, categoryID); err != nil {
		return fmt.Errorf("unlink transfer %s: %w", id, err)
	}

	return nil
}

// DeleteBatch removes every transaction created by one import.
func (s *Service) DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) (int64, error) {
	return s.repo.DeleteBatch(ctx, userID, batchID)
}

// CreateBatch persists params in one database transaction and returns the stored records, in
// input order, with their assigned ids. Under the user's import lock the store is checked again
// for duplicates, so candidates committed by a concurrent import in the meantime are left out of
// the result.
func (s *Service) CreateBatch(ctx context.Context, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	for _, p := range params {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	userID := params[0].UserID

	itx, err := s.repo.BeginImport(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	fresh, _ := FilterDuplicates(duplicates, params)
	if len(fresh) == 0 {
		return nil, nil
	}

	txs := paramsToTransactions(fresh)
	if err := itx.CreateTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("create transactions: %w", err)
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	return txs, nil
}

// DateRange returns the earliest and latest dates of params, which must not be empty.
func DateRange(params []CreateParams) (time.Time, time.Time) {
	minDate := params[0].Date
	maxDate := params[0].Date

	for _, p := range params[1:] {
		if p.Date.Before(minDate) {
			minDate = p.Date
		}

		if p.Date.After(maxDate) {
			maxDate = p.Date
		}
	}

	return minDate, maxDate
}

func (p CreateParams) toTransaction() *Transaction {
	displayName := p.DisplayName
	if displayName == "" {
		displayName = p.Title
	}

	return &Transaction{
		UserID:               p.UserID,
		Provider:             p.Provider,
		Title:                p.Title,
		Subtitle:             p.Subtitle,
		DisplayName:          displayName,
		Amount:               p.Amount,
		Type:                 p.Type,
		Currency:             p.Currency,
		CategoryID:           p.CategoryID,
		Date:                 p.Date,
		ExcludeFromAnalytics: p.ExcludeFromAnalytics,
		IsAnalyticsProtected: p.IsAnalyticsProtected,
		MatchedTransferID:    p.MatchedTransferID,
		ImportBatchID:        p.ImportBatchID,
	}
}

func paramsToTransactions(params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = p.toTransaction()
	}

	return txs
}
