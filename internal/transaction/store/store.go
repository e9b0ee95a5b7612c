package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTransaction reads a row selected with selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	var typeStr string

	var subtitle, displayName, categoryID sql.NullString

	if err := s.Scan(
		&tx.ID, &tx.UserID, &tx.Provider, &tx.Title, &subtitle, &displayName,
		&tx.Amount, &typeStr, &tx.Currency, &categoryID, &tx.Date,
		&tx.ExcludeFromAnalytics, &tx.IsAnalyticsProtected, &tx.MatchedTransferID, &tx.ImportBatchID,
		&tx.CreatedAt, &tx.UpdatedAt, &tx.DeletedAt,
	); err != nil {
		return nil, err
	}

	tx.Type = transaction.Type(typeStr)
	tx.Subtitle = subtitle.String
	tx.DisplayName = displayName.String
	tx.CategoryID = categoryID.String

	return &tx, nil
}

const selectTransactionColumns = `
	id, user_id, provider, title, subtitle, display_name,
	amount, type, currency, category_id, date,
	exclude_from_analytics, is_analytics_protected, matched_transfer_id, import_batch_id,
	created_at, updated_at, deleted_at
`

const insertTransaction = `
	INSERT INTO transactions (
		user_id, provider, title, subtitle, display_name, amount, type, currency, category_id, date,
		exclude_from_analytics, is_analytics_protected, matched_transfer_id, import_batch_id,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	RETURNING id, created_at, updated_at
`

func insertArgs(tx *transaction.Transaction) []any {
	return []any{
		tx.UserID, tx.Provider, tx.Title, tx.Subtitle, tx.DisplayName, tx.Amount, tx.Type,
		tx.Currency, tx.CategoryID, tx.Date,
		tx.ExcludeFromAnalytics, tx.IsAnalyticsProtected, tx.MatchedTransferID, tx.ImportBatchID,
	}
}

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	err := s.db.QueryRowContext(ctx, insertTransaction, insertArgs(tx)...).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}

	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE id = $1 AND deleted_at IS NULL`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)

		args = append(args, *filter.UserID)
		argIdx++
	}

	if filter.Provider != nil {
		query += fmt.Sprintf(" AND provider = $%d", argIdx)

		args = append(args, *filter.Provider)
		argIdx++
	}

	if filter.ImportBatchID != nil {
		query += fmt.Sprintf(" AND import_batch_id = $%d", argIdx)

		args = append(args, *filter.ImportBatchID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY date ASC, created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET title = $1, subtitle = $2, display_name = $3, category_id = $4,
			exclude_from_analytics = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query,
		tx.Title,
		tx.Subtitle,
		tx.DisplayName,
		tx.CategoryID,
		tx.ExcludeFromAnalytics,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("updating transaction: %w", err)
	}

	return requireAffected(res)
}

// LinkTransfer sets the transfer flags; a nil MatchedTransferID leaves the stored link untouched.
func (s *Store) LinkTransfer(ctx context.Context, id uuid.UUID, link transaction.TransferLink) error {
	query := `
		UPDATE transactions
		SET category_id = $1,
			exclude_from_analytics = TRUE,
			is_analytics_protected = TRUE,
			matched_transfer_id = COALESCE($2, matched_transfer_id),
			updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, link.CategoryID, link.MatchedTransferID, id)
	if err != nil {
		return fmt.Errorf("linking transfer: %w", err)
	}

	return requireAffected(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE id = $1
	`

	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, userID, batchID uuid.UUID) (int64, error) {
	query := `
		UPDATE transactions
		SET deleted_at = NOW()
		WHERE user_id = $1 AND import_batch_id = $2 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, userID, batchID)
	if err != nil {
		return 0, fmt.Errorf("deleting batch: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}

	return n, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting affected rows: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

// UnlinkTransfer clears the transfer flags and link, putting categoryID back.
func (s *Store) UnlinkTransfer(ctx context.Context, id uuid.UUID, categoryID string) error {
	query := `
		UPDATE transactions
		SET category_id = $1,
			exclude_from_analytics = FALSE,
			is_analytics_protected = FALSE,
			matched_transfer_id = NULL,
			updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, categoryID, id)
	if err != nil {
		return fmt.Errorf("unlinking transfer: %w", err)
	}

	return requireAffected(res)
}

func importLockKey(userID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(userID[:])

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a transaction holding an advisory lock for the user, so concurrent imports
// for the same user run their duplicate check and insert one after the other.
func (s *Store) BeginImport(ctx context.Context, userID uuid.UUID) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(userID)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(
	ctx context.Context,
	userID uuid.UUID,
	params []transaction.CreateParams,
) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	keySet := make(map[transaction.Key]struct{}, len(params))
	for _, p := range params {
		keySet[p.Key()] = struct{}{}
	}

	// Keys compare UTC calendar days, so widen the range to whole days.
	minDate, maxDate := transaction.DateRange(params)
	from := minDate.UTC().Truncate(24 * time.Hour)
	to := maxDate.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND date >= $2 AND date < $3 AND deleted_at IS NULL`

	rows, err := itx.tx.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if _, ok := keySet[tx.Key()]; ok {
			duplicates = append(duplicates, tx)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicates: %w", err)
	}

	return duplicates, nil
}

func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	stmt, err := itx.tx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		err := stmt.QueryRowContext(ctx, insertArgs(tx)...).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
		if err != nil {
			return fmt.Errorf("creating transaction: %w", err)
		}
	}

	return nil
}
