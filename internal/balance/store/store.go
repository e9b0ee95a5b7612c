package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/balance"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListBalances(ctx context.Context, userID uuid.UUID) ([]balance.Balance, error) {
	query := `
		SELECT account, amount, currency, updated_at
		FROM account_balances
		WHERE user_id = $1
		ORDER BY account ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing balances: %w", err)
	}
	defer rows.Close()

	var balances []balance.Balance

	for rows.Next() {
		var b balance.Balance
		if err := rows.Scan(&b.Account, &b.Amount, &b.Currency, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}

		balances = append(balances, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating balances: %w", err)
	}

	return balances, nil
}

// ReplaceBalances swaps the user's balances for the given set in one transaction.
func (s *Store) ReplaceBalances(ctx context.Context, userID uuid.UUID, balances []balance.Balance) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM account_balances WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing balances: %w", err)
	}

	insert := `
		INSERT INTO account_balances (user_id, account, amount, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, b := range balances {
		if _, err := dbTx.ExecContext(ctx, insert, userID, b.Account, b.Amount, b.Currency, b.UpdatedAt); err != nil {
			return fmt.Errorf("inserting balance %q: %w", b.Account, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *Store) PutBlob(ctx context.Context, userID uuid.UUID, key string, value []byte) error {
	query := `
		INSERT INTO kv_blobs (user_id, key, value, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, created_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, userID, key, value); err != nil {
		return fmt.Errorf("storing blob: %w", err)
	}

	return nil
}

func (s *Store) GetBlob(ctx context.Context, userID uuid.UUID, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_blobs WHERE user_id = $1 AND key = $2`, userID, key).
		Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, balance.ErrSnapshotNotFound
		}

		return nil, fmt.Errorf("loading blob: %w", err)
	}

	return value, nil
}
