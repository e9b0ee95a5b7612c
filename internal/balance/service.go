package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrSnapshotNotFound = errors.New("balance snapshot not found")

// Balance is the last known balance of one of the user's accounts, in minor units.
type Balance struct {
	Account   string    `json:"account"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updated_at"`
}

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=balance
type Repository interface {
	ListBalances(ctx context.Context, userID uuid.UUID) ([]Balance, error)
	ReplaceBalances(ctx context.Context, userID uuid.UUID, balances []Balance) error
	PutBlob(ctx context.Context, userID uuid.UUID, key string, value []byte) error
	// GetBlob returns ErrSnapshotNotFound when key is absent.
	GetBlob(ctx context.Context, userID uuid.UUID, key string) ([]byte, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func snapshotKey(batchID uuid.UUID) string {
	return "balances:" + batchID.String()
}

// Snapshot stores the user's current balances under the import batch id so the import can be
// undone later.
func (s *Service) Snapshot(ctx context.Context, userID, batchID uuid.UUID) error {
	balances, err := s.repo.ListBalances(ctx, userID)
	if err != nil {
		return fmt.Errorf("list balances: %w", err)
	}

	if balances == nil {
		balances = []Balance{}
	}

	blob, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("encode balances: %w", err)
	}

	if err := s.repo.PutBlob(ctx, userID, snapshotKey(batchID), blob); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}

	return nil
}

// Restore puts back the balances captured by Snapshot for batchID.
func (s *Service) Restore(ctx context.Context, userID, batchID uuid.UUID) error {
	blob, err := s.repo.GetBlob(ctx, userID, snapshotKey(batchID))
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	var balances []Balance
	if err := json.Unmarshal(blob, &balances); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if err := s.repo.ReplaceBalances(ctx, userID, balances); err != nil {
		return fmt.Errorf("restore balances: %w", err)
	}

	return nil
}

// Apply records balances reported by an imported statement. A stored balance that is more
// recent than the reported one for the same account is kept.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, reported []Balance) error {
	if len(reported) == 0 {
		return nil
	}

	current, err := s.repo.ListBalances(ctx, userID)
	if err != nil {
		return fmt.Errorf("list balances: %w", err)
	}

	merged := make([]Balance, 0, len(current)+len(reported))
	byAccount := make(map[string]int, len(current)+len(reported))

	for _, b := range current {
		byAccount[b.Account] = len(merged)
		merged = append(merged, b)
	}

	changed := false

	for _, b := range reported {
		i, ok := byAccount[b.Account]
		if !ok {
			byAccount[b.Account] = len(merged)
			merged = append(merged, b)
			changed = true

			continue
		}

		if b.UpdatedAt.Before(merged[i].UpdatedAt) {
			continue
		}

		merged[i] = b
		changed = true
	}

	if !changed {
		return nil
	}

	if err := s.repo.ReplaceBalances(ctx, userID, merged); err != nil {
		return fmt.Errorf("store balances: %w", err)
	}

	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Balance, error) {
	return s.repo.ListBalances(ctx, userID)
}
