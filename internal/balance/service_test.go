package balance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/balance"
)

func TestService_SnapshotRestore(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := balance.NewMockRepository(ctrl)
	svc := balance.NewService(repo)

	userID := uuid.New()
	batchID := uuid.New()
	key := "balances:" + batchID.String()
	balances := []balance.Balance{
		{Account: "Revolut", Amount: 12050, Currency: "GBP", UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Account: "Bank", Amount: 250000, Currency: "GBP", UpdatedAt: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)},
	}

	var stored []byte

	repo.EXPECT().ListBalances(gomock.Any(), userID).Return(balances, nil)
	repo.EXPECT().
		PutBlob(gomock.Any(), userID, key, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, _ string, value []byte) error {
			stored = value
			return nil
		})

	require.NoError(t, svc.Snapshot(context.Background(), userID, batchID))

	repo.EXPECT().GetBlob(gomock.Any(), userID, key).DoAndReturn(func(context.Context, uuid.UUID, string) ([]byte, error) {
		return stored, nil
	})
	repo.EXPECT().ReplaceBalances(gomock.Any(), userID, balances).Return(nil)

	require.NoError(t, svc.Restore(context.Background(), userID, batchID))
}

func TestService_Snapshot_Errors(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *balance.MockRepository)
	}

	tests := []testCase{
		{
			name: "ListFails",
			setupMock: func(m *balance.MockRepository) {
				m.EXPECT().ListBalances(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))
			},
		},
		{
			name: "PutFails",
			setupMock: func(m *balance.MockRepository) {
				m.EXPECT().ListBalances(gomock.Any(), gomock.Any()).Return(nil, nil)
				m.EXPECT().PutBlob(gomock.Any(), gomock.Any(), gomock.Any(), []byte("[]")).Return(errors.New("db down"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := balance.NewMockRepository(ctrl)
			tt.setupMock(repo)

			assert.Error(t, balance.NewService(repo).Snapshot(context.Background(), uuid.New(), uuid.New()))
		})
	}
}

func TestService_Restore_MissingSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := balance.NewMockRepository(ctrl)
	repo.EXPECT().GetBlob(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, balance.ErrSnapshotNotFound)

	err := balance.NewService(repo).Restore(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, balance.ErrSnapshotNotFound)
}

func TestService_Apply(t *testing.T) {
	march := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

	stored := []balance.Balance{
		{Account: "Revolut", Amount: 12050, Currency: "GBP", UpdatedAt: march(10)},
		{Account: "Bank", Amount: 250000, Currency: "GBP", UpdatedAt: march(1)},
	}

	type testCase struct {
		name     string
		reported []balance.Balance
		want     []balance.Balance
	}

	tests := []testCase{
		{
			name:     "NewerReplaces",
			reported: []balance.Balance{{Account: "Bank", Amount: 199000, Currency: "GBP", UpdatedAt: march(5)}},
			want: []balance.Balance{
				stored[0],
				{Account: "Bank", Amount: 199000, Currency: "GBP", UpdatedAt: march(5)},
			},
		},
		{
			name:     "NewAccountAppended",
			reported: []balance.Balance{{Account: "Savings", Amount: -300, Currency: "GBP", UpdatedAt: march(2)}},
			want: []balance.Balance{
				stored[0],
				stored[1],
				{Account: "Savings", Amount: -300, Currency: "GBP", UpdatedAt: march(2)},
			},
		},
		{
			name:     "OlderIgnored",
			reported: []balance.Balance{{Account: "Revolut", Amount: 1, Currency: "GBP", UpdatedAt: march(3)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			userID := uuid.New()

			repo := balance.NewMockRepository(ctrl)
			repo.EXPECT().ListBalances(gomock.Any(), userID).Return(append([]balance.Balance(nil), stored...), nil)

			if tt.want != nil {
				repo.EXPECT().ReplaceBalances(gomock.Any(), userID, tt.want).Return(nil)
			}

			require.NoError(t, balance.NewService(repo).Apply(context.Background(), userID, tt.reported))
		})
	}
}

func TestService_Apply_Nothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	assert.NoError(t, balance.NewService(balance.NewMockRepository(ctrl)).Apply(context.Background(), uuid.New(), nil))
}

// memoryRepository keeps balances and blobs of a single user in memory.
type memoryRepository struct {
	balances []balance.Balance
	blobs    map[string][]byte
}

func (r *memoryRepository) ListBalances(context.Context, uuid.UUID) ([]balance.Balance, error) {
	return append([]balance.Balance(nil), r.balances...), nil
}

func (r *memoryRepository) ReplaceBalances(_ context.Context, _ uuid.UUID, balances []balance.Balance) error {
	r.balances = append([]balance.Balance(nil), balances...)
	return nil
}

func (r *memoryRepository) PutBlob(_ context.Context, _ uuid.UUID, key string, value []byte) error {
	r.blobs[key] = value
	return nil
}

func (r *memoryRepository) GetBlob(_ context.Context, _ uuid.UUID, key string) ([]byte, error) {
	v, ok := r.blobs[key]
	if !ok {
		return nil, balance.ErrSnapshotNotFound
	}

	return v, nil
}

func TestService_RestoreUndoesApply(t *testing.T) {
	ctx := context.Background()
	userID, batchID := uuid.New(), uuid.New()

	before := []balance.Balance{
		{Account: "Bank", Amount: 250000, Currency: "GBP", UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	repo := &memoryRepository{balances: before, blobs: map[string][]byte{}}
	svc := balance.NewService(repo)

	require.NoError(t, svc.Snapshot(ctx, userID, batchID))
	require.NoError(t, svc.Apply(ctx, userID, []balance.Balance{
		{Account: "Bank", Amount: 170000, Currency: "GBP", UpdatedAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{Account: "Revolut", Amount: 4200, Currency: "GBP", UpdatedAt: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
	}))

	after, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, int64(170000), after[0].Amount)

	require.NoError(t, svc.Restore(ctx, userID, batchID))

	restored, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, before, restored)
}
