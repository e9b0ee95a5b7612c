package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type transactionResponse struct {
	ID                   uuid.UUID        `json:"id"`
	Provider             string           `json:"provider"`
	Title                string           `json:"title"`
	Subtitle             string           `json:"subtitle,omitempty"`
	DisplayName          string           `json:"display_name"`
	Amount               int64            `json:"amount"`
	Type                 transaction.Type `json:"type"`
	Currency             string           `json:"currency"`
	CategoryID           string           `json:"category_id"`
	Date                 time.Time        `json:"date"`
	ExcludeFromAnalytics bool             `json:"exclude_from_analytics"`
	IsAnalyticsProtected bool             `json:"is_analytics_protected"`
	MatchedTransferID    *uuid.UUID       `json:"matched_transfer_id,omitempty"`
	ImportBatchID        *uuid.UUID       `json:"import_batch_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:                   tx.ID,
		Provider:             tx.Provider,
		Title:                tx.Title,
		Subtitle:             tx.Subtitle,
		DisplayName:          tx.DisplayName,
		Amount:               tx.Amount,
		Type:                 tx.Type,
		Currency:             tx.Currency,
		CategoryID:           tx.CategoryID,
		Date:                 tx.Date,
		ExcludeFromAnalytics: tx.ExcludeFromAnalytics,
		IsAnalyticsProtected: tx.IsAnalyticsProtected,
		MatchedTransferID:    tx.MatchedTransferID,
		ImportBatchID:        tx.ImportBatchID,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
