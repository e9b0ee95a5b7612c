package importcsv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Previewer interface {
	Preview(ctx context.Context, r io.Reader, dialect importer.Dialect) (*importer.Batch, error)
}

type Reconciler interface {
	RunImport(ctx context.Context, userID uuid.UUID, batch *importer.Batch) (*reconcile.Summary, error)
	UndoImport(ctx context.Context, userID, batchID uuid.UUID) (int64, error)
}

type Handler struct {
	previewer      Previewer
	reconciler     Reconciler
	maxUploadBytes int64
}

func NewHandler(previewer Previewer, reconciler Reconciler, maxUploadBytes int64) *Handler {
	return &Handler{
		previewer:      previewer,
		reconciler:     reconciler,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/preview", h.preview)
	r.Post("/confirm", h.confirm)
	r.Post("/{batchID}/undo", h.undo)
}

type candidateDTO struct {
	Provider    string           `json:"provider"`
	Title       string           `json:"title"`
	Subtitle    string           `json:"subtitle"`
	DisplayName string           `json:"display_name"`
	Amount      int64            `json:"amount"`
	Type        transaction.Type `json:"type"`
	Currency    string           `json:"currency"`
	CategoryID  string           `json:"category_id"`
	Date        time.Time        `json:"date"`
}

type batchDTO struct {
	Dialect     importer.Dialect  `json:"dialect"`
	Provider    string            `json:"provider"`
	Candidates  []candidateDTO    `json:"candidates"`
	Total       int               `json:"total"`
	Parsed      int               `json:"parsed"`
	Skipped     int               `json:"skipped"`
	SkippedRows []csvrow.Skipped  `json:"skipped_rows"`
	Balances    []balance.Balance `json:"balances"`
}

type undoResponse struct {
	BatchID uuid.UUID `json:"batch_id"`
	Deleted int64     `json:"deleted"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	dialect, err := importer.ParseDialect(r.FormValue("dialect"))
	if err != nil {
		http.Error(w, "unknown dialect", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	batch, err := h.previewer.Preview(r.Context(), file, dialect)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, toBatchDTO(batch))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req batchDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)

		return
	}

	batch, err := fromBatchDTO(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.reconciler.RunImport(r.Context(), userID, batch)
	if err != nil {
		slog.Error("failed to import batch", "user_id", userID, "error", err)
		http.Error(w, "import failed", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (h *Handler) undo(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	deleted, err := h.reconciler.UndoImport(r.Context(), userID, batchID)
	if err != nil {
		if errors.Is(err, balance.ErrSnapshotNotFound) {
			http.Error(w, "import batch not found", http.StatusNotFound)
			return
		}

		slog.Error("failed to undo import", "batch_id", batchID, "error", err)
		http.Error(w, "undo failed", http.StatusInternalServerError)

		return
	}

	writeJSON(w, http.StatusOK, undoResponse{BatchID: batchID, Deleted: deleted})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toBatchDTO(b *importer.Batch) batchDTO {
	dto := batchDTO{
		Dialect:     b.Dialect,
		Provider:    b.Provider,
		Candidates:  make([]candidateDTO, 0, len(b.Candidates)),
		Total:       b.Total,
		Parsed:      b.Parsed,
		Skipped:     b.Skipped,
		SkippedRows: b.SkippedRows,
		Balances:    b.Balances,
	}

	for _, c := range b.Candidates {
		dto.Candidates = append(dto.Candidates, candidateDTO{
			Provider:    c.Provider,
			Title:       c.Title,
			Subtitle:    c.Subtitle,
			DisplayName: c.DisplayName,
			Amount:      c.Amount,
			Type:        c.Type,
			Currency:    c.Currency,
			CategoryID:  c.CategoryID,
			Date:        c.Date,
		})
	}

	return dto
}

var errNoDialect = errors.New("dialect is required")

// fromBatchDTO rebuilds a batch sent back by the client. Transfer flags are never taken from the
// request; the import decides them.
func fromBatchDTO(dto batchDTO) (*importer.Batch, error) {
	dialect, err := importer.ParseDialect(string(dto.Dialect))
	if err != nil {
		return nil, err
	}

	if dialect == importer.DialectUnknown {
		return nil, errNoDialect
	}

	batch := &importer.Batch{
		Dialect:     dialect,
		Provider:    dto.Provider,
		Candidates:  make([]transaction.CreateParams, 0, len(dto.Candidates)),
		Total:       dto.Total,
		Parsed:      dto.Parsed,
		Skipped:     dto.Skipped,
		SkippedRows: dto.SkippedRows,
		Balances:    dto.Balances,
	}

	for i, c := range dto.Candidates {
		p := transaction.CreateParams{
			Provider:    c.Provider,
			Title:       c.Title,
			Subtitle:    c.Subtitle,
			DisplayName: c.DisplayName,
			Amount:      c.Amount,
			Type:        c.Type,
			Currency:    c.Currency,
			CategoryID:  c.CategoryID,
			Date:        c.Date,
		}

		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}

		batch.Candidates = append(batch.Candidates, p)
	}

	return batch, nil
}
