package importcsv_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/balance"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type previewerFunc func(ctx context.Context, r io.Reader, dialect importer.Dialect) (*importer.Batch, error)

func (f previewerFunc) Preview(ctx context.Context, r io.Reader, dialect importer.Dialect) (*importer.Batch, error) {
	return f(ctx, r, dialect)
}

type fakeReconciler struct {
	gotUser  uuid.UUID
	gotBatch *importer.Batch
	summary  *reconcile.Summary
	undoErr  error
	deleted  int64
}

func (f *fakeReconciler) RunImport(_ context.Context, userID uuid.UUID, batch *importer.Batch) (*reconcile.Summary, error) {
	f.gotUser = userID
	f.gotBatch = batch

	return f.summary, nil
}

func (f *fakeReconciler) UndoImport(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return f.deleted, f.undoErr
}

func router(h *importcsv.Handler, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	r.Route("/import", h.Routes)

	return r
}

func uploadRequest(t *testing.T, content, dialect string) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)

	if dialect != "" {
		require.NoError(t, mw.WriteField("dialect", dialect))
	}

	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)

	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/import/preview", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Preview(t *testing.T) {
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var gotDialect importer.Dialect

	previewer := previewerFunc(func(_ context.Context, r io.Reader, dialect importer.Dialect) (*importer.Batch, error) {
		gotDialect = dialect

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "header\nrow\n", string(data))

		return &importer.Batch{
			Dialect:  importer.DialectCard,
			Provider: "Revolut",
			Candidates: []transaction.CreateParams{{
				Provider: "Revolut", Title: "Tesco", DisplayName: "Tesco", Amount: 1250,
				Type: transaction.TypeExpense, Currency: "GBP", CategoryID: "groceries", Date: date,
			}},
			Total:       2,
			Parsed:      1,
			Skipped:     1,
			SkippedRows: []csvrow.Skipped{{Line: 3, Reason: csvrow.ReasonNotEnoughColumns}},
		}, nil
	})

	h := importcsv.NewHandler(previewer, &fakeReconciler{}, 1<<20)
	rec := httptest.NewRecorder()
	router(h, uuid.New()).ServeHTTP(rec, uploadRequest(t, "header\nrow\n", "Card"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, importer.DialectCard, gotDialect)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "card", got["dialect"])
	assert.EqualValues(t, 2, got["total"])
	assert.EqualValues(t, 1, got["skipped"])
	require.Len(t, got["candidates"], 1)
	require.Len(t, got["skipped_rows"], 1)
}

func TestHandler_Preview_Errors(t *testing.T) {
	type testCase struct {
		name       string
		dialect    string
		previewErr error
		wantStatus int
	}

	tests := []testCase{
		{name: "BadDialect", dialect: "pdf", wantStatus: http.StatusBadRequest},
		{name: "UnknownFormat", previewErr: importer.ErrUnknownFormat, wantStatus: http.StatusUnprocessableEntity},
		{name: "TooFewLines", previewErr: csvrow.ErrTooFewLines, wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			previewer := previewerFunc(func(context.Context, io.Reader, importer.Dialect) (*importer.Batch, error) {
				return nil, tt.previewErr
			})

			h := importcsv.NewHandler(previewer, &fakeReconciler{}, 1<<20)
			rec := httptest.NewRecorder()
			router(h, uuid.New()).ServeHTTP(rec, uploadRequest(t, "x", tt.dialect))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_Confirm(t *testing.T) {
	userID := uuid.New()
	batchID := uuid.New()
	rc := &fakeReconciler{summary: &reconcile.Summary{BatchID: batchID, Imported: 1}}

	body := `{
		"dialect": "bank",
		"provider": "Bank",
		"candidates": [{
			"provider": "Bank", "title": "SALARY", "amount": 150000, "type": "income",
			"currency": "GBP", "category_id": "salary", "date": "2024-01-06T00:00:00Z",
			"is_analytics_protected": true
		}],
		"balances": [{"account": "Current", "amount": 245500, "currency": "GBP", "updated_at": "2024-01-06T00:00:00Z"}]
	}`

	h := importcsv.NewHandler(nil, rc, 1<<20)
	rec := httptest.NewRecorder()
	router(h, userID).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import/confirm", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, userID, rc.gotUser)
	require.NotNil(t, rc.gotBatch)
	assert.Equal(t, importer.DialectBank, rc.gotBatch.Dialect)
	require.Len(t, rc.gotBatch.Candidates, 1)
	assert.Equal(t, int64(150000), rc.gotBatch.Candidates[0].Amount)
	assert.False(t, rc.gotBatch.Candidates[0].IsAnalyticsProtected)
	require.Len(t, rc.gotBatch.Balances, 1)
	assert.Equal(t, int64(245500), rc.gotBatch.Balances[0].Amount)

	var got reconcile.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, batchID, got.BatchID)
}

func TestHandler_Confirm_MissingDialect(t *testing.T) {
	h := importcsv.NewHandler(nil, &fakeReconciler{}, 1<<20)
	rec := httptest.NewRecorder()
	router(h, uuid.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import/confirm", strings.NewReader(`{"candidates":[]}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Undo(t *testing.T) {
	type testCase struct {
		name       string
		path       string
		rc         *fakeReconciler
		wantStatus int
	}

	tests := []testCase{
		{name: "Success", path: "/import/" + uuid.NewString() + "/undo", rc: &fakeReconciler{deleted: 3}, wantStatus: http.StatusOK},
		{name: "InvalidID", path: "/import/abc/undo", rc: &fakeReconciler{}, wantStatus: http.StatusBadRequest},
		{
			name:       "UnknownBatch",
			path:       "/import/" + uuid.NewString() + "/undo",
			rc:         &fakeReconciler{undoErr: balance.ErrSnapshotNotFound},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := importcsv.NewHandler(nil, tt.rc, 1<<20)
			rec := httptest.NewRecorder()
			router(h, uuid.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHandler_Confirm_Rejected(t *testing.T) {
	type testCase struct {
		name       string
		candidate  string
		limit      int64
		wantStatus int
	}

	tests := []testCase{
		{
			name:       "NegativeAmount",
			candidate:  `{"title": "Rent", "amount": -500, "type": "expense", "date": "2024-01-06T00:00:00Z"}`,
			limit:      1 << 20,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "UnknownType",
			candidate:  `{"title": "Rent", "amount": 500, "type": "bogus", "date": "2024-01-06T00:00:00Z"}`,
			limit:      1 << 20,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "BodyTooLarge",
			candidate:  `{"title": "` + strings.Repeat("x", 512) + `", "amount": 500, "type": "expense"}`,
			limit:      128,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &fakeReconciler{summary: &reconcile.Summary{}}
			h := importcsv.NewHandler(nil, rc, tt.limit)

			body := `{"dialect": "bank", "candidates": [` + tt.candidate + `]}`
			rec := httptest.NewRecorder()
			router(h, uuid.New()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/import/confirm", strings.NewReader(body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Nil(t, rc.gotBatch)
		})
	}
}
