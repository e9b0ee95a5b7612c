package category_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/category"
	categoryHandler "github.com/MrJamesThe3rd/tally/internal/http/category"
)

func newRouter(repo category.Repository) http.Handler {
	svc := category.NewService(repo, []category.KeywordRule{
		{Category: "groceries", Kind: category.KindExpense, Keywords: []string{"tesco"}},
	}, category.Defaults{Expense: "other-expense", Income: "other-income", TransferSlug: "transfer"})

	r := chi.NewRouter()
	r.Route("/categories", categoryHandler.NewHandler(svc).Routes)

	return r
}

func TestHandler_Suggest(t *testing.T) {
	type testCase struct {
		name       string
		query      string
		setupMock  func(m *category.MockRepository)
		wantStatus int
		want       string
	}

	tests := []testCase{
		{
			name:  "LearnedRule",
			query: "?title=Pret+A+Manger",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().FindRule(gomock.Any(), "Pret A Manger", category.KindExpense).Return("eating-out", nil)
			},
			wantStatus: http.StatusOK,
			want:       "eating-out",
		},
		{
			name:  "KeywordRule",
			query: "?title=TESCO+STORES",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().FindRule(gomock.Any(), "TESCO STORES", category.KindExpense).Return("", nil)
			},
			wantStatus: http.StatusOK,
			want:       "groceries",
		},
		{
			name:  "IncomeDefault",
			query: "?title=Refund&type=income",
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().FindRule(gomock.Any(), "Refund", category.KindIncome).Return("", nil)
			},
			wantStatus: http.StatusOK,
			want:       "other-income",
		},
		{
			name:       "MissingTitle",
			query:      "",
			setupMock:  func(*category.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := category.NewMockRepository(ctrl)
			tt.setupMock(repo)

			rec := httptest.NewRecorder()
			newRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/suggest"+tt.query, nil))

			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.want == "" {
				return
			}

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got["category_id"])
		})
	}
}

func TestHandler_Learn(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setupMock  func(m *category.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Created",
			body: `{"pattern": " pret ", "category_id": "eating-out"}`,
			setupMock: func(m *category.MockRepository) {
				m.EXPECT().CreateRule(gomock.Any(), "pret", "eating-out", category.KindAny).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "BadKind",
			body:       `{"pattern": "pret", "category_id": "eating-out", "kind": "sometimes"}`,
			setupMock:  func(*category.MockRepository) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := category.NewMockRepository(ctrl)
			tt.setupMock(repo)

			rec := httptest.NewRecorder()
			newRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/rules", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
