package category

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

type Handler struct {
	svc *category.Service
}

func NewHandler(svc *category.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/rules", h.learn)
}

type suggestResponse struct {
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle,omitempty"`
	CategoryID string `json:"category_id"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	title := q.Get("title")
	if title == "" {
		http.Error(w, "title query parameter is required", http.StatusBadRequest)
		return
	}

	subtitle := q.Get("subtitle")
	isExpense := q.Get("type") != "income"

	categoryID, err := h.svc.Resolve(r.Context(), title, subtitle, isExpense)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(suggestResponse{
		Title:      title,
		Subtitle:   subtitle,
		CategoryID: categoryID,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type learnRequest struct {
	Pattern    string        `json:"pattern"`
	CategoryID string        `json:"category_id"`
	Kind       category.Kind `json:"kind"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.Learn(r.Context(), req.Pattern, req.CategoryID, req.Kind); err != nil {
		if errors.Is(err, category.ErrInvalidRule) {
			http.Error(w, "pattern and category_id are required and kind must be any, expense or income", http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusCreated)
}
