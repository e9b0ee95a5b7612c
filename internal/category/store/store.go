package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrJamesThe3rd/tally/internal/category"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) FindRule(ctx context.Context, text string, kind category.Kind) (string, error) {
	query := `
		SELECT category_id
		FROM category_rules
		WHERE $1 ILIKE '%' || pattern || '%'
			AND kind IN ('any', $2)
		ORDER BY LENGTH(pattern) DESC, created_at DESC
		LIMIT 1
	`

	var categoryID string

	err := s.db.QueryRowContext(ctx, query, text, kind).Scan(&categoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}

		return "", fmt.Errorf("finding rule: %w", err)
	}

	return categoryID, nil
}

func (s *Store) CreateRule(ctx context.Context, pattern, categoryID string, kind category.Kind) error {
	query := `
		INSERT INTO category_rules (pattern, category_id, kind, created_at)
		VALUES ($1, $2, $3, NOW())
	`

	_, err := s.db.ExecContext(ctx, query, pattern, categoryID, kind)
	if err != nil {
		return fmt.Errorf("creating rule: %w", err)
	}

	return nil
}

func (s *Store) FindIDBySlug(ctx context.Context, slug string) (string, error) {
	var id string

	err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", category.ErrNotFound
		}

		return "", fmt.Errorf("finding category by slug: %w", err)
	}

	return id, nil
}
