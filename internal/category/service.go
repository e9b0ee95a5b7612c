package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind restricts a rule to expenses, incomes or both.
type Kind string

const (
	KindAny     Kind = "any"
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// KindFor returns the kind matching a transaction direction.
func KindFor(isExpense bool) Kind {
	if isExpense {
		return KindExpense
	}

	return KindIncome
}

func (k Kind) Valid() bool {
	return k == KindAny || k == KindExpense || k == KindIncome
}

var (
	ErrNotFound                = errors.New("category not found")
	ErrTransferCategoryMissing = errors.New("transfer category is not configured")
	ErrInvalidRule             = errors.New("rule needs a pattern, a category and a valid kind")
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=category
type Repository interface {
	// FindRule returns the category of the longest learned pattern contained in text, or "".
	FindRule(ctx context.Context, text string, kind Kind) (string, error)
	CreateRule(ctx context.Context, pattern, categoryID string, kind Kind) error
	FindIDBySlug(ctx context.Context, slug string) (string, error)
}

// Defaults are the categories used when no rule matches.
type Defaults struct {
	Expense      string
	Income       string
	TransferSlug string
}

type Service struct {
	repo     Repository
	rules    []KeywordRule
	defaults Defaults
}

func NewService(repo Repository, rules []KeywordRule, defaults Defaults) *Service {
	return &Service{repo: repo, rules: rules, defaults: defaults}
}

// Resolve picks a category id for a transaction. Learned rules win over keyword rules, which win
// over the configured defaults.
func (s *Service) Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error) {
	kind := KindFor(isExpense)

	for _, text := range []string{title, subtitle} {
		if strings.TrimSpace(text) == "" {
			continue
		}

		id, err := s.repo.FindRule(ctx, text, kind)
		if err != nil {
			return "", fmt.Errorf("find rule: %w", err)
		}

		if id != "" {
			return id, nil
		}
	}

	if id, ok := matchKeywords(s.rules, title+" "+subtitle, kind); ok {
		return id, nil
	}

	if isExpense {
		return s.defaults.Expense, nil
	}

	return s.defaults.Income, nil
}

// TransferCategoryID returns the id of the category given to detected transfers.
func (s *Service) TransferCategoryID(ctx context.Context) (string, error) {
	id, err := s.repo.FindIDBySlug(ctx, s.defaults.TransferSlug)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: no category with slug %q", ErrTransferCategoryMissing, s.defaults.TransferSlug)
	}

	if err != nil {
		return "", fmt.Errorf("find transfer category: %w", err)
	}

	return id, nil
}

// Learn remembers that titles containing pattern belong to categoryID.
func (s *Service) Learn(ctx context.Context, pattern, categoryID string, kind Kind) error {
	pattern = strings.TrimSpace(pattern)
	if kind == "" {
		kind = KindAny
	}

	if pattern == "" || categoryID == "" || !kind.Valid() {
		return ErrInvalidRule
	}

	return s.repo.CreateRule(ctx, pattern, categoryID, kind)
}
