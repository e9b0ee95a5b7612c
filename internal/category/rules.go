package category

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordRule assigns Category to transactions whose title or subtitle contains any keyword.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Kind     Kind     `yaml:"kind"`
	Keywords []string `yaml:"keywords"`
}

type rulesFile struct {
	Rules []KeywordRule `yaml:"rules"`
}

// LoadRules reads keyword rules from a YAML file. An empty path yields no rules.
func LoadRules(path string) ([]KeywordRule, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	return ParseRules(data)
}

// ParseRules decodes a rules document. Keywords are matched case-insensitively.
func ParseRules(data []byte) ([]KeywordRule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}

	for i, r := range f.Rules {
		if r.Kind == "" {
			f.Rules[i].Kind = KindAny
		}

		if r.Category == "" || !f.Rules[i].Kind.Valid() {
			return nil, fmt.Errorf("rule %d: %w", i+1, ErrInvalidRule)
		}

		for j, kw := range r.Keywords {
			f.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}

	return f.Rules, nil
}

// matchKeywords returns the category of the first rule with a keyword contained in text.
func matchKeywords(rules []KeywordRule, text string, kind Kind) (string, bool) {
	text = strings.ToLower(text)

	for _, r := range rules {
		if r.Kind != KindAny && r.Kind != kind {
			continue
		}

		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(text, kw) {
				return r.Category, true
			}
		}
	}

	return "", false
}

// keywordsOnly is a Repository without learned rules, for callers that have no database.
type keywordsOnly struct{}

func (keywordsOnly) FindRule(context.Context, string, Kind) (string, error) { return "", nil }

func (keywordsOnly) CreateRule(context.Context, string, string, Kind) error {
	return errors.New("learned rules need a database")
}

func (keywordsOnly) FindIDBySlug(context.Context, string) (string, error) { return "", ErrNotFound }

// NewKeywordService returns a Service that resolves categories from keyword rules and defaults
// only.
func NewKeywordService(rules []KeywordRule, defaults Defaults) *Service {
	return NewService(keywordsOnly{}, rules, defaults)
}
