package transfer

import (
	"strings"
)

// Match links a new item to an existing one. New and Existing index the slices given to the
// strategy that produced the match.
type Match struct {
	New           int
	Existing      int
	NewLabel      string
	ExistingLabel string
}

// ProviderInternal pairs marked new items with marked existing items of the same provider:
// same calendar day, same amount and currency, opposite type. The marker is a case-insensitive
// title substring. Matching is greedy: each new item takes the first eligible existing item in
// order, and an existing item is consumed by at most one match. An empty marker matches nothing.
func ProviderInternal(newItems, existing []Item, marker string) []Match {
	marker = strings.ToLower(strings.TrimSpace(marker))
	if marker == "" {
		return nil
	}

	marked := func(it Item) bool {
		return strings.Contains(strings.ToLower(it.Title), marker)
	}

	return greedy(newItems, existing, func(n, e Item) bool {
		return marked(n) && marked(e) && counterparts(n, e) && dayGap(n, e) == 0
	})
}

// CrossProvider pairs new items with existing items of another provider, allowing up to
// CrossProviderTolerance days between the two sides. It uses the same greedy discipline as
// ProviderInternal and needs no marker. The labels are copied onto every match.
func CrossProvider(newItems, existing []Item, newLabel, existingLabel string) []Match {
	matches := greedy(newItems, existing, func(n, e Item) bool {
		return counterparts(n, e) && dayGap(n, e) <= CrossProviderTolerance
	})

	for i := range matches {
		matches[i].NewLabel = newLabel
		matches[i].ExistingLabel = existingLabel
	}

	return matches
}

func greedy(newItems, existing []Item, eligible func(n, e Item) bool) []Match {
	consumed := make([]bool, len(existing))

	var matches []Match

	for i, n := range newItems {
		for j, e := range existing {
			if consumed[j] || !eligible(n, e) {
				continue
			}

			consumed[j] = true
			matches = append(matches, Match{New: i, Existing: j})

			break
		}
	}

	return matches
}
