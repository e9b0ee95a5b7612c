// Package transfer finds pairs of transactions that are the two sides of one money movement
// between the user's own accounts.
package transfer

import (
	"strings"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const (
	// SameBatchTolerance bounds the date gap of a pair found within one list.
	SameBatchTolerance = 24 * time.Hour
	// CrossProviderTolerance is the settlement delay allowed between two providers, in days.
	CrossProviderTolerance = 4
)

// Item is the subset of a transaction that transfer matching looks at.
type Item struct {
	Title    string
	Amount   int64
	Type     transaction.Type
	Currency string
	Date     time.Time
}

func FromParams(params []transaction.CreateParams) []Item {
	items := make([]Item, len(params))
	for i, p := range params {
		items[i] = Item{Title: p.Title, Amount: p.Amount, Type: p.Type, Currency: p.Currency, Date: p.Date}
	}

	return items
}

func FromTransactions(txs []*transaction.Transaction) []Item {
	items := make([]Item, len(txs))
	for i, tx := range txs {
		items[i] = Item{Title: tx.Title, Amount: tx.Amount, Type: tx.Type, Currency: tx.Currency, Date: tx.Date}
	}

	return items
}

// day returns the UTC calendar day of the item as a comparable value.
func (it Item) day() time.Time {
	return it.Date.UTC().Truncate(24 * time.Hour)
}

// counterparts reports whether a and b can be the two sides of one transfer, ignoring dates.
func counterparts(a, b Item) bool {
	return a.Amount == b.Amount &&
		strings.EqualFold(a.Currency, b.Currency) &&
		a.Type != b.Type
}

// dayGap returns the absolute number of calendar days between a and b.
func dayGap(a, b Item) int {
	gap := int(a.day().Sub(b.day()).Hours() / 24)
	if gap < 0 {
		return -gap
	}

	return gap
}

// Pair holds the indices of two items of the same list.
type Pair struct {
	A int
	B int
}

// Result is the outcome of same-batch detection.
type Result struct {
	Pairs []Pair
	// Indices holds every item taking part in at least one pair.
	Indices map[int]bool
}

type groupKey struct {
	day      time.Time
	amount   int64
	currency string
}

// SameBatch pairs items of one list that share day, amount and currency and have opposite
// types. Every qualifying i<j pair is reported once; an item may take part in several pairs.
func SameBatch(items []Item) Result {
	res := Result{Indices: make(map[int]bool)}

	groups := make(map[groupKey][]int)

	var order []groupKey

	for i, it := range items {
		k := groupKey{day: it.day(), amount: it.Amount, currency: strings.ToUpper(it.Currency)}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}

		groups[k] = append(groups[k], i)
	}

	for _, k := range order {
		members := groups[k]

		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				a, b := members[x], members[y]
				if items[a].Type == items[b].Type {
					continue
				}

				if absDuration(items[a].Date.Sub(items[b].Date)) > SameBatchTolerance {
					continue
				}

				res.Pairs = append(res.Pairs, Pair{A: a, B: b})
				res.Indices[a] = true
				res.Indices[b] = true
			}
		}
	}

	return res
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
