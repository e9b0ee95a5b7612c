package transaction

import (
	"strings"
	"time"
)

// Key identifies a transaction for duplicate detection: normalised title, absolute amount,
// type and calendar day. Two transactions with equal keys are the same posting.
type Key struct {
	Title  string
	Amount int64
	Type   Type
	Day    string
}

// NewKey builds a Key. The title is lower-cased with runs of whitespace collapsed, and the day
// is taken in UTC.
func NewKey(title string, amount int64, typ Type, date time.Time) Key {
	if amount < 0 {
		amount = -amount
	}

	return Key{
		Title:  strings.Join(strings.Fields(strings.ToLower(title)), " "),
		Amount: amount,
		Type:   typ,
		Day:    date.UTC().Format(time.DateOnly),
	}
}

func (p CreateParams) Key() Key {
	return NewKey(p.Title, p.Amount, p.Type, p.Date)
}

func (t *Transaction) Key() Key {
	return NewKey(t.Title, t.Amount, t.Type, t.Date)
}

// FilterDuplicates splits candidates into those not yet present in existing and those whose key
// is already taken. Matching is exact: no amount tolerance and no date window.
func FilterDuplicates(existing []*Transaction, candidates []CreateParams) (fresh, dupes []CreateParams) {
	seen := make(map[Key]struct{}, len(existing))
	for _, tx := range existing {
		seen[tx.Key()] = struct{}{}
	}

	for _, c := range candidates {
		if _, found := seen[c.Key()]; found {
			dupes = append(dupes, c)
			continue
		}

		fresh = append(fresh, c)
	}

	return fresh, dupes
}
