package bank

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var (
	dayFirstDate = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})$`)
	cardMask     = regexp.MustCompile(`\*\*\d{4}\b`)
)

// Payment processor prefixes stripped from display names.
var processorPrefixes = []string{"SQ *", "SUMUP *", "PAYPAL *"}

type Categorizer interface {
	Resolve(ctx context.Context, title, subtitle string, isExpense bool) (string, error)
}

type Converter struct {
	provider    string
	categorizer Categorizer
	logger      *slog.Logger
}

func NewConverter(provider string, categorizer Categorizer, logger *slog.Logger) *Converter {
	return &Converter{provider: provider, categorizer: categorizer, logger: logger}
}

// Convert maps a parsed row to the canonical transaction shape. now is used, with a warning,
// when the date cell cannot be parsed.
func (c *Converter) Convert(ctx context.Context, rec Record, now time.Time) (transaction.CreateParams, error) {
	typ := transaction.TypeFromSign(rec.Amount.IsNegative())

	title := rec.Description
	if title == "" {
		title = typ.Label()
	}

	subtitle := rec.Account
	if subtitle == "" {
		subtitle = c.provider
	}

	categoryID, err := c.categorizer.Resolve(ctx, title, subtitle, typ == transaction.TypeExpense)
	if err != nil {
		return transaction.CreateParams{}, fmt.Errorf("resolve category for %q: %w", title, err)
	}

	date, ok := ParseDate(rec.Date)
	if !ok {
		c.logger.Warn("unparseable statement date, using current time", "date", rec.Date, "title", title)
		date = now
	}

	currency := rec.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	return transaction.CreateParams{
		Provider:    c.provider,
		Title:       title,
		Subtitle:    subtitle,
		DisplayName: DisplayName(title),
		Amount:      csvrow.MinorUnits(rec.Amount),
		Type:        typ,
		Currency:    currency,
		CategoryID:  categoryID,
		Date:        date,
	}, nil
}

// ParseDate reads DD/MM/YYYY or DD/MM/YY (two-digit years are 20YY), falling back to an
// ISO-8601 parse.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	if m := dayFirstDate.FindStringSubmatch(s); m != nil {
		if t, ok := dayFirst(m[1], m[2], m[3]); ok {
			return t, true
		}
	}

	return csvrow.ParseTimestamp(s)
}

func dayFirst(dd, mm, yy string) (time.Time, bool) {
	day, _ := strconv.Atoi(dd)
	month, _ := strconv.Atoi(mm)
	year, _ := strconv.Atoi(yy)

	if len(yy) == 2 {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}

// DisplayName cleans a statement title for display: processor prefixes are removed until none
// remain, then masked card numbers and trailing asterisks.
func DisplayName(title string) string {
	name := strings.TrimSpace(title)

	for stripped := true; stripped; {
		stripped = false

		for _, prefix := range processorPrefixes {
			if len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
				name = strings.TrimSpace(name[len(prefix):])
				stripped = true
			}
		}
	}

	name = cardMask.ReplaceAllString(name, "")
	name = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(name), "*"))

	if name == "" {
		return title
	}

	return name
}
