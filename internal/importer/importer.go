package importer

import (
	"errors"
	"regexp"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/importer/csvrow"
)

// Dialect identifies a supported statement layout.
type Dialect string

const (
	DialectUnknown Dialect = ""
	DialectCard    Dialect = "card"
	DialectBank    Dialect = "bank"
)

var ErrUnknownFormat = errors.New("unrecognised statement format")

// ParseDialect maps user input to a Dialect. An empty string means auto-detect.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectUnknown, DialectCard, DialectBank:
		return d, nil
	default:
		return DialectUnknown, ErrUnknownFormat
	}
}

var slashDate = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{2,4}`)

// DetectFormat classifies a statement from its header and, failing that, from the shape of the
// first data row. The bank fingerprint is checked first because the card rule on
// amount/currency/state is loose enough to catch bank headers.
func DetectFormat(text string) Dialect {
	header, next := firstTwoLines(text)
	h := strings.ToLower(header)

	if containsAny(h, "posted transactions", "posted account") || containsAll(h, "debit", "credit", "balance") {
		return DialectBank
	}

	if containsAll(h, "type", "product", "state") ||
		containsAll(h, "started date", "completed date") ||
		containsAll(h, "amount", "fee", "currency", "state") {
		return DialectCard
	}

	fields := strings.Split(next, ",")

	switch {
	case len(fields) >= 10:
		return DialectCard
	case len(fields) >= 4 && len(fields) <= 7 && anyMatch(fields, slashDate):
		return DialectBank
	}

	return DialectUnknown
}

func firstTwoLines(text string) (string, string) {
	var found []string

	for _, line := range csvrow.Lines(csvrow.StripBOM(text)) {
		line = strings.TrimSpace(csvrow.StripBOM(line))
		if line == "" {
			continue
		}

		found = append(found, line)
		if len(found) == 2 {
			break
		}
	}

	switch len(found) {
	case 0:
		return "", ""
	case 1:
		return found[0], ""
	}

	return found[0], found[1]
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}

	return true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}

func anyMatch(fields []string, re *regexp.Regexp) bool {
	for _, f := range fields {
		if re.MatchString(f) {
			return true
		}
	}

	return false
}
