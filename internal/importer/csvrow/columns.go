package csvrow

import (
	"strings"
)

// Columns resolves logical fields to column indices in a header row.
type Columns struct {
	header  []string
	claimed map[int]bool
}

// NewColumns normalises a header row for alias lookups.
func NewColumns(header []string) *Columns {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = strings.ToLower(strings.TrimSpace(StripBOM(h)))
	}

	return &Columns{header: norm, claimed: make(map[int]bool)}
}

// Resolve returns the index of the first column matching one of aliases, or -1.
//
// Aliases are tried in order for an exact (case-insensitive) match first. When substring is set,
// a second pass accepts any column containing an alias. Columns already returned by an earlier
// Resolve call are never returned again.
func (c *Columns) Resolve(substring bool, aliases ...string) int {
	for _, alias := range aliases {
		if idx := c.find(func(h string) bool { return h == alias }); idx >= 0 {
			return c.claim(idx)
		}
	}

	if !substring {
		return -1
	}

	for _, alias := range aliases {
		if idx := c.find(func(h string) bool { return strings.Contains(h, alias) }); idx >= 0 {
			return c.claim(idx)
		}
	}

	return -1
}

func (c *Columns) find(match func(string) bool) int {
	for i, h := range c.header {
		if h != "" && !c.claimed[i] && match(h) {
			return i
		}
	}

	return -1
}

func (c *Columns) claim(idx int) int {
	c.claimed[idx] = true
	return idx
}

// Cell safely gets a trimmed cell value from a row. Missing columns yield "".
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
