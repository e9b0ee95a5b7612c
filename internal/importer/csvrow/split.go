package csvrow

import (
	"strings"
)

// Split tokenizes one CSV line into fields.
//
// Fields may be enclosed in double quotes, in which case commas inside them are literal and a
// doubled quote ("") yields a single quote. Unquoted commas are the only delimiter. Split never
// fails: malformed quoting is consumed as field content, so any input produces at least one field.
func Split(line string) []string {
	var (
		fields  []string
		field   strings.Builder
		inQuote bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case c == '"' && inQuote && i+1 < len(line) && line[i+1] == '"':
			field.WriteByte('"')
			i++
		case c == '"':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}

	return append(fields, field.String())
}

// Lines splits raw file text into lines, stripping carriage returns.
// Blank lines at the very end (a trailing newline) are dropped; interior blank lines are kept so
// that row numbering matches the source file.
func Lines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}

	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}
