package csvrow

import (
	"errors"
	"strings"
)

// Row skip reasons surfaced to the user.
const (
	ReasonEmptyLine        = "Empty line"
	ReasonNotEnoughColumns = "Not enough columns"
	ReasonInvalidAmount    = "Invalid amount"
	ReasonParseError       = "Parse error"
)

var (
	ErrTooFewLines   = errors.New("file must contain a header and at least one data row")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Skipped records a data row that could not be turned into a record.
type Skipped struct {
	Line   int    `json:"line"` // 1-based; the header is line 1
	Reason string `json:"reason"`
}

// Result is the outcome of parsing one file.
// Total always equals len(Records) + Skipped.
type Result[T any] struct {
	Records     []T
	Total       int
	Skipped     int
	SkippedRows []Skipped
}

// Parsed returns the number of rows that produced a record.
func (r *Result[T]) Parsed() int {
	return len(r.Records)
}

// RowFunc builds a record from the fields of one data row.
// Returning ErrInvalidAmount (or an error wrapping it) skips the row as "Invalid amount";
// any other error skips it as "Parse error".
type RowFunc[T any] func(fields []string) (T, error)

// Walk runs build over every data row of lines (lines[0] is the header), applying the shared
// empty-line and minimum-column rules and keeping skip accounting.
func Walk[T any](lines []string, minFields int, build RowFunc[T]) *Result[T] {
	res := &Result[T]{}

	for i, raw := range lines[1:] {
		lineNum := i + 2
		res.Total++

		line := strings.TrimSpace(StripBOM(raw))
		if line == "" {
			res.skip(lineNum, ReasonEmptyLine)
			continue
		}

		fields := Split(line)
		if len(fields) < minFields {
			res.skip(lineNum, ReasonNotEnoughColumns)
			continue
		}

		rec, err := build(fields)
		if err != nil {
			reason := ReasonParseError
			if errors.Is(err, ErrInvalidAmount) {
				reason = ReasonInvalidAmount
			}

			res.skip(lineNum, reason)

			continue
		}

		res.Records = append(res.Records, rec)
	}

	return res
}

func (r *Result[T]) skip(line int, reason string) {
	r.Skipped++
	r.SkippedRows = append(r.SkippedRows, Skipped{Line: line, Reason: reason})
}
