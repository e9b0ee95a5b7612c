package view_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
)

func TestTimeframeToDateRange(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	type testCase struct {
		name      string
		tf        view.Timeframe
		wantStart time.Time
		wantEnd   time.Time
	}

	tests := []testCase{
		{name: "All", tf: view.TimeframeAll},
		{
			name:      "ThisMonth",
			tf:        view.TimeframeThisMonth,
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "LastMonth",
			tf:        view.TimeframeLastMonth,
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "Last90Days",
			tf:        view.TimeframeLast90Days,
			wantStart: time.Date(2023, 12, 17, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := view.TimeframeToDateRange(tt.tf, now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestTimeframe_Next(t *testing.T) {
	assert.Equal(t, view.TimeframeThisMonth, view.TimeframeAll.Next())
	assert.Equal(t, view.TimeframeAll, view.TimeframeLast90Days.Next())
}
