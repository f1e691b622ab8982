package charts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignToChartWeek(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"tuesday maps to itself", "2025-06-03", "2025-06-03"},
		{"wednesday snaps back one day", "2025-06-04", "2025-06-03"},
		{"monday snaps back six days", "2025-06-09", "2025-06-03"},
		{"sunday snaps back five days", "2025-06-08", "2025-06-03"},
		{"across a month boundary", "2025-07-01", "2025-07-01"},
		{"first of month snaps into previous month", "2025-06-01", "2025-05-27"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			day, err := time.Parse(WeekFormat, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, AlignToChartWeek(day))
		})
	}
}

func TestParseWeek(t *testing.T) {
	_, err := ParseWeek("2025-06-03")
	assert.NoError(t, err)

	_, err = ParseWeek("03-06-2025")
	assert.ErrorIs(t, err, ErrInvalidWeek)

	_, err = ParseWeek("not-a-date")
	assert.ErrorIs(t, err, ErrInvalidWeek)
}
