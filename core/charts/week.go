package charts

import (
	"errors"
	"fmt"
	"time"
)

// WeekFormat is the wire format for chart weeks.
const WeekFormat = "2006-01-02"

// ErrInvalidWeek is reported for week strings that are not YYYY-MM-DD dates.
var ErrInvalidWeek = errors.New("invalid date format")

// AlignToChartWeek snaps a date back to the most recent chart release day
// (Tuesday). A Tuesday maps to itself.
func AlignToChartWeek(t time.Time) string {
	offset := (int(t.Weekday()) - int(time.Tuesday) + 7) % 7
	return t.AddDate(0, 0, -offset).Format(WeekFormat)
}

// ParseWeek validates a YYYY-MM-DD week string.
func ParseWeek(week string) (time.Time, error) {
	t, err := time.Parse(WeekFormat, week)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidWeek, week)
	}
	return t, nil
}
