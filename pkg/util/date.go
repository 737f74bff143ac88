package util

import (
	"fmt"
	"time"
)

// ReplayWindow computes the [from, to) range for a replay run: the window
// ends daysAgo calendar days before now (start of that day, UTC) and covers
// ndays days backwards from there.
func ReplayWindow(now time.Time, daysAgo, ndays int) (time.Time, time.Time, error) {
	if daysAgo <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("days_ago must be positive, got %d", daysAgo)
	}
	if ndays <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("ndays must be positive, got %d", ndays)
	}

	day := now.UTC().Truncate(24 * time.Hour)
	to := day.AddDate(0, 0, -(daysAgo - 1))
	from := to.AddDate(0, 0, -ndays)
	return from, to, nil
}
