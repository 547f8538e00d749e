// Package workday measures distances between calendar dates in business days.
// Saturdays and Sundays are skipped; holidays are not considered.
package workday

import (
	"time"

	"github.com/smallbiznis/milestone/internal/clock"
)

// Distance returns the signed number of business days from today to target.
// Days are walked from the earlier date (exclusive) to the later date
// (inclusive), so a target on Saturday seen from Friday is 0 and the
// following Monday is 1. The result is negative when target is in the past.
func Distance(today, target time.Time) int {
	from := clock.DateOf(today)
	to := clock.DateOf(target)
	if from.Equal(to) {
		return 0
	}

	past := to.Before(from)
	if past {
		from, to = to, from
	}

	count := 0
	for cur := from.AddDate(0, 0, 1); !cur.After(to); cur = cur.AddDate(0, 0, 1) {
		if IsBusinessDay(cur) {
			count++
		}
	}

	if past {
		return -count
	}
	return count
}

func IsBusinessDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	default:
		return true
	}
}
