package server

import (
	"strings"
	"time"

	"github.com/smallbiznis/milestone/internal/clock"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalDate reads a calendar date from a request body. RFC3339
// timestamps are accepted and truncated to their UTC date.
func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		date := clock.DateOf(parsed)
		return &date, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		date := clock.DateOf(parsed.UTC())
		return &date, nil
	}
	return nil, newValidationError(field, "invalid_"+field, "expected a YYYY-MM-DD date")
}
