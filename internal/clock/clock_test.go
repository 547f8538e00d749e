package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfTruncatesToUTCMidnight(t *testing.T) {
	in := time.Date(2026, 3, 4, 23, 59, 1, 5, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), DateOf(in))
}

func TestTodayUsesFakeClock(t *testing.T) {
	fc := NewFakeClock(time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), Today(fc))

	fc.AdvanceDays(2)
	assert.Equal(t, time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), Today(fc))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)
}
