package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalendarKeyIncludesDay(t *testing.T) {
	day := time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "cache:calendar:7:20250314:30", calendarKey(7, day, 30))
	assert.NotEqual(t, calendarKey(7, day, 30), calendarKey(7, day.AddDate(0, 0, 1), 30))
	// every window of a child shares the invalidation prefix
	assert.Contains(t, calendarKey(7, day, 30), calendarPrefix(7))
}

func TestNilRecordCacheIsAMiss(t *testing.T) {
	var c *RecordCache
	assert.Nil(t, NewRecordCache(nil, time.Minute))

	_, ok := c.GetCalendar(context.Background(), 1, time.Now(), 30)
	assert.False(t, ok)
	c.SetCalendar(context.Background(), 1, time.Now(), 30, nil)
	c.InvalidateChild(context.Background(), 1)
}
