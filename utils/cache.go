package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brighterbites/backend/models"
)

const defaultCacheTTL = 5 * time.Minute

// RecordCache keeps calendar windows in Redis. Every failure is a cache miss.
type RecordCache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRecordCache wraps rc. It returns nil when rc is nil so callers can skip caching.
func NewRecordCache(rc *redis.Client, ttl time.Duration) *RecordCache {
	if rc == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RecordCache{rc: rc, ttl: ttl}
}

func calendarPrefix(childID uint) string {
	return fmt.Sprintf("cache:calendar:%d:", childID)
}

func calendarKey(childID uint, day time.Time, days int) string {
	return fmt.Sprintf("%s%s:%d", calendarPrefix(childID), day.UTC().Format("20060102"), days)
}

// GetCalendar returns the child's window computed on day, if cached.
func (c *RecordCache) GetCalendar(ctx context.Context, childID uint, day time.Time, days int) ([]models.DailyRecord, bool) {
	if c == nil {
		return nil, false
	}
	b, ok := c.getBytes(ctx, calendarKey(childID, day, days))
	if !ok {
		return nil, false
	}
	var records []models.DailyRecord
	if err := json.Unmarshal(b, &records); err != nil {
		Sugar.Debugf("cache decode failed child=%d err=%v", childID, err)
		return nil, false
	}
	return records, true
}

// SetCalendar stores the child's window computed on day.
func (c *RecordCache) SetCalendar(ctx context.Context, childID uint, day time.Time, days int, records []models.DailyRecord) {
	if c == nil {
		return
	}
	b, err := json.Marshal(records)
	if err != nil {
		return
	}
	c.setBytes(ctx, calendarKey(childID, day, days), b)
}

// InvalidateChild drops every cached window of the child.
func (c *RecordCache) InvalidateChild(ctx context.Context, childID uint) {
	if c == nil {
		return
	}
	c.invalidateByPrefix(ctx, calendarPrefix(childID))
}

func (c *RecordCache) getBytes(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

func (c *RecordCache) setBytes(ctx context.Context, key string, b []byte) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// invalidateByPrefix deletes keys that match the prefix using SCAN.
func (c *RecordCache) invalidateByPrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := c.rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache invalidate failed prefix=%s err=%v", prefix, err)
			return
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := c.rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
