package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brighterbites/backend/models"
)

// CalendarSummary is the star rollup over a calendar window.
type CalendarSummary struct {
	Days        int `json:"days"`
	Records     int `json:"records"`
	TotalStars  int `json:"totalStars"`
	PerfectDays int `json:"perfectDays"`
	Score       int `json:"score"`
}

// windowFor resolves the requested window. Zero means the configured default.
func (s *RecordService) windowFor(days int) (int, error) {
	switch {
	case days == 0:
		return s.windowDays, nil
	case days < 0 || days > s.maxDays:
		return 0, ErrInvalidWindow
	}
	return days, nil
}

// GetRecords returns the child's records dated within the last days days,
// newest first. A child without history gets an empty slice.
func (s *RecordService) GetRecords(ctx context.Context, actor models.Actor, childID uint, days int) ([]models.DailyRecord, error) {
	if childID == 0 {
		return nil, ErrInvalidID
	}
	days, err := s.windowFor(days)
	if err != nil {
		return nil, err
	}
	child, err := s.loadChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, *child); err != nil {
		return nil, err
	}
	return s.records(ctx, childID, days)
}

func (s *RecordService) records(ctx context.Context, childID uint, days int) ([]models.DailyRecord, error) {
	now := s.clock.Now().UTC()
	day := StartOfDayUTC(now)
	if s.cache != nil {
		if cached, ok := s.cache.GetCalendar(ctx, childID, day, days); ok {
			for i := range cached {
				cached[i].StarCount = cached[i].Stars.Count()
			}
			return cached, nil
		}
	}

	since := now.Add(-time.Duration(days) * 24 * time.Hour)
	records := make([]models.DailyRecord, 0)
	err := s.db.WithContext(ctx).
		Preload("CustomHabits", orderedHabits).
		Where("child_id = ? AND date >= ?", childID, since).
		Order("date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}

	if s.cache != nil {
		s.cache.SetCalendar(ctx, childID, day, days, records)
	}
	s.log.Debug("calendar loaded",
		zap.Uint("child_id", childID),
		zap.Int("days", days),
		zap.Int("records", len(records)))
	return records, nil
}

// Summary rolls up stars over the same window GetRecords serves. A perfect
// day is one where all three stars were earned.
func (s *RecordService) Summary(ctx context.Context, actor models.Actor, childID uint, days int) (*CalendarSummary, error) {
	if childID == 0 {
		return nil, ErrInvalidID
	}
	days, err := s.windowFor(days)
	if err != nil {
		return nil, err
	}
	child, err := s.loadChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, *child); err != nil {
		return nil, err
	}
	records, err := s.records(ctx, childID, days)
	if err != nil {
		return nil, err
	}

	sum := &CalendarSummary{Days: days, Records: len(records), Score: child.Score}
	for _, r := range records {
		n := r.Stars.Count()
		sum.TotalStars += n
		if n == 3 {
			sum.PerfectDays++
		}
	}
	return sum, nil
}
