package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/brighterbites/backend/models"
)

const rolloverBatch = 200

// MaterializeToday makes sure every child has a record for today and returns
// how many children were processed. It is idempotent.
func (s *RecordService) MaterializeToday(ctx context.Context) (int, error) {
	var lastID uint
	total := 0
	for {
		var ids []uint
		err := s.db.WithContext(ctx).Model(&models.Child{}).
			Where("id > ?", lastID).
			Order("id ASC").
			Limit(rolloverBatch).
			Pluck("id", &ids).Error
		if err != nil {
			return total, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return total, err
			}
			if _, err := s.GetOrCreateToday(ctx, id); err != nil {
				// a child deleted between the scan and the create is not an error
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return total, err
			}
			total++
		}
		if len(ids) < rolloverBatch {
			return total, nil
		}
		lastID = ids[len(ids)-1]
	}
}

// StartDailyRollover runs MaterializeToday every interval until ctx is done.
// The returned channel is closed once the worker has stopped.
func StartDailyRollover(ctx context.Context, svc *RecordService, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			n, err := svc.MaterializeToday(ctx)
			switch {
			case err != nil && ctx.Err() == nil:
				svc.log.Warn("daily rollover failed", zap.Int("children", n), zap.Error(err))
			case err == nil:
				svc.log.Debug("daily rollover done", zap.Int("children", n))
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}
