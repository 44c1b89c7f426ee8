package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brighterbites/backend/config"
	"github.com/brighterbites/backend/models"
)

// RecordCache caches calendar windows per child. A window is keyed by the UTC
// day it was computed on as well as its length, since its lower bound moves
// with the clock. Implementations must treat every failure as a miss.
type RecordCache interface {
	GetCalendar(ctx context.Context, childID uint, day time.Time, days int) ([]models.DailyRecord, bool)
	SetCalendar(ctx context.Context, childID uint, day time.Time, days int, records []models.DailyRecord)
	InvalidateChild(ctx context.Context, childID uint)
}

// Options configures a RecordService. Zero values fall back to defaults.
type Options struct {
	Clock              Clock
	Logger             *zap.Logger
	Cache              RecordCache
	ResyncMode         string
	CalendarWindowDays int
	CalendarMaxDays    int
}

// RecordService owns the daily record lifecycle: creating today's record,
// applying task completions, merging catalog changes and awarding stars.
type RecordService struct {
	db         *gorm.DB
	clock      Clock
	log        *zap.Logger
	cache      RecordCache
	resyncMode string
	windowDays int
	maxDays    int
}

// NewRecordService creates a RecordService on db.
func NewRecordService(db *gorm.DB, opts Options) *RecordService {
	s := &RecordService{
		db:         db,
		clock:      opts.Clock,
		log:        opts.Logger,
		cache:      opts.Cache,
		resyncMode: opts.ResyncMode,
		windowDays: opts.CalendarWindowDays,
		maxDays:    opts.CalendarMaxDays,
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.resyncMode != config.ResyncReplace {
		s.resyncMode = config.ResyncMerge
	}
	if s.windowDays <= 0 {
		s.windowDays = 30
	}
	if s.maxDays < s.windowDays {
		s.maxDays = s.windowDays
	}
	return s
}

// Today returns the date key of the current UTC day.
func (s *RecordService) Today() time.Time {
	return StartOfDayUTC(s.clock.Now())
}

func (s *RecordService) loadRecord(ctx context.Context, childID uint, day time.Time) (*models.DailyRecord, error) {
	var rec models.DailyRecord
	err := s.db.WithContext(ctx).
		Preload("CustomHabits", orderedHabits).
		Where("child_id = ? AND date = ?", childID, day).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func orderedHabits(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC, id ASC")
}

func (s *RecordService) loadChild(ctx context.Context, childID uint) (*models.Child, error) {
	var child models.Child
	if err := s.db.WithContext(ctx).First(&child, childID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChildNotFound
		}
		return nil, fmt.Errorf("load child: %w", err)
	}
	return &child, nil
}

func (s *RecordService) activeHabits(ctx context.Context, childID uint) ([]models.Habit, error) {
	var habits []models.Habit
	err := s.db.WithContext(ctx).
		Where("child_id = ? AND is_active = ?", childID, true).
		Order("id ASC").
		Find(&habits).Error
	if err != nil {
		return nil, fmt.Errorf("load active habits: %w", err)
	}
	return habits, nil
}

// GetOrCreateToday returns today's record for the child, creating it from the
// child's active habits when it does not exist. Concurrent callers for the same
// child end up with the same stored record.
func (s *RecordService) GetOrCreateToday(ctx context.Context, childID uint) (*models.DailyRecord, error) {
	if childID == 0 {
		return nil, ErrInvalidID
	}
	day := s.Today()

	rec, err := s.loadRecord(ctx, childID, day)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load today's record: %w", err)
	}

	if _, err := s.loadChild(ctx, childID); err != nil {
		return nil, err
	}
	habits, err := s.activeHabits(ctx, childID)
	if err != nil {
		return nil, err
	}

	created := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := models.DailyRecord{
			ChildID:        childID,
			Date:           day,
			MorningBrush:   models.BrushTask{Status: models.StatusPending},
			NightBrush:     models.BrushTask{Status: models.StatusPending},
			DailyChallenge: models.ChallengeTask{Status: models.StatusPending},
		}
		// The (child_id, date) unique index decides the race; the loser inserts nothing.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if len(habits) == 0 {
			return nil
		}
		entries := snapshotHabits(rec.ID, habits, 0)
		return tx.Create(&entries).Error
	})
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, fmt.Errorf("create today's record: %w", err)
	}
	if created {
		s.log.Debug("daily record created",
			zap.Uint("child_id", childID),
			zap.Time("date", day),
			zap.Int("habits", len(habits)))
		s.invalidate(ctx, childID)
	}

	rec, err = s.loadRecord(ctx, childID, day)
	if err != nil {
		return nil, fmt.Errorf("reload today's record: %w", err)
	}
	return rec, nil
}

// snapshotHabits copies catalog habits into Pending record entries.
func snapshotHabits(recordID uint, habits []models.Habit, startPos int) []models.RecordHabit {
	entries := make([]models.RecordHabit, 0, len(habits))
	for i, h := range habits {
		entries = append(entries, models.RecordHabit{
			DailyRecordID: recordID,
			HabitID:       h.ID,
			Name:          h.Name,
			Status:        models.StatusPending,
			Position:      startPos + i,
		})
	}
	return entries
}

// CompleteTask marks a task of today's record as completed and awards the
// matching star. Completing an already completed brushing task changes nothing.
// habitID is only used for customHabit.
func (s *RecordService) CompleteTask(ctx context.Context, childID uint, taskType string, habitID uint) (*models.DailyRecord, error) {
	tt, ok := models.ParseTaskType(taskType)
	if !ok {
		return nil, ErrInvalidTaskType
	}
	if tt == models.TaskCustomHabit && habitID == 0 {
		return nil, ErrHabitIDRequired
	}

	rec, err := s.GetOrCreateToday(ctx, childID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	awarded := 0
	switch tt {
	case models.TaskMorningBrush:
		if rec.Stars.MorningBrush {
			return rec, nil
		}
		awarded, err = s.completeBrush(ctx, rec.ID, models.ColMorningBrushStatus, models.ColMorningBrushCompletedAt, models.ColStarMorningBrush, now)
	case models.TaskNightBrush:
		if rec.Stars.NightBrush {
			return rec, nil
		}
		awarded, err = s.completeBrush(ctx, rec.ID, models.ColNightBrushStatus, models.ColNightBrushCompletedAt, models.ColStarNightBrush, now)
	case models.TaskDailyChallenge:
		// the challenge is cosmetic and awards nothing
		err = s.db.WithContext(ctx).Model(&models.DailyRecord{}).
			Where("id = ?", rec.ID).
			Updates(map[string]interface{}{
				models.ColDailyChallengeStatus: models.StatusCompleted,
				models.ColChallengeCompleted:   true,
			}).Error
	case models.TaskCustomHabit:
		awarded, err = s.completeHabit(ctx, rec.ID, habitID)
	}
	if err != nil {
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("complete %s: %w", tt, err)
	}

	if awarded > 0 {
		s.awardScore(ctx, childID, awarded)
	}
	s.invalidate(ctx, childID)

	updated, err := s.loadRecord(ctx, childID, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("reload record: %w", err)
	}
	return updated, nil
}

// completeBrush flips a brushing slot and its star in one conditional update.
// Zero affected rows means another request already awarded it.
func (s *RecordService) completeBrush(ctx context.Context, recordID uint, statusCol, atCol, starCol string, at time.Time) (int, error) {
	res := s.db.WithContext(ctx).Model(&models.DailyRecord{}).
		Where("id = ? AND "+starCol+" = ?", recordID, false).
		Updates(map[string]interface{}{
			statusCol: models.StatusCompleted,
			atCol:     at,
			starCol:   true,
		})
	return int(res.RowsAffected), res.Error
}

// completeHabit completes one custom habit entry and evaluates the all-habits star.
func (s *RecordService) completeHabit(ctx context.Context, recordID, habitID uint) (int, error) {
	awarded := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecord(tx, recordID); err != nil {
			return err
		}
		res := tx.Model(&models.RecordHabit{}).
			Where("daily_record_id = ? AND habit_id = ? AND status = ?", recordID, habitID, models.StatusPending).
			Update("status", models.StatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&models.RecordHabit{}).
				Where("daily_record_id = ? AND habit_id = ?", recordID, habitID).
				Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return ErrHabitNotInRecord
			}
		}

		n, err := s.awardAllHabitsIfDone(tx, recordID)
		awarded = n
		return err
	})
	return awarded, err
}

// lockedRecord selects the record row with FOR UPDATE. Every transaction that
// changes a record's habit list or its all-habits star takes this lock first so
// they serialize per record. SQLite drops the clause and serializes writers anyway.
func lockedRecord(tx *gorm.DB, recordID uint) *gorm.DB {
	return tx.Model(&models.DailyRecord{}).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("id = ?", recordID)
}

func lockRecord(tx *gorm.DB, recordID uint) error {
	var rec models.DailyRecord
	if err := lockedRecord(tx, recordID).Take(&rec).Error; err != nil {
		return fmt.Errorf("lock record %d: %w", recordID, err)
	}
	return nil
}

// awardAllHabitsIfDone sets the all-habits star when the list is non-empty and
// fully completed, returning 1 if this call flipped it.
func (s *RecordService) awardAllHabitsIfDone(tx *gorm.DB, recordID uint) (int, error) {
	var total, pending int64
	if err := tx.Model(&models.RecordHabit{}).Where("daily_record_id = ?", recordID).Count(&total).Error; err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	if err := tx.Model(&models.RecordHabit{}).
		Where("daily_record_id = ? AND status <> ?", recordID, models.StatusCompleted).
		Count(&pending).Error; err != nil {
		return 0, err
	}
	if pending > 0 {
		return 0, nil
	}
	res := tx.Model(&models.DailyRecord{}).
		Where("id = ? AND "+models.ColStarAllHabits+" = ?", recordID, false).
		Update(models.ColStarAllHabits, true)
	return int(res.RowsAffected), res.Error
}

// awardScore adds n to the child's score. A failure here does not undo the task
// update that earned it; it is logged and the request still succeeds.
func (s *RecordService) awardScore(ctx context.Context, childID uint, n int) {
	res := s.db.WithContext(ctx).Model(&models.Child{}).
		Where("id = ?", childID).
		UpdateColumn("score", gorm.Expr("score + ?", n))
	if res.Error != nil {
		s.log.Warn("score increment failed",
			zap.Uint("child_id", childID),
			zap.Int("stars", n),
			zap.Error(res.Error))
		return
	}
	if res.RowsAffected == 0 {
		s.log.Warn("score increment matched no child", zap.Uint("child_id", childID), zap.Int("stars", n))
	}
}

func (s *RecordService) invalidate(ctx context.Context, childID uint) {
	if s.cache != nil {
		s.cache.InvalidateChild(ctx, childID)
	}
}

// loadHabitAndChild fetches both sides of an add-habit request in parallel.
func (s *RecordService) loadHabitAndChild(ctx context.Context, habitID, childID uint) (*models.Habit, *models.Child, error) {
	var habit models.Habit
	var child *models.Child
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.WithContext(gctx).First(&habit, habitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrHabitNotFound
			}
			return fmt.Errorf("load habit: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		c, err := s.loadChild(gctx, childID)
		child = c
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return &habit, child, nil
}

// AddHabitToToday appends a catalog habit to today's record as Pending. The
// list changed, so a previously earned all-habits star is revoked; score is
// never taken back.
func (s *RecordService) AddHabitToToday(ctx context.Context, actor models.Actor, childID, habitID uint) (*models.DailyRecord, error) {
	if childID == 0 || habitID == 0 {
		return nil, ErrInvalidID
	}
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	habit, child, err := s.loadHabitAndChild(ctx, habitID, childID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeParent(actor, *habit, *child); err != nil {
		return nil, err
	}
	if habit.ChildID != child.ID {
		return nil, ErrHabitNotAssigned
	}

	rec, err := s.GetOrCreateToday(ctx, childID)
	if err != nil {
		return nil, err
	}
	for _, h := range rec.CustomHabits {
		if h.HabitID == habit.ID {
			return nil, ErrHabitAlreadyListed
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecord(tx, rec.ID); err != nil {
			return err
		}
		var maxPos int64
		if err := tx.Model(&models.RecordHabit{}).
			Where("daily_record_id = ?", rec.ID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		entry := models.RecordHabit{
			DailyRecordID: rec.ID,
			HabitID:       habit.ID,
			Name:          habit.Name,
			Status:        models.StatusPending,
			Position:      int(maxPos) + 1,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrHabitAlreadyListed
		}
		return tx.Model(&models.DailyRecord{}).
			Where("id = ?", rec.ID).
			Update(models.ColStarAllHabits, false).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrHabitAlreadyListed
		}
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("add habit to today's record: %w", err)
	}
	s.invalidate(ctx, childID)

	updated, err := s.loadRecord(ctx, childID, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("reload record: %w", err)
	}
	return updated, nil
}

// RefreshTodayHabits resyncs today's custom habit list with the active catalog.
// In replace mode the list is rebuilt with every entry Pending. In merge mode
// entries of habits that are still active keep their status, new active habits
// are appended as Pending and inactive or deleted habits are dropped. Either way
// the all-habits star is recomputed from the new list. A refresh never awards
// score; only the child completing a task does.
func (s *RecordService) RefreshTodayHabits(ctx context.Context, actor models.Actor, childID uint) (*models.DailyRecord, error) {
	if childID == 0 {
		return nil, ErrInvalidID
	}
	if !actor.IsParent() {
		return nil, ErrNotAuthorized
	}
	child, err := s.loadChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeParent(actor, *child); err != nil {
		return nil, err
	}

	rec, err := s.GetOrCreateToday(ctx, childID)
	if err != nil {
		return nil, err
	}
	habits, err := s.activeHabits(ctx, childID)
	if err != nil {
		return nil, err
	}

	var allDone bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockRecord(tx, rec.ID); err != nil {
			return err
		}
		var pending int
		var err error
		if s.resyncMode == config.ResyncReplace {
			pending, err = replaceHabits(tx, rec.ID, habits)
		} else {
			pending, err = mergeHabits(tx, rec.ID, habits)
		}
		if err != nil {
			return err
		}

		allDone = len(habits) > 0 && pending == 0
		return tx.Model(&models.DailyRecord{}).
			Where("id = ?", rec.ID).
			Update(models.ColStarAllHabits, allDone).Error
	})
	if err != nil {
		return nil, fmt.Errorf("refresh today's habits: %w", err)
	}

	s.invalidate(ctx, childID)
	s.log.Info("today's habits refreshed",
		zap.Uint("child_id", childID),
		zap.String("mode", s.resyncMode),
		zap.Int("habits", len(habits)),
		zap.Bool("all_habits", allDone))

	updated, err := s.loadRecord(ctx, childID, rec.Date)
	if err != nil {
		return nil, fmt.Errorf("reload record: %w", err)
	}
	return updated, nil
}

// replaceHabits rebuilds the list from the catalog and returns the pending count.
func replaceHabits(tx *gorm.DB, recordID uint, habits []models.Habit) (int, error) {
	if err := tx.Where("daily_record_id = ?", recordID).Delete(&models.RecordHabit{}).Error; err != nil {
		return 0, err
	}
	if len(habits) == 0 {
		return 0, nil
	}
	entries := snapshotHabits(recordID, habits, 0)
	if err := tx.Create(&entries).Error; err != nil {
		return 0, err
	}
	return len(habits), nil
}

// mergeHabits keeps existing entries of still-active habits in their order,
// appends new ones and returns the pending count of the resulting list.
func mergeHabits(tx *gorm.DB, recordID uint, habits []models.Habit) (int, error) {
	var existing []models.RecordHabit
	if err := orderedHabits(tx.Where("daily_record_id = ?", recordID)).Find(&existing).Error; err != nil {
		return 0, err
	}

	active := make(map[uint]models.Habit, len(habits))
	ids := make([]uint, 0, len(habits))
	for _, h := range habits {
		active[h.ID] = h
		ids = append(ids, h.ID)
	}

	drop := tx.Where("daily_record_id = ?", recordID)
	if len(ids) > 0 {
		drop = drop.Where("habit_id NOT IN ?", ids)
	}
	if err := drop.Delete(&models.RecordHabit{}).Error; err != nil {
		return 0, err
	}

	pending := 0
	pos := 0
	kept := make(map[uint]bool, len(existing))
	for _, e := range existing {
		h, ok := active[e.HabitID]
		if !ok {
			continue
		}
		kept[e.HabitID] = true
		if e.Name != h.Name || e.Position != pos {
			if err := tx.Model(&models.RecordHabit{}).
				Where("id = ?", e.ID).
				Updates(map[string]interface{}{"name": h.Name, "position": pos}).Error; err != nil {
				return 0, err
			}
		}
		if e.Status != models.StatusCompleted {
			pending++
		}
		pos++
	}

	var added []models.Habit
	for _, h := range habits {
		if !kept[h.ID] {
			added = append(added, h)
		}
	}
	if len(added) > 0 {
		entries := snapshotHabits(recordID, added, pos)
		if err := tx.Create(&entries).Error; err != nil {
			return 0, err
		}
	}
	return pending + len(added), nil
}
