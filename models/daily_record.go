package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus is the completion state of a single task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "Pending"
	StatusCompleted TaskStatus = "Completed"
)

// TaskType names the tasks a child can complete.
type TaskType string

const (
	TaskMorningBrush   TaskType = "morningBrush"
	TaskNightBrush     TaskType = "nightBrush"
	TaskDailyChallenge TaskType = "dailyChallenge"
	TaskCustomHabit    TaskType = "customHabit"
)

// ParseTaskType maps the path segment to a TaskType.
func ParseTaskType(s string) (TaskType, bool) {
	switch t := TaskType(s); t {
	case TaskMorningBrush, TaskNightBrush, TaskDailyChallenge, TaskCustomHabit:
		return t, true
	}
	return "", false
}

// BrushTask is a brushing slot with its completion time.
type BrushTask struct {
	Status      TaskStatus `gorm:"size:16;not null;default:'Pending'" json:"status"`
	CompletedAt *time.Time `json:"completedAt"`
}

// ChallengeTask is the daily challenge slot.
type ChallengeTask struct {
	Status TaskStatus `gorm:"size:16;not null;default:'Pending'" json:"status"`
}

// Stars are cached achievement flags. Each flips to true at most once per
// record; only a change of the habit list may clear AllHabits.
type Stars struct {
	MorningBrush bool `gorm:"not null;default:false" json:"morningBrush"`
	NightBrush   bool `gorm:"not null;default:false" json:"nightBrush"`
	AllHabits    bool `gorm:"not null;default:false" json:"allHabits"`
}

// Count returns the number of stars earned.
func (s Stars) Count() int {
	n := 0
	for _, v := range []bool{s.MorningBrush, s.NightBrush, s.AllHabits} {
		if v {
			n++
		}
	}
	return n
}

// DailyRecord is the per child, per UTC day snapshot of task progress.
type DailyRecord struct {
	ID                 uint          `gorm:"primaryKey" json:"id"`
	ChildID            uint          `gorm:"uniqueIndex:idx_record_child_date;not null" json:"childId"`
	Date               time.Time     `gorm:"uniqueIndex:idx_record_child_date;type:date;not null" json:"date"`
	MorningBrush       BrushTask     `gorm:"embedded;embeddedPrefix:morning_brush_" json:"morningBrush"`
	NightBrush         BrushTask     `gorm:"embedded;embeddedPrefix:night_brush_" json:"nightBrush"`
	DailyChallenge     ChallengeTask `gorm:"embedded;embeddedPrefix:daily_challenge_" json:"dailyChallenge"`
	CustomHabits       []RecordHabit `gorm:"constraint:OnDelete:CASCADE;" json:"customHabits"`
	Stars              Stars         `gorm:"embedded;embeddedPrefix:star_" json:"stars"`
	ChallengeCompleted bool          `gorm:"not null;default:false" json:"challengeCompleted"`
	StarCount          int           `gorm:"-" json:"starCount"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// AfterFind fills the derived star count.
func (r *DailyRecord) AfterFind(tx *gorm.DB) error {
	r.StarCount = r.Stars.Count()
	return nil
}

// AllHabitsCompleted reports whether the list is non-empty and fully done.
// An empty list never counts as completed.
func (r *DailyRecord) AllHabitsCompleted() bool {
	if len(r.CustomHabits) == 0 {
		return false
	}
	for _, h := range r.CustomHabits {
		if h.Status != StatusCompleted {
			return false
		}
	}
	return true
}

// RecordHabit is one custom habit entry inside a daily record. Name is copied
// when the entry is added so history survives catalog edits and deletes.
type RecordHabit struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	DailyRecordID uint       `gorm:"uniqueIndex:idx_record_habit;not null" json:"-"`
	HabitID       uint       `gorm:"uniqueIndex:idx_record_habit;not null" json:"habitId"`
	Name          string     `gorm:"size:100;not null" json:"name"`
	Status        TaskStatus `gorm:"size:16;not null;default:'Pending'" json:"status"`
	Position      int        `gorm:"not null;default:0" json:"-"`
}

// Column names used by targeted updates.
const (
	ColMorningBrushStatus      = "morning_brush_status"
	ColMorningBrushCompletedAt = "morning_brush_completed_at"
	ColNightBrushStatus        = "night_brush_status"
	ColNightBrushCompletedAt   = "night_brush_completed_at"
	ColDailyChallengeStatus    = "daily_challenge_status"
	ColChallengeCompleted      = "challenge_completed"
	ColStarMorningBrush        = "star_morning_brush"
	ColStarNightBrush          = "star_night_brush"
	ColStarAllHabits           = "star_all_habits"
)

// All lists every model for migrations.
func All() []interface{} {
	return []interface{}{&Parent{}, &Child{}, &Habit{}, &DailyRecord{}, &RecordHabit{}}
}
