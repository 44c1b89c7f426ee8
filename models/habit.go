package models

import "time"

// DefaultHabitIcon is used when the parent does not pick an icon.
const DefaultHabitIcon = "star"

// Habit is a catalog entry created by a parent and assigned to one child.
// Only active habits are copied into newly created daily records.
type Habit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	Icon        string    `gorm:"size:64" json:"icon"`
	ParentID    uint      `gorm:"index;not null" json:"parentId"`
	ChildID     uint      `gorm:"index:idx_habit_child_active;not null" json:"childId"`
	IsActive    bool      `gorm:"index:idx_habit_child_active;not null" json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
