package models

import "time"

// Gender values accepted for a child profile.
const (
	GenderMale          = "Male"
	GenderFemale        = "Female"
	GenderPreferNotSay  = "Prefer not to say"
	DefaultChildAvatar  = "default_avatar.png"
	DefaultMorningBrush = "08:00"
	DefaultNightBrush   = "20:00"
)

// ValidGender reports whether g is one of the accepted gender values.
func ValidGender(g string) bool {
	switch g {
	case GenderMale, GenderFemale, GenderPreferNotSay:
		return true
	}
	return false
}

// BrushPreferences holds the reminder times a parent picked for the child.
type BrushPreferences struct {
	MorningBrushTime string `gorm:"size:5;not null;default:'08:00'" json:"morningBrushTime"`
	NightBrushTime   string `gorm:"size:5;not null;default:'20:00'" json:"nightBrushTime"`
}

// Child is a child account. Score only ever grows and is changed through an
// atomic increment, never by saving the whole row.
type Child struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	ParentID     uint             `gorm:"index;not null" json:"parentId"`
	Name         string           `gorm:"size:64;not null;index" json:"name"`
	Age          int              `gorm:"not null" json:"age"`
	Gender       string           `gorm:"size:32;not null" json:"gender"`
	PasswordHash string           `gorm:"size:255;not null" json:"-"`
	Avatar       string           `gorm:"size:255" json:"avatar"`
	Preferences  BrushPreferences `gorm:"embedded" json:"preferences"`
	Score        int              `gorm:"not null;default:0" json:"score"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}
