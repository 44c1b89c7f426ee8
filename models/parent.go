package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Parent is an account that owns children and the habits assigned to them.
// Passwords are stored as bcrypt hashes only.
type Parent struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:64;not null;uniqueIndex" json:"parentname"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Children     []Child   `json:"-"`
}

// BeforeSave normalises the login fields so lookups are case-insensitive on email.
func (p *Parent) BeforeSave(tx *gorm.DB) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return nil
}
