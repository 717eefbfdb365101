package models

import "time"

// Session is a time-bounded authentication grant tied to a bearer token.
// A session is valid iff now < ExpiresAt; expired rows are swept lazily.
type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"not null;index"`
	Token     string    `gorm:"type:text;uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	User User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}

// Valid reports whether the session is still live at the given instant.
func (s *Session) Valid(now time.Time) bool { return now.Before(s.ExpiresAt) }
