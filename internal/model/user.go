package model

import "time"

// User stores Telegram user metadata.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Preference holds per-user settings. TimezoneOffset (whole hours from UTC)
// is only consulted when interpreting date text at capture time; stored
// deadlines are always UTC.
type Preference struct {
	UserID         int64 `gorm:"primaryKey"`
	TimezoneOffset int
	DailySummary   bool `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Location returns the fixed-offset location for interpreting the user's
// date text.
func (p Preference) Location() *time.Location {
	if p.TimezoneOffset == 0 {
		return time.UTC
	}
	return time.FixedZone("user", p.TimezoneOffset*3600)
}
