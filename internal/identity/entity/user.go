package entity

import (
	"strings"
	"time"
)

type User struct {
	ID              int64
	Username        string
	Email           string
	Password        string // bcrypt hash
	FirstName       string
	LastName        string
	IsEmailVerified bool
	IsStaff         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DisplayName is the full name, or the username when both names are blank.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

type UserSettings struct {
	UserID    int64
	Language  string
	Timezone  string
	CreatedAt time.Time
}

const (
	DefaultLanguage = "en"
	DefaultTimezone = "UTC"
)

// DefaultSettings are created alongside every new user.
func DefaultSettings(userID int64, now time.Time) UserSettings {
	return UserSettings{
		UserID:    userID,
		Language:  DefaultLanguage,
		Timezone:  DefaultTimezone,
		CreatedAt: now,
	}
}
