package users

import (
	"strings"
	"time"
)

// User is an application account bound to exactly one Telegram account.
type User struct {
	ID         string    `json:"id,omitempty"`         // Unique identifier for the user
	TelegramID string    `json:"telegramId"`           // Telegram account id, unique per user
	Username   string    `json:"username,omitempty"`   // Telegram @username without the @
	FirstName  string    `json:"firstName,omitempty"`  // First name of the user
	LastName   string    `json:"lastName,omitempty"`   // Last name of the user
	PhotoURL   string    `json:"photoUrl,omitempty"`   // Telegram profile photo
	DateJoined time.Time `json:"dateJoined,omitempty"` // Date and time of the first login
	LastLogin  time.Time `json:"lastLogin,omitempty"`  // Last time the user logged in
}

// Profile is the Telegram supplied part of a user, refreshed on every login.
type Profile struct {
	TelegramID string
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// DisplayName returns the best available human readable name
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.TelegramID
}

// ApplyLogin refreshes the profile fields and records the login time. DateJoined is only
// set on the first login.
func (u *User) ApplyLogin(p Profile, now time.Time) {
	u.TelegramID = p.TelegramID
	u.Username = p.Username
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.PhotoURL = p.PhotoURL
	if u.DateJoined.IsZero() {
		u.DateJoined = now
	}
	u.LastLogin = now
}
