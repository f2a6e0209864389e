// Package model holds the entities shared between the bot, the scheduler and
// the storage backends.
package model

import "time"

// Reminder is a one-time user-scheduled notification. The id is assigned by
// the store at creation and never changes afterwards.
type Reminder struct {
	ID          string
	OwnerID     int64
	Text        string
	DueAt       time.Time
	VoiceFileID string
	Sent        bool
	CreatedAt   time.Time
}

// Due reports whether the reminder should be delivered at the given moment.
func (r *Reminder) Due(now time.Time) bool {
	return !r.Sent && !r.DueAt.After(now)
}

// User is a Telegram user known to the bot. First name and username are
// whatever Telegram reported on last contact; either may be empty.
type User struct {
	TelegramID int64
	Username   string
	FirstName  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName picks the best available form of address for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
