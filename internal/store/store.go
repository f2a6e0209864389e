// Package store defines the persistence contract shared by the bot handlers
// and the reminder scheduler. Implementations live under store/<driver>/
// (postgres, sqlite, memory).
package store

import (
	"context"
	"errors"
	"time"

	"allinone_bot/internal/model"
)

// ActiveLimit caps how many upcoming reminders a listing returns per user.
const ActiveLimit = 50

var (
	// ErrNotFound is returned when the referenced reminder or user does not
	// exist (or was already removed).
	ErrNotFound = errors.New("store: not found")

	// ErrUnavailable signals a transient infrastructure failure. Callers must
	// not crash on it: they degrade to the in-memory fallback or report a
	// soft failure to the user and let them retry.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the single shared mutable resource between the message-handling
// path and the scheduler. All operations must be safe for concurrent use.
type Store interface {
	Reminders
	Users

	Close() error
}

// Reminders covers the reminder lifecycle: created on a successful parse,
// rescheduled or deleted by the owner, flagged sent by the scheduler.
type Reminders interface {
	// CreateReminder persists a new pending reminder and assigns its id.
	CreateReminder(ctx context.Context, ownerID int64, text string, dueAt time.Time, voiceFileID string) (*model.Reminder, error)

	// DueReminders returns every unsent reminder with dueAt <= now, earliest
	// first. The scheduler relies on that ordering.
	DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error)

	// ActiveReminders returns the owner's unsent future reminders, soonest
	// first, capped at ActiveLimit.
	ActiveReminders(ctx context.Context, ownerID int64, now time.Time) ([]*model.Reminder, error)

	// MarkSent flips the sent flag. Marking an already-sent reminder is a
	// no-op, not an error.
	MarkSent(ctx context.Context, id string) error

	// Reschedule moves an unsent reminder to a new due time. Returns
	// ErrNotFound for unknown or already-sent reminders.
	Reschedule(ctx context.Context, id string, dueAt time.Time) error

	// DeleteReminder removes a reminder. Returns ErrNotFound if it does not
	// exist.
	DeleteReminder(ctx context.Context, id string) error

	// ReminderByID fetches a single reminder or ErrNotFound.
	ReminderByID(ctx context.Context, id string) (*model.Reminder, error)
}

// Users is the registry the scheduler consults to address the owner by name.
type Users interface {
	// UpsertUser inserts the user or refreshes username/first name on repeat
	// contact.
	UpsertUser(ctx context.Context, u *model.User) error

	// UserByTelegramID fetches a user or ErrNotFound.
	UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// UserIDs lists every known user id, oldest first. Used by the broadcast
	// tool.
	UserIDs(ctx context.Context) ([]int64, error)
}
