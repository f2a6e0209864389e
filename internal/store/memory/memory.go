// Package memory is the in-process fallback store. The bot switches to it
// when the configured database cannot be reached at startup; nothing here
// survives a restart, which the caller is expected to warn about.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"allinone_bot/internal/model"
	"allinone_bot/internal/store"
)

type Store struct {
	mu        sync.RWMutex
	reminders map[string]*model.Reminder
	users     map[int64]*model.User
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		reminders: make(map[string]*model.Reminder),
		users:     make(map[int64]*model.User),
	}
}

func (s *Store) CreateReminder(_ context.Context, ownerID int64, text string, dueAt time.Time, voiceFileID string) (*model.Reminder, error) {
	r := &model.Reminder{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Text:        text,
		DueAt:       dueAt,
		VoiceFileID: voiceFileID,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.reminders[r.ID] = r
	s.mu.Unlock()

	out := *r
	return &out, nil
}

func (s *Store) DueReminders(_ context.Context, now time.Time) ([]*model.Reminder, error) {
	s.mu.RLock()
	out := make([]*model.Reminder, 0)
	for _, r := range s.reminders {
		if r.Due(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	return out, nil
}

func (s *Store) ActiveReminders(_ context.Context, ownerID int64, now time.Time) ([]*model.Reminder, error) {
	s.mu.RLock()
	out := make([]*model.Reminder, 0)
	for _, r := range s.reminders {
		if r.OwnerID == ownerID && !r.Sent && r.DueAt.After(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if len(out) > store.ActiveLimit {
		out = out[:store.ActiveLimit]
	}
	return out, nil
}

func (s *Store) MarkSent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Sent = true
	return nil
}

func (s *Store) Reschedule(_ context.Context, id string, dueAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reminders[id]
	if !ok || r.Sent {
		return store.ErrNotFound
	}
	r.DueAt = dueAt
	return nil
}

func (s *Store) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reminders[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reminders, id)
	return nil
}

func (s *Store) ReminderByID(_ context.Context, id string) (*model.Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// UpsertUser keeps one record per telegram id, last write wins.
func (s *Store) UpsertUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.users[u.TelegramID]; ok {
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.UpdatedAt = now
		return nil
	}
	cp := *u
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.users[u.TelegramID] = &cp
	return nil
}

func (s *Store) UserByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[telegramID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	out := make([]int64, 0, len(users))
	for _, u := range users {
		out = append(out, u.TelegramID)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }
