package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allinone_bot/internal/model"
	"allinone_bot/internal/store"
)

var ctx = context.Background()

func TestCreateAndGetReminder(t *testing.T) {
	s := New()
	due := time.Now().Add(time.Hour)

	r, err := s.CreateReminder(ctx, 100, "позвонить маме", due, "")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, int64(100), r.OwnerID)
	assert.False(t, r.Sent)

	got, err := s.ReminderByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "позвонить маме", got.Text)
	assert.True(t, got.DueAt.Equal(due))
}

func TestReminderByIDNotFound(t *testing.T) {
	_, err := New().ReminderByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDueRemindersOrderedAndFiltered(t *testing.T) {
	s := New()
	now := time.Now()

	late, err := s.CreateReminder(ctx, 1, "позже", now.Add(-time.Minute), "")
	require.NoError(t, err)
	early, err := s.CreateReminder(ctx, 2, "раньше", now.Add(-time.Hour), "")
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, 1, "в будущем", now.Add(time.Hour), "")
	require.NoError(t, err)
	sent, err := s.CreateReminder(ctx, 1, "уже отправлено", now.Add(-time.Hour), "")
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, sent.ID))

	due, err := s.DueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, early.ID, due[0].ID)
	assert.Equal(t, late.ID, due[1].ID)
}

func TestActiveRemindersPerOwner(t *testing.T) {
	s := New()
	now := time.Now()

	mine, err := s.CreateReminder(ctx, 1, "моё", now.Add(time.Hour), "")
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, 2, "чужое", now.Add(time.Hour), "")
	require.NoError(t, err)
	_, err = s.CreateReminder(ctx, 1, "просрочено", now.Add(-time.Hour), "")
	require.NoError(t, err)

	active, err := s.ActiveReminders(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, mine.ID, active[0].ID)
}

func TestActiveRemindersLimit(t *testing.T) {
	s := New()
	now := time.Now()
	for i := 0; i < store.ActiveLimit+10; i++ {
		_, err := s.CreateReminder(ctx, 1, "напоминание", now.Add(time.Duration(i+1)*time.Minute), "")
		require.NoError(t, err)
	}

	active, err := s.ActiveReminders(ctx, 1, now)
	require.NoError(t, err)
	assert.Len(t, active, store.ActiveLimit)
}

func TestMarkSentIdempotent(t *testing.T) {
	s := New()
	r, err := s.CreateReminder(ctx, 1, "x", time.Now().Add(-time.Minute), "")
	require.NoError(t, err)

	require.NoError(t, s.MarkSent(ctx, r.ID))
	require.NoError(t, s.MarkSent(ctx, r.ID))

	due, err := s.DueReminders(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	assert.ErrorIs(t, s.MarkSent(ctx, "missing"), store.ErrNotFound)
}

func TestReschedule(t *testing.T) {
	s := New()
	r, err := s.CreateReminder(ctx, 1, "x", time.Now().Add(time.Hour), "")
	require.NoError(t, err)

	newDue := time.Now().Add(2 * time.Hour)
	require.NoError(t, s.Reschedule(ctx, r.ID, newDue))

	got, err := s.ReminderByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, got.DueAt.Equal(newDue))

	assert.ErrorIs(t, s.Reschedule(ctx, "missing", newDue), store.ErrNotFound)
}

func TestRescheduleSentReminderRejected(t *testing.T) {
	s := New()
	r, err := s.CreateReminder(ctx, 1, "x", time.Now().Add(-time.Minute), "")
	require.NoError(t, err)
	require.NoError(t, s.MarkSent(ctx, r.ID))

	assert.ErrorIs(t, s.Reschedule(ctx, r.ID, time.Now().Add(time.Hour)), store.ErrNotFound)
}

func TestDeleteReminder(t *testing.T) {
	s := New()
	r, err := s.CreateReminder(ctx, 1, "x", time.Now().Add(time.Hour), "")
	require.NoError(t, err)

	require.NoError(t, s.DeleteReminder(ctx, r.ID))
	_, err = s.ReminderByID(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteReminder(ctx, r.ID), store.ErrNotFound)
}

func TestUpsertUserLastWriteWins(t *testing.T) {
	s := New()

	require.NoError(t, s.UpsertUser(ctx, &model.User{TelegramID: 100, FirstName: "Анна", Username: "anna"}))
	require.NoError(t, s.UpsertUser(ctx, &model.User{TelegramID: 100, FirstName: "Анна Петровна", Username: "anna_p"}))

	u, err := s.UserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Анна Петровна", u.FirstName)
	assert.Equal(t, "anna_p", u.Username)

	ids, err := s.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, ids)
}

func TestUserByTelegramIDNotFound(t *testing.T) {
	_, err := New().UserByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReturnedRemindersAreCopies(t *testing.T) {
	s := New()
	r, err := s.CreateReminder(ctx, 1, "оригинал", time.Now().Add(time.Hour), "")
	require.NoError(t, err)

	r.Text = "изменено снаружи"

	got, err := s.ReminderByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "оригинал", got.Text)
}
