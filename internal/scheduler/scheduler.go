// Package scheduler delivers due reminders. It polls the store on a fixed
// cadence and hands each due reminder to the notification channel, flagging
// it sent only after the channel confirmed delivery. A failed delivery is
// retried on the next tick, forever: the guarantee is at-least-once, a
// reminder is never dropped.
package scheduler

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"allinone_bot/internal/model"
)

// Notifier is the outbound channel, owned by the chat transport. Errors are
// reported, never panics.
type Notifier interface {
	Send(chatID int64, text string) error
}

// Store is the slice of the persistence contract the scheduler needs.
type Store interface {
	DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error)
	MarkSent(ctx context.Context, id string) error
	UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// fallbackName addresses the owner when the user lookup fails or the user
// never shared a name.
const fallbackName = "Господин"

type Scheduler struct {
	store       Store
	notifier    Notifier
	log         zerolog.Logger
	interval    time.Duration
	sendTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(st Store, n Notifier, interval, sendTimeout time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}
	return &Scheduler{
		store:       st,
		notifier:    n,
		log:         log.With().Str("component", "scheduler").Logger(),
		interval:    interval,
		sendTimeout: sendTimeout,
	}
}

// Start launches the polling loop: one immediate check, then one per tick.
// Starting an already-running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.log.Warn().Msg("scheduler already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
}

// Stop cancels future ticks and waits for an in-flight batch to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	s.checkOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkOnce()
		}
	}
}

// checkOnce processes one batch. It deliberately runs on a background
// context: Stop cancels the tick loop, not a batch already in flight.
func (s *Scheduler) checkOnce() {
	ctx := context.Background()
	now := time.Now()

	due, err := s.store.DueReminders(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("fetching due reminders failed, ending tick")
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Debug().Int("count", len(due)).Msg("due reminders found")

	for _, r := range due {
		if err := s.deliver(ctx, r); err != nil {
			// Not marked sent: the next tick retries it.
			s.log.Error().Err(err).Str("reminder", r.ID).Int64("owner", r.OwnerID).Msg("delivery failed")
			continue
		}
		if err := s.store.MarkSent(ctx, r.ID); err != nil {
			// Delivered but not flagged: the owner may see a duplicate on the
			// next tick. Acceptable under at-least-once.
			s.log.Error().Err(err).Str("reminder", r.ID).Msg("mark sent failed")
			continue
		}
		s.log.Info().Str("reminder", r.ID).Int64("owner", r.OwnerID).Msg("reminder sent")
	}
}

func (s *Scheduler) deliver(ctx context.Context, r *model.Reminder) error {
	msg := FormatMessage(s.resolveName(ctx, r.OwnerID), r.Text)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.notifier.Send(r.OwnerID, msg)
	}()

	select {
	case err := <-errCh:
		return err
	case <-sendCtx.Done():
		return fmt.Errorf("delivery timed out after %s", s.sendTimeout)
	}
}

// resolveName is best-effort: a failed user lookup must never block a
// delivery.
func (s *Scheduler) resolveName(ctx context.Context, ownerID int64) string {
	u, err := s.store.UserByTelegramID(ctx, ownerID)
	if err != nil {
		return fallbackName
	}
	if name := u.DisplayName(); name != "" {
		return name
	}
	return fallbackName
}

// FormatMessage builds the delivery payload: greeting plus the original
// reminder text, HTML-escaped for the transport.
func FormatMessage(name, text string) string {
	return fmt.Sprintf(
		"⏰ <b>Напоминание</b>\n\n%s, Вы просили напомнить:\n\n💭 <i>\"%s\"</i>",
		html.EscapeString(name), html.EscapeString(text))
}
