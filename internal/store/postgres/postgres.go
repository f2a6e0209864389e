// Package postgres implements the store on PostgreSQL via the pgx stdlib
// driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"allinone_bot/internal/model"
	"allinone_bot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id BIGINT PRIMARY KEY,
	username    TEXT NOT NULL DEFAULT '',
	first_name  TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS reminders (
	id            TEXT PRIMARY KEY,
	user_id       BIGINT NOT NULL,
	text          TEXT NOT NULL,
	reminder_time TIMESTAMPTZ NOT NULL,
	voice_file_id TEXT NOT NULL DEFAULT '',
	is_sent       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (is_sent, reminder_time);
CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders (user_id);
`

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to PostgreSQL, verifies connectivity and bootstraps the
// schema. A connection failure maps to store.ErrUnavailable so the caller
// can fall back to the in-memory store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateReminder(ctx context.Context, ownerID int64, text string, dueAt time.Time, voiceFileID string) (*model.Reminder, error) {
	r := &model.Reminder{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Text:        text,
		DueAt:       dueAt,
		VoiceFileID: voiceFileID,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reminders (id, user_id, text, reminder_time, voice_file_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		r.ID, r.OwnerID, r.Text, r.DueAt, r.VoiceFileID).Scan(&r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, text, reminder_time, voice_file_id, is_sent, created_at
		FROM reminders
		WHERE is_sent = FALSE AND reminder_time <= $1
		ORDER BY reminder_time ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *Store) ActiveReminders(ctx context.Context, ownerID int64, now time.Time) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, text, reminder_time, voice_file_id, is_sent, created_at
		FROM reminders
		WHERE user_id = $1 AND is_sent = FALSE AND reminder_time > $2
		ORDER BY reminder_time ASC
		LIMIT $3`,
		ownerID, now, store.ActiveLimit)
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET is_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) Reschedule(ctx context.Context, id string, dueAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET reminder_time = $1 WHERE id = $2 AND is_sent = FALSE`,
		dueAt, id)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ReminderByID(ctx context.Context, id string) (*model.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, text, reminder_time, voice_file_id, is_sent, created_at
		FROM reminders WHERE id = $1`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			updated_at = now()`,
		u.TelegramID, u.Username, u.FirstName)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT telegram_id, username, first_name, created_at, updated_at
		FROM users WHERE telegram_id = $1`, telegramID).
		Scan(&u.TelegramID, &u.Username, &u.FirstName, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT telegram_id FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*model.Reminder, error) {
	var r model.Reminder
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Text, &r.DueAt, &r.VoiceFileID, &r.Sent, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]*model.Reminder, error) {
	var out []*model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
