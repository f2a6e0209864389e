// Package sqlite implements the store on an embedded single-file database.
// It is the default backend when no Postgres host is configured.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"allinone_bot/internal/model"
	"allinone_bot/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id INTEGER PRIMARY KEY,
	username    TEXT NOT NULL DEFAULT '',
	first_name  TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reminders (
	id            TEXT PRIMARY KEY,
	user_id       INTEGER NOT NULL,
	text          TEXT NOT NULL,
	reminder_time INTEGER NOT NULL,
	voice_file_id TEXT NOT NULL DEFAULT '',
	is_sent       INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (is_sent, reminder_time);
CREATE INDEX IF NOT EXISTS idx_reminders_owner ON reminders (user_id);
`

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database file, enables WAL and foreign keys,
// and bootstraps the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if _, err := db.Exec(schema); err != nil {
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
		CreatedAt:   time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (id, user_id, text, reminder_time, voice_file_id, is_sent, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)`,
		r.ID, r.OwnerID, r.Text, r.DueAt.Unix(), r.VoiceFileID, r.CreatedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}
	return r, nil
}

func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]*model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, text, reminder_time, voice_file_id, is_sent, created_at
		FROM reminders
		WHERE is_sent = 0 AND reminder_time <= ?
		ORDER BY reminder_time ASC`,
		now.Unix())
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
		WHERE user_id = ? AND is_sent = 0 AND reminder_time > ?
		ORDER BY reminder_time ASC
		LIMIT ?`,
		ownerID, now.Unix(), store.ActiveLimit)
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET is_sent = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) Reschedule(ctx context.Context, id string, dueAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reminders SET reminder_time = ? WHERE id = ? AND is_sent = 0`,
		dueAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("reschedule: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ReminderByID(ctx context.Context, id string) (*model.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, text, reminder_time, voice_file_id, is_sent, created_at
		FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (s *Store) UpsertUser(ctx context.Context, u *model.User) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			updated_at = excluded.updated_at`,
		u.TelegramID, u.Username, u.FirstName, now, now)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var (
		u                  model.User
		createdAt, updated int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT telegram_id, username, first_name, created_at, updated_at
		FROM users WHERE telegram_id = ?`, telegramID).
		Scan(&u.TelegramID, &u.Username, &u.FirstName, &createdAt, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	u.UpdatedAt = time.Unix(updated, 0)
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
	var (
		r            model.Reminder
		due, created int64
		sent         int
	)
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Text, &due, &r.VoiceFileID, &sent, &created); err != nil {
		return nil, err
	}
	r.DueAt = time.Unix(due, 0)
	r.CreatedAt = time.Unix(created, 0)
	r.Sent = sent != 0
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
