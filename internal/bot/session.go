package bot

import (
	"sync"
	"time"
)

// Mode is the conversation mode a user is currently in.
type Mode string

const (
	ModeMainMenu Mode = "main_menu"
	ModeAlarm    Mode = "alarm"
)

// Session is the per-user conversation state: the active mode and, while a
// reschedule is pending, the id of the reminder being moved.
type Session struct {
	Mode           Mode
	ReschedulingID string

	touched time.Time
}

// Sessions keeps one session per user. Sessions idle longer than the TTL
// reset to the main menu on next access, so an abandoned reschedule flow
// cannot linger forever.
type Sessions struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[int64]*Session
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sessions{ttl: ttl, m: make(map[int64]*Session)}
}

func (s *Sessions) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getLocked(userID)
}

func (s *Sessions) SetMode(userID int64, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.Mode = mode
	if mode != ModeAlarm {
		sess.ReschedulingID = ""
	}
}

func (s *Sessions) StartReschedule(userID int64, reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.Mode = ModeAlarm
	sess.ReschedulingID = reminderID
}

func (s *Sessions) FinishReschedule(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getLocked(userID).ReschedulingID = ""
}

func (s *Sessions) getLocked(userID int64) *Session {
	sess, ok := s.m[userID]
	if !ok || time.Since(sess.touched) > s.ttl {
		sess = &Session{Mode: ModeMainMenu}
		s.m[userID] = sess
	}
	sess.touched = time.Now()
	return sess
}
