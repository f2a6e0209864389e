package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allinone_bot/internal/speech"
	"allinone_bot/internal/store"
	"allinone_bot/internal/store/memory"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	edits   []sentMessage
	answers []string
	sendErr error
}

func (f *fakeSender) Send(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMessage{chatID, text})
	return nil
}

func (f *fakeSender) SendWithKeyboard(chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) error {
	return f.Send(chatID, text)
}

func (f *fakeSender) Edit(chatID int64, _ int, text string, _ tgbotapi.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sentMessage{chatID, text})
	return nil
}

func (f *fakeSender) AnswerCallback(_ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeSender) lastSent(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) lastEdit(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

func (f *fakeSender) lastAnswer(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.answers)
	return f.answers[len(f.answers)-1]
}

type fakeTranscriber struct {
	text          string
	downloadErr   error
	transcribeErr error
}

func (f *fakeTranscriber) DownloadVoice(context.Context, string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return []byte("ogg"), nil
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte) (*speech.Transcription, error) {
	if f.transcribeErr != nil {
		return nil, f.transcribeErr
	}
	return &speech.Transcription{Text: f.text, Confidence: 1}, nil
}

func newTestBot(tr Transcriber) (*Bot, *fakeSender, *memory.Store) {
	sender := &fakeSender{}
	st := memory.New()
	b := New(sender, st, tr, zerolog.Nop())
	b.now = func() time.Time { return testNow }
	return b, sender, st
}

func textUpdate(userID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, FirstName: "Анна", UserName: "anna"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}}
}

func voiceUpdate(userID int64, fileID string) tgbotapi.Update {
	u := textUpdate(userID, "")
	u.Message.Voice = &tgbotapi.Voice{FileID: fileID}
	return u
}

func callbackUpdate(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID, FirstName: "Анна"},
		Message: &tgbotapi.Message{MessageID: 5, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

var ctx = context.Background()

func TestStartShowsMainMenu(t *testing.T) {
	b, sender, st := newTestBot(nil)

	b.HandleUpdate(ctx, textUpdate(100, "/start"))

	assert.Contains(t, sender.lastSent(t).text, "Привет")

	// The user got remembered for future deliveries.
	u, err := st.UserByTelegramID(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Анна", u.FirstName)
}

func TestTextOutsideAlarmModeShowsMenu(t *testing.T) {
	b, sender, _ := newTestBot(nil)

	b.HandleUpdate(ctx, textUpdate(100, "позвонить маме в 15:30"))

	assert.Contains(t, sender.lastSent(t).text, "Выбери раздел")
}

func TestCreateReminderFromText(t *testing.T) {
	b, sender, st := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	b.HandleUpdate(ctx, textUpdate(100, "позвонить маме в 15:30"))

	msg := sender.lastSent(t)
	assert.Contains(t, msg.text, "Напоминание создано")
	assert.Contains(t, msg.text, "в 15:30")

	active, err := st.ActiveReminders(ctx, 100, testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "позвонить маме в 15:30", active[0].Text)
	assert.Equal(t, time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC), active[0].DueAt)
}

func TestCreateReminderNoTime(t *testing.T) {
	b, sender, st := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	b.HandleUpdate(ctx, textUpdate(100, "купить хлеба"))

	assert.Contains(t, sender.lastSent(t).text, "Не могу понять")
	active, err := st.ActiveReminders(ctx, 100, testNow)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCreateReminderPastTime(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	// «сегодня» defaults to 09:00, already past the noon reference.
	b.HandleUpdate(ctx, textUpdate(100, "напомни сегодня"))

	assert.Contains(t, sender.lastSent(t).text, "уже прошло")
}

func TestAlarmMenuCallback(t *testing.T) {
	b, sender, _ := newTestBot(nil)

	b.HandleUpdate(ctx, callbackUpdate(100, cbMenuAlarm))

	assert.Contains(t, sender.lastEdit(t).text, "Напоминания")
	assert.Equal(t, ModeAlarm, b.sessions.Get(100).Mode)
}

func TestListCallbackEmpty(t *testing.T) {
	b, sender, _ := newTestBot(nil)

	b.HandleUpdate(ctx, callbackUpdate(100, cbAlarmList))

	assert.Contains(t, sender.lastEdit(t).text, "нет активных напоминаний")
}

func TestListCallbackShowsReminders(t *testing.T) {
	b, sender, st := newTestBot(nil)
	_, err := st.CreateReminder(ctx, 100, "полить цветы", testNow.Add(time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, callbackUpdate(100, cbAlarmList))

	edit := sender.lastEdit(t)
	assert.Contains(t, edit.text, "Активные напоминания (1)")
	assert.Contains(t, edit.text, "полить цветы")
}

func TestDeleteCallback(t *testing.T) {
	b, sender, st := newTestBot(nil)
	r, err := st.CreateReminder(ctx, 100, "удалить меня", testNow.Add(time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, callbackUpdate(100, cbAlarmDelete+r.ID))

	assert.Contains(t, sender.lastAnswer(t), "удалено")
	_, err = st.ReminderByID(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCallbackRejectsForeignReminder(t *testing.T) {
	b, sender, st := newTestBot(nil)
	r, err := st.CreateReminder(ctx, 100, "чужое", testNow.Add(time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, callbackUpdate(200, cbAlarmDelete+r.ID))

	assert.Equal(t, notYoursText, sender.lastAnswer(t))
	_, err = st.ReminderByID(ctx, r.ID)
	assert.NoError(t, err, "foreign reminder must survive")
}

func TestRescheduleFlow(t *testing.T) {
	b, sender, st := newTestBot(nil)
	r, err := st.CreateReminder(ctx, 100, "встреча", testNow.Add(time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, callbackUpdate(100, cbAlarmMove+r.ID))
	assert.Contains(t, sender.lastEdit(t).text, "Перенос напоминания")
	assert.Equal(t, r.ID, b.sessions.Get(100).ReschedulingID)

	b.HandleUpdate(ctx, textUpdate(100, "в 20:00"))

	assert.Contains(t, sender.lastSent(t).text, "перенесено")
	assert.Empty(t, b.sessions.Get(100).ReschedulingID)

	got, err := st.ReminderByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 10, 20, 0, 0, 0, time.UTC), got.DueAt)
}

func TestRescheduleRejectsForeignReminder(t *testing.T) {
	b, sender, st := newTestBot(nil)
	r, err := st.CreateReminder(ctx, 100, "чужое", testNow.Add(time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, callbackUpdate(200, cbAlarmMove+r.ID))

	assert.Equal(t, notYoursText, sender.lastAnswer(t))
	assert.Empty(t, b.sessions.Get(200).ReschedulingID)

	got, err := st.ReminderByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), got.DueAt, "dueAt must be unchanged")
}

func TestDeleteLastByPhrase(t *testing.T) {
	b, sender, st := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	soon, err := st.CreateReminder(ctx, 100, "скоро", testNow.Add(time.Hour), "")
	require.NoError(t, err)
	later, err := st.CreateReminder(ctx, 100, "позже", testNow.Add(2*time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, textUpdate(100, "удали последнее напоминание"))

	assert.Contains(t, sender.lastSent(t).text, "Удалено")
	_, err = st.ReminderByID(ctx, soon.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ReminderByID(ctx, later.ID)
	assert.NoError(t, err)
}

func TestDeleteByKeyword(t *testing.T) {
	b, sender, st := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	bread, err := st.CreateReminder(ctx, 100, "купить хлеб", testNow.Add(time.Hour), "")
	require.NoError(t, err)
	call, err := st.CreateReminder(ctx, 100, "позвонить маме", testNow.Add(2*time.Hour), "")
	require.NoError(t, err)

	b.HandleUpdate(ctx, textUpdate(100, "отмени напоминание про хлеб"))

	assert.Contains(t, sender.lastSent(t).text, "Удалено")
	_, err = st.ReminderByID(ctx, bread.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.ReminderByID(ctx, call.ID)
	assert.NoError(t, err)
}

func TestDeletePhraseNothingToDelete(t *testing.T) {
	b, sender, _ := newTestBot(nil)
	b.sessions.SetMode(100, ModeAlarm)

	b.HandleUpdate(ctx, textUpdate(100, "удали последнее"))

	assert.Contains(t, sender.lastSent(t).text, "нет активных напоминаний")
}

func TestVoiceReminderCreated(t *testing.T) {
	b, sender, st := newTestBot(&fakeTranscriber{text: "позвонить маме через 2 часа"})
	b.sessions.SetMode(100, ModeAlarm)

	b.HandleUpdate(ctx, voiceUpdate(100, "voice-file-1"))

	assert.Contains(t, sender.lastSent(t).text, "Голосовое напоминание создано")

	active, err := st.ActiveReminders(ctx, 100, testNow)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "voice-file-1", active[0].VoiceFileID)
	assert.Equal(t, testNow.Add(2*time.Hour), active[0].DueAt)
}

func TestVoiceOutsideAlarmModeEchoesText(t *testing.T) {
	b, sender, st := newTestBot(&fakeTranscriber{text: "просто заметка"})

	b.HandleUpdate(ctx, voiceUpdate(100, "voice-file-1"))

	assert.Contains(t, sender.lastSent(t).text, "просто заметка")
	active, err := st.ActiveReminders(ctx, 100, testNow)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestVoiceWithoutTranscriber(t *testing.T) {
	b, sender, _ := newTestBot(nil)

	b.HandleUpdate(ctx, voiceUpdate(100, "voice-file-1"))

	assert.Contains(t, sender.lastSent(t).text, "не настроено")
}

func TestVoiceTranscriptionError(t *testing.T) {
	b, sender, _ := newTestBot(&fakeTranscriber{transcribeErr: errors.New("whisper down")})
	b.sessions.SetMode(100, ModeAlarm)

	b.HandleUpdate(ctx, voiceUpdate(100, "voice-file-1"))

	assert.Contains(t, sender.lastSent(t).text, "Не удалось распознать")
}

func TestSplitMessageText(t *testing.T) {
	assert.Equal(t, []string{"короткий"}, splitMessageText("короткий", 100))

	long := ""
	for i := 0; i < 30; i++ {
		long += "строка с текстом\n"
	}
	parts := splitMessageText(long, 100)
	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), 100)
		assert.NotEmpty(t, p)
	}
}
