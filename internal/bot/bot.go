// Package bot contains the Telegram update handlers for the reminder
// module: creating reminders from text and voice, listing, deleting and
// rescheduling them through inline keyboards.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"allinone_bot/internal/model"
	"allinone_bot/internal/speech"
	"allinone_bot/internal/store"
	"allinone_bot/internal/timeparse"
)

// errNotOwner rejects reschedule/delete attempts on someone else's
// reminder. Never reaches the user verbatim.
var errNotOwner = errors.New("reminder belongs to another user")

// Transcriber recognizes voice messages. Nil disables voice reminders.
type Transcriber interface {
	DownloadVoice(ctx context.Context, fileID string) ([]byte, error)
	Transcribe(ctx context.Context, audio []byte) (*speech.Transcription, error)
}

var deleteCommandWords = regexp.MustCompile(`(?i)удали|отмени|напоминание|встречу|про`)

type Bot struct {
	sender   Sender
	store    store.Store
	speech   Transcriber
	sessions *Sessions
	log      zerolog.Logger
	now      func() time.Time
}

func New(sender Sender, st store.Store, tr Transcriber, log zerolog.Logger) *Bot {
	return &Bot{
		sender:   sender,
		store:    st,
		speech:   tr,
		sessions: NewSessions(30 * time.Minute),
		log:      log.With().Str("component", "bot").Logger(),
		now:      time.Now,
	}
}

// HandleUpdate dispatches one incoming update. The update stream carries a
// closed set of request kinds: button presses, voice messages and text.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	switch {
	case u.CallbackQuery != nil:
		b.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.Voice != nil:
		b.handleVoice(ctx, u.Message)
	case u.Message != nil && u.Message.Text != "":
		b.handleText(ctx, u.Message)
	}
}

func (b *Bot) handleText(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil {
		return
	}
	userID := m.From.ID
	chatID := m.Chat.ID
	text := strings.TrimSpace(m.Text)

	b.rememberUser(ctx, m.From)

	if strings.HasPrefix(text, "/start") {
		b.sessions.SetMode(userID, ModeMainMenu)
		b.reply(chatID, welcomeText, mainMenuKeyboard())
		return
	}
	if strings.HasPrefix(text, "/") {
		return
	}

	sess := b.sessions.Get(userID)
	if sess.Mode != ModeAlarm {
		b.reply(chatID, "🤔 Не понял сообщение. Выбери раздел в меню 👇", mainMenuKeyboard())
		return
	}

	if sess.ReschedulingID != "" {
		b.handleRescheduleText(ctx, chatID, userID, sess.ReschedulingID, text)
		return
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "удали") || strings.Contains(lower, "отмени") {
		b.handleDeleteCommand(ctx, chatID, userID, text)
		return
	}

	b.createReminder(ctx, chatID, userID, text, "")
}

func (b *Bot) createReminder(ctx context.Context, chatID, userID int64, text, voiceFileID string) {
	now := b.now()

	parsed, ok := timeparse.Parse(text, now)
	if !ok {
		b.send(chatID, noTimeText)
		return
	}
	if !parsed.Time.After(now) {
		b.send(chatID, pastTimeText)
		return
	}

	r, err := b.store.CreateReminder(ctx, userID, text, parsed.Time, voiceFileID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("create reminder failed")
		b.send(chatID, "❌ Не удалось создать напоминание. Попробуй ещё раз")
		return
	}

	confirm := createdText(text, parsed, now)
	if voiceFileID != "" {
		confirm = voiceCreatedText(text, parsed, now)
	}
	b.reply(chatID, confirm, alarmMenuKeyboard())
	b.log.Info().Str("reminder", r.ID).Int64("user", userID).Time("due", parsed.Time).Msg("reminder created")
}

func (b *Bot) handleRescheduleText(ctx context.Context, chatID, userID int64, reminderID, text string) {
	now := b.now()

	parsed, ok := timeparse.Parse(text, now)
	if !ok {
		b.send(chatID, "❌ Не могу понять новое время\n\n"+
			"Попробуй указать более явно:\n• \"в 18:00\"\n• \"через 3 часа\"\n• \"завтра в 10 утра\"")
		return
	}
	if !parsed.Time.After(now) {
		b.send(chatID, pastTimeText)
		return
	}

	r, err := b.ownedReminder(ctx, reminderID, userID)
	if err != nil {
		b.sessions.FinishReschedule(userID)
		b.replyLookupError(chatID, err)
		return
	}
	if err := b.store.Reschedule(ctx, reminderID, parsed.Time); err != nil {
		b.sessions.FinishReschedule(userID)
		if errors.Is(err, store.ErrNotFound) {
			b.send(chatID, "❌ Напоминание не найдено")
			return
		}
		b.log.Error().Err(err).Str("reminder", reminderID).Msg("reschedule failed")
		b.send(chatID, "❌ Не удалось перенести напоминание")
		return
	}

	b.sessions.FinishReschedule(userID)
	b.reply(chatID, rescheduledText(r, parsed.Time, now), alarmMenuKeyboard())
	b.log.Info().Str("reminder", reminderID).Time("due", parsed.Time).Msg("reminder rescheduled")
}

// handleDeleteCommand serves the free-text forms: «удали последнее»,
// «отмени напоминание про хлеб».
func (b *Bot) handleDeleteCommand(ctx context.Context, chatID, userID int64, text string) {
	reminders, err := b.store.ActiveReminders(ctx, userID, b.now())
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("list active failed")
		b.send(chatID, "❌ Ошибка при удалении")
		return
	}
	if len(reminders) == 0 {
		b.send(chatID, "У тебя нет активных напоминаний для удаления")
		return
	}

	var target *model.Reminder
	if strings.Contains(strings.ToLower(text), "последн") {
		target = reminders[0]
	} else {
		keywords := strings.ToLower(strings.TrimSpace(deleteCommandWords.ReplaceAllString(text, "")))
		if len([]rune(keywords)) > 2 {
			for _, r := range reminders {
				if strings.Contains(strings.ToLower(r.Text), keywords) {
					target = r
					break
				}
			}
		}
	}
	if target == nil {
		b.reply(chatID, "🤔 Не могу найти такое напоминание\n\nНажми \"Мои напоминания\" чтобы увидеть список", alarmMenuKeyboard())
		return
	}

	if err := b.store.DeleteReminder(ctx, target.ID); err != nil {
		b.log.Error().Err(err).Str("reminder", target.ID).Msg("delete failed")
		b.send(chatID, "❌ Не удалось удалить напоминание")
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ <b>Удалено напоминание:</b>\n\n💭 \"%s\"\n⏰ %s",
		html.EscapeString(target.Text), timeparse.FormatUntil(target.DueAt, b.now())), alarmMenuKeyboard())
	b.log.Info().Str("reminder", target.ID).Int64("user", userID).Msg("reminder deleted by command")
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.From == nil || q.Message == nil {
		return
	}
	userID := q.From.ID
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	switch data := q.Data; {
	case data == cbMenuAlarm:
		b.sessions.SetMode(userID, ModeAlarm)
		b.edit(chatID, messageID, alarmWelcomeText, alarmMenuKeyboard())
		b.answer(q.ID, "")

	case data == cbBackToMenu:
		b.sessions.SetMode(userID, ModeMainMenu)
		b.edit(chatID, messageID, welcomeText, mainMenuKeyboard())
		b.answer(q.ID, "")

	case data == cbAlarmCreate:
		b.sessions.SetMode(userID, ModeAlarm)
		b.edit(chatID, messageID, alarmCreateText, cancelKeyboard(cbMenuAlarm))
		b.answer(q.ID, "")

	case data == cbAlarmList:
		b.showList(ctx, chatID, messageID, userID)
		b.answer(q.ID, "")

	case strings.HasPrefix(data, cbAlarmDelete):
		b.deleteByButton(ctx, q, strings.TrimPrefix(data, cbAlarmDelete))

	case strings.HasPrefix(data, cbAlarmMove):
		b.startReschedule(ctx, q, strings.TrimPrefix(data, cbAlarmMove))

	default:
		b.answer(q.ID, "")
	}
}

func (b *Bot) showList(ctx context.Context, chatID int64, messageID int, userID int64) {
	now := b.now()
	reminders, err := b.store.ActiveReminders(ctx, userID, now)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("list active failed")
		b.edit(chatID, messageID, "❌ Ошибка загрузки списка", alarmMenuKeyboard())
		return
	}
	if len(reminders) == 0 {
		b.edit(chatID, messageID, emptyListText, alarmMenuKeyboard())
		return
	}
	b.edit(chatID, messageID, listText(reminders, now), listKeyboard(reminders))
}

func (b *Bot) deleteByButton(ctx context.Context, q *tgbotapi.CallbackQuery, reminderID string) {
	r, err := b.ownedReminder(ctx, reminderID, q.From.ID)
	if err != nil {
		b.answer(q.ID, lookupErrorText(err))
		return
	}
	if err := b.store.DeleteReminder(ctx, reminderID); err != nil {
		b.log.Error().Err(err).Str("reminder", reminderID).Msg("delete failed")
		b.answer(q.ID, "❌ Не удалось удалить")
		return
	}
	b.answer(q.ID, "✅ Напоминание удалено")
	b.reply(q.Message.Chat.ID, deletedText(r), alarmMenuKeyboard())
	b.log.Info().Str("reminder", reminderID).Int64("user", q.From.ID).Msg("reminder deleted")
}

func (b *Bot) startReschedule(ctx context.Context, q *tgbotapi.CallbackQuery, reminderID string) {
	r, err := b.ownedReminder(ctx, reminderID, q.From.ID)
	if err != nil {
		b.answer(q.ID, lookupErrorText(err))
		return
	}
	b.sessions.StartReschedule(q.From.ID, reminderID)
	b.edit(q.Message.Chat.ID, q.Message.MessageID, rescheduleText(r, b.now()), cancelKeyboard(cbAlarmList))
	b.answer(q.ID, "")
}

func (b *Bot) handleVoice(ctx context.Context, m *tgbotapi.Message) {
	if m.From == nil || m.Voice == nil {
		return
	}
	userID := m.From.ID
	chatID := m.Chat.ID

	b.rememberUser(ctx, m.From)

	if b.speech == nil {
		b.send(chatID, "🎤 Распознавание голоса не настроено")
		return
	}

	audio, err := b.speech.DownloadVoice(ctx, m.Voice.FileID)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("voice download failed")
		b.send(chatID, "❌ Не удалось скачать голосовое сообщение")
		return
	}
	tr, err := b.speech.Transcribe(ctx, audio)
	if err != nil {
		b.log.Error().Err(err).Int64("user", userID).Msg("transcription failed")
		b.send(chatID, "❌ Не удалось распознать речь")
		return
	}
	b.log.Info().Int64("user", userID).Str("text", tr.Text).Msg("voice transcribed")

	if b.sessions.Get(userID).Mode != ModeAlarm {
		b.send(chatID, fmt.Sprintf("🎤 <b>Распознанный текст:</b>\n\n<i>\"%s\"</i>", html.EscapeString(tr.Text)))
		return
	}

	b.createReminder(ctx, chatID, userID, tr.Text, m.Voice.FileID)
}

// ownedReminder loads a reminder and verifies the requester owns it.
func (b *Bot) ownedReminder(ctx context.Context, id string, userID int64) (*model.Reminder, error) {
	r, err := b.store.ReminderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != userID {
		return nil, errNotOwner
	}
	return r, nil
}

func (b *Bot) rememberUser(ctx context.Context, from *tgbotapi.User) {
	u := &model.User{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
	}
	if err := b.store.UpsertUser(ctx, u); err != nil {
		b.log.Warn().Err(err).Int64("user", from.ID).Msg("user upsert failed")
	}
}

func lookupErrorText(err error) string {
	if errors.Is(err, errNotOwner) {
		return notYoursText
	}
	return "❌ Напоминание не найдено"
}

func (b *Bot) replyLookupError(chatID int64, err error) {
	b.send(chatID, lookupErrorText(err))
}

func (b *Bot) send(chatID int64, text string) {
	if err := b.sender.Send(chatID, text); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

func (b *Bot) reply(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if err := b.sender.SendWithKeyboard(chatID, text, kb); err != nil {
		b.log.Error().Err(err).Int64("chat", chatID).Msg("send failed")
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	if err := b.sender.Edit(chatID, messageID, text, kb); err != nil {
		b.log.Warn().Err(err).Int64("chat", chatID).Msg("edit failed")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if err := b.sender.AnswerCallback(callbackID, text); err != nil {
		b.log.Warn().Err(err).Msg("answer callback failed")
	}
}
