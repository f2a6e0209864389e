package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages over 4096 runes; stay below with headroom for
// HTML entities.
const maxMessageRunes = 3500

// Sender abstracts the outgoing side of the chat transport so handlers can
// be tested without a live bot.
type Sender interface {
	Send(chatID int64, text string) error
	SendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error
	Edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error
	AnswerCallback(callbackID, text string) error
}

type telegramSender struct {
	api *tgbotapi.BotAPI
}

// NewSender wraps a bot API client. All outgoing text is HTML-formatted,
// sanitized to valid UTF-8 and split into chunks Telegram accepts.
func NewSender(api *tgbotapi.BotAPI) Sender {
	return &telegramSender{api: api}
}

func (s *telegramSender) Send(chatID int64, text string) error {
	for _, part := range splitMessageText(strings.ToValidUTF8(text, " "), maxMessageRunes) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := s.api.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *telegramSender) SendWithKeyboard(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, strings.ToValidUTF8(text, " "))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = kb
	_, err := s.api.Send(msg)
	return err
}

func (s *telegramSender) Edit(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, strings.ToValidUTF8(text, " "), kb)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := s.api.Send(msg)
	return err
}

func (s *telegramSender) AnswerCallback(callbackID, text string) error {
	_, err := s.api.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// splitMessageText splits long text on newline boundaries where possible.
func splitMessageText(text string, maxRunes int) []string {
	r := []rune(text)
	if len(r) <= maxRunes {
		return []string{text}
	}

	parts := make([]string, 0, len(r)/maxRunes+1)
	for len(r) > maxRunes {
		split := maxRunes
		for i := maxRunes; i > maxRunes/2; i-- {
			if r[i] == '\n' {
				split = i + 1
				break
			}
		}
		parts = append(parts, strings.TrimSpace(string(r[:split])))
		r = r[split:]
	}
	if len(r) > 0 {
		parts = append(parts, strings.TrimSpace(string(r)))
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
