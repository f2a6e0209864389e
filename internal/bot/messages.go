package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"allinone_bot/internal/model"
	"allinone_bot/internal/timeparse"
)

const welcomeText = "👋 Привет! Я помогу тебе ничего не забыть.\n\n" +
	"Выбери раздел в меню ниже."

const alarmWelcomeText = "⏰ <b>Напоминания</b>\n\n" +
	"Я помогу тебе ничего не забыть!\n\n" +
	"<b>Создать напоминание:</b>\n" +
	"Просто напиши текст с указанием времени.\n\n" +
	"<b>Примеры:</b>\n" +
	"• \"Позвонить маме в 15:30\"\n" +
	"• \"Встреча через 2 часа\"\n" +
	"• \"Поливать цветы завтра в 9 утра\"\n\n" +
	"<i>Я пойму и отправлю напоминание вовремя! 🎯</i>"

const alarmCreateText = "✍️ <b>Создать напоминание</b>\n\n" +
	"Напиши текст напоминания с указанием времени.\n\n" +
	"<b>Примеры:</b>\n" +
	"• \"Позвонить маме в 15:30\"\n" +
	"• \"Встреча через 2 часа\"\n" +
	"• \"Купить хлеб завтра в 9 утра\"\n\n" +
	"<i>Я распознаю время и создам напоминание</i>"

const noTimeText = "❌ Не могу понять, когда напомнить\n\n" +
	"Попробуй указать время более явно:\n" +
	"• \"... в 15:30\"\n" +
	"• \"... через 2 часа\"\n" +
	"• \"... завтра в 9 утра\""

const pastTimeText = "❌ Это время уже прошло!\n\nУкажи время в будущем"

const notYoursText = "❌ Это не твоё напоминание"

const emptyListText = "📋 <b>Мои напоминания</b>\n\n" +
	"У тебя пока нет активных напоминаний.\n\n" +
	"Нажми \"Создать напоминание\" чтобы добавить!"

func createdText(text string, p timeparse.ParsedTime, now time.Time) string {
	return fmt.Sprintf(
		"✅ <b>Напоминание создано!</b>\n\n💭 \"%s\"\n\n⏰ Напомню: <b>%s</b>\n\n"+
			"<i>Распознано: \"%s\" (уверенность %d%%)</i>",
		html.EscapeString(text),
		timeparse.FormatUntil(p.Time, now),
		html.EscapeString(p.Matched),
		int(p.Confidence*100+0.5))
}

func voiceCreatedText(text string, p timeparse.ParsedTime, now time.Time) string {
	return fmt.Sprintf(
		"✅ <b>Голосовое напоминание создано!</b>\n\n🎤 Распознано: \"%s\"\n\n⏰ Напомню: <b>%s</b>",
		html.EscapeString(text),
		timeparse.FormatUntil(p.Time, now))
}

func listText(reminders []*model.Reminder, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Активные напоминания (%d)</b>\n\n", len(reminders))
	for i, r := range reminders {
		if i >= listButtonLimit {
			break
		}
		short := r.Text
		if len([]rune(short)) > 40 {
			short = string([]rune(short)[:40]) + "..."
		}
		fmt.Fprintf(&b, "%d. %s\n   ⏰ %s\n\n",
			i+1, html.EscapeString(short), timeparse.FormatUntil(r.DueAt, now))
	}
	return strings.TrimSpace(b.String())
}

func rescheduleText(r *model.Reminder, now time.Time) string {
	return fmt.Sprintf(
		"⏰ <b>Перенос напоминания</b>\n\n💭 \"%s\"\n\n📅 Текущее время: %s\n\n"+
			"<b>Введи новое время:</b>\n• \"в 18:00\"\n• \"через 3 часа\"\n• \"завтра в 10 утра\"\n\n"+
			"<i>Напиши новое время в чат</i>",
		html.EscapeString(r.Text), timeparse.FormatUntil(r.DueAt, now))
}

func rescheduledText(r *model.Reminder, due, now time.Time) string {
	return fmt.Sprintf(
		"✅ <b>Напоминание перенесено!</b>\n\n💭 \"%s\"\n\n⏰ Новое время: <b>%s</b>",
		html.EscapeString(r.Text), timeparse.FormatUntil(due, now))
}

func deletedText(r *model.Reminder) string {
	return fmt.Sprintf("🗑️ <b>Напоминание удалено</b>\n\n💭 \"%s\"", html.EscapeString(r.Text))
}
