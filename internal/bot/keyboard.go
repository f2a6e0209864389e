package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"allinone_bot/internal/model"
)

const (
	cbMenuAlarm     = "menu_alarm"
	cbBackToMenu    = "back_to_menu"
	cbAlarmCreate   = "alarm_create"
	cbAlarmList     = "alarm_list"
	cbAlarmDelete   = "alarm_delete_"
	cbAlarmMove     = "alarm_reschedule_"
	listButtonLimit = 10
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Напоминания", cbMenuAlarm),
		),
	)
}

func alarmMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Создать напоминание", cbAlarmCreate),
			tgbotapi.NewInlineKeyboardButtonData("📋 Мои напоминания", cbAlarmList),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ В меню", cbBackToMenu),
		),
	)
}

func cancelKeyboard(target string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Отмена", target),
		),
	)
}

// listKeyboard builds a delete/reschedule button pair per shown reminder,
// then a back button.
func listKeyboard(reminders []*model.Reminder) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range reminders {
		if i >= listButtonLimit {
			break
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑️ Удалить #%d", i+1), cbAlarmDelete+r.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("⏰ Перенести #%d", i+1), cbAlarmMove+r.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", cbMenuAlarm),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
