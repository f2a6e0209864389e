package timeparse

import (
	"fmt"
	"time"
)

var monthsGenitive = [...]string{
	time.January:   "января",
	time.February:  "февраля",
	time.March:     "марта",
	time.April:     "апреля",
	time.May:       "мая",
	time.June:      "июня",
	time.July:      "июля",
	time.August:    "августа",
	time.September: "сентября",
	time.October:   "октября",
	time.November:  "ноября",
	time.December:  "декабря",
}

// FormatUntil renders a due time relative to now for confirmation messages:
// «через 42 мин. (15:30)», «через 2 ч. 10 мин. (18:00)», «5 марта в 09:00».
func FormatUntil(due, now time.Time) string {
	diff := due.Sub(now)
	hours := int(diff / time.Hour)
	minutes := int(diff%time.Hour) / int(time.Minute)
	clock := due.Format("15:04")

	switch {
	case hours < 1:
		return fmt.Sprintf("через %d мин. (%s)", minutes, clock)
	case hours < 24:
		return fmt.Sprintf("через %d ч. %d мин. (%s)", hours, minutes, clock)
	default:
		return fmt.Sprintf("%d %s в %s", due.Day(), monthsGenitive[due.Month()], clock)
	}
}
