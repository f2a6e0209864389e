// Package timeparse turns free-form Russian text into an absolute reminder
// time: «позвонить маме в 15:30», «встреча через 2 часа», «полить цветы
// завтра в 9 утра». Parsing is pure: the reference moment is always passed
// in, nothing here touches the clock.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParsedTime is a successful parse. Confidence and Matched exist for
// explainability in the confirmation message, nothing downstream branches
// on them.
type ParsedTime struct {
	Time       time.Time
	Confidence float64
	Matched    string
}

// defaultHour is used when the text names a day but no time of day
// («напомни завтра»).
const defaultHour = 9

var (
	clockRe = regexp.MustCompile(`(?:в\s+)?(\d{1,2})[:.](\d{2})`)
	namedRe = regexp.MustCompile(`(?:в\s+)?(\d{1,2})\s*(утра|вечера|дня|часов|ночи)`)
	relRe   = regexp.MustCompile(`через\s+([0-9а-яё]+)\s*(часов|часа|час|минуту|минуты|минут)`)
	dayRe   = regexp.MustCompile(`послезавтра|завтра|сегодня`)
)

// Spelled-out amounts for the relative rule. Looked up as an exact token,
// never as a substring: «двадцать» must not match inside «двадцатьпять».
var wordAmounts = map[string]int{
	"один": 1, "одну": 1, "одна": 1,
	"два": 2, "две": 2,
	"три":         3,
	"четыре":      4,
	"пять":        5,
	"шесть":       6,
	"семь":        7,
	"восемь":      8,
	"девять":      9,
	"десять":      10,
	"одиннадцать": 11,
	"двенадцать":  12,
	"пятнадцать":  15,
	"двадцать":    20,
	"тридцать":    30,
	"сорок":       40,
	"пятьдесят":   50,
}

// Parse tries the recognition rules in fixed priority order and returns the
// first hit. The order is part of the contract: the relative-day rule could
// subsume the clock rule, but must stay last. A false result means the text
// carries no recognizable time expression; that is a normal outcome, not an
// error.
func Parse(text string, now time.Time) (ParsedTime, bool) {
	text = strings.ToLower(strings.TrimSpace(text))

	if p, ok := parseClock(text, now); ok {
		return p, true
	}
	if p, ok := parseNamed(text, now); ok {
		return p, true
	}
	if p, ok := parseRelative(text, now); ok {
		return p, true
	}
	if p, ok := parseDay(text, now); ok {
		return p, true
	}
	return ParsedTime{}, false
}

// parseClock handles exact times: «в 15:30», «9.05», «15:30».
func parseClock(text string, now time.Time) (ParsedTime, bool) {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return ParsedTime{}, false
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours > 23 || minutes > 59 {
		return ParsedTime{}, false
	}

	return ParsedTime{
		Time:       rollForward(atTimeOfDay(now, hours, minutes), now),
		Confidence: 0.9,
		Matched:    m[0],
	}, true
}

// parseNamed handles «в 9 утра», «7 вечера», «11 часов». The period word
// shifts the hour into 24-hour form; «утра» maps 12 to midnight.
func parseNamed(text string, now time.Time) (ParsedTime, bool) {
	m := namedRe.FindStringSubmatch(text)
	if m == nil {
		return ParsedTime{}, false
	}

	hours, _ := strconv.Atoi(m[1])
	switch m[2] {
	case "вечера", "ночи":
		if hours < 12 {
			hours += 12
		}
	case "утра":
		if hours == 12 {
			hours = 0
		}
	}
	if hours > 23 {
		return ParsedTime{}, false
	}

	return ParsedTime{
		Time:       rollForward(atTimeOfDay(now, hours, 0), now),
		Confidence: 0.85,
		Matched:    m[0],
	}, true
}

// parseRelative handles offsets: «через 2 часа», «через тридцать минут»,
// «через одну минуту». An amount that is neither digits nor a known word
// makes this rule fall through instead of failing the whole parse.
func parseRelative(text string, now time.Time) (ParsedTime, bool) {
	m := relRe.FindStringSubmatch(text)
	if m == nil {
		return ParsedTime{}, false
	}

	amount, ok := parseAmount(m[1])
	if !ok {
		return ParsedTime{}, false
	}

	var target time.Time
	if strings.HasPrefix(m[2], "час") {
		target = now.Add(time.Duration(amount) * time.Hour)
	} else {
		target = now.Add(time.Duration(amount) * time.Minute)
	}

	return ParsedTime{
		Time:       target,
		Confidence: 0.95,
		Matched:    m[0],
	}, true
}

func parseAmount(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		if n <= 0 {
			return 0, false
		}
		return n, true
	}
	n, ok := wordAmounts[token]
	return n, ok
}

// parseDay handles «сегодня», «завтра», «послезавтра», optionally followed
// by a time of day: «завтра в 9 утра», «послезавтра в 18:00». The inner
// rules roll a past time of day to tomorrow on their own; only the time of
// day is taken from them here, so the roll is never applied twice.
func parseDay(text string, now time.Time) (ParsedTime, bool) {
	loc := dayRe.FindStringIndex(text)
	if loc == nil {
		return ParsedTime{}, false
	}
	day := text[loc[0]:loc[1]]

	var offset int
	switch day {
	case "завтра":
		offset = 1
	case "послезавтра":
		offset = 2
	}

	rest := text[loc[1]:]
	inner, ok := parseClock(rest, now)
	if !ok {
		inner, ok = parseNamed(rest, now)
	}
	if ok {
		base := now.AddDate(0, 0, offset)
		return ParsedTime{
			Time:       atTimeOfDay(base, inner.Time.Hour(), inner.Time.Minute()),
			Confidence: 0.9,
			Matched:    day + " " + inner.Matched,
		}, true
	}

	base := now.AddDate(0, 0, offset)
	return ParsedTime{
		Time:       atTimeOfDay(base, defaultHour, 0),
		Confidence: 0.6,
		Matched:    day,
	}, true
}

func atTimeOfDay(day time.Time, hours, minutes int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hours, minutes, 0, 0, day.Location())
}

// rollForward moves a time of day that already passed today to the same
// time tomorrow.
func rollForward(target, now time.Time) time.Time {
	if !target.After(now) {
		return target.AddDate(0, 0, 1)
	}
	return target
}
