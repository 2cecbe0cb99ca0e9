package booking

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseHHMM разбирает строку вида "09:30" в минуты с начала суток.
func ParseHHMM(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("неверный формат времени %q, ожидается HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("неверный час в %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("неверные минуты в %q", s)
	}
	return hours*60 + minutes, nil
}

// CombineDateTime собирает момент времени из календарной даты и строки "HH:MM".
// В схеме дата и время хранятся раздельно, поэтому для сравнения с "сейчас"
// их приходится склеивать вручную. При пустом или кривом времени берётся fallback.
func CombineDateTime(date time.Time, hhmm string, fallback string) time.Time {
	total, err := ParseHHMM(hhmm)
	if err != nil {
		total, _ = ParseHHMM(fallback)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), total/60, total%60, 0, 0, time.Local)
}

// TruncateToDate обрезает момент времени до локальной календарной даты.
func TruncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// DateString форматирует дату для SQL-сравнения с колонкой типа date.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}
