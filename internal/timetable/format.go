package timetable

import (
	"fmt"
	"time"
)

var daysRuShort = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

var daysRuFull = [...]string{
	"Воскресенье", "Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота",
}

// DayShortRu — короткое русское имя дня недели ("Пн").
func DayShortRu(t time.Time) string {
	return daysRuShort[int(t.Weekday())]
}

// WeekdayRu — полное русское имя дня недели.
func WeekdayRu(wd time.Weekday) string {
	return daysRuFull[int(wd)]
}

// FormatDayRu — "Пн 02.01", с количеством свободных слотов в скобках.
func FormatDayRu(d time.Time, count int) string {
	base := fmt.Sprintf("%s %s", DayShortRu(d), d.Format("02.01"))
	if count > 0 {
		return fmt.Sprintf("%s (%d)", base, count)
	}
	return base
}

// FormatDtRu — "Пн 02.01 15:00".
func FormatDtRu(t time.Time) string {
	return fmt.Sprintf("%s %s", DayShortRu(t), t.Format("02.01 15:04"))
}
