package timetable

import (
	"fmt"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
)

const minutesPerWeek = 7 * 24 * 60

// TimeOfDay — время занятия внутри дня.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay разбирает строку вида "15:00".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Template — фиксированный шаблон бронируемого времени: список времён
// внутри дня плюс фильтр по классу дня (только будни). Конфигурация,
// а не пользовательское состояние.
type Template struct {
	Hours        []TimeOfDay
	WeekdaysOnly bool
}

// ParseTemplate собирает шаблон из строк конфига ("15:00,17:00,19:00").
func ParseTemplate(hours []string, weekdaysOnly bool) (Template, error) {
	tpl := Template{WeekdaysOnly: weekdaysOnly}
	for _, h := range hours {
		t, err := ParseTimeOfDay(h)
		if err != nil {
			return Template{}, err
		}
		tpl.Hours = append(tpl.Hours, t)
	}
	if len(tpl.Hours) == 0 {
		return Template{}, fmt.Errorf("lesson hours template is empty")
	}
	return tpl, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Candidates возвращает все кандидатные времена окна в порядке возрастания,
// без учёта занятости. Чистая функция от (точка отсчёта, длина окна,
// шаблон); фильтрацию по ">= сейчас" делает вызывающий.
func (tpl Template) Candidates(from time.Time, days int) []time.Time {
	day := startOfDay(from)
	var out []time.Time
	for i := 0; i < days; i++ {
		d := day.AddDate(0, 0, i)
		if tpl.WeekdaysOnly && isWeekend(d) {
			continue
		}
		for _, h := range tpl.Hours {
			out = append(out, time.Date(d.Year(), d.Month(), d.Day(), h.Hour, h.Minute, 0, 0, d.Location()))
		}
	}
	return out
}

// DayCandidates возвращает кандидатные времена одного дня.
func (tpl Template) DayCandidates(day time.Time) []time.Time {
	if tpl.WeekdaysOnly && isWeekend(day) {
		return nil
	}
	var out []time.Time
	for _, h := range tpl.Hours {
		out = append(out, time.Date(day.Year(), day.Month(), day.Day(), h.Hour, h.Minute, 0, 0, day.Location()))
	}
	return out
}

// ProjectWeekly проецирует еженедельную запись на конкретные даты окна
// [начало дня now; +days). Время сегодняшнего дня, которое уже прошло,
// не занимает сегодняшний слот — только следующую неделю.
func ProjectWeekly(weekday time.Weekday, hour, minute int, now time.Time, days int) []time.Time {
	day := startOfDay(now)
	var out []time.Time
	for i := 0; i < days; i++ {
		d := day.AddDate(0, 0, i)
		if d.Weekday() != weekday {
			continue
		}
		t := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location())
		if t.Before(now) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// BusySet — множество занятых времён. Ключ — unix-секунды, чтобы
// сравнение не зависело от зоны и monotonic clock в time.Time.
type BusySet map[int64]struct{}

func (s BusySet) Add(t time.Time) {
	s[t.Unix()] = struct{}{}
}

func (s BusySet) Has(t time.Time) bool {
	_, ok := s[t.Unix()]
	return ok
}

// BuildBusySet объединяет два источника занятости: времена слотов с
// активными разовыми бронированиями и проекции активных еженедельных
// записей на окно. Пересчитывается на каждый запрос: любое бронирование,
// отмена или перенос меняет состав множества.
func BuildBusySet(singleStarts []time.Time, subs []*model.WeeklySubscription, now time.Time, days int) (BusySet, error) {
	busy := make(BusySet, len(singleStarts))
	for _, t := range singleStarts {
		busy.Add(t)
	}
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		hour, minute, err := sub.Clock()
		if err != nil {
			return nil, fmt.Errorf("weekly subscription %d: %w", sub.ID, err)
		}
		for _, t := range ProjectWeekly(sub.GoWeekday(), hour, minute, now, days) {
			busy.Add(t)
		}
	}
	return busy, nil
}

// ShiftWeekday сдвигает пару (день недели, время) назад на offset минут
// с заёмом через полночь и границу недели. Отрицательные сдвиги и сдвиги
// от недели и больше не имеют смысла для напоминаний и отклоняются.
func ShiftWeekday(weekday time.Weekday, hour, minute, offsetMin int) (time.Weekday, int, int, error) {
	if offsetMin < 0 {
		return 0, 0, 0, fmt.Errorf("negative reminder offset %d", offsetMin)
	}
	if offsetMin >= minutesPerWeek {
		return 0, 0, 0, fmt.Errorf("reminder offset %d spans a week or more", offsetMin)
	}
	total := int(weekday)*24*60 + hour*60 + minute - offsetMin
	total = ((total % minutesPerWeek) + minutesPerWeek) % minutesPerWeek
	rem := total % (24 * 60)
	return time.Weekday(total / (24 * 60)), rem / 60, rem % 60, nil
}
