package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WeeklySubscription — еженедельная запись: занятие повторяется каждую
// неделю в (weekday, time_of_day) до деактивации. Календарной даты у неё
// нет, занятость вычисляется проекцией на конкретные даты окна.
// Удаление мягкое (is_active=false): история и связь с серией событий
// календаря должны переживать отмену.
type WeeklySubscription struct {
	ID             int64     `json:"id"`
	SeriesID       uuid.UUID `json:"series_id"`
	UserID         int64     `json:"user_id"`
	StudentName    string    `json:"student_name"`
	StudentContact string    `json:"student_contact"`
	Weekday        int       `json:"weekday"` // 0 = Sunday, 6 = Saturday
	TimeOfDay      string    `json:"time_of_day"` // "HH:MM"
	DurationMin    int       `json:"duration_min"`
	GcalEventID    *string   `json:"gcal_event_id"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clock разбирает time_of_day на часы и минуты.
func (w *WeeklySubscription) Clock() (hour, minute int, err error) {
	if _, err = fmt.Sscanf(w.TimeOfDay, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("parse time of day %q: %w", w.TimeOfDay, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("time of day %q out of range", w.TimeOfDay)
	}
	return hour, minute, nil
}

func (w *WeeklySubscription) GoWeekday() time.Weekday {
	return time.Weekday(w.Weekday)
}
