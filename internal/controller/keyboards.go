package controller

import (
	"fmt"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/service"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"github.com/go-telegram/bot/models"
)

// Форматы callback data
const (
	cbBookDay  = "book_day:"  // book_day:2006-01-02
	cbBookTime = "book_time:" // book_time:2006-01-02T15:04

	cbWeeklyDay  = "wk_day:"  // wk_day:1 (time.Weekday)
	cbWeeklyTime = "wk_time:" // wk_time:15:04

	cbCancelSingle = "cancel_b:" // cancel_b:booking_id
	cbCancelWeekly = "cancel_w:" // cancel_w:subscription_id

	cbReschedule     = "resch:"      // resch:booking_id
	cbRescheduleDay  = "resch_day:"  // resch_day:booking_id:2006-01-02
	cbRescheduleTime = "resch_time:" // resch_time:booking_id:2006-01-02T15:04

	cbEditBooking = "edit_b:" // edit_b:booking_id
)

const (
	dayLayout  = "2006-01-02"
	timeLayout = "2006-01-02T15:04"
)

// daysKeyboard — дни окна со свободными слотами, по три в ряд.
func daysKeyboard(days []service.DayCount, prefix string) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton
	for _, d := range days {
		row = append(row, models.InlineKeyboardButton{
			Text:         timetable.FormatDayRu(d.Day, d.Free),
			CallbackData: prefix + d.Day.Format(dayLayout),
		})
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// timesKeyboard — свободные времена дня в один ряд.
func timesKeyboard(times []time.Time, prefix string) *models.InlineKeyboardMarkup {
	var row []models.InlineKeyboardButton
	for _, t := range times {
		row = append(row, models.InlineKeyboardButton{
			Text:         t.Format("15:04"),
			CallbackData: prefix + t.Format(timeLayout),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// weekdaysKeyboard — будние дни для еженедельной записи.
func weekdaysKeyboard() *models.InlineKeyboardMarkup {
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	var row []models.InlineKeyboardButton
	for _, wd := range weekdays {
		row = append(row, models.InlineKeyboardButton{
			Text:         timetable.WeekdayRu(wd),
			CallbackData: fmt.Sprintf("%s%d", cbWeeklyDay, int(wd)),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// weeklyTimesKeyboard — времена шаблона для еженедельной записи; выбранный
// день недели едет внутри callback data.
func weeklyTimesKeyboard(tpl timetable.Template, weekday time.Weekday) *models.InlineKeyboardMarkup {
	var row []models.InlineKeyboardButton
	for _, h := range tpl.Hours {
		row = append(row, models.InlineKeyboardButton{
			Text:         h.String(),
			CallbackData: fmt.Sprintf("%s%d:%s", cbWeeklyTime, int(weekday), h.String()),
		})
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// reservationText — строка "моих записей" для одного бронирования.
func reservationText(r model.Reservation, loc *time.Location) string {
	switch r.Kind {
	case model.ReservationSingle:
		b := r.Single
		if at, ok := b.StartAt(); ok {
			return fmt.Sprintf("📅 %s — %s", timetable.FormatDtRu(at.In(loc)), b.StudentName)
		}
		return fmt.Sprintf("📅 Запись #%d — %s", b.ID, b.StudentName)
	case model.ReservationWeekly:
		w := r.Weekly
		return fmt.Sprintf("🔁 %s %s (еженедельно) — %s", timetable.WeekdayRu(w.GoWeekday()), w.TimeOfDay, w.StudentName)
	}
	return ""
}

// reservationCancelButton — кнопка отмены с правильным видом в callback.
func reservationCancelButton(r model.Reservation) models.InlineKeyboardButton {
	switch r.Kind {
	case model.ReservationWeekly:
		return models.InlineKeyboardButton{
			Text:         "❌ Отменить",
			CallbackData: fmt.Sprintf("%s%d", cbCancelWeekly, r.Weekly.ID),
		}
	default:
		return models.InlineKeyboardButton{
			Text:         "❌ Отменить",
			CallbackData: fmt.Sprintf("%s%d", cbCancelSingle, r.Single.ID),
		}
	}
}

// adminBookingKeyboard — действия администратора над бронированием.
func adminBookingKeyboard(bookingID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "🔀 Перенести", CallbackData: fmt.Sprintf("%s%d", cbReschedule, bookingID)},
			{Text: "✏️ Изменить", CallbackData: fmt.Sprintf("%s%d", cbEditBooking, bookingID)},
			{Text: "❌ Отменить", CallbackData: fmt.Sprintf("%s%d", cbCancelSingle, bookingID)},
		}},
	}
}
