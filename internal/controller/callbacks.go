package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/controller/state"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (c *BotController) answerCallback(ctx context.Context, callbackID, text string) {
	c.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
}

func callbackChatID(callback *models.CallbackQuery) int64 {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID
	}
	// личный чат: id чата совпадает с id пользователя
	return callback.From.ID
}

// handleCallback распределяет нажатия inline кнопок по обработчикам.
func (c *BotController) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	callback := update.CallbackQuery
	data := callback.Data

	c.logger.Info("Routing callback",
		zap.String("data", data),
		zap.Int64("user_id", callback.From.ID),
	)

	switch {
	case strings.HasPrefix(data, cbBookDay):
		c.handleBookDay(ctx, callback, strings.TrimPrefix(data, cbBookDay))
	case strings.HasPrefix(data, cbBookTime):
		c.handleBookTime(ctx, callback, strings.TrimPrefix(data, cbBookTime))
	case strings.HasPrefix(data, cbWeeklyDay):
		c.handleWeeklyDay(ctx, callback, strings.TrimPrefix(data, cbWeeklyDay))
	case strings.HasPrefix(data, cbWeeklyTime):
		c.handleWeeklyTime(ctx, callback, strings.TrimPrefix(data, cbWeeklyTime))
	case strings.HasPrefix(data, cbCancelSingle):
		c.handleCancelSingle(ctx, callback, strings.TrimPrefix(data, cbCancelSingle))
	case strings.HasPrefix(data, cbCancelWeekly):
		c.handleCancelWeekly(ctx, callback, strings.TrimPrefix(data, cbCancelWeekly))
	case strings.HasPrefix(data, cbRescheduleDay):
		c.handleRescheduleDay(ctx, callback, strings.TrimPrefix(data, cbRescheduleDay))
	case strings.HasPrefix(data, cbRescheduleTime):
		c.handleRescheduleTime(ctx, callback, strings.TrimPrefix(data, cbRescheduleTime))
	case strings.HasPrefix(data, cbReschedule):
		c.handleReschedule(ctx, callback, strings.TrimPrefix(data, cbReschedule))
	case strings.HasPrefix(data, cbEditBooking):
		c.handleEditBooking(ctx, callback, strings.TrimPrefix(data, cbEditBooking))
	default:
		c.answerCallback(ctx, callback.ID, "")
	}
}

// handleBookDay показывает свободные времена выбранного дня.
func (c *BotController) handleBookDay(ctx context.Context, callback *models.CallbackQuery, payload string) {
	day, err := time.ParseInLocation(dayLayout, payload, c.loc)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректный день")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	times, err := c.bookings.AvailableTimes(ctx, day)
	if err != nil {
		c.logger.Error("Failed to load available times", zap.Error(err))
		c.send(ctx, callbackChatID(callback), "❌ Не удалось загрузить времена.")
		return
	}
	if len(times) == 0 {
		c.send(ctx, callbackChatID(callback), "😔 В этот день всё занято. Выберите другой: /book")
		return
	}

	text := fmt.Sprintf("🕐 %s %s — выберите время:", timetable.DayShortRu(day), day.Format("02.01"))
	c.sendWithKeyboard(ctx, callbackChatID(callback), text, timesKeyboard(times, cbBookTime))
}

// handleBookTime фиксирует время и запрашивает имя ученика.
func (c *BotController) handleBookTime(ctx context.Context, callback *models.CallbackQuery, payload string) {
	startAt, err := time.ParseInLocation(timeLayout, payload, c.loc)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректное время")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	c.states.Set(callback.From.ID, state.Draft{
		Step:    state.StepBookingName,
		StartAt: startAt,
	})
	text := fmt.Sprintf("📅 %s\n\n👤 Введите имя ученика:", timetable.FormatDtRu(startAt))
	c.send(ctx, callbackChatID(callback), text)
}

// handleWeeklyDay показывает времена шаблона для выбранного дня недели.
func (c *BotController) handleWeeklyDay(ctx context.Context, callback *models.CallbackQuery, payload string) {
	wd, err := strconv.Atoi(payload)
	if err != nil || wd < 0 || wd > 6 {
		c.answerCallback(ctx, callback.ID, "Некорректный день")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	text := fmt.Sprintf("🕐 %s — выберите время:", timetable.WeekdayRu(time.Weekday(wd)))
	c.sendWithKeyboard(ctx, callbackChatID(callback), text, weeklyTimesKeyboard(c.tpl, time.Weekday(wd)))
}

// handleWeeklyTime фиксирует (день, время) и запрашивает имя ученика.
func (c *BotController) handleWeeklyTime(ctx context.Context, callback *models.CallbackQuery, payload string) {
	// payload: "<weekday>:<HH:MM>"
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	wd, err := strconv.Atoi(parts[0])
	if err != nil || wd < 0 || wd > 6 {
		c.answerCallback(ctx, callback.ID, "Некорректный день")
		return
	}
	if _, err := timetable.ParseTimeOfDay(parts[1]); err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректное время")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	c.states.Set(callback.From.ID, state.Draft{
		Step:      state.StepWeeklyName,
		Weekday:   time.Weekday(wd),
		TimeOfDay: parts[1],
	})
	text := fmt.Sprintf("🔁 %s %s (еженедельно)\n\n👤 Введите имя ученика:",
		timetable.WeekdayRu(time.Weekday(wd)), parts[1])
	c.send(ctx, callbackChatID(callback), text)
}

// handleCancelSingle отменяет разовое бронирование.
func (c *BotController) handleCancelSingle(ctx context.Context, callback *models.CallbackQuery, payload string) {
	bookingID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}

	requester, err := c.ensureUser(ctx, &callback.From)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Ошибка, попробуйте позже")
		return
	}

	warnings, err := c.bookings.Cancel(ctx, bookingID, requester, c.isAdmin(callback.From.ID))
	if err != nil {
		c.answerCallback(ctx, callback.ID, bookingErrorText(err))
		return
	}

	c.answerCallback(ctx, callback.ID, "Запись отменена")
	c.send(ctx, callbackChatID(callback), "✅ Запись отменена."+warningsNote(warnings))
}

// handleCancelWeekly деактивирует еженедельную запись.
func (c *BotController) handleCancelWeekly(ctx context.Context, callback *models.CallbackQuery, payload string) {
	subID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}

	requester, err := c.ensureUser(ctx, &callback.From)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Ошибка, попробуйте позже")
		return
	}

	warnings, err := c.weekly.Cancel(ctx, subID, requester, c.isAdmin(callback.From.ID))
	if err != nil {
		c.answerCallback(ctx, callback.ID, bookingErrorText(err))
		return
	}

	c.answerCallback(ctx, callback.ID, "Запись отменена")
	c.send(ctx, callbackChatID(callback), "✅ Еженедельная запись отменена."+warningsNote(warnings))
}

// handleReschedule начинает перенос: клавиатура дней (только админ).
func (c *BotController) handleReschedule(ctx context.Context, callback *models.CallbackQuery, payload string) {
	if !c.isAdmin(callback.From.ID) {
		c.answerCallback(ctx, callback.ID, "Только для администратора")
		return
	}
	bookingID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	days, err := c.bookings.AvailableDays(ctx)
	if err != nil {
		c.logger.Error("Failed to load available days", zap.Error(err))
		return
	}
	if len(days) == 0 {
		c.send(ctx, callbackChatID(callback), "😔 Свободного времени нет, перенести некуда.")
		return
	}

	prefix := fmt.Sprintf("%s%d:", cbRescheduleDay, bookingID)
	c.sendWithKeyboard(ctx, callbackChatID(callback), "🔀 Перенос: выберите новый день:", daysKeyboard(days, prefix))
}

// handleRescheduleDay показывает времена нового дня.
func (c *BotController) handleRescheduleDay(ctx context.Context, callback *models.CallbackQuery, payload string) {
	// payload: "<booking_id>:<date>"
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	bookingID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	day, err := time.ParseInLocation(dayLayout, parts[1], c.loc)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректный день")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	times, err := c.bookings.AvailableTimes(ctx, day)
	if err != nil {
		c.logger.Error("Failed to load available times", zap.Error(err))
		return
	}
	if len(times) == 0 {
		c.send(ctx, callbackChatID(callback), "😔 В этот день всё занято.")
		return
	}

	prefix := fmt.Sprintf("%s%d:", cbRescheduleTime, bookingID)
	c.sendWithKeyboard(ctx, callbackChatID(callback), "🕐 Выберите новое время:", timesKeyboard(times, prefix))
}

// handleRescheduleTime выполняет перенос.
func (c *BotController) handleRescheduleTime(ctx context.Context, callback *models.CallbackQuery, payload string) {
	// payload: "<booking_id>:<datetime>"
	parts := strings.SplitN(payload, ":", 2)
	if len(parts) != 2 {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	bookingID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	newStartAt, err := time.ParseInLocation(timeLayout, parts[1], c.loc)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректное время")
		return
	}

	moved, warnings, err := c.bookings.Reschedule(ctx, bookingID, newStartAt)
	if err != nil {
		c.answerCallback(ctx, callback.ID, bookingErrorText(err))
		return
	}

	c.answerCallback(ctx, callback.ID, "Перенесено")
	text := fmt.Sprintf("✅ Бронирование перенесено на %s.", timetable.FormatDtRu(newStartAt))
	if moved.StudentName != "" {
		text += fmt.Sprintf("\nУченик: %s", moved.StudentName)
	}
	c.send(ctx, callbackChatID(callback), text+warningsNote(warnings))
}

// handleEditBooking начинает правку имени и контакта (только админ).
func (c *BotController) handleEditBooking(ctx context.Context, callback *models.CallbackQuery, payload string) {
	if !c.isAdmin(callback.From.ID) {
		c.answerCallback(ctx, callback.ID, "Только для администратора")
		return
	}
	bookingID, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.answerCallback(ctx, callback.ID, "Некорректные данные")
		return
	}
	c.answerCallback(ctx, callback.ID, "")

	c.states.Set(callback.From.ID, state.Draft{
		Step:      state.StepEditName,
		BookingID: bookingID,
	})
	c.send(ctx, callbackChatID(callback), "✏️ Новое имя ученика (или «-», чтобы не менять):")
}
