package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/controller/state"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/service"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func fullName(u *models.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (c *BotController) send(ctx context.Context, chatID int64, text string) {
	c.sendWithKeyboard(ctx, chatID, text, nil)
}

func (c *BotController) sendWithKeyboard(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		c.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// ensureUser регистрирует отправителя и возвращает его запись.
func (c *BotController) ensureUser(ctx context.Context, from *models.User) (*model.User, error) {
	return c.users.EnsureUser(ctx, from.ID, fullName(from))
}

// handleStart обрабатывает команду /start
func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user, err := c.ensureUser(ctx, update.Message.From)
	if err != nil {
		c.logger.Error("Failed to register user", zap.Error(err))
		c.send(ctx, update.Message.Chat.ID, "❌ Произошла ошибка при регистрации. Попробуйте позже.")
		return
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n\n"+
			"Это бот записи на занятия к репетитору.\n\n"+
			"Доступные команды:\n"+
			"/book - Записаться на занятие\n"+
			"/weekly - Еженедельная запись\n"+
			"/my - Мои записи\n"+
			"/help - Справка",
		user.Name,
	)
	c.send(ctx, update.Message.Chat.ID, text)
}

// handleHelp обрабатывает команду /help
func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	text := "📚 Справка по командам:\n\n" +
		"/book - Выбрать день и время разового занятия\n" +
		"/weekly - Записаться на одно и то же время каждую неделю\n" +
		"/my - Посмотреть и отменить свои записи\n" +
		"/cancel - Прервать текущий диалог\n\n" +
		"Занятия проходят по будням, длительность 90 минут."

	if c.isAdmin(update.Message.From.ID) {
		text += "\n\nДля администратора:\n/all - Все бронирования с управлением"
	}

	c.send(ctx, update.Message.Chat.ID, text)
}

// handleBook начинает диалог разового бронирования: клавиатура дней.
func (c *BotController) handleBook(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	days, err := c.bookings.AvailableDays(ctx)
	if err != nil {
		c.logger.Error("Failed to load available days", zap.Error(err))
		c.send(ctx, update.Message.Chat.ID, "❌ Не удалось загрузить расписание. Попробуйте позже.")
		return
	}
	if len(days) == 0 {
		c.send(ctx, update.Message.Chat.ID, "😔 Свободного времени в ближайшие две недели нет.")
		return
	}

	c.sendWithKeyboard(ctx, update.Message.Chat.ID,
		"📅 Выберите день (в скобках — число свободных слотов):",
		daysKeyboard(days, cbBookDay))
}

// handleWeekly начинает диалог еженедельной записи: клавиатура дней недели.
func (c *BotController) handleWeekly(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	c.sendWithKeyboard(ctx, update.Message.Chat.ID,
		"🔁 Еженедельная запись: занятие каждую неделю в одно время.\nВыберите день недели:",
		weekdaysKeyboard())
}

// handleMy показывает записи пользователя с кнопками отмены.
func (c *BotController) handleMy(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	user, err := c.ensureUser(ctx, update.Message.From)
	if err != nil {
		c.logger.Error("Failed to register user", zap.Error(err))
		return
	}

	reservations, err := c.bookings.MyReservations(ctx, user.ID)
	if err != nil {
		c.logger.Error("Failed to load reservations", zap.Int64("user_id", user.ID), zap.Error(err))
		c.send(ctx, update.Message.Chat.ID, "❌ Не удалось загрузить записи.")
		return
	}
	if len(reservations) == 0 {
		c.send(ctx, update.Message.Chat.ID, "У вас пока нет записей. Начните с /book.")
		return
	}

	for _, r := range reservations {
		kb := &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{reservationCancelButton(r)}},
		}
		c.sendWithKeyboard(ctx, update.Message.Chat.ID, reservationText(r, c.loc), kb)
	}
}

// handleAll — админский список всех бронирований с управлением.
func (c *BotController) handleAll(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	if !c.isAdmin(update.Message.From.ID) {
		c.send(ctx, update.Message.Chat.ID, "❌ Команда доступна только администратору.")
		return
	}

	bookings, err := c.bookings.ListAll(ctx)
	if err != nil {
		c.logger.Error("Failed to list bookings", zap.Error(err))
		c.send(ctx, update.Message.Chat.ID, "❌ Не удалось загрузить бронирования.")
		return
	}

	subs, err := c.weekly.ListActive(ctx)
	if err != nil {
		c.logger.Error("Failed to list weekly subscriptions", zap.Error(err))
		c.send(ctx, update.Message.Chat.ID, "❌ Не удалось загрузить еженедельные записи.")
		return
	}

	if len(bookings) == 0 && len(subs) == 0 {
		c.send(ctx, update.Message.Chat.ID, "Бронирований нет.")
		return
	}

	for _, booking := range bookings {
		at, _ := booking.StartAt()
		contact := booking.StudentContact
		if contact == "" {
			contact = "—"
		}
		text := fmt.Sprintf("📅 %s\nУченик: %s\nКонтакт: %s",
			timetable.FormatDtRu(at.In(c.loc)), booking.StudentName, contact)
		if link := c.bookings.CalendarLink(ctx, booking); link != "" {
			text += "\n🔗 " + link
		}
		c.sendWithKeyboard(ctx, update.Message.Chat.ID, text, adminBookingKeyboard(booking.ID))
	}

	for _, w := range subs {
		text := fmt.Sprintf("🔁 %s %s (еженедельно)\nУченик: %s",
			timetable.WeekdayRu(w.GoWeekday()), w.TimeOfDay, w.StudentName)
		kb := &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "❌ Отменить", CallbackData: fmt.Sprintf("%s%d", cbCancelWeekly, w.ID)},
			}},
		}
		c.sendWithKeyboard(ctx, update.Message.Chat.ID, text, kb)
	}
}

// handleCancelDialog обрабатывает команду /cancel — прерывание диалога.
func (c *BotController) handleCancelDialog(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	tgID := update.Message.From.ID
	if c.states.Get(tgID).Step == state.StepNone {
		c.send(ctx, update.Message.Chat.ID, "Нет активных операций для отмены.")
		return
	}

	c.states.Clear(tgID)
	c.send(ctx, update.Message.Chat.ID, "✅ Операция отменена.")
}

// handleTextMessage обрабатывает текст в зависимости от шага диалога.
func (c *BotController) handleTextMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	// команды обрабатываются своими handlers
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	tgID := update.Message.From.ID
	draft := c.states.Get(tgID)
	if draft.Step == state.StepNone {
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	chatID := update.Message.Chat.ID

	switch draft.Step {
	case state.StepBookingName, state.StepWeeklyName:
		if text == "" {
			c.send(ctx, chatID, "Введите имя ученика текстом.")
			return
		}
		draft.StudentName = text
		if draft.Step == state.StepBookingName {
			draft.Step = state.StepBookingContact
		} else {
			draft.Step = state.StepWeeklyContact
		}
		c.states.Set(tgID, draft)
		c.send(ctx, chatID, "📞 Укажите контакт (email или телефон), либо отправьте «-», чтобы пропустить:")

	case state.StepBookingContact:
		c.finishBooking(ctx, update, draft, contactOrEmpty(text))

	case state.StepWeeklyContact:
		c.finishWeekly(ctx, update, draft, contactOrEmpty(text))

	case state.StepEditName:
		draft.NewName = text
		draft.Step = state.StepEditContact
		c.states.Set(tgID, draft)
		c.send(ctx, chatID, "📞 Новый контакт (или «-», чтобы не менять):")

	case state.StepEditContact:
		c.finishEdit(ctx, update, draft, text)

	default:
		c.logger.Warn("Unknown dialog step", zap.String("step", string(draft.Step)))
		c.states.Clear(tgID)
	}
}

func contactOrEmpty(text string) string {
	if text == "-" {
		return ""
	}
	return text
}

// finishBooking завершает диалог разового бронирования.
func (c *BotController) finishBooking(ctx context.Context, update *models.Update, draft state.Draft, contact string) {
	tgID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	c.states.Clear(tgID)

	user, err := c.ensureUser(ctx, update.Message.From)
	if err != nil {
		c.logger.Error("Failed to register user", zap.Error(err))
		c.send(ctx, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	booking, warnings, err := c.bookings.BookAt(ctx, user, draft.StartAt, draft.StudentName, contact)
	if err != nil {
		c.send(ctx, chatID, bookingErrorText(err))
		return
	}

	text := fmt.Sprintf("✅ Запись создана!\n📅 %s\nИмя: %s",
		timetable.FormatDtRu(draft.StartAt.In(c.loc)), booking.StudentName)
	text += warningsNote(warnings)
	c.send(ctx, chatID, text)
}

// finishWeekly завершает диалог еженедельной записи.
func (c *BotController) finishWeekly(ctx context.Context, update *models.Update, draft state.Draft, contact string) {
	tgID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	c.states.Clear(tgID)

	user, err := c.ensureUser(ctx, update.Message.From)
	if err != nil {
		c.logger.Error("Failed to register user", zap.Error(err))
		c.send(ctx, chatID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	sub, warnings, err := c.weekly.Subscribe(ctx, user, draft.Weekday, draft.TimeOfDay, draft.StudentName, contact)
	if err != nil {
		c.send(ctx, chatID, bookingErrorText(err))
		return
	}

	text := fmt.Sprintf("✅ Еженедельная запись создана!\n🔁 %s %s\nИмя: %s",
		timetable.WeekdayRu(sub.GoWeekday()), sub.TimeOfDay, sub.StudentName)
	text += warningsNote(warnings)
	c.send(ctx, chatID, text)
}

// finishEdit завершает правку бронирования администратором.
func (c *BotController) finishEdit(ctx context.Context, update *models.Update, draft state.Draft, contactText string) {
	tgID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	c.states.Clear(tgID)

	var name, contact *string
	if draft.NewName != "" && draft.NewName != "-" {
		name = &draft.NewName
	}
	if contactText != "-" {
		contact = &contactText
	}

	warnings, err := c.bookings.UpdateContent(ctx, draft.BookingID, name, contact)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.send(ctx, chatID, "❌ Бронирование не найдено.")
			return
		}
		c.logger.Error("Failed to update booking", zap.Int64("booking_id", draft.BookingID), zap.Error(err))
		c.send(ctx, chatID, "❌ Не удалось изменить бронирование.")
		return
	}

	c.send(ctx, chatID, "✅ Бронирование изменено."+warningsNote(warnings))
}

// bookingErrorText переводит ошибки сервиса в ответ пользователю.
func bookingErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrConflict):
		return "😔 Это время уже занято. Выберите другое: /book"
	case errors.Is(err, service.ErrPastTime):
		return "⏰ Это время уже прошло. Выберите другое: /book"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Запись не найдена."
	case errors.Is(err, service.ErrForbidden):
		return "❌ Это не ваша запись."
	}
	return "❌ Произошла ошибка. Попробуйте позже."
}

// warningsNote — приписка о деградации внешних систем: запись создана,
// но календарь или почта недоступны.
func warningsNote(warnings []service.SinkWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	return "\n\n⚠️ Внешний календарь сейчас недоступен, запись сохранена без него."
}
