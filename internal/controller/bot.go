package controller

import (
	"context"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/controller/state"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/service"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot      *bot.Bot
	users    *service.UserService
	bookings *service.BookingService
	weekly   *service.WeeklyService
	tpl      timetable.Template
	loc      *time.Location
	isAdmin  func(tgID int64) bool
	states   *state.Manager
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	userService *service.UserService,
	bookingService *service.BookingService,
	weeklyService *service.WeeklyService,
	tpl timetable.Template,
	loc *time.Location,
	isAdmin func(tgID int64) bool,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		users:    userService,
		bookings: bookingService,
		weekly:   weeklyService,
		tpl:      tpl,
		loc:      loc,
		isAdmin:  isAdmin,
		states:   state.NewManager(),
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypeExact, c.handleBook)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/weekly", bot.MatchTypeExact, c.handleWeekly)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/my", bot.MatchTypeExact, c.handleMy)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handleCancelDialog)

	// админская панель
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/all", bot.MatchTypeExact, c.handleAll)

	// текстовые сообщения — шаги активных диалогов
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, c.handleTextMessage)

	// нажатия на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.handleCallback)

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "book", Description: "📅 Записаться на занятие"},
		{Command: "weekly", Description: "🔁 Еженедельная запись"},
		{Command: "my", Description: "📝 Мои записи"},
		{Command: "cancel", Description: "❌ Прервать текущий диалог"},
		{Command: "help", Description: "❓ Справка"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("Bot commands menu set")
	return nil
}

// Start запускает long polling до отмены контекста
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
}
