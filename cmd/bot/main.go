package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/app"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/config"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/controller"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/reminder"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/repository"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/service"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink/email"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink/gcal"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting tutorslot bot",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err))
	}

	tpl, err := timetable.ParseTemplate(cfg.LessonHours, true)
	if err != nil {
		logger.Fatal("Failed to parse lesson hours", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create db pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	userRepo := repository.NewUserRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	weeklyRepo := repository.NewWeeklyRepository(pool)

	// внешний календарь и почта опциональны; выключенные заменяются
	// no-op заглушками
	var cal sink.Calendar = sink.DisabledCalendar{}
	if cfg.GoogleCalendarEnabled {
		client, err := gcal.NewClient(ctx, cfg.GoogleCredentialsPath, cfg.GoogleCalendarID, loc, cfg.LessonDurationMin, logger)
		if err != nil {
			logger.Fatal("Failed to create google calendar client", zap.Error(err))
		}
		cal = client
	}

	var mailer sink.Mailer = sink.DisabledMailer{}
	if cfg.SMTPEnabled {
		mailer = email.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom, logger)
	}

	tgBot, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create telegram bot", zap.Error(err))
	}
	notifier := sink.NewTelegramNotifier(tgBot)

	sched := reminder.NewScheduler(logger)
	defer sched.Stop()

	reminders := reminder.NewService(
		sched, bookingRepo, weeklyRepo, userRepo, notifier, mailer,
		cfg.RemindersEnabled, cfg.RemindOffsetsMin, cfg.Admins, loc, logger,
	)

	userService := service.NewUserService(userRepo, logger)
	bookingService := service.NewBookingService(bookingRepo, weeklyRepo, cal, reminders, tpl, cfg.WindowDays, logger)
	weeklyService := service.NewWeeklyService(weeklyRepo, bookingRepo, cal, reminders, cfg.LessonDurationMin, logger)

	// таблица заданий напоминаний — производный кэш, после рестарта
	// пересобирается из БД
	reminders.Rebuild(ctx)

	botController := controller.NewBotController(
		tgBot, userService, bookingService, weeklyService,
		tpl, loc, cfg.IsAdmin, logger,
	)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register handlers", zap.Error(err))
	}

	botController.Start(ctx)
	logger.Info("Bot stopped")
}
