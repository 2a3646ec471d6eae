package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"go.uber.org/zap"
)

// Сработавшее задание перечитывает состояние из леджера, а не из
// снимка на момент планирования: отменённое между постановкой и
// срабатыванием бронирование превращается в no-op.

type BookingLedger interface {
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
}

type WeeklyLedger interface {
	GetByID(ctx context.Context, id int64) (*model.WeeklySubscription, error)
	ListActive(ctx context.Context) ([]*model.WeeklySubscription, error)
}

type UserLedger interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// misfireGrace — насколько просроченное задание ещё срабатывает сразу
// при восстановлении; более старые молча пропускаются.
const misfireGrace = time.Minute

type Service struct {
	sched    *Scheduler
	bookings BookingLedger
	weekly   WeeklyLedger
	users    UserLedger
	notifier sink.Notifier
	mailer   sink.Mailer

	enabled bool
	offsets []int
	admins  []int64
	loc     *time.Location
	logger  *zap.Logger

	clock func() time.Time
}

func NewService(
	sched *Scheduler,
	bookings BookingLedger,
	weekly WeeklyLedger,
	users UserLedger,
	notifier sink.Notifier,
	mailer sink.Mailer,
	enabled bool,
	offsets []int,
	admins []int64,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	return &Service{
		sched:    sched,
		bookings: bookings,
		weekly:   weekly,
		users:    users,
		notifier: notifier,
		mailer:   mailer,
		enabled:  enabled,
		offsets:  offsets,
		admins:   admins,
		loc:      loc,
		logger:   logger,
		clock:    time.Now,
	}
}

func bookingJobID(bookingID int64, offsetMin int) string {
	return fmt.Sprintf("remind:%d:%d", bookingID, offsetMin)
}

func weeklyJobID(subID int64, offsetMin int) string {
	return fmt.Sprintf("remind:w:%d:%d", subID, offsetMin)
}

// ScheduleForBooking ставит по одному одноразовому заданию на каждый
// настроенный офсет. Идемпотентен: прежние задания с теми же ключами
// заменяются, поэтому вызов безопасен на каждой мутации бронирования.
func (s *Service) ScheduleForBooking(b *model.Booking) {
	if !s.enabled || b == nil || b.Slot == nil {
		return
	}

	startAt := b.Slot.StartAt.In(s.loc)
	now := s.clock()
	if startAt.Before(now) {
		// занятие уже прошло, напоминать не о чем
		return
	}

	for _, offset := range s.offsets {
		when := startAt.Add(-time.Duration(offset) * time.Minute)
		if when.Before(now.Add(-misfireGrace)) {
			s.logger.Info("Reminder skipped, fire time passed",
				zap.Int64("booking_id", b.ID),
				zap.Int("offset_min", offset),
				zap.Time("when", when),
			)
			continue
		}

		bookingID := b.ID
		s.sched.ScheduleAt(bookingJobID(bookingID, offset), when, func(ctx context.Context) {
			s.fireBooking(ctx, bookingID)
		})
		s.logger.Info("Reminder scheduled",
			zap.Int64("booking_id", bookingID),
			zap.Int("offset_min", offset),
			zap.Time("when", when),
		)
	}
}

// CancelForBooking снимает задания всех офсетов; отсутствие заданий
// не ошибка.
func (s *Service) CancelForBooking(bookingID int64) {
	for _, offset := range s.offsets {
		s.sched.Cancel(bookingJobID(bookingID, offset))
	}
	s.logger.Info("Reminders canceled", zap.Int64("booking_id", bookingID))
}

// ScheduleForWeekly ставит еженедельные триггеры: у записи нет
// фиксированной будущей даты, поэтому вместо одноразовых заданий —
// повторяющиеся, по одному на офсет, со сдвигом (день, время) назад.
func (s *Service) ScheduleForWeekly(w *model.WeeklySubscription) {
	if !s.enabled || w == nil || !w.IsActive {
		return
	}

	hour, minute, err := w.Clock()
	if err != nil {
		s.logger.Warn("Weekly reminder not scheduled", zap.Int64("subscription_id", w.ID), zap.Error(err))
		return
	}

	for _, offset := range s.offsets {
		wd, hh, mm, err := timetable.ShiftWeekday(w.GoWeekday(), hour, minute, offset)
		if err != nil {
			s.logger.Warn("Weekly reminder offset rejected",
				zap.Int64("subscription_id", w.ID),
				zap.Int("offset_min", offset),
				zap.Error(err),
			)
			continue
		}

		subID := w.ID
		s.sched.ScheduleWeekly(weeklyJobID(subID, offset), wd, hh, mm, s.loc, func(ctx context.Context) {
			s.fireWeekly(ctx, subID)
		})
		s.logger.Info("Weekly reminder scheduled",
			zap.Int64("subscription_id", subID),
			zap.Int("offset_min", offset),
			zap.String("fire_at", fmt.Sprintf("%s %02d:%02d", wd, hh, mm)),
		)
	}
}

// CancelForWeekly снимает еженедельные триггеры всех офсетов.
func (s *Service) CancelForWeekly(subID int64) {
	for _, offset := range s.offsets {
		s.sched.Cancel(weeklyJobID(subID, offset))
	}
	s.logger.Info("Weekly reminders canceled", zap.Int64("subscription_id", subID))
}

// Rebuild восстанавливает таблицу заданий из текущего состояния леджера.
// Запускается один раз на старте процесса: таблица — производный кэш,
// потеря её при рестарте штатна.
func (s *Service) Rebuild(ctx context.Context) {
	if !s.enabled {
		return
	}

	bookings, err := s.bookings.ListAll(ctx)
	if err != nil {
		s.logger.Error("Reminder rebuild: list bookings failed", zap.Error(err))
	} else {
		for _, b := range bookings {
			s.ScheduleForBooking(b)
		}
	}

	subs, err := s.weekly.ListActive(ctx)
	if err != nil {
		s.logger.Error("Reminder rebuild: list weekly failed", zap.Error(err))
	} else {
		for _, w := range subs {
			s.ScheduleForWeekly(w)
		}
	}

	s.logger.Info("Reminder rebuild done",
		zap.Int("bookings", len(bookings)),
		zap.Int("weekly", len(subs)),
	)
}

// fireBooking — срабатывание напоминания о разовом занятии. Отказ одного
// канала доставки не мешает остальным.
func (s *Service) fireBooking(ctx context.Context, bookingID int64) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		s.logger.Error("Reminder fire: get booking failed", zap.Int64("booking_id", bookingID), zap.Error(err))
		return
	}
	if booking == nil || booking.Slot == nil {
		// отменено между постановкой и срабатыванием
		s.logger.Info("Reminder fire: booking gone", zap.Int64("booking_id", bookingID))
		return
	}

	student := booking.StudentName
	if student == "" {
		student = "Ученик"
	}
	whenTxt := timetable.FormatDtRu(booking.Slot.StartAt.In(s.loc))

	s.deliver(ctx, booking.UserID, student, booking.StudentContact, whenTxt)
	s.logger.Info("Reminder sent", zap.Int64("booking_id", bookingID))
}

// fireWeekly — срабатывание еженедельного триггера.
func (s *Service) fireWeekly(ctx context.Context, subID int64) {
	sub, err := s.weekly.GetByID(ctx, subID)
	if err != nil {
		s.logger.Error("Reminder fire: get weekly failed", zap.Int64("subscription_id", subID), zap.Error(err))
		return
	}
	if sub == nil || !sub.IsActive {
		s.logger.Info("Reminder fire: weekly subscription inactive", zap.Int64("subscription_id", subID))
		return
	}

	student := sub.StudentName
	if student == "" {
		student = "Ученик"
	}
	whenTxt := fmt.Sprintf("%s %s (еженедельно)", timetable.WeekdayRu(sub.GoWeekday()), sub.TimeOfDay)

	s.deliver(ctx, sub.UserID, student, sub.StudentContact, whenTxt)
	s.logger.Info("Weekly reminder sent", zap.Int64("subscription_id", subID))
}

// deliver рассылает напоминание по всем каналам, изолируя отказы.
func (s *Service) deliver(ctx context.Context, userID int64, student, contact, whenTxt string) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Reminder delivery: get user failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	if user != nil && user.TgID != 0 {
		text := fmt.Sprintf("Напоминание о занятии\n%s\nИмя: %s", whenTxt, student)
		if err := s.notifier.SendToUser(ctx, user.TgID, text); err != nil {
			s.logger.Warn("Reminder delivery: telegram failed", zap.Int64("tg_id", user.TgID), zap.Error(err))
		}
	}

	contactTxt := contact
	if contactTxt == "" {
		contactTxt = "—"
	}
	for _, adminID := range s.admins {
		text := fmt.Sprintf("Напоминание (ученик): %s\nКогда: %s\nКонтакт: %s", student, whenTxt, contactTxt)
		if err := s.notifier.SendToUser(ctx, adminID, text); err != nil {
			s.logger.Warn("Reminder delivery: admin telegram failed", zap.Int64("tg_id", adminID), zap.Error(err))
		}
	}

	if sink.IsEmail(contact) {
		body := fmt.Sprintf("Здравствуйте!\nНапоминаем о занятии: %s\nУченик: %s", whenTxt, student)
		if err := s.mailer.Send(ctx, contact, "Напоминание о занятии", body); err != nil {
			s.logger.Warn("Reminder delivery: email failed", zap.String("to", contact), zap.Error(err))
		}
	}
}
