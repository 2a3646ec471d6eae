package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/repository"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink"
	"github.com/danlikendy/tutorslot-bot-tg-project/internal/timetable"
	"go.uber.org/zap"
)

// DayCount — день окна и число свободных слотов в нём.
type DayCount struct {
	Day  time.Time
	Free int
}

// BookingService — транзакционное ядро разовых бронирований.
// Проверки занятости до записи — только оптимизация; гонку двух
// конкурентных бронирований разрешает уникальный индекс в БД,
// и repository.ErrSlotTaken — авторитетный сигнал конфликта.
type BookingService struct {
	bookings   BookingStore
	weekly     WeeklyStore
	calendar   sink.Calendar
	reminders  Reminders
	tpl        timetable.Template
	windowDays int
	logger     *zap.Logger

	clock func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	weekly WeeklyStore,
	calendar sink.Calendar,
	reminders Reminders,
	tpl timetable.Template,
	windowDays int,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		bookings:   bookings,
		weekly:     weekly,
		calendar:   calendar,
		reminders:  reminders,
		tpl:        tpl,
		windowDays: windowDays,
		logger:     logger,
		clock:      time.Now,
	}
}

// weeklyClaims сообщает, занимает ли активная еженедельная запись
// конкретное время (совпадение дня недели и HH:MM).
func weeklyClaims(w *model.WeeklySubscription, t time.Time) bool {
	if !w.IsActive || int(t.Weekday()) != w.Weekday {
		return false
	}
	hour, minute, err := w.Clock()
	if err != nil {
		return false
	}
	return t.Hour() == hour && t.Minute() == minute
}

func (s *BookingService) weeklyConflict(ctx context.Context, startAt time.Time) (bool, error) {
	subs, err := s.weekly.ListActive(ctx)
	if err != nil {
		return false, fmt.Errorf("list weekly subscriptions: %w", err)
	}
	for _, w := range subs {
		if weeklyClaims(w, startAt) {
			return true, nil
		}
	}
	return false, nil
}

// BookAt бронирует время для пользователя. Побочные эффекты (календарь,
// напоминания) выполняются после коммита; их сбои возвращаются как
// предупреждения при успешном бронировании.
func (s *BookingService) BookAt(ctx context.Context, user *model.User, startAt time.Time, studentName, contact string) (*model.Booking, []SinkWarning, error) {
	now := s.clock()
	if !startAt.After(now) {
		return nil, nil, ErrPastTime
	}

	// Еженедельные записи не держат строк в slots, поэтому индекс их не
	// видит; проверяем проекцию явно до записи.
	conflict, err := s.weeklyConflict(ctx, startAt)
	if err != nil {
		return nil, nil, err
	}
	if conflict {
		return nil, nil, ErrConflict
	}

	booking, err := s.bookings.Reserve(ctx, user.ID, startAt, studentName, contact)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, nil, ErrConflict
		}
		return nil, nil, fmt.Errorf("reserve slot: %w", err)
	}

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("user_id", user.ID),
		zap.Time("start_at", startAt),
	)

	var warnings []SinkWarning

	eventID, err := s.calendar.CreateEvent(ctx, booking.ID, startAt, studentName, contact)
	if err != nil {
		s.logger.Warn("Calendar create failed", zap.Int64("booking_id", booking.ID), zap.Error(err))
		warnings = append(warnings, SinkWarning{Op: "calendar.create", Err: err})
	} else if eventID != "" {
		if err := s.bookings.SetCalendarEvent(ctx, booking.ID, &eventID); err != nil {
			s.logger.Warn("Save calendar event id failed", zap.Int64("booking_id", booking.ID), zap.Error(err))
			warnings = append(warnings, SinkWarning{Op: "calendar.save_id", Err: err})
		} else {
			booking.GcalEventID = &eventID
		}
	}

	s.reminders.ScheduleForBooking(booking)

	return booking, warnings, nil
}

// AvailableDays возвращает дни окна с количеством свободных слотов,
// по возрастанию даты. Дни без свободных слотов опускаются.
func (s *BookingService) AvailableDays(ctx context.Context) ([]DayCount, error) {
	now := s.clock()

	busy, err := s.busySet(ctx, now)
	if err != nil {
		return nil, err
	}

	var out []DayCount
	for _, t := range s.tpl.Candidates(now, s.windowDays) {
		if t.Before(now) || busy.Has(t) {
			continue
		}
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Free++
		} else {
			out = append(out, DayCount{Day: day, Free: 1})
		}
	}
	return out, nil
}

// AvailableTimes возвращает свободные времена одного дня по возрастанию.
func (s *BookingService) AvailableTimes(ctx context.Context, day time.Time) ([]time.Time, error) {
	now := s.clock()

	busy, err := s.busySet(ctx, now)
	if err != nil {
		return nil, err
	}

	var out []time.Time
	for _, t := range s.tpl.DayCandidates(day) {
		if t.Before(now) || busy.Has(t) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *BookingService) busySet(ctx context.Context, now time.Time) (timetable.BusySet, error) {
	occupied, err := s.bookings.OccupiedStarts(ctx)
	if err != nil {
		return nil, fmt.Errorf("occupied starts: %w", err)
	}
	subs, err := s.weekly.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list weekly subscriptions: %w", err)
	}
	busy, err := timetable.BuildBusySet(occupied, subs, now, s.windowDays)
	if err != nil {
		return nil, fmt.Errorf("build busy set: %w", err)
	}
	return busy, nil
}

// MyReservations возвращает бронирования пользователя обоих видов,
// новые сверху.
func (s *BookingService) MyReservations(ctx context.Context, userID int64) ([]model.Reservation, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	subs, err := s.weekly.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list weekly subscriptions: %w", err)
	}

	out := make([]model.Reservation, 0, len(bookings)+len(subs))
	for _, b := range bookings {
		out = append(out, model.SingleReservation(b))
	}
	for _, w := range subs {
		out = append(out, model.WeeklyReservation(w))
	}
	// обе выборки уже отсортированы новыми сверху; слияние по created_at
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt().After(out[j-1].CreatedAt()); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

// Cancel отменяет разовое бронирование. Разрешено владельцу и
// администратору. Слот удаляется вместе с бронированием, задания
// напоминаний и событие календаря вычищаются по принципу best-effort.
func (s *BookingService) Cancel(ctx context.Context, bookingID int64, requester *model.User, isAdmin bool) ([]SinkWarning, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrNotFound
	}
	if !isAdmin && (requester == nil || booking.UserID != requester.ID) {
		return nil, ErrForbidden
	}

	deleted, err := s.bookings.Delete(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("delete booking: %w", err)
	}
	if !deleted {
		return nil, ErrNotFound
	}

	s.logger.Info("Booking canceled", zap.Int64("booking_id", bookingID), zap.Bool("by_admin", isAdmin))

	s.reminders.CancelForBooking(bookingID)

	var warnings []SinkWarning
	if booking.GcalEventID != nil && *booking.GcalEventID != "" {
		if err := s.calendar.DeleteEvent(ctx, *booking.GcalEventID); err != nil {
			s.logger.Warn("Calendar delete failed", zap.Int64("booking_id", bookingID), zap.Error(err))
			warnings = append(warnings, SinkWarning{Op: "calendar.delete", Err: err})
		}
	}
	return warnings, nil
}

// Reschedule переносит разовое бронирование на новое время. Во внешнем
// календаре событие пересоздаётся (delete + create), а не патчится:
// правка на месте ненадёжно доносит изменения до участников.
func (s *BookingService) Reschedule(ctx context.Context, bookingID int64, newStartAt time.Time) (*model.Booking, []SinkWarning, error) {
	now := s.clock()
	if !newStartAt.After(now) {
		return nil, nil, ErrPastTime
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, nil, ErrNotFound
	}

	conflict, err := s.weeklyConflict(ctx, newStartAt)
	if err != nil {
		return nil, nil, err
	}
	if conflict {
		return nil, nil, ErrConflict
	}

	moved, err := s.bookings.Repoint(ctx, bookingID, newStartAt)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, nil, ErrConflict
		}
		return nil, nil, fmt.Errorf("repoint booking: %w", err)
	}
	if moved == nil {
		return nil, nil, ErrNotFound
	}
	moved.GcalEventID = booking.GcalEventID

	s.logger.Info("Booking rescheduled",
		zap.Int64("booking_id", bookingID),
		zap.Time("new_start_at", newStartAt),
	)

	var warnings []SinkWarning

	oldEventID := ""
	if booking.GcalEventID != nil {
		oldEventID = *booking.GcalEventID
	}
	newEventID, err := s.calendar.ForceRecreate(ctx, oldEventID, moved.ID, newStartAt, moved.StudentName, moved.StudentContact)
	if err != nil {
		s.logger.Warn("Calendar recreate failed", zap.Int64("booking_id", bookingID), zap.Error(err))
		warnings = append(warnings, SinkWarning{Op: "calendar.recreate", Err: err})
	} else {
		var stored *string
		if newEventID != "" {
			stored = &newEventID
		}
		if err := s.bookings.SetCalendarEvent(ctx, moved.ID, stored); err != nil {
			warnings = append(warnings, SinkWarning{Op: "calendar.save_id", Err: err})
		} else {
			moved.GcalEventID = stored
		}
	}

	// старые задания снимаются и ставятся заново по новому времени
	s.reminders.CancelForBooking(bookingID)
	s.reminders.ScheduleForBooking(moved)

	return moved, warnings, nil
}

// UpdateContent правит имя и контакт ученика; время не меняется,
// событие календаря обновляется на месте.
func (s *BookingService) UpdateContent(ctx context.Context, bookingID int64, studentName, contact *string) ([]SinkWarning, error) {
	updated, err := s.bookings.UpdateContent(ctx, bookingID, studentName, contact)
	if err != nil {
		return nil, fmt.Errorf("update booking content: %w", err)
	}
	if !updated {
		return nil, ErrNotFound
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil || booking == nil {
		return nil, nil
	}

	var warnings []SinkWarning
	if booking.GcalEventID != nil && *booking.GcalEventID != "" && booking.Slot != nil {
		if err := s.calendar.UpdateEvent(ctx, *booking.GcalEventID, booking.Slot.StartAt, booking.StudentName, booking.StudentContact); err != nil {
			s.logger.Warn("Calendar update failed", zap.Int64("booking_id", bookingID), zap.Error(err))
			warnings = append(warnings, SinkWarning{Op: "calendar.update", Err: err})
		}
	}
	return warnings, nil
}

// ListAll возвращает все разовые бронирования (админский список).
func (s *BookingService) ListAll(ctx context.Context) ([]*model.Booking, error) {
	return s.bookings.ListAll(ctx)
}

// GetByID возвращает бронирование со слотом.
func (s *BookingService) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// CalendarLink возвращает ссылку на событие внешнего календаря; пустая
// строка — события нет или календарь недоступен.
func (s *BookingService) CalendarLink(ctx context.Context, b *model.Booking) string {
	if b == nil || b.GcalEventID == nil || *b.GcalEventID == "" {
		return ""
	}
	link, err := s.calendar.EventLink(ctx, *b.GcalEventID)
	if err != nil {
		s.logger.Warn("Calendar link failed", zap.Int64("booking_id", b.ID), zap.Error(err))
		return ""
	}
	return link
}
