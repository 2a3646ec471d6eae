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
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WeeklyService управляет еженедельными записями. Занятость проверяется
// симметрично с разовыми бронированиями: еженедельная запись не может
// встать на пару (день, время), на которую уже есть будущее разовое
// бронирование, и наоборот.
type WeeklyService struct {
	weekly      WeeklyStore
	bookings    BookingStore
	calendar    sink.Calendar
	reminders   Reminders
	durationMin int
	logger      *zap.Logger

	clock func() time.Time
}

func NewWeeklyService(
	weekly WeeklyStore,
	bookings BookingStore,
	calendar sink.Calendar,
	reminders Reminders,
	durationMin int,
	logger *zap.Logger,
) *WeeklyService {
	return &WeeklyService{
		weekly:      weekly,
		bookings:    bookings,
		calendar:    calendar,
		reminders:   reminders,
		durationMin: durationMin,
		logger:      logger,
		clock:       time.Now,
	}
}

// Subscribe создаёт еженедельную запись на (weekday, timeOfDay).
// Конфликт с другой активной еженедельной записью разрешает частичный
// уникальный индекс; пересечение с будущими разовыми бронированиями
// проверяется по их проекции на день недели и время.
func (s *WeeklyService) Subscribe(ctx context.Context, user *model.User, weekday time.Weekday, timeOfDay, studentName, contact string) (*model.WeeklySubscription, []SinkWarning, error) {
	tod, err := timetable.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid time of day: %w", err)
	}

	conflict, err := s.singleConflict(ctx, weekday, tod)
	if err != nil {
		return nil, nil, err
	}
	if conflict {
		return nil, nil, ErrConflict
	}

	sub := &model.WeeklySubscription{
		SeriesID:       uuid.New(),
		UserID:         user.ID,
		StudentName:    studentName,
		StudentContact: contact,
		Weekday:        int(weekday),
		TimeOfDay:      tod.String(),
		DurationMin:    s.durationMin,
	}

	if err := s.weekly.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrWeeklyTaken) {
			return nil, nil, ErrConflict
		}
		return nil, nil, fmt.Errorf("create weekly subscription: %w", err)
	}

	s.logger.Info("Weekly subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", user.ID),
		zap.Int("weekday", sub.Weekday),
		zap.String("time_of_day", sub.TimeOfDay),
	)

	var warnings []SinkWarning

	eventID, err := s.calendar.CreateWeeklySeries(ctx, weekday, sub.TimeOfDay, sub.DurationMin, studentName, contact)
	if err != nil {
		s.logger.Warn("Calendar series create failed", zap.Int64("subscription_id", sub.ID), zap.Error(err))
		warnings = append(warnings, SinkWarning{Op: "calendar.create_series", Err: err})
	} else if eventID != "" {
		if err := s.weekly.SetCalendarEvent(ctx, sub.ID, &eventID); err != nil {
			warnings = append(warnings, SinkWarning{Op: "calendar.save_id", Err: err})
		} else {
			sub.GcalEventID = &eventID
		}
	}

	s.reminders.ScheduleForWeekly(sub)

	return sub, warnings, nil
}

// singleConflict ищет будущее разовое бронирование на том же дне недели
// и времени.
func (s *WeeklyService) singleConflict(ctx context.Context, weekday time.Weekday, tod timetable.TimeOfDay) (bool, error) {
	occupied, err := s.bookings.OccupiedStarts(ctx)
	if err != nil {
		return false, fmt.Errorf("occupied starts: %w", err)
	}
	now := s.clock()
	for _, t := range occupied {
		if t.Before(now) {
			continue
		}
		if t.Weekday() == weekday && t.Hour() == tod.Hour && t.Minute() == tod.Minute {
			return true, nil
		}
	}
	return false, nil
}

// Cancel деактивирует еженедельную запись (мягкое удаление). Разрешено
// владельцу и администратору.
func (s *WeeklyService) Cancel(ctx context.Context, subID int64, requester *model.User, isAdmin bool) ([]SinkWarning, error) {
	sub, err := s.weekly.GetByID(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("get weekly subscription: %w", err)
	}
	if sub == nil {
		return nil, ErrNotFound
	}
	if !isAdmin && (requester == nil || sub.UserID != requester.ID) {
		return nil, ErrForbidden
	}

	deactivated, err := s.weekly.Deactivate(ctx, subID)
	if err != nil {
		return nil, fmt.Errorf("deactivate weekly subscription: %w", err)
	}
	if !deactivated {
		return nil, ErrNotFound
	}

	s.logger.Info("Weekly subscription canceled", zap.Int64("subscription_id", subID), zap.Bool("by_admin", isAdmin))

	s.reminders.CancelForWeekly(subID)

	var warnings []SinkWarning
	if sub.GcalEventID != nil && *sub.GcalEventID != "" {
		if err := s.calendar.DeleteSeries(ctx, *sub.GcalEventID); err != nil {
			s.logger.Warn("Calendar series delete failed", zap.Int64("subscription_id", subID), zap.Error(err))
			warnings = append(warnings, SinkWarning{Op: "calendar.delete_series", Err: err})
		}
	}
	return warnings, nil
}

// ListActive возвращает все активные еженедельные записи.
func (s *WeeklyService) ListActive(ctx context.Context) ([]*model.WeeklySubscription, error) {
	return s.weekly.ListActive(ctx)
}

// GetByID возвращает запись по id.
func (s *WeeklyService) GetByID(ctx context.Context, id int64) (*model.WeeklySubscription, error) {
	return s.weekly.GetByID(ctx, id)
}
