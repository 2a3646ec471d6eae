package service

import (
	"context"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
)

// Интерфейсы хранилища описаны на стороне потребителя; им удовлетворяют
// pgx-репозитории из internal/repository, в тестах — in-memory фейки.

type UserStore interface {
	Ensure(ctx context.Context, tgID int64, name string) (*model.User, error)
}

type BookingStore interface {
	Reserve(ctx context.Context, userID int64, startAt time.Time, studentName, contact string) (*model.Booking, error)
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Repoint(ctx context.Context, id int64, newStartAt time.Time) (*model.Booking, error)
	UpdateContent(ctx context.Context, id int64, studentName, contact *string) (bool, error)
	SetCalendarEvent(ctx context.Context, id int64, eventID *string) error
	ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
	OccupiedStarts(ctx context.Context) ([]time.Time, error)
}

type WeeklyStore interface {
	Create(ctx context.Context, w *model.WeeklySubscription) error
	GetByID(ctx context.Context, id int64) (*model.WeeklySubscription, error)
	Deactivate(ctx context.Context, id int64) (bool, error)
	SetCalendarEvent(ctx context.Context, id int64, eventID *string) error
	ListActive(ctx context.Context) ([]*model.WeeklySubscription, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]*model.WeeklySubscription, error)
}

// Reminders — движок напоминаний с точки зрения леджера. Вызовы
// идемпотентны и не возвращают ошибок: внутренние сбои он логирует сам.
type Reminders interface {
	ScheduleForBooking(b *model.Booking)
	CancelForBooking(bookingID int64)
	ScheduleForWeekly(w *model.WeeklySubscription)
	CancelForWeekly(subID int64)
}
