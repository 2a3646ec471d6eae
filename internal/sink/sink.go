// Package sink описывает внешние системы-приёмники: календарь и каналы
// доставки уведомлений. Приёмники не авторитетны для валидности
// бронирований — их отказы логируются и никогда не откатывают леджер.
package sink

import (
	"context"
	"regexp"
	"time"
)

// Calendar — внешний календарь занятий.
//
// ForceRecreate (удалить + создать) используется для переноса вместо
// правки на месте: patch события ненадёжно доносит изменения до
// приглашённых участников.
type Calendar interface {
	CreateEvent(ctx context.Context, bookingID int64, startAt time.Time, student, contact string) (string, error)
	UpdateEvent(ctx context.Context, eventID string, startAt time.Time, student, contact string) error
	DeleteEvent(ctx context.Context, eventID string) error
	ForceRecreate(ctx context.Context, eventID string, bookingID int64, startAt time.Time, student, contact string) (string, error)
	CreateWeeklySeries(ctx context.Context, weekday time.Weekday, timeOfDay string, durationMin int, student, contact string) (string, error)
	DeleteSeries(ctx context.Context, eventID string) error
	EventLink(ctx context.Context, eventID string) (string, error)
}

// Mailer отправляет письма-напоминания.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Notifier доставляет сообщение пользователю в чат.
type Notifier interface {
	SendToUser(ctx context.Context, tgID int64, text string) error
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsEmail классифицирует свободный текст контакта как email-адрес.
func IsEmail(contact string) bool {
	return emailRe.MatchString(contact)
}
