package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSlotTaken — слот уже занят другим активным бронированием.
	// Источник истины — уникальный индекс в БД, а не предварительная
	// проверка: гонку двух конкурентных записей разрешает storage.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrWeeklyTaken — пара (день недели, время) уже занята активной
	// еженедельной записью.
	ErrWeeklyTaken = errors.New("weekly slot already taken")
)

const (
	uniqueViolationCode = "23505"

	constraintBookingSlot = "uq_booking_slot"
	constraintSlotStartAt = "uq_slot_start_at"
	constraintWeeklySlot  = "uq_weekly_active_slot"
)

// isUniqueViolation проверяет нарушение конкретного уникального ограничения.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationCode && pgErr.ConstraintName == constraint
}
