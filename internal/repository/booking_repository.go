package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `
	b.id, b.user_id, b.slot_id, b.student_name, b.student_contact,
	b.gcal_event_id, b.created_at, b.updated_at,
	s.id, s.start_at, s.created_at
`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var slot model.Slot
	err := row.Scan(
		&b.ID, &b.UserID, &b.SlotID, &b.StudentName, &b.StudentContact,
		&b.GcalEventID, &b.CreatedAt, &b.UpdatedAt,
		&slot.ID, &slot.StartAt, &slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Slot = &slot
	return &b, nil
}

// findOrCreateSlot находит слот по времени или лениво создаёт его.
// Гонка двух создателей разрешается ON CONFLICT: проигравший просто
// перечитывает id.
func findOrCreateSlot(ctx context.Context, tx pgx.Tx, startAt time.Time) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO slots (start_at) VALUES ($1)
		ON CONFLICT (start_at) DO NOTHING
		RETURNING id
	`, startAt).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("create slot: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT id FROM slots WHERE start_at = $1`, startAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("find slot: %w", err)
	}
	return id, nil
}

// Reserve атомарно бронирует время: find-or-create слота и вставка
// бронирования в одной транзакции. Конфликт сигнализирует уникальный
// индекс uq_booking_slot — это авторитетный источник, предварительных
// проверок здесь нет.
func (r *BookingRepository) Reserve(ctx context.Context, userID int64, startAt time.Time, studentName, contact string) (*model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	slotID, err := findOrCreateSlot(ctx, tx, startAt)
	if err != nil {
		return nil, err
	}

	var b model.Booking
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, slot_id, student_name, student_contact)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, slot_id, student_name, student_contact,
		          gcal_event_id, created_at, updated_at
	`, userID, slotID, studentName, contact).Scan(
		&b.ID, &b.UserID, &b.SlotID, &b.StudentName, &b.StudentContact,
		&b.GcalEventID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintBookingSlot) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	b.Slot = &model.Slot{ID: slotID, StartAt: startAt}
	return &b, nil
}

// GetByID получает бронирование вместе со слотом.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.id = $1
	`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

// Delete удаляет бронирование и осиротевший слот одной транзакцией.
func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var slotID int64
	err = tx.QueryRow(ctx, `DELETE FROM bookings WHERE id = $1 RETURNING slot_id`, id).Scan(&slotID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("delete booking: %w", err)
	}

	// Слот без бронирования больше не нужен: освобождённое время снова
	// попадает в кандидаты как будто слота не было.
	if _, err := tx.Exec(ctx, `DELETE FROM slots WHERE id = $1`, slotID); err != nil {
		return false, fmt.Errorf("delete orphan slot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// Repoint переносит бронирование на новое время: find-or-create нового
// слота, перестановка ссылки и удаление старого осиротевшего слота — всё
// в одной транзакции. Конфликт на новом времени отдаёт ErrSlotTaken.
func (r *BookingRepository) Repoint(ctx context.Context, id int64, newStartAt time.Time) (*model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var oldSlotID int64
	err = tx.QueryRow(ctx, `SELECT slot_id FROM bookings WHERE id = $1`, id).Scan(&oldSlotID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking slot: %w", err)
	}

	newSlotID, err := findOrCreateSlot(ctx, tx, newStartAt)
	if err != nil {
		return nil, err
	}

	var b model.Booking
	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET slot_id = $1, updated_at = now()
		WHERE id = $2
		RETURNING id, user_id, slot_id, student_name, student_contact,
		          gcal_event_id, created_at, updated_at
	`, newSlotID, id).Scan(
		&b.ID, &b.UserID, &b.SlotID, &b.StudentName, &b.StudentContact,
		&b.GcalEventID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintBookingSlot) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("repoint booking: %w", err)
	}

	if oldSlotID != newSlotID {
		if _, err := tx.Exec(ctx, `DELETE FROM slots WHERE id = $1`, oldSlotID); err != nil {
			return nil, fmt.Errorf("delete old slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	b.Slot = &model.Slot{ID: newSlotID, StartAt: newStartAt}
	return &b, nil
}

// UpdateContent правит отображаемые поля; время не трогает.
func (r *BookingRepository) UpdateContent(ctx context.Context, id int64, studentName, contact *string) (bool, error) {
	query := `
		UPDATE bookings
		SET student_name = COALESCE($1, student_name),
		    student_contact = COALESCE($2, student_contact),
		    updated_at = now()
		WHERE id = $3
	`

	tag, err := r.pool.Exec(ctx, query, studentName, contact, id)
	if err != nil {
		return false, fmt.Errorf("update booking content: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetCalendarEvent сохраняет id события внешнего календаря.
func (r *BookingRepository) SetCalendarEvent(ctx context.Context, id int64, eventID *string) error {
	_, err := r.pool.Exec(ctx, `UPDATE bookings SET gcal_event_id = $1, updated_at = now() WHERE id = $2`, eventID, id)
	if err != nil {
		return fmt.Errorf("set booking calendar event: %w", err)
	}
	return nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser возвращает бронирования пользователя, новые сверху.
func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.user_id = $1
		ORDER BY b.id DESC
	`
	return r.list(ctx, query, userID)
}

// ListAll возвращает все бронирования по возрастанию времени занятия.
func (r *BookingRepository) ListAll(ctx context.Context) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		ORDER BY s.start_at
	`
	return r.list(ctx, query)
}

// OccupiedStarts — времена всех слотов, занятых бронированиями.
// Слот без бронирования занятым не считается.
func (r *BookingRepository) OccupiedStarts(ctx context.Context) ([]time.Time, error) {
	query := `
		SELECT s.start_at
		FROM slots s
		JOIN bookings b ON b.slot_id = s.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("occupied starts: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan start_at: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
