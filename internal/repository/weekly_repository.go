package repository

import (
	"context"
	"fmt"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WeeklyRepository struct {
	pool *pgxpool.Pool
}

func NewWeeklyRepository(pool *pgxpool.Pool) *WeeklyRepository {
	return &WeeklyRepository{pool: pool}
}

const weeklyColumns = `
	id, series_id, user_id, student_name, student_contact,
	weekday, time_of_day, duration_min, gcal_event_id, is_active,
	created_at, updated_at
`

func scanWeekly(row pgx.Row) (*model.WeeklySubscription, error) {
	var w model.WeeklySubscription
	err := row.Scan(
		&w.ID, &w.SeriesID, &w.UserID, &w.StudentName, &w.StudentContact,
		&w.Weekday, &w.TimeOfDay, &w.DurationMin, &w.GcalEventID, &w.IsActive,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create создаёт активную еженедельную запись. Конфликт по паре
// (weekday, time_of_day) среди активных записей разрешает частичный
// уникальный индекс uq_weekly_active_slot.
func (r *WeeklyRepository) Create(ctx context.Context, w *model.WeeklySubscription) error {
	query := `
		INSERT INTO weekly_subscriptions
			(series_id, user_id, student_name, student_contact, weekday, time_of_day, duration_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		w.SeriesID, w.UserID, w.StudentName, w.StudentContact,
		w.Weekday, w.TimeOfDay, w.DurationMin,
	).Scan(&w.ID, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, constraintWeeklySlot) {
			return ErrWeeklyTaken
		}
		return fmt.Errorf("create weekly subscription: %w", err)
	}
	return nil
}

// GetByID получает запись по id.
func (r *WeeklyRepository) GetByID(ctx context.Context, id int64) (*model.WeeklySubscription, error) {
	w, err := scanWeekly(r.pool.QueryRow(ctx, `SELECT `+weeklyColumns+` FROM weekly_subscriptions WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get weekly subscription by id: %w", err)
	}
	return w, nil
}

// Deactivate мягко удаляет запись: история и привязка к серии событий
// календаря сохраняются.
func (r *WeeklyRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE weekly_subscriptions
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return false, fmt.Errorf("deactivate weekly subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetCalendarEvent сохраняет id серии событий внешнего календаря.
func (r *WeeklyRepository) SetCalendarEvent(ctx context.Context, id int64, eventID *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE weekly_subscriptions SET gcal_event_id = $1, updated_at = now() WHERE id = $2
	`, eventID, id)
	if err != nil {
		return fmt.Errorf("set weekly calendar event: %w", err)
	}
	return nil
}

func (r *WeeklyRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.WeeklySubscription, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list weekly subscriptions: %w", err)
	}
	defer rows.Close()

	var out []*model.WeeklySubscription
	for rows.Next() {
		w, err := scanWeekly(rows)
		if err != nil {
			return nil, fmt.Errorf("scan weekly subscription: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListActive возвращает все активные еженедельные записи.
func (r *WeeklyRepository) ListActive(ctx context.Context) ([]*model.WeeklySubscription, error) {
	return r.list(ctx, `
		SELECT `+weeklyColumns+`
		FROM weekly_subscriptions
		WHERE is_active
		ORDER BY weekday, time_of_day
	`)
}

// ListActiveByUser возвращает активные записи пользователя, новые сверху.
func (r *WeeklyRepository) ListActiveByUser(ctx context.Context, userID int64) ([]*model.WeeklySubscription, error) {
	return r.list(ctx, `
		SELECT `+weeklyColumns+`
		FROM weekly_subscriptions
		WHERE user_id = $1 AND is_active
		ORDER BY id DESC
	`, userID)
}
