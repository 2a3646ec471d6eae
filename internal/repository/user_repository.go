package repository

import (
	"context"
	"fmt"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Ensure создаёт пользователя при первом контакте и обновляет имя,
// если оно изменилось. Идемпотентен по tg_id.
func (r *UserRepository) Ensure(ctx context.Context, tgID int64, name string) (*model.User, error) {
	query := `
		INSERT INTO users (tg_id, name)
		VALUES ($1, $2)
		ON CONFLICT (tg_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, tg_id, name, created_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, tgID, name).Scan(
		&user.ID,
		&user.TgID,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	return &user, nil
}

// GetByID получает пользователя по внутреннему id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, tg_id, name, created_at FROM users WHERE id = $1`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.TgID,
		&user.Name,
		&user.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}
