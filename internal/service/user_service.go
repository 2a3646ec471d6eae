package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"go.uber.org/zap"
)

type UserService struct {
	users  UserStore
	logger *zap.Logger
}

func NewUserService(users UserStore, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// EnsureUser регистрирует пользователя при первом контакте и обновляет
// имя при расхождении. Идемпотентен.
func (s *UserService) EnsureUser(ctx context.Context, tgID int64, fullName string) (*model.User, error) {
	user, err := s.users.Ensure(ctx, tgID, strings.TrimSpace(fullName))
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return user, nil
}
