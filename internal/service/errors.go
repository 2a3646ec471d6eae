package service

import "errors"

// Исходы операций леджера, которые пользователь может исправить сам.
// Возвращаются явным значением; вызывающий перепрашивает пользователя.
var (
	// ErrConflict — время уже занято (разовым или еженедельным
	// бронированием): предложить выбрать другое.
	ErrConflict = errors.New("time already taken")

	// ErrPastTime — попытка записи на уже прошедшее время.
	ErrPastTime = errors.New("time is in the past")

	// ErrForbidden — запрос от не-владельца и не-администратора.
	ErrForbidden = errors.New("not allowed")

	// ErrNotFound — бронирование с таким id не существует.
	ErrNotFound = errors.New("booking not found")
)

// SinkWarning — деградация побочного эффекта после успешного коммита:
// бронирование состоялось, но календарь или напоминания не синхронизированы.
// Никогда не откатывает транзакцию леджера.
type SinkWarning struct {
	Op  string
	Err error
}

func (w SinkWarning) String() string {
	return w.Op + ": " + w.Err.Error()
}
