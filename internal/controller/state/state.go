// Package state хранит состояние диалога с пользователем между
// сообщениями. Состояние живёт в памяти процесса: после рестарта
// незавершённые диалоги пропадают, пользователь начинает команду заново.
package state

import (
	"sync"
	"time"
)

// Step — шаг активного диалога.
type Step string

const (
	StepNone Step = ""

	// разовое бронирование: время выбрано, собираем имя и контакт
	StepBookingName    Step = "booking_name"
	StepBookingContact Step = "booking_contact"

	// еженедельная запись
	StepWeeklyName    Step = "weekly_name"
	StepWeeklyContact Step = "weekly_contact"

	// правка бронирования администратором
	StepEditName    Step = "edit_name"
	StepEditContact Step = "edit_contact"
)

// Draft — накопленные данные диалога. Поля типизированы: какие из них
// значимы, определяет Step, а не динамическая карта.
type Draft struct {
	Step Step

	// разовое бронирование
	StartAt time.Time

	// еженедельная запись
	Weekday   time.Weekday
	TimeOfDay string

	// общее для обоих видов
	StudentName string

	// правка существующего бронирования
	BookingID int64
	NewName   string
}

// Manager — потокобезопасная таблица диалогов по telegram id.
type Manager struct {
	mu     sync.RWMutex
	drafts map[int64]Draft
}

func NewManager() *Manager {
	return &Manager{drafts: make(map[int64]Draft)}
}

// Get возвращает черновик диалога; отсутствие — пустой черновик со
// StepNone.
func (m *Manager) Get(tgID int64) Draft {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drafts[tgID]
}

// Set заменяет черновик целиком. Черновик со StepNone удаляется.
func (m *Manager) Set(tgID int64, d Draft) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.Step == StepNone {
		delete(m.drafts, tgID)
		return
	}
	m.drafts[tgID] = d
}

// Clear завершает диалог.
func (m *Manager) Clear(tgID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, tgID)
}
