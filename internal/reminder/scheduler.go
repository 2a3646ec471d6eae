// Package reminder поддерживает набор будущих заданий-напоминаний,
// выведенный из состояния леджера. Таблица заданий — производный кэш:
// после рестарта она целиком восстанавливается перечитыванием БД,
// авторитетным состоянием не является.
package reminder

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler — внутрипроцессная таблица заданий: одноразовые таймеры и
// еженедельные триггеры, ключованные строковым id. Повторная постановка
// с тем же id сначала снимает старое задание, поэтому планирование
// идемпотентно и безопасно на каждой мутации бронирования.
type Scheduler struct {
	logger *zap.Logger

	mu     sync.Mutex
	jobs   map[string]*job
	closed bool
}

type job struct {
	cancel chan struct{}
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// ScheduleAt ставит одноразовое задание на момент at. Момент в прошлом
// срабатывает немедленно (решение о misfire-грейсе принимает вызывающий).
func (s *Scheduler) ScheduleAt(id string, at time.Time, fn func(context.Context)) {
	j := s.register(id)
	if j == nil {
		return
	}

	go func() {
		timer := time.NewTimer(time.Until(at))
		defer timer.Stop()

		select {
		case <-timer.C:
			s.unregister(id, j)
			fn(context.Background())
		case <-j.cancel:
		}
	}()
}

// ScheduleWeekly ставит повторяющееся задание: каждую неделю в
// (weekday, hour, minute) зоны loc, до отмены.
func (s *Scheduler) ScheduleWeekly(id string, weekday time.Weekday, hour, minute int, loc *time.Location, fn func(context.Context)) {
	j := s.register(id)
	if j == nil {
		return
	}

	go func() {
		for {
			next := nextOccurrence(time.Now().In(loc), weekday, hour, minute)
			timer := time.NewTimer(time.Until(next))

			select {
			case <-timer.C:
				fn(context.Background())
			case <-j.cancel:
				timer.Stop()
				return
			}
		}
	}()
}

// Cancel снимает задание; отсутствие ключа не ошибка.
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		close(j.cancel)
		delete(s.jobs, id)
	}
}

// Stop снимает все задания; новые больше не принимаются.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, j := range s.jobs {
		close(j.cancel)
		delete(s.jobs, id)
	}
	s.closed = true
	s.logger.Info("Reminder scheduler stopped")
}

// Has сообщает, стоит ли задание с таким id.
func (s *Scheduler) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

// Len возвращает число стоящих заданий.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// register снимает прежнее задание с тем же id и регистрирует новое.
func (s *Scheduler) register(id string) *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if old, ok := s.jobs[id]; ok {
		close(old.cancel)
	}
	j := &job{cancel: make(chan struct{})}
	s.jobs[id] = j
	return j
}

// unregister удаляет задание из таблицы, только если оно не было
// заменено новым с тем же id.
func (s *Scheduler) unregister(id string, j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.jobs[id]; ok && cur == j {
		delete(s.jobs, id)
	}
}

// nextOccurrence — ближайший строго будущий момент (weekday, hour, minute)
// относительно now.
func nextOccurrence(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).AddDate(0, 0, daysAhead)
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}
