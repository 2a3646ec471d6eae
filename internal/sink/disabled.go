package sink

import (
	"context"
	"time"
)

// DisabledCalendar — заглушка на случай выключенной интеграции.
// Все операции успешны и ничего не делают; пустой id события означает
// "события нет".
type DisabledCalendar struct{}

func (DisabledCalendar) CreateEvent(context.Context, int64, time.Time, string, string) (string, error) {
	return "", nil
}

func (DisabledCalendar) UpdateEvent(context.Context, string, time.Time, string, string) error {
	return nil
}

func (DisabledCalendar) DeleteEvent(context.Context, string) error { return nil }

func (DisabledCalendar) ForceRecreate(context.Context, string, int64, time.Time, string, string) (string, error) {
	return "", nil
}

func (DisabledCalendar) CreateWeeklySeries(context.Context, time.Weekday, string, int, string, string) (string, error) {
	return "", nil
}

func (DisabledCalendar) DeleteSeries(context.Context, string) error { return nil }

func (DisabledCalendar) EventLink(context.Context, string) (string, error) { return "", nil }

// DisabledMailer используется при SMTP_ENABLED=false.
type DisabledMailer struct{}

func (DisabledMailer) Send(context.Context, string, string, string) error { return nil }
