// Package gcal — реализация внешнего календаря поверх Google Calendar API.
// Календарь — отражение леджера, не источник истины: его сбои никогда не
// откатывают бронирование.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/sink"
)

// byDay — коды дней недели RRULE, индекс совпадает с time.Weekday.
var byDay = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

type Client struct {
	svc         *calendar.Service
	calendarID  string
	loc         *time.Location
	durationMin int
	logger      *zap.Logger
}

func NewClient(ctx context.Context, credentialsPath, calendarID string, loc *time.Location, durationMin int, logger *zap.Logger) (*Client, error) {
	svc, err := calendar.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{
		svc:         svc,
		calendarID:  calendarID,
		loc:         loc,
		durationMin: durationMin,
		logger:      logger,
	}, nil
}

func (c *Client) event(bookingID int64, startAt time.Time, student, contact string) *calendar.Event {
	start := startAt.In(c.loc)
	end := start.Add(time.Duration(c.durationMin) * time.Minute)

	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Занятие: %s", student),
		Description: fmt.Sprintf("Бронирование #%d\nКонтакт: %s", bookingID, contact),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
	}
	// email-контакт становится приглашённым участником и получает письма
	// от самого календаря
	if sink.IsEmail(contact) {
		ev.Attendees = []*calendar.EventAttendee{{Email: contact}}
	}
	return ev
}

func (c *Client) CreateEvent(ctx context.Context, bookingID int64, startAt time.Time, student, contact string) (string, error) {
	ev := c.event(bookingID, startAt, student, contact)

	created, err := c.svc.Events.Insert(c.calendarID, ev).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}

	c.logger.Info("Calendar event created",
		zap.Int64("booking_id", bookingID),
		zap.String("event_id", created.Id),
	)
	return created.Id, nil
}

func (c *Client) UpdateEvent(ctx context.Context, eventID string, startAt time.Time, student, contact string) error {
	ev := c.event(0, startAt, student, contact)
	ev.Description = fmt.Sprintf("Контакт: %s", contact)

	if _, err := c.svc.Events.Update(c.calendarID, eventID, ev).SendUpdates("all").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update calendar event %s: %w", eventID, err)
	}
	return nil
}

func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.svc.Events.Delete(c.calendarID, eventID).SendUpdates("all").Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

// ForceRecreate удаляет старое событие и создаёт новое. Для переноса это
// надёжнее патча: приглашённые гарантированно получают отмену и новое
// приглашение.
func (c *Client) ForceRecreate(ctx context.Context, eventID string, bookingID int64, startAt time.Time, student, contact string) (string, error) {
	if eventID != "" {
		if err := c.DeleteEvent(ctx, eventID); err != nil {
			c.logger.Warn("Recreate: delete old event failed", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return c.CreateEvent(ctx, bookingID, startAt, student, contact)
}

func (c *Client) CreateWeeklySeries(ctx context.Context, weekday time.Weekday, timeOfDay string, durationMin int, student, contact string) (string, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(timeOfDay, "%d:%d", &hour, &minute); err != nil {
		return "", fmt.Errorf("parse time of day %q: %w", timeOfDay, err)
	}

	start := nextWeekdayTime(time.Now().In(c.loc), weekday, hour, minute)
	end := start.Add(time.Duration(durationMin) * time.Minute)

	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Занятие (еженедельно): %s", student),
		Description: fmt.Sprintf("Контакт: %s", contact),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		Recurrence: []string{fmt.Sprintf("RRULE:FREQ=WEEKLY;BYDAY=%s", byDay[int(weekday)])},
	}
	if sink.IsEmail(contact) {
		ev.Attendees = []*calendar.EventAttendee{{Email: contact}}
	}

	created, err := c.svc.Events.Insert(c.calendarID, ev).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert weekly series: %w", err)
	}

	c.logger.Info("Calendar weekly series created",
		zap.String("event_id", created.Id),
		zap.String("weekday", weekday.String()),
		zap.String("time_of_day", timeOfDay),
	)
	return created.Id, nil
}

func (c *Client) DeleteSeries(ctx context.Context, eventID string) error {
	return c.DeleteEvent(ctx, eventID)
}

func (c *Client) EventLink(ctx context.Context, eventID string) (string, error) {
	ev, err := c.svc.Events.Get(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get calendar event %s: %w", eventID, err)
	}
	return ev.HtmlLink, nil
}

// isGone — событие уже удалено на стороне Google; повторное удаление не
// ошибка.
func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == 404 || apiErr.Code == 410
	}
	return false
}

func nextWeekdayTime(now time.Time, weekday time.Weekday, hour, minute int) time.Time {
	daysAhead := (int(weekday) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).AddDate(0, 0, daysAhead)
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}
