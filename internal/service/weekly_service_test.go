package service

import (
	"context"
	"testing"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeSucceeds(t *testing.T) {
	e := newLedgerEnv(t)

	w, warnings, err := e.weeklySvc.Subscribe(context.Background(), e.user, time.Monday, "17:00", "Петя", "petya@example.com")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.NotNil(t, w)

	assert.True(t, w.IsActive)
	assert.Equal(t, int(time.Monday), w.Weekday)
	assert.Equal(t, "17:00", w.TimeOfDay)
	assert.Equal(t, 90, w.DurationMin)
	assert.NotEqual(t, [16]byte{}, [16]byte(w.SeriesID))
	require.NotNil(t, w.GcalEventID)

	assert.Equal(t, []int64{w.ID}, e.reminders.weeklyOn)
	assert.Len(t, e.calendar.series, 1)
}

func TestSubscribeSameSlotTwiceConflicts(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	_, _, err := e.weeklySvc.Subscribe(ctx, e.user, time.Monday, "17:00", "Петя", "")
	require.NoError(t, err)

	_, _, err = e.weeklySvc.Subscribe(ctx, &model.User{ID: 8}, time.Monday, "17:00", "Маша", "")
	assert.ErrorIs(t, err, ErrConflict)

	// то же время в другой день свободно
	_, _, err = e.weeklySvc.Subscribe(ctx, &model.User{ID: 8}, time.Tuesday, "17:00", "Маша", "")
	assert.NoError(t, err)
}

func TestSubscribeRejectsBadTimeOfDay(t *testing.T) {
	e := newLedgerEnv(t)

	_, _, err := e.weeklySvc.Subscribe(context.Background(), e.user, time.Monday, "25:99", "Петя", "")
	assert.Error(t, err)

	_, _, err = e.weeklySvc.Subscribe(context.Background(), e.user, time.Monday, "полдень", "Петя", "")
	assert.Error(t, err)
}

// Симметричная проверка занятости: еженедельная запись не встаёт на пару
// (день, время), занятую будущим разовым бронированием.
func TestSubscribeCollidesWithFutureBooking(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	// четверг 09.10 17:00
	_, _, err := e.svc.BookAt(ctx, e.user, e.at(9, 17), "Маша", "")
	require.NoError(t, err)

	_, _, err = e.weeklySvc.Subscribe(ctx, e.user, time.Thursday, "17:00", "Петя", "")
	assert.ErrorIs(t, err, ErrConflict)

	// другое время того же дня свободно
	_, _, err = e.weeklySvc.Subscribe(ctx, e.user, time.Thursday, "19:00", "Петя", "")
	assert.NoError(t, err)
}

func TestSubscribeIgnoresPastBookings(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	// прошедшее занятие кладём в стор напрямую, в обход проверки BookAt
	_, err := e.bookings.Reserve(ctx, e.user.ID, e.at(6, 17), "Маша", "")
	require.NoError(t, err)

	// понедельник 06.10 17:00 уже позади — не мешает
	_, _, err = e.weeklySvc.Subscribe(ctx, e.user, time.Monday, "17:00", "Петя", "")
	assert.NoError(t, err)
}

func TestWeeklyCancelDeactivatesAndFreesSlot(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	w, _, err := e.weeklySvc.Subscribe(ctx, e.user, time.Monday, "17:00", "Петя", "")
	require.NoError(t, err)
	eventID := *w.GcalEventID

	warnings, err := e.weeklySvc.Cancel(ctx, w.ID, e.user, false)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, []int64{w.ID}, e.reminders.weeklyOff)
	assert.Equal(t, []string{eventID}, e.calendar.seriesDel)

	// мягкое удаление: строка остаётся, но неактивна
	got, err := e.weekly.GetByID(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	// слот освободился для новой записи
	_, _, err = e.weeklySvc.Subscribe(ctx, e.user, time.Monday, "17:00", "Маша", "")
	assert.NoError(t, err)
}

func TestWeeklyCancelPermissions(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	w, _, err := e.weeklySvc.Subscribe(ctx, e.user, time.Monday, "17:00", "Петя", "")
	require.NoError(t, err)

	_, err = e.weeklySvc.Cancel(ctx, w.ID, &model.User{ID: 99}, false)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = e.weeklySvc.Cancel(ctx, w.ID, &model.User{ID: 99}, true)
	assert.NoError(t, err)

	// повторная отмена — уже не найдено
	_, err = e.weeklySvc.Cancel(ctx, w.ID, e.user, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeSucceedsWhenCalendarDown(t *testing.T) {
	e := newLedgerEnv(t)
	e.calendar.failAll = true

	w, warnings, err := e.weeklySvc.Subscribe(context.Background(), e.user, time.Monday, "17:00", "Петя", "")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Nil(t, w.GcalEventID)

	require.Len(t, warnings, 1)
	assert.Equal(t, "calendar.create_series", warnings[0].Op)
	assert.Equal(t, []int64{w.ID}, e.reminders.weeklyOn)
}

func TestWeeklyProjectionBlocksAvailability(t *testing.T) {
	e := newLedgerEnv(t)
	ctx := context.Background()

	_, _, err := e.weeklySvc.Subscribe(ctx, e.user, time.Friday, "17:00", "Петя", "")
	require.NoError(t, err)

	// обе пятницы окна теряют 17:00
	times, err := e.svc.AvailableTimes(ctx, e.at(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{e.at(10, 15), e.at(10, 19)}, times)

	times, err = e.svc.AvailableTimes(ctx, e.at(17, 0))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{e.at(17, 15), e.at(17, 19)}, times)
}
