package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBookings struct {
	mu   sync.Mutex
	byID map[int64]*model.Booking
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeBookings) ListAll(context.Context) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.byID {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBookings) remove(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
}

type fakeWeekly struct {
	byID map[int64]*model.WeeklySubscription
}

func (f *fakeWeekly) GetByID(_ context.Context, id int64) (*model.WeeklySubscription, error) {
	return f.byID[id], nil
}

func (f *fakeWeekly) ListActive(context.Context) ([]*model.WeeklySubscription, error) {
	var out []*model.WeeklySubscription
	for _, w := range f.byID {
		if w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeUsers struct {
	byID map[int64]*model.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	return f.byID[id], nil
}

type sentMessage struct {
	tgID int64
	text string
}

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]bool
}

func (f *fakeNotifier) SendToUser(_ context.Context, tgID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[tgID] {
		return errors.New("telegram unavailable")
	}
	f.sent = append(f.sent, sentMessage{tgID: tgID, text: text})
	return nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type env struct {
	svc      *Service
	sched    *Scheduler
	bookings *fakeBookings
	weekly   *fakeWeekly
	notifier *fakeNotifier
	mailer   *fakeMailer
	now      time.Time
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		sched:    NewScheduler(zap.NewNop()),
		bookings: &fakeBookings{byID: map[int64]*model.Booking{}},
		weekly:   &fakeWeekly{byID: map[int64]*model.WeeklySubscription{}},
		notifier: &fakeNotifier{failFor: map[int64]bool{}},
		mailer:   &fakeMailer{},
		now:      time.Date(2025, 10, 8, 10, 0, 0, 0, time.UTC), // среда
	}
	users := &fakeUsers{byID: map[int64]*model.User{
		7: {ID: 7, TgID: 700, Name: "Иван"},
	}}
	e.svc = NewService(
		e.sched, e.bookings, e.weekly, users, e.notifier, e.mailer,
		true, []int{1440, 60}, []int64{42}, time.UTC, zap.NewNop(),
	)
	e.svc.clock = func() time.Time { return e.now }
	t.Cleanup(e.sched.Stop)
	return e
}

func (e *env) addBooking(id int64, startAt time.Time, contact string) *model.Booking {
	b := &model.Booking{
		ID:             id,
		UserID:         7,
		StudentName:    "Маша",
		StudentContact: contact,
		Slot:           &model.Slot{ID: id, StartAt: startAt},
	}
	e.bookings.byID[id] = b
	return b
}

func TestScheduleForBookingRegistersJobPerOffset(t *testing.T) {
	e := newEnv(t)
	b := e.addBooking(1, e.now.Add(48*time.Hour), "")

	e.svc.ScheduleForBooking(b)

	assert.True(t, e.sched.Has("remind:1:1440"))
	assert.True(t, e.sched.Has("remind:1:60"))
	assert.Equal(t, 2, e.sched.Len())
}

func TestScheduleForBookingIdempotent(t *testing.T) {
	e := newEnv(t)
	b := e.addBooking(1, e.now.Add(48*time.Hour), "")

	e.svc.ScheduleForBooking(b)
	e.svc.ScheduleForBooking(b)

	assert.Equal(t, 2, e.sched.Len())
}

func TestScheduleForBookingSkipsPassedOffsets(t *testing.T) {
	e := newEnv(t)
	// занятие через 2 часа: суточное напоминание уже в прошлом
	b := e.addBooking(1, e.now.Add(2*time.Hour), "")

	e.svc.ScheduleForBooking(b)

	assert.False(t, e.sched.Has("remind:1:1440"))
	assert.True(t, e.sched.Has("remind:1:60"))
}

func TestScheduleForBookingSkipsPastLesson(t *testing.T) {
	e := newEnv(t)
	b := e.addBooking(1, e.now.Add(-time.Hour), "")

	e.svc.ScheduleForBooking(b)

	assert.Equal(t, 0, e.sched.Len())
}

func TestCancelForBookingRemovesAllOffsets(t *testing.T) {
	e := newEnv(t)
	b := e.addBooking(1, e.now.Add(48*time.Hour), "")
	e.svc.ScheduleForBooking(b)

	e.svc.CancelForBooking(1)

	assert.Equal(t, 0, e.sched.Len())

	// повторная отмена без заданий — no-op
	e.svc.CancelForBooking(1)
}

func TestFireBookingGoneIsNoop(t *testing.T) {
	e := newEnv(t)
	e.addBooking(1, e.now.Add(48*time.Hour), "")
	e.bookings.remove(1)

	e.svc.fireBooking(context.Background(), 1)

	assert.Empty(t, e.notifier.messages())
}

func TestFireBookingDeliversToUserAndAdmins(t *testing.T) {
	e := newEnv(t)
	e.addBooking(1, time.Date(2025, 10, 10, 17, 0, 0, 0, time.UTC), "masha@example.com")

	e.svc.fireBooking(context.Background(), 1)

	msgs := e.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(700), msgs[0].tgID)
	assert.Contains(t, msgs[0].text, "Пт 10.10 17:00")
	assert.Equal(t, int64(42), msgs[1].tgID)
	assert.Contains(t, msgs[1].text, "masha@example.com")

	assert.Equal(t, []string{"masha@example.com"}, e.mailer.sent)
}

func TestFireBookingChannelFailuresAreIsolated(t *testing.T) {
	e := newEnv(t)
	e.addBooking(1, time.Date(2025, 10, 10, 17, 0, 0, 0, time.UTC), "masha@example.com")
	e.notifier.failFor[700] = true // телеграм пользователя недоступен

	e.svc.fireBooking(context.Background(), 1)

	// админская копия и письмо всё равно ушли
	msgs := e.notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].tgID)
	assert.Equal(t, []string{"masha@example.com"}, e.mailer.sent)
}

func TestFireBookingNonEmailContactSkipsMail(t *testing.T) {
	e := newEnv(t)
	e.addBooking(1, time.Date(2025, 10, 10, 17, 0, 0, 0, time.UTC), "+7 900 000-00-00")

	e.svc.fireBooking(context.Background(), 1)

	assert.Empty(t, e.mailer.sent)
}

func TestScheduleForWeeklyRegistersTriggers(t *testing.T) {
	e := newEnv(t)
	w := &model.WeeklySubscription{ID: 5, UserID: 7, Weekday: 1, TimeOfDay: "17:00", IsActive: true}
	e.weekly.byID[5] = w

	e.svc.ScheduleForWeekly(w)

	assert.True(t, e.sched.Has("remind:w:5:1440"))
	assert.True(t, e.sched.Has("remind:w:5:60"))

	e.svc.CancelForWeekly(5)
	assert.Equal(t, 0, e.sched.Len())
}

func TestScheduleForWeeklySkipsInactive(t *testing.T) {
	e := newEnv(t)
	w := &model.WeeklySubscription{ID: 5, Weekday: 1, TimeOfDay: "17:00", IsActive: false}

	e.svc.ScheduleForWeekly(w)

	assert.Equal(t, 0, e.sched.Len())
}

func TestScheduleForWeeklyRejectsWeekLongOffset(t *testing.T) {
	e := newEnv(t)
	e.svc.offsets = []int{7 * 24 * 60, 60}
	w := &model.WeeklySubscription{ID: 5, Weekday: 1, TimeOfDay: "17:00", IsActive: true}

	e.svc.ScheduleForWeekly(w)

	// недельный офсет отклонён, часовой стоит
	assert.Equal(t, 1, e.sched.Len())
	assert.True(t, e.sched.Has("remind:w:5:60"))
}

func TestFireWeeklyInactiveIsNoop(t *testing.T) {
	e := newEnv(t)
	e.weekly.byID[5] = &model.WeeklySubscription{ID: 5, UserID: 7, Weekday: 1, TimeOfDay: "17:00", IsActive: false}

	e.svc.fireWeekly(context.Background(), 5)

	assert.Empty(t, e.notifier.messages())
}

func TestFireWeeklyDelivers(t *testing.T) {
	e := newEnv(t)
	e.weekly.byID[5] = &model.WeeklySubscription{
		ID: 5, UserID: 7, StudentName: "Петя", Weekday: 1, TimeOfDay: "17:00", IsActive: true,
	}

	e.svc.fireWeekly(context.Background(), 5)

	msgs := e.notifier.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].text, "Понедельник 17:00 (еженедельно)")
}

func TestRebuildRestoresJobTable(t *testing.T) {
	e := newEnv(t)
	e.addBooking(1, e.now.Add(48*time.Hour), "")
	e.addBooking(2, e.now.Add(-time.Hour), "") // уже прошло, заданий не даёт
	e.weekly.byID[5] = &model.WeeklySubscription{ID: 5, UserID: 7, Weekday: 1, TimeOfDay: "17:00", IsActive: true}

	e.svc.Rebuild(context.Background())

	assert.Equal(t, 4, e.sched.Len()) // 2 офсета брони + 2 еженедельных
}

func TestDisabledServiceSchedulesNothing(t *testing.T) {
	e := newEnv(t)
	e.svc.enabled = false
	b := e.addBooking(1, e.now.Add(48*time.Hour), "")

	e.svc.ScheduleForBooking(b)
	e.svc.Rebuild(context.Background())

	assert.Equal(t, 0, e.sched.Len())
}
