package timetable

import (
	"testing"
	"time"

	"github.com/danlikendy/tutorslot-bot-tg-project/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTemplate(t *testing.T) Template {
	t.Helper()
	tpl, err := ParseTemplate([]string{"15:00", "17:00", "19:00"}, true)
	require.NoError(t, err)
	return tpl
}

// Среда 10:00 — см. сценарий из недельного окна: кандидаты должны покрыть
// Ср/Чт/Пт текущей недели и будни двух следующих, без суббот и воскресений.
func wednesday(t *testing.T) time.Time {
	t.Helper()
	now := time.Date(2025, 10, 8, 10, 0, 0, 0, time.UTC)
	require.Equal(t, time.Wednesday, now.Weekday())
	return now
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("07:45")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay{Hour: 7, Minute: 45}, tod)
	assert.Equal(t, "07:45", tod.String())

	_, err = ParseTimeOfDay("24:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("abc")
	assert.Error(t, err)
}

func TestCandidatesSkipWeekends(t *testing.T) {
	tpl := mustTemplate(t)
	now := wednesday(t)

	candidates := tpl.Candidates(now, 14)

	// 14 дней со среды: 10 будней по 3 времени
	assert.Len(t, candidates, 30)
	for _, c := range candidates {
		assert.NotEqual(t, time.Saturday, c.Weekday())
		assert.NotEqual(t, time.Sunday, c.Weekday())
	}
	// упорядочены по возрастанию
	for i := 1; i < len(candidates); i++ {
		assert.True(t, candidates[i].After(candidates[i-1]))
	}
	// первый кандидат — сегодня 15:00, в том числе до фильтра ">= now"
	assert.Equal(t, time.Date(2025, 10, 8, 15, 0, 0, 0, time.UTC), candidates[0])
}

func TestCandidatesDeterministic(t *testing.T) {
	tpl := mustTemplate(t)
	now := wednesday(t)
	assert.Equal(t, tpl.Candidates(now, 14), tpl.Candidates(now, 14))
}

func TestDayCandidatesOnWeekend(t *testing.T) {
	tpl := mustTemplate(t)
	saturday := time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, tpl.DayCandidates(saturday))
}

func TestProjectWeeklyExcludesPassedToday(t *testing.T) {
	// понедельник 18:00: сегодняшние 17:00 уже прошли
	now := time.Date(2025, 10, 6, 18, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, now.Weekday())

	got := ProjectWeekly(time.Monday, 17, 0, now, 14)

	require.Len(t, got, 1)
	assert.Equal(t, time.Date(2025, 10, 13, 17, 0, 0, 0, time.UTC), got[0])
}

func TestProjectWeeklyIncludesTodayIfAhead(t *testing.T) {
	now := time.Date(2025, 10, 6, 10, 0, 0, 0, time.UTC) // понедельник 10:00
	got := ProjectWeekly(time.Monday, 17, 0, now, 14)

	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2025, 10, 6, 17, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2025, 10, 13, 17, 0, 0, 0, time.UTC), got[1])
}

func TestProjectWeeklyOnlyMatchingWeekday(t *testing.T) {
	now := wednesday(t)
	got := ProjectWeekly(time.Monday, 17, 0, now, 14)
	for _, d := range got {
		assert.Equal(t, time.Monday, d.Weekday())
	}
	assert.Len(t, got, 2)
}

func TestBuildBusySetUnionsBothKinds(t *testing.T) {
	now := wednesday(t)
	single := time.Date(2025, 10, 9, 15, 0, 0, 0, time.UTC) // четверг 15:00

	subs := []*model.WeeklySubscription{
		{ID: 1, Weekday: int(time.Friday), TimeOfDay: "17:00", IsActive: true},
		{ID: 2, Weekday: int(time.Friday), TimeOfDay: "19:00", IsActive: false}, // деактивирована
	}

	busy, err := BuildBusySet([]time.Time{single}, subs, now, 14)
	require.NoError(t, err)

	assert.True(t, busy.Has(single))
	assert.True(t, busy.Has(time.Date(2025, 10, 10, 17, 0, 0, 0, time.UTC)))
	assert.True(t, busy.Has(time.Date(2025, 10, 17, 17, 0, 0, 0, time.UTC)))
	// неактивная подписка не занимает время
	assert.False(t, busy.Has(time.Date(2025, 10, 10, 19, 0, 0, 0, time.UTC)))
}

func TestBuildBusySetBadTimeOfDay(t *testing.T) {
	subs := []*model.WeeklySubscription{{ID: 1, Weekday: 1, TimeOfDay: "xx", IsActive: true}}
	_, err := BuildBusySet(nil, subs, wednesday(t), 14)
	assert.Error(t, err)
}

func TestShiftWeekday(t *testing.T) {
	tests := []struct {
		name     string
		weekday  time.Weekday
		hour     int
		minute   int
		offset   int
		wantWd   time.Weekday
		wantHour int
		wantMin  int
	}{
		{"zero offset", time.Monday, 17, 0, 0, time.Monday, 17, 0},
		{"same day", time.Monday, 17, 0, 60, time.Monday, 16, 0},
		{"borrow across midnight", time.Monday, 0, 30, 60, time.Sunday, 23, 30},
		{"exactly one day", time.Wednesday, 17, 0, 1440, time.Tuesday, 17, 0},
		{"across week start", time.Sunday, 0, 0, 1, time.Saturday, 23, 59},
		{"day and a bit", time.Monday, 9, 15, 1500, time.Sunday, 8, 15},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wd, hh, mm, err := ShiftWeekday(tc.weekday, tc.hour, tc.minute, tc.offset)
			require.NoError(t, err)
			assert.Equal(t, tc.wantWd, wd)
			assert.Equal(t, tc.wantHour, hh)
			assert.Equal(t, tc.wantMin, mm)
		})
	}
}

func TestShiftWeekdayRejectsBadOffsets(t *testing.T) {
	_, _, _, err := ShiftWeekday(time.Monday, 17, 0, -1)
	assert.Error(t, err)

	_, _, _, err = ShiftWeekday(time.Monday, 17, 0, 7*24*60)
	assert.Error(t, err)

	// неделя минус минута ещё допустима
	_, _, _, err = ShiftWeekday(time.Monday, 17, 0, 7*24*60-1)
	assert.NoError(t, err)
}

func TestFormatDtRu(t *testing.T) {
	dt := time.Date(2025, 10, 6, 17, 0, 0, 0, time.UTC)
	assert.Equal(t, "Пн 06.10 17:00", FormatDtRu(dt))
	assert.Equal(t, "Пн 06.10 (3)", FormatDayRu(dt, 3))
	assert.Equal(t, "Понедельник", WeekdayRu(time.Monday))
}
