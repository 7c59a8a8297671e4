package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdaySchedule(open, close string) DaySchedule {
	return DaySchedule{Open: mustTime(open), Close: mustTime(close)}
}

func allWeek(open, close string) WeeklyHours {
	var w WeeklyHours
	for i := range w {
		w[i] = weekdaySchedule(open, close)
	}
	return w
}

func TestEffectiveHours_BusinessDefault(t *testing.T) {
	policy := &SchedulePolicy{
		BusinessHours: allWeek("09:00", "17:00"),
	}

	// 2025-10-15 - среда
	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	hours := policy.EffectiveHours(date, 1)

	require.False(t, hours.Closed)
	assert.Equal(t, "09:00", hours.Open.String())
	assert.Equal(t, "17:00", hours.Close.String())
}

func TestEffectiveHours_ResourceOverrideReplacesEntirely(t *testing.T) {
	override := allWeek("12:00", "20:00")
	// У ресурса выходной в воскресенье, хотя бизнес открыт
	override[int(time.Sunday)] = DaySchedule{Closed: true}

	policy := &SchedulePolicy{
		BusinessHours: allWeek("09:00", "17:00"),
		ResourceHours: map[int64]WeeklyHours{42: override},
	}

	wednesday := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 10, 19, 0, 0, 0, 0, time.UTC)

	// Переопределение заменяет расписание бизнеса целиком
	hours := policy.EffectiveHours(wednesday, 42)
	require.False(t, hours.Closed)
	assert.Equal(t, "12:00", hours.Open.String())

	// Закрытый день в переопределении не подменяется дефолтом бизнеса
	assert.True(t, policy.EffectiveHours(sunday, 42).Closed)

	// Другой ресурс без переопределения получает расписание бизнеса
	hours = policy.EffectiveHours(wednesday, 7)
	assert.Equal(t, "09:00", hours.Open.String())
}

func TestEffectiveHours_BlockedDates(t *testing.T) {
	policy := &SchedulePolicy{
		BusinessHours: allWeek("09:00", "17:00"),
		ResourceHours: map[int64]WeeklyHours{42: allWeek("12:00", "20:00")},
		BlockedDates:  map[string]struct{}{"2025-12-31": {}},
		ResourceBlockedDates: map[int64]map[string]struct{}{
			42: {"2025-10-15": {}},
		},
	}

	blockedForAll := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	blockedForResource := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)

	// Блокировка уровня бизнеса действует на все ресурсы, включая переопределённые
	assert.True(t, policy.EffectiveHours(blockedForAll, 42).Closed)
	assert.True(t, policy.EffectiveHours(blockedForAll, 7).Closed)

	// Блокировка ресурса действует только на него
	assert.True(t, policy.EffectiveHours(blockedForResource, 42).Closed)
	assert.False(t, policy.EffectiveHours(blockedForResource, 7).Closed)
}

func TestBreakInterval_Intersects(t *testing.T) {
	br := BreakInterval{Start: mustTime("12:00"), End: mustTime("13:00")}

	// Слот целиком внутри перерыва
	assert.True(t, br.Intersects(mustTime("12:00"), mustTime("12:30")))
	// Слот начинается до перерыва и заканчивается внутри
	assert.True(t, br.Intersects(mustTime("11:45"), mustTime("12:15")))
	// Граничащие интервалы не пересекаются
	assert.False(t, br.Intersects(mustTime("11:30"), mustTime("12:00")))
	assert.False(t, br.Intersects(mustTime("13:00"), mustTime("13:30")))
}
