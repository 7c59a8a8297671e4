package get_available_slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

func mustTime(t *testing.T, s string) types.TimeString {
	t.Helper()
	ts, err := types.NewTimeStringFromString(s)
	require.NoError(t, err)
	return ts
}

func slotStrings(slots []types.TimeString) []string {
	result := make([]string, len(slots))
	for i, s := range slots {
		result[i] = s.String()
	}
	return result
}

func TestGenerateTimeSlots_FullDayWithBreak(t *testing.T) {
	// Рабочий день 09:00-17:00, услуга 30 минут, перерыв 12:00-13:00, сейчас ровно 09:00
	hours := domain.DaySchedule{Open: mustTime(t, "09:00"), Close: mustTime(t, "17:00")}
	breaks := []domain.BreakInterval{{Start: mustTime(t, "12:00"), End: mustTime(t, "13:00")}}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, breaks, 30, 30, date, now)
	require.NoError(t, err)

	expected := []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	}
	assert.Equal(t, expected, slotStrings(slots))
}

func TestGenerateTimeSlots_LastSlotEndsExactlyAtClose(t *testing.T) {
	hours := domain.DaySchedule{Open: mustTime(t, "16:00"), Close: mustTime(t, "17:00")}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, nil, 30, 30, date, now)
	require.NoError(t, err)

	// 16:30+30 = 17:00 = закрытие - слот включается
	assert.Equal(t, []string{"16:00", "16:30"}, slotStrings(slots))
}

func TestGenerateTimeSlots_DurationLongerThanGranularity(t *testing.T) {
	// Услуга 60 минут при сетке 30 минут: кандидат 11:30-12:30 пересекает перерыв
	// и пропускается целиком, а не обрезается
	hours := domain.DaySchedule{Open: mustTime(t, "10:00"), Close: mustTime(t, "14:00")}
	breaks := []domain.BreakInterval{{Start: mustTime(t, "12:00"), End: mustTime(t, "13:00")}}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, breaks, 60, 30, date, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"10:00", "10:30", "11:00", "13:00"}, slotStrings(slots))
}

func TestGenerateTimeSlots_TodayFiltersPastSlots(t *testing.T) {
	hours := domain.DaySchedule{Open: mustTime(t, "09:00"), Close: mustTime(t, "12:00")}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	// Сейчас 10:15 - слоты 09:00, 09:30, 10:00 уже в прошлом
	now := time.Date(2025, 10, 15, 10, 15, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, nil, 30, 30, date, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"10:30", "11:00", "11:30"}, slotStrings(slots))
}

func TestGenerateTimeSlots_TodaySlotAtExactlyNowIsIncluded(t *testing.T) {
	hours := domain.DaySchedule{Open: mustTime(t, "09:00"), Close: mustTime(t, "11:00")}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	// Ровно 10:00: слот 10:00 ещё валиден (строгое "раньше", без буфера)
	now := time.Date(2025, 10, 15, 10, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, nil, 30, 30, date, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"10:00", "10:30"}, slotStrings(slots))
}

func TestGenerateTimeSlots_TodaySecondsRoundUpToNextMinute(t *testing.T) {
	hours := domain.DaySchedule{Open: mustTime(t, "09:00"), Close: mustTime(t, "11:00")}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	// 10:00:30 - минута 10:00 уже началась, слот 10:00 предлагать нельзя
	now := time.Date(2025, 10, 15, 10, 0, 30, 0, time.UTC)

	slots, err := generateTimeSlots(hours, nil, 30, 30, date, now)
	require.NoError(t, err)

	assert.Equal(t, []string{"10:30"}, slotStrings(slots))
}

func TestGenerateTimeSlots_ClosedDay(t *testing.T) {
	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(domain.DaySchedule{Closed: true}, nil, 30, 30, date, now)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateTimeSlots_PastDate(t *testing.T) {
	hours := domain.DaySchedule{Open: mustTime(t, "09:00"), Close: mustTime(t, "17:00")}

	date := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	slots, err := generateTimeSlots(hours, nil, 30, 30, date, now)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateTimeSlots_AllSlotsInsideEffectiveHours(t *testing.T) {
	// Свойство: каждый слот целиком внутри рабочих часов и вне перерывов
	hours := domain.DaySchedule{Open: mustTime(t, "08:15"), Close: mustTime(t, "19:45")}
	breaks := []domain.BreakInterval{
		{Start: mustTime(t, "12:00"), End: mustTime(t, "13:00")},
		{Start: mustTime(t, "16:30"), End: mustTime(t, "17:00")},
	}

	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)

	for _, duration := range []int{15, 30, 45, 60, 90} {
		slots, err := generateTimeSlots(hours, breaks, duration, 15, date, now)
		require.NoError(t, err)
		require.NotEmpty(t, slots)

		for _, slot := range slots {
			end, err := slot.AddMinutes(duration)
			require.NoError(t, err)

			assert.False(t, slot.IsBefore(hours.Open), "slot %s starts before open", slot)
			assert.False(t, end.IsAfter(hours.Close), "slot %s ends after close", slot)
			for _, br := range breaks {
				assert.False(t, br.Intersects(slot, end), "slot %s intersects break %s-%s", slot, br.Start, br.End)
			}
		}
	}
}

func TestFilterBookedSlots(t *testing.T) {
	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	slots := []types.TimeString{
		mustTime(t, "10:00"), mustTime(t, "10:30"), mustTime(t, "11:00"), mustTime(t, "11:30"),
	}

	appointments := []*domain.Appointment{
		// Активная запись 10:30-11:00 занимает слот 10:30
		{StartAt: date.Add(10*time.Hour + 30*time.Minute), DurationMinutes: 30, Status: domain.StatusConfirmed},
		// Отменённая запись 11:00-11:30 слот не занимает
		{StartAt: date.Add(11 * time.Hour), DurationMinutes: 30, Status: domain.StatusCancelled},
	}

	result := filterBookedSlots(slots, 30, date, appointments)

	starts := make([]string, len(result))
	for i, s := range result {
		starts[i] = s.StartTime.String()
	}
	assert.Equal(t, []string{"10:00", "11:00", "11:30"}, starts)

	// Границы слотов заполняются
	assert.Equal(t, "10:30", result[0].EndTime.String())
}

func TestFilterBookedSlots_BoundaryDoesNotBlock(t *testing.T) {
	date := time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)
	slots := []types.TimeString{mustTime(t, "11:00")}

	// Запись 10:30-11:00 граничит со слотом 11:00-11:30, но не пересекает его
	appointments := []*domain.Appointment{
		{StartAt: date.Add(10*time.Hour + 30*time.Minute), DurationMinutes: 30, Status: domain.StatusScheduled},
	}

	result := filterBookedSlots(slots, 30, date, appointments)
	require.Len(t, result, 1)
	assert.Equal(t, "11:00", result[0].StartTime.String())
}
