package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// generateTimeSlots генерирует кандидатов слотов для ресурса на день
// Курсор идёт от открытия до закрытия с шагом granularityMinutes,
// каждый кандидат - интервал [cursor, cursor+durationMinutes)
//
// Кандидат валиден, только если:
//   - не выходит за время закрытия
//   - не пересекается ни с одним перерывом
//   - для сегодняшней даты: cursor >= now (строго, без буфера); секунды
//     округляются вверх до следующей минуты, чтобы уже начавшаяся минута
//     не предлагалась
//
// Невалидные кандидаты пропускаются целиком, а не обрезаются: слот либо
// помещается полностью, либо не предлагается
//
// Функция чистая относительно (hours, breaks, duration, granularity, date, now):
// существующие бронирования здесь не учитываются - это делает вызывающая сторона
// поверх запросов к хранилищу, чтобы арифметика слотов тестировалась отдельно
func generateTimeSlots(
	hours domain.DaySchedule,
	breaks []domain.BreakInterval,
	durationMinutes int,
	granularityMinutes int,
	requestDate time.Time,
	now time.Time,
) ([]types.TimeString, error) {
	// Дата в прошлом - слотов нет
	if isDateInPast(requestDate, now) {
		return []types.TimeString{}, nil
	}

	// Ресурс закрыт в этот день
	if hours.Closed || hours.Open == "" || hours.Close == "" {
		return []types.TimeString{}, nil
	}

	isToday := isSameDay(requestDate, now)
	currentTime := types.NewTimeString(now)
	// NewTimeString отбрасывает секунды - при 10:00:30 слот "10:00" уже начался
	if isToday && !now.Truncate(time.Minute).Equal(now) {
		rounded, err := currentTime.AddMinutes(1)
		if err != nil {
			return nil, err
		}
		currentTime = rounded
	}

	slots := make([]types.TimeString, 0)
	cursor := hours.Open

	for cursor.IsBefore(hours.Close) {
		slotEnd, err := cursor.AddMinutes(durationMinutes)
		if err != nil {
			// Конец слота вышел за пределы суток - дальше все кандидаты тоже невалидны
			break
		}

		valid := true

		// Слот не должен выходить за время закрытия
		// Слот, заканчивающийся ровно в закрытие, валиден
		if slotEnd.IsAfter(hours.Close) {
			valid = false
		}

		// Слот не должен пересекаться с перерывами
		if valid {
			for _, br := range breaks {
				if br.Intersects(cursor, slotEnd) {
					valid = false
					break
				}
			}
		}

		// Для сегодняшней даты слот должен начинаться не раньше текущего времени
		if valid && isToday && cursor.IsBefore(currentTime) {
			valid = false
		}

		if valid {
			slots = append(slots, cursor)
		}

		next, err := cursor.AddMinutes(granularityMinutes)
		if err != nil {
			break
		}
		cursor = next
	}

	return slots, nil
}

// filterBookedSlots убирает слоты, пересекающиеся с активными записями ресурса
// Запись с граничащим интервалом (её конец = начало слота) слот не занимает
func filterBookedSlots(
	slots []types.TimeString,
	durationMinutes int,
	date time.Time,
	appointments []*domain.Appointment,
) []Slot {
	result := make([]Slot, 0, len(slots))

	for _, slotStart := range slots {
		startAt, err := slotStart.OnDate(date)
		if err != nil {
			continue
		}
		slotRange := domain.NewTimeRange(startAt, durationMinutes)

		if hasOverlappingAppointment(slotRange, appointments) {
			continue
		}

		slotEnd, err := slotStart.AddMinutes(durationMinutes)
		if err != nil {
			continue
		}

		result = append(result, Slot{
			StartTime: slotStart,
			EndTime:   slotEnd,
		})
	}

	return result
}

// hasOverlappingAppointment проверяет, пересекается ли интервал с активной записью
func hasOverlappingAppointment(rng domain.TimeRange, appointments []*domain.Appointment) bool {
	for _, appt := range appointments {
		// Отменённые и no-show не занимают слот
		if !appt.OccupiesSlot() {
			continue
		}
		if rng.Overlaps(appt.Range()) {
			return true
		}
	}
	return false
}

// isSameDay проверяет, что две даты относятся к одному и тому же дню
func isSameDay(date1, date2 time.Time) bool {
	y1, m1, d1 := date1.Date()
	y2, m2, d2 := date2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// isDateInPast проверяет, что дата в прошлом (раньше сегодняшнего дня)
func isDateInPast(date, now time.Time) bool {
	// Обнуляем время, чтобы сравнивать только даты
	dateOnly := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	nowOnly := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return dateOnly.Before(nowOnly)
}
