package domain

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// DaySchedule расписание работы на один день недели
type DaySchedule struct {
	Open   types.TimeString
	Close  types.TimeString
	Closed bool
}

// WeeklyHours недельное расписание, индексируется time.Weekday (0 = Sunday)
type WeeklyHours [7]DaySchedule

// ForWeekday возвращает расписание на день недели
func (w WeeklyHours) ForWeekday(day time.Weekday) DaySchedule {
	return w[int(day)]
}

// BreakInterval перерыв в течение рабочего дня (общий для всего бизнеса)
type BreakInterval struct {
	Start types.TimeString
	End   types.TimeString
}

// Intersects проверяет, пересекается ли кандидат [slotStart, slotEnd) с перерывом
// Граничащие интервалы пересечением не считаются
func (b BreakInterval) Intersects(slotStart, slotEnd types.TimeString) bool {
	return b.Start.IsBefore(slotEnd) && slotStart.IsBefore(b.End)
}

// SchedulePolicy эффективная политика доступности бизнеса
// Явный value object: загружается из хранилища и передаётся в каждый вызов,
// никакого глобального состояния с настройками
type SchedulePolicy struct {
	// Дефолтное недельное расписание бизнеса
	BusinessHours WeeklyHours

	// Переопределения расписания по ресурсам
	// Переопределение работает по принципу "всё или ничего":
	// если у ресурса есть запись - она полностью заменяет расписание бизнеса,
	// частичного слияния полей нет
	ResourceHours map[int64]WeeklyHours

	// Заблокированные даты уровня бизнеса (формат YYYY-MM-DD)
	BlockedDates map[string]struct{}

	// Заблокированные даты конкретных ресурсов - объединяются с датами бизнеса
	ResourceBlockedDates map[int64]map[string]struct{}

	// Перерывы, общие для всех ресурсов
	Breaks []BreakInterval
}

// EffectiveHours разрешает эффективное расписание ресурса на дату
// Порядок разрешения:
//  1. дата заблокирована (на уровне бизнеса или ресурса) - закрыто
//  2. у ресурса есть переопределение - используется его запись на день недели
//  3. иначе - дефолтное расписание бизнеса
func (p *SchedulePolicy) EffectiveHours(date time.Time, resourceID int64) DaySchedule {
	dateKey := date.Format(DateFormat)

	if _, blocked := p.BlockedDates[dateKey]; blocked {
		return DaySchedule{Closed: true}
	}
	if resourceDates, ok := p.ResourceBlockedDates[resourceID]; ok {
		if _, blocked := resourceDates[dateKey]; blocked {
			return DaySchedule{Closed: true}
		}
	}

	if override, ok := p.ResourceHours[resourceID]; ok {
		return override.ForWeekday(date.Weekday())
	}

	return p.BusinessHours.ForWeekday(date.Weekday())
}

// IsBlocked проверяет, заблокирована ли дата для ресурса
func (p *SchedulePolicy) IsBlocked(date time.Time, resourceID int64) bool {
	dateKey := date.Format(DateFormat)
	if _, blocked := p.BlockedDates[dateKey]; blocked {
		return true
	}
	if resourceDates, ok := p.ResourceBlockedDates[resourceID]; ok {
		if _, blocked := resourceDates[dateKey]; blocked {
			return true
		}
	}
	return false
}

// Service услуга из каталога
// Длительность фиксируется на записи в момент бронирования и не пересчитывается
type Service struct {
	ID              int64
	Name            string
	DurationMinutes int
}
