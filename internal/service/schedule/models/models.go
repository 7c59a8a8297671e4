package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

var (
	// ErrInvalidDaySchedule возвращается при некорректном расписании дня
	ErrInvalidDaySchedule = errors.New("invalid day schedule")

	// ErrInvalidBreak возвращается при некорректном перерыве
	ErrInvalidBreak = errors.New("invalid break interval")

	// ErrInvalidDate возвращается при некорректной дате
	ErrInvalidDate = errors.New("invalid date")
)

// DayPayload расписание на один день недели
type DayPayload struct {
	Open   string `json:"open,omitempty"`  // "09:00"
	Close  string `json:"close,omitempty"` // "17:00"
	Closed bool   `json:"closed,omitempty"`
}

// WeekPayload недельное расписание
type WeekPayload struct {
	Monday    DayPayload `json:"monday"`
	Tuesday   DayPayload `json:"tuesday"`
	Wednesday DayPayload `json:"wednesday"`
	Thursday  DayPayload `json:"thursday"`
	Friday    DayPayload `json:"friday"`
	Saturday  DayPayload `json:"saturday"`
	Sunday    DayPayload `json:"sunday"`
}

// BreakPayload перерыв в течение рабочего дня
type BreakPayload struct {
	Start string `json:"start"` // "12:00"
	End   string `json:"end"`   // "13:00"
}

// Request модели

// UpdateResourceScheduleRequest запрос на обновление расписания ресурса
// Hours и UseBusinessDefault взаимоисключающие: либо новое переопределение,
// либо возврат к дефолтному расписанию бизнеса
type UpdateResourceScheduleRequest struct {
	Hours              *WeekPayload `json:"hours,omitempty"`
	UseBusinessDefault bool         `json:"useBusinessDefault,omitempty"`

	AddBlockedDates    []string `json:"addBlockedDates,omitempty"`    // "2025-10-20"
	RemoveBlockedDates []string `json:"removeBlockedDates,omitempty"`
}

// UpdateBusinessScheduleRequest запрос на обновление расписания бизнеса
type UpdateBusinessScheduleRequest struct {
	Hours  *WeekPayload    `json:"hours,omitempty"`
	Breaks *[]BreakPayload `json:"breaks,omitempty"`

	AddBlockedDates    []string `json:"addBlockedDates,omitempty"`
	RemoveBlockedDates []string `json:"removeBlockedDates,omitempty"`
}

// Response модели

// ScheduleResponse ответ с эффективным расписанием ресурса
type ScheduleResponse struct {
	ResourceID int64 `json:"resourceId"`

	// HasOverride = true, если у ресурса есть собственное расписание,
	// полностью заменяющее расписание бизнеса
	HasOverride bool `json:"hasOverride"`

	// Эффективное недельное расписание: переопределение или дефолт бизнеса
	Hours WeekPayload `json:"hours"`

	Breaks       []BreakPayload `json:"breaks"`
	BlockedDates []string       `json:"blockedDates"`
}

// Конвертация в domain

// ToDomainWeeklyHours конвертирует и валидирует недельное расписание
func (w *WeekPayload) ToDomainWeeklyHours() (domain.WeeklyHours, error) {
	var hours domain.WeeklyHours

	days := []struct {
		weekday time.Weekday
		payload DayPayload
	}{
		{time.Monday, w.Monday},
		{time.Tuesday, w.Tuesday},
		{time.Wednesday, w.Wednesday},
		{time.Thursday, w.Thursday},
		{time.Friday, w.Friday},
		{time.Saturday, w.Saturday},
		{time.Sunday, w.Sunday},
	}

	for _, day := range days {
		converted, err := day.payload.toDomainDay()
		if err != nil {
			return hours, fmt.Errorf("%w: %s: %w", ErrInvalidDaySchedule, day.weekday, err)
		}
		hours[int(day.weekday)] = converted
	}

	return hours, nil
}

func (d DayPayload) toDomainDay() (domain.DaySchedule, error) {
	if d.Closed {
		return domain.DaySchedule{Closed: true}, nil
	}

	open, err := types.NewTimeStringFromString(d.Open)
	if err != nil {
		return domain.DaySchedule{}, fmt.Errorf("invalid open time %q", d.Open)
	}
	close, err := types.NewTimeStringFromString(d.Close)
	if err != nil {
		return domain.DaySchedule{}, fmt.Errorf("invalid close time %q", d.Close)
	}
	if !open.IsBefore(close) {
		return domain.DaySchedule{}, fmt.Errorf("open %s must be before close %s", open, close)
	}

	return domain.DaySchedule{Open: open, Close: close}, nil
}

// ToDomainBreaks конвертирует и валидирует перерывы
func ToDomainBreaks(payloads []BreakPayload) ([]domain.BreakInterval, error) {
	breaks := make([]domain.BreakInterval, 0, len(payloads))

	for _, p := range payloads {
		start, err := types.NewTimeStringFromString(p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid start time %q", ErrInvalidBreak, p.Start)
		}
		end, err := types.NewTimeStringFromString(p.End)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid end time %q", ErrInvalidBreak, p.End)
		}
		if !start.IsBefore(end) {
			return nil, fmt.Errorf("%w: start %s must be before end %s", ErrInvalidBreak, start, end)
		}
		breaks = append(breaks, domain.BreakInterval{Start: start, End: end})
	}

	return breaks, nil
}

// ParseDates парсит список дат в формате YYYY-MM-DD
func ParseDates(raw []string) ([]time.Time, error) {
	dates := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		date, err := time.Parse(domain.DateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q, expected YYYY-MM-DD", ErrInvalidDate, s)
		}
		dates = append(dates, date)
	}
	return dates, nil
}

// Конвертация из domain

// FromDomainWeeklyHours конвертирует недельное расписание в payload
func FromDomainWeeklyHours(hours domain.WeeklyHours) WeekPayload {
	return WeekPayload{
		Monday:    fromDomainDay(hours.ForWeekday(time.Monday)),
		Tuesday:   fromDomainDay(hours.ForWeekday(time.Tuesday)),
		Wednesday: fromDomainDay(hours.ForWeekday(time.Wednesday)),
		Thursday:  fromDomainDay(hours.ForWeekday(time.Thursday)),
		Friday:    fromDomainDay(hours.ForWeekday(time.Friday)),
		Saturday:  fromDomainDay(hours.ForWeekday(time.Saturday)),
		Sunday:    fromDomainDay(hours.ForWeekday(time.Sunday)),
	}
}

func fromDomainDay(day domain.DaySchedule) DayPayload {
	if day.Closed {
		return DayPayload{Closed: true}
	}
	return DayPayload{Open: day.Open.String(), Close: day.Close.String()}
}

// FromDomainBreaks конвертирует перерывы в payload
func FromDomainBreaks(breaks []domain.BreakInterval) []BreakPayload {
	payloads := make([]BreakPayload, 0, len(breaks))
	for _, br := range breaks {
		payloads = append(payloads, BreakPayload{Start: br.Start.String(), End: br.End.String()})
	}
	return payloads
}

// BlockedDatesForResource собирает отсортированный список заблокированных дат
// ресурса: даты бизнеса объединяются с датами самого ресурса
func BlockedDatesForResource(policy *domain.SchedulePolicy, resourceID int64) []string {
	seen := make(map[string]struct{}, len(policy.BlockedDates))
	for date := range policy.BlockedDates {
		seen[date] = struct{}{}
	}
	for date := range policy.ResourceBlockedDates[resourceID] {
		seen[date] = struct{}{}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}
