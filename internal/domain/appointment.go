package domain

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	// StatusScheduled запись создана, ожидает подтверждения по токену
	StatusScheduled AppointmentStatus = "scheduled"
	// StatusConfirmed запись подтверждена клиентом
	StatusConfirmed AppointmentStatus = "confirmed"
	// StatusCompleted услуга оказана (терминальный)
	StatusCompleted AppointmentStatus = "completed"
	// StatusCancelled запись отменена (терминальный)
	StatusCancelled AppointmentStatus = "cancelled"
	// StatusNoShow клиент не пришёл (терминальный)
	StatusNoShow AppointmentStatus = "no_show"
)

// CancelActor инициатор отмены записи
type CancelActor string

const (
	// ActorCustomer клиент - отмена подчиняется cutoff-окну
	ActorCustomer CancelActor = "customer"
	// ActorBusiness бизнес - отмена без ограничения по времени
	ActorBusiness CancelActor = "business"
)

// Appointment represents a booked appointment for a resource (employee)
type Appointment struct {
	ID              int64
	ResourceID      int64
	ServiceID       int64
	StartAt         time.Time // Начало в локальном времени бизнеса
	DurationMinutes int       // Длительность услуги, фиксируется при бронировании

	Status AppointmentStatus

	// Токен подтверждения: не nil только пока статус scheduled
	// Обнуляется ровно в момент перехода в confirmed
	ConfirmationToken *string
	TokenExpiresAt    *time.Time

	// Данные клиента (контакт для подтверждения)
	CustomerName  string
	CustomerPhone string

	// Denormalized data for history
	ServiceName string
	Notes       *string

	CancellationReason *string
	CancelledAt        *time.Time

	// Версия для optimistic concurrency: каждый переход статуса проверяет
	// и инкрементирует её, проигравший гонку получает StaleVersion
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EndAt возвращает время окончания записи
func (a *Appointment) EndAt() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Range возвращает полуинтервал [StartAt, StartAt+Duration) записи
func (a *Appointment) Range() TimeRange {
	return TimeRange{Start: a.StartAt, End: a.EndAt()}
}

// OccupiesSlot returns true if the appointment blocks its time range for other bookings
func (a *Appointment) OccupiesSlot() bool {
	return a.Status == StatusScheduled ||
		a.Status == StatusConfirmed ||
		a.Status == StatusCompleted
}

// CanBeConfirmed returns true if the appointment is awaiting confirmation
func (a *Appointment) CanBeConfirmed() bool {
	return a.Status == StatusScheduled
}

// CanBeCancelled returns true if the appointment can still be cancelled
func (a *Appointment) CanBeCancelled() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// CanBeFinalized returns true if the appointment can transition to completed or no_show
func (a *Appointment) CanBeFinalized() bool {
	return a.Status == StatusConfirmed
}

// IsTerminal returns true if no further transitions are possible
func (a *Appointment) IsTerminal() bool {
	return a.Status == StatusCompleted ||
		a.Status == StatusCancelled ||
		a.Status == StatusNoShow
}

// IsTokenExpired проверяет, истёк ли токен подтверждения на момент now
func (a *Appointment) IsTokenExpired(now time.Time) bool {
	if a.TokenExpiresAt == nil {
		return true
	}
	return !now.Before(*a.TokenExpiresAt)
}

// WithinCancellationWindow проверяет, что клиентская отмена ещё допустима
// Отмена запрещена, как только now >= StartAt - cutoff (граница включительно)
func (a *Appointment) WithinCancellationWindow(now time.Time) bool {
	return now.Before(a.StartAt.Add(-CancellationCutoff))
}

// AppointmentsFilter фильтр для выборки записей ресурса
type AppointmentsFilter struct {
	ResourceID      int64      // Обязательный параметр
	Date            *time.Time // Конкретная дата (опционально)
	Status          *AppointmentStatus
	IncludeInactive bool // Включать ли отменённые и no-show
}
