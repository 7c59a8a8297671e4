package domain

import "time"

// Scheduling defaults
const (
	// DefaultGranularityMinutes шаг курсора при генерации слотов
	DefaultGranularityMinutes = 30
)

// Lifecycle timing
const (
	// ConfirmationTokenTTL время жизни токена подтверждения с момента создания записи
	ConfirmationTokenTTL = 48 * time.Hour

	// CancellationCutoff минимальный запас до начала записи, после которого
	// клиентская отмена запрещена
	CancellationCutoff = 6 * time.Hour
)

// Business validation constants
const (
	MinServiceDurationMinutes   = 5
	MaxServiceDurationMinutes   = 480 // 8 часов
	MinGranularityMinutes       = 5
	MaxGranularityMinutes       = 120
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
	MaxCustomerNameLength       = 200
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// OccupyingStatuses статусы, при которых запись занимает свой интервал времени
// Используется в проверках пересечений и в partial exclusion constraint в БД
var OccupyingStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusConfirmed,
	StatusCompleted,
}

// InactiveStatuses статусы, при которых интервал записи освобождён
var InactiveStatuses = []AppointmentStatus{
	StatusCancelled,
	StatusNoShow,
}
