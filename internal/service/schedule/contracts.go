package schedule

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// ScheduleRepository интерфейс репозитория настроек расписания
type ScheduleRepository interface {
	LoadPolicy(ctx context.Context) (*domain.SchedulePolicy, error)
	ReplaceBusinessHours(ctx context.Context, hours domain.WeeklyHours) error
	ReplaceResourceHours(ctx context.Context, resourceID int64, hours domain.WeeklyHours) error
	DeleteResourceHours(ctx context.Context, resourceID int64) error
	AddBlockedDate(ctx context.Context, date time.Time, resourceID *int64) error
	RemoveBlockedDate(ctx context.Context, date time.Time, resourceID *int64) error
	ReplaceBreaks(ctx context.Context, breaks []domain.BreakInterval) error
}

// TransactionManager интерфейс для управления транзакциями
// Обновление расписания затрагивает несколько таблиц и применяется атомарно
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
