package reserve_appointment

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/idempotency"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	HasOverlapping(ctx context.Context, resourceID int64, rng domain.TimeRange) (bool, error)
}

// ScheduleRepository интерфейс репозитория настроек расписания
type ScheduleRepository interface {
	LoadPolicy(ctx context.Context) (*domain.SchedulePolicy, error)
}

// IdempotencyRepository интерфейс репозитория ключей идемпотентности
type IdempotencyRepository interface {
	Claim(ctx context.Context, key, requestHash string) (idempotency.Record, bool, error)
	Finalize(ctx context.Context, key string, appointmentID int64) error
}

// OutboxRepository интерфейс репозитория outbox-событий
type OutboxRepository interface {
	Append(ctx context.Context, event *outbox.Event) error
}

// CatalogServiceClient интерфейс клиента каталога услуг
type CatalogServiceClient interface {
	GetService(ctx context.Context, serviceID int64) (*catalogservice.Service, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
