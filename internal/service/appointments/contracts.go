package appointments

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetByToken(ctx context.Context, token string) (*domain.Appointment, error)
	Confirm(ctx context.Context, id int64, version int64) error
	UpdateStatus(ctx context.Context, id int64, version int64, status domain.AppointmentStatus) error
	Cancel(ctx context.Context, id int64, version int64, reason string) error
}

// OutboxRepository интерфейс репозитория outbox-событий
type OutboxRepository interface {
	Append(ctx context.Context, event *outbox.Event) error
}

// TransactionManager интерфейс для управления транзакциями
// Переходы статуса версионированы, serializable не требуется -
// транзакция нужна для атомарности записи и outbox-события
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
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
