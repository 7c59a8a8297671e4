package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// Типы событий жизненного цикла записи
// Имя типа совпадает с именем kafka-топика (с префиксом из конфигурации)
const (
	EventAppointmentCreated   = "appointment.created"
	EventAppointmentConfirmed = "appointment.confirmed"
	EventAppointmentCancelled = "appointment.cancelled"
)

// Event событие для публикации во внешние системы (уведомления, календарь)
// Пишется в outbox таблицу в той же транзакции, что и изменение записи,
// и публикуется фоновым publisher'ом
type Event struct {
	ID          int64
	EventID     string // UUID для дедупликации на стороне потребителя
	EventType   string
	AggregateID int64 // ID записи
	Payload     []byte
	CreatedAt   time.Time
}

// appointmentPayload сериализуемое представление записи в событии
type appointmentPayload struct {
	ID              int64     `json:"id"`
	ResourceID      int64     `json:"resourceId"`
	ServiceID       int64     `json:"serviceId"`
	ServiceName     string    `json:"serviceName"`
	StartAt         time.Time `json:"startAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Status          string    `json:"status"`
	CustomerName    string    `json:"customerName"`
	CustomerPhone   string    `json:"customerPhone"`

	// Токен включается только в appointment.created - из него собирается
	// ссылка подтверждения в письме/SMS
	ConfirmationToken *string    `json:"confirmationToken,omitempty"`
	TokenExpiresAt    *time.Time `json:"tokenExpiresAt,omitempty"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
}

// NewAppointmentEvent собирает событие жизненного цикла из записи
// Токен подтверждения попадает в payload только для appointment.created
func NewAppointmentEvent(eventType string, appt *domain.Appointment) (*Event, error) {
	payload := appointmentPayload{
		ID:              appt.ID,
		ResourceID:      appt.ResourceID,
		ServiceID:       appt.ServiceID,
		ServiceName:     appt.ServiceName,
		StartAt:         appt.StartAt,
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		CustomerName:    appt.CustomerName,
		CustomerPhone:   appt.CustomerPhone,
		CancelledAt:     appt.CancelledAt,
	}

	if eventType == EventAppointmentCreated {
		payload.ConfirmationToken = appt.ConfirmationToken
		payload.TokenExpiresAt = appt.TokenExpiresAt
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal %s payload: %w", eventType, err)
	}

	return &Event{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: appt.ID,
		Payload:     data,
	}, nil
}
