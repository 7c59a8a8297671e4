package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

var (
	// ErrInvalidActor возвращается при некорректном инициаторе отмены
	ErrInvalidActor = errors.New("invalid cancel actor")

	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Request модели

// ConfirmRequest запрос на подтверждение записи по токену
type ConfirmRequest struct {
	Token string `json:"token"`
}

// CancelRequest запрос на отмену записи
type CancelRequest struct {
	Actor              string `json:"actor"` // customer | business
	CancellationReason string `json:"cancellationReason"`
}

// UpdateStatusRequest запрос на финализацию записи
type UpdateStatusRequest struct {
	Status string `json:"status"` // completed | no_show
}

// ToDomainCancelActor конвертирует строку в domain.CancelActor
func ToDomainCancelActor(actor string) (domain.CancelActor, error) {
	switch actor {
	case string(domain.ActorCustomer):
		return domain.ActorCustomer, nil
	case string(domain.ActorBusiness):
		return domain.ActorBusiness, nil
	default:
		return "", ErrInvalidActor
	}
}

// ToDomainFinalStatus конвертирует строку в терминальный статус
// Допустимы только completed и no_show - отмена идёт отдельным маршрутом
func ToDomainFinalStatus(status string) (domain.AppointmentStatus, error) {
	switch status {
	case string(domain.StatusCompleted):
		return domain.StatusCompleted, nil
	case string(domain.StatusNoShow):
		return domain.StatusNoShow, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID              int64      `json:"id"`
	ResourceID      int64      `json:"resourceId"`
	ServiceID       int64      `json:"serviceId"`
	StartAt         time.Time  `json:"startAt"`
	DurationMinutes int        `json:"durationMinutes"`
	Status          string     `json:"status"`
	ServiceName     string     `json:"serviceName"`
	CustomerName    string     `json:"customerName"`
	CustomerPhone   string     `json:"customerPhone"`
	Notes           *string    `json:"notes,omitempty"`
	TokenExpiresAt  *time.Time `json:"tokenExpiresAt,omitempty"`

	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ConfirmResponse ответ на подтверждение записи
// AlreadyConfirmed = true, если запись была подтверждена ранее -
// повторное подтверждение не ошибка и не выполняет записей
type ConfirmResponse struct {
	Appointment      *AppointmentResponse `json:"appointment"`
	AlreadyConfirmed bool                 `json:"alreadyConfirmed"`
}

// FromDomainAppointment конвертирует domain запись в response
// Срок действия токена показывается только для ожидающих подтверждения
// записей: в строке токен сохраняется и после confirm, но для клиента
// подтверждённая запись токена не имеет
func FromDomainAppointment(appt *domain.Appointment) *AppointmentResponse {
	resp := &AppointmentResponse{
		ID:                 appt.ID,
		ResourceID:         appt.ResourceID,
		ServiceID:          appt.ServiceID,
		StartAt:            appt.StartAt,
		DurationMinutes:    appt.DurationMinutes,
		Status:             string(appt.Status),
		ServiceName:        appt.ServiceName,
		CustomerName:       appt.CustomerName,
		CustomerPhone:      appt.CustomerPhone,
		Notes:              appt.Notes,
		CancellationReason: appt.CancellationReason,
		CancelledAt:        appt.CancelledAt,
		Version:            appt.Version,
		CreatedAt:          appt.CreatedAt,
		UpdatedAt:          appt.UpdatedAt,
	}

	if appt.Status == domain.StatusScheduled {
		resp.TokenExpiresAt = appt.TokenExpiresAt
	}

	return resp
}
