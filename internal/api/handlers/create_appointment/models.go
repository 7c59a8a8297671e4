package create_appointment

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	reserveAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_appointment"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// CreateAppointmentRequest HTTP request model
type CreateAppointmentRequest struct {
	ResourceID    int64   `json:"resourceId"`
	ServiceID     int64   `json:"serviceId"`
	Date          string  `json:"date"`      // "2025-10-15"
	StartTime     string  `json:"startTime"` // "10:00"
	CustomerName  string  `json:"customerName"`
	CustomerPhone string  `json:"customerPhone"`
	Notes         *string `json:"notes,omitempty"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID              int64   `json:"id"`
	ResourceID      int64   `json:"resourceId"`
	ServiceID       int64   `json:"serviceId"`
	Date            string  `json:"date"`
	StartTime       string  `json:"startTime"`
	DurationMinutes int     `json:"durationMinutes"`
	Status          string  `json:"status"`
	ServiceName     string  `json:"serviceName"`
	CustomerName    string  `json:"customerName"`
	CustomerPhone   string  `json:"customerPhone"`
	Notes           *string `json:"notes,omitempty"`
	TokenExpiresAt  *string `json:"tokenExpiresAt,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateAppointmentRequest) ToUseCaseRequest(idempotencyKey string) (*reserveAppointment.Request, error) {
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, err
	}

	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, err
	}

	return &reserveAppointment.Request{
		ResourceID:     r.ResourceID,
		ServiceID:      r.ServiceID,
		Date:           date,
		StartTime:      startTime,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		Notes:          r.Notes,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *reserveAppointment.Response) *AppointmentResponse {
	var tokenExpiresAt *string
	if resp.TokenExpiresAt != nil {
		formatted := resp.TokenExpiresAt.Format(time.RFC3339)
		tokenExpiresAt = &formatted
	}

	return &AppointmentResponse{
		ID:              resp.ID,
		ResourceID:      resp.ResourceID,
		ServiceID:       resp.ServiceID,
		Date:            resp.StartAt.Format(domain.DateFormat),
		StartTime:       types.NewTimeString(resp.StartAt).String(),
		DurationMinutes: resp.DurationMinutes,
		Status:          resp.Status,
		ServiceName:     resp.ServiceName,
		CustomerName:    resp.CustomerName,
		CustomerPhone:   resp.CustomerPhone,
		Notes:           resp.Notes,
		TokenExpiresAt:  tokenExpiresAt,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       resp.UpdatedAt.Format(time.RFC3339),
	}
}
