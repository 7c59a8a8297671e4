package reserve_appointment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Request модель запроса на создание записи
type Request struct {
	ResourceID    int64            // ID ресурса (сотрудника)
	ServiceID     int64            // ID услуги
	Date          time.Time        // Дата записи (без времени)
	StartTime     types.TimeString // Время начала (например, "10:00")
	CustomerName  string           // Имя клиента
	CustomerPhone string           // Телефон клиента
	Notes         *string          // Заметки клиента (опционально)

	// Ключ идемпотентности из заголовка Idempotency-Key
	// Повторный запрос с тем же ключом возвращает ранее созданную запись
	IdempotencyKey string
}

// Response модель ответа с созданной записью
type Response struct {
	ID              int64
	ResourceID      int64
	ServiceID       int64
	StartAt         time.Time
	DurationMinutes int
	Status          string
	ServiceName     string
	CustomerName    string
	CustomerPhone   string
	Notes           *string
	TokenExpiresAt  *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Replayed = true, если запись была создана ранее по этому же ключу
	// идемпотентности и возвращена повторно
	Replayed bool
}

// requestHash считает отпечаток содержимого запроса
// Один и тот же ключ идемпотентности с другим содержимым - ошибка клиента,
// а не повтор
func requestHash(req *Request) string {
	payload := fmt.Sprintf("%d|%d|%s|%s|%s|%s",
		req.ResourceID, req.ServiceID,
		req.Date.Format(domain.DateFormat), req.StartTime,
		req.CustomerName, req.CustomerPhone)

	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func toResponse(appt *domain.Appointment, replayed bool) *Response {
	return &Response{
		ID:              appt.ID,
		ResourceID:      appt.ResourceID,
		ServiceID:       appt.ServiceID,
		StartAt:         appt.StartAt,
		DurationMinutes: appt.DurationMinutes,
		Status:          string(appt.Status),
		ServiceName:     appt.ServiceName,
		CustomerName:    appt.CustomerName,
		CustomerPhone:   appt.CustomerPhone,
		Notes:           appt.Notes,
		TokenExpiresAt:  appt.TokenExpiresAt,
		Version:         appt.Version,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
		Replayed:        replayed,
	}
}
