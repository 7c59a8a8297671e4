package confirm_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingToken       = "токен подтверждения обязателен"
	msgTokenNotFound      = "токен подтверждения не найден"
	msgTokenExpired       = "срок действия токена истёк"
	msgCannotConfirm      = "запись не может быть подтверждена"
	msgStaleState         = "запись была изменена, повторите запрос"
)

type Handler struct {
	service AppointmentService
	logger  Logger
}

func NewHandler(service AppointmentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/confirm
// Повторное подтверждение - мягкий успех: возвращается 200 с alreadyConfirmed=true
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req models.ConfirmRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/confirm - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Confirm(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, appointments.ErrInvalidInput):
			h.logger.Warn("POST /appointments/confirm - Missing token")
			handlers.RespondBadRequest(w, msgMissingToken)

		case errors.Is(err, appointments.ErrTokenNotFound):
			h.logger.Warn("POST /appointments/confirm - Token not found")
			handlers.RespondNotFound(w, msgTokenNotFound)

		case errors.Is(err, appointments.ErrTokenExpired):
			h.logger.Warn("POST /appointments/confirm - Token expired")
			handlers.RespondError(w, http.StatusGone, msgTokenExpired)

		case errors.Is(err, appointments.ErrCannotConfirm):
			h.logger.Warn("POST /appointments/confirm - Cannot confirm")
			handlers.RespondConflict(w, msgCannotConfirm)

		case errors.Is(err, appointments.ErrStaleState):
			h.logger.Warn("POST /appointments/confirm - Stale state")
			handlers.RespondConflict(w, msgStaleState)

		default:
			h.logger.Error("POST /appointments/confirm - Failed to confirm: %v", err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/confirm - Appointment confirmed: appointment_id=%d, already_confirmed=%t",
		result.Appointment.ID, result.AlreadyConfirmed)
	handlers.RespondJSON(w, http.StatusOK, result)
}
