package create_appointment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-AppointmentService/internal/api/handlers"
	reserveAppointment "github.com/m04kA/SMC-AppointmentService/internal/usecase/reserve_appointment"
)

const (
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgMissingIdempotencyKey = "заголовок Idempotency-Key обязателен"
	msgInvalidDateTime       = "некорректная дата или время, ожидается YYYY-MM-DD и HH:MM"
	msgServiceNotFound       = "услуга не найдена"
	msgSlotUnavailable       = "выбранный слот недоступен по расписанию"
	msgSlotConflict          = "выбранный слот уже занят"
	msgIdempotencyMismatch   = "ключ идемпотентности уже использован с другими данными"
	msgLockTimeout           = "сервис перегружен, повторите запрос позже"
)

type Handler struct {
	useCase ReserveAppointmentUseCase
	logger  Logger
}

func NewHandler(useCase ReserveAppointmentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments
// Требует заголовок Idempotency-Key: повтор запроса с тем же ключом
// возвращает ранее созданную запись со статусом 200 вместо 201
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		h.logger.Warn("POST /appointments - Missing Idempotency-Key header")
		handlers.RespondBadRequest(w, msgMissingIdempotencyKey)
		return
	}

	var req CreateAppointmentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(idempotencyKey)
	if err != nil {
		h.logger.Warn("POST /appointments - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDateTime)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, reserveAppointment.ErrInvalidInput):
			h.logger.Warn("POST /appointments - Invalid input: resource_id=%d, error=%v", req.ResourceID, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)

		case errors.Is(err, reserveAppointment.ErrServiceNotFound):
			h.logger.Warn("POST /appointments - Service not found: service_id=%d", req.ServiceID)
			handlers.RespondNotFound(w, msgServiceNotFound)

		case errors.Is(err, reserveAppointment.ErrSlotUnavailable):
			h.logger.Warn("POST /appointments - Slot unavailable: resource_id=%d, date=%s, time=%s",
				req.ResourceID, req.Date, req.StartTime)
			handlers.RespondBadRequest(w, msgSlotUnavailable)

		case errors.Is(err, reserveAppointment.ErrSlotConflict):
			h.logger.Warn("POST /appointments - Slot conflict: resource_id=%d, date=%s, time=%s",
				req.ResourceID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgSlotConflict)

		case errors.Is(err, reserveAppointment.ErrIdempotencyMismatch):
			h.logger.Warn("POST /appointments - Idempotency key mismatch: key=%s", idempotencyKey)
			handlers.RespondError(w, http.StatusUnprocessableEntity, msgIdempotencyMismatch)

		case errors.Is(err, reserveAppointment.ErrLockTimeout):
			h.logger.Warn("POST /appointments - Lock timeout: resource_id=%d", req.ResourceID)
			handlers.RespondError(w, http.StatusServiceUnavailable, msgLockTimeout)

		default:
			h.logger.Error("POST /appointments - Failed to create appointment: resource_id=%d, error=%v",
				req.ResourceID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	h.logger.Info("POST /appointments - Appointment created: appointment_id=%d, resource_id=%d, replayed=%t",
		result.ID, req.ResourceID, result.Replayed)
	handlers.RespondJSON(w, status, FromUseCaseResponse(result))
}
