package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	catalogClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
)

// UseCase use case для получения доступных слотов для бронирования
type UseCase struct {
	appointmentRepo AppointmentRepository
	scheduleRepo    ScheduleRepository
	catalogClient   CatalogServiceClient
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	scheduleRepo ScheduleRepository,
	catalogClient CatalogServiceClient,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		scheduleRepo:    scheduleRepo,
		catalogClient:   catalogClient,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: resource=%d, service=%d, date=%s",
		req.ResourceID, req.ServiceID, req.Date.Format(domain.DateFormat))

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Получаем услугу (длительность определяет размер слота)
	service, err := uc.catalogClient.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %w", ErrInternal, err)
	}

	if err := validateDuration(service.DurationMinutes); err != nil {
		uc.logger.Warn("GetAvailableSlots: invalid duration for service id=%d: %v", req.ServiceID, err)
		return nil, err
	}

	granularity := req.GranularityMinutes
	if granularity == 0 {
		granularity = domain.DefaultGranularityMinutes
	}

	// 4. Загружаем политику доступности
	policy, err := uc.scheduleRepo.LoadPolicy(ctx)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to load schedule policy: %v", err)
		return nil, fmt.Errorf("%w: failed to load schedule policy: %w", ErrInternal, err)
	}

	// 5. Разрешаем эффективные часы ресурса на дату
	hours := policy.EffectiveHours(req.Date, req.ResourceID)
	if hours.Closed {
		uc.logger.Info("GetAvailableSlots: resource=%d is closed on %s",
			req.ResourceID, req.Date.Format(domain.DateFormat))
		return uc.emptyResponse(req, service.DurationMinutes), nil
	}

	// 6. Генерируем кандидатов слотов (чистая арифметика, без обращений к БД)
	timeSlots, err := generateTimeSlots(hours, policy.Breaks, service.DurationMinutes, granularity, req.Date, now)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to generate time slots: %v", err)
		return nil, fmt.Errorf("%w: failed to generate time slots: %w", ErrInternal, err)
	}

	// 7. Получаем активные записи ресурса на эту дату
	filter := domain.AppointmentsFilter{
		ResourceID:      req.ResourceID,
		Date:            &req.Date,
		IncludeInactive: false, // Только записи, занимающие слоты
	}

	appointments, err := uc.appointmentRepo.ListByFilter(ctx, filter)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to get appointments: %v", err)
		return nil, fmt.Errorf("%w: failed to get appointments: %w", ErrInternal, err)
	}

	// 8. Убираем слоты, пересекающиеся с существующими записями
	// Это presentation-фильтр: авторитетная защита от двойного бронирования
	// работает в момент вставки, здесь чтение может быть несвежим
	slots := filterBookedSlots(timeSlots, service.DurationMinutes, req.Date, appointments)

	uc.logger.Info("GetAvailableSlots: generated %d slots for resource=%d, service=%d, date=%s",
		len(slots), req.ResourceID, req.ServiceID, req.Date.Format(domain.DateFormat))

	return &Response{
		Date:            req.Date,
		ResourceID:      req.ResourceID,
		ServiceID:       req.ServiceID,
		DurationMinutes: service.DurationMinutes,
		Slots:           slots,
	}, nil
}

func (uc *UseCase) emptyResponse(req *Request, durationMinutes int) *Response {
	return &Response{
		Date:            req.Date,
		ResourceID:      req.ResourceID,
		ServiceID:       req.ServiceID,
		DurationMinutes: durationMinutes,
		Slots:           []Slot{},
	}
}
