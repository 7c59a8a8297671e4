package reserve_appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	catalogClient "github.com/m04kA/SMC-AppointmentService/internal/integrations/catalogservice"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

// UseCase use case для создания записи
//
// Создание выполняется атомарно: проверка политики, проверка пересечений и
// вставка идут в одной сериализуемой транзакции, а exclusion constraint в
// хранилище остаётся последней линией защиты от двойного бронирования
type UseCase struct {
	appointmentRepo AppointmentRepository
	scheduleRepo    ScheduleRepository
	idempotencyRepo IdempotencyRepository
	outboxRepo      OutboxRepository
	catalogClient   CatalogServiceClient
	txManager       TransactionManager
	timeProvider    TimeProvider
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	appointmentRepo AppointmentRepository,
	scheduleRepo ScheduleRepository,
	idempotencyRepo IdempotencyRepository,
	outboxRepo OutboxRepository,
	catalogClient CatalogServiceClient,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointmentRepo: appointmentRepo,
		scheduleRepo:    scheduleRepo,
		idempotencyRepo: idempotencyRepo,
		outboxRepo:      outboxRepo,
		catalogClient:   catalogClient,
		txManager:       txManager,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// Execute выполняет use case создания записи
// Использует сериализуемую транзакцию для предотвращения гонки данных
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("ReserveAppointment: resource=%d, service=%d, date=%s, time=%s, key=%s",
		req.ResourceID, req.ServiceID, req.Date.Format(domain.DateFormat), req.StartTime, req.IdempotencyKey)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("ReserveAppointment: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем текущее время
	now := uc.timeProvider.Now()

	// 3. Получаем услугу (длительность фиксируется в записи)
	service, err := uc.catalogClient.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogClient.ErrServiceNotFound) {
			uc.logger.Warn("ReserveAppointment: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("ReserveAppointment: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %w", ErrInternal, err)
	}

	hash := requestHash(req)

	// Переменные для хранения результата
	var result *domain.Appointment
	var replayed bool

	// 4. Выполняем операции с БД в сериализуемой транзакции
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// 4.1. Захватываем ключ идемпотентности
		// Конкурентный повтор того же ключа упрётся в блокировку строки
		// и после коммита первого запроса увидит его результат
		record, alreadyProcessed, err := uc.idempotencyRepo.Claim(txCtx, req.IdempotencyKey, hash)
		if err != nil {
			uc.logger.Error("ReserveAppointment: failed to claim idempotency key: %v", err)
			return fmt.Errorf("%w: failed to claim idempotency key: %w", ErrInternal, err)
		}

		if record.RequestHash != hash {
			uc.logger.Warn("ReserveAppointment: idempotency key %s reused with different payload", req.IdempotencyKey)
			return ErrIdempotencyMismatch
		}

		if alreadyProcessed {
			// Повтор ранее обработанного запроса - возвращаем созданную запись
			existing, err := uc.appointmentRepo.GetByID(txCtx, record.AppointmentID)
			if err != nil {
				uc.logger.Error("ReserveAppointment: failed to load replayed appointment id=%d: %v",
					record.AppointmentID, err)
				return fmt.Errorf("%w: failed to load replayed appointment: %w", ErrInternal, err)
			}

			uc.logger.Info("ReserveAppointment: idempotent replay of appointment id=%d", existing.ID)
			result = existing
			replayed = true
			return nil
		}

		// 4.2. Загружаем политику доступности
		policy, err := uc.scheduleRepo.LoadPolicy(txCtx)
		if err != nil {
			uc.logger.Error("ReserveAppointment: failed to load schedule policy: %v", err)
			return fmt.Errorf("%w: failed to load schedule policy: %w", ErrInternal, err)
		}

		// 4.3. Проверяем валидность слота по политике
		if err := validateSlotAgainstPolicy(policy, req, service.DurationMinutes, now); err != nil {
			uc.logger.Warn("ReserveAppointment: slot validation failed: %v", err)
			return err
		}

		startAt, err := req.StartTime.OnDate(req.Date)
		if err != nil {
			return fmt.Errorf("%w: invalid start time: %w", ErrInvalidInput, err)
		}
		rng := domain.NewTimeRange(startAt, service.DurationMinutes)

		// 4.4. Проверяем пересечения с активными записями
		// Авторитетная защита - exclusion constraint при вставке, здесь
		// отсекаем очевидные конфликты до генерации токена
		occupied, err := uc.appointmentRepo.HasOverlapping(txCtx, req.ResourceID, rng)
		if err != nil {
			uc.logger.Error("ReserveAppointment: failed to check overlapping appointments: %v", err)
			return fmt.Errorf("%w: failed to check overlapping appointments: %w", ErrInternal, err)
		}
		if occupied {
			uc.logger.Warn("ReserveAppointment: slot %s already taken for resource=%d", req.StartTime, req.ResourceID)
			return ErrSlotConflict
		}

		// 4.5. Генерируем токен подтверждения
		token := uuid.NewString()
		tokenExpiresAt := now.Add(domain.ConfirmationTokenTTL)

		appt := &domain.Appointment{
			ResourceID:        req.ResourceID,
			ServiceID:         req.ServiceID,
			StartAt:           startAt,
			DurationMinutes:   service.DurationMinutes,
			Status:            domain.StatusScheduled,
			ConfirmationToken: &token,
			TokenExpiresAt:    &tokenExpiresAt,
			CustomerName:      req.CustomerName,
			CustomerPhone:     req.CustomerPhone,
			// Денормализация данных услуги
			ServiceName: service.Name,
			Notes:       req.Notes,
		}

		// 4.6. Сохраняем запись
		created, err := uc.appointmentRepo.Create(txCtx, appt)
		if err != nil {
			if errors.Is(err, apptRepo.ErrSlotConflict) {
				uc.logger.Warn("ReserveAppointment: exclusion constraint rejected slot %s for resource=%d",
					req.StartTime, req.ResourceID)
				return ErrSlotConflict
			}
			uc.logger.Error("ReserveAppointment: failed to create appointment: %v", err)
			return fmt.Errorf("%w: failed to create appointment: %w", ErrInternal, err)
		}

		// 4.7. Пишем событие в outbox в той же транзакции
		event, err := outbox.NewAppointmentEvent(outbox.EventAppointmentCreated, created)
		if err != nil {
			uc.logger.Error("ReserveAppointment: failed to build created event: %v", err)
			return fmt.Errorf("%w: failed to build created event: %w", ErrInternal, err)
		}
		if err := uc.outboxRepo.Append(txCtx, event); err != nil {
			uc.logger.Error("ReserveAppointment: failed to append created event: %v", err)
			return fmt.Errorf("%w: failed to append created event: %w", ErrInternal, err)
		}

		// 4.8. Привязываем запись к ключу идемпотентности
		if err := uc.idempotencyRepo.Finalize(txCtx, req.IdempotencyKey, created.ID); err != nil {
			uc.logger.Error("ReserveAppointment: failed to finalize idempotency key: %v", err)
			return fmt.Errorf("%w: failed to finalize idempotency key: %w", ErrInternal, err)
		}

		result = created
		return nil
	})

	if err != nil {
		// Проигрыш гонки за слот выглядит для клиента как конфликт,
		// превышение lock_timeout - как отдельная ошибка
		if errors.Is(err, txmanager.ErrSerializationFailure) {
			return nil, fmt.Errorf("%w: %w", ErrSlotConflict, err)
		}
		if errors.Is(err, txmanager.ErrLockTimeout) {
			return nil, fmt.Errorf("%w: %w", ErrLockTimeout, err)
		}
		return nil, err
	}

	if !replayed {
		uc.logger.Info("ReserveAppointment: successfully created appointment id=%d", result.ID)
	}

	return toResponse(result, replayed), nil
}
