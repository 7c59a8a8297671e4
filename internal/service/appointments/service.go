package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/outbox"
	apptRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-AppointmentService/internal/service/appointments/models"
)

// Service сервис жизненного цикла записей
//
// Все переходы статуса версионированы: обновление применяется только при
// совпадении version, проигравший гонку получает ErrStaleState и должен
// перечитать запись. События жизненного цикла пишутся в outbox в одной
// транзакции с переходом
type Service struct {
	appointmentRepo AppointmentRepository
	outboxRepo      OutboxRepository
	txManager       TransactionManager
	timeProvider    TimeProvider
	logger          Logger
}

// NewService создает новый экземпляр сервиса жизненного цикла записей
func NewService(
	appointmentRepo AppointmentRepository,
	outboxRepo OutboxRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		appointmentRepo: appointmentRepo,
		outboxRepo:      outboxRepo,
		txManager:       txManager,
		timeProvider:    &RealTimeProvider{},
		logger:          logger,
	}
}

// GetByID получает запись по ID
func (s *Service) GetByID(ctx context.Context, id int64) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d", id)

	appt, err := s.getAppointment(ctx, id, "GetByID")
	if err != nil {
		return nil, err
	}

	return models.FromDomainAppointment(appt), nil
}

// Confirm подтверждает запись по токену из письма/SMS
//
// Повторное подтверждение уже подтверждённой записи не ошибка: возвращается
// AlreadyConfirmed = true без каких-либо записей в БД
func (s *Service) Confirm(ctx context.Context, token string) (*models.ConfirmResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	s.logger.Info("Confirm: confirming appointment by token")

	appt, err := s.appointmentRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apptRepo.ErrTokenNotFound) {
			s.logger.Warn("Confirm: token not found")
			return nil, ErrTokenNotFound
		}
		s.logger.Error("Confirm: repository error: %v", err)
		return nil, fmt.Errorf("%w: Confirm - repository error: %w", ErrInternal, err)
	}

	// Повтор подтверждения - мягкий успех
	if appt.Status == domain.StatusConfirmed {
		s.logger.Info("Confirm: appointment id=%d already confirmed", appt.ID)
		return &models.ConfirmResponse{
			Appointment:      models.FromDomainAppointment(appt),
			AlreadyConfirmed: true,
		}, nil
	}

	if !appt.CanBeConfirmed() {
		s.logger.Warn("Confirm: appointment id=%d cannot be confirmed, status=%s", appt.ID, appt.Status)
		return nil, ErrCannotConfirm
	}

	now := s.timeProvider.Now()
	if appt.IsTokenExpired(now) {
		s.logger.Warn("Confirm: token for appointment id=%d expired at %v", appt.ID, appt.TokenExpiresAt)
		return nil, ErrTokenExpired
	}

	// Переход и событие коммитятся атомарно
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.appointmentRepo.Confirm(txCtx, appt.ID, appt.Version); err != nil {
			if errors.Is(err, apptRepo.ErrStaleVersion) {
				s.logger.Warn("Confirm: appointment id=%d modified concurrently", appt.ID)
				return ErrStaleState
			}
			s.logger.Error("Confirm: repository error for appointment id=%d: %v", appt.ID, err)
			return fmt.Errorf("%w: Confirm - repository error: %w", ErrInternal, err)
		}

		return s.appendEvent(txCtx, outbox.EventAppointmentConfirmed, confirmedCopy(appt))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Confirm: successfully confirmed appointment id=%d", appt.ID)
	return &models.ConfirmResponse{
		Appointment: models.FromDomainAppointment(confirmedCopy(appt)),
	}, nil
}

// Cancel отменяет запись
// Для клиента отмена допустима только пока до начала записи остаётся больше
// окна отмены; бизнес отменяет без ограничения по времени
func (s *Service) Cancel(ctx context.Context, id int64, req *models.CancelRequest) error {
	s.logger.Info("Cancel: cancelling appointment id=%d by actor=%s", id, req.Actor)

	actor, err := models.ToDomainCancelActor(req.Actor)
	if err != nil {
		s.logger.Warn("Cancel: invalid actor=%s for appointment id=%d", req.Actor, id)
		return fmt.Errorf("%w: invalid actor", ErrInvalidInput)
	}

	appt, err := s.getAppointment(ctx, id, "Cancel")
	if err != nil {
		return err
	}

	if !appt.CanBeCancelled() {
		s.logger.Warn("Cancel: appointment id=%d cannot be cancelled, status=%s", id, appt.Status)
		return ErrCannotCancel
	}

	// Клиентская отмена запрещена, как только now >= start - cutoff
	if actor == domain.ActorCustomer {
		now := s.timeProvider.Now()
		if !appt.WithinCancellationWindow(now) {
			s.logger.Warn("Cancel: cancellation window closed for appointment id=%d, start=%v", id, appt.StartAt)
			return ErrCancellationWindowClosed
		}
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if err := s.appointmentRepo.Cancel(txCtx, id, appt.Version, req.CancellationReason); err != nil {
			if errors.Is(err, apptRepo.ErrStaleVersion) {
				s.logger.Warn("Cancel: appointment id=%d modified concurrently", id)
				return ErrStaleState
			}
			s.logger.Error("Cancel: repository error for appointment id=%d: %v", id, err)
			return fmt.Errorf("%w: Cancel - repository error: %w", ErrInternal, err)
		}

		return s.appendEvent(txCtx, outbox.EventAppointmentCancelled, cancelledCopy(appt, req.CancellationReason, s.timeProvider))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Cancel: successfully cancelled appointment id=%d", id)
	return nil
}

// UpdateStatus финализирует запись: completed или no_show
// Допустимо только из статуса confirmed
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *models.UpdateStatusRequest) error {
	s.logger.Info("UpdateStatus: updating appointment id=%d to status=%s", id, req.Status)

	newStatus, err := models.ToDomainFinalStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%s for appointment id=%d", req.Status, id)
		return fmt.Errorf("%w: invalid status", ErrInvalidInput)
	}

	appt, err := s.getAppointment(ctx, id, "UpdateStatus")
	if err != nil {
		return err
	}

	if !appt.CanBeFinalized() {
		s.logger.Warn("UpdateStatus: appointment id=%d cannot be finalized, status=%s", id, appt.Status)
		return ErrInvalidTransition
	}

	if err := s.appointmentRepo.UpdateStatus(ctx, id, appt.Version, newStatus); err != nil {
		if errors.Is(err, apptRepo.ErrStaleVersion) {
			s.logger.Warn("UpdateStatus: appointment id=%d modified concurrently", id)
			return ErrStaleState
		}
		s.logger.Error("UpdateStatus: repository error for appointment id=%d: %v", id, err)
		return fmt.Errorf("%w: UpdateStatus - repository error: %w", ErrInternal, err)
	}

	s.logger.Info("UpdateStatus: successfully updated appointment id=%d to status=%s", id, newStatus)
	return nil
}

// Вспомогательные методы

func (s *Service) getAppointment(ctx context.Context, id int64, method string) (*domain.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apptRepo.ErrAppointmentNotFound) {
			s.logger.Warn("%s: appointment id=%d not found", method, id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("%s: repository error for appointment id=%d: %v", method, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %w", ErrInternal, method, err)
	}
	return appt, nil
}

func (s *Service) appendEvent(ctx context.Context, eventType string, appt *domain.Appointment) error {
	event, err := outbox.NewAppointmentEvent(eventType, appt)
	if err != nil {
		s.logger.Error("appendEvent: failed to build %s event for appointment id=%d: %v", eventType, appt.ID, err)
		return fmt.Errorf("%w: appendEvent - failed to build event: %w", ErrInternal, err)
	}

	if err := s.outboxRepo.Append(ctx, event); err != nil {
		s.logger.Error("appendEvent: failed to append %s event for appointment id=%d: %v", eventType, appt.ID, err)
		return fmt.Errorf("%w: appendEvent - failed to append event: %w", ErrInternal, err)
	}

	return nil
}

// confirmedCopy возвращает копию записи после успешного подтверждения
// Повторяет изменения, которые применил репозиторий, без повторного чтения:
// токен в строке сохраняется, наружу он для подтверждённых записей не отдаётся
func confirmedCopy(appt *domain.Appointment) *domain.Appointment {
	updated := *appt
	updated.Status = domain.StatusConfirmed
	updated.Version = appt.Version + 1
	return &updated
}

// cancelledCopy возвращает копию записи после успешной отмены
func cancelledCopy(appt *domain.Appointment, reason string, tp TimeProvider) *domain.Appointment {
	now := tp.Now()
	updated := *appt
	updated.Status = domain.StatusCancelled
	updated.CancellationReason = &reason
	updated.CancelledAt = &now
	updated.ConfirmationToken = nil
	updated.TokenExpiresAt = nil
	updated.Version = appt.Version + 1
	return &updated
}
