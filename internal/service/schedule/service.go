package schedule

import (
	"context"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/service/schedule/models"
)

// Service сервис настроек расписания
// Настройки читает генератор слотов и координатор бронирования,
// правит - администратор бизнеса
type Service struct {
	scheduleRepo ScheduleRepository
	txManager    TransactionManager
	logger       Logger
}

// NewService создает новый экземпляр сервиса настроек расписания
func NewService(
	scheduleRepo ScheduleRepository,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		scheduleRepo: scheduleRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

// GetResourceSchedule возвращает эффективное расписание ресурса
func (s *Service) GetResourceSchedule(ctx context.Context, resourceID int64) (*models.ScheduleResponse, error) {
	s.logger.Info("GetResourceSchedule: fetching schedule for resource=%d", resourceID)

	if resourceID <= 0 {
		return nil, fmt.Errorf("%w: resourceID must be positive", ErrInvalidInput)
	}

	policy, err := s.scheduleRepo.LoadPolicy(ctx)
	if err != nil {
		s.logger.Error("GetResourceSchedule: failed to load policy: %v", err)
		return nil, fmt.Errorf("%w: GetResourceSchedule - failed to load policy: %w", ErrInternal, err)
	}

	hours, hasOverride := policy.ResourceHours[resourceID]
	if !hasOverride {
		hours = policy.BusinessHours
	}

	return &models.ScheduleResponse{
		ResourceID:   resourceID,
		HasOverride:  hasOverride,
		Hours:        models.FromDomainWeeklyHours(hours),
		Breaks:       models.FromDomainBreaks(policy.Breaks),
		BlockedDates: models.BlockedDatesForResource(policy, resourceID),
	}, nil
}

// UpdateResourceSchedule обновляет расписание ресурса
// Переопределение заменяет расписание бизнеса целиком; UseBusinessDefault
// удаляет переопределение. Изменения применяются атомарно
func (s *Service) UpdateResourceSchedule(ctx context.Context, resourceID int64, req *models.UpdateResourceScheduleRequest) error {
	s.logger.Info("UpdateResourceSchedule: updating schedule for resource=%d", resourceID)

	if resourceID <= 0 {
		return fmt.Errorf("%w: resourceID must be positive", ErrInvalidInput)
	}
	if req.Hours != nil && req.UseBusinessDefault {
		s.logger.Warn("UpdateResourceSchedule: hours and useBusinessDefault are mutually exclusive")
		return fmt.Errorf("%w: hours and useBusinessDefault are mutually exclusive", ErrInvalidInput)
	}

	// Валидируем всё до транзакции
	domainHours, err := convertHours(req.Hours)
	if err != nil {
		s.logger.Warn("UpdateResourceSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	addDates, err := models.ParseDates(req.AddBlockedDates)
	if err != nil {
		s.logger.Warn("UpdateResourceSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	removeDates, err := models.ParseDates(req.RemoveBlockedDates)
	if err != nil {
		s.logger.Warn("UpdateResourceSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if domainHours != nil {
			if err := s.scheduleRepo.ReplaceResourceHours(txCtx, resourceID, *domainHours); err != nil {
				return fmt.Errorf("%w: failed to replace resource hours: %w", ErrInternal, err)
			}
		}
		if req.UseBusinessDefault {
			if err := s.scheduleRepo.DeleteResourceHours(txCtx, resourceID); err != nil {
				return fmt.Errorf("%w: failed to delete resource hours: %w", ErrInternal, err)
			}
		}

		for _, date := range addDates {
			if err := s.scheduleRepo.AddBlockedDate(txCtx, date, &resourceID); err != nil {
				return fmt.Errorf("%w: failed to add blocked date: %w", ErrInternal, err)
			}
		}
		for _, date := range removeDates {
			if err := s.scheduleRepo.RemoveBlockedDate(txCtx, date, &resourceID); err != nil {
				return fmt.Errorf("%w: failed to remove blocked date: %w", ErrInternal, err)
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error("UpdateResourceSchedule: failed for resource=%d: %v", resourceID, err)
		return err
	}

	s.logger.Info("UpdateResourceSchedule: successfully updated schedule for resource=%d", resourceID)
	return nil
}

// UpdateBusinessSchedule обновляет дефолтное расписание бизнеса,
// перерывы и заблокированные даты уровня бизнеса
func (s *Service) UpdateBusinessSchedule(ctx context.Context, req *models.UpdateBusinessScheduleRequest) error {
	s.logger.Info("UpdateBusinessSchedule: updating business schedule")

	domainHours, err := convertHours(req.Hours)
	if err != nil {
		s.logger.Warn("UpdateBusinessSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	addDates, err := models.ParseDates(req.AddBlockedDates)
	if err != nil {
		s.logger.Warn("UpdateBusinessSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	removeDates, err := models.ParseDates(req.RemoveBlockedDates)
	if err != nil {
		s.logger.Warn("UpdateBusinessSchedule: validation failed: %v", err)
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var domainBreaks []domain.BreakInterval
	if req.Breaks != nil {
		domainBreaks, err = models.ToDomainBreaks(*req.Breaks)
		if err != nil {
			s.logger.Warn("UpdateBusinessSchedule: validation failed: %v", err)
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}

	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		if domainHours != nil {
			if err := s.scheduleRepo.ReplaceBusinessHours(txCtx, *domainHours); err != nil {
				return fmt.Errorf("%w: failed to replace business hours: %w", ErrInternal, err)
			}
		}

		if req.Breaks != nil {
			if err := s.scheduleRepo.ReplaceBreaks(txCtx, domainBreaks); err != nil {
				return fmt.Errorf("%w: failed to replace breaks: %w", ErrInternal, err)
			}
		}

		for _, date := range addDates {
			if err := s.scheduleRepo.AddBlockedDate(txCtx, date, nil); err != nil {
				return fmt.Errorf("%w: failed to add blocked date: %w", ErrInternal, err)
			}
		}
		for _, date := range removeDates {
			if err := s.scheduleRepo.RemoveBlockedDate(txCtx, date, nil); err != nil {
				return fmt.Errorf("%w: failed to remove blocked date: %w", ErrInternal, err)
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error("UpdateBusinessSchedule: failed: %v", err)
		return err
	}

	s.logger.Info("UpdateBusinessSchedule: successfully updated business schedule")
	return nil
}

// convertHours конвертирует опциональное недельное расписание
func convertHours(payload *models.WeekPayload) (*domain.WeeklyHours, error) {
	if payload == nil {
		return nil, nil
	}
	hours, err := payload.ToDomainWeeklyHours()
	if err != nil {
		return nil, err
	}
	return &hours, nil
}
