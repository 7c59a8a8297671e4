package reserve_appointment

import (
	"fmt"
	"strings"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ResourceID <= 0 {
		return fmt.Errorf("%w: resourceID must be positive", ErrInvalidInput)
	}

	if req.ServiceID <= 0 {
		return fmt.Errorf("%w: serviceID must be positive", ErrInvalidInput)
	}

	if req.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if _, err := req.StartTime.Minutes(); err != nil {
		return fmt.Errorf("%w: invalid startTime format, expected HH:MM", ErrInvalidInput)
	}

	if strings.TrimSpace(req.CustomerName) == "" {
		return fmt.Errorf("%w: customerName is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.CustomerPhone) == "" {
		return fmt.Errorf("%w: customerPhone is required", ErrInvalidInput)
	}

	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return fmt.Errorf("%w: idempotency key is required", ErrInvalidInput)
	}

	return nil
}

// validateSlotAgainstPolicy проверяет, что запрошенный слот валиден по текущей
// политике доступности: внутри эффективных часов, вне перерывов и не в прошлом
//
// Проверка выполняется внутри сериализуемой транзакции: политика, прочитанная
// здесь, действует до самого коммита
func validateSlotAgainstPolicy(
	policy *domain.SchedulePolicy,
	req *Request,
	durationMinutes int,
	now time.Time,
) error {
	hours := policy.EffectiveHours(req.Date, req.ResourceID)
	if hours.Closed || hours.Open == "" || hours.Close == "" {
		return fmt.Errorf("%w: resource is closed on %s", ErrSlotUnavailable, req.Date.Format(domain.DateFormat))
	}

	slotEnd, err := req.StartTime.AddMinutes(durationMinutes)
	if err != nil {
		return fmt.Errorf("%w: slot end is out of day bounds", ErrSlotUnavailable)
	}

	// Слот целиком внутри рабочих часов
	if req.StartTime.IsBefore(hours.Open) || slotEnd.IsAfter(hours.Close) {
		return fmt.Errorf("%w: slot %s-%s is outside working hours %s-%s",
			ErrSlotUnavailable, req.StartTime, slotEnd, hours.Open, hours.Close)
	}

	// Слот не пересекается с перерывами
	for _, br := range policy.Breaks {
		if br.Intersects(req.StartTime, slotEnd) {
			return fmt.Errorf("%w: slot %s-%s intersects break %s-%s",
				ErrSlotUnavailable, req.StartTime, slotEnd, br.Start, br.End)
		}
	}

	// Слот не в прошлом (строго, без буфера: начало ровно в now ещё валидно)
	startAt, err := req.StartTime.OnDate(req.Date)
	if err != nil {
		return fmt.Errorf("%w: invalid start time", ErrSlotUnavailable)
	}
	if startAt.Before(now) {
		return fmt.Errorf("%w: slot start %s is in the past", ErrSlotUnavailable, startAt.Format(time.RFC3339))
	}

	return nil
}
