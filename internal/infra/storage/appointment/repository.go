package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// Код ошибки PostgreSQL: нарушение exclusion constraint
const pgCodeExclusionViolation = "23P01"

// appointmentColumns полный набор колонок таблицы appointments
var appointmentColumns = []string{
	"id",
	"resource_id",
	"service_id",
	"start_at",
	"duration_minutes",
	"status",
	"confirmation_token",
	"token_expires_at",
	"customer_name",
	"customer_phone",
	"service_name",
	"notes",
	"cancellation_reason",
	"cancelled_at",
	"version",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с записями
//
// Гарантия отсутствия двойных бронирований обеспечивается на уровне БД:
// partial exclusion constraint по (resource_id, интервал времени) для статусов,
// занимающих слот. Проверка "прочитал - вставил" на уровне приложения принципиально
// не защищает от гонки, поэтому Create трактует нарушение констрейнта как ErrSlotConflict
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новую запись
// Если в контексте передана активная транзакция (через context.Value), использует её
//
// При пересечении с активной записью того же ресурса БД отклоняет вставку
// нарушением exclusion constraint - возвращается ErrSlotConflict
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"resource_id",
			"service_id",
			"start_at",
			"duration_minutes",
			"status",
			"confirmation_token",
			"token_expires_at",
			"customer_name",
			"customer_phone",
			"service_name",
			"notes",
		).
		Values(
			appt.ResourceID,
			appt.ServiceID,
			appt.StartAt,
			appt.DurationMinutes,
			appt.Status,
			appt.ConfirmationToken,
			appt.TokenExpiresAt,
			appt.CustomerName,
			appt.CustomerPhone,
			appt.ServiceName,
			appt.Notes,
		).
		Suffix("RETURNING id, version, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %w", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&appt.ID,
		&appt.Version,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotConflict
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}

	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return appt, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %w", ErrBuildQuery, err)
	}

	appt, err := r.scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %w", ErrScanRow, err)
	}

	return appt, nil
}

// GetByToken получает запись по токену подтверждения
// После подтверждения токен остаётся в строке: повторный переход по ссылке
// должен находить уже подтверждённую запись, а не «токен не найден»
func (r *Repository) GetByToken(ctx context.Context, token string) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"confirmation_token": token}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetByToken - build select query: %w", ErrBuildQuery, err)
	}

	appt, err := r.scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByToken - scan appointment: %w", ErrScanRow, err)
	}

	return appt, nil
}

// ListByFilter получает записи ресурса с фильтрацией
// Поддерживает фильтрацию по дате, статусу и включению неактивных записей
// Если используется транзакция и указана дата, добавляет FOR UPDATE для блокировки
func (r *Repository) ListByFilter(ctx context.Context, filter domain.AppointmentsFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"resource_id": filter.ResourceID})

	// Фильтрация по конкретной дате
	if filter.Date != nil {
		dayStart := time.Date(filter.Date.Year(), filter.Date.Month(), filter.Date.Day(), 0, 0, 0, 0, filter.Date.Location())
		dayEnd := dayStart.AddDate(0, 0, 1)
		selectBuilder = selectBuilder.Where(squirrel.And{
			squirrel.GtOrEq{"start_at": dayStart},
			squirrel.Lt{"start_at": dayEnd},
		})
	}

	// Фильтрация по статусу
	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeInactive {
		// Если не указан конкретный статус и не нужны неактивные - исключаем их
		inactiveStatusStrings := make([]string, len(domain.InactiveStatuses))
		for i, s := range domain.InactiveStatuses {
			inactiveStatusStrings[i] = string(s)
		}
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": inactiveStatusStrings})
	}

	selectBuilder = selectBuilder.OrderBy("start_at ASC")

	// Внутри транзакции бронирования блокируем записи дня
	if dbmetrics.IsInTransaction(ctx) && filter.Date != nil {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByFilter - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByFilter - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	return r.scanAppointments(rows)
}

// HasOverlapping проверяет, пересекается ли интервал с активной записью ресурса
// Read-only запрос поверх хранилища: результат может устареть к моменту вставки,
// авторитетная защита от пересечений - exclusion constraint в Create
func (r *Repository) HasOverlapping(ctx context.Context, resourceID int64, rng domain.TimeRange) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	occupyingStatusStrings := make([]string, len(domain.OccupyingStatuses))
	for i, s := range domain.OccupyingStatuses {
		occupyingStatusStrings[i] = string(s)
	}

	query, args, err := psqlbuilder.Select("1").
		From("appointments").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": occupyingStatusStrings}).
		Where(squirrel.Expr(
			"start_at < ? AND start_at + make_interval(mins => duration_minutes) > ?",
			rng.End, rng.Start,
		)).
		Limit(1).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: HasOverlapping - build select query: %w", ErrBuildQuery, err)
	}

	var one int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: HasOverlapping - execute query: %w", ErrExecQuery, err)
	}

	return true, nil
}

// Confirm переводит запись scheduled -> confirmed
// Токен не обнуляется - по нему находится уже подтверждённая запись при
// повторном подтверждении; наружу токен после подтверждения не отдаётся
// Обновление версионированное: если версия изменилась или статус уже не scheduled,
// обновление не применяется и возвращается ErrStaleVersion
func (r *Repository) Confirm(ctx context.Context, id int64, version int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("status", domain.StatusConfirmed).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":      id,
			"version": version,
			"status":  domain.StatusScheduled,
		}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Confirm - build update query: %w", ErrBuildQuery, err)
	}

	return r.execVersioned(ctx, executor, query, args, "Confirm")
}

// UpdateStatus версионированно обновляет статус записи
// Используется для переходов confirmed -> completed / no_show
func (r *Repository) UpdateStatus(ctx context.Context, id int64, version int64, status domain.AppointmentStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("status", status).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":      id,
			"version": version,
		}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatus - build update query: %w", ErrBuildQuery, err)
	}

	return r.execVersioned(ctx, executor, query, args, "UpdateStatus")
}

// Cancel версионированно отменяет запись с указанием причины
// Токен обнуляется: отменённая запись не может быть подтверждена
func (r *Repository) Cancel(ctx context.Context, id int64, version int64, reason string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointments").
		Set("status", domain.StatusCancelled).
		Set("cancellation_reason", reason).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("confirmation_token", nil).
		Set("token_expires_at", nil).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":      id,
			"version": version,
		}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Cancel - build update query: %w", ErrBuildQuery, err)
	}

	return r.execVersioned(ctx, executor, query, args, "Cancel")
}

// execVersioned выполняет версионированное обновление
// 0 затронутых строк означает, что запись изменена конкурентно (или условие
// статуса не выполнено) - вызывающая сторона уже загружала запись, поэтому
// "не найдено" здесь трактуется как проигранная гонка версий
func (r *Repository) execVersioned(ctx context.Context, executor DBExecutor, query string, args []interface{}, method string) error {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %w", ErrExecQuery, method, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %w", ErrExecQuery, method, err)
	}

	if rowsAffected == 0 {
		return ErrStaleVersion
	}

	return nil
}

// scanAppointment сканирует одну запись из строки результата
func (r *Repository) scanAppointment(row *sql.Row) (*domain.Appointment, error) {
	var appt domain.Appointment
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&appt.ID,
		&appt.ResourceID,
		&appt.ServiceID,
		&appt.StartAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.ConfirmationToken,
		&appt.TokenExpiresAt,
		&appt.CustomerName,
		&appt.CustomerPhone,
		&appt.ServiceName,
		&appt.Notes,
		&appt.CancellationReason,
		&appt.CancelledAt,
		&appt.Version,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.CreatedAt = createdAt.Time
	appt.UpdatedAt = updatedAt.Time

	return &appt, nil
}

// scanAppointments сканирует результаты запроса в слайс записей
func (r *Repository) scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		var appt domain.Appointment
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&appt.ID,
			&appt.ResourceID,
			&appt.ServiceID,
			&appt.StartAt,
			&appt.DurationMinutes,
			&appt.Status,
			&appt.ConfirmationToken,
			&appt.TokenExpiresAt,
			&appt.CustomerName,
			&appt.CustomerPhone,
			&appt.ServiceName,
			&appt.Notes,
			&appt.CancellationReason,
			&appt.CancelledAt,
			&appt.Version,
			&createdAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %w", ErrScanRow, err)
		}

		appt.CreatedAt = createdAt.Time
		appt.UpdatedAt = updatedAt.Time

		appointments = append(appointments, &appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %w", ErrScanRow, err)
	}

	return appointments, nil
}

// isExclusionViolation проверяет, что ошибка - нарушение exclusion constraint
func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pgCodeExclusionViolation
}
