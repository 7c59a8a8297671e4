package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

// Repository репозиторий настроек расписания
// Хранит дефолтные рабочие часы бизнеса, переопределения по ресурсам,
// заблокированные даты и перерывы - всё, из чего собирается SchedulePolicy
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписания
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// LoadPolicy собирает полную политику доступности из хранилища
// Возвращаемое значение - самодостаточный value object: дальше по коду
// политика передаётся явно, без обращений к БД
func (r *Repository) LoadPolicy(ctx context.Context) (*domain.SchedulePolicy, error) {
	policy := &domain.SchedulePolicy{
		ResourceHours:        make(map[int64]domain.WeeklyHours),
		BlockedDates:         make(map[string]struct{}),
		ResourceBlockedDates: make(map[int64]map[string]struct{}),
	}

	if err := r.loadBusinessHours(ctx, policy); err != nil {
		return nil, err
	}
	if err := r.loadResourceHours(ctx, policy); err != nil {
		return nil, err
	}
	if err := r.loadBlockedDates(ctx, policy); err != nil {
		return nil, err
	}
	if err := r.loadBreaks(ctx, policy); err != nil {
		return nil, err
	}

	return policy, nil
}

func (r *Repository) loadBusinessHours(ctx context.Context, policy *domain.SchedulePolicy) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("weekday", "open_time", "close_time", "closed").
		From("business_hours").
		OrderBy("weekday ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadBusinessHours - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadBusinessHours - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var weekday int
		var day domain.DaySchedule
		if err := rows.Scan(&weekday, &day.Open, &day.Close, &day.Closed); err != nil {
			return fmt.Errorf("%w: loadBusinessHours - scan row: %w", ErrScanRow, err)
		}
		if weekday >= 0 && weekday < 7 {
			policy.BusinessHours[weekday] = day
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadBusinessHours - rows error: %w", ErrScanRow, err)
	}

	return nil
}

func (r *Repository) loadResourceHours(ctx context.Context, policy *domain.SchedulePolicy) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("resource_id", "weekday", "open_time", "close_time", "closed").
		From("resource_hours").
		OrderBy("resource_id ASC", "weekday ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadResourceHours - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadResourceHours - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var resourceID int64
		var weekday int
		var day domain.DaySchedule
		if err := rows.Scan(&resourceID, &weekday, &day.Open, &day.Close, &day.Closed); err != nil {
			return fmt.Errorf("%w: loadResourceHours - scan row: %w", ErrScanRow, err)
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		hours := policy.ResourceHours[resourceID]
		hours[weekday] = day
		policy.ResourceHours[resourceID] = hours
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadResourceHours - rows error: %w", ErrScanRow, err)
	}

	return nil
}

func (r *Repository) loadBlockedDates(ctx context.Context, policy *domain.SchedulePolicy) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("resource_id", "blocked_on").
		From("blocked_dates").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadBlockedDates - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadBlockedDates - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var resourceID *int64
		var blockedOn time.Time
		if err := rows.Scan(&resourceID, &blockedOn); err != nil {
			return fmt.Errorf("%w: loadBlockedDates - scan row: %w", ErrScanRow, err)
		}

		dateKey := blockedOn.Format(domain.DateFormat)
		if resourceID == nil {
			// NULL resource_id = блокировка уровня бизнеса
			policy.BlockedDates[dateKey] = struct{}{}
			continue
		}

		if policy.ResourceBlockedDates[*resourceID] == nil {
			policy.ResourceBlockedDates[*resourceID] = make(map[string]struct{})
		}
		policy.ResourceBlockedDates[*resourceID][dateKey] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadBlockedDates - rows error: %w", ErrScanRow, err)
	}

	return nil
}

func (r *Repository) loadBreaks(ctx context.Context, policy *domain.SchedulePolicy) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("start_time", "end_time").
		From("breaks").
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: loadBreaks - build select query: %w", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: loadBreaks - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	for rows.Next() {
		var br domain.BreakInterval
		if err := rows.Scan(&br.Start, &br.End); err != nil {
			return fmt.Errorf("%w: loadBreaks - scan row: %w", ErrScanRow, err)
		}
		policy.Breaks = append(policy.Breaks, br)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: loadBreaks - rows error: %w", ErrScanRow, err)
	}

	return nil
}

// ReplaceBusinessHours полностью заменяет дефолтное недельное расписание бизнеса
func (r *Repository) ReplaceBusinessHours(ctx context.Context, hours domain.WeeklyHours) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	for weekday, day := range hours {
		query, args, err := psqlbuilder.Insert("business_hours").
			Columns("weekday", "open_time", "close_time", "closed").
			Values(weekday, nullableTime(day.Open), nullableTime(day.Close), day.Closed).
			Suffix("ON CONFLICT (weekday) DO UPDATE SET open_time = EXCLUDED.open_time, close_time = EXCLUDED.close_time, closed = EXCLUDED.closed").
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: ReplaceBusinessHours - build upsert query: %w", ErrBuildQuery, err)
		}

		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: ReplaceBusinessHours - execute upsert: %w", ErrExecQuery, err)
		}
	}

	return nil
}

// ReplaceResourceHours полностью заменяет переопределение расписания ресурса
// Сначала удаляет старое переопределение: замена "всё или ничего", а не мерж
func (r *Repository) ReplaceResourceHours(ctx context.Context, resourceID int64, hours domain.WeeklyHours) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	deleteQuery, deleteArgs, err := psqlbuilder.Delete("resource_hours").
		Where(squirrel.Eq{"resource_id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: ReplaceResourceHours - build delete query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("%w: ReplaceResourceHours - execute delete: %w", ErrExecQuery, err)
	}

	for weekday, day := range hours {
		query, args, err := psqlbuilder.Insert("resource_hours").
			Columns("resource_id", "weekday", "open_time", "close_time", "closed").
			Values(resourceID, weekday, nullableTime(day.Open), nullableTime(day.Close), day.Closed).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: ReplaceResourceHours - build insert query: %w", ErrBuildQuery, err)
		}

		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: ReplaceResourceHours - execute insert: %w", ErrExecQuery, err)
		}
	}

	return nil
}

// DeleteResourceHours удаляет переопределение расписания ресурса
// После удаления ресурс возвращается к дефолтному расписанию бизнеса
func (r *Repository) DeleteResourceHours(ctx context.Context, resourceID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete("resource_hours").
		Where(squirrel.Eq{"resource_id": resourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeleteResourceHours - build delete query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DeleteResourceHours - execute delete: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DeleteResourceHours - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrResourceHoursNotFound
	}

	return nil
}

// AddBlockedDate добавляет заблокированную дату
// resourceID == nil означает блокировку уровня бизнеса (для всех ресурсов)
func (r *Repository) AddBlockedDate(ctx context.Context, date time.Time, resourceID *int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("blocked_dates").
		Columns("resource_id", "blocked_on").
		Values(resourceID, date).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: AddBlockedDate - build insert query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: AddBlockedDate - execute insert: %w", ErrExecQuery, err)
	}

	return nil
}

// RemoveBlockedDate удаляет заблокированную дату
func (r *Repository) RemoveBlockedDate(ctx context.Context, date time.Time, resourceID *int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	deleteBuilder := psqlbuilder.Delete("blocked_dates").
		Where(squirrel.Eq{"blocked_on": date})

	if resourceID == nil {
		deleteBuilder = deleteBuilder.Where("resource_id IS NULL")
	} else {
		deleteBuilder = deleteBuilder.Where(squirrel.Eq{"resource_id": *resourceID})
	}

	query, args, err := deleteBuilder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: RemoveBlockedDate - build delete query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: RemoveBlockedDate - execute delete: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: RemoveBlockedDate - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrBlockedDateNotFound
	}

	return nil
}

// ReplaceBreaks полностью заменяет перерывы бизнеса
// Перерывы общие для всех ресурсов - поресурсных перерывов нет
func (r *Repository) ReplaceBreaks(ctx context.Context, breaks []domain.BreakInterval) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	deleteQuery, deleteArgs, err := psqlbuilder.Delete("breaks").Where("TRUE").ToSql()
	if err != nil {
		return fmt.Errorf("%w: ReplaceBreaks - build delete query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, deleteQuery, deleteArgs...); err != nil {
		return fmt.Errorf("%w: ReplaceBreaks - execute delete: %w", ErrExecQuery, err)
	}

	for _, br := range breaks {
		query, args, err := psqlbuilder.Insert("breaks").
			Columns("start_time", "end_time").
			Values(br.Start, br.End).
			ToSql()
		if err != nil {
			return fmt.Errorf("%w: ReplaceBreaks - build insert query: %w", ErrBuildQuery, err)
		}

		if _, err := executor.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: ReplaceBreaks - execute insert: %w", ErrExecQuery, err)
		}
	}

	return nil
}

// nullableTime конвертирует TimeString в значение для БД
// Пустое время (закрытый день) пишется как NULL
func nullableTime(ts types.TimeString) interface{} {
	if ts == "" {
		return nil
	}
	return ts
}
