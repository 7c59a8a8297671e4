package idempotency

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// Переиспользуем интерфейсы из dbmetrics для работы с БД
type DBExecutor = dbmetrics.DBExecutor

// Record запись о ранее обработанном запросе на бронирование
// Позволяет безопасно повторять POST: повторный запрос с тем же ключом
// возвращает ранее созданную запись вместо создания дубликата
type Record struct {
	Key           string
	RequestHash   string
	AppointmentID int64
}

// Repository репозиторий ключей идемпотентности
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория ключей идемпотентности
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Claim захватывает ключ идемпотентности внутри активной транзакции
// Возвращает (существующая запись, true) если ключ уже обработан,
// либо (пустая запись, false) если ключ захвачен впервые
//
// Вставка с ON CONFLICT DO NOTHING + повторное чтение с FOR UPDATE сериализует
// конкурентные запросы с одним ключом: второй запрос дождётся коммита первого
// и увидит его результат
func (r *Repository) Claim(ctx context.Context, key, requestHash string) (Record, bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	rec, err := r.selectForUpdate(ctx, executor, key)
	if err == nil {
		return rec, rec.AppointmentID != 0, nil
	}
	if err != ErrKeyNotFound {
		return Record{}, false, err
	}

	insertQuery, insertArgs, err := psqlbuilder.Insert("appointment_idempotency_keys").
		Columns("idempotency_key", "request_hash").
		Values(key, requestHash).
		Suffix("ON CONFLICT (idempotency_key) DO NOTHING").
		ToSql()
	if err != nil {
		return Record{}, false, fmt.Errorf("%w: Claim - build insert query: %w", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, insertQuery, insertArgs...); err != nil {
		return Record{}, false, fmt.Errorf("%w: Claim - execute insert: %w", ErrExecQuery, err)
	}

	rec, err = r.selectForUpdate(ctx, executor, key)
	if err != nil {
		return Record{}, false, err
	}

	return rec, rec.AppointmentID != 0, nil
}

// Finalize привязывает созданную запись к захваченному ключу
func (r *Repository) Finalize(ctx context.Context, key string, appointmentID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("appointment_idempotency_keys").
		Set("appointment_id", appointmentID).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: Finalize - build update query: %w", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Finalize - execute update: %w", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Finalize - get rows affected: %w", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrKeyNotFound
	}

	return nil
}

func (r *Repository) selectForUpdate(ctx context.Context, executor DBExecutor, key string) (Record, error) {
	selectBuilder := psqlbuilder.Select("idempotency_key", "request_hash", "COALESCE(appointment_id, 0)").
		From("appointment_idempotency_keys").
		Where(squirrel.Eq{"idempotency_key": key})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("%w: selectForUpdate - build select query: %w", ErrBuildQuery, err)
	}

	var rec Record
	err = executor.QueryRowContext(ctx, query, args...).Scan(&rec.Key, &rec.RequestHash, &rec.AppointmentID)
	if err == sql.ErrNoRows {
		return Record{}, ErrKeyNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: selectForUpdate - scan record: %w", ErrScanRow, err)
	}

	return rec, nil
}
