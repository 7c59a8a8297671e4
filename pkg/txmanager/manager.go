package txmanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/metrics"
)

// Коды ошибок PostgreSQL, при которых транзакция может быть повторена
const (
	pgCodeSerializationFailure = "40001"
	pgCodeDeadlockDetected     = "40P01"
	pgCodeLockNotAvailable     = "55P03"
)

// DefaultLockTimeout максимальное время ожидания блокировок внутри транзакции
// По истечении PostgreSQL возвращает lock_not_available (55P03)
const DefaultLockTimeout = 5 * time.Second

// maxRetries количество внутренних повторов при serialization failure / deadlock
// Бизнес-ошибки не повторяются - решение о повторе принимает вызывающая сторона
const maxRetries = 1

var (
	// ErrSerializationFailure возвращается, когда транзакция проиграла гонку
	// сериализации и исчерпала внутренние повторы
	ErrSerializationFailure = errors.New("txmanager: serialization failure")

	// ErrLockTimeout возвращается, когда ожидание блокировки превысило lock_timeout
	ErrLockTimeout = errors.New("txmanager: lock wait timeout exceeded")
)

// TxBeginner интерфейс для начала транзакций
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error)
}

// TransactionManager выполняет функции в сериализуемых транзакциях
// с ограничением времени ожидания блокировок и повтором при конфликтах сериализации
type TransactionManager struct {
	db          TxBeginner
	metrics     *metrics.Metrics
	lockTimeout time.Duration
}

// NewTransactionManager создает новый transaction manager
func NewTransactionManager(db TxBeginner) *TransactionManager {
	return &TransactionManager{
		db:          db,
		lockTimeout: DefaultLockTimeout,
	}
}

// NewTransactionManagerWithMetrics создает transaction manager с учётом повторов в метриках
func NewTransactionManagerWithMetrics(db TxBeginner, m *metrics.Metrics) *TransactionManager {
	return &TransactionManager{
		db:          db,
		metrics:     m,
		lockTimeout: DefaultLockTimeout,
	}
}

// DoSerializable выполняет fn внутри сериализуемой транзакции
// Транзакция кладётся в контекст - репозитории подхватывают её через dbmetrics.GetExecutor
//
// При serialization failure или deadlock транзакция перезапускается один раз,
// после чего возвращается ErrSerializationFailure
// При превышении lock_timeout возвращается ErrLockTimeout (также после одного повтора)
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := m.runOnce(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, fn)
		if err == nil {
			return nil
		}

		retriable, reason := classifyRetriable(err)
		if !retriable {
			return err
		}

		lastErr = err
		if m.metrics != nil {
			m.metrics.IncTxRetry(reason)
		}
	}

	// Повторы исчерпаны - конвертируем в сентинельную ошибку
	if retriable, reason := classifyRetriable(lastErr); retriable && reason == "lock_timeout" {
		return fmt.Errorf("%w: %v", ErrLockTimeout, lastErr)
	}
	return fmt.Errorf("%w: %v", ErrSerializationFailure, lastErr)
}

// Do выполняет fn в транзакции с изоляцией по умолчанию
// Используется для версионированных переходов статуса: optimistic concurrency
// через version-колонку не требует serializable, но запись и outbox-событие
// должны коммититься атомарно
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.runOnce(ctx, nil, fn)
}

func (m *TransactionManager) runOnce(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("txmanager: begin transaction: %w", err)
	}

	// Ограничиваем ожидание блокировок, чтобы reserve не висел бесконечно
	lockTimeoutMs := int(m.lockTimeout / time.Millisecond)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeoutMs)); err != nil {
		tx.Rollback()
		return fmt.Errorf("txmanager: set lock_timeout: %w", err)
	}

	txCtx := dbmetrics.WithTx(ctx, tx)

	if err := fn(txCtx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("txmanager: commit transaction: %w", err)
	}

	return nil
}

// classifyRetriable определяет, можно ли повторить транзакцию после ошибки
// Возвращает причину для метрик: serialization | lock_timeout
func classifyRetriable(err error) (bool, string) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false, ""
	}

	switch string(pqErr.Code) {
	case pgCodeSerializationFailure, pgCodeDeadlockDetected:
		return true, "serialization"
	case pgCodeLockNotAvailable:
		return true, "lock_timeout"
	default:
		return false, ""
	}
}
