package simpletxmanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/txmanager"
)

// TransactionManager выполняет функции в сериализуемых транзакциях поверх чистого *sql.DB
// Используется, когда метрики отключены - без обёртки dbmetrics
type TransactionManager struct {
	db    *sql.DB
	inner *txmanager.TransactionManager
}

// NewTransactionManager создает transaction manager без метрик
func NewTransactionManager(db *sql.DB) *TransactionManager {
	return &TransactionManager{
		db:    db,
		inner: txmanager.NewTransactionManager(&plainBeginner{db: db}),
	}
}

// DoSerializable выполняет fn в сериализуемой транзакции
// Семантика повторов и ошибок совпадает с txmanager.TransactionManager
func (m *TransactionManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.inner.DoSerializable(ctx, fn)
}

// Do выполняет fn в транзакции с изоляцией по умолчанию
func (m *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.inner.Do(ctx, fn)
}

// plainBeginner адаптирует *sql.DB к интерфейсу txmanager.TxBeginner
type plainBeginner struct {
	db *sql.DB
}

func (b *plainBeginner) BeginTx(ctx context.Context, opts *sql.TxOptions) (dbmetrics.TxExecutor, error) {
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
