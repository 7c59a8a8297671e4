package reserve_appointment

import "errors"

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrServiceNotFound возвращается, когда услуга не найдена в каталоге
	ErrServiceNotFound = errors.New("service not found")

	// ErrSlotUnavailable возвращается, когда запрошенный слот невалиден
	// по текущей политике: вне рабочих часов, в перерыве или в прошлом
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrSlotConflict возвращается, когда слот уже занят другой записью
	ErrSlotConflict = errors.New("slot conflicts with existing appointment")

	// ErrIdempotencyMismatch возвращается при повторе ключа идемпотентности
	// с другим содержимым запроса
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different request")

	// ErrLockTimeout возвращается, когда ожидание блокировки превысило лимит
	ErrLockTimeout = errors.New("lock wait timeout exceeded")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reserve_appointment: internal error")
)
