package appointments

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrTokenNotFound возвращается, когда токен подтверждения не найден
	ErrTokenNotFound = errors.New("confirmation token not found")

	// ErrTokenExpired возвращается, когда срок действия токена истёк
	ErrTokenExpired = errors.New("confirmation token expired")

	// ErrCannotConfirm возвращается при попытке подтвердить запись
	// в терминальном статусе
	ErrCannotConfirm = errors.New("appointment cannot be confirmed")

	// ErrCannotCancel возвращается, когда запись не может быть отменена
	ErrCannotCancel = errors.New("appointment cannot be cancelled")

	// ErrCancellationWindowClosed возвращается, когда до начала записи
	// осталось меньше допустимого окна отмены
	ErrCancellationWindowClosed = errors.New("cancellation window closed")

	// ErrInvalidTransition возвращается при недопустимом переходе статуса
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStaleState возвращается, когда переход проиграл гонку версий -
	// запись была изменена конкурентно, нужно перечитать и повторить
	ErrStaleState = errors.New("appointment was modified concurrently")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
