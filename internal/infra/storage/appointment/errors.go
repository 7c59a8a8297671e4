package appointment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment.repository: appointment not found")

	// ErrTokenNotFound возвращается, когда токен подтверждения не найден
	ErrTokenNotFound = errors.New("appointment.repository: confirmation token not found")

	// ErrSlotConflict возвращается, когда вставка нарушила exclusion constraint -
	// интервал пересёкся с активной записью того же ресурса
	ErrSlotConflict = errors.New("appointment.repository: overlapping appointment exists")

	// ErrStaleVersion возвращается, когда версионированное обновление не применилось -
	// запись была изменена конкурентной транзакцией
	ErrStaleVersion = errors.New("appointment.repository: stale appointment version")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("appointment.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("appointment.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("appointment.repository: failed to scan row")
)
