package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-AppointmentService/pkg/types"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	ResourceID         int64     // ID ресурса (сотрудника)
	ServiceID          int64     // ID услуги (определяет длительность слота)
	Date               time.Time // Дата для получения слотов (без времени)
	GranularityMinutes int       // Шаг сетки слотов, 0 = дефолтный
}

// Response модель ответа со списком доступных слотов
type Response struct {
	Date            time.Time // Дата, на которую запрашивались слоты
	ResourceID      int64     // ID ресурса
	ServiceID       int64     // ID услуги
	DurationMinutes int       // Длительность слота в минутах
	Slots           []Slot    // Список доступных слотов
}

// Slot модель временного слота
type Slot struct {
	StartTime types.TimeString // Время начала слота (например, "10:00")
	EndTime   types.TimeString // Время окончания слота
}
