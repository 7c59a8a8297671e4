package domain

import "time"

// TimeRange полуинтервал времени [Start, End)
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange создает интервал от start длительностью durationMinutes
func NewTimeRange(start time.Time, durationMinutes int) TimeRange {
	return TimeRange{
		Start: start,
		End:   start.Add(time.Duration(durationMinutes) * time.Minute),
	}
}

// Duration возвращает длительность интервала
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsValid проверяет, что интервал не пуст и не вывернут
func (r TimeRange) IsValid() bool {
	return r.End.After(r.Start)
}

// Overlaps проверяет пересечение полуинтервалов
// Два интервала пересекаются, только если реально накладываются:
// граничащие интервалы (конец одного = начало другого) НЕ пересекаются
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}
