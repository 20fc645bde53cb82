package api

import "meetaudit/internal/store"

// FromStats converts store counters to their API representation.
func FromStats(stats store.Stats) AuditStats {
	dto := AuditStats{
		Total:     stats.Total,
		Completed: stats.Completed,
		HighRisk:  stats.HighRisk,
	}
	if len(stats.ByStatus) > 0 {
		dto.ByStatus = make(map[string]int, len(stats.ByStatus))
		for status, count := range stats.ByStatus {
			dto.ByStatus[string(status)] = count
		}
	}
	return dto
}
