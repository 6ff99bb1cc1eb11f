package analysis

import (
	"fmt"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// CalculateOccupancyStatistics combines sensor and zone state durations over
// [start, end) into correlation ratios and percent-of-window breakdowns.
// Long reporting silences are attributed to missing time rather than to the
// preceding state, so occupied + unoccupied + missing percentages sum to 100
// for each device (when the window is non-empty). Pure function of its
// inputs.
func CalculateOccupancyStatistics(sensorEvents, zoneEvents []models.Event, start, end time.Time, gapThreshold time.Duration) models.OccupancyStats {
	stats := models.OccupancyStats{TotalDuration: end.Sub(start)}
	if stats.TotalDuration < 0 {
		stats.TotalDuration = 0
	}

	sensor := GapAwareDurations(windowEvents(sensorEvents, start, end), start, end, gapThreshold)
	zone := GapAwareDurations(windowEvents(zoneEvents, start, end), start, end, gapThreshold)

	stats.SensorOccupiedTime = sensor.ByValue[models.SensorOccupied]
	stats.SensorUnoccupiedTime = sensor.ByValue[models.SensorUnoccupied]
	stats.SensorMissingTime = sensor.Missing
	stats.ZoneOccupiedTime = zone.ByValue[int(models.ZoneOccupied)]
	stats.ZoneStandbyTime = zone.ByValue[int(models.ZoneStandby)]
	stats.ZoneMissingTime = zone.Missing

	stats.ZoneOccupiedRatio = ratio(stats.ZoneOccupiedTime, stats.SensorOccupiedTime)
	stats.ZoneStandbyRatio = ratio(stats.ZoneStandbyTime, stats.SensorUnoccupiedTime)

	total := stats.TotalDuration
	stats.SensorOccupiedPercent = ratio(stats.SensorOccupiedTime, total)
	stats.SensorUnoccupiedPercent = ratio(stats.SensorUnoccupiedTime, total)
	stats.SensorMissingPercent = ratio(stats.SensorMissingTime, total)
	stats.ZoneOccupiedPercent = ratio(stats.ZoneOccupiedTime, total)
	stats.ZoneStandbyPercent = ratio(stats.ZoneStandbyTime, total)
	stats.ZoneMissingPercent = ratio(stats.ZoneMissingTime, total)

	return stats
}

// ratio returns a/b as a percentage, 0 when the denominator is zero.
func ratio(a, b time.Duration) float64 {
	if b <= 0 {
		return 0
	}
	return a.Seconds() / b.Seconds() * 100
}

// FormatDuration renders a duration as "Xh Ym", or "Ym" under an hour.
func FormatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
