package analysis

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/savegress/odcv/internal/config"
	"github.com/savegress/odcv/pkg/models"
)

// Engine runs per-pair analyses over an in-memory event log. It holds only
// read-only configuration; every analysis call is a pure function of its
// inputs, so pairs can be processed concurrently.
type Engine struct {
	cfg config.AnalysisConfig
}

// NewEngine creates an analysis engine.
func NewEngine(cfg config.AnalysisConfig) *Engine {
	return &Engine{cfg: cfg}
}

// IsSensorName reports whether a device name identifies an occupancy sensor.
func IsSensorName(name string) bool {
	return strings.Contains(name, "presence")
}

// IsZoneName reports whether a device name identifies a BMS zone controller.
func IsZoneName(name string) bool {
	return strings.HasPrefix(name, "BV")
}

// SensorShortID returns the display id of a sensor, the device name with its
// " presence" suffix stripped.
func SensorShortID(name string) string {
	return strings.ReplaceAll(name, " presence", "")
}

// Pairs resolves the sensor-to-zone mapping for an event log: an explicit
// mapping from configuration wins, otherwise pairs are auto-derived from the
// device names.
func (e *Engine) Pairs(events []models.Event) []models.SensorZonePair {
	if len(e.cfg.Pairs) > 0 {
		return ExplicitPairs(e.cfg.Pairs)
	}
	return AutoPairs(events)
}

// ExplicitPairs converts a configured sensor-to-zone map into a pair list
// sorted by sensor name.
func ExplicitPairs(mapping map[string]string) []models.SensorZonePair {
	sensors := make([]string, 0, len(mapping))
	for sensor := range mapping {
		sensors = append(sensors, sensor)
	}
	sort.Strings(sensors)

	pairs := make([]models.SensorZonePair, 0, len(sensors))
	for _, sensor := range sensors {
		pairs = append(pairs, models.SensorZonePair{Sensor: sensor, Zone: mapping[sensor]})
	}
	return pairs
}

// AutoPairs derives the sensor-to-zone mapping from the device names in an
// event log: distinct sensors and zones are each sorted and paired 1:1 by
// ordinal position.
func AutoPairs(events []models.Event) []models.SensorZonePair {
	sensorSet := make(map[string]bool)
	zoneSet := make(map[string]bool)
	for _, ev := range events {
		switch {
		case IsSensorName(ev.Name):
			sensorSet[ev.Name] = true
		case IsZoneName(ev.Name):
			zoneSet[ev.Name] = true
		}
	}

	sensors := make([]string, 0, len(sensorSet))
	for name := range sensorSet {
		sensors = append(sensors, name)
	}
	zones := make([]string, 0, len(zoneSet))
	for name := range zoneSet {
		zones = append(zones, name)
	}
	sort.Strings(sensors)
	sort.Strings(zones)

	var pairs []models.SensorZonePair
	for i, sensor := range sensors {
		if i >= len(zones) {
			break
		}
		pairs = append(pairs, models.SensorZonePair{Sensor: sensor, Zone: zones[i]})
	}
	return pairs
}

// DeviceNames returns the sorted distinct device names in an event log.
func DeviceNames(events []models.Event) []string {
	set := make(map[string]bool)
	for _, ev := range events {
		set[ev.Name] = true
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PeriodHours maps a period token to its hour count, defaulting to 24h.
func PeriodHours(period string) int {
	switch period {
	case "5d":
		return 5 * 24
	case "30d":
		return 30 * 24
	default:
		return 24
	}
}

// FilterPeriod narrows an event log to the period ending at the most recent
// timestamp in the data. An empty log stays empty.
func FilterPeriod(events []models.Event, period string) []models.Event {
	if len(events) == 0 {
		return nil
	}
	latest := events[0].Time
	for _, ev := range events {
		if ev.Time.After(latest) {
			latest = ev.Time
		}
	}
	start := latest.Add(-time.Duration(PeriodHours(period)) * time.Hour)

	var out []models.Event
	for _, ev := range events {
		if !ev.Time.Before(start) {
			out = append(out, ev)
		}
	}
	return out
}

func byName(events []models.Event, name string) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func timeBounds(groups ...[]models.Event) (time.Time, time.Time, bool) {
	var start, end time.Time
	found := false
	for _, events := range groups {
		for _, ev := range events {
			if !found {
				start, end = ev.Time, ev.Time
				found = true
				continue
			}
			if ev.Time.Before(start) {
				start = ev.Time
			}
			if ev.Time.After(end) {
				end = ev.Time
			}
		}
	}
	return start, end, found
}

// DataQuality scores the observed valid binary points against the expected
// reporting cadence over the period, capped at 100 percent.
func (e *Engine) DataQuality(events []models.Event, period string) models.DataQualityMetrics {
	hours := PeriodHours(period)
	m := models.DataQualityMetrics{
		ExpectedSensorPoints: int(float64(hours) * 60 * e.cfg.SensorPointsPerMinute),
		ExpectedBMSPoints:    int(float64(hours) * 60 * e.cfg.ZonePointsPerMinute),
	}

	for _, ev := range events {
		if ev.Value != 0 && ev.Value != 1 {
			continue
		}
		switch {
		case IsSensorName(ev.Name):
			m.ValidSensorPoints++
		case IsZoneName(ev.Name):
			m.ValidBMSPoints++
		}
	}

	m.SensorQuality = cappedPercent(m.ValidSensorPoints, m.ExpectedSensorPoints)
	m.BMSQuality = cappedPercent(m.ValidBMSPoints, m.ExpectedBMSPoints)
	m.OverallQuality = cappedPercent(m.ValidSensorPoints+m.ValidBMSPoints, m.ExpectedSensorPoints+m.ExpectedBMSPoints)
	return m
}

func cappedPercent(actual, expected int) float64 {
	if expected <= 0 {
		return 0
	}
	pct := float64(actual) / float64(expected) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// DashboardMetrics aggregates every pair into the system-wide dashboard
// view for the given period. Pairs are analyzed concurrently; each pair only
// reads its own event slice and the shared immutable config.
func (e *Engine) DashboardMetrics(events []models.Event, pairs []models.SensorZonePair, period string) *models.DashboardMetrics {
	filtered := FilterPeriod(events, period)

	type pairResult struct {
		analyzed bool
		good     bool
		standby  time.Duration
		total    time.Duration
	}
	results := make([]pairResult, len(pairs))

	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair models.SensorZonePair) {
			defer wg.Done()
			sensorData := byName(filtered, pair.Sensor)
			zoneData := byName(filtered, pair.Zone)
			if len(sensorData) == 0 || len(zoneData) == 0 {
				return
			}
			start, end, _ := timeBounds(sensorData, zoneData)
			stats := CalculateOccupancyStatistics(sensorData, zoneData, start, end, e.cfg.GapThreshold)
			results[i] = pairResult{
				analyzed: true,
				good:     stats.ZoneStandbyRatio >= e.cfg.CorrelationGoodMin && stats.ZoneStandbyRatio <= e.cfg.CorrelationGoodMax,
				standby:  stats.ZoneStandbyTime,
				total:    stats.TotalDuration,
			}
		}(i, pair)
	}
	wg.Wait()

	metrics := &models.DashboardMetrics{}
	var standby, total time.Duration
	for _, r := range results {
		if !r.analyzed {
			continue
		}
		if r.good {
			metrics.CorrelationHealth.Good++
		} else {
			metrics.CorrelationHealth.Poor++
		}
		standby += r.standby
		total += r.total
	}

	if total > 0 {
		metrics.StandbyModePercent = standby.Seconds() / total.Seconds() * 100
	}
	metrics.AirflowReductionPercent = metrics.StandbyModePercent * e.cfg.AirflowReductionFactor

	quality := e.DataQuality(filtered, period)
	metrics.DataQualityPercent = quality.OverallQuality
	metrics.SensorQualityPercent = quality.SensorQuality
	metrics.BMSQualityPercent = quality.BMSQuality
	return metrics
}

// SensorMetrics computes the per-pair metrics rows for the given period and
// timing policy. Pairs without data in the period are omitted. Trend data is
// computed over the full event history so the sparkline always covers the
// 24 hours preceding the newest record.
func (e *Engine) SensorMetrics(events []models.Event, pairs []models.SensorZonePair, period string, policy models.TimingPolicy) []*models.SensorMetrics {
	filtered := FilterPeriod(events, period)
	_, datasetEnd, hasData := timeBounds(events)

	results := make([]*models.SensorMetrics, len(pairs))

	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		go func(i int, pair models.SensorZonePair) {
			defer wg.Done()
			sensorData := byName(filtered, pair.Sensor)
			zoneData := byName(filtered, pair.Zone)
			if len(sensorData) == 0 || len(zoneData) == 0 {
				return
			}
			start, end, _ := timeBounds(sensorData, zoneData)

			stats := CalculateOccupancyStatistics(sensorData, zoneData, start, end, e.cfg.GapThreshold)
			violations := DetectTimingDeviations(sensorData, zoneData, policy)
			counts := CategorizeDeviations(violations)
			rates := CalculateErrorRates(violations, zoneData)

			trend := make([]float64, TrendBuckets)
			if hasData {
				trend = HourlyZoneStandby(byName(events, pair.Zone), datasetEnd)
			}

			results[i] = &models.SensorMetrics{
				SensorID:                SensorShortID(pair.Sensor),
				ZoneID:                  pair.Zone,
				OccupancyCorrelation:    stats.ZoneOccupiedRatio,
				StandbyCorrelation:      stats.ZoneStandbyRatio,
				Deviations:              counts,
				PerformanceLevel:        performanceLevel(counts.Total),
				TrendData:               trend,
				SensorOccupiedPercent:   stats.SensorOccupiedPercent,
				ZoneOccupiedPercent:     stats.ZoneOccupiedPercent,
				SensorUnoccupiedPercent: stats.SensorUnoccupiedPercent,
				ZoneStandbyPercent:      stats.ZoneStandbyPercent,
				TotalModeChanges:        rates.TotalModeChanges,
			}
		}(i, pair)
	}
	wg.Wait()

	metrics := make([]*models.SensorMetrics, 0, len(pairs))
	for _, m := range results {
		if m != nil {
			metrics = append(metrics, m)
		}
	}
	return metrics
}

func performanceLevel(deviations int) models.PerformanceLevel {
	switch {
	case deviations == 0:
		return models.PerformanceGood
	case deviations <= 2:
		return models.PerformanceFair
	default:
		return models.PerformancePoor
	}
}

// Timeline builds the full per-pair analysis for the timeline view: the
// merged event list, timing violations, statistics, and error rates over
// [start, start+durationHours). A nil start anchors the window at the pair's
// first event.
func (e *Engine) Timeline(events []models.Event, pair models.SensorZonePair, start *time.Time, durationHours int, policy models.TimingPolicy) (*models.TimelineData, error) {
	sensorData := byName(events, pair.Sensor)
	zoneData := byName(events, pair.Zone)
	if len(sensorData) == 0 || len(zoneData) == 0 {
		return nil, ErrNoData
	}

	if durationHours <= 0 {
		durationHours = 24
	}

	windowStart := sensorData[0].Time
	if zoneData[0].Time.Before(windowStart) {
		windowStart = zoneData[0].Time
	}
	if start != nil {
		windowStart = *start
	}
	windowEnd := windowStart.Add(time.Duration(durationHours) * time.Hour)

	sensorData = windowEvents(sensorData, windowStart, windowEnd)
	zoneData = windowEvents(zoneData, windowStart, windowEnd)

	merged := MergeStreams(sensorData, zoneData)
	timeline := make([]models.TimelineEvent, 0, len(merged))
	for _, ev := range merged {
		timeline = append(timeline, models.TimelineEvent{
			Timestamp:   ev.Time,
			Type:        ev.Kind,
			Device:      ev.Device,
			Value:       ev.Value,
			Description: describeEvent(ev),
		})
	}

	violations := DetectTimingDeviations(sensorData, zoneData, policy)
	stats := CalculateOccupancyStatistics(sensorData, zoneData, windowStart, windowEnd, e.cfg.GapThreshold)
	rates := CalculateErrorRates(violations, zoneData)

	return &models.TimelineData{
		Sensor:     pair.Sensor,
		Zone:       pair.Zone,
		StartTime:  windowStart,
		EndTime:    windowEnd,
		Events:     timeline,
		Violations: violations,
		Statistics: models.TimelineStatistics{
			SensorOccupiedTime:   FormatDuration(stats.SensorOccupiedTime),
			SensorUnoccupiedTime: FormatDuration(stats.SensorUnoccupiedTime),
			ZoneOccupiedTime:     FormatDuration(stats.ZoneOccupiedTime),
			ZoneStandbyTime:      FormatDuration(stats.ZoneStandbyTime),
			ZoneOccupiedRatio:    round1(stats.ZoneOccupiedRatio),
			ZoneStandbyRatio:     round1(stats.ZoneStandbyRatio),
			TotalDuration:        FormatDuration(stats.TotalDuration),
		},
		ErrorRates: rates,
		Summary: models.TimelineSummary{
			TotalEvents:  len(timeline),
			SensorEvents: len(sensorData),
			ZoneEvents:   len(zoneData),
			Violations:   len(violations),
		},
	}, nil
}

func describeEvent(ev StreamEvent) string {
	if ev.Kind == models.KindSensor {
		if ev.Value == models.SensorOccupied {
			return "Sensor: Occupied"
		}
		return "Sensor: Unoccupied"
	}
	return fmt.Sprintf("Zone: %s mode", models.ZoneMode(ev.Value))
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

// Errors
var (
	ErrNoData = &Error{Code: "NO_DATA", Message: "No data found for sensor-zone pair"}
)

// Error represents an analysis error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
