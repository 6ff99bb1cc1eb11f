package models

import (
	"time"
)

// Event represents a single timestamped binary-state record from a
// building sensor or a BMS zone controller.
type Event struct {
	Name  string    `json:"name"`
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// State returns the event value as an integer state.
func (e Event) State() int {
	return int(e.Value)
}

// Sensor state encoding: 1 = occupied, 0 = unoccupied.
const (
	SensorUnoccupied = 0
	SensorOccupied   = 1
)

// ZoneMode represents a BMS zone controller mode. The numeric encoding is
// inverted relative to the sensor encoding: 0 means the zone is serving an
// occupied space, 1 means it has dropped to standby airflow. Call sites
// should compare against these constants, never raw ints.
type ZoneMode int

const (
	ZoneOccupied ZoneMode = 0
	ZoneStandby  ZoneMode = 1
)

// String returns the display name of the zone mode.
func (m ZoneMode) String() string {
	if m == ZoneStandby {
		return "Standby"
	}
	return "Occupied"
}

// EventKind distinguishes sensor events from zone events in a merged stream.
type EventKind string

const (
	KindSensor EventKind = "sensor"
	KindZone   EventKind = "zone"
)

// SensorZonePair binds an occupancy sensor to the zone controller it drives.
// Pairs are established once per analysis run and never interact.
type SensorZonePair struct {
	Sensor string `json:"sensor"`
	Zone   string `json:"zone"`
}

// ViolationType classifies a control-timing or data-quality violation.
type ViolationType string

const (
	ViolationEarlyStandby  ViolationType = "early_standby"
	ViolationLateStandby   ViolationType = "late_standby"
	ViolationEarlyOccupied ViolationType = "early_occupied"
	ViolationLateOccupied  ViolationType = "late_occupied"

	ViolationPoorOccupiedCorrelation   ViolationType = "poor_occupied_correlation"
	ViolationPoorUnoccupiedCorrelation ViolationType = "poor_unoccupied_correlation"

	ViolationDataGap           ViolationType = "data_gap"
	ViolationRapidStateChanges ViolationType = "rapid_state_changes"
	ViolationShortStateDur     ViolationType = "short_state_duration"

	ViolationValidatorError ViolationType = "validator_error"
)

// Violation is an immutable record of an out-of-spec observation, produced
// at a zone-mode transition instant or by a validation plugin.
type Violation struct {
	ID        string        `json:"id"`
	Type      ViolationType `json:"type"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Expected  string        `json:"expected,omitempty"`
	Validator string        `json:"validator,omitempty"`
}

// TimingPolicy holds the delay and tolerance thresholds for zone-mode
// transitions. Loaded once per analysis request and never mutated by the
// detector.
type TimingPolicy struct {
	OccupiedDelayMinutes       int  `yaml:"occupied_delay_minutes" json:"occupied_delay_minutes"`
	UnoccupiedDelayMinutes     int  `yaml:"unoccupied_delay_minutes" json:"unoccupied_delay_minutes"`
	OccupiedToleranceMinutes   int  `yaml:"occupied_tolerance_minutes" json:"occupied_tolerance_minutes"`
	UnoccupiedToleranceMinutes int  `yaml:"unoccupied_tolerance_minutes" json:"unoccupied_tolerance_minutes"`
	CheckLateTransitions       bool `yaml:"check_late_transitions" json:"check_late_transitions"`
}

// EarlyStandbyThreshold returns the minimum compliant elapsed time before a
// transition to standby. Transitions strictly below it are early.
func (p TimingPolicy) EarlyStandbyThreshold() time.Duration {
	return time.Duration(p.UnoccupiedDelayMinutes-p.UnoccupiedToleranceMinutes) * time.Minute
}

// LateStandbyThreshold returns the maximum compliant elapsed time before a
// transition to standby. Transitions strictly above it are late.
func (p TimingPolicy) LateStandbyThreshold() time.Duration {
	return time.Duration(p.UnoccupiedDelayMinutes+p.UnoccupiedToleranceMinutes) * time.Minute
}

// EarlyOccupiedThreshold returns the minimum compliant elapsed time before a
// transition to occupied mode.
func (p TimingPolicy) EarlyOccupiedThreshold() time.Duration {
	return time.Duration(p.OccupiedDelayMinutes-p.OccupiedToleranceMinutes) * time.Minute
}

// LateOccupiedThreshold returns the maximum compliant elapsed time before a
// transition to occupied mode.
func (p TimingPolicy) LateOccupiedThreshold() time.Duration {
	return time.Duration(p.OccupiedDelayMinutes+p.OccupiedToleranceMinutes) * time.Minute
}

// OccupancyStats holds the per-pair duration and correlation statistics for
// one analysis window. Missing time is attributed via gap detection so that
// occupied + unoccupied + missing covers the whole window for each device.
type OccupancyStats struct {
	SensorOccupiedTime   time.Duration `json:"sensor_occupied_seconds"`
	SensorUnoccupiedTime time.Duration `json:"sensor_unoccupied_seconds"`
	SensorMissingTime    time.Duration `json:"sensor_missing_seconds"`
	ZoneOccupiedTime     time.Duration `json:"zone_occupied_seconds"`
	ZoneStandbyTime      time.Duration `json:"zone_standby_seconds"`
	ZoneMissingTime      time.Duration `json:"zone_missing_seconds"`
	TotalDuration        time.Duration `json:"total_seconds"`

	// Correlation ratios: zone time in the expected mode as a percentage of
	// the matching sensor state time. Near 100 means tight coupling.
	ZoneOccupiedRatio float64 `json:"zone_occupied_ratio"`
	ZoneStandbyRatio  float64 `json:"zone_standby_ratio"`

	SensorOccupiedPercent   float64 `json:"sensor_occupied_percent"`
	SensorUnoccupiedPercent float64 `json:"sensor_unoccupied_percent"`
	SensorMissingPercent    float64 `json:"sensor_missing_percent"`
	ZoneOccupiedPercent     float64 `json:"zone_occupied_percent"`
	ZoneStandbyPercent      float64 `json:"zone_standby_percent"`
	ZoneMissingPercent      float64 `json:"zone_missing_percent"`
}

// ErrorRates summarizes violation counts against zone mode-change counts.
// All rates are 0 when their denominator is 0.
type ErrorRates struct {
	TotalModeChanges  int `json:"total_mode_changes"`
	ToStandbyChanges  int `json:"to_standby_changes"`
	ToOccupiedChanges int `json:"to_occupied_changes"`
	TotalViolations   int `json:"total_violations"`

	OverallErrorRate      float64 `json:"overall_error_rate"`
	PrematureStandbyRate  float64 `json:"premature_standby_rate"`
	PrematureOccupiedRate float64 `json:"premature_occupied_rate"`

	ViolationsByType map[ViolationType]int `json:"violations_by_type,omitempty"`
}

// DeviationCounts breaks violations down by transition direction and side.
type DeviationCounts struct {
	EarlyStandby  int `json:"es_count"`
	LateStandby   int `json:"ls_count"`
	EarlyOccupied int `json:"eo_count"`
	LateOccupied  int `json:"lo_count"`
	Total         int `json:"total_deviations_count"`
}

// PerformanceLevel grades a pair by its deviation count.
type PerformanceLevel string

const (
	PerformanceGood PerformanceLevel = "good"
	PerformanceFair PerformanceLevel = "fair"
	PerformancePoor PerformanceLevel = "poor"
)

// SensorMetrics is the per-pair metrics row consumed by the dashboard table.
type SensorMetrics struct {
	SensorID                string           `json:"sensor_id"`
	ZoneID                  string           `json:"zone_id"`
	OccupancyCorrelation    float64          `json:"occupancy_correlation"`
	StandbyCorrelation      float64          `json:"standby_correlation"`
	Deviations              DeviationCounts  `json:"deviations"`
	PerformanceLevel        PerformanceLevel `json:"performance_level"`
	TrendData               []float64        `json:"trend_data"`
	SensorOccupiedPercent   float64          `json:"sensor_occupied_percent"`
	ZoneOccupiedPercent     float64          `json:"zone_occupied_percent"`
	SensorUnoccupiedPercent float64          `json:"sensor_unoccupied_percent"`
	ZoneStandbyPercent      float64          `json:"zone_standby_percent"`
	TotalModeChanges        int              `json:"total_mode_changes"`
}

// CorrelationHealth counts pairs inside and outside the good band.
type CorrelationHealth struct {
	Good int `json:"good"`
	Poor int `json:"poor"`
}

// DashboardMetrics aggregates all pairs into the system-wide dashboard view.
type DashboardMetrics struct {
	StandbyModePercent      float64           `json:"standby_mode_percent"`
	AirflowReductionPercent float64           `json:"airflow_reduction_percent"`
	CorrelationHealth       CorrelationHealth `json:"correlation_health"`
	DataQualityPercent      float64           `json:"data_quality_percent"`
	SensorQualityPercent    float64           `json:"sensor_quality_percent"`
	BMSQualityPercent       float64           `json:"bms_quality_percent"`
}

// TimelineEvent is one entry in the merged per-pair event timeline.
type TimelineEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        EventKind `json:"type"`
	Device      string    `json:"device"`
	Value       int       `json:"value"`
	Description string    `json:"description"`
}

// TimelineStatistics carries the human-formatted statistics block of a
// timeline response.
type TimelineStatistics struct {
	SensorOccupiedTime   string  `json:"sensor_occupied_time"`
	SensorUnoccupiedTime string  `json:"sensor_unoccupied_time"`
	ZoneOccupiedTime     string  `json:"zone_occupied_time"`
	ZoneStandbyTime      string  `json:"zone_standby_time"`
	ZoneOccupiedRatio    float64 `json:"zone_occupied_ratio"`
	ZoneStandbyRatio     float64 `json:"zone_standby_ratio"`
	TotalDuration        string  `json:"total_duration"`
}

// TimelineSummary counts the events and violations in a timeline response.
type TimelineSummary struct {
	TotalEvents  int `json:"total_events"`
	SensorEvents int `json:"sensor_events"`
	ZoneEvents   int `json:"zone_events"`
	Violations   int `json:"violations"`
}

// TimelineData is the full per-pair analysis result served to the timeline
// view.
type TimelineData struct {
	Sensor     string             `json:"sensor"`
	Zone       string             `json:"zone"`
	StartTime  time.Time          `json:"start_time"`
	EndTime    time.Time          `json:"end_time"`
	Events     []TimelineEvent    `json:"events"`
	Violations []Violation        `json:"violations"`
	Statistics TimelineStatistics `json:"statistics"`
	ErrorRates ErrorRates         `json:"error_rates"`
	Summary    TimelineSummary    `json:"summary"`
}

// DataQualityMetrics compares observed valid data points against the
// expected reporting cadence.
type DataQualityMetrics struct {
	OverallQuality float64 `json:"overall_quality"`
	SensorQuality  float64 `json:"sensor_quality"`
	BMSQuality     float64 `json:"bms_quality"`

	ValidSensorPoints    int `json:"valid_sensor_points"`
	ExpectedSensorPoints int `json:"expected_sensor_points"`
	ValidBMSPoints       int `json:"valid_bms_points"`
	ExpectedBMSPoints    int `json:"expected_bms_points"`
}

// Dataset describes one loaded event log.
type Dataset struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RecordCount int       `json:"record_count"`
	SensorCount int       `json:"sensor_count"`
	ZoneCount   int       `json:"zone_count"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	CreatedAt   time.Time `json:"created_at"`
}
