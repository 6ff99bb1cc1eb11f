package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/odcv/pkg/models"
)

// StreamEvent is one entry of the merged, time-ordered sensor+zone stream a
// detector consumes.
type StreamEvent struct {
	Kind   models.EventKind
	Device string
	Time   time.Time
	Value  int
}

// MergeStreams interleaves sensor and zone events into a single time-ordered
// stream. At equal timestamps sensor events sort before zone events: a
// same-tick sensor change is what the zone event is responding to.
func MergeStreams(sensorEvents, zoneEvents []models.Event) []StreamEvent {
	merged := make([]StreamEvent, 0, len(sensorEvents)+len(zoneEvents))
	for _, ev := range sensorEvents {
		merged = append(merged, StreamEvent{Kind: models.KindSensor, Device: ev.Name, Time: ev.Time, Value: ev.State()})
	}
	for _, ev := range zoneEvents {
		merged = append(merged, StreamEvent{Kind: models.KindZone, Device: ev.Name, Time: ev.Time, Value: ev.State()})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Time.Equal(merged[j].Time) {
			return merged[i].Time.Before(merged[j].Time)
		}
		return merged[i].Kind == models.KindSensor && merged[j].Kind == models.KindZone
	})
	return merged
}

// Detector watches the interleaving of sensor and zone events and, on each
// zone-mode transition, classifies the elapsed time since the last sensor
// state change against the timing policy. The initial state is unknown for
// both devices; no violation can fire until a sensor baseline and a prior
// zone state exist.
type Detector struct {
	policy models.TimingPolicy

	sensorState int
	sensorKnown bool
	zoneState   int
	zoneKnown   bool

	lastSensorChange time.Time
	hasSensorChange  bool

	violations []models.Violation
}

// NewDetector creates a detector with an immutable policy snapshot.
func NewDetector(policy models.TimingPolicy) *Detector {
	return &Detector{policy: policy}
}

// Process feeds one merged-stream event through the state machine.
func (d *Detector) Process(ev StreamEvent) {
	switch ev.Kind {
	case models.KindSensor:
		if !d.sensorKnown || d.sensorState != ev.Value {
			d.sensorState = ev.Value
			d.sensorKnown = true
			d.lastSensorChange = ev.Time
			d.hasSensorChange = true
		}
	case models.KindZone:
		if d.zoneKnown && d.zoneState != ev.Value {
			d.checkTransition(models.ZoneMode(ev.Value), ev.Time)
		}
		d.zoneState = ev.Value
		d.zoneKnown = true
	}
}

func (d *Detector) checkTransition(newMode models.ZoneMode, at time.Time) {
	if !d.hasSensorChange || !d.sensorKnown {
		return
	}
	elapsed := at.Sub(d.lastSensorChange)

	switch {
	case d.sensorState == models.SensorUnoccupied && newMode == models.ZoneStandby:
		if elapsed < d.policy.EarlyStandbyThreshold() {
			d.record(models.ViolationEarlyStandby, at, elapsed, d.policy.UnoccupiedDelayMinutes, "unoccupied")
		} else if d.policy.CheckLateTransitions && elapsed > d.policy.LateStandbyThreshold() {
			d.record(models.ViolationLateStandby, at, elapsed, d.policy.UnoccupiedDelayMinutes, "unoccupied")
		}
	case d.sensorState == models.SensorOccupied && newMode == models.ZoneOccupied:
		if elapsed < d.policy.EarlyOccupiedThreshold() {
			d.record(models.ViolationEarlyOccupied, at, elapsed, d.policy.OccupiedDelayMinutes, "occupied")
		} else if d.policy.CheckLateTransitions && elapsed > d.policy.LateOccupiedThreshold() {
			d.record(models.ViolationLateOccupied, at, elapsed, d.policy.OccupiedDelayMinutes, "occupied")
		}
	}
}

func (d *Detector) record(vtype models.ViolationType, at time.Time, elapsed time.Duration, targetMinutes int, sensorWord string) {
	var side, direction string
	switch vtype {
	case models.ViolationEarlyStandby:
		side, direction = "Early", "standby"
	case models.ViolationLateStandby:
		side, direction = "Late", "standby"
	case models.ViolationEarlyOccupied:
		side, direction = "Early", "occupied"
	case models.ViolationLateOccupied:
		side, direction = "Late", "occupied"
	}

	d.violations = append(d.violations, models.Violation{
		ID:        uuid.New().String(),
		Type:      vtype,
		Message:   fmt.Sprintf("%s %s transition after %s", side, direction, FormatElapsed(elapsed)),
		Timestamp: at,
		Expected:  fmt.Sprintf("%d minutes %s", targetMinutes, sensorWord),
	})
}

// Violations returns the violations accumulated so far.
func (d *Detector) Violations() []models.Violation {
	return d.violations
}

// DetectTimingDeviations runs a detector over the merged streams of one
// sensor-zone pair and returns every timing violation in order.
func DetectTimingDeviations(sensorEvents, zoneEvents []models.Event, policy models.TimingPolicy) []models.Violation {
	d := NewDetector(policy)
	for _, ev := range MergeStreams(sensorEvents, zoneEvents) {
		d.Process(ev)
	}
	return d.Violations()
}

// FormatElapsed renders an elapsed duration for violation messages.
func FormatElapsed(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

// CalculateErrorRates turns a violation list and the zone event sequence
// into percentage error rates broken down by transition direction. Every
// rate is 0 when its denominator is 0.
func CalculateErrorRates(violations []models.Violation, zoneEvents []models.Event) models.ErrorRates {
	rates := models.ErrorRates{
		TotalViolations:  len(violations),
		ViolationsByType: make(map[models.ViolationType]int),
	}
	for _, v := range violations {
		rates.ViolationsByType[v.Type]++
	}
	if len(zoneEvents) == 0 {
		return rates
	}

	lastMode := 0
	known := false
	for _, ev := range zoneEvents {
		mode := ev.State()
		if known && lastMode != mode {
			rates.TotalModeChanges++
			if models.ZoneMode(mode) == models.ZoneStandby {
				rates.ToStandbyChanges++
			} else {
				rates.ToOccupiedChanges++
			}
		}
		lastMode = mode
		known = true
	}

	if rates.TotalModeChanges > 0 {
		rates.OverallErrorRate = float64(len(violations)) / float64(rates.TotalModeChanges) * 100
	}
	if rates.ToStandbyChanges > 0 {
		rates.PrematureStandbyRate = float64(rates.ViolationsByType[models.ViolationEarlyStandby]) / float64(rates.ToStandbyChanges) * 100
	}
	if rates.ToOccupiedChanges > 0 {
		rates.PrematureOccupiedRate = float64(rates.ViolationsByType[models.ViolationEarlyOccupied]) / float64(rates.ToOccupiedChanges) * 100
	}
	return rates
}

// CategorizeDeviations counts violations by transition direction and side.
func CategorizeDeviations(violations []models.Violation) models.DeviationCounts {
	counts := models.DeviationCounts{Total: len(violations)}
	for _, v := range violations {
		switch v.Type {
		case models.ViolationEarlyStandby:
			counts.EarlyStandby++
		case models.ViolationLateStandby:
			counts.LateStandby++
		case models.ViolationEarlyOccupied:
			counts.EarlyOccupied++
		case models.ViolationLateOccupied:
			counts.LateOccupied++
		}
	}
	return counts
}
