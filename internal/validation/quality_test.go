package validation

import (
	"testing"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

func validateAll(t *testing.T, v Validator, events []Context) []models.Violation {
	t.Helper()
	var all []models.Violation
	for i := range events {
		violations, err := v.Validate(&events[i])
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		all = append(all, violations...)
	}
	return all
}

func TestDataQualityGap(t *testing.T) {
	v := NewDataQualityValidator(DataQualityConfig{
		MaxGapMinutes:            30,
		MaxRapidChanges:          10,
		RapidChangeWindowMinutes: 5,
		MinStateDurationSeconds:  0,
	})

	violations := validateAll(t, v, []Context{
		{Event: sensorEvent(0, 0)},
		{Event: sensorEvent(40*time.Minute, 0)},
	})
	if len(violations) != 1 || violations[0].Type != models.ViolationDataGap {
		t.Fatalf("expected one data_gap, got %v", violations)
	}
	if violations[0].Validator != "DataQualityValidator" {
		t.Errorf("validator = %q", violations[0].Validator)
	}
}

func TestDataQualityGapTrackedPerStream(t *testing.T) {
	v := NewDataQualityValidator(DataQualityConfig{
		MaxGapMinutes:            30,
		MaxRapidChanges:          10,
		RapidChangeWindowMinutes: 5,
	})

	// Zone events fill the silence but the sensor stream itself has a gap.
	violations := validateAll(t, v, []Context{
		{Event: sensorEvent(0, 0)},
		{Event: zoneEvent(20*time.Minute, 1)},
		{Event: zoneEvent(35*time.Minute, 1)},
		{Event: sensorEvent(40*time.Minute, 0)},
	})
	if len(violations) != 1 || violations[0].Type != models.ViolationDataGap {
		t.Fatalf("expected one sensor data_gap, got %v", violations)
	}
}

func TestDataQualityRapidChanges(t *testing.T) {
	v := NewDataQualityValidator(DataQualityConfig{
		MaxGapMinutes:            30,
		MaxRapidChanges:          2,
		RapidChangeWindowMinutes: 5,
		MinStateDurationSeconds:  0,
	})

	violations := validateAll(t, v, []Context{
		{Event: sensorEvent(0, 0)},
		{Event: sensorEvent(1*time.Minute, 1)},
		{Event: sensorEvent(2*time.Minute, 0)},
		{Event: sensorEvent(3*time.Minute, 1)},
	})
	if len(violations) != 1 || violations[0].Type != models.ViolationRapidStateChanges {
		t.Fatalf("expected one rapid_state_changes, got %v", violations)
	}
}

func TestDataQualityShortStateDuration(t *testing.T) {
	v := NewDataQualityValidator(DataQualityConfig{
		MaxGapMinutes:            30,
		MaxRapidChanges:          10,
		RapidChangeWindowMinutes: 5,
		MinStateDurationSeconds:  30,
	})

	violations := validateAll(t, v, []Context{
		{Event: sensorEvent(0, 0)},
		{Event: sensorEvent(10*time.Second, 1)},
		{Event: sensorEvent(20*time.Second, 0)},
	})
	if len(violations) != 1 || violations[0].Type != models.ViolationShortStateDur {
		t.Fatalf("expected one short_state_duration, got %v", violations)
	}
}

func TestDataQualityUnknownKind(t *testing.T) {
	v := NewDataQualityValidator(DataQualityConfig{})
	ctx := &Context{Event: sensorEvent(0, 0)}
	ctx.Event.Kind = "bogus"
	if _, err := v.Validate(ctx); err == nil {
		t.Fatal("expected an error for an unknown event kind")
	}
}

func TestOccupancyValidatorFlagsPoorCorrelation(t *testing.T) {
	v := NewOccupancyValidator(OccupancyConfig{
		MaxCorrelationDriftPercent: 20,
		MinCorrelationSamples:      2,
	})

	// Zone stuck in standby: occupied correlation collapses, unoccupied
	// correlation stays perfect. Nothing fires before both sides have the
	// minimum sample count.
	contexts := []Context{
		{Event: sensorEvent(0, 1), SensorState: 1, SensorKnown: true, ZoneState: 1, ZoneKnown: true},
		{Event: sensorEvent(time.Minute, 1), SensorState: 1, SensorKnown: true, ZoneState: 1, ZoneKnown: true},
		{Event: sensorEvent(2*time.Minute, 0), SensorState: 0, SensorKnown: true, ZoneState: 1, ZoneKnown: true},
	}
	violations := validateAll(t, v, contexts)
	if len(violations) != 0 {
		t.Fatalf("no violation before minimum samples, got %v", violations)
	}

	final := Context{Event: sensorEvent(3*time.Minute, 0), SensorState: 0, SensorKnown: true, ZoneState: 1, ZoneKnown: true}
	violations, err := v.Validate(&final)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(violations) != 1 || violations[0].Type != models.ViolationPoorOccupiedCorrelation {
		t.Fatalf("expected poor_occupied_correlation, got %v", violations)
	}

	stats := v.Stats()
	if stats["occupied_correlation_percent"].(float64) != 0 {
		t.Errorf("occupied correlation = %v, want 0", stats["occupied_correlation_percent"])
	}
	if stats["unoccupied_correlation_percent"].(float64) != 100 {
		t.Errorf("unoccupied correlation = %v, want 100", stats["unoccupied_correlation_percent"])
	}
}

func TestOccupancyValidatorIgnoresUnknownState(t *testing.T) {
	v := NewOccupancyValidator(OccupancyConfig{MaxCorrelationDriftPercent: 20, MinCorrelationSamples: 1})

	ctx := Context{Event: sensorEvent(0, 1), SensorKnown: false, ZoneKnown: true}
	if violations, _ := v.Validate(&ctx); len(violations) != 0 {
		t.Errorf("unknown sensor state must not count samples: %v", violations)
	}
	if v.Stats()["total_occupied_samples"].(int) != 0 {
		t.Error("no samples should be recorded")
	}
}
