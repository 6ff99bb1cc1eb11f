package validation

import (
	"fmt"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// DataQualityConfig configures the data-quality anomaly checks.
type DataQualityConfig struct {
	MaxGapMinutes            int `yaml:"max_gap_minutes" json:"max_gap_minutes"`
	MaxRapidChanges          int `yaml:"max_rapid_changes" json:"max_rapid_changes"`
	RapidChangeWindowMinutes int `yaml:"rapid_change_window_minutes" json:"rapid_change_window_minutes"`
	MinStateDurationSeconds  int `yaml:"min_state_duration_seconds" json:"min_state_duration_seconds"`
}

type kindState struct {
	lastEventTime  time.Time
	hasLastEvent   bool
	lastValue      int
	hasLastValue   bool
	lastChangeTime time.Time
	hasLastChange  bool
}

// DataQualityValidator detects reporting gaps, flapping devices, and
// implausibly short state durations, tracked separately for the sensor and
// zone streams.
type DataQualityValidator struct {
	cfg DataQualityConfig

	streams       map[models.EventKind]*kindState
	recentChanges []time.Time
}

// NewDataQualityValidator creates a data-quality validator.
func NewDataQualityValidator(cfg DataQualityConfig) *DataQualityValidator {
	return &DataQualityValidator{
		cfg: cfg,
		streams: map[models.EventKind]*kindState{
			models.KindSensor: {},
			models.KindZone:   {},
		},
	}
}

// Name returns the validator name.
func (v *DataQualityValidator) Name() string {
	return "DataQualityValidator"
}

func (v *DataQualityValidator) maxGap() time.Duration {
	return time.Duration(v.cfg.MaxGapMinutes) * time.Minute
}

func (v *DataQualityValidator) changeWindow() time.Duration {
	return time.Duration(v.cfg.RapidChangeWindowMinutes) * time.Minute
}

func (v *DataQualityValidator) minStateDuration() time.Duration {
	return time.Duration(v.cfg.MinStateDurationSeconds) * time.Second
}

// Validate inspects every event for gaps, rapid changes, and short states.
func (v *DataQualityValidator) Validate(ctx *Context) ([]models.Violation, error) {
	stream, ok := v.streams[ctx.Event.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown event kind %q", ctx.Event.Kind)
	}

	now := ctx.Event.Time
	var violations []models.Violation

	// Reporting gap per stream.
	if stream.hasLastEvent {
		if gap := now.Sub(stream.lastEventTime); gap > v.maxGap() {
			violations = append(violations, newViolation(v.Name(), models.ViolationDataGap,
				fmt.Sprintf("%s data gap of %s detected", ctx.Event.Kind, gap.Truncate(time.Second)),
				now,
				fmt.Sprintf("<=%s between %s events", v.maxGap(), ctx.Event.Kind)))
		}
	}
	stream.lastEventTime = now
	stream.hasLastEvent = true

	changed := stream.hasLastValue && stream.lastValue != ctx.Event.Value

	if changed {
		// Flapping across both streams within the sliding window.
		v.recentChanges = append(v.recentChanges, now)
		cutoff := now.Add(-v.changeWindow())
		kept := v.recentChanges[:0]
		for _, t := range v.recentChanges {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		v.recentChanges = kept

		if len(v.recentChanges) > v.cfg.MaxRapidChanges {
			violations = append(violations, newViolation(v.Name(), models.ViolationRapidStateChanges,
				fmt.Sprintf("%d state changes in %s - possible sensor malfunction", len(v.recentChanges), v.changeWindow()),
				now,
				fmt.Sprintf("<=%d changes per %s", v.cfg.MaxRapidChanges, v.changeWindow())))
		}

		// State held for less than the plausible minimum.
		if stream.hasLastChange {
			if held := now.Sub(stream.lastChangeTime); held < v.minStateDuration() {
				violations = append(violations, newViolation(v.Name(), models.ViolationShortStateDur,
					fmt.Sprintf("Very short %s state duration: %s", ctx.Event.Kind, held.Truncate(time.Second)),
					now,
					fmt.Sprintf(">=%s state duration", v.minStateDuration())))
			}
		}
		stream.lastChangeTime = now
		stream.hasLastChange = true
	}

	stream.lastValue = ctx.Event.Value
	stream.hasLastValue = true

	return violations, nil
}

// Stats reports the current anomaly-tracking state.
func (v *DataQualityValidator) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"recent_changes_count":  len(v.recentChanges),
		"max_allowed_changes":   v.cfg.MaxRapidChanges,
		"change_window_minutes": v.cfg.RapidChangeWindowMinutes,
	}
	if s := v.streams[models.KindSensor]; s.hasLastEvent {
		stats["last_sensor_event"] = s.lastEventTime
	}
	if s := v.streams[models.KindZone]; s.hasLastEvent {
		stats["last_zone_event"] = s.lastEventTime
	}
	return stats
}
