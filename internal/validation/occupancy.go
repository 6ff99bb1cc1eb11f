package validation

import (
	"fmt"

	"github.com/savegress/odcv/pkg/models"
)

// OccupancyConfig configures the correlation-drift check.
type OccupancyConfig struct {
	MaxCorrelationDriftPercent float64 `yaml:"max_correlation_drift_percent" json:"max_correlation_drift_percent"`
	MinCorrelationSamples      int     `yaml:"min_correlation_samples" json:"min_correlation_samples"`
}

// OccupancyValidator accumulates running co-occurrence counts between sensor
// state and zone mode across the whole stream and flags poor correlation
// once enough samples exist. Unlike the timing check this is cumulative: its
// violations are periodic summaries, not tied to a single transition.
type OccupancyValidator struct {
	cfg OccupancyConfig

	sensorOccupiedSamples   int
	zoneOccupiedMatches     int
	sensorUnoccupiedSamples int
	zoneStandbyMatches      int
}

// NewOccupancyValidator creates an occupancy correlation validator.
func NewOccupancyValidator(cfg OccupancyConfig) *OccupancyValidator {
	return &OccupancyValidator{cfg: cfg}
}

// Name returns the validator name.
func (v *OccupancyValidator) Name() string {
	return "OccupancyValidator"
}

// Validate updates the running correlation counters and, once both sides
// have the minimum sample count, reports drift below the allowed band.
func (v *OccupancyValidator) Validate(ctx *Context) ([]models.Violation, error) {
	if ctx.SensorKnown && ctx.ZoneKnown {
		if ctx.SensorState == models.SensorOccupied {
			v.sensorOccupiedSamples++
			if models.ZoneMode(ctx.ZoneState) == models.ZoneOccupied {
				v.zoneOccupiedMatches++
			}
		} else {
			v.sensorUnoccupiedSamples++
			if models.ZoneMode(ctx.ZoneState) == models.ZoneStandby {
				v.zoneStandbyMatches++
			}
		}
	}

	if v.sensorOccupiedSamples < v.cfg.MinCorrelationSamples ||
		v.sensorUnoccupiedSamples < v.cfg.MinCorrelationSamples {
		return nil, nil
	}

	floor := 100 - v.cfg.MaxCorrelationDriftPercent
	var violations []models.Violation

	if occ := v.occupiedCorrelation(); occ < floor {
		violations = append(violations, newViolation(v.Name(), models.ViolationPoorOccupiedCorrelation,
			fmt.Sprintf("Poor occupied correlation: %.1f%% (zone occupied when sensor occupied)", occ),
			ctx.Event.Time,
			fmt.Sprintf(">=%.0f%% correlation", floor)))
	}
	if unocc := v.unoccupiedCorrelation(); unocc < floor {
		violations = append(violations, newViolation(v.Name(), models.ViolationPoorUnoccupiedCorrelation,
			fmt.Sprintf("Poor unoccupied correlation: %.1f%% (zone standby when sensor unoccupied)", unocc),
			ctx.Event.Time,
			fmt.Sprintf(">=%.0f%% correlation", floor)))
	}
	return violations, nil
}

func (v *OccupancyValidator) occupiedCorrelation() float64 {
	if v.sensorOccupiedSamples == 0 {
		return 0
	}
	return float64(v.zoneOccupiedMatches) / float64(v.sensorOccupiedSamples) * 100
}

func (v *OccupancyValidator) unoccupiedCorrelation() float64 {
	if v.sensorUnoccupiedSamples == 0 {
		return 0
	}
	return float64(v.zoneStandbyMatches) / float64(v.sensorUnoccupiedSamples) * 100
}

// Stats reports the running correlation state.
func (v *OccupancyValidator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"occupied_correlation_percent":   v.occupiedCorrelation(),
		"unoccupied_correlation_percent": v.unoccupiedCorrelation(),
		"total_occupied_samples":         v.sensorOccupiedSamples,
		"total_unoccupied_samples":       v.sensorUnoccupiedSamples,
	}
}
