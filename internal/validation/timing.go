package validation

import (
	"fmt"

	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/pkg/models"
)

// TimingValidator checks zone-mode transitions against the configured delay
// policy: a transition to standby is judged against the unoccupied delay, a
// transition to occupied mode against the occupied delay. Early transitions
// are always flagged; late transitions only when the policy enables the
// late-side check.
type TimingValidator struct {
	policy models.TimingPolicy
}

// NewTimingValidator creates a timing validator with an immutable policy.
func NewTimingValidator(policy models.TimingPolicy) *TimingValidator {
	return &TimingValidator{policy: policy}
}

// Name returns the validator name.
func (v *TimingValidator) Name() string {
	return "TimingValidator"
}

// Validate classifies the current zone transition, if any.
func (v *TimingValidator) Validate(ctx *Context) ([]models.Violation, error) {
	if !ctx.IsZoneChange || !ctx.HasSensorChange || !ctx.SensorKnown {
		return nil, nil
	}

	elapsed := ctx.Event.Time.Sub(ctx.LastSensorChange)
	newMode := models.ZoneMode(ctx.ZoneState)

	switch {
	case ctx.SensorState == models.SensorUnoccupied && newMode == models.ZoneStandby:
		if elapsed < v.policy.EarlyStandbyThreshold() {
			return []models.Violation{newViolation(v.Name(), models.ViolationEarlyStandby,
				fmt.Sprintf("Early standby transition after %s", analysis.FormatElapsed(elapsed)),
				ctx.Event.Time,
				fmt.Sprintf("%d minutes unoccupied", v.policy.UnoccupiedDelayMinutes))}, nil
		}
		if v.policy.CheckLateTransitions && elapsed > v.policy.LateStandbyThreshold() {
			return []models.Violation{newViolation(v.Name(), models.ViolationLateStandby,
				fmt.Sprintf("Late standby transition after %s", analysis.FormatElapsed(elapsed)),
				ctx.Event.Time,
				fmt.Sprintf("%d minutes unoccupied", v.policy.UnoccupiedDelayMinutes))}, nil
		}
	case ctx.SensorState == models.SensorOccupied && newMode == models.ZoneOccupied:
		if elapsed < v.policy.EarlyOccupiedThreshold() {
			return []models.Violation{newViolation(v.Name(), models.ViolationEarlyOccupied,
				fmt.Sprintf("Early occupied transition after %s", analysis.FormatElapsed(elapsed)),
				ctx.Event.Time,
				fmt.Sprintf("%d minutes occupied", v.policy.OccupiedDelayMinutes))}, nil
		}
		if v.policy.CheckLateTransitions && elapsed > v.policy.LateOccupiedThreshold() {
			return []models.Violation{newViolation(v.Name(), models.ViolationLateOccupied,
				fmt.Sprintf("Late occupied transition after %s", analysis.FormatElapsed(elapsed)),
				ctx.Event.Time,
				fmt.Sprintf("%d minutes occupied", v.policy.OccupiedDelayMinutes))}, nil
		}
	}

	return nil, nil
}

// Stats reports the active timing requirements.
func (v *TimingValidator) Stats() map[string]interface{} {
	return map[string]interface{}{
		"occupied_delay_minutes":       v.policy.OccupiedDelayMinutes,
		"unoccupied_delay_minutes":     v.policy.UnoccupiedDelayMinutes,
		"occupied_tolerance_minutes":   v.policy.OccupiedToleranceMinutes,
		"unoccupied_tolerance_minutes": v.policy.UnoccupiedToleranceMinutes,
		"check_late_transitions":       v.policy.CheckLateTransitions,
	}
}
