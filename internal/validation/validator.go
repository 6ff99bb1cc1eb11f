package validation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/pkg/models"
)

// Context carries the detector state handed to each validator for one event
// of the merged stream.
type Context struct {
	Event        analysis.StreamEvent
	IsZoneChange bool

	SensorState int
	SensorKnown bool
	// ZoneState is the zone value after applying the current event.
	ZoneState int
	ZoneKnown bool

	LastSensorChange time.Time
	HasSensorChange  bool
}

// Validator is one pluggable compliance check. Implementations return the
// violations observed for the current event, or an error when the check
// itself failed; errors are isolated by the manager and never abort a run.
type Validator interface {
	Name() string
	Validate(ctx *Context) ([]models.Violation, error)
}

// StatsProvider is an optional extension for validators that expose running
// statistics.
type StatsProvider interface {
	Stats() map[string]interface{}
}

// Manager holds an ordered list of validators and runs them uniformly over
// an event stream. Construct a fresh manager per analysis run; validators
// keep per-run state.
type Manager struct {
	validators []Validator
}

// NewManager creates a manager with the built-in validators for a profile.
func NewManager(profile *Profile) *Manager {
	return &Manager{validators: []Validator{
		NewTimingValidator(profile.Timing),
		NewOccupancyValidator(profile.Occupancy),
		NewDataQualityValidator(profile.DataQuality),
	}}
}

// NewManagerWith creates a manager with an explicit validator list.
func NewManagerWith(validators ...Validator) *Manager {
	return &Manager{validators: validators}
}

// Add appends a validator to the run order.
func (m *Manager) Add(v Validator) {
	m.validators = append(m.validators, v)
}

// Remove drops a validator by name, reporting whether one was removed.
func (m *Manager) Remove(name string) bool {
	for i, v := range m.validators {
		if v.Name() == name {
			m.validators = append(m.validators[:i], m.validators[i+1:]...)
			return true
		}
	}
	return false
}

// ActiveValidators lists validator names in run order.
func (m *Manager) ActiveValidators() []string {
	names := make([]string, 0, len(m.validators))
	for _, v := range m.validators {
		names = append(names, v.Name())
	}
	return names
}

// ValidateEvent invokes every validator in registration order and
// concatenates their violations. A failing validator contributes one
// validator_error record instead of aborting the run.
func (m *Manager) ValidateEvent(ctx *Context) []models.Violation {
	var all []models.Violation
	for _, v := range m.validators {
		violations, err := v.Validate(ctx)
		if err != nil {
			all = append(all, models.Violation{
				ID:        uuid.New().String(),
				Type:      models.ViolationValidatorError,
				Message:   fmt.Sprintf("Validator %s failed: %v", v.Name(), err),
				Timestamp: ctx.Event.Time,
				Validator: "ValidationManager",
			})
			continue
		}
		all = append(all, violations...)
	}
	return all
}

// Stats collects running statistics from every validator that exposes them.
func (m *Manager) Stats() map[string]interface{} {
	stats := make(map[string]interface{})
	for _, v := range m.validators {
		if p, ok := v.(StatsProvider); ok {
			stats[v.Name()] = p.Stats()
		}
	}
	return stats
}

// Run drives the manager over a merged sensor+zone stream, maintaining the
// same state machine as the timing detector, and returns every violation.
func (m *Manager) Run(stream []analysis.StreamEvent) []models.Violation {
	var all []models.Violation

	ctx := &Context{}
	for _, ev := range stream {
		ctx.Event = ev
		ctx.IsZoneChange = false

		switch ev.Kind {
		case models.KindSensor:
			if !ctx.SensorKnown || ctx.SensorState != ev.Value {
				ctx.SensorState = ev.Value
				ctx.SensorKnown = true
				ctx.LastSensorChange = ev.Time
				ctx.HasSensorChange = true
			}
		case models.KindZone:
			if ctx.ZoneKnown && ctx.ZoneState != ev.Value {
				ctx.IsZoneChange = true
			}
			ctx.ZoneState = ev.Value
			ctx.ZoneKnown = true
		}

		all = append(all, m.ValidateEvent(ctx)...)
	}
	return all
}

// newViolation builds a standardized violation record for a validator.
func newViolation(validator string, vtype models.ViolationType, message string, at time.Time, expected string) models.Violation {
	return models.Violation{
		ID:        uuid.New().String(),
		Type:      vtype,
		Message:   message,
		Timestamp: at,
		Expected:  expected,
		Validator: validator,
	}
}
