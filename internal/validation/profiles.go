package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/savegress/odcv/pkg/models"
)

// Profile bundles the configuration for all built-in validators. Profiles
// are read-only snapshots: GetProfile returns a fresh copy per request.
type Profile struct {
	Timing      models.TimingPolicy `yaml:"timing_validator" json:"timing_validator"`
	Occupancy   OccupancyConfig     `yaml:"occupancy_validator" json:"occupancy_validator"`
	DataQuality DataQualityConfig   `yaml:"data_quality_validator" json:"data_quality_validator"`
}

// DefaultProfile returns the standard BMS policy: 5 minutes occupied before
// activation, 15 minutes unoccupied before standby, 2 minutes tolerance on
// both sides, late-side checking enabled.
func DefaultProfile() Profile {
	return Profile{
		Timing: models.TimingPolicy{
			OccupiedDelayMinutes:       5,
			UnoccupiedDelayMinutes:     15,
			OccupiedToleranceMinutes:   2,
			UnoccupiedToleranceMinutes: 2,
			CheckLateTransitions:       true,
		},
		Occupancy: OccupancyConfig{
			MaxCorrelationDriftPercent: 20,
			MinCorrelationSamples:      10,
		},
		DataQuality: DataQualityConfig{
			MaxGapMinutes:            30,
			MaxRapidChanges:          10,
			RapidChangeWindowMinutes: 5,
			MinStateDurationSeconds:  30,
		},
	}
}

// profileOverlays are the named site profiles merged over the default.
var profileOverlays = map[string]func(*Profile){
	"strict": func(p *Profile) {
		p.Timing.OccupiedToleranceMinutes = 0
		p.Timing.UnoccupiedToleranceMinutes = 0
		p.Occupancy.MaxCorrelationDriftPercent = 10
		p.Occupancy.MinCorrelationSamples = 5
	},
	"lenient": func(p *Profile) {
		p.Timing.OccupiedDelayMinutes = 3
		p.Timing.UnoccupiedDelayMinutes = 12
		p.Timing.OccupiedToleranceMinutes = 5
		p.Timing.UnoccupiedToleranceMinutes = 5
		// Legacy early-only behavior: late transitions are acceptable.
		p.Timing.CheckLateTransitions = false
		p.Occupancy.MaxCorrelationDriftPercent = 30
		p.Occupancy.MinCorrelationSamples = 20
	},
	"energy_optimized": func(p *Profile) {
		p.Timing.OccupiedDelayMinutes = 7
		p.Timing.UnoccupiedDelayMinutes = 10
		p.Timing.OccupiedToleranceMinutes = 1
		p.Timing.UnoccupiedToleranceMinutes = 1
	},
}

var profileDescriptions = map[string]string{
	"default":          "Standard BMS timing with reasonable tolerance (2 min)",
	"strict":           "Zero tolerance timing validation for compliance auditing",
	"lenient":          "Relaxed, early-only timing for older systems or challenging environments",
	"energy_optimized": "Optimized for maximum energy savings",
}

// GetProfile resolves a named validation profile. Unknown names fail fast
// with an error naming the valid options.
func GetProfile(name string) (Profile, error) {
	if name == "" || name == "default" {
		return DefaultProfile(), nil
	}
	overlay, ok := profileOverlays[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown validation profile %q (valid profiles: %s)", name, strings.Join(ListProfiles(), ", "))
	}
	p := DefaultProfile()
	overlay(&p)
	return p, nil
}

// ListProfiles returns all available profile names.
func ListProfiles() []string {
	names := []string{"default"}
	overlays := make([]string, 0, len(profileOverlays))
	for name := range profileOverlays {
		overlays = append(overlays, name)
	}
	sort.Strings(overlays)
	return append(names, overlays...)
}

// ProfileDescription returns a human-readable description of a profile.
func ProfileDescription(name string) string {
	if desc, ok := profileDescriptions[name]; ok {
		return desc
	}
	return "Custom validation profile"
}
