package validation

import (
	"strings"
	"testing"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()
	if p.Timing.OccupiedDelayMinutes != 5 || p.Timing.UnoccupiedDelayMinutes != 15 {
		t.Errorf("unexpected delays %+v", p.Timing)
	}
	if p.Timing.OccupiedToleranceMinutes != 2 || p.Timing.UnoccupiedToleranceMinutes != 2 {
		t.Errorf("unexpected tolerances %+v", p.Timing)
	}
	if !p.Timing.CheckLateTransitions {
		t.Error("default profile checks late transitions")
	}
}

func TestGetProfileOverlays(t *testing.T) {
	strict, err := GetProfile("strict")
	if err != nil {
		t.Fatalf("GetProfile(strict): %v", err)
	}
	if strict.Timing.OccupiedToleranceMinutes != 0 || strict.Timing.UnoccupiedToleranceMinutes != 0 {
		t.Errorf("strict tolerances %+v", strict.Timing)
	}
	if strict.Timing.UnoccupiedDelayMinutes != 15 {
		t.Errorf("strict keeps the default delays, got %+v", strict.Timing)
	}

	lenient, err := GetProfile("lenient")
	if err != nil {
		t.Fatalf("GetProfile(lenient): %v", err)
	}
	if lenient.Timing.CheckLateTransitions {
		t.Error("lenient profile is early-only")
	}
	if lenient.Timing.OccupiedDelayMinutes != 3 || lenient.Timing.UnoccupiedDelayMinutes != 12 {
		t.Errorf("lenient delays %+v", lenient.Timing)
	}

	energy, err := GetProfile("energy_optimized")
	if err != nil {
		t.Fatalf("GetProfile(energy_optimized): %v", err)
	}
	if energy.Timing.OccupiedDelayMinutes != 7 || energy.Timing.UnoccupiedDelayMinutes != 10 {
		t.Errorf("energy_optimized delays %+v", energy.Timing)
	}
}

func TestGetProfileEmptyNameIsDefault(t *testing.T) {
	p, err := GetProfile("")
	if err != nil {
		t.Fatalf("GetProfile(\"\"): %v", err)
	}
	if p.Timing != DefaultProfile().Timing {
		t.Errorf("empty name must resolve to the default profile: %+v", p.Timing)
	}
}

func TestGetProfileUnknown(t *testing.T) {
	_, err := GetProfile("nope")
	if err == nil {
		t.Fatal("expected an error for an unknown profile")
	}
	if !strings.Contains(err.Error(), "default") || !strings.Contains(err.Error(), "strict") {
		t.Errorf("error should list the valid profiles: %v", err)
	}
}

func TestListProfiles(t *testing.T) {
	names := ListProfiles()
	if len(names) != 4 {
		t.Fatalf("ListProfiles = %v", names)
	}
	if names[0] != "default" {
		t.Errorf("default comes first: %v", names)
	}
	for _, name := range names {
		if ProfileDescription(name) == "" {
			t.Errorf("missing description for %s", name)
		}
	}
	if ProfileDescription("custom") != "Custom validation profile" {
		t.Errorf("unexpected fallback description %q", ProfileDescription("custom"))
	}
}
