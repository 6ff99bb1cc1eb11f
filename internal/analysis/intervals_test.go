package analysis

import (
	"testing"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

var testBase = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

func ev(name string, offset time.Duration, value float64) models.Event {
	return models.Event{Name: name, Time: testBase.Add(offset), Value: value}
}

func TestStateDurations(t *testing.T) {
	events := []models.Event{
		ev("s", 0, 1),
		ev("s", 30*time.Minute, 0),
	}
	durations := StateDurations(events, testBase, testBase.Add(time.Hour))

	if durations[1] != 30*time.Minute {
		t.Errorf("expected 30m occupied, got %v", durations[1])
	}
	if durations[0] != 30*time.Minute {
		t.Errorf("expected 30m unoccupied, got %v", durations[0])
	}
}

func TestStateDurationsEmpty(t *testing.T) {
	durations := StateDurations(nil, testBase, testBase.Add(time.Hour))
	if len(durations) != 0 {
		t.Errorf("expected empty map, got %v", durations)
	}
}

func TestStateDurationsUnmeasuredLeadIn(t *testing.T) {
	// The stretch before the first event has no known state.
	events := []models.Event{ev("s", 20*time.Minute, 1)}
	durations := StateDurations(events, testBase, testBase.Add(time.Hour))

	if durations[1] != 40*time.Minute {
		t.Errorf("expected 40m, got %v", durations[1])
	}
	if durations[0] != 0 {
		t.Errorf("expected no unoccupied time, got %v", durations[0])
	}
}

func TestGapAwareDurationsConservation(t *testing.T) {
	events := []models.Event{
		ev("s", 5*time.Minute, 1),
		ev("s", 8*time.Minute, 0),
		ev("s", 30*time.Minute, 1),
	}
	window := time.Hour
	b := GapAwareDurations(events, testBase, testBase.Add(window), 5*time.Minute)

	if b.Total() != window {
		t.Fatalf("buckets must cover the window: got %v, want %v", b.Total(), window)
	}
	// Lead-in is unknown: missing. 8m->30m is a 22m silence: missing.
	// 30m->60m is a 30m silence: missing.
	wantMissing := 5*time.Minute + 22*time.Minute + 30*time.Minute
	if b.Missing != wantMissing {
		t.Errorf("missing = %v, want %v", b.Missing, wantMissing)
	}
	if b.ByValue[1] != 3*time.Minute {
		t.Errorf("occupied = %v, want 3m", b.ByValue[1])
	}
}

func TestGapAwareDurationsEmpty(t *testing.T) {
	b := GapAwareDurations(nil, testBase, testBase.Add(time.Hour), 5*time.Minute)
	if b.Missing != time.Hour {
		t.Errorf("empty events should be all missing, got %v", b.Missing)
	}
	if len(b.ByValue) != 0 {
		t.Errorf("expected no value buckets, got %v", b.ByValue)
	}
}

func TestGapAwareDurationsBoundaryInterval(t *testing.T) {
	// An interval of exactly the threshold still extends the state.
	events := []models.Event{
		ev("s", 0, 1),
		ev("s", 5*time.Minute, 1),
	}
	b := GapAwareDurations(events, testBase, testBase.Add(5*time.Minute), 5*time.Minute)

	if b.ByValue[1] != 5*time.Minute {
		t.Errorf("occupied = %v, want 5m", b.ByValue[1])
	}
	if b.Missing != 0 {
		t.Errorf("missing = %v, want 0", b.Missing)
	}
}

func TestGapAwareDurationsInvertedWindow(t *testing.T) {
	b := GapAwareDurations(nil, testBase, testBase.Add(-time.Hour), 5*time.Minute)
	if b.Total() != 0 {
		t.Errorf("inverted window should be empty, got %v", b.Total())
	}
}

func TestStateDurationsWindowMonotonicity(t *testing.T) {
	events := []models.Event{
		ev("s", 0, 1),
		ev("s", 20*time.Minute, 0),
		ev("s", 40*time.Minute, 1),
	}

	full := StateDurations(events, testBase, testBase.Add(time.Hour))
	narrowEvents := windowEvents(events, testBase, testBase.Add(30*time.Minute))
	narrow := StateDurations(narrowEvents, testBase, testBase.Add(30*time.Minute))

	for value, d := range narrow {
		if d > full[value] {
			t.Errorf("shrinking the window grew value %d: %v > %v", value, d, full[value])
		}
	}
}

func TestWindowEventsInclusiveBoundaries(t *testing.T) {
	events := []models.Event{
		ev("s", -time.Minute, 1),
		ev("s", 0, 1),
		ev("s", 10*time.Minute, 0),
		ev("s", 11*time.Minute, 1),
	}
	got := windowEvents(events, testBase, testBase.Add(10*time.Minute))
	if len(got) != 2 {
		t.Fatalf("expected 2 events in window, got %d", len(got))
	}
	if !got[0].Time.Equal(testBase) || !got[1].Time.Equal(testBase.Add(10*time.Minute)) {
		t.Errorf("boundary events must be included: %v", got)
	}
}

func TestValueAt(t *testing.T) {
	events := []models.Event{
		ev("s", 0, 1),
		ev("s", 10*time.Minute, 0),
	}

	if v, ok := valueAt(events, testBase.Add(5*time.Minute)); !ok || v != 1 {
		t.Errorf("valueAt(+5m) = %d, %v; want 1, true", v, ok)
	}
	if v, ok := valueAt(events, testBase.Add(10*time.Minute)); !ok || v != 0 {
		t.Errorf("valueAt(+10m) = %d, %v; want 0, true", v, ok)
	}
	if _, ok := valueAt(events, testBase.Add(-time.Minute)); ok {
		t.Error("expected no value before the first event")
	}
}
