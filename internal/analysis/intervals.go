package analysis

import (
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// DefaultGapThreshold is the inter-event silence beyond which a device is
// considered to have stopped reporting rather than held its last state.
const DefaultGapThreshold = 5 * time.Minute

// StateDurations reduces a time-ordered event sequence for one device into
// the total duration spent in each value over the window [start, end).
// Events are expected to be filtered to the window and sorted by time. The
// last-known value persists until the next event or the window end. A device
// with no events produces an empty map; the stretch before the first event
// is unmeasured and is not attributed to any value.
func StateDurations(events []models.Event, start, end time.Time) map[int]time.Duration {
	durations := make(map[int]time.Duration)

	current := 0
	known := false
	last := start

	for _, ev := range events {
		if known {
			durations[current] += ev.Time.Sub(last)
		}
		current = ev.State()
		known = true
		last = ev.Time
	}

	if known {
		durations[current] += end.Sub(last)
	}

	return durations
}

// StateBreakdown is the gap-aware reduction of a device's events: every
// instant of the window is attributed to exactly one of the value buckets or
// to missing time, so the buckets always sum to the window length.
type StateBreakdown struct {
	ByValue map[int]time.Duration
	Missing time.Duration
}

// Total returns the sum of all buckets including missing time.
func (b StateBreakdown) Total() time.Duration {
	total := b.Missing
	for _, d := range b.ByValue {
		total += d
	}
	return total
}

// GapAwareDurations reduces events like StateDurations, but reassigns long
// silences to missing time. An interval longer than gapThreshold means the
// device likely stopped reporting, so that whole interval counts as missing
// instead of extending the preceding state. The stretch from the window
// start to the first event has no known state and always counts as missing.
// An empty event list yields an all-missing window.
func GapAwareDurations(events []models.Event, start, end time.Time, gapThreshold time.Duration) StateBreakdown {
	if gapThreshold <= 0 {
		gapThreshold = DefaultGapThreshold
	}

	breakdown := StateBreakdown{ByValue: make(map[int]time.Duration)}
	if !end.After(start) {
		return breakdown
	}
	if len(events) == 0 {
		breakdown.Missing = end.Sub(start)
		return breakdown
	}

	current := 0
	known := false
	last := start

	attribute := func(until time.Time) {
		span := until.Sub(last)
		if span <= 0 {
			return
		}
		switch {
		case !known:
			breakdown.Missing += span
		case span > gapThreshold:
			breakdown.Missing += span
		default:
			breakdown.ByValue[current] += span
		}
	}

	for _, ev := range events {
		attribute(ev.Time)
		current = ev.State()
		known = true
		last = ev.Time
	}
	attribute(end)

	return breakdown
}

// windowEvents filters a device's events to [start, end], preserving order.
// Boundary events are included.
func windowEvents(events []models.Event, start, end time.Time) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if !ev.Time.Before(start) && !ev.Time.After(end) {
			out = append(out, ev)
		}
	}
	return out
}

// valueAt returns the value in effect at t: the value of the last event at
// or before t. The second return is false when no such event exists.
func valueAt(events []models.Event, t time.Time) (int, bool) {
	value := 0
	found := false
	for _, ev := range events {
		if ev.Time.After(t) {
			break
		}
		value = ev.State()
		found = true
	}
	return value, found
}
