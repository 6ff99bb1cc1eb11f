package analysis

import (
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// TrendBuckets is the fixed width of the hourly standby sparkline.
const TrendBuckets = 24

// HourlyZoneStandby produces a 24-element series where bucket i holds the
// percentage of hour [end-24h+i*1h, end-24h+(i+1)*1h) the zone spent in
// standby mode, using the same carry-forward semantics as the state-interval
// reducer. Hours with no known state report 0. The result always has exactly
// 24 entries in [0,100] regardless of the input.
func HourlyZoneStandby(zoneEvents []models.Event, end time.Time) []float64 {
	trend := make([]float64, TrendBuckets)
	windowStart := end.Add(-TrendBuckets * time.Hour)

	for i := 0; i < TrendBuckets; i++ {
		bucketStart := windowStart.Add(time.Duration(i) * time.Hour)
		bucketEnd := bucketStart.Add(time.Hour)

		events := windowEvents(zoneEvents, bucketStart, bucketEnd)

		// Carry the mode in effect at the bucket start, if any, so a quiet
		// hour inside a long standby stretch still reads 100%.
		if mode, ok := valueAt(zoneEvents, bucketStart); ok {
			if len(events) == 0 || events[0].Time.After(bucketStart) {
				carried := models.Event{Time: bucketStart, Value: float64(mode)}
				events = append([]models.Event{carried}, events...)
			}
		}

		durations := StateDurations(events, bucketStart, bucketEnd)
		standby := durations[int(models.ZoneStandby)]
		pct := standby.Seconds() / time.Hour.Seconds() * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		trend[i] = pct
	}

	return trend
}
