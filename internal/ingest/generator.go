package ingest

import (
	"fmt"
	"sort"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// GeneratorOptions controls synthetic dataset generation.
type GeneratorOptions struct {
	Sensors int
	Days    int
	End     time.Time
}

// maxGeneratedSensors bounds synthetic datasets to a sane size.
const maxGeneratedSensors = 100

// GenerateTestData produces a synthetic sensor/zone event log with mostly
// compliant control timing and occasional deliberate violations, paired by
// the same naming convention as real exports (building-floor-NN presence /
// BVnnn). Useful for scalability testing and demos.
func GenerateTestData(opts GeneratorOptions) []models.Event {
	sensors := opts.Sensors
	if sensors < 1 {
		sensors = 1
	}
	if sensors > maxGeneratedSensors {
		sensors = maxGeneratedSensors
	}
	days := opts.Days
	if days < 1 {
		days = 1
	}
	end := opts.End
	if end.IsZero() {
		end = time.Now()
	}
	base := end.Add(-time.Duration(days) * 24 * time.Hour)

	buildings := []string{"115", "116", "117", "118"}
	floors := []int{1, 2, 3, 4}

	var data []models.Event
	for i := 1; i <= sensors; i++ {
		sensorName := fmt.Sprintf("%s-%d-%02d presence", buildings[i%len(buildings)], floors[i%len(floors)], i)
		zoneName := fmt.Sprintf("BV%d", 200+i)

		sensorState := models.SensorUnoccupied
		zoneMode := models.ZoneStandby

		for current := base; current.Before(end); current = current.Add(5 * time.Minute) {
			data = append(data,
				models.Event{Name: sensorName, Time: current, Value: float64(sensorState)},
				models.Event{Name: zoneName, Time: current.Add(time.Minute), Value: float64(zoneMode)},
			)

			if current.Minute()%45 == 0 {
				sensorState = 1 - sensorState
				if current.Minute()%90 == 0 {
					// Deliberate violation: zone reacts immediately.
					zoneMode = 1 - zoneMode
				} else {
					delay := 17 * time.Minute
					if sensorState == models.SensorOccupied {
						delay = 7 * time.Minute
					}
					zoneMode = 1 - zoneMode
					data = append(data, models.Event{
						Name:  zoneName,
						Time:  current.Add(delay),
						Value: float64(zoneMode),
					})
				}
			}
		}
	}

	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Time.Before(data[j].Time)
	})
	return data
}
