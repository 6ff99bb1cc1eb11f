package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/savegress/odcv/pkg/models"
)

// timestampLayouts are tried in order when parsing event timestamps. The
// exports this service ingests mix ISO-8601 with space-separated local
// timestamps that may carry fractional seconds and a trailing offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.000 -07:00",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses one timestamp string from a CSV export.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(strings.Trim(s, `"`))
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// Result reports what a load produced.
type Result struct {
	Events  []models.Event
	Skipped int
}

// LoadCSV reads `time,name,value` rows from r. Header order is taken from
// the first row; quotes are stripped and values coerced to float. Rows with
// malformed timestamps or values are skipped and counted rather than
// aborting the load. The returned events are sorted by time.
func LoadCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.Trim(name, `"`)))] = i
	}
	for _, required := range []string{"time", "name", "value"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv missing required column %q", required)
		}
	}

	result := &Result{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(row) <= cols["time"] || len(row) <= cols["name"] || len(row) <= cols["value"] {
			result.Skipped++
			continue
		}

		ts, err := ParseTimestamp(row[cols["time"]])
		if err != nil {
			result.Skipped++
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(strings.Trim(row[cols["value"]], `"`)), 64)
		if err != nil {
			result.Skipped++
			continue
		}

		result.Events = append(result.Events, models.Event{
			Name:  strings.TrimSpace(strings.Trim(row[cols["name"]], `"`)),
			Time:  ts,
			Value: value,
		})
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Time.Before(result.Events[j].Time)
	})
	return result, nil
}

// LoadFile loads a CSV event log from disk.
func LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}
