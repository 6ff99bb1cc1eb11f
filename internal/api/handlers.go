package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/internal/ingest"
	"github.com/savegress/odcv/internal/validation"
	"github.com/savegress/odcv/pkg/models"
)

// Health check
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "odcv",
		"time":    time.Now().UTC(),
	})
}

// Dataset handlers

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.store.ListDatasets(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if datasets == nil {
		datasets = []*models.Dataset{}
	}
	respondJSON(w, http.StatusOK, datasets)
}

func (s *Server) uploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Ingest.MaxUploadBytes)

	var (
		src  io.Reader
		name string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			respondError(w, http.StatusBadRequest, "Missing file upload field 'file'")
			return
		}
		defer file.Close()
		src = file
		name = header.Filename
	} else {
		src = r.Body
		name = r.URL.Query().Get("name")
	}
	if name == "" {
		name = "upload-" + time.Now().UTC().Format("20060102-150405")
	}

	result, err := ingest.LoadCSV(src)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(result.Events) == 0 {
		respondError(w, http.StatusBadRequest, "No parseable rows in upload")
		return
	}

	ds := describeDataset(name, result.Events)
	if err := s.store.SaveDataset(r.Context(), ds, result.Events); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"dataset":      ds,
		"rows_skipped": result.Skipped,
	})
}

func (s *Server) getDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, err := s.store.GetDataset(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, ds)
}

func (s *Server) deleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteDataset(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handlers

func (s *Server) getDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	period := s.period(r)
	pairs := s.engine.Pairs(events)
	metrics := s.engine.DashboardMetrics(events, pairs, period)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"pairs":   len(pairs),
		"metrics": metrics,
	})
}

// Sensor handlers

func (s *Server) listSensors(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	pairs := s.engine.Pairs(events)
	sensors := make([]map[string]string, 0, len(pairs))
	for _, pair := range pairs {
		sensors = append(sensors, map[string]string{
			"sensor_id": analysis.SensorShortID(pair.Sensor),
			"sensor":    pair.Sensor,
			"zone":      pair.Zone,
		})
	}
	respondJSON(w, http.StatusOK, sensors)
}

func (s *Server) getSensorMetrics(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	profile, err := s.profile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	period := s.period(r)
	pairs := s.engine.Pairs(events)
	metrics := s.engine.SensorMetrics(events, pairs, period, profile.Timing)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period":  period,
		"sensors": metrics,
	})
}

func (s *Server) getSensorTimeline(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	pair, found := findPair(s.engine.Pairs(events), chi.URLParam(r, "id"))
	if !found {
		respondError(w, http.StatusNotFound, "Sensor not found")
		return
	}

	profile, err := s.profile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var start *time.Time
	if raw := r.URL.Query().Get("start_time"); raw != "" {
		t, err := ingest.ParseTimestamp(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid start_time: %v", err))
			return
		}
		start = &t
	}

	durationHours := 0
	if raw := r.URL.Query().Get("duration_hours"); raw != "" {
		h, err := strconv.Atoi(raw)
		if err != nil || h < 1 {
			respondError(w, http.StatusBadRequest, "Invalid duration_hours")
			return
		}
		durationHours = h
	}

	timeline, err := s.engine.Timeline(events, pair, start, durationHours, profile.Timing)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, timeline)
}

func (s *Server) getSensorValidations(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	pair, found := findPair(s.engine.Pairs(events), chi.URLParam(r, "id"))
	if !found {
		respondError(w, http.StatusNotFound, "Sensor not found")
		return
	}

	profile, err := s.profile(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	period := s.period(r)
	filtered := analysis.FilterPeriod(events, period)
	sensorData := eventsByName(filtered, pair.Sensor)
	zoneData := eventsByName(filtered, pair.Zone)
	if len(sensorData) == 0 || len(zoneData) == 0 {
		respondError(w, http.StatusNotFound, "No data found for sensor-zone pair")
		return
	}

	manager := validation.NewManager(&profile)
	violations := manager.Run(analysis.MergeStreams(sensorData, zoneData))
	if violations == nil {
		violations = []models.Violation{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sensor":     pair.Sensor,
		"zone":       pair.Zone,
		"period":     period,
		"validators": manager.ActiveValidators(),
		"violations": violations,
		"stats":      manager.Stats(),
	})
}

// Pairing and profile handlers

func (s *Server) listPairs(w http.ResponseWriter, r *http.Request) {
	events, ok := s.datasetEvents(w, r)
	if !ok {
		return
	}

	pairs := s.engine.Pairs(events)
	mapping := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		mapping[pair.Sensor] = pair.Zone
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"pairs":   mapping,
		"devices": analysis.DeviceNames(events),
	})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	names := validation.ListProfiles()
	profiles := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		p, err := validation.GetProfile(name)
		if err != nil {
			continue
		}
		profiles = append(profiles, map[string]interface{}{
			"name":        name,
			"description": validation.ProfileDescription(name),
			"config":      p,
		})
	}
	respondJSON(w, http.StatusOK, profiles)
}

// Synthetic data handlers

func (s *Server) generateTestData(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sensors int `json:"sensors"`
		Days    int `json:"days"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	if req.Sensors == 0 {
		req.Sensors = 5
	}
	if req.Days == 0 {
		req.Days = 1
	}

	events := ingest.GenerateTestData(ingest.GeneratorOptions{
		Sensors: req.Sensors,
		Days:    req.Days,
	})
	name := fmt.Sprintf("testdata-%ds-%dd", req.Sensors, req.Days)
	ds := describeDataset(name, events)
	if err := s.store.SaveDataset(r.Context(), ds, events); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, ds)
}

// Helper functions

// datasetEvents resolves the dataset for a request (the dataset query param,
// else the most recently saved one) and loads its events. On failure it
// writes the error response and returns ok=false.
func (s *Server) datasetEvents(w http.ResponseWriter, r *http.Request) ([]models.Event, bool) {
	id := r.URL.Query().Get("dataset")
	if id == "" {
		ds, err := s.store.ActiveDataset(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return nil, false
		}
		if ds == nil {
			respondError(w, http.StatusNotFound, "No dataset loaded")
			return nil, false
		}
		id = ds.ID
	}

	events, err := s.store.Events(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return events, true
}

func (s *Server) period(r *http.Request) string {
	if period := r.URL.Query().Get("period"); period != "" {
		return period
	}
	return s.cfg.Analysis.DefaultPeriod
}

func (s *Server) profile(r *http.Request) (validation.Profile, error) {
	name := r.URL.Query().Get("profile")
	if name == "" {
		name = s.cfg.Analysis.DefaultProfile
	}
	return validation.GetProfile(name)
}

func describeDataset(name string, events []models.Event) *models.Dataset {
	ds := &models.Dataset{
		ID:          uuid.New().String(),
		Name:        name,
		RecordCount: len(events),
		CreatedAt:   time.Now().UTC(),
	}
	for _, device := range analysis.DeviceNames(events) {
		switch {
		case analysis.IsSensorName(device):
			ds.SensorCount++
		case analysis.IsZoneName(device):
			ds.ZoneCount++
		}
	}
	if len(events) > 0 {
		ds.StartTime, ds.EndTime = events[0].Time, events[0].Time
		for _, ev := range events {
			if ev.Time.Before(ds.StartTime) {
				ds.StartTime = ev.Time
			}
			if ev.Time.After(ds.EndTime) {
				ds.EndTime = ev.Time
			}
		}
	}
	return ds
}

// findPair matches a path id against either the short sensor id or the full
// sensor name.
func findPair(pairs []models.SensorZonePair, id string) (models.SensorZonePair, bool) {
	for _, pair := range pairs {
		if pair.Sensor == id || analysis.SensorShortID(pair.Sensor) == id {
			return pair, true
		}
	}
	return models.SensorZonePair{}, false
}

func eventsByName(events []models.Event, name string) []models.Event {
	var out []models.Event
	for _, ev := range events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
