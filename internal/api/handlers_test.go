package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/savegress/odcv/internal/analysis"
	"github.com/savegress/odcv/internal/config"
	"github.com/savegress/odcv/internal/storage"
	"github.com/savegress/odcv/pkg/models"
)

const sampleCSV = `time,name,value
2025-03-10 10:00:00,101-1-01 presence,1
2025-03-10 11:00:00,101-1-01 presence,0
2025-03-10 10:00:00,BV201,0
2025-03-10 11:08:00,BV201,1
`

func newTestServer() *Server {
	cfg := config.LoadFromEnv()
	return NewServer(cfg, storage.NewMemoryStore(), analysis.NewEngine(cfg.Analysis))
}

func do(t *testing.T, s *Server, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func uploadSample(t *testing.T, s *Server) models.Dataset {
	t.Helper()
	rec := do(t, s, "POST", "/api/v1/datasets?name=sample", "text/csv", sampleCSV)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Dataset models.Dataset `json:"dataset"`
		Skipped int            `json:"rows_skipped"`
	}
	decode(t, rec, &resp)
	return resp.Dataset
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, "GET", "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	decode(t, rec, &body)
	if body["status"] != "healthy" || body["service"] != "odcv" {
		t.Errorf("body = %v", body)
	}
}

func TestUploadDataset(t *testing.T) {
	s := newTestServer()
	ds := uploadSample(t, s)

	if ds.Name != "sample" {
		t.Errorf("name = %q", ds.Name)
	}
	if ds.RecordCount != 4 || ds.SensorCount != 1 || ds.ZoneCount != 1 {
		t.Errorf("counts = %d/%d/%d", ds.RecordCount, ds.SensorCount, ds.ZoneCount)
	}
	if ds.ID == "" {
		t.Error("dataset must get an id")
	}

	rec := do(t, s, "GET", "/api/v1/datasets", "", "")
	var list []models.Dataset
	decode(t, rec, &list)
	if len(list) != 1 || list[0].ID != ds.ID {
		t.Errorf("list = %+v", list)
	}
}

func TestUploadDatasetRejectsGarbage(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, "POST", "/api/v1/datasets", "text/csv", "time,name,value\ngarbage,BV1,zzz\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("all-malformed upload status = %d", rec.Code)
	}

	rec = do(t, s, "POST", "/api/v1/datasets", "text/csv", "wrong,columns\n1,2\n")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad header status = %d", rec.Code)
	}
}

func TestGetAndDeleteDataset(t *testing.T) {
	s := newTestServer()
	ds := uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/datasets/"+ds.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = do(t, s, "DELETE", "/api/v1/datasets/"+ds.ID, "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = do(t, s, "GET", "/api/v1/datasets/"+ds.ID, "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestDashboardMetricsWithoutDataset(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, "GET", "/api/v1/dashboard/metrics", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with no dataset", rec.Code)
	}
}

func TestDashboardMetrics(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/dashboard/metrics?period=24h", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Period  string                  `json:"period"`
		Pairs   int                     `json:"pairs"`
		Metrics models.DashboardMetrics `json:"metrics"`
	}
	decode(t, rec, &resp)
	if resp.Period != "24h" || resp.Pairs != 1 {
		t.Errorf("period/pairs = %q/%d", resp.Period, resp.Pairs)
	}
}

func TestListSensors(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sensors []map[string]string
	decode(t, rec, &sensors)
	if len(sensors) != 1 {
		t.Fatalf("sensors = %+v", sensors)
	}
	if sensors[0]["sensor_id"] != "101-1-01" || sensors[0]["zone"] != "BV201" {
		t.Errorf("sensors[0] = %v", sensors[0])
	}
}

func TestSensorMetrics(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/metrics?period=24h&profile=default", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Sensors []models.SensorMetrics `json:"sensors"`
	}
	decode(t, rec, &resp)
	if len(resp.Sensors) != 1 || resp.Sensors[0].SensorID != "101-1-01" {
		t.Errorf("sensors = %+v", resp.Sensors)
	}
}

func TestSensorMetricsUnknownProfile(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/metrics?profile=bogus", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSensorTimeline(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/101-1-01/timeline", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var data models.TimelineData
	decode(t, rec, &data)
	if data.Sensor != "101-1-01 presence" || data.Zone != "BV201" {
		t.Errorf("pair = %q/%q", data.Sensor, data.Zone)
	}
	if data.Summary.TotalEvents != 4 {
		t.Errorf("TotalEvents = %d, want 4", data.Summary.TotalEvents)
	}
	// BV201 drops to standby 8 minutes after the sensor clears.
	if data.Summary.Violations != 1 || data.Violations[0].Type != models.ViolationEarlyStandby {
		t.Errorf("violations = %+v", data.Violations)
	}
}

func TestSensorTimelineUnknownSensor(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/nope/timeline", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSensorTimelineBadParams(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/101-1-01/timeline?start_time=yesterday", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start_time status = %d", rec.Code)
	}

	rec = do(t, s, "GET", "/api/v1/sensors/101-1-01/timeline?duration_hours=0", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad duration_hours status = %d", rec.Code)
	}
}

func TestSensorValidations(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors/101-1-01/validations", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Validators []string           `json:"validators"`
		Violations []models.Violation `json:"violations"`
	}
	decode(t, rec, &resp)
	if len(resp.Validators) != 3 {
		t.Errorf("validators = %v", resp.Validators)
	}
	found := false
	for _, v := range resp.Violations {
		if v.Type == models.ViolationEarlyStandby {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an early_standby violation, got %+v", resp.Violations)
	}
}

func TestConfiguredPairsOverrideAutoPairing(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.Analysis.Pairs = map[string]string{"101-1-01 presence": "BV999"}
	s := NewServer(cfg, storage.NewMemoryStore(), analysis.NewEngine(cfg.Analysis))
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/sensors", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sensors []map[string]string
	decode(t, rec, &sensors)
	if len(sensors) != 1 || sensors[0]["zone"] != "BV999" {
		t.Errorf("configured mapping must override name-based pairing: %v", sensors)
	}

	rec = do(t, s, "GET", "/api/v1/pairs", "", "")
	var resp struct {
		Pairs map[string]string `json:"pairs"`
	}
	decode(t, rec, &resp)
	if resp.Pairs["101-1-01 presence"] != "BV999" {
		t.Errorf("pairs = %v", resp.Pairs)
	}
}

func TestListPairs(t *testing.T) {
	s := newTestServer()
	uploadSample(t, s)

	rec := do(t, s, "GET", "/api/v1/pairs", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Pairs   map[string]string `json:"pairs"`
		Devices []string          `json:"devices"`
	}
	decode(t, rec, &resp)
	if resp.Pairs["101-1-01 presence"] != "BV201" {
		t.Errorf("pairs = %v", resp.Pairs)
	}
	if len(resp.Devices) != 2 {
		t.Errorf("devices = %v", resp.Devices)
	}
}

func TestListProfiles(t *testing.T) {
	s := newTestServer()
	rec := do(t, s, "GET", "/api/v1/profiles", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var profiles []map[string]interface{}
	decode(t, rec, &profiles)
	if len(profiles) != 4 {
		t.Fatalf("profiles = %d, want 4", len(profiles))
	}
	if profiles[0]["name"] != "default" || profiles[0]["description"] == "" {
		t.Errorf("profiles[0] = %v", profiles[0])
	}
}

func TestGenerateTestDataEndpoint(t *testing.T) {
	s := newTestServer()

	rec := do(t, s, "POST", "/api/v1/testdata", "application/json", `{"sensors":2,"days":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var ds models.Dataset
	decode(t, rec, &ds)
	if ds.SensorCount != 2 || ds.ZoneCount != 2 {
		t.Errorf("counts = %d/%d, want 2/2", ds.SensorCount, ds.ZoneCount)
	}

	// The generated dataset becomes the active one.
	rec = do(t, s, "GET", "/api/v1/dashboard/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("dashboard after testdata status = %d", rec.Code)
	}
}

func TestDatasetQueryParamSelection(t *testing.T) {
	s := newTestServer()
	first := uploadSample(t, s)

	// A second upload becomes active; the first stays reachable by id.
	do(t, s, "POST", "/api/v1/testdata", "application/json", `{"sensors":1,"days":1}`)

	rec := do(t, s, "GET", "/api/v1/sensors?dataset="+first.ID, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sensors []map[string]string
	decode(t, rec, &sensors)
	if len(sensors) != 1 || sensors[0]["zone"] != "BV201" {
		t.Errorf("sensors = %v", sensors)
	}

	rec = do(t, s, "GET", "/api/v1/sensors?dataset=nope", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown dataset status = %d", rec.Code)
	}
}
