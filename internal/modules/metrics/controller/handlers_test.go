package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"plant-monitor/internal/modules/metrics/repository"
	"plant-monitor/internal/modules/metrics/types"
	"plant-monitor/internal/sensor"
)

type mockRepo struct {
	series    []sensor.TimeseriesData
	seriesErr error
	gotKey    sensor.Key
	gotAfter  *time.Time

	inserted  []sensor.MetricInsert
	insertErr error

	metric    types.Metric
	metricErr error
	gotID     int64
	gotTime   time.Time

	deleted   bool
	deleteErr error
}

func (m *mockRepo) GetSeries(key sensor.Key, after *time.Time) ([]sensor.TimeseriesData, error) {
	m.gotKey, m.gotAfter = key, after
	return m.series, m.seriesErr
}

func (m *mockRepo) InsertMetric(in sensor.MetricInsert) (types.Metric, error) {
	m.inserted = append(m.inserted, in)
	if m.insertErr != nil {
		return types.Metric{}, m.insertErr
	}
	return types.Metric{ID: 7, RecordedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), Temperature: in.Temperature}, nil
}

func (m *mockRepo) GetMetric(id int64) (types.Metric, error) {
	m.gotID = id
	return m.metric, m.metricErr
}

func (m *mockRepo) GetMetricByTime(t time.Time) (types.Metric, error) {
	m.gotTime = t
	return m.metric, m.metricErr
}

func (m *mockRepo) DeleteMetric(id int64) (bool, error) {
	m.gotID = id
	return m.deleted, m.deleteErr
}

func newMux(repo repository.MetricsRepository) *http.ServeMux {
	mux := http.NewServeMux()
	NewMetricsController(repo).RegisterRoutes(mux)
	return mux
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func Test_handleSeries(t *testing.T) {
	t.Run("initial series uses the sensor's response field", func(t *testing.T) {
		repo := &mockRepo{series: []sensor.TimeseriesData{{Time: "2024-05-01T10:00:00Z", Data: 512}}}
		rec := serve(newMux(repo), httptest.NewRequest(http.MethodGet, "/db/data/soilmoisture", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		if repo.gotKey != sensor.SoilMoisture || repo.gotAfter != nil {
			t.Errorf("repo called with key=%q after=%v", repo.gotKey, repo.gotAfter)
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if string(body["temperature"]) != "null" {
			t.Errorf("temperature = %s; want null", body["temperature"])
		}
		if !strings.Contains(string(body["soil_moisture"]), `"data":512`) {
			t.Errorf("soil_moisture = %s", body["soil_moisture"])
		}
	})

	t.Run("empty series encodes as []", func(t *testing.T) {
		rec := serve(newMux(&mockRepo{}), httptest.NewRequest(http.MethodGet, "/db/data/light", nil))
		if !strings.Contains(rec.Body.String(), `"light":[]`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("update passes the parsed time", func(t *testing.T) {
		repo := &mockRepo{}
		rec := serve(newMux(repo), httptest.NewRequest(http.MethodGet, "/db/data/humidity/2024-05-01T12:00:00+02:00", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
		}
		if repo.gotAfter == nil || !repo.gotAfter.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("after = %v", repo.gotAfter)
		}
	})

	t.Run("bad time is 404", func(t *testing.T) {
		repo := &mockRepo{}
		rec := serve(newMux(repo), httptest.NewRequest(http.MethodGet, "/db/data/temperature/yesterday", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
		if repo.gotKey != "" {
			t.Error("repository should not be queried")
		}
	})

	t.Run("unknown sensor is 404", func(t *testing.T) {
		for _, path := range []string{"/db/data/pressure", "/db/data/soil_moisture", "/db/data/soilMoisture"} {
			rec := serve(newMux(&mockRepo{}), httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: status = %d; want 404", path, rec.Code)
			}
		}
	})

	t.Run("repository failure is 500", func(t *testing.T) {
		rec := serve(newMux(&mockRepo{seriesErr: errors.New("disk")}), httptest.NewRequest(http.MethodGet, "/db/data/light", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
	})
}

func Test_handleCreateMetric(t *testing.T) {
	post := func(ct, body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/metric", strings.NewReader(body))
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		return req
	}
	full := `{"temperature":21.5,"humidity":40,"light":300,"soil_moisture":512}`

	t.Run("created", func(t *testing.T) {
		repo := &mockRepo{}
		rec := serve(newMux(repo), post("application/json", full))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d; body %s", rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != "/metric/7" {
			t.Errorf("Location = %q", loc)
		}
		if len(repo.inserted) != 1 || *repo.inserted[0].SoilMoisture != 512 {
			t.Errorf("inserted = %+v", repo.inserted)
		}
		var got types.Metric
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.ID != 7 {
			t.Errorf("id = %d", got.ID)
		}
	})

	tests := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"not json", "text/plain", full, http.StatusUnsupportedMediaType},
		{"unknown field", "application/json", `{"temperature":1,"humidity":1,"light":1,"soil_moisture":1,"pressure":1}`, http.StatusUnprocessableEntity},
		{"missing field", "application/json", `{"temperature":1,"humidity":1,"light":1}`, http.StatusUnprocessableEntity},
		{"malformed", "application/json", `{"temperature":`, http.StatusUnprocessableEntity},
		{"wrong type", "application/json", `{"temperature":1,"humidity":1,"light":"bright","soil_moisture":1}`, http.StatusUnprocessableEntity},
		{"humidity out of range", "application/json", `{"temperature":1,"humidity":150,"light":1,"soil_moisture":1}`, http.StatusUnprocessableEntity},
		{"negative light", "application/json", `{"temperature":1,"humidity":1,"light":-5,"soil_moisture":1}`, http.StatusUnprocessableEntity},
		{"trailing brace", "application/json", `{"temperature":1,"humidity":1,"light":1,"soil_moisture":1}}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{}
			rec := serve(newMux(repo), post(tt.ct, tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if len(repo.inserted) != 0 {
				t.Error("repository should not be written")
			}
		})
	}

	t.Run("repository failure", func(t *testing.T) {
		rec := serve(newMux(&mockRepo{insertErr: errors.New("locked")}), post("application/json", full))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
	})
}

func Test_handleGetMetric(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo := &mockRepo{metric: types.Metric{ID: 3}}
		rec := serve(newMux(repo), httptest.NewRequest(http.MethodGet, "/metric/3", nil))
		if rec.Code != http.StatusOK || repo.gotID != 3 {
			t.Errorf("status = %d, id = %d", rec.Code, repo.gotID)
		}
		if !strings.Contains(rec.Body.String(), `"temperature":null`) {
			t.Errorf("body = %s; want null readings", rec.Body.String())
		}
	})

	for _, tt := range []struct {
		name string
		path string
		repo *mockRepo
		want int
	}{
		{"not found", "/metric/3", &mockRepo{metricErr: repository.ErrNotFound}, http.StatusNotFound},
		{"non-integer id", "/metric/abc", &mockRepo{}, http.StatusNotFound},
		{"repository failure", "/metric/3", &mockRepo{metricErr: errors.New("boom")}, http.StatusInternalServerError},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newMux(tt.repo), httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}

func Test_handleDeleteMetric(t *testing.T) {
	for _, tt := range []struct {
		name string
		path string
		repo *mockRepo
		want int
	}{
		{"deleted", "/metric/5", &mockRepo{deleted: true}, http.StatusNoContent},
		{"nothing deleted", "/metric/5", &mockRepo{}, http.StatusNotFound},
		{"bad id", "/metric/x", &mockRepo{deleted: true}, http.StatusNotFound},
		{"repository failure", "/metric/5", &mockRepo{deleteErr: errors.New("boom")}, http.StatusInternalServerError},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newMux(tt.repo), httptest.NewRequest(http.MethodDelete, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d; want %d", rec.Code, tt.want)
			}
		})
	}
}

func Test_handleGetMetricByTime(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo := &mockRepo{metric: types.Metric{ID: 9}}
		rec := serve(newMux(repo), httptest.NewRequest(http.MethodGet, "/metric/time/2024-05-01T10:00:00Z", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !repo.gotTime.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("time = %v", repo.gotTime)
		}
	})

	t.Run("bad time", func(t *testing.T) {
		rec := serve(newMux(&mockRepo{}), httptest.NewRequest(http.MethodGet, "/metric/time/noon", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})

	t.Run("no row", func(t *testing.T) {
		rec := serve(newMux(&mockRepo{metricErr: repository.ErrNotFound}), httptest.NewRequest(http.MethodGet, "/metric/time/2024-05-01T10:00:00Z", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d; want 404", rec.Code)
		}
	})
}
