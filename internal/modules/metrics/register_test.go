package metrics

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plant-monitor/internal/migrate"
	"plant-monitor/internal/mqtt"
	"plant-monitor/internal/sensor"

	_ "github.com/mattn/go-sqlite3"
)

type fakeSubscriber struct {
	handler mqtt.MetricHandler
}

func (f *fakeSubscriber) SetMessageHandler(h mqtt.MetricHandler) { f.handler = h }

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if _, err := migrate.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRegisterFeature_IngestedMetricsAreServed(t *testing.T) {
	db := setupDB(t)
	mux := http.NewServeMux()
	sub := &fakeSubscriber{}
	RegisterFeature(mux, db, sub, nil)

	if sub.handler == nil {
		t.Fatal("MQTT handler not registered")
	}
	temps := []float64{20.5, 21, 21.25}
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, v := range temps {
		at := base.Add(time.Duration(i) * time.Minute)
		if err := sub.handler("fern", sensor.MetricInsert{RecordedAt: &at, Temperature: &v}); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/db/data/temperature/2024-05-01T10:00:00Z", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var body sensor.DataResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := body.Series(sensor.Temperature)
	if len(got) != 2 || got[0].Data != 21 || got[1].Time != "2024-05-01T10:02:00Z" {
		t.Errorf("series = %+v", got)
	}
}

func TestRegisterFeature_WithoutSubscriber(t *testing.T) {
	mux := http.NewServeMux()
	RegisterFeature(mux, setupDB(t), nil, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/db/data/light", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
