package repository

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"plant-monitor/internal/modules/metrics/types"
	"plant-monitor/internal/sensor"
)

//go:embed sql/get-series.sql
var getSeriesSQL string

//go:embed sql/insert-metric.sql
var insertMetricSQL string

//go:embed sql/get-metric.sql
var getMetricSQL string

//go:embed sql/get-metric-by-time.sql
var getMetricByTimeSQL string

//go:embed sql/delete-metric.sql
var deleteMetricSQL string

var ErrNotFound = errors.New("metric not found")

type MetricsRepository interface {
	// GetSeries returns the non-null readings of one sensor in ascending
	// time order, restricted to samples strictly after `after` when set.
	GetSeries(key sensor.Key, after *time.Time) ([]sensor.TimeseriesData, error)
	InsertMetric(m sensor.MetricInsert) (types.Metric, error)
	GetMetric(id int64) (types.Metric, error)
	GetMetricByTime(t time.Time) (types.Metric, error)
	DeleteMetric(id int64) (bool, error)
}

type repositoryImpl struct {
	db          *sql.DB
	seriesQuery map[sensor.Key]string
}

func NewRepository(db *sql.DB) MetricsRepository {
	queries := make(map[sensor.Key]string, len(sensor.Keys))
	for _, k := range sensor.Keys {
		// column names come from the fixed key set, never from input
		queries[k] = strings.ReplaceAll(getSeriesSQL, "{{column}}", k.Field())
	}
	return &repositoryImpl{db: db, seriesQuery: queries}
}

func (r *repositoryImpl) GetSeries(key sensor.Key, after *time.Time) ([]sensor.TimeseriesData, error) {
	query, ok := r.seriesQuery[key]
	if !ok {
		return nil, fmt.Errorf("unknown sensor %q", key)
	}
	var afterArg any
	if after != nil {
		afterArg = formatTime(*after)
	}
	rows, err := r.db.Query(query, afterArg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close series rows", "sensor", key, "error", err)
		}
	}()

	out := []sensor.TimeseriesData{}
	for rows.Next() {
		var ts string
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, err
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, sensor.TimeseriesData{Time: t.Format(time.RFC3339Nano), Data: value})
	}
	return out, rows.Err()
}

func (r *repositoryImpl) InsertMetric(m sensor.MetricInsert) (types.Metric, error) {
	var recordedAt any
	if m.RecordedAt != nil {
		recordedAt = formatTime(*m.RecordedAt)
	}
	row := r.db.QueryRow(insertMetricSQL,
		recordedAt,
		nullable(m.Temperature),
		nullable(m.Humidity),
		nullable(m.Light),
		nullable(m.SoilMoisture),
	)
	metric, err := scanMetric(row)
	if err != nil {
		return types.Metric{}, fmt.Errorf("insert metric: %w", err)
	}
	return metric, nil
}

func (r *repositoryImpl) GetMetric(id int64) (types.Metric, error) {
	return r.getOne(getMetricSQL, id)
}

func (r *repositoryImpl) GetMetricByTime(t time.Time) (types.Metric, error) {
	return r.getOne(getMetricByTimeSQL, formatTime(t))
}

func (r *repositoryImpl) getOne(query string, arg any) (types.Metric, error) {
	m, err := scanMetric(r.db.QueryRow(query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Metric{}, ErrNotFound
	}
	return m, err
}

func (r *repositoryImpl) DeleteMetric(id int64) (bool, error) {
	res, err := r.db.Exec(deleteMetricSQL, id)
	if err != nil {
		return false, fmt.Errorf("delete metric %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanMetric(row *sql.Row) (types.Metric, error) {
	var (
		m            types.Metric
		ts           string
		temperature  sql.NullFloat64
		humidity     sql.NullFloat64
		light        sql.NullInt64
		soilMoisture sql.NullInt64
	)
	if err := row.Scan(&m.ID, &ts, &temperature, &humidity, &light, &soilMoisture); err != nil {
		return types.Metric{}, err
	}
	t, err := parseTime(ts)
	if err != nil {
		return types.Metric{}, err
	}
	m.RecordedAt = t
	if temperature.Valid {
		m.Temperature = &temperature.Float64
	}
	if humidity.Valid {
		m.Humidity = &humidity.Float64
	}
	if light.Valid {
		m.Light = &light.Int64
	}
	if soilMoisture.Valid {
		m.SoilMoisture = &soilMoisture.Int64
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(types.TimeLayout)
}

func parseTime(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recorded_at %q: %w", ts, err)
	}
	return t.UTC(), nil
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
