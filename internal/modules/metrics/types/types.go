package types

import "time"

// TimeLayout is how recorded_at is stored: fixed-width UTC, so that string
// comparison in SQL orders the same as time.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Metric is one stored row of plant_metrics.
type Metric struct {
	ID           int64     `json:"id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Temperature  *float64  `json:"temperature"`
	Humidity     *float64  `json:"humidity"`
	Light        *int64    `json:"light"`
	SoilMoisture *int64    `json:"soil_moisture"`
}
