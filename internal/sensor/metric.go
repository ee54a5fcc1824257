package sensor

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MetricInsert is a set of plant readings as posted to /metric or published
// on the metrics MQTT topic. Readings left nil are stored as NULL.
type MetricInsert struct {
	RecordedAt   *time.Time `json:"recorded_at,omitempty"`
	Temperature  *float64   `json:"temperature,omitempty"`
	Humidity     *float64   `json:"humidity,omitempty"`
	Light        *int64     `json:"light,omitempty"`
	SoilMoisture *int64     `json:"soil_moisture,omitempty"`
}

// Missing names the readings that are not set.
func (m MetricInsert) Missing() []string {
	var out []string
	if m.Temperature == nil {
		out = append(out, Temperature.Field())
	}
	if m.Humidity == nil {
		out = append(out, Humidity.Field())
	}
	if m.Light == nil {
		out = append(out, Light.Field())
	}
	if m.SoilMoisture == nil {
		out = append(out, SoilMoisture.Field())
	}
	return out
}

// RequireAll fails unless every reading is present.
func (m MetricInsert) RequireAll() error {
	if missing := m.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireAny fails when no reading is present.
func (m MetricInsert) RequireAny() error {
	if len(m.Missing()) == len(Keys) {
		return errors.New("at least one reading (temperature, humidity, light, soil_moisture) is required")
	}
	return nil
}

// Validate checks the readings that are present against their physical range.
func (m MetricInsert) Validate() error {
	if m.Humidity != nil && (*m.Humidity < 0 || *m.Humidity > 100) {
		return fmt.Errorf("humidity out of range: %v (must be 0-100)", *m.Humidity)
	}
	if m.Light != nil && *m.Light < 0 {
		return fmt.Errorf("light must not be negative: %d", *m.Light)
	}
	if m.SoilMoisture != nil && *m.SoilMoisture < 0 {
		return fmt.Errorf("soil_moisture must not be negative: %d", *m.SoilMoisture)
	}
	return nil
}
