// Package sensor holds the canonical sensor keys and the wire types shared by
// the data server and the dashboard.
package sensor

import (
	"fmt"
	"strings"
)

// Key is the canonical name of a sensor. It is used as the snapshot key, the
// store key and in every JSON document the dashboard produces.
type Key string

const (
	Temperature  Key = "temperature"
	Humidity     Key = "humidity"
	Light        Key = "light"
	SoilMoisture Key = "soilMoisture"
)

// Keys lists every sensor in display order.
var Keys = []Key{Temperature, Humidity, Light, SoilMoisture}

// Segment is the path segment of the sensor's /db/data endpoint.
func (k Key) Segment() string {
	if k == SoilMoisture {
		return "soilmoisture"
	}
	return string(k)
}

// Field is the JSON field of a data response carrying this sensor's series.
// It doubles as the plant_metrics column name.
func (k Key) Field() string {
	if k == SoilMoisture {
		return "soil_moisture"
	}
	return string(k)
}

func (k Key) Valid() bool {
	switch k {
	case Temperature, Humidity, Light, SoilMoisture:
		return true
	}
	return false
}

// ParseKey accepts the canonical key, the endpoint segment or the response field.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	for _, k := range Keys {
		if s == string(k) || s == k.Segment() || s == k.Field() {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sensor %q", s)
}

// KeyForSegment resolves an endpoint segment only.
func KeyForSegment(segment string) (Key, bool) {
	for _, k := range Keys {
		if k.Segment() == segment {
			return k, true
		}
	}
	return "", false
}
