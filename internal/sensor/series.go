package sensor

import (
	"time"
)

// TimeseriesData is one sample of a sensor series.
type TimeseriesData struct {
	Time         string   `json:"time"`
	Data         float64  `json:"data"`
	RelativeData *float64 `json:"relativeData,omitempty"`
}

// Snapshot maps every sensor to its series at one point in time.
type Snapshot map[Key][]TimeseriesData

// DataResponse is the body of GET /db/data/{segment}[/{time}]. Only the field
// of the requested sensor is set; the others encode as null.
type DataResponse struct {
	Temperature  []TimeseriesData `json:"temperature"`
	Humidity     []TimeseriesData `json:"humidity"`
	Light        []TimeseriesData `json:"light"`
	SoilMoisture []TimeseriesData `json:"soil_moisture"`
}

func NewDataResponse(k Key, series []TimeseriesData) DataResponse {
	if series == nil {
		series = []TimeseriesData{}
	}
	var r DataResponse
	switch k {
	case Temperature:
		r.Temperature = series
	case Humidity:
		r.Humidity = series
	case Light:
		r.Light = series
	case SoilMoisture:
		r.SoilMoisture = series
	}
	return r
}

// Series returns the field for k, never nil.
func (r DataResponse) Series(k Key) []TimeseriesData {
	var s []TimeseriesData
	switch k {
	case Temperature:
		s = r.Temperature
	case Humidity:
		s = r.Humidity
	case Light:
		s = r.Light
	case SoilMoisture:
		s = r.SoilMoisture
	}
	if s == nil {
		return []TimeseriesData{}
	}
	return s
}

// WithRelative returns a copy of series where every sample carries its
// position inside the series' min/max range as a percentage. A flat series
// maps to 0.
func WithRelative(series []TimeseriesData) []TimeseriesData {
	out := make([]TimeseriesData, len(series))
	if len(series) == 0 {
		return out
	}
	lo, hi := series[0].Data, series[0].Data
	for _, p := range series[1:] {
		lo = min(lo, p.Data)
		hi = max(hi, p.Data)
	}
	span := hi - lo
	for i, p := range series {
		rel := 0.0
		if span > 0 {
			rel = (p.Data - lo) / span * 100
		}
		p.RelativeData = &rel
		out[i] = p
	}
	return out
}

// Latest returns the greatest sample time across all series.
func (s Snapshot) Latest() (string, bool) {
	var latest string
	found := false
	for _, series := range s {
		if t, ok := lastTime(series); ok && (!found || After(t, latest)) {
			latest, found = t, true
		}
	}
	return latest, found
}

// Cursor returns the earliest of the per-series latest times, skipping empty
// series. Every series is complete up to the cursor, so asking for samples
// after it misses nothing even when the series were read at different moments.
func (s Snapshot) Cursor() (string, bool) {
	var cursor string
	found := false
	for _, series := range s {
		if t, ok := lastTime(series); ok && (!found || After(cursor, t)) {
			cursor, found = t, true
		}
	}
	return cursor, found
}

func lastTime(series []TimeseriesData) (string, bool) {
	var latest string
	found := false
	for _, p := range series {
		if !found || After(p.Time, latest) {
			latest, found = p.Time, true
		}
	}
	return latest, found
}

// After reports whether sample time a is later than b. Times that both parse
// as RFC3339 are compared as instants, anything else lexically.
func After(a, b string) bool {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.After(tb)
	}
	return a > b
}
