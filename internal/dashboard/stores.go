package dashboard

import (
	"plant-monitor/internal/sensor"
)

// Entry is the state of one sensor in the dashboard.
type Entry struct {
	IsVisible bool                    `json:"isVisible"`
	Data      []sensor.TimeseriesData `json:"data"`
}

func initialEntry() Entry {
	return Entry{IsVisible: true, Data: []sensor.TimeseriesData{}}
}

// Stores is the dashboard state: one store per sensor plus the relative
// scale toggle.
type Stores struct {
	Temperature   *Store[Entry]
	Humidity      *Store[Entry]
	Light         *Store[Entry]
	SoilMoisture  *Store[Entry]
	RelativeScale *Store[bool]
}

func NewStores() *Stores {
	return &Stores{
		Temperature:   NewStore(initialEntry()),
		Humidity:      NewStore(initialEntry()),
		Light:         NewStore(initialEntry()),
		SoilMoisture:  NewStore(initialEntry()),
		RelativeScale: NewStore(false),
	}
}

// For returns the store of key, or nil for an unknown key.
func (s *Stores) For(key sensor.Key) *Store[Entry] {
	switch key {
	case sensor.Temperature:
		return s.Temperature
	case sensor.Humidity:
		return s.Humidity
	case sensor.Light:
		return s.Light
	case sensor.SoilMoisture:
		return s.SoilMoisture
	}
	return nil
}

// State is the JSON form of every store.
type State struct {
	Sensors       map[sensor.Key]Entry `json:"sensors"`
	RelativeScale bool                 `json:"relativeScale"`
}

func (s *Stores) Snapshot() State {
	st := State{
		Sensors:       make(map[sensor.Key]Entry, len(sensor.Keys)),
		RelativeScale: s.RelativeScale.Get(),
	}
	for _, k := range sensor.Keys {
		st.Sensors[k] = s.For(k).Get()
	}
	return st
}

// Data returns each sensor's current series.
func (s *Stores) Data() sensor.Snapshot {
	snap := make(sensor.Snapshot, len(sensor.Keys))
	for _, k := range sensor.Keys {
		snap[k] = s.For(k).Get().Data
	}
	return snap
}

// SetVisible toggles a sensor's visibility and keeps its data.
func (s *Stores) SetVisible(key sensor.Key, visible bool) bool {
	st := s.For(key)
	if st == nil {
		return false
	}
	st.Update(func(e Entry) Entry {
		e.IsVisible = visible
		return e
	})
	return true
}

// replaceData swaps a sensor's series, keeping the visibility current at
// write time.
func (s *Stores) replaceData(key sensor.Key, series []sensor.TimeseriesData) {
	s.For(key).Update(func(e Entry) Entry {
		return Entry{IsVisible: e.IsVisible, Data: sensor.WithRelative(series)}
	})
}

// appendData adds points to a sensor's series and rescales the whole series.
// Points not after the store's last sample are skipped, so a poll that races
// a full refresh, or overlaps the cursor, never duplicates samples.
func (s *Stores) appendData(key sensor.Key, points []sensor.TimeseriesData) {
	if len(points) == 0 {
		return
	}
	s.For(key).Update(func(e Entry) Entry {
		last, hasLast := sensor.Snapshot{key: e.Data}.Latest()
		merged := make([]sensor.TimeseriesData, 0, len(e.Data)+len(points))
		merged = append(merged, e.Data...)
		for _, p := range points {
			if hasLast && !sensor.After(p.Time, last) {
				continue
			}
			merged = append(merged, p)
			last, hasLast = p.Time, true
		}
		if len(merged) == len(e.Data) {
			return e
		}
		return Entry{IsVisible: e.IsVisible, Data: sensor.WithRelative(merged)}
	})
}
