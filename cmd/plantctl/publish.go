package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"plant-monitor/internal/config"
	"plant-monitor/internal/mqtt"
	"plant-monitor/internal/sensor"
)

type publishFlags struct {
	plant    string
	count    int
	interval time.Duration

	// Negative values mean "simulate".
	temperature  float64
	humidity     float64
	light        int64
	soilMoisture int64
	seed         uint64
}

func parsePublishFlags(args []string) (publishFlags, error) {
	var f publishFlags
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	fs.StringVar(&f.plant, "plant", "plant-1", "plant id used in the topic")
	fs.IntVar(&f.count, "count", 1, "number of readings to publish (0 = until interrupted)")
	fs.DurationVar(&f.interval, "interval", 5*time.Second, "delay between readings")
	fs.Float64Var(&f.temperature, "temperature", -1, "fixed temperature in °C")
	fs.Float64Var(&f.humidity, "humidity", -1, "fixed relative humidity in %")
	fs.Int64Var(&f.light, "light", -1, "fixed light level")
	fs.Int64Var(&f.soilMoisture, "soil-moisture", -1, "fixed soil moisture level")
	fs.Uint64Var(&f.seed, "seed", 0, "random walk seed (0 = time based)")
	if err := fs.Parse(args); err != nil {
		return publishFlags{}, err
	}
	if f.plant == "" {
		return publishFlags{}, errors.New("-plant must not be empty")
	}
	if f.count < 0 {
		return publishFlags{}, fmt.Errorf("-count must not be negative, got %d", f.count)
	}
	if f.humidity > 100 {
		return publishFlags{}, fmt.Errorf("-humidity must be at most 100, got %v", f.humidity)
	}
	return f, nil
}

func runPublish(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string) error {
	f, err := parsePublishFlags(args)
	if err != nil {
		return err
	}

	pub := mqtt.NewPublisher(cfg, logger)
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = pub.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer pub.Disconnect()

	seed := f.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	w := newWalk(seed)

	for i := 0; f.count == 0 || i < f.count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(f.interval):
			}
		}
		m := w.next(f)
		if err := pub.PublishMetric(f.plant, m); err != nil {
			return err
		}
		logger.Info("published", "plant", f.plant, "n", i+1,
			"temperature", *m.Temperature, "humidity", *m.Humidity,
			"light", *m.Light, "soil_moisture", *m.SoilMoisture)
	}
	return nil
}

// walk produces plausible greenhouse readings that drift a little between
// samples.
type walk struct {
	rng          *rand.Rand
	temperature  float64
	humidity     float64
	light        float64
	soilMoisture float64
}

func newWalk(seed uint64) *walk {
	return &walk{
		rng:          rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		temperature:  21,
		humidity:     55,
		light:        600,
		soilMoisture: 450,
	}
}

func (w *walk) step(v, delta, lo, hi float64) float64 {
	v += (w.rng.Float64()*2 - 1) * delta
	return math.Min(hi, math.Max(lo, v))
}

// next advances the walk and returns a reading, preferring fixed flag values.
func (w *walk) next(f publishFlags) sensor.MetricInsert {
	w.temperature = w.step(w.temperature, 0.3, -10, 50)
	w.humidity = w.step(w.humidity, 1.5, 0, 100)
	w.light = w.step(w.light, 40, 0, 4095)
	w.soilMoisture = w.step(w.soilMoisture, 8, 0, 1023)

	temp := round(w.temperature, 1)
	hum := round(w.humidity, 1)
	light := int64(math.Round(w.light))
	soil := int64(math.Round(w.soilMoisture))
	if f.temperature >= 0 {
		temp = f.temperature
	}
	if f.humidity >= 0 {
		hum = f.humidity
	}
	if f.light >= 0 {
		light = f.light
	}
	if f.soilMoisture >= 0 {
		soil = f.soilMoisture
	}
	return sensor.MetricInsert{Temperature: &temp, Humidity: &hum, Light: &light, SoilMoisture: &soil}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
