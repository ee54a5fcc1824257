// Package dashboard is the client side of the plant monitor: it fetches the
// four sensor series from the data server and keeps them in observable
// stores for the UI.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"

	"plant-monitor/internal/logging"
	"plant-monitor/internal/sensor"
)

// SeriesFetcher fetches one sensor's series, optionally only samples after
// the given time token ("" for all).
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, key sensor.Key, time string) ([]sensor.TimeseriesData, error)
}

// SnapshotFetcher fetches all four sensors at once.
type SnapshotFetcher interface {
	GetInitialData(ctx context.Context) (sensor.Snapshot, error)
	GetUpdateData(ctx context.Context, time string) (sensor.Snapshot, error)
}

// FetchError describes a failed sensor request.
type FetchError struct {
	Key        sensor.Key
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: GET %s: status %d: %v", e.Key, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: GET %s: %v", e.Key, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher reads sensor series from the data server's /db/data endpoints.
type Fetcher struct {
	client *resty.Client
	logger *slog.Logger
}

// FetcherOption configures the underlying resty client.
type FetcherOption func(*resty.Client)

// WithTimeout sets a per-request timeout. Zero keeps requests unbounded.
func WithTimeout(d time.Duration) FetcherOption {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

// NewFetcher returns a fetcher for the data server at baseURL
// (e.g. "http://192.168.1.20:8000").
func NewFetcher(baseURL string, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetLogger(logging.Resty(logger))
	for _, opt := range opts {
		opt(client)
	}
	return &Fetcher{client: client, logger: logger}
}

// GetInitialData fetches every sensor's full series.
func (f *Fetcher) GetInitialData(ctx context.Context) (sensor.Snapshot, error) {
	return f.fetchAll(ctx, "")
}

// GetUpdateData fetches the samples after time for every sensor. time is
// placed in the request path as given.
func (f *Fetcher) GetUpdateData(ctx context.Context, time string) (sensor.Snapshot, error) {
	return f.fetchAll(ctx, time)
}

// fetchAll issues the four requests concurrently and fails as a whole on the
// first error, cancelling the rest.
func (f *Fetcher) fetchAll(ctx context.Context, time string) (sensor.Snapshot, error) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([][]sensor.TimeseriesData, len(sensor.Keys))
	for i, key := range sensor.Keys {
		g.Go(func() error {
			series, err := f.FetchSeries(gctx, key, time)
			if err != nil {
				return err
			}
			results[i] = series
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := make(sensor.Snapshot, len(sensor.Keys))
	for i, key := range sensor.Keys {
		snap[key] = results[i]
	}
	return snap, nil
}

// FetchSeries GETs one sensor's series, optionally only samples after time.
func (f *Fetcher) FetchSeries(ctx context.Context, key sensor.Key, time string) ([]sensor.TimeseriesData, error) {
	path := SeriesPath(key, time)

	resp, err := f.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, &FetchError{Key: key, URL: f.client.BaseURL + path, Err: err}
	}
	url := resp.Request.URL
	if resp.IsError() {
		body := strings.TrimSpace(string(resp.Body()))
		return nil, &FetchError{Key: key, URL: url, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected response %q", body)}
	}

	var decoded sensor.DataResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, &FetchError{Key: key, URL: url, StatusCode: resp.StatusCode(), Err: fmt.Errorf("decode body: %w", err)}
	}
	series := decoded.Series(key)
	f.logger.Debug("fetched series", "sensor", key, "points", len(series), "since", time)
	return series, nil
}

// SeriesPath is /db/data/{segment}, with /{time} appended verbatim when set.
func SeriesPath(key sensor.Key, time string) string {
	path := "/db/data/" + key.Segment()
	if time != "" {
		path += "/" + time
	}
	return path
}
