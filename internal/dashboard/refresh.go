package dashboard

import (
	"context"
	"log/slog"

	"plant-monitor/internal/sensor"
)

// Refresher reloads every sensor store from the data server.
type Refresher struct {
	fetcher SeriesFetcher
	stores  *Stores
	logger  *slog.Logger

	// OnError, if set, is called for every sensor whose fetch failed. The
	// store keeps its previous data.
	OnError func(key sensor.Key, err error)
}

func NewRefresher(fetcher SeriesFetcher, stores *Stores, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{fetcher: fetcher, stores: stores, logger: logger}
}

// Refresh starts one fetch per sensor and returns immediately. Each fetch
// writes into its store on its own; there is no completion signal.
func (r *Refresher) Refresh(ctx context.Context) {
	for _, key := range sensor.Keys {
		go r.refreshOne(ctx, key)
	}
}

func (r *Refresher) refreshOne(ctx context.Context, key sensor.Key) {
	series, err := r.fetcher.FetchSeries(ctx, key, "")
	if err != nil {
		r.logger.Warn("refresh failed", "sensor", key, "error", err)
		if r.OnError != nil {
			r.OnError(key, err)
		}
		return
	}
	r.stores.replaceData(key, series)
}
