package dashboard

import (
	"context"
	"log/slog"
	"time"

	"plant-monitor/internal/sensor"
)

// Follower keeps the stores in step with the data server: a full load until
// one succeeds, then incremental polls from the latest known sample.
type Follower struct {
	fetcher  SnapshotFetcher
	stores   *Stores
	interval time.Duration
	logger   *slog.Logger

	loaded bool
}

func NewFollower(fetcher SnapshotFetcher, stores *Stores, interval time.Duration, logger *slog.Logger) *Follower {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Follower{fetcher: fetcher, stores: stores, interval: interval, logger: logger}
}

// Run polls until ctx is done.
func (f *Follower) Run(ctx context.Context) error {
	f.Poll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.Poll(ctx)
		}
	}
}

// Poll does one round: the initial load if none has succeeded yet, else an
// update since the cursor. The cursor is the earliest of the per-sensor latest
// samples; appendData drops what a sensor already has.
func (f *Follower) Poll(ctx context.Context) {
	if !f.loaded {
		snap, err := f.fetcher.GetInitialData(ctx)
		if err != nil {
			f.logger.Warn("initial load failed", "error", err)
			return
		}
		for _, key := range sensor.Keys {
			f.stores.replaceData(key, snap[key])
		}
		f.loaded = true
		f.logger.Info("initial data loaded", "points", countPoints(snap))
		return
	}

	cursor, ok := f.stores.Data().Cursor()
	if !ok {
		// Nothing stored yet; a full load is the only way to learn a cursor.
		f.loaded = false
		f.Poll(ctx)
		return
	}
	snap, err := f.fetcher.GetUpdateData(ctx, cursor)
	if err != nil {
		f.logger.Warn("update poll failed", "since", cursor, "error", err)
		return
	}
	for _, key := range sensor.Keys {
		f.stores.appendData(key, snap[key])
	}
	if n := countPoints(snap); n > 0 {
		f.logger.Debug("update applied", "since", cursor, "points", n)
	}
}

func countPoints(snap sensor.Snapshot) int {
	n := 0
	for _, s := range snap {
		n += len(s)
	}
	return n
}
