package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"plant-monitor/internal/config"
	"plant-monitor/internal/dashboard"
	"plant-monitor/internal/dashboard/stream"
	"plant-monitor/internal/httpapi"
	"plant-monitor/internal/sensor"
)

// RunDashboard follows the data server at cfg.DataServerIP and serves the
// store state over HTTP and websocket until ctx is done.
func RunDashboard(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dataServer", cfg.DataServerURL(),
		"pollInterval", cfg.PollInterval,
		"fetchTimeout", cfg.FetchTimeout,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
	)

	fetcher := dashboard.NewFetcher(cfg.DataServerURL(), logger, dashboard.WithTimeout(cfg.FetchTimeout))
	stores := dashboard.NewStores()

	refresher := dashboard.NewRefresher(fetcher, stores, logger)
	refresher.OnError = func(key sensor.Key, err error) {
		var fe *dashboard.FetchError
		if errors.As(err, &fe) && fe.StatusCode >= 500 {
			logger.Error("data server error during refresh", "sensor", key, "status", fe.StatusCode)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := stream.NewHub(ctx, stores, refresher, logger)
	defer hub.Close()

	mux := httpapi.NewMux(nil)
	dashboard.NewController(ctx, stores, refresher).RegisterRoutes(mux)
	hub.RegisterRoutes(mux)

	follower := dashboard.NewFollower(fetcher, stores, cfg.PollInterval, logger)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		follower.Run(ctx)
	}()

	srv := httpapi.NewServer(cfg, mux, logger)
	return serve(ctx, srv, logger, func() {
		cancel()
		wg.Wait()
	})
}
