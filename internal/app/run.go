package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"plant-monitor/internal/config"
	"plant-monitor/internal/db"
	"plant-monitor/internal/httpapi"
	"plant-monitor/internal/migrate"
	"plant-monitor/internal/modules/metrics"
	"plant-monitor/internal/mqtt"
)

// RunDataServer serves the metrics API on cfg.HTTPAddr and ingests MQTT
// readings until ctx is done.
func RunDataServer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbLogSQL", cfg.LogSQL,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"corsAllowedOrigins", cfg.CORSAllowedOrigins,
	)
	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	applied, err := migrate.Run(dbConn)
	if err != nil {
		return err
	}
	logger.Info("migrations applied", "count", applied)

	var ok int
	if err := dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok); err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	logger.Info("database connection successful")

	// The handler must be set before Connect: the broker may deliver queued
	// messages right after CONNACK.
	subscriber := mqtt.NewSubscriber(cfg, logger)
	mux := httpapi.NewMux(map[string]httpapi.HealthCheck{"db": httpapi.DBCheck(dbConn)})
	metrics.RegisterFeature(mux, dbConn, subscriber, logger)

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = subscriber.Connect(connectCtx)
	connectCancel()
	if err != nil {
		// HTTP and /healthz keep working without a broker.
		logger.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	srv := httpapi.NewServer(cfg, mux, logger)
	return serve(ctx, srv, logger, func() {
		logger.Info("mqtt disconnecting")
		subscriber.Disconnect()
	})
}

// serve runs srv until ctx is done or it fails, then shuts it down.
// beforeShutdown runs first so background producers stop before HTTP.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger, beforeShutdown func()) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if beforeShutdown != nil {
			beforeShutdown()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if beforeShutdown != nil {
		beforeShutdown()
	}

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err := <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
