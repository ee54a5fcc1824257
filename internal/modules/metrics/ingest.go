package metrics

import (
	"log/slog"

	"plant-monitor/internal/modules/metrics/repository"
	"plant-monitor/internal/mqtt"
	"plant-monitor/internal/sensor"
)

func registerMQTTHandler(subscriber mqtt.MetricSubscriber, repo repository.MetricsRepository, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	subscriber.SetMessageHandler(func(plantID string, m sensor.MetricInsert) error {
		created, err := repo.InsertMetric(m)
		if err != nil {
			logger.Error("failed to store metric", "plant_id", plantID, "error", err)
			return err
		}
		logger.Debug("stored metric",
			"plant_id", plantID,
			"id", created.ID,
			"recorded_at", created.RecordedAt,
		)
		return nil
	})
}
