package metrics

import (
	"database/sql"
	"log/slog"
	"net/http"

	"plant-monitor/internal/modules/metrics/controller"
	"plant-monitor/internal/modules/metrics/repository"
	"plant-monitor/internal/mqtt"
)

// RegisterFeature wires the series endpoints, metric CRUD and MQTT ingestion
// onto one repository. subscriber may be nil when MQTT is not in use.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.MetricSubscriber, logger *slog.Logger) {
	metricsRepository := repository.NewRepository(db)
	controller.NewMetricsController(metricsRepository).RegisterRoutes(mux)
	if subscriber != nil {
		registerMQTTHandler(subscriber, metricsRepository, logger)
	}
}
