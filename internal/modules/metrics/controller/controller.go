package controller

import (
	"net/http"

	"plant-monitor/internal/modules/metrics/repository"
)

type MetricsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type metricsControllerImpl struct {
	repository repository.MetricsRepository
}

func NewMetricsController(repository repository.MetricsRepository) MetricsController {
	return &metricsControllerImpl{repository: repository}
}

func (c *metricsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /db/data/{sensor}", c.handleSeries)
	mux.HandleFunc("GET /db/data/{sensor}/{time}", c.handleSeries)

	mux.HandleFunc("POST /metric", c.handleCreateMetric)
	mux.HandleFunc("GET /metric/{id}", c.handleGetMetric)
	mux.HandleFunc("DELETE /metric/{id}", c.handleDeleteMetric)
	mux.HandleFunc("GET /metric/time/{time}", c.handleGetMetricByTime)
}
