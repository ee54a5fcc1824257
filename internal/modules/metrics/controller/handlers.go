package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"plant-monitor/internal/modules/metrics/repository"
	"plant-monitor/internal/sensor"
	"plant-monitor/internal/utils"
)

func (c *metricsControllerImpl) handleSeries(w http.ResponseWriter, r *http.Request) {
	key, ok := sensor.KeyForSegment(r.PathValue("sensor"))
	if !ok {
		utils.WriteError(w, http.StatusNotFound, "unknown sensor")
		return
	}

	after, err := parseAfter(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	series, err := c.repository.GetSeries(key, after)
	if err != nil {
		slog.Error("series: query failed", "sensor", key, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load series")
		return
	}
	utils.WriteJSON(w, http.StatusOK, sensor.NewDataResponse(key, series))
}

func (c *metricsControllerImpl) handleCreateMetric(w http.ResponseWriter, r *http.Request) {
	var in sensor.MetricInsert
	if err := utils.DecodeJSON(r, &in); err != nil {
		if errors.Is(err, utils.ErrUnsupportedMediaType) {
			utils.WriteError(w, http.StatusUnsupportedMediaType, err.Error())
			return
		}
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := in.RequireAll(); err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := c.repository.InsertMetric(in)
	if err != nil {
		slog.Error("create metric failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to store metric")
		return
	}
	w.Header().Set("Location", "/metric/"+strconv.FormatInt(created.ID, 10))
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (c *metricsControllerImpl) handleGetMetric(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	metric, err := c.repository.GetMetric(id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("get metric failed", "id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load metric")
		return
	}
	utils.WriteJSON(w, http.StatusOK, metric)
}

func (c *metricsControllerImpl) handleDeleteMetric(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	deleted, err := c.repository.DeleteMetric(id)
	if err != nil {
		slog.Error("delete metric failed", "id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to delete metric")
		return
	}
	if !deleted {
		utils.WriteError(w, http.StatusNotFound, repository.ErrNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *metricsControllerImpl) handleGetMetricByTime(w http.ResponseWriter, r *http.Request) {
	t, err := parseTimeParam(r.PathValue("time"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	metric, err := c.repository.GetMetricByTime(t)
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		slog.Error("get metric by time failed", "time", t, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load metric")
		return
	}
	utils.WriteJSON(w, http.StatusOK, metric)
}
