package dashboard

import (
	"context"
	"errors"
	"net/http"

	"plant-monitor/internal/sensor"
	"plant-monitor/internal/utils"
)

type Controller interface {
	RegisterRoutes(mux *http.ServeMux)
}

type controllerImpl struct {
	// ctx outlives single requests; refreshes started by a request keep
	// running after the response is written.
	ctx       context.Context
	stores    *Stores
	refresher *Refresher
}

func NewController(ctx context.Context, stores *Stores, refresher *Refresher) Controller {
	return &controllerImpl{ctx: ctx, stores: stores, refresher: refresher}
}

func (c *controllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", c.handleState)
	mux.HandleFunc("POST /api/refresh", c.handleRefresh)
	mux.HandleFunc("PUT /api/sensors/{key}/visibility", c.handleVisibility)
	mux.HandleFunc("PUT /api/relative-scale", c.handleRelativeScale)
}

func (c *controllerImpl) handleState(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.stores.Snapshot())
}

func (c *controllerImpl) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c.refresher.Refresh(c.ctx)
	utils.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

type visibilityRequest struct {
	IsVisible *bool `json:"isVisible"`
}

func (c *controllerImpl) handleVisibility(w http.ResponseWriter, r *http.Request) {
	key, err := sensor.ParseKey(r.PathValue("key"))
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	var in visibilityRequest
	if !decode(w, r, &in) {
		return
	}
	if in.IsVisible == nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, "isVisible is required")
		return
	}
	c.stores.SetVisible(key, *in.IsVisible)
	utils.WriteJSON(w, http.StatusOK, c.stores.For(key).Get())
}

type relativeScaleRequest struct {
	RelativeScale *bool `json:"relativeScale"`
}

func (c *controllerImpl) handleRelativeScale(w http.ResponseWriter, r *http.Request) {
	var in relativeScaleRequest
	if !decode(w, r, &in) {
		return
	}
	if in.RelativeScale == nil {
		utils.WriteError(w, http.StatusUnprocessableEntity, "relativeScale is required")
		return
	}
	c.stores.RelativeScale.Set(*in.RelativeScale)
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"relativeScale": *in.RelativeScale})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := utils.DecodeJSON(r, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, utils.ErrUnsupportedMediaType):
		utils.WriteError(w, http.StatusUnsupportedMediaType, err.Error())
	default:
		utils.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	}
	return false
}
