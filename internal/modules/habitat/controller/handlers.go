package controller

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"habitat-monitor/internal/httpapi"
	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/modules/habitat/views"
	"habitat-monitor/internal/utils"
)

type dashboardResponse struct {
	Status string `json:"status"`
	*service.DashboardView
}

type latestAggregateResponse struct {
	Status     string                    `json:"status"`
	Message    string                    `json:"message,omitempty"`
	LastRecord *service.AggregateSummary `json:"lastRecord"`
}

func (c *habitatControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	sub, err := parseSubmission(w, r)
	if err != nil {
		utils.WriteStatus(w, http.StatusBadRequest, utils.StatusError, err.Error())
		return
	}

	if _, err := c.service.Ingest(r.Context(), sub); err != nil {
		code, status := statusFor(err)
		if code >= http.StatusInternalServerError {
			slog.Error("ingest failed", "request_id", httpapi.RequestID(r.Context()), "error", err)
		}
		utils.WriteStatus(w, code, status, err.Error())
		return
	}
	utils.WriteStatus(w, http.StatusOK, utils.StatusSuccess, "reading stored")
}

func (c *habitatControllerImpl) handleAlive(w http.ResponseWriter, r *http.Request) {
	utils.WriteStatus(w, http.StatusOK, utils.StatusSuccess, "habitat server running - POST /datos")
}

func (c *habitatControllerImpl) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	view, err := c.service.Dashboard(r.Context(), speciesParam(r))
	if err != nil {
		code, status := statusFor(err)
		if code >= http.StatusInternalServerError {
			slog.Error("dashboard failed", "request_id", httpapi.RequestID(r.Context()), "error", err)
		}
		utils.WriteStatus(w, code, status, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, dashboardResponse{Status: utils.StatusSuccess, DashboardView: view})
}

func (c *habitatControllerImpl) handleLatestAggregate(w http.ResponseWriter, r *http.Request) {
	last, err := c.service.LatestAggregate(r.Context())
	if err != nil {
		slog.Error("latest aggregate failed", "request_id", httpapi.RequestID(r.Context()), "error", err)
		utils.WriteStatus(w, http.StatusInternalServerError, utils.StatusError, err.Error())
		return
	}
	resp := latestAggregateResponse{Status: utils.StatusSuccess, LastRecord: last}
	if last == nil {
		resp.Message = "no aggregate yet"
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (c *habitatControllerImpl) handleSpecies(w http.ResponseWriter, r *http.Request) {
	species, err := c.service.ListSpecies(r.Context())
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, species)
}

func (c *habitatControllerImpl) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slog.With("request_id", httpapi.RequestID(ctx))

	species, err := c.service.ListSpecies(ctx)
	if err != nil {
		log.Warn("dashboard page: list species failed", "error", err)
	}

	var message string
	view, err := c.service.Dashboard(ctx, speciesParam(r))
	switch {
	case errors.Is(err, service.ErrNoData):
		message = service.ErrNoData.Error()
	case err != nil:
		log.Error("dashboard page: build view failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build dashboard")
		return
	}

	last, err := c.service.LatestAggregate(ctx)
	if err != nil {
		log.Warn("dashboard page: latest aggregate failed", "error", err)
	}

	var buf bytes.Buffer
	if err := views.RenderDashboard(&buf, views.NewDashboardPage(species, view, last, message)); err != nil {
		log.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error("dashboard page: write response failed", "error", err)
	}
}
