package controller

import (
	"context"
	"net/http"

	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/modules/habitat/types"
)

// HabitatService is the part of service.Service the HTTP layer needs.
type HabitatService interface {
	Ingest(ctx context.Context, sub service.Submission) (types.Reading, error)
	Dashboard(ctx context.Context, species string) (*service.DashboardView, error)
	LatestAggregate(ctx context.Context) (*service.AggregateSummary, error)
	ListSpecies(ctx context.Context) ([]types.SpeciesRange, error)
}

type HabitatController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type habitatControllerImpl struct {
	service HabitatService
}

func NewHabitatController(service HabitatService) HabitatController {
	return &habitatControllerImpl{service: service}
}

func (c *habitatControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /datos", c.handleIngest)
	mux.HandleFunc("GET /datos", c.handleAlive)
	mux.HandleFunc("GET /dashboard", c.handleDashboardJSON)
	mux.HandleFunc("GET /promedios_por_minuto", c.handleLatestAggregate)
	mux.HandleFunc("GET /api/v1/species", c.handleSpecies)
	mux.HandleFunc("GET /{$}", c.handleDashboardPage)
}
