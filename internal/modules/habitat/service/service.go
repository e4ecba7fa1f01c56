package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"habitat-monitor/internal/modules/habitat/chart"
	"habitat-monitor/internal/modules/habitat/repository"
	"habitat-monitor/internal/modules/habitat/stability"
	"habitat-monitor/internal/modules/habitat/types"
)

// ChartRenderer turns a report request into an embeddable image.
type ChartRenderer interface {
	Render(req chart.Request) (string, error)
}

type Service struct {
	repository repository.HabitatRepository
	stability  *stability.Cell
	renderer   ChartRenderer
	location   *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires the habitat use cases. The stability cell is shared by
// every ingestion path and read by the dashboard. Calendar days are computed
// in loc.
func NewService(repo repository.HabitatRepository, cell *stability.Cell, renderer ChartRenderer, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repository: repo,
		stability:  cell,
		renderer:   renderer,
		location:   loc,
		logger:     logger,
		now:        time.Now,
	}
}

// Thresholds are the range limits applied to a dashboard.
type Thresholds struct {
	MinTemp float64 `json:"minTemp"`
	MaxTemp float64 `json:"maxTemp"`
	MinHum  float64 `json:"minHum"`
	MaxHum  float64 `json:"maxHum"`
}

// CurrentReading is the latest reading as shown on the dashboard.
type CurrentReading struct {
	Temperature float64         `json:"temperature"`
	Humidity    float64         `json:"humidity"`
	WaterLevel  float64         `json:"waterLevel"`
	Time        string          `json:"time"`
	Stability   stability.State `json:"stability"`
}

// DashboardView is the assembled dashboard for one request.
type DashboardView struct {
	SelectedSpecies *string        `json:"selectedSpecies"`
	AppliedRanges   *Thresholds    `json:"appliedRanges"`
	Current         CurrentReading `json:"current"`
	Chart           string         `json:"chart"`
	ChartDate       string         `json:"chartDate"`
}

// AggregateSummary is the most recent minute aggregate, rounded for display.
type AggregateSummary struct {
	DateTime    string   `json:"dateTime"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	WaterLevel  *float64 `json:"waterLevel"`
	Samples     int      `json:"samples"`
}

// ResolveRange looks up the thresholds for a species name. It returns nil
// when no name is given, when the species is unknown, or when the lookup
// fails; lookup failures are logged and never returned.
func (s *Service) ResolveRange(ctx context.Context, name string) *types.SpeciesRange {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	rng, err := s.repository.GetSpeciesRange(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Debug("unknown species", "species", name)
		return nil
	}
	if err != nil {
		s.logger.Warn("species range lookup failed", "species", name, "error", err)
		return nil
	}
	return &rng
}

// Dashboard assembles the latest reading, today's minute series, the species
// thresholds and the rendered chart. It returns ErrNoData when nothing has
// been ingested yet.
func (s *Service) Dashboard(ctx context.Context, species string) (*DashboardView, error) {
	rng := s.ResolveRange(ctx, species)

	latest, err := s.repository.GetLatestReading(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoData
	}
	if err != nil {
		return nil, &InternalError{Op: "latest reading", Err: err}
	}

	dayStart, dayEnd := s.today()
	rows, err := s.repository.GetMinuteAggregates(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, &InternalError{Op: "minute aggregates", Err: err}
	}

	req := chart.Request{
		Date:     dayStart,
		Points:   chart.PointsFromAggregates(rows),
		Range:    rng,
		Location: s.location,
	}
	view := &DashboardView{
		Current: CurrentReading{
			Temperature: round2(latest.Temperature),
			Humidity:    round2(latest.Humidity),
			WaterLevel:  round2(latest.WaterLevel),
			Time:        latest.Time.In(s.location).Format("15:04:05"),
			Stability:   s.stability.Load(),
		},
		ChartDate: dayStart.Format("2006-01-02"),
	}
	if rng != nil {
		name := rng.Name
		req.Species = name
		view.SelectedSpecies = &name
		view.AppliedRanges = &Thresholds{
			MinTemp: rng.MinTemp,
			MaxTemp: rng.MaxTemp,
			MinHum:  rng.MinHum,
			MaxHum:  rng.MaxHum,
		}
	}

	img, err := s.renderer.Render(req)
	if err != nil {
		return nil, &InternalError{Op: "render chart", Err: err}
	}
	view.Chart = img
	return view, nil
}

// LatestAggregate returns the newest minute aggregate that has any average,
// or nil when there is none yet.
func (s *Service) LatestAggregate(ctx context.Context) (*AggregateSummary, error) {
	a, err := s.repository.GetLatestAggregate(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &InternalError{Op: "latest aggregate", Err: err}
	}
	return &AggregateSummary{
		DateTime:    a.Minute.In(s.location).Format("2006-01-02 15:04"),
		Temperature: round2Ptr(a.AvgTemperature),
		Humidity:    round2Ptr(a.AvgHumidity),
		WaterLevel:  round2Ptr(a.AvgWaterLevel),
		Samples:     a.SampleCount,
	}, nil
}

// ListSpecies returns the species reference data sorted by name.
func (s *Service) ListSpecies(ctx context.Context) ([]types.SpeciesRange, error) {
	list, err := s.repository.ListSpecies(ctx)
	if err != nil {
		return nil, &InternalError{Op: "list species", Err: err}
	}
	return list, nil
}

// Stability returns the most recently ingested stability state.
func (s *Service) Stability() stability.State {
	return s.stability.Load()
}

func (s *Service) today() (time.Time, time.Time) {
	now := s.now().In(s.location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := round2(*v)
	return &r
}
