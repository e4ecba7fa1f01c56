package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorTitle = lipgloss.Color("39")
	colorOK    = lipgloss.Color("42")
	colorCrit  = lipgloss.Color("196")
	colorDim   = lipgloss.Color("244")
)

// dashboardPayload mirrors the GET /dashboard response.
type dashboardPayload struct {
	Status          string  `json:"status"`
	Message         string  `json:"message"`
	SelectedSpecies *string `json:"selectedSpecies"`
	AppliedRanges   *struct {
		MinTemp float64 `json:"minTemp"`
		MaxTemp float64 `json:"maxTemp"`
		MinHum  float64 `json:"minHum"`
		MaxHum  float64 `json:"maxHum"`
	} `json:"appliedRanges"`
	Current struct {
		Temperature float64 `json:"temperature"`
		Humidity    float64 `json:"humidity"`
		WaterLevel  float64 `json:"waterLevel"`
		Time        string  `json:"time"`
		Stability   string  `json:"stability"`
	} `json:"current"`
	ChartDate string `json:"chartDate"`
}

func runStatus(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	baseURL := fs.String("url", "http://localhost:8080", "server base URL")
	animal := fs.String("animal", "", "species whose ranges are applied")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := fetchDashboard(ctx, &http.Client{Timeout: 5 * time.Second}, *baseURL, *animal)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, renderStatus(payload))
	return nil
}

func fetchDashboard(ctx context.Context, client *http.Client, baseURL, animal string) (dashboardPayload, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/dashboard")
	if err != nil {
		return dashboardPayload{}, fmt.Errorf("server url: %w", err)
	}
	if animal != "" {
		u.RawQuery = url.Values{"animal": {animal}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return dashboardPayload{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return dashboardPayload{}, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	var p dashboardPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return dashboardPayload{}, fmt.Errorf("decode dashboard: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNotFound:
		return p, nil
	default:
		return dashboardPayload{}, fmt.Errorf("GET %s: %s: %s", u, resp.Status, p.Message)
	}
}

func renderStatus(p dashboardPayload) string {
	title := lipgloss.NewStyle().Foreground(colorTitle).Bold(true)
	dim := lipgloss.NewStyle().Foreground(colorDim)

	if p.Status != "success" {
		return lipgloss.JoinVertical(lipgloss.Left,
			title.Render("Habitat Monitor"),
			dim.Render(p.Message),
		)
	}

	heading := "Habitat Monitor"
	if p.SelectedSpecies != nil {
		heading += " | " + *p.SelectedSpecies
	}

	tempStyle, humStyle := valueStyle(false), valueStyle(false)
	ranges := dim.Render("no species ranges applied")
	if r := p.AppliedRanges; r != nil {
		tempStyle = valueStyle(outside(p.Current.Temperature, r.MinTemp, r.MaxTemp))
		humStyle = valueStyle(outside(p.Current.Humidity, r.MinHum, r.MaxHum))
		ranges = dim.Render(fmt.Sprintf("ranges: %g-%g °C, %g-%g %%", r.MinTemp, r.MaxTemp, r.MinHum, r.MaxHum))
	}
	stabilityStyle := valueStyle(p.Current.Stability != "Stable")

	return lipgloss.JoinVertical(lipgloss.Left,
		title.Render(heading),
		fmt.Sprintf("temperature  %s", tempStyle.Render(fmt.Sprintf("%.2f °C", p.Current.Temperature))),
		fmt.Sprintf("humidity     %s", humStyle.Render(fmt.Sprintf("%.2f %%", p.Current.Humidity))),
		fmt.Sprintf("water level  %s", valueStyle(false).Render(fmt.Sprintf("%.2f %%", p.Current.WaterLevel))),
		fmt.Sprintf("stability    %s", stabilityStyle.Render(p.Current.Stability)),
		ranges,
		dim.Render(fmt.Sprintf("last reading %s on %s", p.Current.Time, p.ChartDate)),
	)
}

func outside(v, lo, hi float64) bool {
	return v < lo || v > hi
}

func valueStyle(alert bool) lipgloss.Style {
	if alert {
		return lipgloss.NewStyle().Foreground(colorCrit).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(colorOK)
}
