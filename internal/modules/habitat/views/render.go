package views

import (
	"errors"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"habitat-monitor/internal/modules/habitat/service"
	"habitat-monitor/internal/modules/habitat/types"
)

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"deref": func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	},
}

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("views").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// SpeciesOption is the view model for a species in the dashboard selector.
type SpeciesOption struct {
	Name     string
	Selected bool
}

// DashboardPage is the view model for the HTML dashboard. View is nil until
// the first reading is stored; Message then explains why.
type DashboardPage struct {
	Species         []SpeciesOption
	SelectedSpecies string
	View            *service.DashboardView
	ChartURL        template.URL
	LastMinute      *service.AggregateSummary
	Message         string
}

// NewDashboardPage builds the page model. The chart is already a base64 PNG
// data URI produced by the renderer, so it is passed through as a URL.
func NewDashboardPage(species []types.SpeciesRange, view *service.DashboardView, last *service.AggregateSummary, message string) *DashboardPage {
	page := &DashboardPage{View: view, LastMinute: last, Message: message}
	if view != nil {
		page.ChartURL = template.URL(view.Chart)
		if view.SelectedSpecies != nil {
			page.SelectedSpecies = *view.SelectedSpecies
		}
	}
	for _, sp := range species {
		page.Species = append(page.Species, SpeciesOption{
			Name:     sp.Name,
			Selected: page.SelectedSpecies != "" && strings.EqualFold(sp.Name, page.SelectedSpecies),
		})
	}
	return page
}

func RenderDashboard(w io.Writer, data *DashboardPage) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}
