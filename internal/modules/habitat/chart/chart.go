// Package chart renders the daily habitat report: temperature, humidity and
// water level per minute, plus the species threshold reference lines, as a
// PNG data URI.
package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"habitat-monitor/internal/modules/habitat/types"
)

const (
	DataURIPrefix = "data:image/png;base64,"

	defaultWidth  = 1200
	defaultHeight = 650
)

var (
	temperatureColor = drawing.ColorFromHex("e74c3c")
	humidityColor    = drawing.ColorFromHex("3498db")
	waterLevelColor  = drawing.ColorFromHex("2ecc71")

	dashed = []float64{8, 5}
	dotted = []float64{2, 4}
)

// Point is one minute of averaged values. Nil values are left out of their series.
type Point struct {
	Minute      time.Time
	Temperature *float64
	Humidity    *float64
	WaterLevel  *float64
}

// Request is everything needed to draw one report.
type Request struct {
	Date     time.Time
	Species  string
	Points   []Point
	Range    *types.SpeciesRange
	Location *time.Location
}

// Renderer draws reports with a fixed size.
type Renderer struct {
	Width  int
	Height int
}

func NewRenderer() *Renderer {
	return &Renderer{Width: defaultWidth, Height: defaultHeight}
}

// PointsFromAggregates converts minute aggregates, keeping their order.
func PointsFromAggregates(rows []types.MinuteAggregate) []Point {
	out := make([]Point, 0, len(rows))
	for _, r := range rows {
		out = append(out, Point{
			Minute:      r.Minute,
			Temperature: r.AvgTemperature,
			Humidity:    r.AvgHumidity,
			WaterLevel:  r.AvgWaterLevel,
		})
	}
	return out
}

// Title returns the chart title for a report date and optional species.
func Title(date time.Time, species string) string {
	title := "Daily report - " + date.Format("2006-01-02")
	if species != "" {
		title += " | " + species
	}
	return title
}

// Render draws the report and returns it as a PNG data URI.
func (r *Renderer) Render(req Request) (string, error) {
	png, err := r.RenderPNG(req)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// RenderPNG draws the report and returns the raw PNG bytes.
func (r *Renderer) RenderPNG(req Request) ([]byte, error) {
	ch := r.build(req)
	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) build(req Request) gochart.Chart {
	loc := req.Location
	if loc == nil {
		loc = time.Local
	}

	series := dataSeries(req.Points)
	hasData := len(series) > 0

	xMin, xMax := xBounds(req, loc)
	yMin, yMax := yBounds(req.Points, req.Range)

	if hasData && req.Range != nil {
		series = append(series, thresholdSeries(req.Range, xMin, xMax)...)
	}
	if !hasData {
		series = append(series, placeholder(xMin, xMax, yMin))
	}

	ch := gochart.Chart{
		Title:  Title(req.Date, req.Species),
		Width:  r.Width,
		Height: r.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			Name:           "Time",
			Range:          &gochart.ContinuousRange{Min: timeToFloat(xMin), Max: timeToFloat(xMax)},
			ValueFormatter: clockFormatter(loc),
			GridMajorStyle: gridStyle(),
		},
		YAxis: gochart.YAxis{
			Name:           "Value",
			Range:          &gochart.ContinuousRange{Min: yMin, Max: yMax},
			ValueFormatter: axisValue,
			GridMajorStyle: gridStyle(),
		},
		Series: series,
	}
	if hasData {
		ch.Elements = []gochart.Renderable{gochart.LegendLeft(&ch)}
	}
	return ch
}

func dataSeries(points []Point) []gochart.Series {
	defs := []struct {
		name  string
		color drawing.Color
		width float64
		pick  func(Point) *float64
	}{
		{"Temperature (°C)", temperatureColor, 2.5, func(p Point) *float64 { return p.Temperature }},
		{"Humidity (%)", humidityColor, 2.5, func(p Point) *float64 { return p.Humidity }},
		{"Water level (%)", waterLevelColor, 2, func(p Point) *float64 { return p.WaterLevel }},
	}

	var out []gochart.Series
	for _, d := range defs {
		var xs []time.Time
		var ys []float64
		for _, p := range points {
			if v := d.pick(p); v != nil {
				xs = append(xs, p.Minute)
				ys = append(ys, *v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		out = append(out, gochart.TimeSeries{
			Name:    d.name,
			XValues: xs,
			YValues: ys,
			Style: gochart.Style{
				StrokeColor: d.color,
				StrokeWidth: d.width,
				DotColor:    d.color,
				DotWidth:    3,
			},
		})
	}
	return out
}

func thresholdSeries(rng *types.SpeciesRange, xMin, xMax time.Time) []gochart.Series {
	line := func(name string, y float64, color drawing.Color, dash []float64) gochart.Series {
		return gochart.TimeSeries{
			Name:    name,
			XValues: []time.Time{xMin, xMax},
			YValues: []float64{y, y},
			Style: gochart.Style{
				StrokeColor:     color.WithAlpha(180),
				StrokeWidth:     2,
				StrokeDashArray: dash,
			},
		}
	}
	return []gochart.Series{
		line(fmt.Sprintf("Temp min (%s°C)", formatValue(rng.MinTemp)), rng.MinTemp, temperatureColor, dashed),
		line(fmt.Sprintf("Temp max (%s°C)", formatValue(rng.MaxTemp)), rng.MaxTemp, temperatureColor, dashed),
		line(fmt.Sprintf("Hum min (%s%%)", formatValue(rng.MinHum)), rng.MinHum, humidityColor, dotted),
		line(fmt.Sprintf("Hum max (%s%%)", formatValue(rng.MaxHum)), rng.MaxHum, humidityColor, dotted),
	}
}

// placeholder gives the plotting library a valid range on days without data.
func placeholder(xMin, xMax time.Time, y float64) gochart.Series {
	return gochart.TimeSeries{
		XValues: []time.Time{xMin, xMax},
		YValues: []float64{y, y},
		Style: gochart.Style{
			StrokeColor: drawing.ColorTransparent,
			StrokeWidth: 1,
		},
	}
}

// xBounds spans the data minutes, or the whole day when there is at most one minute.
func xBounds(req Request, loc *time.Location) (time.Time, time.Time) {
	var first, last time.Time
	for _, p := range req.Points {
		if first.IsZero() || p.Minute.Before(first) {
			first = p.Minute
		}
		if last.IsZero() || p.Minute.After(last) {
			last = p.Minute
		}
	}
	if first.IsZero() || !last.After(first) {
		d := req.Date.In(loc)
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		end := start.AddDate(0, 0, 1).Add(-time.Minute)
		if !first.IsZero() && (first.Before(start) || first.After(end)) {
			return first.Add(-30 * time.Minute), first.Add(30 * time.Minute)
		}
		return start, end
	}
	return first, last
}

// yLimit caps the plotted magnitude so the axis delta stays finite.
const yLimit = math.MaxFloat64 / 4

func yBounds(points []Point, rng *types.SpeciesRange) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	see := func(v float64) {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for _, p := range points {
		for _, v := range []*float64{p.Temperature, p.Humidity, p.WaterLevel} {
			if v != nil {
				see(*v)
			}
		}
	}
	if rng != nil {
		see(rng.MinTemp)
		see(rng.MaxTemp)
		see(rng.MinHum)
		see(rng.MaxHum)
	}
	if math.IsInf(lo, 0) {
		return 0, 100
	}
	lo = math.Max(-yLimit, math.Min(lo, yLimit))
	hi = math.Max(-yLimit, math.Min(hi, yLimit))
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = math.Max(1, math.Abs(hi)*0.05)
	}
	return math.Floor(lo - pad), math.Ceil(hi + pad)
}

func clockFormatter(loc *time.Location) gochart.ValueFormatter {
	return func(v interface{}) string {
		switch t := v.(type) {
		case time.Time:
			return t.In(loc).Format("15:04")
		case float64:
			return time.Unix(0, int64(t)).In(loc).Format("15:04")
		default:
			return ""
		}
	}
}

func gridStyle() gochart.Style {
	return gochart.Style{
		StrokeColor: drawing.ColorFromHex("cccccc"),
		StrokeWidth: 0.5,
	}
}

func timeToFloat(t time.Time) float64 {
	return float64(t.UnixNano())
}

// axisValue keeps tick labels narrow for out-of-scale readings.
func axisValue(v interface{}) string {
	if f, ok := v.(float64); ok && math.Abs(f) >= 1e9 {
		return strconv.FormatFloat(f, 'g', 3, 64)
	}
	return gochart.FloatValueFormatter(v)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
