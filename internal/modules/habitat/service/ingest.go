package service

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"habitat-monitor/internal/modules/habitat/stability"
	"habitat-monitor/internal/modules/habitat/types"
)

// Wire names of the submission fields, shared by the form, JSON and MQTT paths.
const (
	FieldTemperature = "temp"
	FieldHumidity    = "hum"
	FieldWaterLevel  = "nivel_agua"
	FieldStability   = "estabilidad"
)

// Submission is an unvalidated reading. Values may be strings, json.Number,
// float64 or ints; a nil value means the field was absent.
type Submission struct {
	Temperature any
	Humidity    any
	WaterLevel  any
	Stability   any
}

// SubmissionFromMap picks the wire fields out of a decoded JSON object or form.
func SubmissionFromMap(m map[string]any) Submission {
	return Submission{
		Temperature: m[FieldTemperature],
		Humidity:    m[FieldHumidity],
		WaterLevel:  m[FieldWaterLevel],
		Stability:   m[FieldStability],
	}
}

// Validate parses the three measurements and classifies the stability flag.
// The returned reading has no timestamp.
func (sub Submission) Validate() (types.Reading, stability.State, error) {
	var r types.Reading
	fields := []struct {
		name string
		raw  any
		dst  *float64
	}{
		{FieldTemperature, sub.Temperature, &r.Temperature},
		{FieldHumidity, sub.Humidity, &r.Humidity},
		{FieldWaterLevel, sub.WaterLevel, &r.WaterLevel},
	}

	// every field is checked for presence before any is parsed
	for _, f := range fields {
		if isMissing(f.raw) {
			return types.Reading{}, stability.Unstable, &ValidationError{Field: f.name, Reason: reasonMissing}
		}
	}
	for _, f := range fields {
		v, ok := parseNumber(f.raw)
		if !ok {
			return types.Reading{}, stability.Unstable, &ValidationError{Field: f.name, Reason: reasonNotNumeric}
		}
		*f.dst = v
	}
	return r, stability.Classify(sub.Stability), nil
}

// Ingest validates the submission, stores it stamped with the current time and
// then publishes its stability to the shared cell.
func (s *Service) Ingest(ctx context.Context, sub Submission) (types.Reading, error) {
	r, state, err := sub.Validate()
	if err != nil {
		return types.Reading{}, err
	}
	r.Time = s.now().UTC()

	if err := s.repository.InsertReading(ctx, r); err != nil {
		s.logger.Error("insert reading failed", "error", err)
		return types.Reading{}, &PersistenceError{Err: err}
	}
	s.stability.Store(state)

	s.logger.Debug("reading stored",
		"temperature", r.Temperature,
		"humidity", r.Humidity,
		"water_level", r.WaterLevel,
		"stability", state.String(),
	)
	return r, nil
}

func isMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return strings.TrimSpace(t.String()) == ""
	default:
		return false
	}
}

func parseNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case json.Number:
		p, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
