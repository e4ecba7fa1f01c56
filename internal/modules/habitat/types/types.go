package types

import "time"

// Reading is one raw sample from a sensor node.
type Reading struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WaterLevel  float64   `json:"waterLevel"`
	Time        time.Time `json:"time"`
}

// MinuteAggregate holds the averages of all readings within one calendar minute.
// Averages are nil when the aggregation produced no value for that column.
type MinuteAggregate struct {
	Minute         time.Time `json:"minute"`
	AvgTemperature *float64  `json:"avgTemperature"`
	AvgHumidity    *float64  `json:"avgHumidity"`
	AvgWaterLevel  *float64  `json:"avgWaterLevel"`
	SampleCount    int       `json:"sampleCount"`
}

// HasValue reports whether at least one average is set.
func (a MinuteAggregate) HasValue() bool {
	return a.AvgTemperature != nil || a.AvgHumidity != nil || a.AvgWaterLevel != nil
}

// SpeciesRange is the acceptable temperature and humidity band for a species.
type SpeciesRange struct {
	Name    string  `json:"name"`
	MinTemp float64 `json:"minTemp"`
	MaxTemp float64 `json:"maxTemp"`
	MinHum  float64 `json:"minHum"`
	MaxHum  float64 `json:"maxHum"`
}
