package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"habitat-monitor/internal/modules/habitat/types"
)

// ErrNotFound is returned when a single-row lookup has no match.
var ErrNotFound = errors.New("not found")

// Timestamps are stored as fixed-width UTC text so that lexical order is time order.
const tsLayout = "2006-01-02T15:04:05.000Z"

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/get-minute-averages.sql
var getMinuteAveragesSQL string

//go:embed sql/get-latest-average.sql
var getLatestAverageSQL string

//go:embed sql/get-species-range.sql
var getSpeciesRangeSQL string

//go:embed sql/list-species.sql
var listSpeciesSQL string

//go:embed sql/aggregate-minutes.sql
var aggregateMinutesSQL string

type HabitatRepository interface {
	InsertReading(ctx context.Context, r types.Reading) error
	GetLatestReading(ctx context.Context) (types.Reading, error)
	GetMinuteAggregates(ctx context.Context, from time.Time, to time.Time) ([]types.MinuteAggregate, error)
	GetLatestAggregate(ctx context.Context) (types.MinuteAggregate, error)
	GetSpeciesRange(ctx context.Context, name string) (types.SpeciesRange, error)
	ListSpecies(ctx context.Context) ([]types.SpeciesRange, error)
	AggregateMinutes(ctx context.Context, since time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type repositoryImpl struct {
	db *sql.DB
}

// NewRepository returns the SQLite-backed repository.
func NewRepository(db *sql.DB) HabitatRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertReading(ctx context.Context, rd types.Reading) error {
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		formatTS(rd.Time),
		rd.Temperature,
		rd.Humidity,
		rd.WaterLevel,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetLatestReading(ctx context.Context) (types.Reading, error) {
	var rd types.Reading
	var ts string
	err := r.db.QueryRowContext(ctx, getLatestReadingSQL).Scan(&ts, &rd.Temperature, &rd.Humidity, &rd.WaterLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Reading{}, ErrNotFound
	}
	if err != nil {
		return types.Reading{}, fmt.Errorf("latest reading: %w", err)
	}
	if rd.Time, err = parseTS(ts); err != nil {
		return types.Reading{}, err
	}
	return rd, nil
}

func (r *repositoryImpl) GetMinuteAggregates(ctx context.Context, from time.Time, to time.Time) ([]types.MinuteAggregate, error) {
	rows, err := r.db.QueryContext(ctx, getMinuteAveragesSQL, formatTS(from), formatTS(to))
	if err != nil {
		return nil, fmt.Errorf("minute averages: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close minute averages rows", "error", err)
		}
	}()

	out := make([]types.MinuteAggregate, 0)
	for rows.Next() {
		a, err := scanAggregate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetLatestAggregate(ctx context.Context) (types.MinuteAggregate, error) {
	a, err := scanAggregate(r.db.QueryRowContext(ctx, getLatestAverageSQL))
	if errors.Is(err, sql.ErrNoRows) {
		return types.MinuteAggregate{}, ErrNotFound
	}
	if err != nil {
		return types.MinuteAggregate{}, fmt.Errorf("latest average: %w", err)
	}
	return a, nil
}

func (r *repositoryImpl) GetSpeciesRange(ctx context.Context, name string) (types.SpeciesRange, error) {
	var s types.SpeciesRange
	err := r.db.QueryRowContext(ctx, getSpeciesRangeSQL, name).Scan(&s.Name, &s.MinTemp, &s.MaxTemp, &s.MinHum, &s.MaxHum)
	if errors.Is(err, sql.ErrNoRows) {
		return types.SpeciesRange{}, ErrNotFound
	}
	if err != nil {
		return types.SpeciesRange{}, fmt.Errorf("species range %q: %w", name, err)
	}
	return s, nil
}

func (r *repositoryImpl) ListSpecies(ctx context.Context) ([]types.SpeciesRange, error) {
	rows, err := r.db.QueryContext(ctx, listSpeciesSQL)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close species rows", "error", err)
		}
	}()
	out := make([]types.SpeciesRange, 0)
	for rows.Next() {
		var s types.SpeciesRange
		if err := rows.Scan(&s.Name, &s.MinTemp, &s.MaxTemp, &s.MinHum, &s.MaxHum); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) AggregateMinutes(ctx context.Context, since time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, aggregateMinutesSQL, formatTS(since.UTC().Truncate(time.Minute)))
	if err != nil {
		return 0, fmt.Errorf("aggregate minutes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("aggregate minutes: %w", err)
	}
	return n, nil
}

func (r *repositoryImpl) Ping(ctx context.Context) error {
	var ok int
	return r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAggregate(row rowScanner) (types.MinuteAggregate, error) {
	var a types.MinuteAggregate
	var minute string
	var temp, hum, level sql.NullFloat64
	if err := row.Scan(&minute, &temp, &hum, &level, &a.SampleCount); err != nil {
		return types.MinuteAggregate{}, err
	}
	t, err := parseTS(minute)
	if err != nil {
		return types.MinuteAggregate{}, err
	}
	a.Minute = t
	a.AvgTemperature = nullableFloat(temp)
	a.AvgHumidity = nullableFloat(hum)
	a.AvgWaterLevel = nullableFloat(level)
	return a, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w; RFC3339Nano: %w", s, err, err2)
		}
		return t2, nil
	}
	return t, nil
}
