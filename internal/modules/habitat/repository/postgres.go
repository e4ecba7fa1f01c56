package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitat-monitor/internal/modules/habitat/types"
)

//go:embed pgsql/schema.sql
var pgSchemaSQL string

const pgInsertReadingSQL = `
    INSERT INTO readings (ts, temperature_c, humidity_pct, water_level_pct)
    VALUES ($1, $2, $3, $4)
`

const pgLatestReadingSQL = `
    SELECT ts, temperature_c, humidity_pct, water_level_pct
    FROM readings
    ORDER BY ts DESC, id DESC
    LIMIT 1
`

const pgMinuteAveragesSQL = `
    SELECT minute, avg_temperature, avg_humidity, avg_water_level, sample_count
    FROM minute_averages
    WHERE minute >= $1 AND minute < $2
    ORDER BY minute ASC
`

const pgLatestAverageSQL = `
    SELECT minute, avg_temperature, avg_humidity, avg_water_level, sample_count
    FROM minute_averages
    WHERE avg_temperature IS NOT NULL
       OR avg_humidity IS NOT NULL
       OR avg_water_level IS NOT NULL
    ORDER BY minute DESC
    LIMIT 1
`

const pgSpeciesRangeSQL = `
    SELECT name, min_temp, max_temp, min_hum, max_hum
    FROM species_ranges
    WHERE lower(name) = lower($1)
`

const pgListSpeciesSQL = `
    SELECT name, min_temp, max_temp, min_hum, max_hum
    FROM species_ranges
    ORDER BY name
`

const pgAggregateMinutesSQL = `
    INSERT INTO minute_averages (minute, avg_temperature, avg_humidity, avg_water_level, sample_count)
    SELECT date_trunc('minute', ts), AVG(temperature_c), AVG(humidity_pct), AVG(water_level_pct), COUNT(*)
    FROM readings
    WHERE ts >= $1
    GROUP BY date_trunc('minute', ts)
    ON CONFLICT (minute) DO UPDATE
    SET avg_temperature = EXCLUDED.avg_temperature,
        avg_humidity    = EXCLUDED.avg_humidity,
        avg_water_level = EXCLUDED.avg_water_level,
        sample_count    = EXCLUDED.sample_count
`

// PostgresStore implements HabitatRepository on a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ HabitatRepository = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the tables and seed species if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the pool resources.
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) InsertReading(ctx context.Context, r types.Reading) error {
	_, err := s.pool.Exec(ctx, pgInsertReadingSQL, r.Time.UTC(), r.Temperature, r.Humidity, r.WaterLevel)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLatestReading(ctx context.Context) (types.Reading, error) {
	var r types.Reading
	err := s.pool.QueryRow(ctx, pgLatestReadingSQL).Scan(&r.Time, &r.Temperature, &r.Humidity, &r.WaterLevel)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Reading{}, ErrNotFound
	}
	if err != nil {
		return types.Reading{}, fmt.Errorf("latest reading: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) GetMinuteAggregates(ctx context.Context, from time.Time, to time.Time) ([]types.MinuteAggregate, error) {
	rows, err := s.pool.Query(ctx, pgMinuteAveragesSQL, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("minute averages: %w", err)
	}
	defer rows.Close()

	out := make([]types.MinuteAggregate, 0)
	for rows.Next() {
		var a types.MinuteAggregate
		if err := rows.Scan(&a.Minute, &a.AvgTemperature, &a.AvgHumidity, &a.AvgWaterLevel, &a.SampleCount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetLatestAggregate(ctx context.Context) (types.MinuteAggregate, error) {
	var a types.MinuteAggregate
	err := s.pool.QueryRow(ctx, pgLatestAverageSQL).Scan(&a.Minute, &a.AvgTemperature, &a.AvgHumidity, &a.AvgWaterLevel, &a.SampleCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.MinuteAggregate{}, ErrNotFound
	}
	if err != nil {
		return types.MinuteAggregate{}, fmt.Errorf("latest average: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) GetSpeciesRange(ctx context.Context, name string) (types.SpeciesRange, error) {
	var sr types.SpeciesRange
	err := s.pool.QueryRow(ctx, pgSpeciesRangeSQL, name).Scan(&sr.Name, &sr.MinTemp, &sr.MaxTemp, &sr.MinHum, &sr.MaxHum)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.SpeciesRange{}, ErrNotFound
	}
	if err != nil {
		return types.SpeciesRange{}, fmt.Errorf("species range %q: %w", name, err)
	}
	return sr, nil
}

func (s *PostgresStore) ListSpecies(ctx context.Context) ([]types.SpeciesRange, error) {
	rows, err := s.pool.Query(ctx, pgListSpeciesSQL)
	if err != nil {
		return nil, fmt.Errorf("list species: %w", err)
	}
	defer rows.Close()

	out := make([]types.SpeciesRange, 0)
	for rows.Next() {
		var sr types.SpeciesRange
		if err := rows.Scan(&sr.Name, &sr.MinTemp, &sr.MaxTemp, &sr.MinHum, &sr.MaxHum); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AggregateMinutes(ctx context.Context, since time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, pgAggregateMinutesSQL, since.UTC().Truncate(time.Minute))
	if err != nil {
		return 0, fmt.Errorf("aggregate minutes: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
