// Package storage provides the session scoped query API over the
// backing store, consumed by streaming retrieval and by the content
// cache update tasks. Sessions are never shared across concurrent
// workers; each worker opens and releases its own.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ObservationFilter narrows an observation query. Empty slices match
// everything.
type ObservationFilter struct {
	Offerings            []string
	Procedures           []string
	ObservableProperties []string
	FeaturesOfInterest   []string
	Period               *types.TimePeriod
}

// ObservationRow is one raw row from the observation table, carrying a
// single value. The streaming cursor converts rows to observations and
// the merging cursor batches same constellation rows together.
type ObservationRow struct {
	ID                 string
	Procedure          string
	ObservableProperty string
	FeatureOfInterest  string
	ObservationType    string
	PhenomenonStart    time.Time
	PhenomenonEnd      time.Time
	ResultTime         time.Time
	UnitOfMeasurement  string
	Value              float64
	Latitude           float64
	Longitude          float64
	CRS                string
}

// Observation converts the row to its internal representation
func (row ObservationRow) Observation() types.Observation {
	observation := types.Observation{
		ID:                 row.ID,
		Procedure:          row.Procedure,
		ObservableProperty: row.ObservableProperty,
		FeatureOfInterest:  row.FeatureOfInterest,
		ObservationType:    row.ObservationType,
		PhenomenonTime:     types.NewTimePeriod(row.PhenomenonStart, row.PhenomenonEnd),
		ResultTime:         row.ResultTime,
		UnitOfMeasurement:  row.UnitOfMeasurement,
		Values:             []types.TimeValue{{Time: row.PhenomenonEnd, Value: row.Value}},
		CRS:                row.CRS,
	}

	if row.Latitude != 0 || row.Longitude != 0 {
		observation.Geometry = &types.Point{Latitude: row.Latitude, Longitude: row.Longitude}
	}

	return observation
}

type OfferingRow struct {
	ID   string
	Name string
}

type ProcedureRow struct {
	ID                 string
	Offering           string
	ObservableProperty string
}

type FeatureRow struct {
	ID        string
	Name      string
	Offering  string
	Latitude  float64
	Longitude float64
	CRS       string
}

//go:generate moq -rm -out storage_mock.go . Store Session

// Store hands out exclusive backing store sessions
type Store interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Session is a single worker's handle on the backing store. All queries
// are paged with an offset and a limit so that callers can bound their
// memory use. Close releases the underlying connection and is safe to
// call more than once.
type Session interface {
	QueryObservations(ctx context.Context, filter ObservationFilter, offset, limit int) ([]ObservationRow, error)
	QueryOfferings(ctx context.Context, offset, limit int) ([]OfferingRow, error)
	QueryProcedures(ctx context.Context, offset, limit int) ([]ProcedureRow, error)
	QueryFeatures(ctx context.Context, offset, limit int) ([]FeatureRow, error)
	InsertObservation(ctx context.Context, offering string, observation types.Observation) error
	InsertProcedure(ctx context.Context, procedure ProcedureRow) error
	DeleteProcedure(ctx context.Context, procedure string) error
	Close()
}

// NewStore wraps a pgx connection pool in the Store interface
func NewStore(pool *pgxpool.Pool) Store {
	return &pgxStore{pool: pool}
}

// Connect opens a pgx connection pool against the given url
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return pool, nil
}

type pgxStore struct {
	pool *pgxpool.Pool
}

func (s *pgxStore) OpenSession(ctx context.Context) (Session, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to acquire connection: %w", err)
	}

	return &pgxSession{conn: conn}, nil
}

type pgxSession struct {
	conn     *pgxpool.Conn
	released bool
}

func (s *pgxSession) Close() {
	if s.released {
		return
	}

	s.released = true
	s.conn.Release()
}

const observationQuery string = `
	SELECT id, procedure, observable_property, feature_of_interest, observation_type,
	       phenomenon_start, phenomenon_end, result_time, uom, value, latitude, longitude, crs
	FROM observations
	WHERE ($1::text[] IS NULL OR offering = ANY($1))
	  AND ($2::text[] IS NULL OR procedure = ANY($2))
	  AND ($3::text[] IS NULL OR observable_property = ANY($3))
	  AND ($4::text[] IS NULL OR feature_of_interest = ANY($4))
	  AND ($5::timestamptz IS NULL OR phenomenon_end >= $5)
	  AND ($6::timestamptz IS NULL OR phenomenon_start <= $6)
	ORDER BY procedure, observable_property, feature_of_interest, phenomenon_start, id
	OFFSET $7 LIMIT $8`

func (s *pgxSession) QueryObservations(ctx context.Context, filter ObservationFilter, offset, limit int) ([]ObservationRow, error) {
	var start, end *time.Time
	if filter.Period != nil {
		start, end = &filter.Period.Start, &filter.Period.End
	}

	rows, err := s.conn.Query(ctx, observationQuery,
		textArray(filter.Offerings),
		textArray(filter.Procedures),
		textArray(filter.ObservableProperties),
		textArray(filter.FeaturesOfInterest),
		start, end, offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("observation query failed: %w", err)
	}

	return collect(rows, func(rows pgx.Rows) (ObservationRow, error) {
		row := ObservationRow{}
		err := rows.Scan(
			&row.ID, &row.Procedure, &row.ObservableProperty, &row.FeatureOfInterest,
			&row.ObservationType, &row.PhenomenonStart, &row.PhenomenonEnd, &row.ResultTime,
			&row.UnitOfMeasurement, &row.Value, &row.Latitude, &row.Longitude, &row.CRS,
		)
		return row, err
	})
}

func (s *pgxSession) QueryOfferings(ctx context.Context, offset, limit int) ([]OfferingRow, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name FROM offerings ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("offering query failed: %w", err)
	}

	return collect(rows, func(rows pgx.Rows) (OfferingRow, error) {
		row := OfferingRow{}
		err := rows.Scan(&row.ID, &row.Name)
		return row, err
	})
}

func (s *pgxSession) QueryProcedures(ctx context.Context, offset, limit int) ([]ProcedureRow, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, offering, observable_property FROM procedures ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("procedure query failed: %w", err)
	}

	return collect(rows, func(rows pgx.Rows) (ProcedureRow, error) {
		row := ProcedureRow{}
		err := rows.Scan(&row.ID, &row.Offering, &row.ObservableProperty)
		return row, err
	})
}

func (s *pgxSession) QueryFeatures(ctx context.Context, offset, limit int) ([]FeatureRow, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, name, offering, latitude, longitude, crs FROM features ORDER BY id OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("feature query failed: %w", err)
	}

	return collect(rows, func(rows pgx.Rows) (FeatureRow, error) {
		row := FeatureRow{}
		err := rows.Scan(&row.ID, &row.Name, &row.Offering, &row.Latitude, &row.Longitude, &row.CRS)
		return row, err
	})
}

func (s *pgxSession) InsertObservation(ctx context.Context, offering string, observation types.Observation) error {
	value := 0.0
	resultTime := observation.ResultTime

	if len(observation.Values) > 0 {
		value = observation.Values[len(observation.Values)-1].Value
	}

	var latitude, longitude float64
	if observation.Geometry != nil {
		latitude, longitude = observation.Geometry.Latitude, observation.Geometry.Longitude
	}

	_, err := s.conn.Exec(ctx,
		`INSERT INTO observations (id, offering, procedure, observable_property, feature_of_interest,
			observation_type, phenomenon_start, phenomenon_end, result_time, uom, value, latitude, longitude, crs)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		observation.ID, offering, observation.Procedure, observation.ObservableProperty,
		observation.FeatureOfInterest, observation.ObservationType,
		observation.PhenomenonTime.Start, observation.PhenomenonTime.End, resultTime,
		observation.UnitOfMeasurement, value, latitude, longitude, observation.CRS,
	)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	return nil
}

func (s *pgxSession) InsertProcedure(ctx context.Context, procedure ProcedureRow) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO procedures (id, offering, observable_property) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET offering = $2, observable_property = $3`,
		procedure.ID, procedure.Offering, procedure.ObservableProperty,
	)
	if err != nil {
		return fmt.Errorf("insert failed: %w", err)
	}

	return nil
}

func (s *pgxSession) DeleteProcedure(ctx context.Context, procedure string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM procedures WHERE id = $1`, procedure)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	_, err = s.conn.Exec(ctx, `DELETE FROM observations WHERE procedure = $1`, procedure)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	return nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	result := []T{}

	for rows.Next() {
		row, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}

		result = append(result, row)
	}

	return result, rows.Err()
}

func textArray(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	return values
}
