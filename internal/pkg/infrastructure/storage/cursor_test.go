package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/matryer/is"
)

func TestCursorStreamsAllRowsChunkByChunk(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := sessionOverRows(rowsOf(5, "temperature"))
	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	observations := drain(is, ctx, cursor)

	is.Equal(len(observations), 5)
	is.Equal(observations[0].ID, "obs-0")
	is.Equal(observations[4].ID, "obs-4")
	is.Equal(cursor.Fetches(), 3) // a short final chunk ends the stream without an extra fetch
}

func TestCursorOnAChunkAlignedResultSet(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := sessionOverRows(rowsOf(4, "temperature"))
	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	observations := drain(is, ctx, cursor)

	is.Equal(len(observations), 4)
	is.Equal(cursor.Fetches(), 3) // a full final chunk needs one empty fetch to detect the end
}

func TestCursorOnAnEmptyResultSet(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := sessionOverRows(nil)
	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	hasNext, err := cursor.HasNext(ctx)
	is.NoErr(err)
	is.True(!hasNext)
	is.Equal(len(session.CloseCalls()), 1) // exhaustion should release the session
}

func TestThatTheSessionIsClosedExactlyOnce(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := sessionOverRows(rowsOf(3, "temperature"))
	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	drain(is, ctx, cursor)

	cursor.Close()
	cursor.Close()

	is.Equal(len(session.CloseCalls()), 1)
}

func TestThatAnEarlyCloseEndsTheStream(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := sessionOverRows(rowsOf(5, "temperature"))
	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	_, err := cursor.Next(ctx)
	is.NoErr(err)

	cursor.Close()

	hasNext, err := cursor.HasNext(ctx)
	is.NoErr(err)
	is.True(!hasNext)
	is.Equal(len(session.CloseCalls()), 1)
}

func TestThatAFailedFetchClosesTheSession(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	session := &SessionMock{
		QueryObservationsFunc: func(ctx context.Context, filter ObservationFilter, offset, limit int) ([]ObservationRow, error) {
			return nil, errors.New("connection reset")
		},
		CloseFunc: func() {},
	}

	cursor := NewObservationCursor(session, ObservationFilter{}, 2)

	_, err := cursor.HasNext(ctx)
	is.True(errors.Is(err, ows.ErrBackingStore))
	is.Equal(len(session.CloseCalls()), 1)
}

func TestMergingCursorBatchesConsecutiveConstellations(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	rows := append(rowsOf(3, "temperature"), rowsOf(2, "humidity")...)
	session := sessionOverRows(rows)

	cursor := NewMergingObservationCursor(NewObservationCursor(session, ObservationFilter{}, 2))
	defer cursor.Close()

	first, err := cursor.Next(ctx)
	is.NoErr(err)
	is.Equal(first.ObservableProperty, "temperature")
	is.Equal(len(first.Values), 3) // consecutive same constellation rows should fold into one

	second, err := cursor.Next(ctx)
	is.NoErr(err)
	is.Equal(second.ObservableProperty, "humidity")
	is.Equal(len(second.Values), 2)

	hasNext, err := cursor.HasNext(ctx)
	is.NoErr(err)
	is.True(!hasNext)
}

func TestMergingCursorWidensThePhenomenonTime(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	rows := rowsOf(4, "temperature")
	session := sessionOverRows(rows)

	cursor := NewMergingObservationCursor(NewObservationCursor(session, ObservationFilter{}, 3))
	defer cursor.Close()

	merged, err := cursor.Next(ctx)
	is.NoErr(err)
	is.Equal(merged.PhenomenonTime.Start, rows[0].PhenomenonStart)
	is.Equal(merged.PhenomenonTime.End, rows[3].PhenomenonEnd)
}

func drain(is *is.I, ctx context.Context, cursor *ObservationCursor) []types.Observation {
	var observations []types.Observation

	for {
		hasNext, err := cursor.HasNext(ctx)
		is.NoErr(err)

		if !hasNext {
			return observations
		}

		observation, err := cursor.Next(ctx)
		is.NoErr(err)

		observations = append(observations, observation)
	}
}

// rowsOf creates count rows for a single constellation, ordered by
// phenomenon time the way the backing store returns them
func rowsOf(count int, property string) []ObservationRow {
	rows := make([]ObservationRow, 0, count)

	for i := 0; i < count; i++ {
		at := time.Date(2026, 3, 14, 10, i, 0, 0, time.UTC)

		rows = append(rows, ObservationRow{
			ID:                 fmt.Sprintf("obs-%d", i),
			Procedure:          "urn:ogc:object:sensor:temp-01",
			ObservableProperty: property,
			FeatureOfInterest:  "foi-1",
			ObservationType:    types.MeasurementType,
			PhenomenonStart:    at,
			PhenomenonEnd:      at.Add(30 * time.Second),
			ResultTime:         at.Add(time.Minute),
			UnitOfMeasurement:  "Cel",
			Value:              20.0 + float64(i),
		})
	}

	return rows
}

func sessionOverRows(rows []ObservationRow) *SessionMock {
	return &SessionMock{
		QueryObservationsFunc: func(ctx context.Context, filter ObservationFilter, offset, limit int) ([]ObservationRow, error) {
			if offset >= len(rows) {
				return nil, nil
			}

			end := offset + limit
			if end > len(rows) {
				end = len(rows)
			}

			return rows[offset:end], nil
		},
		CloseFunc: func() {},
	}
}
