package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/matryer/is"
)

func TestRebuildPopulatesTheSnapshot(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cache := NewContentCache()
	engine := NewUpdateEngine(cache, newStore(newSession(nil)), 2)

	errs := engine.Rebuild(ctx, DefaultTasks([]string{"application/json"}))
	is.Equal(len(errs), 0)

	snapshot := cache.Current()
	is.Equal(snapshot.Offerings["off-1"], "Offering One")
	is.Equal(snapshot.ProceduresByOffering["off-1"], []string{"urn:ogc:object:sensor:temp-01"})
	is.Equal(snapshot.OfferingsByProcedure["urn:ogc:object:sensor:temp-01"], []string{"off-1"})
	is.Equal(snapshot.ObservablePropertiesByOffering["off-1"], []string{"temperature"})
	is.Equal(len(snapshot.Features), 1)
	is.True(!snapshot.UpdatedAt.IsZero())
}

func TestThatResponseFormatsFollowTheOfferingsTask(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cache := NewContentCache()
	engine := NewUpdateEngine(cache, newStore(newSession(nil)), 2)

	errs := engine.Rebuild(ctx, DefaultTasks([]string{"application/xml", "application/json"}))
	is.Equal(len(errs), 0)

	// the format task runs serially after the offerings task and reads
	// its staged output, so every offering gets the configured formats
	formats := cache.Current().ResponseFormatsByOffering
	is.Equal(formats["off-1"], []string{"application/xml", "application/json"})
}

func TestThatAFailedTaskKeepsItsPreviousSlice(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cache := NewContentCache()

	errs := NewUpdateEngine(cache, newStore(newSession(nil)), 2).Rebuild(ctx, DefaultTasks(nil))
	is.Equal(len(errs), 0)

	broken := newSession(errors.New("connection reset"))
	errs = NewUpdateEngine(cache, newStore(broken), 2).Rebuild(ctx, DefaultTasks(nil))
	is.True(len(errs) > 0) // the failing tasks should be reported

	snapshot := cache.Current()
	is.Equal(snapshot.ProceduresByOffering["off-1"], []string{"urn:ogc:object:sensor:temp-01"}) // stale value should survive the failed task
	is.Equal(snapshot.Offerings["off-2"], "Offering Two")                                       // sibling slices should still be updated
}

func TestThatASnapshotIsPublishedAtomically(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cache := NewContentCache()
	before := cache.Current()

	engine := NewUpdateEngine(cache, newStore(newSession(nil)), 2)

	errs := engine.Rebuild(ctx, DefaultTasks(nil))
	is.Equal(len(errs), 0)

	is.Equal(len(before.Offerings), 0) // the pre-rebuild snapshot must not be mutated
	is.True(cache.Current() != before)
}

func TestContentsAreSortedAndComplete(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	cache := NewContentCache()
	engine := NewUpdateEngine(cache, newStore(newSession(nil)), 2)

	errs := engine.Rebuild(ctx, DefaultTasks([]string{"application/json"}))
	is.Equal(len(errs), 0)

	contents := cache.Current().Contents()
	is.Equal(len(contents), 2)
	is.Equal(contents[0].ID, "off-1")
	is.Equal(contents[1].ID, "off-2")
	is.True(contents[0].ObservedArea != nil)
}

func TestAppendUniqueKeepsValuesSortedAndDistinct(t *testing.T) {
	is := is.New(t)

	values := []string{}
	for _, value := range []string{"humidity", "temperature", "humidity", "co2"} {
		values = appendUnique(values, value)
	}

	is.Equal(values, []string{"co2", "humidity", "temperature"})
}

// newSession returns a session over a small fixed inventory of two
// offerings, one procedure and one feature. A non-nil failure makes the
// procedure query fail while the sibling queries keep working.
func newSession(procedureFailure error) *storage.SessionMock {
	return &storage.SessionMock{
		QueryOfferingsFunc: func(ctx context.Context, offset, limit int) ([]storage.OfferingRow, error) {
			if offset > 0 {
				return nil, nil
			}

			return []storage.OfferingRow{
				{ID: "off-1", Name: "Offering One"},
				{ID: "off-2", Name: "Offering Two"},
			}, nil
		},
		QueryProceduresFunc: func(ctx context.Context, offset, limit int) ([]storage.ProcedureRow, error) {
			if procedureFailure != nil {
				return nil, procedureFailure
			}

			if offset > 0 {
				return nil, nil
			}

			return []storage.ProcedureRow{
				{ID: "urn:ogc:object:sensor:temp-01", Offering: "off-1", ObservableProperty: "temperature"},
			}, nil
		},
		QueryFeaturesFunc: func(ctx context.Context, offset, limit int) ([]storage.FeatureRow, error) {
			if offset > 0 {
				return nil, nil
			}

			return []storage.FeatureRow{
				{ID: "foi-1", Name: "Roof Sensor", Offering: "off-1", Latitude: 57.7, Longitude: 11.9, CRS: "EPSG:4326"},
			}, nil
		},
		CloseFunc: func() {},
	}
}

func newStore(session *storage.SessionMock) *storage.StoreMock {
	return &storage.StoreMock{
		OpenSessionFunc: func(ctx context.Context) (storage.Session, error) {
			return session, nil
		},
	}
}
