package sosservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diwise/sos-broker/internal/pkg/application/cache"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/matryer/is"
)

const knownProcedure string = "urn:ogc:object:sensor:temp-01"
const knownOffering string = "offering-1"

func TestGetCapabilitiesContainsCachedOfferings(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	response, err := svc.Execute(ctx, &sos.GetCapabilitiesRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
	})
	is.NoErr(err)

	capabilities, ok := response.(*sos.GetCapabilitiesResponse)
	is.True(ok) // response should be a capabilities document

	is.Equal(len(capabilities.Contents), 1)
	is.Equal(capabilities.Contents[0].ID, knownOffering)
	is.Equal(capabilities.Contents[0].Procedures, []string{knownProcedure})
}

func TestGetCapabilitiesOmitsContentsWhenNotRequested(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	response, err := svc.Execute(ctx, &sos.GetCapabilitiesRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Sections:         []string{"ServiceIdentification"},
	})
	is.NoErr(err)

	capabilities := response.(*sos.GetCapabilitiesResponse)
	is.Equal(len(capabilities.Contents), 0)
}

func TestDescribeSensorUsesCachedCrossReferences(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	response, err := svc.Execute(ctx, &sos.DescribeSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        knownProcedure,
	})
	is.NoErr(err)

	description := response.(*sos.DescribeSensorResponse)
	is.Equal(description.Procedure, knownProcedure)
}

func TestThatDescribeSensorFailsForUnknownProcedure(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.Execute(ctx, &sos.DescribeSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        "urn:ogc:object:sensor:unknown",
	})

	is.True(errors.Is(err, ows.ErrNotFound)) // should report an unknown procedure
}

func TestGetObservationStreamsFromTheBackingStore(t *testing.T) {
	is, ctx, svc, session := testSetup(t)

	response, err := svc.Execute(ctx, &sos.GetObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offerings:        []string{knownOffering},
	})
	is.NoErr(err)

	observations := response.(*sos.GetObservationResponse)
	is.Equal(len(observations.Observations), 2)           // consecutive same-constellation rows should merge in the stream
	is.Equal(len(observations.Observations[0].Values), 2) // the two temperature rows should end up in one observation
	is.Equal(len(session.QueryObservationsCalls()), 1)    // a short chunk should end the stream without an extra fetch
}

func TestThatARegisteredMergerGetsTheObservationsUnmerged(t *testing.T) {
	is, ctx, svc, _ := testSetupWithChain(t, modifier.NewChain(modifier.NewObservationMerger()))

	response, err := svc.Execute(ctx, &sos.GetObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offerings:        []string{knownOffering},
	})
	is.NoErr(err)

	observations := response.(*sos.GetObservationResponse)
	is.Equal(len(observations.Observations), 3) // merging should be left to the response phase modifier
}

func TestThatANonMergingChainStillGetsMergedObservations(t *testing.T) {
	is, ctx, svc, _ := testSetupWithChain(t, modifier.NewChain(modifier.NewCRSReshaper("", nil)))

	response, err := svc.Execute(ctx, &sos.GetObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offerings:        []string{knownOffering},
	})
	is.NoErr(err)

	observations := response.(*sos.GetObservationResponse)
	is.Equal(len(observations.Observations), 2) // no modifier needs the raw rows, so the cursor merges
}

func TestThatGetObservationFailsForUnknownOffering(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.Execute(ctx, &sos.GetObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offerings:        []string{"offering-that-does-not-exist"},
	})

	is.True(errors.Is(err, ows.ErrInvalidRequest)) // should reject the unknown offering
}

func TestGetDataAvailabilityMergesConsecutiveConstellations(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	response, err := svc.Execute(ctx, &sos.GetDataAvailabilityRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
	})
	is.NoErr(err)

	availability := response.(*sos.GetDataAvailabilityResponse)
	is.Equal(len(availability.Availability), 2) // three rows over two constellations should merge to two entries
}

func TestInsertObservationAssignsIdentifiers(t *testing.T) {
	is, ctx, svc, session := testSetup(t)

	response, err := svc.Execute(ctx, &sos.InsertObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offering:         knownOffering,
		Observations: []types.Observation{
			{
				Procedure:          knownProcedure,
				ObservableProperty: "temperature",
				FeatureOfInterest:  "foi-1",
			},
		},
	})
	is.NoErr(err)

	result := response.(*sos.InsertObservationResponse)
	is.Equal(len(result.AssignedIDs), 1)
	is.True(result.AssignedIDs[0] != "") // missing ids should be assigned by the service

	is.Equal(len(session.InsertObservationCalls()), 1)
}

func TestInsertSensorStoresOneRowPerObservableProperty(t *testing.T) {
	is, ctx, svc, session := testSetup(t)

	response, err := svc.Execute(ctx, &sos.InsertSensorRequest{
		OperationRequest:     sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:            "urn:ogc:object:sensor:new-01",
		ObservableProperties: []string{"temperature", "humidity"},
	})
	is.NoErr(err)

	result := response.(*sos.InsertSensorResponse)
	is.Equal(result.AssignedProcedure, "urn:ogc:object:sensor:new-01")
	is.True(result.AssignedOffering != "")

	is.Equal(len(session.InsertProcedureCalls()), 2)
}

func TestDeleteSensorRemovesTheProcedure(t *testing.T) {
	is, ctx, svc, session := testSetup(t)

	response, err := svc.Execute(ctx, &sos.DeleteSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        knownProcedure,
	})
	is.NoErr(err)

	result := response.(*sos.DeleteSensorResponse)
	is.Equal(result.DeletedProcedure, knownProcedure)
	is.Equal(len(session.DeleteProcedureCalls()), 1)
}

func TestThatDeleteSensorFailsForUnknownProcedure(t *testing.T) {
	is, ctx, svc, _ := testSetup(t)

	_, err := svc.Execute(ctx, &sos.DeleteSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        "urn:ogc:object:sensor:unknown",
	})

	is.True(errors.Is(err, ows.ErrNotFound)) // should report an unknown procedure
}

func testSetup(t *testing.T) (*is.I, context.Context, SOSService, *storage.SessionMock) {
	return testSetupWithChain(t, nil)
}

func testSetupWithChain(t *testing.T, chain *modifier.Chain) (*is.I, context.Context, SOSService, *storage.SessionMock) {
	is := is.New(t)
	ctx := context.Background()

	session := newSessionMock()
	store := &storage.StoreMock{
		OpenSessionFunc: func(ctx context.Context) (storage.Session, error) {
			return session, nil
		},
	}

	cfg := Config{
		Title:           "test service",
		ResponseFormats: []string{"application/xml", "application/json"},
	}

	contentCache := cache.NewContentCache()
	engine := cache.NewUpdateEngine(contentCache, store, 2)

	errs := engine.Rebuild(ctx, cache.DefaultTasks(cfg.ResponseFormats))
	is.Equal(len(errs), 0) // seeding the cache should not fail

	svc, err := New(ctx, cfg, store, contentCache, engine, chain)
	is.NoErr(err)

	return is, ctx, svc, session
}

func newSessionMock() *storage.SessionMock {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	observationRows := []storage.ObservationRow{
		{
			ID: "obs-1", Procedure: knownProcedure, ObservableProperty: "temperature",
			FeatureOfInterest: "foi-1", ObservationType: types.MeasurementType,
			PhenomenonStart: now, PhenomenonEnd: now, ResultTime: now, Value: 21.4,
		},
		{
			ID: "obs-2", Procedure: knownProcedure, ObservableProperty: "temperature",
			FeatureOfInterest: "foi-1", ObservationType: types.MeasurementType,
			PhenomenonStart: now.Add(time.Minute), PhenomenonEnd: now.Add(time.Minute),
			ResultTime: now.Add(time.Minute), Value: 21.6,
		},
		{
			ID: "obs-3", Procedure: knownProcedure, ObservableProperty: "humidity",
			FeatureOfInterest: "foi-1", ObservationType: types.MeasurementType,
			PhenomenonStart: now, PhenomenonEnd: now, ResultTime: now, Value: 0.55,
		},
	}

	return &storage.SessionMock{
		QueryObservationsFunc: func(ctx context.Context, filter storage.ObservationFilter, offset, limit int) ([]storage.ObservationRow, error) {
			if offset >= len(observationRows) {
				return nil, nil
			}
			return observationRows, nil
		},
		QueryOfferingsFunc: func(ctx context.Context, offset, limit int) ([]storage.OfferingRow, error) {
			if offset > 0 {
				return nil, nil
			}
			return []storage.OfferingRow{{ID: knownOffering, Name: "Temperatures"}}, nil
		},
		QueryProceduresFunc: func(ctx context.Context, offset, limit int) ([]storage.ProcedureRow, error) {
			if offset > 0 {
				return nil, nil
			}
			return []storage.ProcedureRow{
				{ID: knownProcedure, Offering: knownOffering, ObservableProperty: "temperature"},
			}, nil
		},
		QueryFeaturesFunc: func(ctx context.Context, offset, limit int) ([]storage.FeatureRow, error) {
			if offset > 0 {
				return nil, nil
			}
			return []storage.FeatureRow{
				{ID: "foi-1", Name: "Harbour", Offering: knownOffering, Latitude: 62.39, Longitude: 17.31},
			}, nil
		},
		InsertObservationFunc: func(ctx context.Context, offering string, observation types.Observation) error {
			return nil
		},
		InsertProcedureFunc: func(ctx context.Context, procedure storage.ProcedureRow) error {
			return nil
		},
		DeleteProcedureFunc: func(ctx context.Context, procedure string) error {
			return nil
		},
		CloseFunc: func() {},
	}
}
