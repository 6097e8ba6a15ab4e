package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sosservice "github.com/diwise/sos-broker/internal/pkg/application/sos-service"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/matryer/is"
)

func TestIntegrateGetCapabilitiesOverKVP(t *testing.T) {
	is, server, _ := testStack(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetCapabilities",
		map[string]string{"Accept": "application/json"}, nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "off-1"))
	is.True(strings.Contains(body, "Offering One"))
}

func TestIntegrateGetObservationOverJSON(t *testing.T) {
	is, server, session := testStack(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		[]byte(`{"request":"GetObservation","service":"SOS","version":"2.0.0","offerings":["off-1"]}`))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "obs-1"))
	is.Equal(len(session.QueryObservationsCalls()), 1)
}

func TestIntegrateInsertObservationOverJSON(t *testing.T) {
	is, server, session := testStack(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		[]byte(`{"request":"InsertObservation","service":"SOS","version":"2.0.0","offering":"off-1",
			"observations":[{"procedure":"urn:ogc:object:sensor:temp-01","observableProperty":"temperature",
			"featureOfInterest":"foi-1","phenomenonTime":{"start":"2026-03-14T12:00:00Z","end":"2026-03-14T12:00:00Z"},
			"resultTime":"2026-03-14T12:00:05Z","values":[{"time":"2026-03-14T12:00:00Z","value":21.4}]}]}`))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "assignedObservationIds"))
	is.Equal(len(session.InsertObservationCalls()), 1)
	is.Equal(session.InsertObservationCalls()[0].Observation.ObservableProperty, "temperature")
}

func TestIntegrateUnknownOfferingIsRejected(t *testing.T) {
	is, server, _ := testStack(t)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetObservation&offering=off-99",
		map[string]string{"Accept": "application/json"}, nil)

	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, "InvalidRequest"))
}

func TestIntegrateHealthEndpoint(t *testing.T) {
	is, server, _ := testStack(t)
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet, "/health", nil, nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func testStack(t *testing.T) (*is.I, *httptest.Server, *storage.SessionMock) {
	is := is.New(t)
	ctx := context.Background()

	session := &storage.SessionMock{
		QueryObservationsFunc: func(ctx context.Context, filter storage.ObservationFilter, offset, limit int) ([]storage.ObservationRow, error) {
			if offset > 0 {
				return nil, nil
			}

			return []storage.ObservationRow{{
				ID: "obs-1", Procedure: "urn:ogc:object:sensor:temp-01", ObservableProperty: "temperature",
				FeatureOfInterest: "foi-1", Value: 21.4,
			}}, nil
		},
		QueryOfferingsFunc: func(ctx context.Context, offset, limit int) ([]storage.OfferingRow, error) {
			if offset > 0 {
				return nil, nil
			}

			return []storage.OfferingRow{{ID: "off-1", Name: "Offering One"}}, nil
		},
		QueryProceduresFunc: func(ctx context.Context, offset, limit int) ([]storage.ProcedureRow, error) {
			if offset > 0 {
				return nil, nil
			}

			return []storage.ProcedureRow{{ID: "urn:ogc:object:sensor:temp-01", Offering: "off-1", ObservableProperty: "temperature"}}, nil
		},
		QueryFeaturesFunc: func(ctx context.Context, offset, limit int) ([]storage.FeatureRow, error) {
			return nil, nil
		},
		InsertObservationFunc: func(ctx context.Context, offering string, observation types.Observation) error {
			return nil
		},
		CloseFunc: func() {},
	}

	store := &storage.StoreMock{
		OpenSessionFunc: func(ctx context.Context) (storage.Session, error) {
			return session, nil
		},
	}

	cfg, err := sosservice.LoadConfiguration(bytes.NewBufferString(""))
	is.NoErr(err)

	api, _, err := initialize(ctx, cfg, store, nil)
	is.NoErr(err)

	return is, httptest.NewServer(api), session
}

func testRequest(is *is.I, server *httptest.Server, method, path string, headers map[string]string, body []byte) (*http.Response, string) {
	req, err := http.NewRequest(method, server.URL+path, bytes.NewReader(body))
	is.NoErr(err)

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	is.NoErr(err)

	return resp, string(payload)
}
