package sosapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diwise/sos-broker/internal/pkg/application/som"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/codec/jsoncodec"
	"github.com/diwise/sos-broker/pkg/sos/codec/kvp"
	"github.com/diwise/sos-broker/pkg/sos/codec/pox"
	"github.com/diwise/sos-broker/pkg/sos/codec/soap"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

func TestGetObservationOverKVP(t *testing.T) {
	is, server, operator := testSetup(t, nil)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetObservation&offering=off-1",
		map[string]string{"Accept": "application/json"}, nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/json") // content type should match the requested media type

	is.Equal(len(operator.ExecuteCalls()), 1)

	request := operator.ExecuteCalls()[0].Request
	is.Equal(request.Service(), "SOS")
	is.Equal(request.Version(), "2.0.0")
	is.Equal(request.Operation(), sos.GetObservation)

	is.True(strings.Contains(body, "obs-1"))
}

func TestThatAnUnsupportedAcceptHeaderYieldsAnEncodedException(t *testing.T) {
	is, server, _ := testSetup(t, nil)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetObservation",
		map[string]string{"Accept": "application/exi"}, nil)

	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.Equal(resp.Header.Get("Content-Type"), "application/json") // the fallback media type should carry the report
	is.True(strings.Contains(body, "OptionNotSupported"))
}

func TestThatAnUnknownOperationIsRejected(t *testing.T) {
	is, server, _ := testSetup(t, nil)
	defer server.Close()

	resp, body := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetSandwich", nil, nil)

	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, "OperationNotSupported"))
}

func TestGetCapabilitiesOverPOX(t *testing.T) {
	is, server, operator := testSetup(t, nil)
	defer server.Close()

	document := `<?xml version="1.0" encoding="UTF-8"?><GetCapabilities service="SOS" version="2.0.0"/>`

	resp, _ := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/xml"},
		bytes.NewBufferString(document))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.HasPrefix(resp.Header.Get("Content-Type"), "application/xml"))

	is.Equal(operator.ExecuteCalls()[0].Request.Operation(), sos.GetCapabilities)
}

func TestGetCapabilitiesOverSOAP(t *testing.T) {
	is, server, operator := testSetup(t, nil)
	defer server.Close()

	envelope := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body>` +
		`<GetCapabilities service="SOS" version="2.0.0"/>` +
		`</soap:Body></soap:Envelope>`

	resp, body := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/soap+xml"},
		bytes.NewBufferString(envelope))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/soap+xml")
	is.True(strings.Contains(body, "Envelope")) // response should be wrapped in an envelope

	is.Equal(operator.ExecuteCalls()[0].Request.Operation(), sos.GetCapabilities)
}

func TestGetObservationOverJSON(t *testing.T) {
	is, server, operator := testSetup(t, nil)
	defer server.Close()

	request := `{"request":"GetObservation","service":"SOS","version":"2.0.0","offerings":["off-1"]}`

	resp, _ := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/json"},
		bytes.NewBufferString(request))

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(resp.Header.Get("Content-Type"), "application/json")

	decoded := operator.ExecuteCalls()[0].Request.(*sos.GetObservationRequest)
	is.Equal(decoded.Offerings, []string{"off-1"})
}

func TestThatTransactionalOperationsAreGuarded(t *testing.T) {
	is, server, operator := testSetup(t, strings.NewReader(denyAllPolicy))
	defer server.Close()

	request := `{"request":"DeleteSensor","service":"SOS","version":"2.0.0","procedure":"urn:ogc:object:sensor:temp-01"}`

	resp, body := testRequest(is, server, http.MethodPost, "/sos/",
		map[string]string{"Content-Type": "application/json"},
		bytes.NewBufferString(request))

	is.Equal(resp.StatusCode, http.StatusUnauthorized)
	is.True(strings.Contains(body, "AccessDenied"))
	is.Equal(len(operator.ExecuteCalls()), 0) // the operator should never see a denied request
}

func TestThatQueryOperationsBypassTheGuard(t *testing.T) {
	is, server, operator := testSetup(t, strings.NewReader(denyAllPolicy))
	defer server.Close()

	resp, _ := testRequest(is, server, http.MethodGet,
		"/sos/?service=SOS&version=2.0.0&request=GetCapabilities", nil, nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(len(operator.ExecuteCalls()), 1)
}

func testSetup(t *testing.T, policies io.Reader) (*is.I, *httptest.Server, *som.ServiceOperatorMock) {
	is := is.New(t)
	ctx := context.Background()

	registry := codec.NewRegistry(kvp.Entries()...)
	registry.Register(pox.Entries()...)
	registry.Register(jsoncodec.Entries()...)
	registry.Register(soap.Entries(registry)...)

	is.NoErr(registry.Validate())

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	operator := &som.ServiceOperatorMock{
		ExecuteFunc: func(ctx context.Context, request sos.Request) (sos.Response, error) {
			if request.Operation() == sos.GetObservation {
				return &sos.GetObservationResponse{
					Observations: []types.Observation{
						{
							ID: "obs-1", Procedure: "urn:ogc:object:sensor:temp-01",
							ObservableProperty: "temperature", FeatureOfInterest: "foi-1",
							ObservationType: types.MeasurementType,
							PhenomenonTime:  types.NewTimePeriod(now, now),
							ResultTime:      now,
							Values:          []types.TimeValue{{Time: now, Value: 21.4}},
						},
					},
				}, nil
			}

			return &sos.GetCapabilitiesResponse{Service: sos.ServiceName, Version: sos.Version20}, nil
		},
	}

	router := chi.NewRouter()
	err := RegisterHandlers(ctx, router, policies, registry, modifier.NewChain(), operator)
	is.NoErr(err)

	return is, httptest.NewServer(router), operator
}

func testRequest(is *is.I, server *httptest.Server, method, path string, headers map[string]string, body io.Reader) (*http.Response, string) {
	req, err := http.NewRequest(method, server.URL+path, body)
	is.NoErr(err)

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)

	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, string(respBody)
}

const denyAllPolicy string = `
package example.authz

default allow := false
`
