package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns

var method = expects.RequestMethod
var path = expects.RequestPath
var bodyContaining = expects.RequestBodyContaining

func TestGetCapabilities(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			path("/sos"),
			bodyContaining(`"request":"GetCapabilities"`),
		),
		Returns(
			response.Code(http.StatusOK),
			response.ContentType("application/json"),
			response.Body([]byte(`{"service":"SOS","version":"2.0.0","contents":[{"id":"off-1","name":"Offering One"}]}`)),
		),
	)
	defer s.Close()

	c := NewSOSClient(s.URL())

	capabilities, err := c.GetCapabilities(context.Background())
	is.NoErr(err)
	is.Equal(capabilities.Version, "2.0.0")
	is.Equal(len(capabilities.Contents), 1)
	is.Equal(capabilities.Contents[0].ID, "off-1")
}

func TestGetObservation(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			bodyContaining(`"request":"GetObservation"`, `"offerings":["off-1"]`),
		),
		Returns(
			response.Code(http.StatusOK),
			response.ContentType("application/json"),
			response.Body([]byte(`{"observations":[{"id":"obs-1","procedure":"urn:ogc:object:sensor:temp-01","observableProperty":"temperature","featureOfInterest":"foi-1","observationType":"","phenomenonTime":{"start":"2026-03-14T12:00:00Z","end":"2026-03-14T12:00:00Z"},"resultTime":"2026-03-14T12:00:05Z","values":[{"time":"2026-03-14T12:00:00Z","value":21.4}]}]}`)),
		),
	)
	defer s.Close()

	c := NewSOSClient(s.URL())

	observations, err := c.GetObservation(context.Background(), &sos.GetObservationRequest{
		Offerings: []string{"off-1"},
	})
	is.NoErr(err)
	is.Equal(len(observations.Observations), 1)
	is.Equal(observations.Observations[0].ObservableProperty, "temperature")
	is.Equal(observations.Observations[0].Values[0].Value, 21.4)
}

func TestDeleteSensorPassesTheProcedure(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			bodyContaining(`"request":"DeleteSensor"`, `"procedure":"urn:ogc:object:sensor:temp-01"`),
		),
		Returns(
			response.Code(http.StatusOK),
			response.ContentType("application/json"),
			response.Body([]byte(`{"deletedProcedure":"urn:ogc:object:sensor:temp-01"}`)),
		),
	)
	defer s.Close()

	c := NewSOSClient(s.URL())

	deleted, err := c.DeleteSensor(context.Background(), "urn:ogc:object:sensor:temp-01")
	is.NoErr(err)
	is.Equal(deleted.DeletedProcedure, "urn:ogc:object:sensor:temp-01")
}

func TestThatAnExceptionReportBecomesAMatchableError(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPost)),
		Returns(
			response.Code(http.StatusNotFound),
			response.ContentType("application/json"),
			response.Body([]byte(`{"version":"1.0.0","code":"RequestNotFound","locator":"procedure","text":"unknown procedure"}`)),
		),
	)
	defer s.Close()

	c := NewSOSClient(s.URL())

	_, err := c.DescribeSensor(context.Background(), "urn:ogc:object:sensor:unknown")
	is.True(errors.Is(err, ows.ErrNotFound))
}

func TestThatAnUnparsableFailureIsReportedAsAServiceFailure(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, method(http.MethodPost)),
		Returns(
			response.Code(http.StatusBadGateway),
			response.Body([]byte("upstream timeout")),
		),
	)
	defer s.Close()

	c := NewSOSClient(s.URL())

	_, err := c.GetCapabilities(context.Background())
	is.True(errors.Is(err, ows.ErrBackingStore))
}
