// Package client provides a typed SOS client over the json binding.
// Errors returned by the service are translated back into the same
// matchable error kinds that the service itself uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"reflect"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TraceAttributeOperation string = "sos-operation"

var tracer = otel.Tracer("sos-broker/client")

type SOSClient interface {
	GetCapabilities(ctx context.Context, sections ...string) (*sos.GetCapabilitiesResponse, error)
	DescribeSensor(ctx context.Context, procedure string) (*sos.DescribeSensorResponse, error)
	GetObservation(ctx context.Context, request *sos.GetObservationRequest) (*sos.GetObservationResponse, error)
	GetFeatureOfInterest(ctx context.Context, request *sos.GetFeatureOfInterestRequest) (*sos.GetFeatureOfInterestResponse, error)
	GetDataAvailability(ctx context.Context, request *sos.GetDataAvailabilityRequest) (*sos.GetDataAvailabilityResponse, error)
	InsertObservation(ctx context.Context, offering string, observations []types.Observation) (*sos.InsertObservationResponse, error)
	InsertSensor(ctx context.Context, request *sos.InsertSensorRequest) (*sos.InsertSensorResponse, error)
	DeleteSensor(ctx context.Context, procedure string) (*sos.DeleteSensorResponse, error)
}

func Debug(enabled string) func(*sosClient) {
	return func(c *sosClient) {
		c.debug = (enabled == "true")
	}
}

func NewSOSClient(serviceURL string, options ...func(*sosClient)) SOSClient {
	c := &sosClient{
		serviceURL: serviceURL,
		debug:      false,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

type sosClient struct {
	serviceURL string
	debug      bool
}

func (c sosClient) GetCapabilities(ctx context.Context, sections ...string) (*sos.GetCapabilitiesResponse, error) {
	request := &sos.GetCapabilitiesRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Sections:         sections,
	}

	return call[*sos.GetCapabilitiesResponse](ctx, c, request)
}

func (c sosClient) DescribeSensor(ctx context.Context, procedure string) (*sos.DescribeSensorResponse, error) {
	request := &sos.DescribeSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        procedure,
	}

	return call[*sos.DescribeSensorResponse](ctx, c, request)
}

func (c sosClient) GetObservation(ctx context.Context, request *sos.GetObservationRequest) (*sos.GetObservationResponse, error) {
	request.OperationRequest = sos.NewOperationRequest(sos.ServiceName, sos.Version20)
	return call[*sos.GetObservationResponse](ctx, c, request)
}

func (c sosClient) GetFeatureOfInterest(ctx context.Context, request *sos.GetFeatureOfInterestRequest) (*sos.GetFeatureOfInterestResponse, error) {
	request.OperationRequest = sos.NewOperationRequest(sos.ServiceName, sos.Version20)
	return call[*sos.GetFeatureOfInterestResponse](ctx, c, request)
}

func (c sosClient) GetDataAvailability(ctx context.Context, request *sos.GetDataAvailabilityRequest) (*sos.GetDataAvailabilityResponse, error) {
	request.OperationRequest = sos.NewOperationRequest(sos.ServiceName, sos.Version20)
	return call[*sos.GetDataAvailabilityResponse](ctx, c, request)
}

func (c sosClient) InsertObservation(ctx context.Context, offering string, observations []types.Observation) (*sos.InsertObservationResponse, error) {
	request := &sos.InsertObservationRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Offering:         offering,
		Observations:     observations,
	}

	return call[*sos.InsertObservationResponse](ctx, c, request)
}

func (c sosClient) InsertSensor(ctx context.Context, request *sos.InsertSensorRequest) (*sos.InsertSensorResponse, error) {
	request.OperationRequest = sos.NewOperationRequest(sos.ServiceName, sos.Version20)
	return call[*sos.InsertSensorResponse](ctx, c, request)
}

func (c sosClient) DeleteSensor(ctx context.Context, procedure string) (*sos.DeleteSensorResponse, error) {
	request := &sos.DeleteSensorRequest{
		OperationRequest: sos.NewOperationRequest(sos.ServiceName, sos.Version20),
		Procedure:        procedure,
	}

	return call[*sos.DeleteSensorResponse](ctx, c, request)
}

func call[T sos.Response](ctx context.Context, c sosClient, request sos.Request) (T, error) {
	var err error
	var response T

	ctx, span := tracer.Start(ctx, "call-sos-service",
		trace.WithAttributes(attribute.String(TraceAttributeOperation, request.Operation())),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var body []byte

	body, err = marshalRequest(request)
	if err != nil {
		return response, err
	}

	status, payload, err := c.post(ctx, body)
	if err != nil {
		return response, err
	}

	if status >= http.StatusBadRequest {
		report := ows.ExceptionReport{}
		if json.Unmarshal(payload, &report) != nil || report.Code == "" {
			err = ows.NewBackingStoreError(fmt.Sprintf("service responded with status %d", status))
			return response, err
		}

		err = ows.NewErrorFromReport(report)
		return response, err
	}

	response = newResponse[T]()

	err = json.Unmarshal(payload, response)
	if err != nil {
		err = ows.NewUnsupportedInputError("response", fmt.Sprintf("malformed response document: %s", err.Error()))
		return response, err
	}

	return response, nil
}

// marshalRequest flattens the request into a json object with the
// operation name added, which is how the json binding identifies the
// operation to dispatch
func marshalRequest(request sos.Request) ([]byte, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}

	document := map[string]any{}
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, err
	}

	document["request"] = request.Operation()

	return json.Marshal(document)
}

func newResponse[T sos.Response]() T {
	var zero T
	return reflect.New(reflect.TypeOf(zero).Elem()).Interface().(T)
}

func (c sosClient) post(ctx context.Context, body []byte) (int, []byte, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL+"/sos", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}

	req.Header.Add("Content-Type", codec.MediaTypeJSON)
	req.Header.Add("Accept", codec.MediaTypeJSON)

	if c.debug {
		if dump, err := httputil.DumpRequest(req, true); err == nil {
			logging.GetFromContext(ctx).Debug("sending request", "request", string(dump))
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if c.debug {
		if dump, err := httputil.DumpResponse(resp, true); err == nil {
			logging.GetFromContext(ctx).Debug("received response", "response", string(dump))
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, payload, nil
}
