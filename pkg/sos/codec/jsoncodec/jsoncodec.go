// Package jsoncodec decodes and encodes SOS requests and responses in
// the JSON binding format. Encoding is format agnostic over the internal
// response types, so a single encoder entry serves every operation.
package jsoncodec

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/ows"
)

// Entries returns the codec registrations for the JSON media type, plus
// the format agnostic fallback encoder for exception reports
func Entries() []codec.Entry {
	decoders := map[string]func() sos.Request{
		sos.GetCapabilities:      func() sos.Request { return &sos.GetCapabilitiesRequest{} },
		sos.DescribeSensor:       func() sos.Request { return &sos.DescribeSensorRequest{} },
		sos.GetObservation:       func() sos.Request { return &sos.GetObservationRequest{} },
		sos.GetFeatureOfInterest: func() sos.Request { return &sos.GetFeatureOfInterestRequest{} },
		sos.GetDataAvailability:  func() sos.Request { return &sos.GetDataAvailabilityRequest{} },
		sos.InsertObservation:    func() sos.Request { return &sos.InsertObservationRequest{} },
		sos.InsertSensor:         func() sos.Request { return &sos.InsertSensorRequest{} },
		sos.DeleteSensor:         func() sos.Request { return &sos.DeleteSensorRequest{} },
	}

	entries := make([]codec.Entry, 0, len(decoders)+4)

	for operation, newRequest := range decoders {
		entries = append(entries, codec.Entry{
			Key: codec.OperationKey{
				Service:   sos.ServiceName,
				Operation: operation,
				MediaType: codec.MediaTypeJSON,
			},
			Decoder:            &requestDecoder{newRequest: newRequest},
			ConformanceClasses: []string{"http://www.opengis.net/spec/SOS/2.0/conf/json"},
		})
	}

	entries = append(entries,
		codec.Entry{
			Key:     codec.StructuralKey{Namespace: codec.MediaTypeJSON, Type: reflect.TypeOf((*sos.Response)(nil)).Elem()},
			Encoder: encoderFunc(encodeJSON),
		},
		codec.Entry{
			Key:     codec.EncoderKeyFor(&ows.ExceptionReport{}, codec.MediaTypeJSON),
			Encoder: encoderFunc(encodeJSON),
		},
		// format agnostic fallback so that exception reports can always
		// be encoded, whatever media type the caller asked for
		codec.Entry{
			Key:     codec.TypeKey{Type: reflect.TypeOf(&ows.ExceptionReport{})},
			Encoder: encoderFunc(encodeJSON),
		},
		codec.Entry{
			Key:     codec.EncoderKeyFor(&sos.GetObservationResponse{}, codec.MediaTypeJSON),
			Encoder: encoderFunc(encodeJSON),
			Decoder: decoderFunc(decodeObservationResponse),
		},
	)

	return entries
}

type requestDecoder struct {
	newRequest func() sos.Request
}

func (d *requestDecoder) Decode(_ context.Context, token codec.RawToken) (any, error) {
	if token.JSON == nil {
		return nil, ows.NewUnsupportedInputError("request", "json decoder needs a json token")
	}

	request := d.newRequest()

	err := json.Unmarshal(token.JSON, request)
	if err != nil {
		return nil, ows.NewUnsupportedInputError("request", fmt.Sprintf("malformed json request: %s", err.Error()))
	}

	return request, nil
}

type decoderFunc func(token codec.RawToken) (any, error)

func (f decoderFunc) Decode(_ context.Context, token codec.RawToken) (any, error) {
	return f(token)
}

func decodeObservationResponse(token codec.RawToken) (any, error) {
	if token.JSON == nil {
		return nil, ows.NewUnsupportedInputError("document", "json decoder needs a json token")
	}

	response := &sos.GetObservationResponse{}

	err := json.Unmarshal(token.JSON, response)
	if err != nil {
		return nil, ows.NewUnsupportedInputError("document", fmt.Sprintf("malformed observation document: %s", err.Error()))
	}

	return response, nil
}

type encoderFunc func(obj any) ([]byte, string, error)

func (f encoderFunc) Encode(_ context.Context, obj any) ([]byte, string, error) {
	return f(obj)
}

func encodeJSON(obj any) ([]byte, string, error) {
	payload, err := json.Marshal(obj)
	if err != nil {
		return nil, "", ows.NewUnsupportedInputError("response", fmt.Sprintf("unable to encode response to json: %s", err.Error()))
	}

	return payload, codec.MediaTypeJSON, nil
}
