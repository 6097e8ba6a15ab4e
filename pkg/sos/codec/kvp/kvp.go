// Package kvp decodes SOS requests arriving as key value pairs on a
// query string. Parameter names are matched case insensitively, as
// required by the KVP binding. Transactional operations have no KVP
// encoding and are not registered here.
package kvp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// Entries returns the codec registrations for the KVP media type
func Entries() []codec.Entry {
	decoders := map[string]codec.Decoder{
		sos.GetCapabilities:      decoderFunc(decodeGetCapabilities),
		sos.DescribeSensor:       decoderFunc(decodeDescribeSensor),
		sos.GetObservation:       decoderFunc(decodeGetObservation),
		sos.GetFeatureOfInterest: decoderFunc(decodeGetFeatureOfInterest),
		sos.GetDataAvailability:  decoderFunc(decodeGetDataAvailability),
	}

	entries := make([]codec.Entry, 0, len(decoders))

	for operation, decoder := range decoders {
		entries = append(entries, codec.Entry{
			Key: codec.OperationKey{
				Service:   sos.ServiceName,
				Operation: operation,
				MediaType: codec.MediaTypeKVP,
			},
			Decoder:            decoder,
			ConformanceClasses: []string{"http://www.opengis.net/spec/SOS/2.0/conf/kvp-core"},
		})
	}

	return entries
}

type decoderFunc func(ctx context.Context, token codec.RawToken) (sos.Request, error)

func (f decoderFunc) Decode(ctx context.Context, token codec.RawToken) (any, error) {
	if token.Query == nil {
		return nil, ows.NewUnsupportedInputError("request", "kvp decoder needs a query string token")
	}

	request, err := f(ctx, token)
	if err != nil {
		return nil, err
	}

	return request, nil
}

type parameters struct {
	values url.Values
}

func newParameters(query url.Values) parameters {
	lowered := url.Values{}

	for name, values := range query {
		lowered[strings.ToLower(name)] = values
	}

	return parameters{values: lowered}
}

func (p parameters) get(name string) string {
	return p.values.Get(strings.ToLower(name))
}

func (p parameters) list(name string) []string {
	raw := p.get(name)
	if raw == "" {
		return nil
	}

	return strings.Split(raw, ",")
}

func (p parameters) operationRequest() sos.OperationRequest {
	return sos.NewOperationRequest(p.get("service"), p.get("version"))
}

func decodeGetCapabilities(_ context.Context, token codec.RawToken) (sos.Request, error) {
	p := newParameters(token.Query)

	return &sos.GetCapabilitiesRequest{
		OperationRequest: p.operationRequest(),
		Sections:         p.list("sections"),
	}, nil
}

func decodeDescribeSensor(_ context.Context, token codec.RawToken) (sos.Request, error) {
	p := newParameters(token.Query)

	procedure := p.get("procedure")
	if procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "DescribeSensor requires a procedure parameter")
	}

	return &sos.DescribeSensorRequest{
		OperationRequest:  p.operationRequest(),
		Procedure:         procedure,
		DescriptionFormat: p.get("procedureDescriptionFormat"),
	}, nil
}

func decodeGetObservation(_ context.Context, token codec.RawToken) (sos.Request, error) {
	p := newParameters(token.Query)

	request := &sos.GetObservationRequest{
		OperationRequest:     p.operationRequest(),
		Offerings:            p.list("offering"),
		Procedures:           p.list("procedure"),
		ObservableProperties: p.list("observedProperty"),
		FeaturesOfInterest:   p.list("featureOfInterest"),
		CRS:                  p.get("crs"),
		ResponseFormat:       p.get("responseFormat"),
	}

	if filter := p.get("temporalFilter"); filter != "" {
		period, err := parseTemporalFilter(filter)
		if err != nil {
			return nil, err
		}

		request.TemporalFilter = &period
	}

	return request, nil
}

func decodeGetFeatureOfInterest(_ context.Context, token codec.RawToken) (sos.Request, error) {
	p := newParameters(token.Query)

	return &sos.GetFeatureOfInterestRequest{
		OperationRequest:     p.operationRequest(),
		Features:             p.list("featureOfInterest"),
		Procedures:           p.list("procedure"),
		ObservableProperties: p.list("observedProperty"),
	}, nil
}

func decodeGetDataAvailability(_ context.Context, token codec.RawToken) (sos.Request, error) {
	p := newParameters(token.Query)

	return &sos.GetDataAvailabilityRequest{
		OperationRequest:     p.operationRequest(),
		Offerings:            p.list("offering"),
		Procedures:           p.list("procedure"),
		ObservableProperties: p.list("observedProperty"),
	}, nil
}

// parseTemporalFilter parses "<valueReference>,<start>/<end>" where the
// times are RFC 3339 instants
func parseTemporalFilter(filter string) (types.TimePeriod, error) {
	parts := strings.SplitN(filter, ",", 2)
	interval := parts[len(parts)-1]

	times := strings.SplitN(interval, "/", 2)

	start, err := time.Parse(time.RFC3339, times[0])
	if err != nil {
		return types.TimePeriod{}, ows.NewInvalidRequestError("temporalFilter", fmt.Sprintf("invalid start time: %s", err.Error()))
	}

	end := start
	if len(times) == 2 {
		end, err = time.Parse(time.RFC3339, times[1])
		if err != nil {
			return types.TimePeriod{}, ows.NewInvalidRequestError("temporalFilter", fmt.Sprintf("invalid end time: %s", err.Error()))
		}
	}

	return types.NewTimePeriod(start, end), nil
}
