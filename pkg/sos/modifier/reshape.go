package modifier

import (
	"context"
	"fmt"
	"reflect"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// CRSReshaper rewrites GetObservation requests for target formats that
// only accept a fixed set of spatial reference systems. A request
// without an explicit CRS is given the default, a request with an
// unsupported one is rejected outright.
type CRSReshaper struct {
	defaultCRS string
	allowed    map[string]struct{}
}

func NewCRSReshaper(defaultCRS string, allowed []string) *CRSReshaper {
	if defaultCRS == "" {
		defaultCRS = types.DefaultCRS
	}

	reshaper := &CRSReshaper{
		defaultCRS: defaultCRS,
		allowed:    map[string]struct{}{defaultCRS: {}},
	}

	for _, crs := range allowed {
		reshaper.allowed[crs] = struct{}{}
	}

	return reshaper
}

func (m *CRSReshaper) Keys() []Key {
	return []Key{
		{
			Service: sos.ServiceName,
			Version: sos.Version20,
			Request: reflect.TypeOf(&sos.GetObservationRequest{}),
		},
	}
}

func (m *CRSReshaper) Facilitator() Facilitator {
	return Facilitator{AdderRemover: true}
}

func (m *CRSReshaper) ModifyRequest(_ context.Context, request sos.Request) (sos.Request, error) {
	observationRequest, ok := request.(*sos.GetObservationRequest)
	if !ok {
		return request, nil
	}

	if observationRequest.CRS == "" {
		observationRequest.CRS = m.defaultCRS
		return observationRequest, nil
	}

	if _, supported := m.allowed[observationRequest.CRS]; !supported {
		return nil, ows.NewModifierError("crs", fmt.Sprintf("spatial reference system %s is not supported", observationRequest.CRS))
	}

	return observationRequest, nil
}

func (m *CRSReshaper) ModifyResponse(_ context.Context, _ sos.Request, response sos.Response) (sos.Response, error) {
	return response, nil
}
