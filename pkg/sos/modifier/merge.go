package modifier

import (
	"context"
	"reflect"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// ObservationMerger combines result items that share a constellation
// (procedure, observable property, feature of interest, observation
// type) into a single observation with a widened phenomenon time, a
// concatenated value array and the latest of the merged result times.
type ObservationMerger struct{}

func NewObservationMerger() *ObservationMerger {
	return &ObservationMerger{}
}

func (m *ObservationMerger) Keys() []Key {
	return []Key{
		{
			Service:  sos.ServiceName,
			Version:  sos.Version20,
			Request:  reflect.TypeOf(&sos.GetObservationRequest{}),
			Response: reflect.TypeOf(&sos.GetObservationResponse{}),
		},
	}
}

func (m *ObservationMerger) Facilitator() Facilitator {
	return Facilitator{Merger: true}
}

func (m *ObservationMerger) ModifyRequest(_ context.Context, request sos.Request) (sos.Request, error) {
	return request, nil
}

func (m *ObservationMerger) ModifyResponse(_ context.Context, _ sos.Request, response sos.Response) (sos.Response, error) {
	observations, ok := response.(*sos.GetObservationResponse)
	if !ok {
		return response, nil
	}

	return &sos.GetObservationResponse{
		Observations: MergeObservations(observations.Observations),
	}, nil
}

// MergeObservations folds a materialized observation list into one
// observation per constellation, preserving the order in which each
// constellation was first seen
func MergeObservations(observations []types.Observation) []types.Observation {
	merged := make([]types.Observation, 0, len(observations))
	index := map[types.Constellation]int{}

	for _, observation := range observations {
		constellation := observation.Constellation()

		at, seen := index[constellation]
		if !seen {
			index[constellation] = len(merged)
			merged = append(merged, observation)
			continue
		}

		merged[at] = merged[at].Merge(observation)
	}

	return merged
}
