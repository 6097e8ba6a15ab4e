package notifications

import (
	"context"
	"net/http"
	"testing"
	"time"

	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns

var method = expects.RequestMethod
var bodyContaining = expects.RequestBodyContaining

func TestSingleNotificationOnInsert(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			bodyContaining("urn:ogc:object:sensor:temp-01"),
		),
		Returns(
			response.Code(http.StatusOK),
		),
	)
	defer s.Close()

	ctx := context.Background()
	n, _ := NewNotifier(ctx, s.URL())

	n.Start()

	now := time.Now().UTC()
	observation := types.Observation{
		ID:                 "obs-1",
		Procedure:          "urn:ogc:object:sensor:temp-01",
		ObservableProperty: "temperature",
		FeatureOfInterest:  "foi-1",
		PhenomenonTime:     types.NewTimePeriod(now, now),
		ResultTime:         now,
		Values:             []types.TimeValue{{Time: now, Value: 21.4}},
	}

	n.ObservationInserted(ctx, "offering-1", observation)

	n.Stop()

	is.Equal(s.RequestCount(), 1)
}
