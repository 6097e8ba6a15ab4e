// Package som defines the seam between the dispatch engine and the
// business logic executing the service operations. The dispatcher only
// resolves which operator to call and passes the (possibly modified)
// request and response through.
package som

import (
	"context"

	"github.com/diwise/sos-broker/pkg/sos"
)

//go:generate moq -rm -out som_mock.go . ServiceOperator

// ServiceOperator executes one decoded operation request and produces
// the internal response for the encoders
type ServiceOperator interface {
	Execute(ctx context.Context, request sos.Request) (sos.Response, error)
}
