// Package modifier implements the request/response transform chain that
// adapts requests and produced results for format specific semantics.
// Modifiers are looked up by (service, version, request type) for the
// request phase and by (service, version, request type, response type)
// for the response phase, and run in registration order.
package modifier

import (
	"context"
	"reflect"

	"github.com/diwise/sos-broker/pkg/sos"
)

// Key selects the requests (and optionally responses) a modifier applies
// to. A nil Response type registers the modifier for the request phase
// only.
type Key struct {
	Service  string
	Version  string
	Request  reflect.Type
	Response reflect.Type
}

// Facilitator declares what a modifier may do to a response, so that
// callers can decide whether a streaming response must be materialized
// before modification. Mergers and splitters cannot operate on an
// unmaterialized stream.
type Facilitator struct {
	Merger       bool
	Splitter     bool
	AdderRemover bool
}

type Modifier interface {
	Keys() []Key
	Facilitator() Facilitator
	ModifyRequest(ctx context.Context, request sos.Request) (sos.Request, error)
	ModifyResponse(ctx context.Context, request sos.Request, response sos.Response) (sos.Response, error)
}

// Chain holds the registered modifiers. Registration happens at startup,
// after which the chain is read only and safe for concurrent lookups.
type Chain struct {
	modifiers []Modifier
}

func NewChain(modifiers ...Modifier) *Chain {
	return &Chain{modifiers: modifiers}
}

func (c *Chain) Register(modifiers ...Modifier) {
	c.modifiers = append(c.modifiers, modifiers...)
}

// Lookup returns the modifiers registered for the given combination, in
// registration order. A nil response selects request phase modifiers.
func (c *Chain) Lookup(service, version string, request sos.Request, response sos.Response) []Modifier {
	var matches []Modifier

	requestType := reflect.TypeOf(request)

	var responseType reflect.Type
	if response != nil {
		responseType = reflect.TypeOf(response)
	}

	for _, modifier := range c.modifiers {
		for _, key := range modifier.Keys() {
			if key.Service != service || key.Version != version {
				continue
			}

			if key.Request != requestType {
				continue
			}

			if response == nil && key.Response != nil {
				continue
			}

			if response != nil && key.Response != responseType {
				continue
			}

			matches = append(matches, modifier)
			break
		}
	}

	return matches
}

// ModifyRequest runs the request phase. A modifier returning an error
// aborts the remainder of the chain and the error propagates to the
// dispatcher's exception path.
func (c *Chain) ModifyRequest(ctx context.Context, request sos.Request) (sos.Request, error) {
	modifiers := c.Lookup(request.Service(), request.Version(), request, nil)

	var err error

	for _, modifier := range modifiers {
		request, err = modifier.ModifyRequest(ctx, request)
		if err != nil {
			return nil, err
		}
	}

	return request, nil
}

// ModifyResponse runs the response phase
func (c *Chain) ModifyResponse(ctx context.Context, request sos.Request, response sos.Response) (sos.Response, error) {
	modifiers := c.Lookup(request.Service(), request.Version(), request, response)

	var err error

	for _, modifier := range modifiers {
		response, err = modifier.ModifyResponse(ctx, request, response)
		if err != nil {
			return nil, err
		}
	}

	return response, nil
}

// RequiresMaterialization reports whether any response phase modifier
// for this combination merges or splits, in which case a streaming
// response must be fully read before the chain runs
func (c *Chain) RequiresMaterialization(request sos.Request, response sos.Response) bool {
	for _, modifier := range c.Lookup(request.Service(), request.Version(), request, response) {
		facilitator := modifier.Facilitator()
		if facilitator.Merger || facilitator.Splitter {
			return true
		}
	}

	return false
}
