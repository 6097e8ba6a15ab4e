package sosapi

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/diwise/sos-broker/internal/pkg/application/som"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/metrics"
	"github.com/diwise/sos-broker/internal/pkg/presentation/api/sos/auth"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sos-broker/api")

// Dispatcher runs the shared request life cycle for every binding:
// parse, decode, modify, execute, modify, encode, write. Bindings only
// differ in how bytes come in and go out.
type Dispatcher struct {
	registry *codec.Registry
	chain    *modifier.Chain
	operator som.ServiceOperator
	auth     auth.Enticator

	bindings []Binding
}

type DispatcherOption func(*Dispatcher)

// WithAuthenticator guards the transactional operations with the given
// policy checker
func WithAuthenticator(enticator auth.Enticator) DispatcherOption {
	return func(d *Dispatcher) {
		d.auth = enticator
	}
}

// WithBindings replaces the default binding set, so that individual
// transports can be disabled through configuration
func WithBindings(bindings ...Binding) DispatcherOption {
	return func(d *Dispatcher) {
		d.bindings = bindings
	}
}

func NewDispatcher(registry *codec.Registry, chain *modifier.Chain, operator som.ServiceOperator, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		chain:    chain,
		operator: operator,
		bindings: AllBindings(),
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// transactional reports whether an operation mutates the backing store
// and therefore requires an access check
func transactional(operation string) bool {
	switch operation {
	case sos.InsertObservation, sos.InsertSensor, sos.DeleteSensor:
		return true
	}

	return false
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var err error

	ctx, span := tracer.Start(r.Context(), "dispatch")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	log := logging.GetFromContext(ctx)

	binding := d.selectBinding(r)
	if binding == nil {
		err = ows.NewInvalidRequestError("request", "no binding accepts this request")
		d.writeException(ctx, w, &kvpBinding{}, "unknown", codec.MediaTypeXML, err)
		return
	}

	responseMediaType := negotiateMediaType(r, binding)

	token, key, err := binding.Parse(r)
	if err != nil {
		d.writeException(ctx, w, binding, "unknown", responseMediaType, err)
		return
	}

	decoder, err := d.registry.ResolveDecoder(key)
	if err != nil {
		d.writeException(ctx, w, binding, "unknown", responseMediaType, err)
		return
	}

	decoded, err := decoder.Decode(ctx, token)
	if err != nil {
		d.writeException(ctx, w, binding, "unknown", responseMediaType, err)
		return
	}

	request, ok := decoded.(sos.Request)
	if !ok {
		err = ows.NewUnsupportedInputError("request", fmt.Sprintf("decoder produced a %T, not an operation request", decoded))
		d.writeException(ctx, w, binding, "unknown", responseMediaType, err)
		return
	}

	operation := request.Operation()

	if d.auth != nil && transactional(operation) {
		err = d.auth.CheckAccess(ctx, r, operation)
		if err != nil {
			log.Warn("access denied", "operation", operation, "err", err.Error())
			d.writeException(ctx, w, binding, operation, responseMediaType, ows.NewUnauthorizedError("access denied"))
			return
		}
	}

	request, err = d.chain.ModifyRequest(ctx, request)
	if err != nil {
		d.writeException(ctx, w, binding, operation, responseMediaType, err)
		return
	}

	response, err := d.operator.Execute(ctx, request)
	if err != nil {
		d.writeException(ctx, w, binding, operation, responseMediaType, err)
		return
	}

	response, err = d.chain.ModifyResponse(ctx, request, response)
	if err != nil {
		d.writeException(ctx, w, binding, operation, responseMediaType, err)
		return
	}

	encoder, err := d.registry.ResolveEncoder(codec.EncoderKeyFor(response, responseMediaType))
	if err != nil {
		d.writeException(ctx, w, binding, operation, responseMediaType, err)
		return
	}

	payload, contentType, err := encoder.Encode(ctx, response)
	if err != nil {
		d.writeException(ctx, w, binding, operation, responseMediaType, err)
		return
	}

	metrics.RequestsTotal.WithLabelValues(binding.Name(), operation, strconv.Itoa(http.StatusOK)).Inc()
	binding.Write(w, http.StatusOK, contentType, payload)
}

func (d *Dispatcher) selectBinding(r *http.Request) Binding {
	for _, binding := range d.bindings {
		if binding.Accepts(r) {
			return binding
		}
	}

	return nil
}

// negotiateMediaType picks the response media type from the Accept
// header, falling back to the binding's default when the caller does
// not care
func negotiateMediaType(r *http.Request, binding Binding) string {
	accept := r.Header.Get("Accept")
	if accept == "" || strings.HasPrefix(accept, codec.MediaTypeAny) {
		return binding.MediaType()
	}

	mediaType, _, _ := strings.Cut(accept, ",")

	if at := strings.Index(mediaType, ";"); at >= 0 {
		mediaType = mediaType[:at]
	}

	return strings.TrimSpace(mediaType)
}

// writeException translates any error surfaced during dispatch into a
// structured report and encodes it through the registry, just like a
// normal response. When no encoder serves the negotiated media type the
// format agnostic fallback produces the report instead, so the caller
// always receives a well formed body.
func (d *Dispatcher) writeException(ctx context.Context, w http.ResponseWriter, binding Binding, operation, mediaType string, cause error) {
	log := logging.GetFromContext(ctx)

	report := ows.NewReportFromError(cause)

	if report.Status() >= http.StatusInternalServerError {
		log.Error("request failed", "operation", operation, "err", cause.Error())
	} else {
		log.Debug("request rejected", "operation", operation, "err", cause.Error())
	}

	encoder, err := d.registry.ResolveEncoder(codec.EncoderKeyFor(report, mediaType))
	if err != nil {
		encoder, err = d.registry.ResolveEncoder(codec.TypeKey{Type: reflect.TypeOf(report)})
	}

	if err != nil {
		// no exception encoder is registered at all, which Validate
		// prevents at startup
		metrics.RequestsTotal.WithLabelValues(binding.Name(), operation, strconv.Itoa(http.StatusInternalServerError)).Inc()
		http.Error(w, "an internal error occurred while processing the request", http.StatusInternalServerError)
		return
	}

	payload, contentType, err := encoder.Encode(ctx, report)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(binding.Name(), operation, strconv.Itoa(http.StatusInternalServerError)).Inc()
		http.Error(w, "an internal error occurred while processing the request", http.StatusInternalServerError)
		return
	}

	metrics.RequestsTotal.WithLabelValues(binding.Name(), operation, strconv.Itoa(report.Status())).Inc()
	binding.Write(w, report.Status(), contentType, payload)
}
