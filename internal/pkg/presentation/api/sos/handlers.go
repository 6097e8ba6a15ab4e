package sosapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/sos-broker/internal/pkg/application/som"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/metrics"
	"github.com/diwise/sos-broker/internal/pkg/presentation/api/sos/auth"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// RegisterHandlers mounts the service endpoint, the health probe and
// the metrics endpoint on the given router. A nil policies reader
// leaves the transactional operations unguarded, which only makes
// sense in tests.
func RegisterHandlers(ctx context.Context, r chi.Router, policies io.Reader, registry *codec.Registry, chain *modifier.Chain, operator som.ServiceOperator, options ...DispatcherOption) error {

	if policies != nil {
		authenticator, err := auth.NewAuthenticator(ctx, policies)
		if err != nil {
			return fmt.Errorf("failed to create api authenticator: %w", err)
		}

		options = append(options, WithAuthenticator(authenticator))
	}

	dispatcher := NewDispatcher(registry, chain, operator, options...)

	r.Route("/sos", func(r chi.Router) {
		r.Use(Logger(logging.GetFromContext(ctx)))

		r.Get("/", dispatcher.ServeHTTP)
		r.Post("/", dispatcher.ServeHTTP)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Handle("/metrics", metrics.Handler())

	return nil
}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
