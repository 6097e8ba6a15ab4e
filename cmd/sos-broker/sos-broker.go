package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/sos-broker/internal/pkg/application/cache"
	sosservice "github.com/diwise/sos-broker/internal/pkg/application/sos-service"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/router"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	sosapi "github.com/diwise/sos-broker/internal/pkg/presentation/api/sos"
	"github.com/diwise/sos-broker/pkg/sos/codec"
	"github.com/diwise/sos-broker/pkg/sos/codec/jsoncodec"
	"github.com/diwise/sos-broker/pkg/sos/codec/kvp"
	"github.com/diwise/sos-broker/pkg/sos/codec/pox"
	"github.com/diwise/sos-broker/pkg/sos/codec/soap"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
)

const serviceName string = "sos-broker"

func main() {
	flags := DefaultFlags(context.Background())

	ctx, log, cleanup := o11y.Init(context.Background(), serviceName, buildinfo.SourceVersion(), flags[logFormat])
	defer cleanup()

	cfg, err := loadServiceConfig(flags[configPath])
	if err != nil {
		log.Error("failed to load service configuration", "err", err.Error())
		os.Exit(1)
	}

	pool, err := storage.Connect(ctx, LoadDatabaseConfiguration(ctx).ConnStr())
	if err != nil {
		log.Error("failed to connect to database", "err", err.Error())
		os.Exit(1)
	}
	defer pool.Close()

	policies, err := os.Open(flags[opaPath])
	if err != nil {
		log.Error("failed to open authorization policies", "err", err.Error())
		os.Exit(1)
	}
	defer policies.Close()

	api, operator, err := initialize(ctx, cfg, storage.NewStore(pool), policies)
	if err != nil {
		log.Error("failed to initialize service", "err", err.Error())
		os.Exit(1)
	}

	if err := operator.Start(); err != nil {
		log.Error("failed to start service operator", "err", err.Error())
		os.Exit(1)
	}
	defer operator.Stop()

	address := net.JoinHostPort(flags[listenAddress], flags[servicePort])
	log.Info("starting to listen for connections", "address", address)

	err = http.ListenAndServe(address, api)
	if err != nil {
		log.Error("failed to listen for connections", "err", err.Error())
		os.Exit(1)
	}
}

// loadServiceConfig falls back to the built in defaults when no
// configuration file has been provided
func loadServiceConfig(path string) (*sosservice.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sosservice.LoadConfiguration(bytes.NewBufferString(""))
		}

		return nil, err
	}
	defer file.Close()

	return sosservice.LoadConfiguration(file)
}

// initialize wires the registry, the modifier chain, the content cache
// and the service operator into a ready to serve handler. The backing
// store and the policy source are injected so that tests can run the
// full stack against mocks.
func initialize(ctx context.Context, cfg *sosservice.Config, store storage.Store, policies io.Reader) (http.Handler, sosservice.SOSService, error) {
	contentCache := cache.NewContentCache()
	engine := cache.NewUpdateEngine(contentCache, store, cfg.CacheWorkers)

	log := logging.GetFromContext(ctx)

	if errs := engine.Rebuild(ctx, cache.DefaultTasks(cfg.ResponseFormats)); len(errs) > 0 {
		log.Warn("initial cache rebuild completed with failed tasks", "failed", len(errs))
	}

	chain := modifier.NewChain(
		modifier.NewObservationMerger(),
		modifier.NewCRSReshaper(cfg.DefaultCRS, cfg.AllowedCRS),
	)

	operator, err := sosservice.New(ctx, *cfg, store, contentCache, engine, chain)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create service operator: %w", err)
	}

	registry := codec.NewRegistry(kvp.Entries()...)
	registry.Register(pox.Entries()...)
	registry.Register(jsoncodec.Entries()...)
	registry.Register(soap.Entries(registry)...)

	if err := registry.Validate(); err != nil {
		return nil, nil, fmt.Errorf("codec registry is misconfigured: %w", err)
	}

	r := router.New(serviceName)

	err = sosapi.RegisterHandlers(ctx, r, policies, registry, chain, operator,
		sosapi.WithBindings(enabledBindings(cfg)...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register handlers: %w", err)
	}

	return r, operator, nil
}

func enabledBindings(cfg *sosservice.Config) []sosapi.Binding {
	enabled := map[string]bool{
		"kvp":  cfg.Bindings.KVP,
		"pox":  cfg.Bindings.POX,
		"soap": cfg.Bindings.SOAP,
		"json": cfg.Bindings.JSON,
	}

	bindings := []sosapi.Binding{}

	for _, binding := range sosapi.AllBindings() {
		if enabled[binding.Name()] {
			bindings = append(bindings, binding)
		}
	}

	return bindings
}
