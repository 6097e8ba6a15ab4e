package sosservice

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/sos-broker/internal/pkg/application/cache"
	"github.com/diwise/sos-broker/internal/pkg/application/notifications"
	"github.com/diwise/sos-broker/internal/pkg/application/som"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/modifier"
	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
	"github.com/google/uuid"
)

// SOSService is the operator behind the dispatch engine, plus the
// lifecycle hooks the service entry point needs
type SOSService interface {
	som.ServiceOperator

	Start() error
	Stop() error
}

type sosServiceApp struct {
	cfg      Config
	store    storage.Store
	cache    *cache.ContentCache
	engine   *cache.UpdateEngine
	tasks    []cache.UpdateTask
	chain    *modifier.Chain
	notifier notifications.Notifier
}

func New(ctx context.Context, cfg Config, store storage.Store, contentCache *cache.ContentCache, engine *cache.UpdateEngine, chain *modifier.Chain) (SOSService, error) {
	var notifier notifications.Notifier

	// TODO: Support multiple notification endpoints
	notifierEndpoint := os.Getenv("NOTIFIER_ENDPOINT")
	if notifierEndpoint != "" {
		notifier, _ = notifications.NewNotifier(ctx, notifierEndpoint)
	}

	app := &sosServiceApp{
		cfg:      cfg,
		store:    store,
		cache:    contentCache,
		engine:   engine,
		tasks:    cache.DefaultTasks(cfg.ResponseFormats),
		chain:    chain,
		notifier: notifier,
	}

	return app, nil
}

// Execute runs a single decoded request against the cache or the
// backing store and returns its internal form response
func (app *sosServiceApp) Execute(ctx context.Context, request sos.Request) (sos.Response, error) {
	switch r := request.(type) {
	case *sos.GetCapabilitiesRequest:
		return app.getCapabilities(ctx, r)
	case *sos.DescribeSensorRequest:
		return app.describeSensor(ctx, r)
	case *sos.GetObservationRequest:
		return app.getObservation(ctx, r)
	case *sos.GetFeatureOfInterestRequest:
		return app.getFeatureOfInterest(ctx, r)
	case *sos.GetDataAvailabilityRequest:
		return app.getDataAvailability(ctx, r)
	case *sos.InsertObservationRequest:
		return app.insertObservation(ctx, r)
	case *sos.InsertSensorRequest:
		return app.insertSensor(ctx, r)
	case *sos.DeleteSensorRequest:
		return app.deleteSensor(ctx, r)
	}

	return nil, ows.NewInvalidRequestError(request.Operation(), fmt.Sprintf("operation %s is not supported by this service", request.Operation()))
}

func (app *sosServiceApp) getCapabilities(ctx context.Context, request *sos.GetCapabilitiesRequest) (sos.Response, error) {
	snapshot := app.cache.Current()

	response := &sos.GetCapabilitiesResponse{
		Service:   sos.ServiceName,
		Version:   sos.Version20,
		Title:     app.cfg.Title,
		Provider:  app.cfg.Provider,
		Languages: []string{"eng"},
	}

	if sectionRequested(request.Sections, "Contents") {
		response.Contents = snapshot.Contents()
	}

	return response, nil
}

func sectionRequested(sections []string, name string) bool {
	if len(sections) == 0 {
		return true
	}

	for _, section := range sections {
		if strings.EqualFold(section, name) {
			return true
		}
	}

	return false
}

func (app *sosServiceApp) describeSensor(ctx context.Context, request *sos.DescribeSensorRequest) (sos.Response, error) {
	if request.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "a procedure identifier must be provided")
	}

	snapshot := app.cache.Current()

	if !snapshot.HasProcedure(request.Procedure) {
		return nil, ows.NewNotFoundError("procedure", fmt.Sprintf("procedure %s is not known to this service", request.Procedure))
	}

	offerings := snapshot.OfferingsByProcedure[request.Procedure]

	properties := []string{}
	for _, offering := range offerings {
		for _, property := range snapshot.ObservablePropertiesByOffering[offering] {
			properties = appendUnique(properties, property)
		}
	}

	description := fmt.Sprintf(
		"procedure %s observes %s within offerings %s",
		request.Procedure,
		strings.Join(properties, ", "),
		strings.Join(offerings, ", "),
	)

	format := request.DescriptionFormat
	if format == "" {
		format = "http://www.opengis.net/sensorml/2.0"
	}

	return &sos.DescribeSensorResponse{
		Procedure:         request.Procedure,
		DescriptionFormat: format,
		Description:       description,
	}, nil
}

func (app *sosServiceApp) getObservation(ctx context.Context, request *sos.GetObservationRequest) (sos.Response, error) {
	if err := app.validateRetrieval(request); err != nil {
		return nil, err
	}

	session, err := app.store.OpenSession(ctx)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to open session: %s", err.Error()))
	}

	cursor := app.observationCursor(session, request)
	defer cursor.Close()

	response := &sos.GetObservationResponse{Observations: []types.Observation{}}

	for {
		hasNext, err := cursor.HasNext(ctx)
		if err != nil {
			return nil, err
		}

		if !hasNext {
			break
		}

		observation, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}

		response.Observations = append(response.Observations, observation)
	}

	return response, nil
}

// observationCursor streams the filtered rows incrementally merged,
// unless a registered response modifier needs the raw observations
// materialized to do its own merging or splitting afterwards
func (app *sosServiceApp) observationCursor(session storage.Session, request *sos.GetObservationRequest) storage.Cursor {
	cursor := storage.NewObservationCursor(session, observationFilter(request), app.cfg.ChunkSize)

	if app.chain != nil && app.chain.RequiresMaterialization(request, &sos.GetObservationResponse{}) {
		return cursor
	}

	return storage.NewMergingObservationCursor(cursor)
}

func (app *sosServiceApp) validateRetrieval(request *sos.GetObservationRequest) error {
	snapshot := app.cache.Current()

	for _, offering := range request.Offerings {
		if _, found := snapshot.Offerings[offering]; !found {
			return ows.NewInvalidRequestError("offering", fmt.Sprintf("offering %s is not known to this service", offering))
		}
	}

	for _, procedure := range request.Procedures {
		if !snapshot.HasProcedure(procedure) {
			return ows.NewInvalidRequestError("procedure", fmt.Sprintf("procedure %s is not known to this service", procedure))
		}
	}

	if request.ResponseFormat != "" {
		supported := false
		for _, format := range app.cfg.ResponseFormats {
			if format == request.ResponseFormat {
				supported = true
				break
			}
		}

		if !supported {
			return ows.NewInvalidRequestError("responseFormat", fmt.Sprintf("response format %s is not supported", request.ResponseFormat))
		}
	}

	return nil
}

func observationFilter(request *sos.GetObservationRequest) storage.ObservationFilter {
	return storage.ObservationFilter{
		Offerings:            request.Offerings,
		Procedures:           request.Procedures,
		ObservableProperties: request.ObservableProperties,
		FeaturesOfInterest:   request.FeaturesOfInterest,
		Period:               request.TemporalFilter,
	}
}

func (app *sosServiceApp) getFeatureOfInterest(ctx context.Context, request *sos.GetFeatureOfInterestRequest) (sos.Response, error) {
	snapshot := app.cache.Current()

	wanted := func(id string) bool {
		if len(request.Features) == 0 {
			return true
		}

		for _, requested := range request.Features {
			if requested == id {
				return true
			}
		}

		return false
	}

	ids := make([]string, 0, len(snapshot.Features))
	for id := range snapshot.Features {
		if wanted(id) {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	response := &sos.GetFeatureOfInterestResponse{Features: make([]sos.FeatureOfInterest, 0, len(ids))}

	for _, id := range ids {
		response.Features = append(response.Features, snapshot.Features[id])
	}

	return response, nil
}

func (app *sosServiceApp) getDataAvailability(ctx context.Context, request *sos.GetDataAvailabilityRequest) (sos.Response, error) {
	session, err := app.store.OpenSession(ctx)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to open session: %s", err.Error()))
	}

	filter := storage.ObservationFilter{
		Offerings:            request.Offerings,
		Procedures:           request.Procedures,
		ObservableProperties: request.ObservableProperties,
	}

	cursor := storage.NewMergingObservationCursor(
		storage.NewObservationCursor(session, filter, app.cfg.ChunkSize),
	)
	defer cursor.Close()

	response := &sos.GetDataAvailabilityResponse{Availability: []sos.DataAvailability{}}

	for {
		hasNext, err := cursor.HasNext(ctx)
		if err != nil {
			return nil, err
		}

		if !hasNext {
			break
		}

		observation, err := cursor.Next(ctx)
		if err != nil {
			return nil, err
		}

		response.Availability = append(response.Availability, sos.DataAvailability{
			Procedure:          observation.Procedure,
			ObservableProperty: observation.ObservableProperty,
			FeatureOfInterest:  observation.FeatureOfInterest,
			PhenomenonTime:     observation.PhenomenonTime,
		})
	}

	return response, nil
}

func (app *sosServiceApp) insertObservation(ctx context.Context, request *sos.InsertObservationRequest) (sos.Response, error) {
	if request.Offering == "" {
		return nil, ows.NewInvalidRequestError("offering", "an offering identifier must be provided")
	}

	if len(request.Observations) == 0 {
		return nil, ows.NewInvalidRequestError("observation", "at least one observation must be provided")
	}

	session, err := app.store.OpenSession(ctx)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to open session: %s", err.Error()))
	}
	defer session.Close()

	assigned := make([]string, 0, len(request.Observations))

	for _, observation := range request.Observations {
		if observation.ID == "" {
			observation.ID = uuid.NewString()
		}

		err = session.InsertObservation(ctx, request.Offering, observation)
		if err != nil {
			return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to store observation: %s", err.Error()))
		}

		assigned = append(assigned, observation.ID)

		if app.notifier != nil {
			app.notifier.ObservationInserted(ctx, request.Offering, observation)
		}
	}

	app.rebuildInBackground(ctx)

	return &sos.InsertObservationResponse{AssignedIDs: assigned}, nil
}

func (app *sosServiceApp) insertSensor(ctx context.Context, request *sos.InsertSensorRequest) (sos.Response, error) {
	if request.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "a procedure identifier must be provided")
	}

	session, err := app.store.OpenSession(ctx)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to open session: %s", err.Error()))
	}
	defer session.Close()

	offering := fmt.Sprintf("offering:%s", request.Procedure)

	properties := request.ObservableProperties
	if len(properties) == 0 {
		properties = []string{""}
	}

	for _, property := range properties {
		row := storage.ProcedureRow{
			ID:                 request.Procedure,
			Offering:           offering,
			ObservableProperty: property,
		}

		err = session.InsertProcedure(ctx, row)
		if err != nil {
			return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to store procedure: %s", err.Error()))
		}
	}

	app.rebuildInBackground(ctx)

	return &sos.InsertSensorResponse{
		AssignedProcedure: request.Procedure,
		AssignedOffering:  offering,
	}, nil
}

func (app *sosServiceApp) deleteSensor(ctx context.Context, request *sos.DeleteSensorRequest) (sos.Response, error) {
	if request.Procedure == "" {
		return nil, ows.NewInvalidRequestError("procedure", "a procedure identifier must be provided")
	}

	if !app.cache.Current().HasProcedure(request.Procedure) {
		return nil, ows.NewNotFoundError("procedure", fmt.Sprintf("procedure %s is not known to this service", request.Procedure))
	}

	session, err := app.store.OpenSession(ctx)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to open session: %s", err.Error()))
	}
	defer session.Close()

	err = session.DeleteProcedure(ctx, request.Procedure)
	if err != nil {
		return nil, ows.NewBackingStoreError(fmt.Sprintf("unable to delete procedure: %s", err.Error()))
	}

	app.rebuildInBackground(ctx)

	return &sos.DeleteSensorResponse{DeletedProcedure: request.Procedure}, nil
}

// rebuildInBackground refreshes the content cache after a successful
// write. The rebuild outlives the request, so it runs on a context that
// keeps the caller's trace and logger but not its cancellation.
func (app *sosServiceApp) rebuildInBackground(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	go func() {
		errs := app.engine.Rebuild(ctx, app.tasks)
		if len(errs) > 0 {
			logging.GetFromContext(ctx).Error("cache rebuild after write completed with errors", "count", len(errs))
		}
	}()
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}

	return append(values, value)
}

func (app *sosServiceApp) Start() error {
	if app.notifier != nil {
		return app.notifier.Start()
	}

	return nil
}

func (app *sosServiceApp) Stop() error {
	if app.notifier != nil {
		return app.notifier.Stop()
	}

	return nil
}
