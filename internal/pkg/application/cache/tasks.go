package cache

import (
	"context"
	"sort"

	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

const taskPageSize int = 500

// DefaultTasks returns the update tasks for a full cache rebuild. The
// offerings and response format tasks run serially, in that order,
// because the format task depends on the offerings task's output. The
// remaining tasks write disjoint slices and run across the worker pool.
func DefaultTasks(responseFormats []string) []UpdateTask {
	return []UpdateTask{
		&OfferingsTask{},
		&ResponseFormatsTask{Formats: responseFormats},
		&ProceduresTask{},
		&ObservablePropertiesTask{},
		&EnvelopesTask{},
		&FeaturesTask{},
	}
}

func pageProcedures(ctx context.Context, session storage.Session, visit func(storage.ProcedureRow)) error {
	offset := 0

	for {
		rows, err := session.QueryProcedures(ctx, offset, taskPageSize)
		if err != nil {
			return err
		}

		for _, row := range rows {
			visit(row)
		}

		offset += len(rows)

		if len(rows) < taskPageSize {
			return nil
		}
	}
}

func pageFeatures(ctx context.Context, session storage.Session, visit func(storage.FeatureRow)) error {
	offset := 0

	for {
		rows, err := session.QueryFeatures(ctx, offset, taskPageSize)
		if err != nil {
			return err
		}

		for _, row := range rows {
			visit(row)
		}

		offset += len(rows)

		if len(rows) < taskPageSize {
			return nil
		}
	}
}

// OfferingsTask loads the offering identifiers and display names
type OfferingsTask struct{}

func (t *OfferingsTask) Name() string   { return "offerings" }
func (t *OfferingsTask) Parallel() bool { return false }

func (t *OfferingsTask) Run(ctx context.Context, session storage.Session, builder *Builder) error {
	offerings := map[string]string{}
	offset := 0

	for {
		rows, err := session.QueryOfferings(ctx, offset, taskPageSize)
		if err != nil {
			return err
		}

		for _, row := range rows {
			offerings[row.ID] = row.Name
		}

		offset += len(rows)

		if len(rows) < taskPageSize {
			break
		}
	}

	builder.PutOfferings(offerings)

	return nil
}

// ResponseFormatsTask assigns the configured response formats to every
// offering. Runs serially after the offerings task, whose staged output
// it reads from the builder.
type ResponseFormatsTask struct {
	Formats []string
}

func (t *ResponseFormatsTask) Name() string   { return "response-formats" }
func (t *ResponseFormatsTask) Parallel() bool { return false }

func (t *ResponseFormatsTask) Run(_ context.Context, _ storage.Session, builder *Builder) error {
	byOffering := map[string][]string{}

	for _, offering := range builder.Offerings() {
		byOffering[offering] = t.Formats
	}

	builder.PutResponseFormats(byOffering)

	return nil
}

// ProceduresTask builds the offering to procedure cross references
type ProceduresTask struct{}

func (t *ProceduresTask) Name() string   { return "procedures" }
func (t *ProceduresTask) Parallel() bool { return true }

func (t *ProceduresTask) Run(ctx context.Context, session storage.Session, builder *Builder) error {
	byOffering := map[string][]string{}
	byProcedure := map[string][]string{}

	err := pageProcedures(ctx, session, func(row storage.ProcedureRow) {
		byOffering[row.Offering] = appendUnique(byOffering[row.Offering], row.ID)
		byProcedure[row.ID] = appendUnique(byProcedure[row.ID], row.Offering)
	})
	if err != nil {
		return err
	}

	builder.PutProcedures(byOffering, byProcedure)

	return nil
}

// ObservablePropertiesTask builds the offering to observable property
// cross references
type ObservablePropertiesTask struct{}

func (t *ObservablePropertiesTask) Name() string   { return "observable-properties" }
func (t *ObservablePropertiesTask) Parallel() bool { return true }

func (t *ObservablePropertiesTask) Run(ctx context.Context, session storage.Session, builder *Builder) error {
	byOffering := map[string][]string{}

	err := pageProcedures(ctx, session, func(row storage.ProcedureRow) {
		if row.ObservableProperty != "" {
			byOffering[row.Offering] = appendUnique(byOffering[row.Offering], row.ObservableProperty)
		}
	})
	if err != nil {
		return err
	}

	builder.PutObservableProperties(byOffering)

	return nil
}

// EnvelopesTask aggregates the spatial envelope per offering from the
// sampling feature geometries
type EnvelopesTask struct{}

func (t *EnvelopesTask) Name() string   { return "envelopes" }
func (t *EnvelopesTask) Parallel() bool { return true }

func (t *EnvelopesTask) Run(ctx context.Context, session storage.Session, builder *Builder) error {
	envelopes := map[string]types.Envelope{}

	err := pageFeatures(ctx, session, func(row storage.FeatureRow) {
		point := types.Point{Latitude: row.Latitude, Longitude: row.Longitude}

		envelope, found := envelopes[row.Offering]
		if !found {
			envelopes[row.Offering] = types.NewEnvelope(point, row.CRS)
			return
		}

		envelopes[row.Offering] = envelope.Expand(point)
	})
	if err != nil {
		return err
	}

	builder.PutEnvelopes(envelopes)

	return nil
}

// FeaturesTask loads the features of interest with their geometries
type FeaturesTask struct{}

func (t *FeaturesTask) Name() string   { return "features" }
func (t *FeaturesTask) Parallel() bool { return true }

func (t *FeaturesTask) Run(ctx context.Context, session storage.Session, builder *Builder) error {
	features := map[string]sos.FeatureOfInterest{}

	err := pageFeatures(ctx, session, func(row storage.FeatureRow) {
		features[row.ID] = sos.FeatureOfInterest{
			ID:       row.ID,
			Name:     row.Name,
			Geometry: &types.Point{Latitude: row.Latitude, Longitude: row.Longitude},
		}
	})
	if err != nil {
		return err
	}

	builder.PutFeatures(features)

	return nil
}

func appendUnique(values []string, value string) []string {
	at := sort.SearchStrings(values, value)
	if at < len(values) && values[at] == value {
		return values
	}

	values = append(values, "")
	copy(values[at+1:], values[at:])
	values[at] = value

	return values
}
