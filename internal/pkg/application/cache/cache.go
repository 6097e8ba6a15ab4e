// Package cache holds the in-memory projection of service metadata used
// to answer capability requests cheaply. The cache is a rebuildable,
// eventually consistent projection of the backing store: it is mutated
// only by the update engine and read concurrently by request workers.
package cache

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diwise/sos-broker/pkg/sos"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// Snapshot is one complete, internally consistent state of the cache.
// Snapshots are immutable once published; a rebuild produces a new one
// and swaps it in atomically, so readers never observe a half updated
// cross reference.
type Snapshot struct {
	Offerings                      map[string]string
	ProceduresByOffering           map[string][]string
	OfferingsByProcedure           map[string][]string
	ObservablePropertiesByOffering map[string][]string
	EnvelopesByOffering            map[string]types.Envelope
	ResponseFormatsByOffering      map[string][]string
	Features                       map[string]sos.FeatureOfInterest

	UpdatedAt time.Time
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Offerings:                      map[string]string{},
		ProceduresByOffering:           map[string][]string{},
		OfferingsByProcedure:           map[string][]string{},
		ObservablePropertiesByOffering: map[string][]string{},
		EnvelopesByOffering:            map[string]types.Envelope{},
		ResponseFormatsByOffering:      map[string][]string{},
		Features:                       map[string]sos.FeatureOfInterest{},
	}
}

// Contents assembles the capabilities contents section from the cached
// slices, sorted by offering id for stable output
func (s *Snapshot) Contents() []sos.Offering {
	ids := make([]string, 0, len(s.Offerings))
	for id := range s.Offerings {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	contents := make([]sos.Offering, 0, len(ids))

	for _, id := range ids {
		offering := sos.Offering{
			ID:                   id,
			Name:                 s.Offerings[id],
			Procedures:           s.ProceduresByOffering[id],
			ObservableProperties: s.ObservablePropertiesByOffering[id],
			ResponseFormats:      s.ResponseFormatsByOffering[id],
		}

		if envelope, found := s.EnvelopesByOffering[id]; found {
			area := envelope
			offering.ObservedArea = &area
		}

		contents = append(contents, offering)
	}

	return contents
}

// HasProcedure reports whether the given procedure is known to any offering
func (s *Snapshot) HasProcedure(procedure string) bool {
	_, found := s.OfferingsByProcedure[procedure]
	return found
}

// ContentCache publishes snapshots to readers. Single writer (the
// update engine, one rebuild at a time), many readers, no locks on the
// read path.
type ContentCache struct {
	current atomic.Pointer[Snapshot]
}

func NewContentCache() *ContentCache {
	cache := &ContentCache{}
	cache.current.Store(emptySnapshot())
	return cache
}

// Current returns the most recently published snapshot
func (c *ContentCache) Current() *Snapshot {
	return c.current.Load()
}

func (c *ContentCache) publish(snapshot *Snapshot) {
	snapshot.UpdatedAt = time.Now().UTC()
	c.current.Store(snapshot)
}

// Builder accumulates the next snapshot during a rebuild. It is seeded
// from the current snapshot so that a failed task leaves its slice at
// the pre-rebuild value. Tasks replace whole slices under the builder
// lock and never mutate a seeded map in place.
type Builder struct {
	mu   sync.Mutex
	next Snapshot
}

func newBuilder(seed *Snapshot) *Builder {
	return &Builder{next: *seed}
}

func (b *Builder) PutOfferings(offerings map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.Offerings = offerings
}

func (b *Builder) PutProcedures(byOffering, byProcedure map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.ProceduresByOffering = byOffering
	b.next.OfferingsByProcedure = byProcedure
}

func (b *Builder) PutObservableProperties(byOffering map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.ObservablePropertiesByOffering = byOffering
}

func (b *Builder) PutEnvelopes(byOffering map[string]types.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.EnvelopesByOffering = byOffering
}

func (b *Builder) PutResponseFormats(byOffering map[string][]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.ResponseFormatsByOffering = byOffering
}

func (b *Builder) PutFeatures(features map[string]sos.FeatureOfInterest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next.Features = features
}

// Offerings returns the offering ids staged so far, for tasks that run
// serially after the offerings task and depend on its output
func (b *Builder) Offerings() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.next.Offerings))
	for id := range b.next.Offerings {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

func (b *Builder) snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snapshot := b.next
	return &snapshot
}
