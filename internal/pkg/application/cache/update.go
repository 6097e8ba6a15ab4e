package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/metrics"
	"github.com/diwise/sos-broker/internal/pkg/infrastructure/storage"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sos-broker/cache")

// UpdateTask reads from the backing store and writes one disjoint slice
// of the cache. Tasks that declare themselves parallel must not depend
// on the output of any sibling task; tasks that do not are run one
// after another in declaration order.
type UpdateTask interface {
	Name() string
	Parallel() bool
	Run(ctx context.Context, session storage.Session, builder *Builder) error
}

// UpdateEngine rebuilds the content cache from the backing store.
// Rebuilds are best effort per slice: a failing task is recorded and
// its slice keeps its pre-rebuild value, while sibling slices are
// still updated.
type UpdateEngine struct {
	cache   *ContentCache
	store   storage.Store
	workers int

	rebuilding sync.Mutex
}

func NewUpdateEngine(cache *ContentCache, store storage.Store, workers int) *UpdateEngine {
	if workers <= 0 {
		workers = 4
	}

	return &UpdateEngine{
		cache:   cache,
		store:   store,
		workers: workers,
	}
}

// Rebuild runs the given tasks and publishes the resulting snapshot.
// Serial tasks run first, in declaration order, on a single session.
// Parallel tasks are partitioned across the worker pool, each worker
// owning an exclusive session created inside the worker. The returned
// error list is the aggregate of all task failures; an empty list means
// a fully successful rebuild.
func (e *UpdateEngine) Rebuild(ctx context.Context, tasks []UpdateTask) []error {
	e.rebuilding.Lock()
	defer e.rebuilding.Unlock()

	ctx, span := tracer.Start(ctx, "rebuild-cache")
	defer span.End()

	started := time.Now()
	log := logging.GetFromContext(ctx)

	builder := newBuilder(e.cache.Current())
	sink := &errorSink{}

	var serial, parallel []UpdateTask

	for _, task := range tasks {
		if task.Parallel() {
			parallel = append(parallel, task)
		} else {
			serial = append(serial, task)
		}
	}

	e.runSerial(ctx, serial, builder, sink)
	e.runParallel(ctx, parallel, builder, sink)

	// failed slices keep their seeded values, so the snapshot is still
	// complete and internally consistent
	e.cache.publish(builder.snapshot())

	errs := sink.errors()

	metrics.CacheRebuildDuration.Observe(time.Since(started).Seconds())
	metrics.CacheRebuildErrors.Add(float64(len(errs)))

	for _, err := range errs {
		log.Error("cache update task failed", "err", err.Error())
	}

	log.Debug("cache rebuilt", "tasks", len(tasks), "failed", len(errs), "duration", time.Since(started).String())

	return errs
}

func (e *UpdateEngine) runSerial(ctx context.Context, tasks []UpdateTask, builder *Builder, sink *errorSink) {
	if len(tasks) == 0 {
		return
	}

	session, err := e.store.OpenSession(ctx)
	if err != nil {
		for _, task := range tasks {
			sink.append(fmt.Errorf("task %s: unable to open session: %w", task.Name(), err))
		}
		return
	}
	defer session.Close()

	for _, task := range tasks {
		if err := task.Run(ctx, session, builder); err != nil {
			sink.append(fmt.Errorf("task %s: %w", task.Name(), err))
		}
	}
}

func (e *UpdateEngine) runParallel(ctx context.Context, tasks []UpdateTask, builder *Builder, sink *errorSink) {
	if len(tasks) == 0 {
		return
	}

	queue := make(chan UpdateTask)

	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// the session is created inside the worker and owned by it
			// exclusively, never shared with a sibling
			session, err := e.store.OpenSession(ctx)
			if err != nil {
				for task := range queue {
					sink.append(fmt.Errorf("task %s: unable to open session: %w", task.Name(), err))
				}
				return
			}
			defer session.Close()

			for task := range queue {
				if err := task.Run(ctx, session, builder); err != nil {
					sink.append(fmt.Errorf("task %s: %w", task.Name(), err))
				}
			}
		}()
	}

	for _, task := range tasks {
		queue <- task
	}

	close(queue)
	wg.Wait()
}

type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) append(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make([]error, len(s.errs))
	copy(errs, s.errs)

	return errs
}
