package storage

import (
	"context"
	"fmt"

	"github.com/diwise/sos-broker/pkg/sos/ows"
	"github.com/diwise/sos-broker/pkg/sos/types"
)

// DefaultChunkSize bounds how many rows a cursor keeps in memory when
// the configuration does not say otherwise
const DefaultChunkSize int = 400

// Cursor is the streaming read interface shared by the plain and the
// merging observation cursors
type Cursor interface {
	HasNext(ctx context.Context) (bool, error)
	Next(ctx context.Context) (types.Observation, error)
	Close()
}

// ObservationCursor streams a potentially very large observation result
// set chunk by chunk, keeping at most one chunk in memory. The
// underlying session is released exactly once: when the stream is
// exhausted, when a fetch fails, or when the caller closes early.
type ObservationCursor struct {
	session   Session
	filter    ObservationFilter
	chunkSize int

	chunk    []ObservationRow
	position int
	offset   int
	fetches  int
	done     bool
	closed   bool
}

func NewObservationCursor(session Session, filter ObservationFilter, chunkSize int) *ObservationCursor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &ObservationCursor{
		session:   session,
		filter:    filter,
		chunkSize: chunkSize,
	}
}

// HasNext reports whether another observation is available, fetching the
// next chunk from the backing store when the current one is exhausted.
// When the previous chunk came back short of the chunk size the end of
// the stream is already known and no extra round trip is issued.
func (c *ObservationCursor) HasNext(ctx context.Context) (bool, error) {
	if c.position < len(c.chunk) {
		return true, nil
	}

	if c.done || c.closed {
		c.Close()
		return false, nil
	}

	chunk, err := c.session.QueryObservations(ctx, c.filter, c.offset, c.chunkSize)
	if err != nil {
		c.Close()
		return false, ows.NewBackingStoreError(fmt.Sprintf("chunk fetch at offset %d failed: %s", c.offset, err.Error()))
	}

	c.fetches++
	c.offset += len(chunk)
	c.chunk = chunk
	c.position = 0

	if len(chunk) < c.chunkSize {
		c.done = true
	}

	if len(chunk) == 0 {
		c.Close()
		return false, nil
	}

	return true, nil
}

// Next returns the next observation in the stream
func (c *ObservationCursor) Next(ctx context.Context) (types.Observation, error) {
	hasNext, err := c.HasNext(ctx)
	if err != nil {
		return types.Observation{}, err
	}

	if !hasNext {
		return types.Observation{}, ows.NewBackingStoreError("cursor is exhausted")
	}

	row := c.chunk[c.position]
	c.position++

	return row.Observation(), nil
}

// Close releases the underlying session. Calling it a second time is a
// no-op.
func (c *ObservationCursor) Close() {
	if c.closed {
		return
	}

	c.closed = true
	c.done = true
	c.chunk = nil
	c.position = 0
	c.session.Close()
}

// Fetches returns how many chunk queries have been issued so far
func (c *ObservationCursor) Fetches() int {
	return c.fetches
}

// MergingObservationCursor batches consecutive same constellation rows
// into fewer output observations, using the same discriminator as the
// response merge modifier but operating incrementally over the stream.
// A bucket is held only as long as rows for its constellation keep
// arriving in sequence, which the backing store's ordering guarantees.
type MergingObservationCursor struct {
	inner     *ObservationCursor
	lookahead *types.Observation
}

func NewMergingObservationCursor(inner *ObservationCursor) *MergingObservationCursor {
	return &MergingObservationCursor{inner: inner}
}

func (c *MergingObservationCursor) HasNext(ctx context.Context) (bool, error) {
	if c.lookahead != nil {
		return true, nil
	}

	return c.inner.HasNext(ctx)
}

// Next returns the next merged observation, consuming inner rows until
// the constellation changes or the stream ends
func (c *MergingObservationCursor) Next(ctx context.Context) (types.Observation, error) {
	current, err := c.take(ctx)
	if err != nil {
		return types.Observation{}, err
	}

	for {
		hasNext, err := c.inner.HasNext(ctx)
		if err != nil {
			return types.Observation{}, err
		}

		if !hasNext {
			return current, nil
		}

		next, err := c.inner.Next(ctx)
		if err != nil {
			return types.Observation{}, err
		}

		if next.Constellation() != current.Constellation() {
			c.lookahead = &next
			return current, nil
		}

		current = current.Merge(next)
	}
}

func (c *MergingObservationCursor) take(ctx context.Context) (types.Observation, error) {
	if c.lookahead != nil {
		current := *c.lookahead
		c.lookahead = nil
		return current, nil
	}

	return c.inner.Next(ctx)
}

func (c *MergingObservationCursor) Close() {
	c.inner.Close()
}
