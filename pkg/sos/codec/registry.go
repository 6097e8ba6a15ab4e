package codec

import (
	"fmt"

	"github.com/diwise/sos-broker/pkg/sos/ows"
)

// Registry resolves codec lookups to the single best matching entry
// among the registered codecs. All registration happens at startup,
// after which the registry is read only and safe for concurrent use
// without locking.
type Registry struct {
	entries []Entry
}

func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{}

	for _, e := range entries {
		r.Register(e)
	}

	return r
}

// Register adds an entry. Must not be called once the registry is in use.
func (r *Registry) Register(entries ...Entry) {
	r.entries = append(r.entries, entries...)
}

// Resolve returns the entry whose key scores the highest similarity
// against the requested key. Two entries tying for the maximum is a
// configuration problem and resolution fails rather than picking one
// based on registration order.
func (r *Registry) Resolve(requested Key) (Entry, error) {
	best := scoreIncompatible
	var winner Entry
	ambiguous := false

	for _, candidate := range r.entries {
		score := candidate.Key.Similarity(requested)
		if score < 0 {
			continue
		}

		if score > best {
			best = score
			winner = candidate
			ambiguous = false
		} else if score == best {
			ambiguous = true
		}
	}

	if best < 0 {
		return Entry{}, fmt.Errorf("no codec registered for %s (%w)", requested.String(), ows.ErrNoCodec)
	}

	if ambiguous {
		return Entry{}, fmt.Errorf("two or more codecs tie for %s (%w)", requested.String(), ows.ErrAmbiguousCodec)
	}

	return winner, nil
}

// ResolveDecoder resolves the requested key to an entry that can decode
func (r *Registry) ResolveDecoder(requested Key) (Decoder, error) {
	entry, err := r.Resolve(requested)
	if err != nil {
		return nil, fmt.Errorf("no decoder for %s: %w", requested.String(), ows.ErrNoDecoder)
	}

	if entry.Decoder == nil {
		return nil, fmt.Errorf("codec for %s cannot decode (%w)", requested.String(), ows.ErrNoDecoder)
	}

	return entry.Decoder, nil
}

// ResolveEncoder resolves the requested key to an entry that can encode
func (r *Registry) ResolveEncoder(requested Key) (Encoder, error) {
	entry, err := r.Resolve(requested)
	if err != nil {
		return nil, fmt.Errorf("no encoder for %s: %w", requested.String(), ows.ErrNoEncoder)
	}

	if entry.Encoder == nil {
		return nil, fmt.Errorf("codec for %s cannot encode (%w)", requested.String(), ows.ErrNoEncoder)
	}

	return entry.Encoder, nil
}

// Validate checks that every registered key resolves unambiguously to
// its own entry. Ties between competing codecs are reported here, at
// startup, instead of surfacing as per request failures whose outcome
// would depend on plugin load order.
func (r *Registry) Validate() error {
	for _, entry := range r.entries {
		resolved, err := r.Resolve(entry.Key)
		if err != nil {
			return fmt.Errorf("registry validation failed for %s: %s (%w)", entry.Key.String(), err.Error(), ows.ErrConfiguration)
		}

		if resolved.Key != entry.Key {
			return fmt.Errorf("key %s resolves to %s (%w)", entry.Key.String(), resolved.Key.String(), ows.ErrConfiguration)
		}
	}

	return nil
}

// Entries returns a snapshot of the registered entries for diagnostics
func (r *Registry) Entries() []Entry {
	snapshot := make([]Entry, len(r.entries))
	copy(snapshot, r.entries)
	return snapshot
}
