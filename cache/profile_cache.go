// Package cache provides the process-local read-through profile cache.
// Invalidation is driven by ProfileChanged events, so entries stay fresh
// without re-reading the whole directory.
package cache

import (
	"context"
	"log/slog"

	"viztalk/domain"
	"viztalk/domain/event"
	"viztalk/repositories"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	numCounters = 10_000
	maxCost     = 1_000
	bufferItems = 64
)

type ProfileCache struct {
	cache  *ristretto.Cache[string, domain.Profile]
	source repositories.IProfileRepository
	log    *slog.Logger
}

func NewProfileCache(source repositories.IProfileRepository, log *slog.Logger) (*ProfileCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, domain.Profile]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileCache{cache: c, source: source, log: log}, nil
}

// Lookup returns the cached profile or reads through to the repository.
// Errors are the repository's own; nothing is cached on failure.
func (p *ProfileCache) Lookup(participantID string) (domain.Profile, error) {
	if profile, ok := p.cache.Get(participantID); ok {
		return profile, nil
	}
	profile, err := p.source.Get(participantID)
	if err != nil {
		return domain.Profile{}, err
	}
	p.cache.Set(participantID, profile, 1)
	return profile, nil
}

// Consume implements contract.EventSink. A profile change carries the new
// entry, so the cache applies it incrementally instead of only evicting.
func (p *ProfileCache) Consume(_ context.Context, e event.DomainEvent) error {
	if evt, ok := e.(event.ProfileChanged); ok {
		p.cache.Set(evt.Profile.ID, evt.Profile, 1)
	}
	return nil
}

// Wait flushes pending cache writes. Ristretto applies sets asynchronously;
// tests call this before asserting on cache contents.
func (p *ProfileCache) Wait() {
	p.cache.Wait()
}

// Close releases the cache's internal goroutines.
func (p *ProfileCache) Close() {
	p.cache.Close()
}
