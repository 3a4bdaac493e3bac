package cache

import (
	"context"
	"log/slog"
	"testing"

	"viztalk/domain"
	"viztalk/domain/event"
	"viztalk/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// countingSource records how many reads hit the underlying repository.
type countingSource struct {
	profiles map[string]domain.Profile
	reads    int
}

func (c *countingSource) Upsert(profile domain.Profile) error {
	c.profiles[profile.ID] = profile
	return nil
}

func (c *countingSource) Get(participantID string) (domain.Profile, error) {
	c.reads++
	profile, ok := c.profiles[participantID]
	if !ok {
		return domain.Profile{}, errors.ErrProfileNotFound
	}
	return profile, nil
}

func (c *countingSource) List(excludeID string) ([]domain.Profile, error) {
	return nil, nil
}

func TestProfileCache_Reads_Through_Once(t *testing.T) {
	req := require.New(t)
	alice := domain.Profile{ID: uuid.NewString(), Username: "alice"}
	source := &countingSource{profiles: map[string]domain.Profile{alice.ID: alice}}
	cache, err := NewProfileCache(source, slog.Default())
	req.NoError(err)
	defer cache.Close()

	// When looking up the same profile twice
	first, err := cache.Lookup(alice.ID)
	req.NoError(err)
	cache.Wait()
	second, err := cache.Lookup(alice.ID)
	req.NoError(err)

	// Then the repository was read exactly once
	req.Equal(1, source.reads)
	req.Equal(first, second)
}

func TestProfileCache_Miss_Is_Not_Cached(t *testing.T) {
	req := require.New(t)
	source := &countingSource{profiles: map[string]domain.Profile{}}
	cache, err := NewProfileCache(source, slog.Default())
	req.NoError(err)
	defer cache.Close()

	unknown := uuid.NewString()
	_, err = cache.Lookup(unknown)
	req.ErrorIs(err, errors.ErrProfileNotFound)

	_, err = cache.Lookup(unknown)
	req.ErrorIs(err, errors.ErrProfileNotFound)
	req.Equal(2, source.reads)
}

func TestProfileCache_ProfileChanged_Updates_Entry(t *testing.T) {
	req := require.New(t)
	alice := domain.Profile{ID: uuid.NewString(), Username: "alice"}
	source := &countingSource{profiles: map[string]domain.Profile{alice.ID: alice}}
	cache, err := NewProfileCache(source, slog.Default())
	req.NoError(err)
	defer cache.Close()

	// Given a cached entry
	_, err = cache.Lookup(alice.ID)
	req.NoError(err)
	cache.Wait()

	// When the profile changes
	renamed := alice
	renamed.Username = "alice-renamed"
	req.NoError(cache.Consume(context.Background(), event.ProfileChanged{Profile: renamed}))
	cache.Wait()

	// Then the next lookup sees the new entry without another read
	fetched, err := cache.Lookup(alice.ID)
	req.NoError(err)
	req.Equal("alice-renamed", fetched.Username)
	req.Equal(1, source.reads)
}
