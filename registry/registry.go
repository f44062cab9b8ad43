package registry

import (
	"context"
	"time"

	"tripline/models"
	"tripline/store"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 24 * time.Hour

// Registry resolves external POI ids to internal place records. The first
// caller to resolve a POI id creates the place; later callers get the same
// id back no matter what attributes they carry. A Redis client, when
// present, short-circuits repeat lookups.
type Registry struct {
	backend store.Store
	cache   *redis.Client
}

func New(backend store.Store, cache *redis.Client) *Registry {
	return &Registry{backend: backend, cache: cache}
}

func cacheKey(poiID string) string { return "place:poi:" + poiID }

// Resolve returns the internal place id for the given POI id, creating
// the place from attrs on first sight.
func (r *Registry) Resolve(ctx context.Context, poiID string, attrs models.Place) (string, error) {
	if r.cache != nil {
		if id, err := r.cache.Get(ctx, cacheKey(poiID)).Result(); err == nil && id != "" {
			return id, nil
		}
	}

	id, err := r.backend.ResolvePlace(ctx, poiID, attrs)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		// Cache write failures only cost us the next lookup.
		r.cache.Set(ctx, cacheKey(poiID), id, cacheTTL)
	}
	return id, nil
}

// ResolveCandidate maps recommendation candidate attributes onto a place
// record and resolves it.
func (r *Registry) ResolveCandidate(ctx context.Context, uid, name, category string, lat, lng float64, address, tel string) (string, error) {
	return r.Resolve(ctx, uid, models.Place{
		Name:      name,
		Category:  category,
		Latitude:  lat,
		Longitude: lng,
		Address:   address,
		Tel:       tel,
	})
}

func (r *Registry) PlaceByID(ctx context.Context, placeID string) (models.Place, error) {
	return r.backend.PlaceByID(ctx, placeID)
}
