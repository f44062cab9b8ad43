package store

import (
	"context"
	"errors"

	"tripline/models"
)

// Error taxonomy shared by every layer that touches the record store.
var (
	ErrNotFound        = errors.New("record not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage unavailable")
)

// Store is the persisted record store behind the schedule, place registry
// and itinerary handlers. Mongo implements it in production; the in-memory
// implementation backs tests and staged (uncommitted) reoptimizations.
type Store interface {
	// Stops
	StopsByItinerary(ctx context.Context, itineraryID string) ([]models.Stop, error)
	UpsertStop(ctx context.Context, stop models.Stop) error
	DeleteStop(ctx context.Context, stopID string) error
	DeleteAllStops(ctx context.Context, itineraryID string) error

	// Places: create-or-get keyed by the external POI id. The attrs of a
	// second call with a known POI id are ignored (first write wins).
	ResolvePlace(ctx context.Context, poiID string, attrs models.Place) (string, error)
	PlaceByID(ctx context.Context, placeID string) (models.Place, error)

	// Itineraries
	Itinerary(ctx context.Context, itineraryID string) (models.Itinerary, error)
	UpdateItineraryDays(ctx context.Context, itineraryID string, days int) error
}
