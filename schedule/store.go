package schedule

import (
	"context"
	"errors"
	"fmt"

	"tripline/models"
	"tripline/store"
)

// Invalidate is called after a successful write-back so cached schedules
// and live listeners can drop stale state. A nil callback is skipped.
type Invalidate func(itineraryID string)

// Store loads a Board from the backing store, applies a mutation and
// writes back only what changed.
type Store struct {
	backend    store.Store
	invalidate Invalidate
}

func NewStore(backend store.Store, invalidate Invalidate) *Store {
	return &Store{backend: backend, invalidate: invalidate}
}

// Load builds a read-only view of the itinerary's schedule.
func (s *Store) Load(ctx context.Context, itineraryID string) (*Board, error) {
	stops, err := s.backend.StopsByItinerary(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	return NewBoard(itineraryID, stops), nil
}

// Mutate runs fn against the itinerary's board and persists the result.
// Stops whose day or order shifted are upserted, removed stops deleted,
// and the itinerary day count reset to the highest occupied day.
// An error from fn aborts the write-back entirely.
func (s *Store) Mutate(ctx context.Context, itineraryID string, fn func(*Board) error) (*Board, error) {
	stops, err := s.backend.StopsByItinerary(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	board := NewBoard(itineraryID, stops)

	before := make(map[string]models.Stop, len(stops))
	for _, snap := range board.Stops() {
		before[snap.StopID] = snap
	}

	if err := fn(board); err != nil {
		return nil, err
	}

	present := make(map[string]bool)
	for _, stop := range board.Stops() {
		present[stop.StopID] = true
		prev, seen := before[stop.StopID]
		if seen && prev == stop {
			continue
		}
		if err := s.backend.UpsertStop(ctx, stop); err != nil {
			return nil, fmt.Errorf("write back stop %s: %w", stop.StopID, err)
		}
	}
	for _, id := range board.RemovedStopIDs() {
		if present[id] {
			continue
		}
		if err := s.backend.DeleteStop(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("delete stop %s: %w", id, err)
		}
	}

	if err := s.recomputeDayCount(ctx, itineraryID, board); err != nil {
		return nil, err
	}

	if s.invalidate != nil {
		s.invalidate(itineraryID)
	}
	return board, nil
}

func (s *Store) recomputeDayCount(ctx context.Context, itineraryID string, board *Board) error {
	itinerary, err := s.backend.Itinerary(ctx, itineraryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if board.MaxDay() != itinerary.Days {
		return s.backend.UpdateItineraryDays(ctx, itineraryID, board.MaxDay())
	}
	return nil
}
