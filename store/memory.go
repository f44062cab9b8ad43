package store

import (
	"context"
	"fmt"
	"sync"

	"tripline/models"
)

// Memory is an in-process Store. It backs unit tests and the staging area
// for full reoptimizations, which must be discardable without having
// touched the persisted schedule.
type Memory struct {
	mu          sync.Mutex
	stops       map[string]models.Stop      // stopid -> stop
	places      map[string]models.Place     // placeid -> place
	placeByPOI  map[string]string           // poi_id -> placeid
	itineraries map[string]models.Itinerary // itineraryid -> itinerary
	nextPlace   int

	// FailResolve makes ResolvePlace fail for the given POI ids; used by
	// tests exercising best-effort batch application.
	FailResolve map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		stops:       make(map[string]models.Stop),
		places:      make(map[string]models.Place),
		placeByPOI:  make(map[string]string),
		itineraries: make(map[string]models.Itinerary),
	}
}

func (m *Memory) StopsByItinerary(_ context.Context, itineraryID string) ([]models.Stop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Stop
	for _, s := range m.stops {
		if s.ItineraryID == itineraryID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) UpsertStop(_ context.Context, stop models.Stop) error {
	if stop.StopID == "" {
		return fmt.Errorf("%w: stop id is empty", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops[stop.StopID] = stop
	return nil
}

func (m *Memory) DeleteStop(_ context.Context, stopID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stops[stopID]; !ok {
		return fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}
	delete(m.stops, stopID)
	return nil
}

func (m *Memory) DeleteAllStops(_ context.Context, itineraryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.stops {
		if s.ItineraryID == itineraryID {
			delete(m.stops, id)
		}
	}
	return nil
}

func (m *Memory) ResolvePlace(_ context.Context, poiID string, attrs models.Place) (string, error) {
	if poiID == "" {
		return "", fmt.Errorf("%w: poi id is empty", ErrInvalidArgument)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailResolve[poiID] {
		return "", fmt.Errorf("%w: resolve %s", ErrStorage, poiID)
	}
	if id, ok := m.placeByPOI[poiID]; ok {
		return id, nil
	}
	m.nextPlace++
	id := fmt.Sprintf("p%d", m.nextPlace)
	attrs.PlaceID = id
	attrs.POIID = poiID
	m.places[id] = attrs
	m.placeByPOI[poiID] = id
	return id, nil
}

func (m *Memory) PlaceByID(_ context.Context, placeID string) (models.Place, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.places[placeID]
	if !ok {
		return models.Place{}, fmt.Errorf("%w: place %s", ErrNotFound, placeID)
	}
	return p, nil
}

func (m *Memory) Itinerary(_ context.Context, itineraryID string) (models.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.itineraries[itineraryID]
	if !ok {
		return models.Itinerary{}, fmt.Errorf("%w: itinerary %s", ErrNotFound, itineraryID)
	}
	return it, nil
}

func (m *Memory) UpdateItineraryDays(_ context.Context, itineraryID string, days int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.itineraries[itineraryID]
	if !ok {
		return fmt.Errorf("%w: itinerary %s", ErrNotFound, itineraryID)
	}
	it.Days = days
	m.itineraries[itineraryID] = it
	return nil
}

// PutItinerary seeds an itinerary record; test helper.
func (m *Memory) PutItinerary(it models.Itinerary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.itineraries[it.ItineraryID] = it
}
