package registry

import (
	"context"
	"errors"
	"testing"

	"tripline/models"
	"tripline/store"
)

func TestResolveIsStableAcrossCalls(t *testing.T) {
	reg := New(store.NewMemory(), nil)

	first, err := reg.Resolve(context.Background(), "poi-1", models.Place{
		Name: "Cathedral", Latitude: 41.4, Longitude: 2.17,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	// second call carries different attrs; they must be ignored
	second, err := reg.Resolve(context.Background(), "poi-1", models.Place{
		Name: "Completely Different Name", Latitude: 0, Longitude: 0,
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if first != second {
		t.Fatalf("same poi resolved to %q then %q", first, second)
	}

	place, err := reg.PlaceByID(context.Background(), first)
	if err != nil {
		t.Fatalf("place lookup: %v", err)
	}
	if place.Name != "Cathedral" {
		t.Fatalf("first write did not win: %q", place.Name)
	}
}

func TestResolveDistinctPOIsGetDistinctIDs(t *testing.T) {
	reg := New(store.NewMemory(), nil)

	a, err := reg.Resolve(context.Background(), "poi-a", models.Place{Name: "A"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := reg.Resolve(context.Background(), "poi-b", models.Place{Name: "B"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a == b {
		t.Fatalf("distinct POIs share id %q", a)
	}
}

func TestResolveRejectsEmptyPOIID(t *testing.T) {
	reg := New(store.NewMemory(), nil)
	_, err := reg.Resolve(context.Background(), "", models.Place{Name: "X"})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestResolveCandidateMapsAttributes(t *testing.T) {
	mem := store.NewMemory()
	reg := New(mem, nil)

	id, err := reg.ResolveCandidate(context.Background(), "poi-9", "Noodle Bar", "restaurant", 35.0, 135.7, "1 Main St", "555-1234")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	place, err := mem.PlaceByID(context.Background(), id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if place.Name != "Noodle Bar" || place.Category != "restaurant" || place.Address != "1 Main St" {
		t.Fatalf("attributes lost: %+v", place)
	}
	if place.Latitude != 35.0 || place.Longitude != 135.7 {
		t.Fatalf("coordinates lost: %+v", place)
	}
}
