package itinerary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tripline/merge"
	"tripline/models"
	"tripline/queue"
	"tripline/registry"
	"tripline/schedule"
	"tripline/store"

	"github.com/julienschmidt/httprouter"
)

func newTestAPI(t *testing.T, stops ...models.Stop) (*API, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.PutItinerary(models.Itinerary{ItineraryID: "trip1", Days: 1})
	for _, s := range stops {
		if err := mem.UpsertStop(context.Background(), s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	schedules := schedule.NewStore(mem, nil)
	places := registry.New(mem, nil)
	engine := merge.NewEngine(schedules, places)
	q := queue.NewManager()
	t.Cleanup(q.Close)
	return NewAPI(mem, schedules, places, engine, q, nil), mem
}

func postJSON(t *testing.T, handler httprouter.Handle, path, body, itineraryID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler(w, req, httprouter.Params{{Key: "id", Value: itineraryID}})
	return w
}

func TestApplyReplaceDefaultsMissingPlacement(t *testing.T) {
	api, mem := newTestAPI(t, models.Stop{
		StopID: "A", ItineraryID: "trip1", Day: 1, Order: 1, Name: "A", PlaceID: "seed-A",
	})

	// No day/order, position only as a coordinates pair, type only as a
	// label. The defaults must land this on slot (1,1), replacing A.
	w := postJSON(t, api.ApplyReplace, "/api/itineraries/trip1/merge/replace",
		`{"uid":"poi-new","name":"New Museum","label":"attraction","coordinates":[35.7,139.8]}`,
		"trip1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 {
		t.Fatalf("expected slot (1,1) replaced, not appended to: %+v", stops)
	}
	s := stops[0]
	if s.Day != 1 || s.Order != 1 || s.Name != "New Museum" {
		t.Fatalf("replacement misplaced: %+v", s)
	}
	if s.Type != models.StopTypeAttraction {
		t.Fatalf("label not folded into type: %+v", s)
	}

	place, err := mem.PlaceByID(context.Background(), s.PlaceID)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if place.Latitude != 35.7 || place.Longitude != 139.8 {
		t.Fatalf("coordinates pair not folded into the place: %+v", place)
	}
}

func TestApplyReplaceFromDefaultsChosenCandidate(t *testing.T) {
	api, mem := newTestAPI(t, models.Stop{
		StopID: "A", ItineraryID: "trip1", Day: 1, Order: 1, Name: "A", PlaceID: "seed-A",
	})

	w := postJSON(t, api.ApplyReplaceFrom, "/api/itineraries/trip1/merge/replace-from",
		`{"target":{"name":"A","day":1,"order":1},"chosen":{"uid":"poi-x","name":"Quiet Shrine","coordinates":[34.9,135.7]}}`,
		"trip1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 || stops[0].Name != "Quiet Shrine" || stops[0].Order != 1 {
		t.Fatalf("target slot not swapped: %+v", stops)
	}
	place, err := mem.PlaceByID(context.Background(), stops[0].PlaceID)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if place.Latitude != 34.9 || place.Longitude != 135.7 {
		t.Fatalf("chosen candidate coordinates lost: %+v", place)
	}
}
