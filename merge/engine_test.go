package merge

import (
	"context"
	"testing"

	"tripline/aiproto"
	"tripline/models"
	"tripline/registry"
	"tripline/schedule"
	"tripline/store"
)

func newTestEngine(t *testing.T, stops ...models.Stop) (*Engine, *store.Memory) {
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
	return NewEngine(schedules, places), mem
}

func existing(id string, day, order int) models.Stop {
	return models.Stop{StopID: id, ItineraryID: "trip1", Day: day, Order: order, Name: id, PlaceID: "seed-" + id}
}

func TestApplyBatchBestEffort(t *testing.T) {
	engine, mem := newTestEngine(t)
	mem.FailResolve = map[string]bool{"poi-2": true}

	candidates := []aiproto.Candidate{
		{UID: "poi-1", Name: "Cathedral", Type: "attraction", Day: 1, Order: 1},
		{UID: "poi-2", Name: "Broken Place", Type: "attraction", Day: 1, Order: 2},
		{UID: "poi-3", Name: "Ramen Shop", Type: "restaurant", Day: 1, Order: 3},
	}

	result, err := engine.ApplyBatch(context.Background(), "trip1", candidates)
	if err != nil {
		t.Fatalf("batch failed hard: %v", err)
	}
	if result.Applied != 2 || result.Failed != 1 {
		t.Fatalf("applied=%d failed=%d, want 2/1", result.Applied, result.Failed)
	}
	if result.Outcomes[1].OK() {
		t.Fatal("candidate 2 should have failed")
	}
	if !result.Outcomes[0].OK() || !result.Outcomes[2].OK() {
		t.Fatalf("outcomes = %+v", result.Outcomes)
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 2 {
		t.Fatalf("expected 2 persisted stops, got %d", len(stops))
	}
	for _, s := range stops {
		if !s.AIPicked {
			t.Fatalf("stop %s not tagged as recommended", s.Name)
		}
	}
}

func TestApplyBatchDerivesStopType(t *testing.T) {
	engine, mem := newTestEngine(t)

	_, err := engine.ApplyBatch(context.Background(), "trip1", []aiproto.Candidate{
		{UID: "r1", Name: "Ramen Shop", Type: "restaurant", Day: 1, Order: 1},
		{UID: "h1", Name: "Grand Hotel", Type: "hotel", Day: 1, Order: 2},
		{UID: "a1", Name: "Castle", Type: "sightseeing", Day: 1, Order: 3},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	types := make(map[string]string)
	for _, s := range stops {
		types[s.Name] = s.Type
	}
	if types["Ramen Shop"] != models.StopTypeRestaurant {
		t.Fatalf("restaurant type = %q", types["Ramen Shop"])
	}
	if types["Grand Hotel"] != models.StopTypeLodging {
		t.Fatalf("hotel type = %q", types["Grand Hotel"])
	}
	if types["Castle"] != models.StopTypeAttraction {
		t.Fatalf("attraction type = %q", types["Castle"])
	}
}

func TestApplyBatchDuplicateSlotLastWins(t *testing.T) {
	engine, mem := newTestEngine(t)

	result, err := engine.ApplyBatch(context.Background(), "trip1", []aiproto.Candidate{
		{UID: "poi-1", Name: "Cathedral", Type: "attraction", Day: 1, Order: 1},
		{UID: "poi-2", Name: "Ramen Shop", Type: "restaurant", Day: 1, Order: 1},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if result.Applied != 1 || result.Failed != 1 {
		t.Fatalf("applied=%d failed=%d, want 1/1", result.Applied, result.Failed)
	}
	if result.Outcomes[0].OK() || result.Outcomes[0].StopID != "" {
		t.Fatalf("superseded candidate still reported applied: %+v", result.Outcomes[0])
	}
	if !result.Outcomes[1].OK() {
		t.Fatalf("surviving candidate = %+v", result.Outcomes[1])
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 || stops[0].Name != "Ramen Shop" {
		t.Fatalf("schedule = %+v", stops)
	}
	if stops[0].StopID != result.Outcomes[1].StopID {
		t.Fatal("outcome cites a stop absent from the schedule")
	}
}

func TestApplySingleReplacementReplacesAtPosition(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 1, 1), existing("B", 1, 2))

	byDay, err := engine.ApplySingleReplacement(context.Background(), "trip1", aiproto.Candidate{
		UID: "poi-new", Name: "New Museum", Type: "attraction", Day: 1, Order: 2,
		Reason: "shorter queue",
	})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	day1 := byDay[1]
	if len(day1) != 2 {
		t.Fatalf("day 1 = %+v", day1)
	}
	if day1[1].Name != "New Museum" || day1[1].Order != 2 {
		t.Fatalf("replacement not at (1,2): %+v", day1[1])
	}
	if day1[1].AIReason != "shorter queue" || !day1[1].AIPicked {
		t.Fatalf("recommendation metadata lost: %+v", day1[1])
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	for _, s := range stops {
		if s.StopID == "B" {
			t.Fatal("replaced stop B still persisted")
		}
	}
}

func TestApplySingleReplacementIdempotent(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 1, 1))

	candidate := aiproto.Candidate{UID: "poi-new", Name: "New Museum", Type: "attraction", Day: 1, Order: 1}

	first, err := engine.ApplySingleReplacement(context.Background(), "trip1", candidate)
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	second, err := engine.ApplySingleReplacement(context.Background(), "trip1", candidate)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}

	if len(second[1]) != 1 {
		t.Fatalf("replay grew the schedule: %+v", second[1])
	}
	if first[1][0].StopID != second[1][0].StopID {
		t.Fatal("replay replaced the stop again")
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 {
		t.Fatalf("expected exactly one stop, got %d", len(stops))
	}
}

func TestApplyReplaceFromCandidatesUsesTargetPosition(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 2, 1))

	byDay, err := engine.ApplyReplaceFromCandidates(context.Background(), "trip1",
		aiproto.ReplaceTarget{Name: "A", Day: 2, Order: 1},
		aiproto.Candidate{UID: "poi-x", Name: "Quiet Shrine", Type: "attraction", Day: 1, Order: 1},
	)
	if err != nil {
		t.Fatalf("replace-from: %v", err)
	}
	if byDay[2][0].Name != "Quiet Shrine" {
		t.Fatalf("chosen candidate not at target: %+v", byDay[2])
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	for _, s := range stops {
		if s.StopID == "A" {
			t.Fatal("swapped-out stop A still persisted")
		}
	}
}

func TestApplyReplaceFromCandidatesVacantSlotInserts(t *testing.T) {
	engine, _ := newTestEngine(t)

	byDay, err := engine.ApplyReplaceFromCandidates(context.Background(), "trip1",
		aiproto.ReplaceTarget{Name: "gone", Day: 1, Order: 1},
		aiproto.Candidate{UID: "poi-x", Name: "Quiet Shrine", Type: "attraction", Day: 1, Order: 1},
	)
	if err != nil {
		t.Fatalf("replace-from: %v", err)
	}
	if len(byDay[1]) != 1 || byDay[1][0].Name != "Quiet Shrine" || byDay[1][0].Order != 1 {
		t.Fatalf("vacant target not filled: %+v", byDay[1])
	}
}

func TestStageReoptimizationDoesNotTouchStore(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 1, 1))

	plan, err := engine.StageReoptimization(context.Background(), "trip1", aiproto.ItineraryTree{
		Days: 2,
		Attractions: []aiproto.Attraction{
			{UID: "n1", Name: "Harbor", Day: 2, Order: 1},
			{UID: "n2", Name: "Castle", Day: 1, Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(plan.Stops) != 2 {
		t.Fatalf("plan stops = %+v", plan.Stops)
	}
	// sorted by day then order
	if plan.Stops[0].Name != "Castle" || plan.Stops[1].Name != "Harbor" {
		t.Fatalf("plan not ordered: %+v", plan.Stops)
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 || stops[0].StopID != "A" {
		t.Fatalf("staging touched the store: %+v", stops)
	}
}

func TestStageReoptimizationDiscardsOnResolveFailure(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 1, 1))
	mem.FailResolve = map[string]bool{"n2": true}

	_, err := engine.StageReoptimization(context.Background(), "trip1", aiproto.ItineraryTree{
		Attractions: []aiproto.Attraction{
			{UID: "n1", Name: "Harbor", Day: 1, Order: 1},
			{UID: "n2", Name: "Broken", Day: 1, Order: 2},
		},
	})
	if err == nil {
		t.Fatal("expected staging to fail")
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 1 || stops[0].StopID != "A" {
		t.Fatalf("failed staging mutated the store: %+v", stops)
	}
}

func TestCommitReoptimizationReplacesWholeSchedule(t *testing.T) {
	engine, mem := newTestEngine(t, existing("A", 1, 1), existing("B", 1, 2), existing("C", 2, 1))

	plan, err := engine.StageReoptimization(context.Background(), "trip1", aiproto.ItineraryTree{
		Days: 2,
		Attractions: []aiproto.Attraction{
			{UID: "n1", Name: "Castle", Day: 1, Order: 1},
			{UID: "n2", Name: "Harbor", Day: 2, Order: 1},
		},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	byDay, err := engine.CommitReoptimization(context.Background(), plan)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(byDay[1]) != 1 || byDay[1][0].Name != "Castle" {
		t.Fatalf("day 1 = %+v", byDay[1])
	}
	if len(byDay[2]) != 1 || byDay[2][0].Name != "Harbor" {
		t.Fatalf("day 2 = %+v", byDay[2])
	}

	stops, _ := mem.StopsByItinerary(context.Background(), "trip1")
	if len(stops) != 2 {
		t.Fatalf("old stops survived the commit: %+v", stops)
	}
	it, _ := mem.Itinerary(context.Background(), "trip1")
	if it.Days != 2 {
		t.Fatalf("day count = %d, want 2", it.Days)
	}
}

func TestReloadReturnsCurrentSchedule(t *testing.T) {
	engine, _ := newTestEngine(t, existing("A", 1, 1), existing("B", 2, 1))

	byDay, err := engine.Reload(context.Background(), "trip1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(byDay) != 2 || byDay[1][0].StopID != "A" || byDay[2][0].StopID != "B" {
		t.Fatalf("schedule = %+v", byDay)
	}
}
