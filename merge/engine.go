package merge

import (
	"context"
	"fmt"
	"sort"

	"tripline/aiproto"
	"tripline/models"
	"tripline/registry"
	"tripline/schedule"
	"tripline/store"
	"tripline/utils"
)

// Engine applies assistant recommendations to an itinerary's schedule.
// It keeps no state of its own between calls; everything flows through
// the schedule store and the place registry.
type Engine struct {
	schedules *schedule.Store
	places    *registry.Registry
}

func NewEngine(schedules *schedule.Store, places *registry.Registry) *Engine {
	return &Engine{schedules: schedules, places: places}
}

// CandidateOutcome records what happened to one candidate of a batch.
type CandidateOutcome struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	StopID string `json:"stopid,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (o CandidateOutcome) OK() bool { return o.Error == "" }

// BatchResult is the accumulated outcome of a batch apply. A batch with
// failures is not an error; callers read Failed to decide how to report.
type BatchResult struct {
	Applied  int                   `json:"applied"`
	Failed   int                   `json:"failed"`
	Outcomes []CandidateOutcome    `json:"outcomes"`
	Schedule map[int][]models.Stop `json:"schedule"`
}

func newStopFromCandidate(itineraryID, placeID string, c aiproto.Candidate) models.Stop {
	return models.Stop{
		StopID:      utils.GenerateRandomString(13),
		ItineraryID: itineraryID,
		PlaceID:     placeID,
		Day:         c.Day,
		Order:       c.Order,
		Name:        c.Name,
		Type:        models.DeriveStopType(c.Type),
		AIPicked:    true,
		AIReason:    c.Reason,
	}
}

func dayMap(board *schedule.Board) map[int][]models.Stop {
	out := make(map[int][]models.Stop)
	for _, s := range board.Stops() {
		out[s.Day] = append(out[s.Day], s)
	}
	return out
}

// ApplyBatch places the selected candidates into the schedule, best
// effort. Candidates whose place cannot be resolved are recorded as
// failures and the rest proceed; the schedule mutation itself happens in
// one grouped write so no reader observes a half-applied batch.
func (e *Engine) ApplyBatch(ctx context.Context, itineraryID string, candidates []aiproto.Candidate) (BatchResult, error) {
	result := BatchResult{Outcomes: make([]CandidateOutcome, len(candidates))}

	type resolved struct {
		idx     int
		placeID string
		c       aiproto.Candidate
	}
	var ready []resolved

	for i, c := range candidates {
		outcome := CandidateOutcome{UID: c.UID, Name: c.Name}
		placeID, err := e.places.ResolveCandidate(ctx, c.UID, c.Name, c.Type, c.Lat, c.Lng, c.Address, c.Tel)
		if err != nil {
			outcome.Error = err.Error()
			result.Outcomes[i] = outcome
			result.Failed++
			continue
		}
		ready = append(ready, resolved{idx: i, placeID: placeID, c: c})
		result.Outcomes[i] = outcome
	}

	board, err := e.schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
		placed := make(map[string]int)
		for _, r := range ready {
			stop := newStopFromCandidate(itineraryID, r.placeID, r.c)
			replacedID := b.ReplaceAt(r.c.Day, r.c.Order, stop)
			if prev, ok := placed[replacedID]; ok {
				// A later candidate took the same slot; the earlier
				// one never made it into the final schedule.
				result.Outcomes[prev].StopID = ""
				result.Outcomes[prev].Error = "superseded by a later candidate for the same slot"
				result.Applied--
				result.Failed++
			}
			placed[stop.StopID] = r.idx
			result.Outcomes[r.idx].StopID = stop.StopID
			result.Applied++
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}

	result.Schedule = dayMap(board)
	return result, nil
}

// ApplySingleReplacement swaps the stop at the candidate's day and order
// for the candidate. Replaying the same candidate is a no-op once the
// slot already holds its place.
func (e *Engine) ApplySingleReplacement(ctx context.Context, itineraryID string, c aiproto.Candidate) (map[int][]models.Stop, error) {
	placeID, err := e.places.ResolveCandidate(ctx, c.UID, c.Name, c.Type, c.Lat, c.Lng, c.Address, c.Tel)
	if err != nil {
		return nil, err
	}

	board, err := e.schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
		day := b.ListByDay(c.Day)
		if c.Order >= 1 && c.Order <= len(day) && day[c.Order-1].PlaceID == placeID {
			return nil
		}
		b.ReplaceAt(c.Day, c.Order, newStopFromCandidate(itineraryID, placeID, c))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dayMap(board), nil
}

// ApplyReplaceFromCandidates replaces the stop named by target with the
// candidate the user picked from the offered list. An occupied target slot
// is swapped by stop id; a vacant one falls back to an insert.
func (e *Engine) ApplyReplaceFromCandidates(ctx context.Context, itineraryID string, target aiproto.ReplaceTarget, chosen aiproto.Candidate) (map[int][]models.Stop, error) {
	chosen.Day = target.Day
	chosen.Order = target.Order

	placeID, err := e.places.ResolveCandidate(ctx, chosen.UID, chosen.Name, chosen.Type, chosen.Lat, chosen.Lng, chosen.Address, chosen.Tel)
	if err != nil {
		return nil, err
	}

	board, err := e.schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
		day := b.ListByDay(target.Day)
		if target.Order >= 1 && target.Order <= len(day) {
			cur := day[target.Order-1]
			if cur.PlaceID == placeID {
				return nil
			}
			return b.ReplaceStop(cur.StopID, newStopFromCandidate(itineraryID, placeID, chosen))
		}
		b.ReplaceAt(target.Day, target.Order, newStopFromCandidate(itineraryID, placeID, chosen))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dayMap(board), nil
}

// StagedPlan is a computed full-schedule replacement awaiting the user's
// confirmation. Nothing is persisted until Commit.
type StagedPlan struct {
	ItineraryID string        `json:"itineraryid"`
	Days        int           `json:"days"`
	Stops       []models.Stop `json:"stops"`
}

// StageReoptimization resolves every attraction of the optimized tree and
// builds the replacement schedule in memory. Any resolve failure discards
// the whole plan; the persisted schedule is untouched either way.
func (e *Engine) StageReoptimization(ctx context.Context, itineraryID string, tree aiproto.ItineraryTree) (*StagedPlan, error) {
	attractions := make([]aiproto.Attraction, len(tree.Attractions))
	copy(attractions, tree.Attractions)
	sort.SliceStable(attractions, func(i, j int) bool {
		if attractions[i].Day != attractions[j].Day {
			return attractions[i].Day < attractions[j].Day
		}
		return attractions[i].Order < attractions[j].Order
	})

	plan := &StagedPlan{ItineraryID: itineraryID, Days: tree.Days}
	for _, a := range attractions {
		placeID, err := e.places.ResolveCandidate(ctx, a.UID, a.Name, a.Type, a.Lat, a.Lng, a.Address, a.Tel)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", a.Name, err)
		}
		plan.Stops = append(plan.Stops, models.Stop{
			StopID:      utils.GenerateRandomString(13),
			ItineraryID: itineraryID,
			PlaceID:     placeID,
			Day:         a.Day,
			Order:       a.Order,
			Name:        a.Name,
			Type:        models.DeriveStopType(a.Type),
			AIPicked:    true,
			AIReason:    a.Reason,
		})
	}
	return plan, nil
}

// CommitReoptimization replaces the itinerary's whole schedule with the
// staged plan in one grouped write.
func (e *Engine) CommitReoptimization(ctx context.Context, plan *StagedPlan) (map[int][]models.Stop, error) {
	if plan == nil || plan.ItineraryID == "" {
		return nil, fmt.Errorf("%w: empty plan", store.ErrInvalidArgument)
	}
	board, err := e.schedules.Mutate(ctx, plan.ItineraryID, func(b *schedule.Board) error {
		for _, s := range b.Stops() {
			if _, _, err := b.Remove(s.StopID); err != nil {
				return err
			}
		}
		for _, s := range plan.Stops {
			b.Insert(s.Day, s.Order, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dayMap(board), nil
}

// Reload fetches the current schedule, for schedule-changed notifications
// where the remote side already persisted its change.
func (e *Engine) Reload(ctx context.Context, itineraryID string) (map[int][]models.Stop, error) {
	board, err := e.schedules.Load(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	return dayMap(board), nil
}
