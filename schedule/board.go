package schedule

import (
	"fmt"
	"sort"

	"tripline/models"
	"tripline/store"
)

// Board holds the stops of one itinerary grouped by day, with orders kept
// dense (1..n per day). All mutations renumber the affected days before
// returning, so a Board read back at any point satisfies that invariant.
//
// Board is not safe for concurrent use. The per-itinerary queue serializes
// mutations; tests drive it directly.
type Board struct {
	itineraryID string
	days        map[int][]models.Stop
	removed     map[string]bool
}

// NewBoard groups stops by day, sorts each day by stored order and
// renumbers it densely. Stops recorded with day < 1 are clamped to day 1.
func NewBoard(itineraryID string, stops []models.Stop) *Board {
	b := &Board{
		itineraryID: itineraryID,
		days:        make(map[int][]models.Stop),
		removed:     make(map[string]bool),
	}
	for _, s := range stops {
		day := s.Day
		if day < 1 {
			day = 1
		}
		s.Day = day
		b.days[day] = append(b.days[day], s)
	}
	for day, list := range b.days {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
		b.days[day] = list
		b.renumber(day)
	}
	return b
}

func (b *Board) ItineraryID() string { return b.itineraryID }

func (b *Board) renumber(day int) {
	list := b.days[day]
	if len(list) == 0 {
		delete(b.days, day)
		return
	}
	for i := range list {
		list[i].Order = i + 1
		list[i].Day = day
	}
}

// ListByDay returns the stops of one day in order. The slice is a copy.
func (b *Board) ListByDay(day int) []models.Stop {
	list := b.days[day]
	out := make([]models.Stop, len(list))
	copy(out, list)
	return out
}

// Stops returns every stop on the board ordered by day then order.
func (b *Board) Stops() []models.Stop {
	days := make([]int, 0, len(b.days))
	for day := range b.days {
		days = append(days, day)
	}
	sort.Ints(days)

	var out []models.Stop
	for _, day := range days {
		out = append(out, b.days[day]...)
	}
	return out
}

// MaxDay returns the highest day that holds at least one stop, or 0 for an
// empty board.
func (b *Board) MaxDay() int {
	max := 0
	for day := range b.days {
		if day > max {
			max = day
		}
	}
	return max
}

// RemovedStopIDs lists the ids of stops deleted since the board was built,
// for write-back diffing.
func (b *Board) RemovedStopIDs() []string {
	ids := make([]string, 0, len(b.removed))
	for id := range b.removed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (b *Board) find(stopID string) (day, idx int, ok bool) {
	for d, list := range b.days {
		for i, s := range list {
			if s.StopID == stopID {
				return d, i, true
			}
		}
	}
	return 0, 0, false
}

// Insert places stop on the given day. pos is 1-based; siblings at pos and
// after shift down. pos < 1 or past the end appends.
func (b *Board) Insert(day, pos int, stop models.Stop) {
	if day < 1 {
		day = 1
	}
	list := b.days[day]
	if pos < 1 || pos > len(list) {
		pos = len(list) + 1
	}
	list = append(list, models.Stop{})
	copy(list[pos:], list[pos-1:])
	list[pos-1] = stop
	b.days[day] = list
	b.renumber(day)
}

// Remove deletes a stop and closes the gap in its day. emptied reports
// whether the day is now without stops.
func (b *Board) Remove(stopID string) (emptied bool, day int, err error) {
	day, idx, ok := b.find(stopID)
	if !ok {
		return false, 0, fmt.Errorf("%w: stop %s", store.ErrNotFound, stopID)
	}
	list := b.days[day]
	b.days[day] = append(list[:idx], list[idx+1:]...)
	b.removed[stopID] = true
	b.renumber(day)
	_, still := b.days[day]
	return !still, day, nil
}

// Move repositions a stop within its day. from must match the stop's
// current order; to == from is a no-op.
func (b *Board) Move(stopID string, from, to int) error {
	day, idx, ok := b.find(stopID)
	if !ok {
		return fmt.Errorf("%w: stop %s", store.ErrNotFound, stopID)
	}
	list := b.days[day]
	if list[idx].Order != from {
		return fmt.Errorf("%w: stop %s is at order %d, not %d", store.ErrInvalidArgument, stopID, list[idx].Order, from)
	}
	if to == from {
		return nil
	}
	if to < 1 || to > len(list) {
		return fmt.Errorf("%w: order %d out of range for day %d", store.ErrInvalidArgument, to, day)
	}

	stop := list[idx]
	list = append(list[:idx], list[idx+1:]...)
	list = append(list, models.Stop{})
	copy(list[to:], list[to-1:])
	list[to-1] = stop
	b.days[day] = list
	b.renumber(day)
	return nil
}

// ChangeDay detaches a stop from its day and appends it to target at
// position count+1. Both days are renumbered. emptiedDay is the source day
// when the move left it without stops, 0 otherwise.
func (b *Board) ChangeDay(stopID string, target int) (emptiedDay int, err error) {
	if target < 1 {
		return 0, fmt.Errorf("%w: day %d", store.ErrInvalidArgument, target)
	}
	day, idx, ok := b.find(stopID)
	if !ok {
		return 0, fmt.Errorf("%w: stop %s", store.ErrNotFound, stopID)
	}
	if day == target {
		return 0, nil
	}

	list := b.days[day]
	stop := list[idx]
	b.days[day] = append(list[:idx], list[idx+1:]...)
	b.renumber(day)

	b.days[target] = append(b.days[target], stop)
	b.renumber(target)

	if _, still := b.days[day]; !still {
		return day, nil
	}
	return 0, nil
}

// ReplaceAt swaps out the stop at (day, pos) for the given one, keeping the
// position. When the slot is vacant the stop is inserted there instead,
// which makes a retried replacement land on the same outcome.
func (b *Board) ReplaceAt(day, pos int, stop models.Stop) (replacedID string) {
	list := b.days[day]
	if pos >= 1 && pos <= len(list) {
		replacedID = list[pos-1].StopID
		b.removed[replacedID] = true
		list[pos-1] = stop
		b.days[day] = list
		b.renumber(day)
		return replacedID
	}
	b.Insert(day, pos, stop)
	return ""
}

// ReplaceStop swaps out a specific stop by id, keeping its day and
// position.
func (b *Board) ReplaceStop(stopID string, stop models.Stop) error {
	day, idx, ok := b.find(stopID)
	if !ok {
		return fmt.Errorf("%w: stop %s", store.ErrNotFound, stopID)
	}
	b.removed[stopID] = true
	b.days[day][idx] = stop
	b.renumber(day)
	return nil
}
