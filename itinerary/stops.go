package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tripline/assistant"
	"tripline/merge"
	"tripline/models"
	"tripline/queue"
	"tripline/rdx"
	"tripline/registry"
	"tripline/schedule"
	"tripline/store"
	"tripline/utils"

	"github.com/julienschmidt/httprouter"
)

// API bundles the scheduling stack behind the stop-mutation endpoints.
// Every write goes through the per-itinerary queue so two triggers on the
// same itinerary can never interleave.
type API struct {
	Backend   store.Store
	Schedules *schedule.Store
	Places    *registry.Registry
	Engine    *merge.Engine
	Queue     *queue.Manager
	Assistant *assistant.Client
}

func NewAPI(backend store.Store, schedules *schedule.Store, places *registry.Registry, engine *merge.Engine, q *queue.Manager, client *assistant.Client) *API {
	return &API{
		Backend:   backend,
		Schedules: schedules,
		Places:    places,
		Engine:    engine,
		Queue:     q,
		Assistant: client,
	}
}

// submit queues op on the itinerary's worker and waits for its result.
func (a *API) submit(ctx context.Context, itineraryID string, op queue.Op) (any, error) {
	ch, err := a.Queue.Submit(ctx, itineraryID, op)
	if err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res.Value, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidArgument):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, queue.ErrTornDown):
		utils.RespondWithError(w, http.StatusGone, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func scheduleByDay(board *schedule.Board) map[int][]models.Stop {
	out := make(map[int][]models.Stop)
	for _, s := range board.Stops() {
		out[s.Day] = append(out[s.Day], s)
	}
	return out
}

// GET /api/itineraries/all/:id/schedule
// The grouped listing is cached in Redis; any mutation drops the key.
func (a *API) GetSchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	if cached, err := rdx.Get("schedule:" + itineraryID); err == nil && cached != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	board, err := a.Schedules.Load(ctx, itineraryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	grouped := scheduleByDay(board)
	if encoded, err := json.Marshal(grouped); err == nil {
		rdx.SetWithExpiry("schedule:"+itineraryID, string(encoded), 10*time.Minute)
	}
	utils.RespondWithJSON(w, http.StatusOK, grouped)
}

type addStopRequest struct {
	POIID     string  `json:"poi_id"`
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Address   string  `json:"address"`
	Tel       string  `json:"tel"`
	Day       int     `json:"day"`
	Order     int     `json:"order"` // 0 appends
	Transport string  `json:"transport"`
}

// POST /api/itineraries/:id/stops
func (a *API) AddStop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	var req addStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.POIID == "" || req.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "poi_id and name are required")
		return
	}
	if req.Day < 1 {
		req.Day = 1
	}

	ctx := r.Context()

	// Place resolution and the schedule write are separate queue items so
	// the worker never sits on the schedule while a lookup is in flight.
	resolved, err := a.submit(ctx, itineraryID, func(ctx context.Context) (any, error) {
		return a.Places.Resolve(ctx, req.POIID, models.Place{
			Name:      req.Name,
			Category:  req.Category,
			Latitude:  req.Lat,
			Longitude: req.Lng,
			Address:   req.Address,
			Tel:       req.Tel,
		})
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	placeID := resolved.(string)

	stop := models.Stop{
		StopID:      utils.GenerateRandomString(13),
		ItineraryID: itineraryID,
		PlaceID:     placeID,
		Day:         req.Day,
		Order:       req.Order,
		Name:        req.Name,
		Transport:   req.Transport,
		Type:        models.DeriveStopType(req.Category),
	}

	result, err := a.submit(ctx, itineraryID, func(ctx context.Context) (any, error) {
		return a.Schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
			b.Insert(req.Day, req.Order, stop)
			return nil
		})
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.SendResponse(w, http.StatusCreated, map[string]any{
		"stop":     stop,
		"schedule": scheduleByDay(result.(*schedule.Board)),
	}, "Stop added", nil)
}

type moveStopRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// PUT /api/itineraries/:id/stops/:stopId/move
func (a *API) MoveStop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	stopID := ps.ByName("stopId")

	var req moveStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
			return b.Move(stopID, req.From, req.To)
		})
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, scheduleByDay(result.(*schedule.Board)))
}

type changeDayRequest struct {
	Day int `json:"day"`
}

// PUT /api/itineraries/:id/stops/:stopId/day
func (a *API) ChangeStopDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	stopID := ps.ByName("stopId")

	var req changeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var emptiedDay int
	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
			day, err := b.ChangeDay(stopID, req.Day)
			emptiedDay = day
			return err
		})
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"schedule":    scheduleByDay(result.(*schedule.Board)),
		"emptied_day": emptiedDay,
	})
}

// DELETE /api/itineraries/:id/stops/:stopId
func (a *API) RemoveStop(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")
	stopID := ps.ByName("stopId")

	var emptiedDay int
	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Schedules.Mutate(ctx, itineraryID, func(b *schedule.Board) error {
			emptied, day, err := b.Remove(stopID)
			if emptied {
				emptiedDay = day
			}
			return err
		})
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"schedule":    scheduleByDay(result.(*schedule.Board)),
		"emptied_day": emptiedDay,
	})
}

// POST /api/itineraries/:id/session/close
func (a *API) CloseSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	a.Queue.Teardown(ps.ByName("id"))
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Session closed"})
}
