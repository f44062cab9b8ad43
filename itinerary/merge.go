package itinerary

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tripline/aiproto"
	"tripline/assistant"
	"tripline/merge"
	"tripline/rdx"
	"tripline/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const stagedPlanTTL = 30 * time.Minute

type assistantChatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

// POST /api/itineraries/:id/assistant
// Sends the conversation with the itinerary's current schedule attached,
// then splits the reply into display text and a payload for the client to
// act on. A reply whose structured block fails to parse still returns its
// text.
func (a *API) AssistantChat(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var req assistantChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "At least one message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 90*time.Second)
	defer cancel()

	itin, err := a.Backend.Itinerary(ctx, itineraryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	board, err := a.Schedules.Load(ctx, itineraryID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	reply, err := a.Assistant.Send(ctx, req.Messages, &assistant.ItineraryContext{
		Itinerary: itin,
		Schedule:  scheduleByDay(board),
	})
	if err != nil {
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	display, payload := aiproto.Parse(reply)
	resp := map[string]any{"reply": display}
	if payload != nil {
		resp["data_type"] = payload.Tag()
		resp["payload"] = payload
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

type applyBatchRequest struct {
	Candidates []aiproto.Candidate `json:"candidates"`
}

// POST /api/itineraries/:id/merge/batch
func (a *API) ApplyBatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var req applyBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Candidates) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "candidates are required")
		return
	}
	aiproto.NormalizeCandidates(req.Candidates)

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Engine.ApplyBatch(ctx, itineraryID, req.Candidates)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	batch := result.(merge.BatchResult)
	status := http.StatusOK
	if batch.Failed > 0 {
		status = http.StatusMultiStatus
	}
	utils.RespondWithJSON(w, status, batch)
}

// POST /api/itineraries/:id/merge/replace
func (a *API) ApplyReplace(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var c aiproto.Candidate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.UID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "candidate with uid is required")
		return
	}
	aiproto.NormalizeCandidate(&c)

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Engine.ApplySingleReplacement(ctx, itineraryID, c)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

type replaceFromRequest struct {
	Target aiproto.ReplaceTarget `json:"target"`
	Chosen aiproto.Candidate     `json:"chosen"`
}

// POST /api/itineraries/:id/merge/replace-from
func (a *API) ApplyReplaceFrom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var req replaceFromRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Chosen.UID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "target and chosen candidate are required")
		return
	}
	aiproto.NormalizeCandidate(&req.Chosen)
	if req.Target.Day < 1 {
		req.Target.Day = 1
	}
	if req.Target.Order < 1 {
		req.Target.Order = 1
	}

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Engine.ApplyReplaceFromCandidates(ctx, itineraryID, req.Target, req.Chosen)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

type stageReoptRequest struct {
	Itinerary aiproto.ItineraryTree `json:"itinerary"`
}

func stagedPlanKey(itineraryID, planID string) string {
	return "reopt:" + itineraryID + ":" + planID
}

// POST /api/itineraries/:id/reoptimize/stage
// Computes the replacement schedule without touching the persisted one.
// The plan sits in Redis until the user confirms or it expires.
func (a *API) StageReoptimization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var req stageReoptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Itinerary.Attractions) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "itinerary tree with attractions is required")
		return
	}

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Engine.StageReoptimization(ctx, itineraryID, req.Itinerary)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	plan := result.(*merge.StagedPlan)

	planID := uuid.NewString()
	encoded, err := json.Marshal(plan)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to stage plan")
		return
	}
	if err := rdx.SetWithExpiry(stagedPlanKey(itineraryID, planID), string(encoded), stagedPlanTTL); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to stage plan")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"plan_id": planID,
		"plan":    plan,
	})
}

type commitReoptRequest struct {
	PlanID string `json:"plan_id"`
}

// POST /api/itineraries/:id/reoptimize/commit
func (a *API) CommitReoptimization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	var req commitReoptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "plan_id is required")
		return
	}

	key := stagedPlanKey(itineraryID, req.PlanID)
	encoded, err := rdx.Get(key)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Staged plan not found or expired")
		return
	}
	var plan merge.StagedPlan
	if err := json.Unmarshal([]byte(encoded), &plan); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Corrupt staged plan")
		return
	}

	result, err := a.submit(r.Context(), itineraryID, func(ctx context.Context) (any, error) {
		return a.Engine.CommitReoptimization(ctx, &plan)
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	rdx.Del(key)
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// POST /api/itineraries/:id/reoptimize/discard
func (a *API) DiscardReoptimization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req commitReoptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "plan_id is required")
		return
	}
	rdx.Del(stagedPlanKey(ps.ByName("id"), req.PlanID))
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Plan discarded"})
}
