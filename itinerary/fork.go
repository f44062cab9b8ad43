package itinerary

import (
	"context"
	"net/http"
	"time"

	"tripline/db"
	"tripline/models"
	"tripline/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// POST /api/itineraries/:id/fork
// Copies the itinerary document and every stop under a fresh set of ids.
// Places are shared, not copied.
func (a *API) ForkItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := GetRequestingUserID(w, r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	originalID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var original models.Itinerary
	err := db.ItineraryCollection.FindOne(ctx, bson.M{"itineraryid": originalID, "deleted": bson.M{"$ne": true}}).Decode(&original)
	if err != nil {
		http.Error(w, "Original itinerary not found", http.StatusNotFound)
		return
	}
	if !original.Published && original.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	now := time.Now()
	forked := models.Itinerary{
		ItineraryID: utils.GenerateRandomString(13),
		UserID:      userID,
		Title:       "Forked - " + original.Title,
		Location:    original.Location,
		Days:        original.Days,
		Published:   false,
		CopiedFrom:  &originalID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := db.ItineraryCollection.InsertOne(ctx, forked); err != nil {
		http.Error(w, "Error forking itinerary", http.StatusInternalServerError)
		return
	}

	stops, err := a.Backend.StopsByItinerary(ctx, originalID)
	if err != nil {
		http.Error(w, "Error copying schedule", http.StatusInternalServerError)
		return
	}
	for _, stop := range stops {
		stop.StopID = utils.GenerateRandomString(13)
		stop.ItineraryID = forked.ItineraryID
		if err := a.Backend.UpsertStop(ctx, stop); err != nil {
			http.Error(w, "Error copying schedule", http.StatusInternalServerError)
			return
		}
	}

	utils.RespondWithJSON(w, http.StatusCreated, forked)
}
