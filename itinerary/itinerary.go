// itinerary.go
package itinerary

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"tripline/db"
	"tripline/middleware"
	"tripline/models"
	"tripline/rdx"
	"tripline/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Utility function to extract user ID from JWT
func GetRequestingUserID(w http.ResponseWriter, r *http.Request) string {
	tokenString := r.Header.Get("Authorization")
	claims, err := middleware.ValidateJWT(tokenString)
	if err != nil {
		log.Printf("JWT validation error: %v", err)
		return ""
	}
	return claims.UserID
}

// POST /api/itineraries
func CreateItinerary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var itinerary models.Itinerary
	if err := json.NewDecoder(r.Body).Decode(&itinerary); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	userID := GetRequestingUserID(w, r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itinerary.UserID = userID
	itinerary.ItineraryID = utils.GenerateRandomString(13)
	itinerary.Published = false
	itinerary.CopiedFrom = nil
	itinerary.CreatedAt = time.Now()
	itinerary.UpdatedAt = itinerary.CreatedAt
	if itinerary.Days < 0 {
		itinerary.Days = 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ItineraryCollection.InsertOne(ctx, itinerary); err != nil {
		http.Error(w, "Error inserting itinerary", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(itinerary)
}

// GET /api/itineraries/:id
func GetItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	itineraryID := ps.ByName("id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"itineraryid": itineraryID, "deleted": bson.M{"$ne": true}}

	var itinerary models.Itinerary
	err := db.ItineraryCollection.FindOne(ctx, filter).Decode(&itinerary)
	if err != nil {
		http.Error(w, "Itinerary not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, itinerary)
}

// GET /api/itineraries
func GetItineraries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"deleted": bson.M{"$ne": true}}
	if userID := utils.GetUserIDFromRequest(r); userID != "" {
		filter["$or"] = []bson.M{{"user_id": userID}, {"published": true}}
	} else {
		filter["published"] = true
	}

	itineraries, err := utils.FindAndDecode[models.Itinerary](ctx, db.ItineraryCollection, filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Error fetching itineraries")
		return
	}

	if itineraries == nil {
		itineraries = []models.Itinerary{}
	}

	utils.RespondWithJSON(w, http.StatusOK, itineraries)
}

// PUT /api/itineraries/:id
func UpdateItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := GetRequestingUserID(w, r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itineraryID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var existing models.Itinerary
	err := db.ItineraryCollection.FindOne(ctx, bson.M{"itineraryid": itineraryID}).Decode(&existing)
	if err != nil {
		http.Error(w, "Itinerary not found", http.StatusNotFound)
		return
	}

	if existing.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var updated models.Itinerary
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	update := bson.M{"$set": bson.M{
		"title":      updated.Title,
		"location":   updated.Location,
		"updated_at": time.Now(),
	}}

	_, err = db.ItineraryCollection.UpdateOne(ctx, bson.M{"itineraryid": itineraryID}, update)
	if err != nil {
		http.Error(w, "Error updating itinerary", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bson.M{"message": "Itinerary updated successfully"})
}

// DELETE /api/itineraries/:id
// Removes the schedule with the itinerary. Places stay shared.
func (a *API) DeleteItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := GetRequestingUserID(w, r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itineraryID := ps.ByName("id")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var itinerary models.Itinerary
	err := db.ItineraryCollection.FindOne(ctx, bson.M{"itineraryid": itineraryID}).Decode(&itinerary)
	if err != nil {
		http.Error(w, "Itinerary not found", http.StatusNotFound)
		return
	}

	if itinerary.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	a.Queue.Teardown(itineraryID)

	update := bson.M{"$set": bson.M{"deleted": true}}
	_, err = db.ItineraryCollection.UpdateOne(ctx, bson.M{"itineraryid": itineraryID}, update)
	if err != nil {
		http.Error(w, "Error deleting itinerary", http.StatusInternalServerError)
		return
	}

	if err := a.Backend.DeleteAllStops(ctx, itineraryID); err != nil {
		log.Printf("Failed to delete stops for %s: %v", itineraryID, err)
	}
	rdx.Del("schedule:" + itineraryID)

	utils.RespondWithJSON(w, http.StatusOK, bson.M{"message": "Itinerary deleted successfully"})
}

// PUT /api/itineraries/:id/publish
func PublishItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := GetRequestingUserID(w, r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := ps.ByName("id")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	filter := bson.M{"itineraryid": id, "user_id": userID}
	update := bson.M{"$set": bson.M{"published": true, "updated_at": time.Now()}}

	result, err := db.ItineraryCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		http.Error(w, "Error publishing itinerary", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Itinerary not found", http.StatusNotFound)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, bson.M{"message": "Itinerary published"})
}

// GET /api/itineraries/search
func SearchItineraries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	filter := bson.M{"deleted": bson.M{"$ne": true}, "published": true}
	if location := query.Get("location"); location != "" {
		filter["location"] = location
	}
	if title := query.Get("title"); title != "" {
		filter["title"] = bson.M{"$regex": title, "$options": "i"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	itineraries, err := utils.FindAndDecode[models.Itinerary](ctx, db.ItineraryCollection, filter)
	if err != nil {
		http.Error(w, "Error fetching itineraries", http.StatusInternalServerError)
		return
	}

	if itineraries == nil {
		itineraries = []models.Itinerary{}
	}

	utils.RespondWithJSON(w, http.StatusOK, itineraries)
}
