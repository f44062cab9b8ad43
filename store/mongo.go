package store

import (
	"context"
	"fmt"

	"tripline/db"
	"tripline/models"
	"tripline/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the production Store over the collections opened in db.Init.
type Mongo struct{}

func NewMongo() *Mongo { return &Mongo{} }

func (m *Mongo) StopsByItinerary(ctx context.Context, itineraryID string) ([]models.Stop, error) {
	cursor, err := db.StopsCollection.Find(ctx, bson.M{"itineraryid": itineraryID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	defer cursor.Close(ctx)

	var stops []models.Stop
	if err := cursor.All(ctx, &stops); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return stops, nil
}

func (m *Mongo) UpsertStop(ctx context.Context, stop models.Stop) error {
	if stop.StopID == "" {
		return fmt.Errorf("%w: stop id is empty", ErrInvalidArgument)
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := db.StopsCollection.ReplaceOne(ctx, bson.M{"stopid": stop.StopID}, stop, opts); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (m *Mongo) DeleteStop(ctx context.Context, stopID string) error {
	res, err := db.StopsCollection.DeleteOne(ctx, bson.M{"stopid": stopID})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: stop %s", ErrNotFound, stopID)
	}
	return nil
}

func (m *Mongo) DeleteAllStops(ctx context.Context, itineraryID string) error {
	if _, err := db.StopsCollection.DeleteMany(ctx, bson.M{"itineraryid": itineraryID}); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// ResolvePlace returns the id of the place with the given POI id, creating
// the record on first sight. First write wins: attrs on later calls are
// ignored.
func (m *Mongo) ResolvePlace(ctx context.Context, poiID string, attrs models.Place) (string, error) {
	if poiID == "" {
		return "", fmt.Errorf("%w: poi id is empty", ErrInvalidArgument)
	}

	var existing models.Place
	err := db.PlacesCollection.FindOne(ctx, bson.M{"poi_id": poiID}).Decode(&existing)
	if err == nil {
		return existing.PlaceID, nil
	}
	if err != mongo.ErrNoDocuments {
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	attrs.PlaceID = utils.GenerateRandomString(13)
	attrs.POIID = poiID
	if _, err := db.PlacesCollection.InsertOne(ctx, attrs); err != nil {
		// A concurrent insert can beat us to the unique poi_id; re-read.
		if mongo.IsDuplicateKeyError(err) {
			if err2 := db.PlacesCollection.FindOne(ctx, bson.M{"poi_id": poiID}).Decode(&existing); err2 == nil {
				return existing.PlaceID, nil
			}
		}
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return attrs.PlaceID, nil
}

func (m *Mongo) PlaceByID(ctx context.Context, placeID string) (models.Place, error) {
	var place models.Place
	err := db.PlacesCollection.FindOne(ctx, bson.M{"placeid": placeID}).Decode(&place)
	if err == mongo.ErrNoDocuments {
		return models.Place{}, fmt.Errorf("%w: place %s", ErrNotFound, placeID)
	}
	if err != nil {
		return models.Place{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return place, nil
}

func (m *Mongo) Itinerary(ctx context.Context, itineraryID string) (models.Itinerary, error) {
	var itinerary models.Itinerary
	err := db.ItineraryCollection.FindOne(ctx, bson.M{"itineraryid": itineraryID}).Decode(&itinerary)
	if err == mongo.ErrNoDocuments {
		return models.Itinerary{}, fmt.Errorf("%w: itinerary %s", ErrNotFound, itineraryID)
	}
	if err != nil {
		return models.Itinerary{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return itinerary, nil
}

func (m *Mongo) UpdateItineraryDays(ctx context.Context, itineraryID string, days int) error {
	res, err := db.ItineraryCollection.UpdateOne(ctx,
		bson.M{"itineraryid": itineraryID},
		bson.M{"$set": bson.M{"days": days}})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: itinerary %s", ErrNotFound, itineraryID)
	}
	return nil
}
