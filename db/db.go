package db

import (
	"context"
	"log"
	"os"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client              *mongo.Client
	UserCollection      *mongo.Collection
	ItineraryCollection *mongo.Collection
	StopsCollection     *mongo.Collection
	PlacesCollection    *mongo.Collection
)

// Init opens the MongoDB connection and wires up the collections.
// MONGO_URI defaults to the local instance.
func Init(ctx context.Context) error {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	Client, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}

	database := Client.Database("triplinedb")
	UserCollection = database.Collection("users")
	ItineraryCollection = database.Collection("itineraries")
	StopsCollection = database.Collection("stops")
	PlacesCollection = database.Collection("places")

	log.Println("MongoDB connected:", uri)
	return nil
}
