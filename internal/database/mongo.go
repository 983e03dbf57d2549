package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongoDB establishes a connection to MongoDB and returns the client.
func ConnectMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	// Ping the database to verify connection.
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Println("Connected to MongoDB")
	return client, nil
}

// GetUserCollection returns the MongoDB collection for users.
func GetUserCollection(client *mongo.Client, dbName string) *mongo.Collection {
	if dbName == "" {
		dbName = "placegrad"
	}
	return client.Database(dbName).Collection("users")
}
