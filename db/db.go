package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Name = "garmentsDB"

// Collections bundles the handles every store is built from. It is
// created once in main and injected, so request handlers never touch a
// shared package-level collection.
type Collections struct {
	Users       *mongo.Collection
	Products    *mongo.Collection
	Orders      *mongo.Collection
	Idempotency *mongo.Collection
}

func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func NewCollections(client *mongo.Client) *Collections {
	database := client.Database(Name)
	return &Collections{
		Users:       database.Collection("users"),
		Products:    database.Collection("products"),
		Orders:      database.Collection("orders"),
		Idempotency: database.Collection("idempotency"),
	}
}
