package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoDatabase()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	presentations := db.Collection("presentations")
	_, err := presentations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "presentation_id", Value: 1}},
			Options: options.Index().
				SetName("uniq_presentation_id").
				SetUnique(true),
		},
		// worker/ops queries: "what is still processing"
		{
			Keys:    bson.D{{Key: "processing_status", Value: 1}},
			Options: options.Index().SetName("by_status"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_created"),
		},
	})
	return err
}
