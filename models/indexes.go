package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureReportIndexes creates the indexes used by report listings and the dashboard
func EnsureReportIndexes(collection *mongo.Collection) error {
	return createIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "scheduledDate", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "urgency", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
}

// EnsureNotificationIndexes creates the inbox and scheduler indexes
func EnsureNotificationIndexes(collection *mongo.Collection) error {
	return createIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "isRead", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "scheduledFor", Value: 1}, {Key: "isSent", Value: 1}}},
	})
}

// EnsureUserIndexes creates a unique index on email
func EnsureUserIndexes(collection *mongo.Collection) error {
	return createIndexes(collection, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "isActive", Value: 1}}},
	})
}

func createIndexes(collection *mongo.Collection, models []mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, models)
	return err
}
