package config

import (
	"context"
	"fmt"
	"time"

	"safasajha-be/models"
	"safasajha-be/store"

	"github.com/apex/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDB opens the process-wide MongoDB client and ensures the collection indexes.
func ConnectDB(cfg *Config) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	log.WithField("database", cfg.MongoDatabase).Info("Connected to MongoDB")

	db := client.Database(cfg.MongoDatabase)
	ensure := map[string]func(*mongo.Collection) error{
		store.ReportsCollection:       models.EnsureReportIndexes,
		store.UsersCollection:         models.EnsureUserIndexes,
		store.NotificationsCollection: models.EnsureNotificationIndexes,
	}
	for name, fn := range ensure {
		if err := fn(db.Collection(name)); err != nil {
			log.WithError(err).WithField("collection", name).Warn("could not create indexes")
		}
	}
	return client, db, nil
}

func DisconnectDB(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		log.WithError(err).Warn("MongoDB disconnect failed")
	}
}
