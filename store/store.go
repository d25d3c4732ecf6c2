// Package store holds the MongoDB-backed collections of the portal.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ReportsCollection       = "wastereports"
	UsersCollection         = "users"
	NotificationsCollection = "notifications"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrVersionConflict = errors.New("document was modified concurrently")
	ErrDuplicate       = errors.New("duplicate key")
)

// Scope restricts an aggregation to one owner and/or a trailing window.
type Scope struct {
	User  *primitive.ObjectID
	Since *time.Time
}

func (s Scope) match() bson.M {
	m := bson.M{}
	if s.User != nil {
		m["user"] = *s.User
	}
	if s.Since != nil {
		m["createdAt"] = bson.M{"$gte": *s.Since}
	}
	return m
}

func countBy(ctx context.Context, coll *mongo.Collection, field string, match bson.M) ([]bucket, error) {
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	rows := []bucket{}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// bucket decodes group keys that may be missing on old documents.
type bucket struct {
	ID    *string `bson:"_id"`
	Count int64   `bson:"count"`
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// existsOrConflict resolves an unmatched compare-and-swap filter.
func existsOrConflict(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

// versionMatch also matches documents written before the version field existed.
func versionMatch(expected int64) interface{} {
	if expected == 0 {
		return bson.M{"$in": bson.A{int64(0), nil}}
	}
	return expected
}
