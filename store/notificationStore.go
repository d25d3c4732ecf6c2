package store

import (
	"context"
	"time"

	"safasajha-be/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationStore struct {
	coll *mongo.Collection
}

func NewNotificationStore(coll *mongo.Collection) *NotificationStore {
	return &NotificationStore{coll: coll}
}

// InsertMany assigns ids to ns in place and persists them in one round trip.
func (s *NotificationStore) InsertMany(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	docs := make([]interface{}, len(ns))
	for i := range ns {
		if ns[i].ID.IsZero() {
			ns[i].ID = primitive.NewObjectID()
		}
		docs[i] = ns[i]
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

// List returns one page of a user's inbox with the filtered total and the unread count.
func (s *NotificationStore) List(ctx context.Context, f models.NotificationFilter) ([]models.Notification, int64, int64, error) {
	filter := bson.M{"user": f.User}
	if f.IsRead != nil {
		filter["isRead"] = *f.IsRead
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		opts.SetLimit(f.Limit).SetSkip((page - 1) * f.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, 0, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, 0, err
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.coll.CountDocuments(ctx, bson.M{"user": f.User, "isRead": false})
	if err != nil {
		return nil, 0, 0, err
	}
	return notifications, total, unread, nil
}

// MarkRead flags one of user's notifications as read; readAt keeps the first read time.
func (s *NotificationStore) MarkRead(ctx context.Context, id, user primitive.ObjectID, at time.Time) (*models.Notification, error) {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "isRead", Value: true},
			{Key: "readAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$readAt", at}}}},
			{Key: "updatedAt", Value: at},
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n models.Notification
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "user": user}, update, opts).Decode(&n); err != nil {
		return nil, notFound(err)
	}
	return &n, nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, user primitive.ObjectID, at time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user": user, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": at, "updatedAt": at}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id, user primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "user": user})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindDue returns scheduled notifications that have not been delivered yet.
func (s *NotificationStore) FindDue(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduledFor", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := s.coll.Find(ctx, bson.M{"isSent": false, "scheduledFor": bson.M{"$lte": now}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	due := []models.Notification{}
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (s *NotificationStore) MarkSent(ctx context.Context, ids []primitive.ObjectID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"isSent": true, "sentAt": at, "updatedAt": at}},
	)
	return err
}
