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

// ReportStore persists waste reports. Every write is a single-document operation.
type ReportStore struct {
	coll *mongo.Collection
}

func NewReportStore(coll *mongo.Collection) *ReportStore {
	return &ReportStore{coll: coll}
}

func (s *ReportStore) Insert(ctx context.Context, r *models.WasteReport) error {
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	_, err := s.coll.InsertOne(ctx, r)
	return err
}

func (s *ReportStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.WasteReport, error) {
	var r models.WasteReport
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *ReportStore) List(ctx context.Context, f models.ReportFilter) ([]models.WasteReport, error) {
	filter := bson.M{}
	if f.User != nil {
		filter["user"] = *f.User
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Urgency != "" {
		filter["urgency"] = f.Urgency
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	return s.find(ctx, filter, opts)
}

// Replace writes r iff the stored version still equals expected, then bumps the version.
func (s *ReportStore) Replace(ctx context.Context, r *models.WasteReport, expected int64) error {
	r.Version = expected + 1
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": r.ID, "version": versionMatch(expected)}, r)
	if err != nil {
		r.Version = expected
		return err
	}
	if res.MatchedCount == 0 {
		r.Version = expected
		return existsOrConflict(ctx, s.coll, r.ID)
	}
	return nil
}

// Delete removes a pending report whose version still equals expected.
func (s *ReportStore) Delete(ctx context.Context, id primitive.ObjectID, expected int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{
		"_id":     id,
		"version": versionMatch(expected),
		"status":  models.StatusPending,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return existsOrConflict(ctx, s.coll, id)
	}
	return nil
}

// FindScheduledBetween returns reports with a pickup date in [from, to).
func (s *ReportStore) FindScheduledBetween(ctx context.Context, from, to time.Time, statuses []models.ReportStatus) ([]models.WasteReport, error) {
	filter := bson.M{
		"scheduledDate": bson.M{"$gte": from, "$lt": to},
		"status":        bson.M{"$in": statuses},
	}
	return s.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}}))
}

// ListFeedback returns reports carrying feedback, newest feedback first.
func (s *ReportStore) ListFeedback(ctx context.Context, limit int64) ([]models.WasteReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "feedback.submittedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	return s.find(ctx, bson.M{"feedback": bson.M{"$exists": true}}, opts)
}

func (s *ReportStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.WasteReport, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reports := []models.WasteReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// CountBy groups reports in scope by field (status, type, urgency).
func (s *ReportStore) CountBy(ctx context.Context, field string, scope Scope) ([]models.Bucket, error) {
	rows, err := countBy(ctx, s.coll, field, scope.match())
	if err != nil {
		return nil, err
	}
	out := make([]models.Bucket, 0, len(rows))
	for _, row := range rows {
		b := models.Bucket{Count: row.Count}
		if row.ID != nil {
			b.ID = *row.ID
		}
		out = append(out, b)
	}
	return out, nil
}

// Count counts reports in scope, optionally restricted to one status.
func (s *ReportStore) Count(ctx context.Context, scope Scope, status models.ReportStatus) (int64, error) {
	filter := scope.match()
	if status != "" {
		filter["status"] = status
	}
	return s.coll.CountDocuments(ctx, filter)
}

// CountCompletedSince counts reports whose completion date falls in the window.
func (s *ReportStore) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"completedDate": bson.M{"$gte": since}})
}

// AvgCompletionDays averages (completedDate or updatedAt) - createdAt over completed reports
// finished in the window. ok is false when no report qualifies.
func (s *ReportStore) AvgCompletionDays(ctx context.Context, since time.Time) (avg float64, ok bool, err error) {
	pipeline := []bson.M{
		{"$match": bson.M{
			"status":    models.StatusCompleted,
			"createdAt": bson.M{"$exists": true},
			"$or": bson.A{
				bson.M{"completedDate": bson.M{"$gte": since}},
				bson.M{"completedDate": bson.M{"$exists": false}, "updatedAt": bson.M{"$gte": since}},
			},
		}},
		{"$project": bson.M{
			"completionTime": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{bson.M{"$ifNull": bson.A{"$completedDate", "$updatedAt"}}, "$createdAt"}},
				1000 * 60 * 60 * 24,
			}},
		}},
		{"$group": bson.M{"_id": nil, "avgCompletionTime": bson.M{"$avg": "$completionTime"}}},
	}
	return s.average(ctx, pipeline, "avgCompletionTime")
}

// AvgRating averages feedback ratings of the reports in scope.
func (s *ReportStore) AvgRating(ctx context.Context, scope Scope) (avg float64, ok bool, err error) {
	match := scope.match()
	match["feedback.rating"] = bson.M{"$exists": true}
	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{"_id": nil, "avgRating": bson.M{"$avg": "$feedback.rating"}}},
	}
	return s.average(ctx, pipeline, "avgRating")
}

func (s *ReportStore) average(ctx context.Context, pipeline []bson.M, key string) (float64, bool, error) {
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, false, err
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	switch v := rows[0][key].(type) {
	case float64:
		return v, true, nil
	case int32:
		return float64(v), true, nil
	case int64:
		return float64(v), true, nil
	}
	return 0, false, nil
}

// MonthlyCounts returns the number of reports created in each month of year.
func (s *ReportStore) MonthlyCounts(ctx context.Context, year int) ([]models.MonthlyStat, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	pipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": start, "$lt": start.AddDate(1, 0, 0)}}},
		{"$group": bson.M{"_id": bson.M{"$month": "$createdAt"}, "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stats := []models.MonthlyStat{}
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
