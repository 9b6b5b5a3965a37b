// internal/app/store/events/eventstore.go

// Package events persists login events in the append-only login_events
// collection. Events are inserted exactly once per correlated detection and
// are never updated or deleted by the application.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/stratawatch/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection for login events.
const CollectionName = "login_events"

var (
	// ErrUnknownMethod is returned when an event carries a detection method
	// outside the known enumeration.
	ErrUnknownMethod = errors.New("unknown detection method")

	// ErrInvalidRange is returned when a query range ends before it starts.
	ErrInvalidRange = errors.New("range end precedes range start")
)

// BucketCount is one group of a bucketed count query: the calendar-aligned
// bucket start and the number of events whose occurred_at truncates to it.
type BucketCount struct {
	Start time.Time `bson:"_id"`
	Count int64     `bson:"count"`
}

// Store provides login event persistence.
type Store struct {
	c *mongo.Collection
}

// New creates a new login event store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(CollectionName)}
}

// EnsureIndexes creates indexes for efficient range queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// Range scans and bucketed counts filter on occurred_at.
		{
			Keys:    bson.D{{Key: "occurred_at", Value: 1}},
			Options: options.Index().SetName("idx_events_occurred"),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// Insert appends a login event and returns the assigned event ID.
// The detection method is validated here: unknown methods are rejected
// rather than stored as arbitrary strings.
func (s *Store) Insert(ctx context.Context, event models.LoginEvent) (primitive.ObjectID, error) {
	if !event.Method.Valid() {
		return primitive.NilObjectID, ErrUnknownMethod
	}
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	_, err := s.c.InsertOne(ctx, event)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return event.ID, nil
}

// CountInRange counts events with occurred_at in the half-open range
// [start, end).
func (s *Store) CountInRange(ctx context.Context, start, end time.Time) (int64, error) {
	if end.Before(start) {
		return 0, ErrInvalidRange
	}
	return s.c.CountDocuments(ctx, bson.M{
		"occurred_at": bson.M{
			"$gte": start.UTC(),
			"$lt":  end.UTC(),
		},
	})
}

// CountAll counts every event ever recorded.
func (s *Store) CountAll(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{})
}

// CountBucketed counts events per calendar-aligned bucket in a single
// grouped scan: one $match over [start, end) followed by $dateTrunc and
// $group. Buckets with no events are absent from the result; gap-filling
// is the aggregation engine's job. Results are sorted chronologically.
//
// level maps to $dateTrunc units; week buckets start on Monday (ISO 8601).
func (s *Store) CountBucketed(ctx context.Context, start, end time.Time, level models.AggregationLevel) ([]BucketCount, error) {
	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	trunc := bson.M{
		"date": "$occurred_at",
		"unit": string(level),
	}
	if level == models.LevelWeek {
		trunc["startOfWeek"] = "monday"
	}

	pipeline := []bson.M{
		{"$match": bson.M{
			"occurred_at": bson.M{
				"$gte": start.UTC(),
				"$lt":  end.UTC(),
			},
		}},
		{"$group": bson.M{
			"_id":   bson.M{"$dateTrunc": trunc},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var buckets []BucketCount
	if err := cur.All(ctx, &buckets); err != nil {
		return nil, err
	}
	for i := range buckets {
		buckets[i].Start = buckets[i].Start.UTC()
	}
	return buckets, nil
}

// MinEventTime returns the occurred_at of the earliest event, or ok=false
// when the collection is empty.
func (s *Store) MinEventTime(ctx context.Context) (time.Time, bool, error) {
	return s.edgeEventTime(ctx, 1)
}

// MaxEventTime returns the occurred_at of the latest event, or ok=false
// when the collection is empty.
func (s *Store) MaxEventTime(ctx context.Context) (time.Time, bool, error) {
	return s.edgeEventTime(ctx, -1)
}

func (s *Store) edgeEventTime(ctx context.Context, sortDir int) (time.Time, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "occurred_at", Value: sortDir}}).
		SetProjection(bson.M{"occurred_at": 1})

	var doc struct {
		OccurredAt time.Time `bson:"occurred_at"`
	}
	err := s.c.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return doc.OccurredAt.UTC(), true, nil
}
