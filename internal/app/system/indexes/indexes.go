// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureLoginEvents(ctx, db); err != nil {
		problems = append(problems, "login_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New("index setup failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// ensureLoginEvents indexes the append-only event log. Every statistics
// query filters or groups on occurred_at.
func ensureLoginEvents(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("login_events")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "occurred_at", Value: 1}},
			Options: options.Index().SetName("idx_events_occurred"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
