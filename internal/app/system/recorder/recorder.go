// Package recorder turns correlated login detections into durable events.
//
// The detection path must never stall on storage: writes happen on their own
// goroutine with a bounded timeout and a single retry. A login that still
// cannot be persisted is logged and counted, then dropped; disrupting the
// user's actual authentication would be worse than losing one data point.
package recorder

import (
	"context"
	"time"

	"github.com/dalemusser/stratawatch/internal/app/system/metrics"
	"github.com/dalemusser/stratawatch/internal/app/system/timeouts"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const retryDelay = 250 * time.Millisecond

// EventInserter is the slice of the event store the recorder needs.
type EventInserter interface {
	Insert(ctx context.Context, event models.LoginEvent) (primitive.ObjectID, error)
}

// Recorder persists detected logins through the event store.
type Recorder struct {
	store  EventInserter
	logger *zap.Logger
}

// New creates a Recorder over the given store.
func New(store EventInserter, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// LoginDetected implements the tracker sink. The write runs asynchronously
// so the observation path returns immediately.
func (r *Recorder) LoginDetected(occurredAt time.Time, method models.DetectionMethod) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
		defer cancel()
		_, _ = r.Record(ctx, occurredAt, method)
	}()
}

// Record inserts a login event, retrying once on failure. On success the
// per-method counter is incremented; on final failure the event is dropped
// and the operator-visible failure counter is incremented.
func (r *Recorder) Record(ctx context.Context, occurredAt time.Time, method models.DetectionMethod) (primitive.ObjectID, error) {
	event := models.NewLoginEvent(occurredAt, method)

	id, err := r.store.Insert(ctx, event)
	if err != nil {
		r.logger.Warn("login event insert failed, retrying once",
			zap.String("method", string(method)),
			zap.Error(err),
		)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			metrics.RecordFailures.Inc()
			r.logger.Error("login event dropped, context cancelled before retry",
				zap.String("method", string(method)),
				zap.Error(ctx.Err()),
			)
			return primitive.NilObjectID, ctx.Err()
		}

		id, err = r.store.Insert(ctx, event)
		if err != nil {
			metrics.RecordFailures.Inc()
			r.logger.Error("login event dropped after retry",
				zap.String("method", string(method)),
				zap.Time("occurred_at", event.OccurredAt),
				zap.Error(err),
			)
			return primitive.NilObjectID, err
		}
	}

	metrics.LoginsDetected.WithLabelValues(string(method)).Inc()
	r.logger.Info("recorded login event",
		zap.String("event_id", id.Hex()),
		zap.String("method", string(method)),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return id, nil
}
