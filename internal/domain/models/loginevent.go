// internal/domain/models/loginevent.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSiteName is used when no site settings are configured.
const DefaultSiteName = "StrataWatch"

// DetectionMethod identifies how a login event was inferred from traffic.
// The method is provenance for troubleshooting only; it never affects
// counting logic.
type DetectionMethod string

const (
	// MethodConnectSequence: inferred from the CONNECT tunnel pattern alone.
	MethodConnectSequence DetectionMethod = "connect_sequence"
	// MethodHTTPRedirect: a 302 redirect carried an OAuth callback target.
	MethodHTTPRedirect DetectionMethod = "http_redirect"
	// MethodOAuthCallback: a plaintext request matched the OAuth callback pattern.
	MethodOAuthCallback DetectionMethod = "oauth_callback"
	// MethodInteractiveLogin: an authorize-endpoint request with response_type=code.
	MethodInteractiveLogin DetectionMethod = "interactive_login"
)

// Valid reports whether m is one of the known detection methods.
// Unknown methods are rejected at the storage boundary rather than
// accepted as arbitrary strings.
func (m DetectionMethod) Valid() bool {
	switch m {
	case MethodConnectSequence, MethodHTTPRedirect, MethodOAuthCallback, MethodInteractiveLogin:
		return true
	}
	return false
}

// ParseDetectionMethod converts a string to a DetectionMethod,
// rejecting anything outside the known set.
func ParseDetectionMethod(s string) (DetectionMethod, error) {
	m := DetectionMethod(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown detection method %q", s)
	}
	return m, nil
}

// LoginEvent is a single inferred Microsoft authentication completion.
// Events are append-only: once inserted they are never mutated or deleted
// by normal operation. ObjectIDs give a total insertion order.
type LoginEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	OccurredAt time.Time          `bson:"occurred_at"` // UTC, millisecond precision
	Method     DetectionMethod    `bson:"detection_method"`
}

// NewLoginEvent builds an event for the given instant, truncated to
// millisecond precision in UTC.
func NewLoginEvent(occurredAt time.Time, method DetectionMethod) LoginEvent {
	return LoginEvent{
		OccurredAt: occurredAt.UTC().Truncate(time.Millisecond),
		Method:     method,
	}
}

// LoginStatistics holds aggregate counts for the standard calendar periods.
// Timestamps cross the API boundary as ISO-8601 UTC strings with a Z suffix;
// FirstEvent/LastEvent are nil (rendered as null) when no events exist.
type LoginStatistics struct {
	TodayCount  int64
	WeekCount   int64
	MonthCount  int64
	TotalCount  int64
	PeriodStart time.Time
	PeriodEnd   time.Time
	FirstEvent  *time.Time
	LastEvent   *time.Time
}

// AggregationLevel is the bucket granularity chosen for a series.
type AggregationLevel string

const (
	LevelHour AggregationLevel = "hour"
	LevelDay  AggregationLevel = "day"
	LevelWeek AggregationLevel = "week"
)

// GraphDataPoint is one bucket of a login-count time series.
// Bucket is the calendar-aligned label; Timestamp is the bucket start.
type GraphDataPoint struct {
	Bucket    string
	Count     int64
	Timestamp time.Time
}

// GraphSeries is a gap-filled, chronologically ordered series of counts
// covering [RangeStart, RangeEnd). Buckets are contiguous and half-open;
// TotalEvents always equals the sum of the bucket counts.
type GraphSeries struct {
	DataPoints  []GraphDataPoint
	Level       AggregationLevel
	TotalEvents int64
	RangeStart  time.Time
	RangeEnd    time.Time
}

// FormatUTC renders t the way all timestamps cross the API boundary:
// ISO-8601 UTC with an explicit Z suffix and second precision.
func FormatUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
