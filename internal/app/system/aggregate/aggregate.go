// Package aggregate builds the numbers the dashboard shows: scalar counts
// for today/week/month/all-time and gap-filled bucketed series over an
// arbitrary range.
//
// Bucket granularity is chosen from the span of the requested range, and
// every series covers the range with contiguous half-open buckets, empty
// ones included, so chart rendering never has to interpolate. Each series
// costs exactly one grouped store scan; any store error fails the whole
// request rather than returning a partial series.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratawatch/internal/app/store/events"
	"github.com/dalemusser/stratawatch/internal/app/system/timebounds"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"go.uber.org/zap"
)

// ErrInvalidRange mirrors the store sentinel so callers can test with a
// single errors.Is regardless of where the range was rejected.
var ErrInvalidRange = events.ErrInvalidRange

// Store is the read-side slice of the event store the engine consumes.
type Store interface {
	CountInRange(ctx context.Context, start, end time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountBucketed(ctx context.Context, start, end time.Time, level models.AggregationLevel) ([]events.BucketCount, error)
	MinEventTime(ctx context.Context) (time.Time, bool, error)
	MaxEventTime(ctx context.Context) (time.Time, bool, error)
}

// Period is a dashboard period selector.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
	PeriodAll Period = "all"
)

// ParsePeriod maps a query-string value onto a Period.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case Period24h, Period7d, Period30d, PeriodAll:
		return Period(s), nil
	}
	return "", fmt.Errorf("invalid period %q", s)
}

// LevelForRange picks the bucket granularity for a series over
// [start, end): up to 7 days hourly, up to 90 days daily, weekly beyond.
func LevelForRange(start, end time.Time) models.AggregationLevel {
	days := end.Sub(start).Hours() / 24
	switch {
	case days <= 7:
		return models.LevelHour
	case days <= 90:
		return models.LevelDay
	default:
		return models.LevelWeek
	}
}

// Service answers the dashboard's statistics and series queries.
type Service struct {
	store  Store
	logger *zap.Logger
}

// New creates a Service over the given store.
func New(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Statistics returns the scalar counters relative to now: counts for the
// UTC day, ISO week and calendar month containing now, the all-time total,
// and the first/last event instants (nil when no events exist). Any store
// failure fails the whole call.
func (s *Service) Statistics(ctx context.Context, now time.Time) (models.LoginStatistics, error) {
	dayStart, dayEnd := timebounds.DayBounds(now)
	weekStart, weekEnd := timebounds.WeekBounds(now)
	monthStart, monthEnd := timebounds.MonthBounds(now)

	today, err := s.store.CountInRange(ctx, dayStart, dayEnd)
	if err != nil {
		return models.LoginStatistics{}, fmt.Errorf("count today: %w", err)
	}
	week, err := s.store.CountInRange(ctx, weekStart, weekEnd)
	if err != nil {
		return models.LoginStatistics{}, fmt.Errorf("count week: %w", err)
	}
	month, err := s.store.CountInRange(ctx, monthStart, monthEnd)
	if err != nil {
		return models.LoginStatistics{}, fmt.Errorf("count month: %w", err)
	}
	total, err := s.store.CountAll(ctx)
	if err != nil {
		return models.LoginStatistics{}, fmt.Errorf("count total: %w", err)
	}

	stats := models.LoginStatistics{
		TodayCount:  today,
		WeekCount:   week,
		MonthCount:  month,
		TotalCount:  total,
		PeriodStart: dayStart,
		PeriodEnd:   dayEnd,
	}

	if first, ok, err := s.store.MinEventTime(ctx); err != nil {
		return models.LoginStatistics{}, fmt.Errorf("first event: %w", err)
	} else if ok {
		stats.FirstEvent = &first
	}
	if last, ok, err := s.store.MaxEventTime(ctx); err != nil {
		return models.LoginStatistics{}, fmt.Errorf("last event: %w", err)
	} else if ok {
		stats.LastEvent = &last
	}

	return stats, nil
}

// SeriesForPeriod resolves a period selector to a concrete range ending at
// now and returns its series. PeriodAll starts at the first recorded event;
// with an empty store it degrades to the last 24 hours so the dashboard
// still gets a well-formed zero series.
func (s *Service) SeriesForPeriod(ctx context.Context, period Period, now time.Time) (models.GraphSeries, error) {
	now = now.UTC()

	var start time.Time
	switch period {
	case Period24h:
		start = now.Add(-24 * time.Hour)
	case Period7d:
		start = now.AddDate(0, 0, -7)
	case Period30d:
		start = now.AddDate(0, 0, -30)
	case PeriodAll:
		first, ok, err := s.store.MinEventTime(ctx)
		if err != nil {
			return models.GraphSeries{}, fmt.Errorf("first event: %w", err)
		}
		if !ok {
			start = now.Add(-24 * time.Hour)
		} else {
			start = first
		}
	default:
		return models.GraphSeries{}, fmt.Errorf("invalid period %q", period)
	}

	return s.Series(ctx, start, now)
}

// Series returns the gap-filled bucketed series over [start, end). The
// range is validated before any store access; the store is hit exactly
// once, with the grouped scan.
func (s *Service) Series(ctx context.Context, start, end time.Time) (models.GraphSeries, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return models.GraphSeries{}, ErrInvalidRange
	}

	level := LevelForRange(start, end)

	counted, err := s.store.CountBucketed(ctx, start, end, level)
	if err != nil {
		return models.GraphSeries{}, fmt.Errorf("bucketed count: %w", err)
	}

	byStart := make(map[int64]int64, len(counted))
	for _, b := range counted {
		byStart[b.Start.UnixMilli()] = b.Count
	}

	series := models.GraphSeries{
		Level:      level,
		RangeStart: start,
		RangeEnd:   end,
	}
	for b := bucketStart(start, level); b.Before(end); b = nextBucket(b, level) {
		count := byStart[b.UnixMilli()]
		series.DataPoints = append(series.DataPoints, models.GraphDataPoint{
			Bucket:    bucketLabel(b, level),
			Count:     count,
			Timestamp: b,
		})
		series.TotalEvents += count
	}
	return series, nil
}

// bucketStart aligns t down to the calendar boundary of its bucket, so the
// generated buckets line up with what $dateTrunc produced in the store.
func bucketStart(t time.Time, level models.AggregationLevel) time.Time {
	t = t.UTC()
	switch level {
	case models.LevelHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case models.LevelDay:
		start, _ := timebounds.DayBounds(t)
		return start
	default:
		start, _ := timebounds.WeekBounds(t)
		return start
	}
}

func nextBucket(t time.Time, level models.AggregationLevel) time.Time {
	switch level {
	case models.LevelHour:
		return t.Add(time.Hour)
	case models.LevelDay:
		return t.AddDate(0, 0, 1)
	default:
		return t.AddDate(0, 0, 7)
	}
}

func bucketLabel(t time.Time, level models.AggregationLevel) string {
	if level == models.LevelHour {
		return t.Format("2006-01-02 15:00")
	}
	return t.Format("2006-01-02")
}
