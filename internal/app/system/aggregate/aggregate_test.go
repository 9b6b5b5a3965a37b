package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratawatch/internal/app/store/events"
	"github.com/dalemusser/stratawatch/internal/domain/models"
	"go.uber.org/zap"
)

// fakeStore answers the read-side queries from an in-memory slice of
// instants, mimicking the Mongo pipeline's calendar bucketing.
type fakeStore struct {
	times []time.Time
	err   error
}

func (f *fakeStore) CountInRange(_ context.Context, start, end time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for _, t := range f.times {
		if !t.Before(start) && t.Before(end) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountAll(_ context.Context) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.times)), nil
}

func (f *fakeStore) CountBucketed(_ context.Context, start, end time.Time, level models.AggregationLevel) ([]events.BucketCount, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := map[int64]int64{}
	var order []int64
	for _, t := range f.times {
		if t.Before(start) || !t.Before(end) {
			continue
		}
		b := bucketStart(t, level).UnixMilli()
		if _, seen := counts[b]; !seen {
			order = append(order, b)
		}
		counts[b]++
	}
	var out []events.BucketCount
	for _, b := range order {
		out = append(out, events.BucketCount{Start: time.UnixMilli(b).UTC(), Count: counts[b]})
	}
	return out, nil
}

func (f *fakeStore) MinEventTime(_ context.Context) (time.Time, bool, error) {
	return f.edge(true)
}

func (f *fakeStore) MaxEventTime(_ context.Context) (time.Time, bool, error) {
	return f.edge(false)
}

func (f *fakeStore) edge(min bool) (time.Time, bool, error) {
	if f.err != nil {
		return time.Time{}, false, f.err
	}
	if len(f.times) == 0 {
		return time.Time{}, false, nil
	}
	best := f.times[0]
	for _, t := range f.times[1:] {
		if min == t.Before(best) {
			best = t
		}
	}
	return best, true, nil
}

func at(day int, hour, minute int) time.Time {
	return time.Date(2025, 11, day, hour, minute, 0, 0, time.UTC)
}

func TestLevelForRange(t *testing.T) {
	now := at(21, 12, 0)
	cases := []struct {
		name string
		span time.Duration
		want models.AggregationLevel
	}{
		{"5 days is hourly", 5 * 24 * time.Hour, models.LevelHour},
		{"exactly 7 days is hourly", 7 * 24 * time.Hour, models.LevelHour},
		{"8 days is daily", 8 * 24 * time.Hour, models.LevelDay},
		{"90 days is daily", 90 * 24 * time.Hour, models.LevelDay},
		{"120 days is weekly", 120 * 24 * time.Hour, models.LevelWeek},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LevelForRange(now.Add(-tc.span), now); got != tc.want {
				t.Fatalf("LevelForRange(span=%v) = %q, want %q", tc.span, got, tc.want)
			}
		})
	}
}

func TestSeriesRejectsInvalidRangeBeforeStore(t *testing.T) {
	store := &fakeStore{err: errors.New("store must not be reached")}
	svc := New(store, zap.NewNop())

	_, err := svc.Series(context.Background(), at(21, 12, 0), at(21, 11, 0))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
}

func TestSeriesGapFillsHourlyBuckets(t *testing.T) {
	// Events in two separate hours of a 6-hour range; the four empty
	// hours must still appear with zero counts.
	store := &fakeStore{times: []time.Time{
		at(21, 9, 15),
		at(21, 9, 45),
		at(21, 12, 5),
	}}
	svc := New(store, zap.NewNop())

	series, err := svc.Series(context.Background(), at(21, 9, 0), at(21, 15, 0))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if series.Level != models.LevelHour {
		t.Fatalf("level = %q, want hour", series.Level)
	}
	if len(series.DataPoints) != 6 {
		t.Fatalf("len(DataPoints) = %d, want 6", len(series.DataPoints))
	}
	wantCounts := []int64{2, 0, 0, 1, 0, 0}
	for i, dp := range series.DataPoints {
		if dp.Count != wantCounts[i] {
			t.Errorf("bucket %d (%s) count = %d, want %d", i, dp.Bucket, dp.Count, wantCounts[i])
		}
		wantStart := at(21, 9, 0).Add(time.Duration(i) * time.Hour)
		if !dp.Timestamp.Equal(wantStart) {
			t.Errorf("bucket %d start = %v, want %v", i, dp.Timestamp, wantStart)
		}
	}
	if series.DataPoints[0].Bucket != "2025-11-21 09:00" {
		t.Errorf("bucket label = %q, want %q", series.DataPoints[0].Bucket, "2025-11-21 09:00")
	}
	if series.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", series.TotalEvents)
	}
}

func TestSeriesBucketsAreContiguous(t *testing.T) {
	store := &fakeStore{times: []time.Time{at(3, 8, 0), at(19, 20, 0)}}
	svc := New(store, zap.NewNop())

	// 20-day range, daily buckets.
	series, err := svc.Series(context.Background(), at(1, 6, 30), at(21, 6, 30))
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if series.Level != models.LevelDay {
		t.Fatalf("level = %q, want day", series.Level)
	}
	for i := 1; i < len(series.DataPoints); i++ {
		prev := nextBucket(series.DataPoints[i-1].Timestamp, series.Level)
		if !series.DataPoints[i].Timestamp.Equal(prev) {
			t.Fatalf("gap between bucket %d and %d: %v then %v",
				i-1, i, series.DataPoints[i-1].Timestamp, series.DataPoints[i].Timestamp)
		}
	}
	// First bucket is calendar aligned at or before the range start.
	if series.DataPoints[0].Timestamp.After(series.RangeStart) {
		t.Fatalf("first bucket %v starts after range start %v",
			series.DataPoints[0].Timestamp, series.RangeStart)
	}
}

func TestSeriesTotalMatchesRangeCount(t *testing.T) {
	store := &fakeStore{times: []time.Time{
		at(2, 3, 0), at(5, 10, 0), at(5, 10, 30), at(14, 23, 59), at(20, 0, 0),
	}}
	svc := New(store, zap.NewNop())

	start, end := at(1, 0, 0), at(21, 0, 0)
	series, err := svc.Series(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	direct, err := store.CountInRange(context.Background(), start, end)
	if err != nil {
		t.Fatalf("CountInRange: %v", err)
	}
	if series.TotalEvents != direct {
		t.Fatalf("TotalEvents = %d, CountInRange = %d", series.TotalEvents, direct)
	}
}

func TestSeriesWeeklyBucketsStartOnMonday(t *testing.T) {
	// 120-day range forces weekly buckets.
	store := &fakeStore{times: []time.Time{at(21, 12, 0)}}
	svc := New(store, zap.NewNop())

	end := at(21, 12, 0)
	series, err := svc.Series(context.Background(), end.AddDate(0, 0, -120), end)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if series.Level != models.LevelWeek {
		t.Fatalf("level = %q, want week", series.Level)
	}
	for i, dp := range series.DataPoints {
		if dp.Timestamp.Weekday() != time.Monday {
			t.Errorf("bucket %d starts on %v, want Monday", i, dp.Timestamp.Weekday())
		}
	}
}

func TestSeriesPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	svc := New(&fakeStore{err: storeErr}, zap.NewNop())

	_, err := svc.Series(context.Background(), at(21, 0, 0), at(21, 6, 0))
	if !errors.Is(err, storeErr) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}

func TestStatisticsCountsPeriodsIndependently(t *testing.T) {
	// Friday 2025-11-21. Week is Mon 17 through Sun 23; month is November.
	store := &fakeStore{times: []time.Time{
		at(21, 10, 0), at(21, 14, 0), at(21, 23, 59), // today
		at(18, 9, 0),  // earlier this week
		at(3, 12, 0),  // earlier this month
		time.Date(2025, 10, 28, 8, 0, 0, 0, time.UTC), // last month
	}}
	svc := New(store, zap.NewNop())

	now := at(21, 23, 59).Add(30 * time.Second)
	stats, err := svc.Statistics(context.Background(), now)
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TodayCount != 3 {
		t.Errorf("TodayCount = %d, want 3", stats.TodayCount)
	}
	if stats.WeekCount != 4 {
		t.Errorf("WeekCount = %d, want 4", stats.WeekCount)
	}
	if stats.MonthCount != 5 {
		t.Errorf("MonthCount = %d, want 5", stats.MonthCount)
	}
	if stats.TotalCount != 6 {
		t.Errorf("TotalCount = %d, want 6", stats.TotalCount)
	}
	if stats.FirstEvent == nil || !stats.FirstEvent.Equal(time.Date(2025, 10, 28, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("FirstEvent = %v, want 2025-10-28T08:00Z", stats.FirstEvent)
	}
	if stats.LastEvent == nil || !stats.LastEvent.Equal(at(21, 23, 59)) {
		t.Errorf("LastEvent = %v, want 2025-11-21T23:59Z", stats.LastEvent)
	}

	// The day after, today's counter resets.
	nextDay, err := svc.Statistics(context.Background(), at(22, 0, 0).Add(time.Second))
	if err != nil {
		t.Fatalf("Statistics next day: %v", err)
	}
	if nextDay.TodayCount != 0 {
		t.Errorf("next-day TodayCount = %d, want 0", nextDay.TodayCount)
	}
}

func TestStatisticsEmptyStore(t *testing.T) {
	svc := New(&fakeStore{}, zap.NewNop())

	stats, err := svc.Statistics(context.Background(), at(21, 12, 0))
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalCount != 0 || stats.FirstEvent != nil || stats.LastEvent != nil {
		t.Fatalf("empty store stats = %+v, want zero counts and nil edges", stats)
	}
}

func TestParsePeriod(t *testing.T) {
	for _, s := range []string{"24h", "7d", "30d", "all"} {
		if _, err := ParsePeriod(s); err != nil {
			t.Errorf("ParsePeriod(%q): %v", s, err)
		}
	}
	if _, err := ParsePeriod("90d"); err == nil {
		t.Error("ParsePeriod(90d) succeeded, want error")
	}
}

func TestSeriesForPeriodAllStartsAtFirstEvent(t *testing.T) {
	first := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	store := &fakeStore{times: []time.Time{first, at(21, 12, 0)}}
	svc := New(store, zap.NewNop())

	now := at(21, 12, 30)
	series, err := svc.SeriesForPeriod(context.Background(), PeriodAll, now)
	if err != nil {
		t.Fatalf("SeriesForPeriod: %v", err)
	}
	if !series.RangeStart.Equal(first) {
		t.Errorf("RangeStart = %v, want first event %v", series.RangeStart, first)
	}
	if series.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2", series.TotalEvents)
	}
}

func TestSeriesForPeriodAllEmptyStore(t *testing.T) {
	svc := New(&fakeStore{}, zap.NewNop())

	now := at(21, 12, 0)
	series, err := svc.SeriesForPeriod(context.Background(), PeriodAll, now)
	if err != nil {
		t.Fatalf("SeriesForPeriod: %v", err)
	}
	if series.TotalEvents != 0 {
		t.Errorf("TotalEvents = %d, want 0", series.TotalEvents)
	}
	if !series.RangeEnd.Equal(now) {
		t.Errorf("RangeEnd = %v, want %v", series.RangeEnd, now)
	}
	if len(series.DataPoints) == 0 {
		t.Error("expected a zero-filled series, got no data points")
	}
}
