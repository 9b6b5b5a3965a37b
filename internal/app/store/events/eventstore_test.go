package events

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/stratawatch/internal/domain/models"
	"github.com/dalemusser/stratawatch/internal/testutil"
)

func TestNew(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	if store == nil {
		t.Fatal("New() returned nil")
	}
}

func TestStore_EnsureIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	// Should be idempotent
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() second call error = %v", err)
	}
}

func TestStore_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	at := time.Date(2025, 11, 21, 14, 30, 0, 0, time.UTC)
	id, err := store.Insert(ctx, models.NewLoginEvent(at, models.MethodOAuthCallback))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if id.IsZero() {
		t.Fatal("Insert() returned zero ObjectID")
	}

	count, err := store.CountInRange(ctx, at.Add(-time.Minute), at.Add(time.Minute))
	if err != nil {
		t.Fatalf("CountInRange() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestStore_Insert_RejectsUnknownMethod(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Insert(ctx, models.LoginEvent{
		OccurredAt: time.Now().UTC(),
		Method:     models.DetectionMethod("made_up"),
	})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("Insert() error = %v, want ErrUnknownMethod", err)
	}

	count, _ := store.CountInRange(ctx, time.Unix(0, 0).UTC(), time.Now().UTC().Add(time.Hour))
	if count != 0 {
		t.Errorf("rejected event was stored; count = %d, want 0", count)
	}
}

func TestStore_CountInRange_HalfOpen(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	boundary := time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)

	// One event exactly on the boundary, one just before.
	mustInsert(t, store, boundary)
	mustInsert(t, store, boundary.Add(-time.Millisecond))

	// [boundary, boundary+1d) includes the boundary event only.
	count, err := store.CountInRange(ctx, boundary, boundary.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("CountInRange() error = %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (start inclusive, end exclusive)", count)
	}

	// The previous day's range picks up the other event, so nothing is
	// double-counted or skipped across the boundary.
	prev, err := store.CountInRange(ctx, boundary.AddDate(0, 0, -1), boundary)
	if err != nil {
		t.Fatalf("CountInRange() error = %v", err)
	}
	if prev != 1 {
		t.Errorf("previous day count = %d, want 1", prev)
	}
}

func TestStore_CountInRange_InvalidRange(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC()
	if _, err := store.CountInRange(ctx, now, now.Add(-time.Hour)); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("CountInRange() error = %v, want ErrInvalidRange", err)
	}
}

func TestStore_CountBucketed_Daily(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	day1 := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 11, 21, 9, 0, 0, 0, time.UTC)

	mustInsert(t, store, day1)
	mustInsert(t, store, day1.Add(4*time.Hour))
	mustInsert(t, store, day2)

	buckets, err := store.CountBucketed(ctx,
		time.Date(2025, 11, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 11, 22, 0, 0, 0, 0, time.UTC),
		models.LevelDay,
	)
	if err != nil {
		t.Fatalf("CountBucketed() error = %v", err)
	}

	// Empty days are absent; gap-filling is the aggregation engine's job.
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if !buckets[0].Start.Equal(time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC)) || buckets[0].Count != 2 {
		t.Errorf("bucket[0] = %v/%d, want 2025-11-20/2", buckets[0].Start, buckets[0].Count)
	}
	if !buckets[1].Start.Equal(time.Date(2025, 11, 21, 0, 0, 0, 0, time.UTC)) || buckets[1].Count != 1 {
		t.Errorf("bucket[1] = %v/%d, want 2025-11-21/1", buckets[1].Start, buckets[1].Count)
	}
}

func TestStore_CountBucketed_WeekStartsMonday(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Sunday Nov 23 belongs to the ISO week starting Monday Nov 17.
	sunday := time.Date(2025, 11, 23, 15, 0, 0, 0, time.UTC)
	mustInsert(t, store, sunday)

	buckets, err := store.CountBucketed(ctx,
		time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		models.LevelWeek,
	)
	if err != nil {
		t.Fatalf("CountBucketed() error = %v", err)
	}
	if len(buckets) != 1 {
		t.Fatalf("got %d buckets, want 1", len(buckets))
	}
	want := time.Date(2025, 11, 17, 0, 0, 0, 0, time.UTC)
	if !buckets[0].Start.Equal(want) {
		t.Errorf("week bucket start = %v, want Monday %v", buckets[0].Start, want)
	}
}

func TestStore_MinMaxEventTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Empty store: ok=false, no error.
	if _, ok, err := store.MinEventTime(ctx); err != nil || ok {
		t.Fatalf("MinEventTime() on empty store = ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	first := time.Date(2025, 11, 1, 8, 0, 0, 0, time.UTC)
	last := time.Date(2025, 11, 21, 18, 0, 0, 0, time.UTC)
	mustInsert(t, store, last) // insertion order deliberately not chronological
	mustInsert(t, store, first)

	min, ok, err := store.MinEventTime(ctx)
	if err != nil || !ok {
		t.Fatalf("MinEventTime() = ok=%v err=%v", ok, err)
	}
	if !min.Equal(first) {
		t.Errorf("min = %v, want %v", min, first)
	}

	max, ok, err := store.MaxEventTime(ctx)
	if err != nil || !ok {
		t.Fatalf("MaxEventTime() = ok=%v err=%v", ok, err)
	}
	if !max.Equal(last) {
		t.Errorf("max = %v, want %v", max, last)
	}
}

func mustInsert(t *testing.T, store *Store, at time.Time) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := store.Insert(ctx, models.NewLoginEvent(at, models.MethodOAuthCallback)); err != nil {
		t.Fatalf("Insert(%v) error = %v", at, err)
	}
}
