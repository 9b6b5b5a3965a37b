package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunnerStartAndStop(t *testing.T) {
	r := New(zap.NewNop())

	var runs atomic.Int32
	r.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	r.Start()
	time.Sleep(50 * time.Millisecond)

	if err := r.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Runs once immediately plus at least one tick.
	if got := runs.Load(); got < 2 {
		t.Fatalf("expected at least 2 runs, got %d", got)
	}
}

func TestRunnerStopTimeout(t *testing.T) {
	r := New(zap.NewNop())

	blocked := make(chan struct{})
	r.Register(Job{
		Name:     "stuck",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(blocked)
			select {} // never returns
		},
	})

	r.Start()
	<-blocked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := r.Stop(ctx); err == nil {
		t.Fatal("expected timeout error from Stop")
	}
}

type fixedCounter int

func (c fixedCounter) OpenCount(time.Time) int { return int(c) }

func TestSessionSweepJob(t *testing.T) {
	job := SessionSweepJob(fixedCounter(3), zap.NewNop())

	if job.Name != "session_sweep" {
		t.Fatalf("unexpected job name %q", job.Name)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
