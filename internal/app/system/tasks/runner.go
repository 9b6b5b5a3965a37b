// internal/app/system/tasks/runner.go

// Package tasks runs small periodic maintenance jobs in the background.
package tasks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a named function run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes registered jobs until stopped.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a task runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{logger: logger}
}

// Register adds a job to the runner. Call before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start begins executing all registered jobs. Call Stop to shut down.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.runJob(ctx, job)
	}

	r.logger.Info("background task runner started",
		zap.Int("job_count", len(r.jobs)))
}

// Stop cancels all jobs and waits for them to finish, bounded by ctx.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("background task runner shutdown timed out")
		return ctx.Err()
	}
}

// runJob executes a single job on its interval, once immediately and then
// on every tick until the runner is stopped.
func (r *Runner) runJob(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.executeJob(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.executeJob(ctx, job)
		}
	}
}

func (r *Runner) executeJob(ctx context.Context, job Job) {
	start := time.Now()

	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return
	}

	r.logger.Debug("job completed",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)))
}
