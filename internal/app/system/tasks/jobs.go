// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionCounter reports open correlation sessions, expiring stale ones as
// a side effect of the count.
type SessionCounter interface {
	OpenCount(now time.Time) int
}

// SessionSweepJob expires correlation sessions on a timer. The tracker
// already sweeps on every observation; this job bounds staleness when the
// proxy goes quiet, so abandoned tunnels do not sit in memory (or in the
// open-session gauge) until the next request arrives.
func SessionSweepJob(sessions SessionCounter, logger *zap.Logger) Job {
	return Job{
		Name:     "session_sweep",
		Interval: 1 * time.Minute,
		Run: func(ctx context.Context) error {
			open := sessions.OpenCount(time.Now())
			if open > 0 {
				logger.Debug("session sweep", zap.Int("open_sessions", open))
			}
			return nil
		},
	}
}
