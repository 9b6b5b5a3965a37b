// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratawatch/internal/app/resources"
	"github.com/dalemusser/stratawatch/internal/app/store/events"
	"github.com/dalemusser/stratawatch/internal/app/system/detector"
	"github.com/dalemusser/stratawatch/internal/app/system/metrics"
	"github.com/dalemusser/stratawatch/internal/app/system/proxyobs"
	"github.com/dalemusser/stratawatch/internal/app/system/recorder"
	"github.com/dalemusser/stratawatch/internal/app/system/tasks"
	"github.com/dalemusser/stratawatch/internal/app/system/timeouts"
	"github.com/dalemusser/stratawatch/internal/app/system/tracker"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// This is where the observation pipeline gets assembled and the forward proxy
// starts listening: event store -> recorder -> tracker <- detector <- proxy.
// The proxy runs on its own listener, separate from the WAFFLE HTTP server
// that serves the dashboard and API.
//
// Returning a non-nil error will abort startup and prevent the server from
// starting.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeout overrides applied from environment", zap.Int("count", n))
	}

	metrics.Init()

	store := events.New(deps.MongoDatabase)
	rec := recorder.New(store, logger)
	det := detector.New(appCfg.LoginHosts)
	loginTracker = tracker.New(appCfg.CorrelationWindow, appCfg.DedupeWindow, rec, logger)

	proxySrv = proxyobs.New(appCfg.ProxyAddr, det, loginTracker, logger)

	// Expire stale correlation sessions even when the proxy is idle.
	taskRunner = tasks.New(logger)
	taskRunner.Register(tasks.SessionSweepJob(loginTracker, logger))
	taskRunner.Start()

	// The proxy outlives the Startup context; Shutdown stops it.
	var proxyCtx context.Context
	proxyCtx, proxyCancel = context.WithCancel(context.Background())
	go func() {
		if err := proxySrv.Run(proxyCtx); err != nil {
			logger.Error("observing proxy stopped", zap.Error(err))
		}
	}()

	logger.Info("observing proxy started",
		zap.String("addr", appCfg.ProxyAddr),
		zap.Strings("login_hosts", appCfg.LoginHosts),
		zap.Duration("correlation_window", appCfg.CorrelationWindow),
		zap.Duration("dedupe_window", appCfg.DedupeWindow),
	)

	return nil
}

// Assembled in Startup, shared with BuildHandler (health reporting) and
// stopped in Shutdown.
var (
	loginTracker *tracker.Tracker
	proxySrv     *proxyobs.Server
	proxyCancel  context.CancelFunc
	taskRunner   *tasks.Runner
)
