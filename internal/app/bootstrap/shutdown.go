// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown is invoked during WAFFLE's shutdown phase, after the dashboard
// HTTP server has stopped accepting new requests and existing requests have
// been drained (or the shutdown timeout has elapsed).
//
// The context provided has a timeout (default 10 seconds); the proxy drain
// and the MongoDB disconnect both respect it.
//
// If an error is returned, it is logged but does not prevent the process
// from exiting.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var firstErr error

	// Stop the background sweep job
	if taskRunner != nil {
		logger.Info("stopping background task runner")
		if err := taskRunner.Stop(ctx); err != nil {
			logger.Warn("background task runner did not stop cleanly", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Stop the observing proxy so no new events arrive while the
	// database connection is being torn down.
	if proxySrv != nil {
		logger.Info("stopping observing proxy")
		if proxyCancel != nil {
			proxyCancel()
		}
		if err := proxySrv.Shutdown(ctx); err != nil {
			logger.Warn("observing proxy did not stop cleanly", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	// Disconnect MongoDB client
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
