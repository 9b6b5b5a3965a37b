// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	dashboardfeature "github.com/dalemusser/stratawatch/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/stratawatch/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratawatch/internal/app/features/health"
	loginfeature "github.com/dalemusser/stratawatch/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratawatch/internal/app/features/logout"
	appresources "github.com/dalemusser/stratawatch/internal/app/resources"
	"github.com/dalemusser/stratawatch/internal/app/store/events"
	"github.com/dalemusser/stratawatch/internal/app/system/aggregate"
	"github.com/dalemusser/stratawatch/internal/app/system/auth"
	"github.com/dalemusser/stratawatch/internal/app/system/metrics"
	"github.com/dalemusser/stratawatch/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The handler it returns serves only the
// dashboard and its JSON API; the observing proxy listens on its own port
// (started in Startup) and never shares this router.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.OperatorPasswordHash, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Initialize and boot the template engine once at startup.
	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Let view models report the operator's login state.
	viewdata.Init(sessionMgr)

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	// Aggregation service over the recorded login events.
	aggSvc := aggregate.New(events.New(deps.MongoDatabase), logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// CSRF protection middleware. Cookie name is "stratawatch_csrf" to avoid
	// collisions with other services on the same domain. The dashboard API is
	// read-only (GETs), so no path exemptions are needed.
	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratawatch_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators.
	// The tracker reports how many login tunnels are currently open.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, loginTracker, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Prometheus metrics (tunnel counts, detections, record failures).
	r.Handle("/metrics", metrics.Handler())

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Operator authentication
	loginHandler := loginfeature.NewHandler(sessionMgr, errLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/unauthorized", errorsHandler.Unauthorized)

	// Dashboard and its JSON API (operator only)
	dashboardHandler := dashboardfeature.NewHandler(aggSvc, errLog, logger)
	r.Mount("/api", dashboardfeature.APIRoutes(dashboardHandler, sessionMgr))
	r.Mount("/", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}
