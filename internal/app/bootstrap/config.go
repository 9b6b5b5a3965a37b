// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAWATCH"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: STRATAWATCH_MONGO_URI, STRATAWATCH_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratawatch", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratawatch-session", Desc: "Session cookie name"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie max age (e.g., 24h, 720h, 30m)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Operator login (bcrypt hash; generate with `stratawatch hashpw` or htpasswd -B)
	{Name: "operator_password_hash", Default: "", Desc: "Bcrypt hash of the dashboard password (empty disables login)"},

	// Observing proxy configuration
	{Name: "proxy_addr", Default: ":8888", Desc: "Listen address of the forward proxy"},
	{Name: "login_hosts", Default: "login.microsoftonline.com,login.live.com", Desc: "Comma-separated identity-provider domains to watch"},
	{Name: "correlation_window", Default: "60s", Desc: "Max delay between a login tunnel and its callback"},
	{Name: "dedupe_window", Default: "1s", Desc: "Collapse repeat detections per client within this window"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATAWATCH_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		OperatorPasswordHash: appValues.String("operator_password_hash"),

		ProxyAddr:         appValues.String("proxy_addr"),
		LoginHosts:        splitHosts(appValues.String("login_hosts")),
		CorrelationWindow: appValues.Duration("correlation_window", 60*time.Second),
		DedupeWindow:      appValues.Duration("dedupe_window", time.Second),
	}

	return coreCfg, appCfg, nil
}

// splitHosts parses a comma-separated host list, trimming whitespace and
// dropping empty entries.
func splitHosts(raw string) []string {
	parts := strings.Split(raw, ",")
	hosts := make([]string, 0, len(parts))
	for _, p := range parts {
		if h := strings.TrimSpace(p); h != "" {
			hosts = append(hosts, strings.ToLower(h))
		}
	}
	return hosts
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if len(appCfg.LoginHosts) == 0 {
		return fmt.Errorf("login_hosts must name at least one identity-provider domain")
	}
	if appCfg.CorrelationWindow <= 0 {
		return fmt.Errorf("correlation_window must be positive, got %s", appCfg.CorrelationWindow)
	}
	if appCfg.DedupeWindow < 0 {
		return fmt.Errorf("dedupe_window must not be negative, got %s", appCfg.DedupeWindow)
	}

	return nil
}
