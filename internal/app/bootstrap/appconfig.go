// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: stratawatch-session)
	SessionMaxAge time.Duration // Maximum session cookie lifetime (default: 24h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Operator account configuration.
	// The dashboard has a single operator; the password is stored as a
	// bcrypt hash. An empty hash disables the dashboard login entirely.
	OperatorPasswordHash string

	// Observing proxy configuration
	ProxyAddr         string        // Listen address of the forward proxy (default: :8888)
	LoginHosts        []string      // Identity-provider domains that mark a tunnel as a possible login
	CorrelationWindow time.Duration // Max delay between CONNECT and callback (default: 60s)
	DedupeWindow      time.Duration // Collapse repeat detections per client within this window (default: 1s)
}
