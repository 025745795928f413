package config

import "time"

// Config provides read-only access to application configuration. It is
// resolved once at startup and passed explicitly; no component reads
// environment variables on its own.
type Config interface {
	// DBPath returns the SQLite database file path
	DBPath() string

	// RedisURL returns the Redis connection URL; empty selects the
	// in-memory session store
	RedisURL() string

	// CatalogPath returns the step catalog file path; empty selects the
	// embedded default catalog
	CatalogPath() string

	// IdleTimeout returns the session idle threshold before revert
	IdleTimeout() time.Duration

	// SweepInterval returns the idle sweep frequency
	SweepInterval() time.Duration

	// DependencyTimeout returns the bounded wait on external collaborators
	DependencyTimeout() time.Duration

	// AdminActorIDs returns actors who may always cancel any task
	AdminActorIDs() []string

	// LogLevel returns the log level name (debug, info, warn, error)
	LogLevel() string

	// LogJSON reports whether logs are emitted as JSON
	LogJSON() bool
}

// AppConfig is the concrete implementation of Config
type AppConfig struct {
	dbPath            string
	redisURL          string
	catalogPath       string
	idleTimeout       time.Duration
	sweepInterval     time.Duration
	dependencyTimeout time.Duration
	adminActorIDs     []string
	logLevel          string
	logJSON           bool
}

// NewAppConfig creates a configuration with explicit values
func NewAppConfig(
	dbPath string,
	redisURL string,
	catalogPath string,
	idleTimeout time.Duration,
	sweepInterval time.Duration,
	dependencyTimeout time.Duration,
	adminActorIDs []string,
	logLevel string,
	logJSON bool,
) *AppConfig {
	return &AppConfig{
		dbPath:            dbPath,
		redisURL:          redisURL,
		catalogPath:       catalogPath,
		idleTimeout:       idleTimeout,
		sweepInterval:     sweepInterval,
		dependencyTimeout: dependencyTimeout,
		adminActorIDs:     adminActorIDs,
		logLevel:          logLevel,
		logJSON:           logJSON,
	}
}

// DBPath returns the SQLite database file path
func (c *AppConfig) DBPath() string { return c.dbPath }

// RedisURL returns the Redis connection URL
func (c *AppConfig) RedisURL() string { return c.redisURL }

// CatalogPath returns the step catalog file path
func (c *AppConfig) CatalogPath() string { return c.catalogPath }

// IdleTimeout returns the session idle threshold
func (c *AppConfig) IdleTimeout() time.Duration { return c.idleTimeout }

// SweepInterval returns the idle sweep frequency
func (c *AppConfig) SweepInterval() time.Duration { return c.sweepInterval }

// DependencyTimeout returns the bounded wait on external collaborators
func (c *AppConfig) DependencyTimeout() time.Duration { return c.dependencyTimeout }

// AdminActorIDs returns actors who may always cancel any task
func (c *AppConfig) AdminActorIDs() []string { return c.adminActorIDs }

// LogLevel returns the log level name
func (c *AppConfig) LogLevel() string { return c.logLevel }

// LogJSON reports whether logs are emitted as JSON
func (c *AppConfig) LogJSON() bool { return c.logJSON }
