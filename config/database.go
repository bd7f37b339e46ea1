package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"quill"`
	Password string `env:"PASSWORD" envDefault:"quill"`
	Name     string `env:"NAME"     envDefault:"quill"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig contains the tagged read cache configuration.
type CacheConfig struct {
	// Backend selects the entry store: "redis" or "memory".
	Backend string `env:"CACHE_BACKEND" envDefault:"redis"`

	// SessionTTL bounds how long a session lookup may lag the backend.
	SessionTTL time.Duration `env:"CACHE_SESSION_TTL" envDefault:"1s"`

	// EntityTTL covers single-entity and per-parent list lookups.
	EntityTTL time.Duration `env:"CACHE_ENTITY_TTL" envDefault:"10s"`

	// UserByEmailTTL covers the email-existence lookup used by registration.
	UserByEmailTTL time.Duration `env:"CACHE_USER_BY_EMAIL_TTL" envDefault:"1h"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.Backend != "memory" {
		c.Backend = "redis"
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = time.Second
	}
	if c.EntityTTL <= 0 {
		c.EntityTTL = 10 * time.Second
	}
	if c.UserByEmailTTL <= 0 {
		c.UserByEmailTTL = time.Hour
	}
}
