package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration, shared by the
// client CLI and the fixture server.
type Config struct {
	API       APIConfig       `koanf:"api"`
	Log       LogConfig       `koanf:"log"`
	DevServer DevServerConfig `koanf:"devserver"`
}

// APIConfig holds client-side settings for talking to the meal API.
type APIConfig struct {
	BaseURL string `koanf:"base_url"`
	// Timeout is the per-call budget. Optional; empty means the
	// client default.
	Timeout string `koanf:"timeout"`
	// AdminEmailHeader overrides the header name carrying the admin
	// identity. Optional.
	AdminEmailHeader string `koanf:"admin_email_header"`
	// PageSize is the list page length. Optional; zero means the
	// server default.
	PageSize int `koanf:"page_size"`
	// DebounceWindow delays search-triggered fetches while the user
	// is still typing. Optional; empty means the built-in window.
	DebounceWindow string `koanf:"debounce_window"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// DevServerConfig holds settings for the local fixture server.
type DevServerConfig struct {
	Host        string         `koanf:"host"`
	Port        int            `koanf:"port"`
	Mode        string         `koanf:"mode"`
	JWTSecret   string         `koanf:"jwt_secret"`
	TokenExpiry string         `koanf:"token_expiry"`
	AdminEmails []string       `koanf:"admin_emails"`
	Seed        bool           `koanf:"seed"`
	Database    DatabaseConfig `koanf:"database"`
}

// DatabaseConfig holds database connection settings for the fixture server.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// Load reads configuration from a YAML file and overlays environment
// variables. Environment variables use the prefix "APP__" and
// double-underscore as the hierarchy separator. Single underscores are
// preserved as part of the key name. For example, APP__API__BASE_URL
// overrides api.base_url and APP__DEVSERVER__PORT=9090 overrides
// devserver.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Load YAML config file.
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// Overlay environment variables with prefix APP__.
	// APP__API__BASE_URL -> api.base_url
	// APP__DEVSERVER__DATABASE__DRIVER -> devserver.database.driver
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values.
func (c *Config) Validate() error {
	// Validate api.base_url.
	baseURL := strings.TrimSpace(c.API.BaseURL)
	if baseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: must be an absolute http(s) URL", c.API.BaseURL)
	}
	switch u.Scheme {
	case "http", "https":
		// ok
	default:
		return fmt.Errorf("invalid api.base_url scheme %q: must be http or https", u.Scheme)
	}
	c.API.BaseURL = strings.TrimRight(baseURL, "/")

	// Validate api.timeout (optional; must be a valid positive duration if set).
	c.API.Timeout = strings.TrimSpace(c.API.Timeout)
	if t := c.API.Timeout; t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", c.API.Timeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid api.timeout %q: must be greater than 0", c.API.Timeout)
		}
	}

	// Validate api.debounce_window (optional; must be a valid positive duration if set).
	c.API.DebounceWindow = strings.TrimSpace(c.API.DebounceWindow)
	if w := c.API.DebounceWindow; w != "" {
		d, err := time.ParseDuration(w)
		if err != nil {
			return fmt.Errorf("invalid api.debounce_window %q: %w", c.API.DebounceWindow, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid api.debounce_window %q: must be greater than 0", c.API.DebounceWindow)
		}
	}

	// Validate api.page_size (optional; zero means server default).
	if c.API.PageSize < 0 || c.API.PageSize > 100 {
		return fmt.Errorf("invalid api.page_size %d: must be between 0 and 100", c.API.PageSize)
	}

	c.API.AdminEmailHeader = strings.TrimSpace(c.API.AdminEmailHeader)

	// Validate log.level.
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	// Validate log.format.
	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}

	return c.validateDevServer()
}

// validateDevServer checks the fixture-server section. The section is
// ignored by the CLI, but when present it must be coherent so the
// server binary can trust it.
func (c *Config) validateDevServer() error {
	ds := &c.DevServer

	// An absent section leaves everything zero; the devserver binary
	// rejects that itself. Only validate what is set.
	if ds.Host == "" && ds.Port == 0 {
		return nil
	}

	mode := strings.TrimSpace(ds.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		ds.Mode = mode
	default:
		return fmt.Errorf("invalid devserver.mode %q: must be one of %q, %q, %q", ds.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if ds.Port < 1 || ds.Port > 65535 {
		return fmt.Errorf("invalid devserver.port %d: must be between 1 and 65535", ds.Port)
	}
	host := strings.TrimSpace(ds.Host)
	if host == "" {
		return fmt.Errorf("devserver.host is required")
	}
	ds.Host = host

	jwtSecret := strings.TrimSpace(ds.JWTSecret)
	if jwtSecret == "" {
		return fmt.Errorf("devserver.jwt_secret is required")
	}
	if len(jwtSecret) < 32 {
		return fmt.Errorf("invalid devserver.jwt_secret: must be at least 32 characters")
	}
	ds.JWTSecret = jwtSecret

	tokenExpiry := strings.TrimSpace(ds.TokenExpiry)
	if tokenExpiry == "" {
		return fmt.Errorf("devserver.token_expiry is required")
	}
	td, err := time.ParseDuration(tokenExpiry)
	if err != nil {
		return fmt.Errorf("invalid devserver.token_expiry %q: %w", ds.TokenExpiry, err)
	}
	if td <= 0 {
		return fmt.Errorf("invalid devserver.token_expiry %q: must be greater than 0", ds.TokenExpiry)
	}
	ds.TokenExpiry = tokenExpiry

	adminEmails := make([]string, 0, len(ds.AdminEmails))
	seen := make(map[string]struct{}, len(ds.AdminEmails))
	for idx, e := range ds.AdminEmails {
		normalized := strings.ToLower(strings.TrimSpace(e))
		if normalized == "" {
			return fmt.Errorf("devserver.admin_emails[%d] cannot be empty", idx)
		}
		if !strings.Contains(normalized, "@") {
			return fmt.Errorf("invalid devserver.admin_emails[%d] %q: must be an email address", idx, e)
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		adminEmails = append(adminEmails, normalized)
	}
	ds.AdminEmails = adminEmails

	// Validate devserver.database.driver.
	switch ds.Database.Driver {
	case "sqlite", "postgres":
		// ok
	default:
		return fmt.Errorf("invalid devserver.database.driver %q: must be one of %q, %q", ds.Database.Driver, "sqlite", "postgres")
	}

	if ds.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(ds.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("devserver.database.sqlite.path is required when driver is sqlite")
		}
		ds.Database.SQLite.Path = sqlitePath
	}

	// When driver is postgres, required connection fields must be valid.
	if ds.Database.Driver == "postgres" {
		pgHost := strings.TrimSpace(ds.Database.Postgres.Host)
		if pgHost == "" {
			return fmt.Errorf("devserver.database.postgres.host is required when driver is postgres")
		}
		if ds.Database.Postgres.Port < 1 || ds.Database.Postgres.Port > 65535 {
			return fmt.Errorf("invalid devserver.database.postgres.port %d: must be between 1 and 65535", ds.Database.Postgres.Port)
		}
		user := strings.TrimSpace(ds.Database.Postgres.User)
		if user == "" {
			return fmt.Errorf("devserver.database.postgres.user is required when driver is postgres")
		}
		dbName := strings.TrimSpace(ds.Database.Postgres.DBName)
		if dbName == "" {
			return fmt.Errorf("devserver.database.postgres.dbname is required when driver is postgres")
		}
		sslMode := strings.TrimSpace(ds.Database.Postgres.SSLMode)
		switch sslMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
			// ok
		default:
			return fmt.Errorf("invalid devserver.database.postgres.sslmode %q: must be one of %q, %q, %q, %q, %q, %q", ds.Database.Postgres.SSLMode, "disable", "allow", "prefer", "require", "verify-ca", "verify-full")
		}

		ds.Database.Postgres.Host = pgHost
		ds.Database.Postgres.User = user
		ds.Database.Postgres.DBName = dbName
		ds.Database.Postgres.SSLMode = sslMode
	}

	// Validate pool.conn_max_lifetime (optional; must be positive if set).
	ds.Database.Pool.ConnMaxLifetime = strings.TrimSpace(ds.Database.Pool.ConnMaxLifetime)
	if lm := ds.Database.Pool.ConnMaxLifetime; lm != "" {
		d, err := time.ParseDuration(lm)
		if err != nil {
			return fmt.Errorf("invalid devserver.database.pool.conn_max_lifetime %q: %w", ds.Database.Pool.ConnMaxLifetime, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid devserver.database.pool.conn_max_lifetime %q: must be greater than 0", ds.Database.Pool.ConnMaxLifetime)
		}
	}

	return nil
}

// APITimeout returns the configured per-call timeout, or zero when unset.
// Validate has already checked the format.
func (c *Config) APITimeout() time.Duration {
	if c.API.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.API.Timeout)
	return d
}

// APIDebounceWindow returns the configured search debounce window, or
// zero when unset.
func (c *Config) APIDebounceWindow() time.Duration {
	if c.API.DebounceWindow == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.API.DebounceWindow)
	return d
}

// TokenExpiryDuration returns the fixture server's token lifetime.
func (d *DevServerConfig) TokenExpiryDuration() time.Duration {
	td, _ := time.ParseDuration(d.TokenExpiry)
	return td
}
