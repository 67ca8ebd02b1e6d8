// Package config loads UniLost settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env       string `yaml:"env"        env:"APP_ENV"    env-default:"development"`
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host"                  env:"HOST"                  env-default:"0.0.0.0"`
	Port               int           `yaml:"port"                  env:"PORT"                  env-default:"3000"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"      env:"SHUTDOWN_TIMEOUT"      env-default:"10s"`
	LoginRatePerMinute int           `yaml:"login_rate_per_minute" env:"LOGIN_RATE_PER_MINUTE" env-default:"20"`
}

// DatabaseConfig selects the storage backend. A non-empty URL selects
// PostgreSQL; otherwise the SQLite file at SQLitePath is used.
type DatabaseConfig struct {
	URL        string `yaml:"url"         env:"DATABASE_URL"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"        env-default:"unilost.db"`
	MaxConns   int32  `yaml:"max_conns"   env:"DATABASE_MAX_CONNS" env-default:"10"`
}

// SessionConfig holds cookie session settings.
type SessionConfig struct {
	Secret string        `yaml:"secret"  env:"SESSION_SECRET"  env-default:"demo-lost-and-found-secret"`
	Dir    string        `yaml:"dir"     env:"SESSION_DIR"`
	MaxAge time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"6h"`
}

// LogConfig holds logging settings. File logging is enabled when File is set.
type LogConfig struct {
	Level      string `yaml:"level"        env:"LOG_LEVEL"        env-default:"info"`
	File       string `yaml:"file"         env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb"  env:"LOG_MAX_SIZE_MB"  env-default:"100"`
	MaxBackups int    `yaml:"max_backups"  env:"LOG_MAX_BACKUPS"  env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// RealtimeConfig holds websocket settings.
type RealtimeConfig struct {
	// Rate is the sustained number of inbound frames per second per connection.
	Rate       float64 `yaml:"rate"        env:"REALTIME_RATE"        env-default:"5"`
	Burst      int     `yaml:"burst"       env:"REALTIME_BURST"       env-default:"20"`
	SendBuffer int     `yaml:"send_buffer" env:"REALTIME_SEND_BUFFER" env-default:"64"`
}

// Production reports whether the app runs in production mode.
func (c AppConfig) Production() bool {
	return c.Env == "production"
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// UsePostgres reports whether the PostgreSQL backend is configured.
func (c DatabaseConfig) UsePostgres() bool {
	return c.URL != ""
}

// Validate checks values that cleanenv cannot.
func (c *Config) Validate() error {
	switch c.App.Env {
	case "development", "production", "test":
	default:
		return fmt.Errorf("app.env must be development, production or test (got %q)", c.App.Env)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if c.Server.LoginRatePerMinute <= 0 {
		return fmt.Errorf("server.login_rate_per_minute must be > 0 (got %d)", c.Server.LoginRatePerMinute)
	}
	if c.Session.Secret == "" {
		return fmt.Errorf("session.secret must not be empty")
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session.max_age must be > 0 (got %s)", c.Session.MaxAge)
	}
	if c.Realtime.Rate <= 0 || c.Realtime.Burst <= 0 {
		return fmt.Errorf("realtime rate and burst must be > 0")
	}
	if c.Realtime.SendBuffer <= 0 {
		return fmt.Errorf("realtime.send_buffer must be > 0 (got %d)", c.Realtime.SendBuffer)
	}
	if !c.Database.UsePostgres() && c.Database.SQLitePath == "" {
		return fmt.Errorf("either database.url or database.sqlite_path must be set")
	}
	return nil
}
