// Package config provides configuration management for the oddswatch scraper.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/oddswatch/internal/models"
)

// Config represents the complete application configuration. The scraper
// section only seeds the runtime settings row; once a settings row exists in
// the database it wins on every cycle.
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Scraper    ScraperConfig    `mapstructure:"scraper" validate:"required"`
	Bookmakers BookmakersConfig `mapstructure:"bookmakers" validate:"required"`
	Risk       RiskConfig       `mapstructure:"risk" validate:"required"`
	Ops        OpsConfig        `mapstructure:"ops" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ScraperConfig seeds the pipeline settings used until a settings row is
// stored. Field meanings match the settings row one-to-one.
type ScraperConfig struct {
	IntervalMinutes     int      `mapstructure:"interval_minutes" validate:"required,min=1,max=60"`
	BatchSize           int      `mapstructure:"batch_size" validate:"required,gt=0"`
	MaxConcurrentEvents int      `mapstructure:"max_concurrent_events" validate:"required,gt=0"`
	BatchTimeoutSeconds int      `mapstructure:"batch_timeout_seconds" validate:"required,gt=0,lte=600"`
	WriteQueueDepth     int      `mapstructure:"write_queue_depth" validate:"required,gt=0"`
	EnabledPlatforms    []string `mapstructure:"enabled_platforms" validate:"required,min=1,platforms"`
	WatchdogStaleMinutes int     `mapstructure:"watchdog_stale_minutes" validate:"required,gt=0"`
}

// BookmakersConfig groups the three upstream adapter configurations
type BookmakersConfig struct {
	BetPrime BetPrimeConfig `mapstructure:"betprime" validate:"required"`
	StakeOne StakeOneConfig `mapstructure:"stakeone" validate:"required"`
	SpinBet  SpinBetConfig  `mapstructure:"spinbet" validate:"required"`
}

// BetPrimeConfig configures the reference bookmaker adapter
type BetPrimeConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	Brand          string `mapstructure:"brand" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxConcurrent  int    `mapstructure:"max_concurrent" validate:"required,gt=0"`
	Enabled        bool   `mapstructure:"enabled"`
}

// StakeOneConfig configures the first competitor adapter
type StakeOneConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	ClientID       string `mapstructure:"client_id" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxConcurrent  int    `mapstructure:"max_concurrent" validate:"required,gt=0"`
	Enabled        bool   `mapstructure:"enabled"`
}

// SpinBetConfig configures the second competitor adapter. RequestDelayMS is
// a pacing constant (minimum gap between requests), separate from retry
// backoff.
type SpinBetConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxConcurrent  int    `mapstructure:"max_concurrent" validate:"required,gt=0"`
	RequestDelayMS int    `mapstructure:"request_delay_ms" validate:"gte=0"`
	Enabled        bool   `mapstructure:"enabled"`
}

// RiskConfig holds the risk detector thresholds in percent
type RiskConfig struct {
	WarningPercent  float64 `mapstructure:"warning_percent" validate:"required,gt=0"`
	ElevatedPercent float64 `mapstructure:"elevated_percent" validate:"required,gt=0"`
	CriticalPercent float64 `mapstructure:"critical_percent" validate:"required,gt=0"`
}

// OpsConfig configures the operational HTTP server (health, metrics,
// progress websocket)
type OpsConfig struct {
	Port        int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	MetricsPath string `mapstructure:"metrics_path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// AdapterTimeout returns the per-request HTTP timeout for the given slug
func (c *Config) AdapterTimeout(slug string) time.Duration {
	switch slug {
	case models.BookmakerBetPrime:
		return time.Duration(c.Bookmakers.BetPrime.TimeoutSeconds) * time.Second
	case models.BookmakerStakeOne:
		return time.Duration(c.Bookmakers.StakeOne.TimeoutSeconds) * time.Second
	case models.BookmakerSpinBet:
		return time.Duration(c.Bookmakers.SpinBet.TimeoutSeconds) * time.Second
	default:
		return 30 * time.Second
	}
}

// ToSettings converts the file-level scraper section into a settings value
// for processes that have no settings row stored yet.
func (c *Config) ToSettings() *models.Settings {
	s := models.DefaultSettings()
	s.ScrapeIntervalMinutes = c.Scraper.IntervalMinutes
	s.EnabledPlatforms = append([]string(nil), c.Scraper.EnabledPlatforms...)
	s.BatchSize = c.Scraper.BatchSize
	s.MaxConcurrentEvents = c.Scraper.MaxConcurrentEvents
	s.BatchTimeoutSeconds = c.Scraper.BatchTimeoutSeconds
	s.WriteQueueDepth = c.Scraper.WriteQueueDepth
	s.WatchdogStaleMinutes = c.Scraper.WatchdogStaleMinutes
	s.ConcurrencyLimits = map[string]int{
		models.BookmakerBetPrime: c.Bookmakers.BetPrime.MaxConcurrent,
		models.BookmakerStakeOne: c.Bookmakers.StakeOne.MaxConcurrent,
		models.BookmakerSpinBet:  c.Bookmakers.SpinBet.MaxConcurrent,
	}
	s.SpinBetDelayMS = c.Bookmakers.SpinBet.RequestDelayMS
	s.RiskWarningPercent = c.Risk.WarningPercent
	s.RiskElevatedPercent = c.Risk.ElevatedPercent
	s.RiskCriticalPercent = c.Risk.CriticalPercent
	s.Normalize()
	return s
}
