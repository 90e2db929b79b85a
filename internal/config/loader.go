// Package config provides configuration management for the oddswatch scraper.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Read the configuration file
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("ODDSWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields; the config file may be absent entirely, in which case defaults and
// environment variables carry the whole configuration.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("ODDSWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "oddswatch")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 5)

	v.SetDefault("scraper.interval_minutes", 5)
	v.SetDefault("scraper.batch_size", 10)
	v.SetDefault("scraper.max_concurrent_events", 10)
	v.SetDefault("scraper.batch_timeout_seconds", 300)
	v.SetDefault("scraper.write_queue_depth", 50)
	v.SetDefault("scraper.enabled_platforms", []string{"bp", "s1", "s2"})
	v.SetDefault("scraper.watchdog_stale_minutes", 10)

	v.SetDefault("bookmakers.betprime.timeout_seconds", 30)
	v.SetDefault("bookmakers.betprime.max_concurrent", 50)
	v.SetDefault("bookmakers.betprime.brand", "betprime")
	v.SetDefault("bookmakers.betprime.enabled", true)
	v.SetDefault("bookmakers.stakeone.timeout_seconds", 30)
	v.SetDefault("bookmakers.stakeone.max_concurrent", 50)
	v.SetDefault("bookmakers.stakeone.enabled", true)
	v.SetDefault("bookmakers.spinbet.timeout_seconds", 30)
	v.SetDefault("bookmakers.spinbet.max_concurrent", 15)
	v.SetDefault("bookmakers.spinbet.request_delay_ms", 25)
	v.SetDefault("bookmakers.spinbet.enabled", true)

	v.SetDefault("risk.warning_percent", 7)
	v.SetDefault("risk.elevated_percent", 10)
	v.SetDefault("risk.critical_percent", 15)

	v.SetDefault("ops.port", 8080)
	v.SetDefault("ops.metrics_path", "/metrics")
}

// ReloadFromEnv reloads the configuration from the path given in
// ODDSWATCH_CONFIG_PATH, if set.
func ReloadFromEnv(cfg *Config) error {
	if envPath := os.Getenv("ODDSWATCH_CONFIG_PATH"); envPath != "" {
		newCfg, err := Load(envPath)
		if err != nil {
			return err
		}
		*cfg = *newCfg
	}
	return nil
}
