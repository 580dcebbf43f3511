// Package config provides YAML-based configuration loading for Shiftline.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// cronParser matches the 5-field schedule format the daemon's
// maintenance timers use.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Config is the top-level Shiftline configuration, loaded from config.yaml.
type Config struct {
	Timezone  string           `yaml:"timezone"`
	Session   SessionConfig    `yaml:"session"`
	Requests  RequestsConfig   `yaml:"requests"`
	DB        DBConfig         `yaml:"db"`
	Platform  PlatformConfig   `yaml:"platform"`
	Dashboard DashboardConfig  `yaml:"dashboard"`
	Locations []LocationConfig `yaml:"locations"`
}

// SessionConfig controls the in-memory dialog session store.
type SessionConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes"`
	SweepCron  string `yaml:"sweep_cron"`
}

// RequestsConfig controls request expiry for unresolved approvals.
type RequestsConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	ExpireCron    string `yaml:"expire_cron"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// PlatformConfig selects and configures the chat platform adapter.
type PlatformConfig struct {
	Kind    string        `yaml:"kind"` // "slack" or "discord"
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken string `yaml:"app_token"`
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord Gateway credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DashboardConfig controls the read-only HTTP dashboard.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LocationConfig names a store location staff can be scheduled at.
type LocationConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SessionTTL returns the configured session TTL as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HasLocation reports whether id is a configured location. An empty
// location list accepts any id.
func (c *Config) HasLocation(id string) bool {
	if len(c.Locations) == 0 {
		return true
	}
	for _, l := range c.Locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 15
	}
	if c.Session.SweepCron == "" {
		c.Session.SweepCron = "*/5 * * * *"
	}
	if c.Requests.RetentionDays == 0 {
		c.Requests.RetentionDays = 7
	}
	if c.Requests.ExpireCron == "" {
		c.Requests.ExpireCron = "0 * * * *"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "shiftline"
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not loadable", c.Timezone))
	}
	if c.Session.TTLMinutes < 0 {
		errs = append(errs, "session.ttl_minutes must not be negative")
	}
	if c.Session.SweepCron != "" {
		if _, err := cronParser.Parse(c.Session.SweepCron); err != nil {
			errs = append(errs, fmt.Sprintf("session.sweep_cron %q is not a valid cron expression", c.Session.SweepCron))
		}
	}
	if c.Requests.ExpireCron != "" {
		if _, err := cronParser.Parse(c.Requests.ExpireCron); err != nil {
			errs = append(errs, fmt.Sprintf("requests.expire_cron %q is not a valid cron expression", c.Requests.ExpireCron))
		}
	}
	switch c.Platform.Kind {
	case "", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("platform.kind %q is not supported (slack, discord)", c.Platform.Kind))
	}
	for i, l := range c.Locations {
		if l.ID == "" {
			errs = append(errs, fmt.Sprintf("locations[%d].id is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
