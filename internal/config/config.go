// Package config provides YAML-based configuration loading for campaignyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/zulandar/campaignyard/internal/campaign"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. CY_STORAGE_DRIVER.
const EnvPrefix = "CY"

// Config is the top-level campaignyard configuration, loaded from config.yaml.
type Config struct {
	Campaign         CampaignConfig  `yaml:"campaign"`
	Timeline         TimelineConfig  `yaml:"timeline"`
	Storage          StorageConfig   `yaml:"storage"`
	AutosaveInterval time.Duration   `yaml:"autosave_interval" split_words:"true"`
	Dashboard        DashboardConfig `yaml:"dashboard"`
	Loops            []LoopConfig    `yaml:"loops" ignored:"true"`
	Notify           NotifyConfig    `yaml:"notify"`
	Agents           AgentsConfig    `yaml:"agents"`
}

// CampaignConfig identifies the campaign the workspace loads.
type CampaignConfig struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Goal  string `yaml:"goal"`
	Owner string `yaml:"owner"`
	Theme string `yaml:"theme"`
}

// TimelineConfig overrides the default timeline settings. Zero values keep
// the defaults.
type TimelineConfig struct {
	GridSize   float64 `yaml:"grid_size" split_words:"true"`
	SnapToGrid *bool   `yaml:"snap_to_grid" split_words:"true"`
	ZoomMin    float64 `yaml:"zoom_min" split_words:"true"`
	ZoomMax    float64 `yaml:"zoom_max" split_words:"true"`
	Duration   float64 `yaml:"duration"`
}

// StorageConfig selects where snapshots are kept.
type StorageConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Key      string `yaml:"key"`
}

// DashboardConfig holds settings for the HTTP surface.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// LoopConfig seeds one background loop.
type LoopConfig struct {
	ID       string `yaml:"id"`
	Agent    string `yaml:"agent"`
	Type     string `yaml:"type"`
	Interval string `yaml:"interval"`
	Disabled bool   `yaml:"disabled"`
}

// NotifyConfig holds webhook destinations for high-priority suggestions.
// Digest, when set, is a cron spec for a loop activity summary.
type NotifyConfig struct {
	SlackWebhook        string `yaml:"slack_webhook" split_words:"true"`
	DiscordWebhookID    string `yaml:"discord_webhook_id" split_words:"true"`
	DiscordWebhookToken string `yaml:"discord_webhook_token" split_words:"true"`
	Digest              string `yaml:"digest"`
}

// AgentsConfig tunes the simulated loop agents. Zero values keep the
// scheduler defaults.
type AgentsConfig struct {
	GapUnits      float64       `yaml:"gap_units" split_words:"true"`
	MaxOverlap    int           `yaml:"max_overlap" split_words:"true"`
	MaxFollowups  int           `yaml:"max_followups" split_words:"true"`
	EmotionWindow time.Duration `yaml:"emotion_window" split_words:"true"`
}

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies CY_* environment overrides and
// defaults, and returns a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	// envconfig leaves nil pointers alone, so the override needs a target.
	if cfg.Timeline.SnapToGrid == nil {
		snap := campaign.DefaultTimelineSettings().SnapToGrid
		cfg.Timeline.SnapToGrid = &snap
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays CY_* environment variables. Nested groups use the group
// name as an infix, e.g. CY_STORAGE_DRIVER or CY_NOTIFY_SLACK_WEBHOOK.
func (c *Config) applyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Campaign.ID == "" {
		c.Campaign.ID = "default"
	}
	if c.Campaign.Theme == "" {
		c.Campaign.Theme = string(campaign.ThemeDAW)
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "campaign.db"
	}
	if c.Storage.Host == "" {
		c.Storage.Host = "127.0.0.1"
	}
	if c.Storage.Port == 0 {
		c.Storage.Port = 3306
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "campaignyard"
	}
	if c.Storage.User == "" {
		c.Storage.User = "root"
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "campaign:" + c.Campaign.ID
	}
	if c.AutosaveInterval == 0 {
		c.AutosaveInterval = 30 * time.Second
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	for i := range c.Loops {
		if c.Loops[i].Interval == "" {
			c.Loops[i].Interval = string(campaign.Hourly)
		}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Campaign.Name == "" {
		errs = append(errs, "campaign.name is required")
	}
	if !campaign.ThemeID(c.Campaign.Theme).Valid() {
		errs = append(errs, fmt.Sprintf("campaign.theme %q is not a known theme", c.Campaign.Theme))
	}
	if c.Timeline.GridSize < 0 {
		errs = append(errs, "timeline.grid_size must not be negative")
	}
	if c.Timeline.ZoomMin > 0 && c.Timeline.ZoomMax > 0 && c.Timeline.ZoomMin > c.Timeline.ZoomMax {
		errs = append(errs, "timeline.zoom_min must not exceed timeline.zoom_max")
	}
	if c.Timeline.Duration < 0 {
		errs = append(errs, "timeline.duration must not be negative")
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q must be %s or %s", c.Storage.Driver, DriverSQLite, DriverMySQL))
	}
	if c.AutosaveInterval < time.Second {
		errs = append(errs, "autosave_interval must be at least 1s")
	}
	if c.Dashboard.Port < 1 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d is out of range", c.Dashboard.Port))
	}
	for i, l := range c.Loops {
		if !campaign.AgentName(l.Agent).Valid() {
			errs = append(errs, fmt.Sprintf("loops[%d].agent %q is not a known agent", i, l.Agent))
		}
		if campaign.LoopInterval(l.Interval).Duration() == 0 {
			errs = append(errs, fmt.Sprintf("loops[%d].interval %q must be one of 5m, 15m, 1h, daily", i, l.Interval))
		}
	}
	if c.Agents.GapUnits < 0 {
		errs = append(errs, "agents.gap_units must be positive")
	}
	if c.Agents.MaxOverlap < 0 {
		errs = append(errs, "agents.max_overlap must be positive")
	}
	if c.Agents.MaxFollowups < 0 {
		errs = append(errs, "agents.max_followups must be positive")
	}
	if c.Agents.EmotionWindow < 0 {
		errs = append(errs, "agents.emotion_window must be positive")
	}
	if (c.Notify.DiscordWebhookID == "") != (c.Notify.DiscordWebhookToken == "") {
		errs = append(errs, "notify.discord_webhook_id and notify.discord_webhook_token must be set together")
	}
	if c.Notify.Digest != "" {
		if _, err := cron.ParseStandard(c.Notify.Digest); err != nil {
			errs = append(errs, fmt.Sprintf("notify.digest %q: %v", c.Notify.Digest, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Settings converts the timeline overrides into engine settings.
func (t TimelineConfig) Settings() campaign.TimelineSettings {
	s := campaign.DefaultTimelineSettings()
	if t.GridSize > 0 {
		s.GridSize = t.GridSize
	}
	if t.SnapToGrid != nil {
		s.SnapToGrid = *t.SnapToGrid
	}
	if t.ZoomMin > 0 {
		s.ZoomMin = t.ZoomMin
	}
	if t.ZoomMax > 0 {
		s.ZoomMax = t.ZoomMax
	}
	if t.Duration > 0 {
		s.Duration = t.Duration
	}
	return s
}

// Meta returns the initial campaign metadata described by the config.
func (c CampaignConfig) Meta() campaign.CampaignMeta {
	return campaign.CampaignMeta{
		ID:           c.ID,
		Name:         c.Name,
		Goal:         c.Goal,
		CurrentTheme: campaign.ThemeID(c.Theme),
		UserID:       c.Owner,
	}
}

// SeedLoops converts the configured loops into engine loops.
func (c *Config) SeedLoops() []campaign.Loop {
	out := make([]campaign.Loop, 0, len(c.Loops))
	for _, l := range c.Loops {
		status := campaign.LoopIdle
		if l.Disabled {
			status = campaign.LoopDisabled
		}
		out = append(out, campaign.Loop{
			ID:       l.ID,
			UserID:   c.Campaign.Owner,
			Agent:    campaign.AgentName(l.Agent),
			LoopType: campaign.LoopType(l.Type),
			Interval: campaign.LoopInterval(l.Interval),
			Status:   status,
		})
	}
	return out
}
