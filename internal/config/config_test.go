package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
)

const fullYAML = `
campaign:
  id: debut-ep
  name: Debut EP
  goal: 10k monthly listeners
  owner: alice
  theme: aqua

timeline:
  grid_size: 0.5
  snap_to_grid: false
  zoom_min: 20
  zoom_max: 150
  duration: 600

storage:
  driver: mysql
  host: 10.0.0.5
  port: 3307
  database: campaigns
  key: campaign:debut

autosave_interval: 45s

dashboard:
  port: 9090

loops:
  - id: loop-scout
    agent: scout
    type: exploration
    interval: 5m
  - agent: insight
    type: emotion
    disabled: true

notify:
  slack_webhook: https://hooks.slack.com/services/T000/B000/XXX
  discord_webhook_id: "123"
  discord_webhook_token: abc
  digest: "@daily"
`

const minimalYAML = `
campaign:
  name: Single
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Campaign.ID != "debut-ep" {
		t.Errorf("Campaign.ID = %q, want %q", cfg.Campaign.ID, "debut-ep")
	}
	if cfg.Campaign.Theme != "aqua" {
		t.Errorf("Campaign.Theme = %q, want %q", cfg.Campaign.Theme, "aqua")
	}
	if cfg.Storage.Driver != DriverMySQL {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverMySQL)
	}
	if cfg.Storage.Port != 3307 {
		t.Errorf("Storage.Port = %d, want %d", cfg.Storage.Port, 3307)
	}
	if cfg.Storage.Key != "campaign:debut" {
		t.Errorf("Storage.Key = %q, want %q", cfg.Storage.Key, "campaign:debut")
	}
	if cfg.AutosaveInterval != 45*time.Second {
		t.Errorf("AutosaveInterval = %v, want 45s", cfg.AutosaveInterval)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("Dashboard.Port = %d, want %d", cfg.Dashboard.Port, 9090)
	}
	if len(cfg.Loops) != 2 {
		t.Fatalf("len(Loops) = %d, want 2", len(cfg.Loops))
	}
	if cfg.Loops[1].Interval != "1h" {
		t.Errorf("Loops[1].Interval = %q, want default 1h", cfg.Loops[1].Interval)
	}
	if cfg.Notify.Digest != "@daily" {
		t.Errorf("Notify.Digest = %q, want @daily", cfg.Notify.Digest)
	}
	if cfg.Notify.DiscordWebhookID != "123" {
		t.Errorf("Notify.DiscordWebhookID = %q, want %q", cfg.Notify.DiscordWebhookID, "123")
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Campaign.ID != "default" {
		t.Errorf("Campaign.ID = %q, want %q", cfg.Campaign.ID, "default")
	}
	if cfg.Campaign.Theme != "daw" {
		t.Errorf("Campaign.Theme = %q, want %q", cfg.Campaign.Theme, "daw")
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverSQLite)
	}
	if cfg.Storage.Path != "campaign.db" {
		t.Errorf("Storage.Path = %q, want %q", cfg.Storage.Path, "campaign.db")
	}
	if cfg.Storage.Key != "campaign:default" {
		t.Errorf("Storage.Key = %q, want %q", cfg.Storage.Key, "campaign:default")
	}
	if cfg.Storage.Host != "127.0.0.1" || cfg.Storage.Port != 3306 || cfg.Storage.User != "root" {
		t.Errorf("Storage = %+v, want local mysql defaults", cfg.Storage)
	}
	if cfg.AutosaveInterval != 30*time.Second {
		t.Errorf("AutosaveInterval = %v, want 30s", cfg.AutosaveInterval)
	}
	if cfg.Dashboard.Port != 8080 {
		t.Errorf("Dashboard.Port = %d, want %d", cfg.Dashboard.Port, 8080)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("CY_STORAGE_DRIVER", "mysql")
	t.Setenv("CY_STORAGE_DATABASE", "from_env")
	t.Setenv("CY_CAMPAIGN_ID", "env-campaign")
	t.Setenv("CY_AUTOSAVE_INTERVAL", "2m")
	t.Setenv("CY_DASHBOARD_PORT", "9999")
	t.Setenv("CY_NOTIFY_SLACK_WEBHOOK", "https://hooks.example/env")
	t.Setenv("CY_TIMELINE_SNAP_TO_GRID", "false")

	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Driver != DriverMySQL {
		t.Errorf("Storage.Driver = %q, want %q", cfg.Storage.Driver, DriverMySQL)
	}
	if cfg.Storage.Database != "from_env" {
		t.Errorf("Storage.Database = %q, want %q", cfg.Storage.Database, "from_env")
	}
	// Derived defaults see the overridden id.
	if cfg.Storage.Key != "campaign:env-campaign" {
		t.Errorf("Storage.Key = %q, want %q", cfg.Storage.Key, "campaign:env-campaign")
	}
	if cfg.AutosaveInterval != 2*time.Minute {
		t.Errorf("AutosaveInterval = %v, want 2m", cfg.AutosaveInterval)
	}
	if cfg.Dashboard.Port != 9999 {
		t.Errorf("Dashboard.Port = %d, want 9999", cfg.Dashboard.Port)
	}
	if cfg.Notify.SlackWebhook != "https://hooks.example/env" {
		t.Errorf("Notify.SlackWebhook = %q", cfg.Notify.SlackWebhook)
	}
	if cfg.Timeline.SnapToGrid == nil || *cfg.Timeline.SnapToGrid {
		t.Errorf("Timeline.SnapToGrid = %v, want false", cfg.Timeline.SnapToGrid)
	}
}

func TestParse_BadEnvValue(t *testing.T) {
	t.Setenv("CY_DASHBOARD_PORT", "not-a-port")
	_, err := Parse([]byte(minimalYAML))
	if err == nil {
		t.Fatal("expected error for unparsable env value")
	}
	if !strings.Contains(err.Error(), "config: env") {
		t.Errorf("error = %q, want config: env prefix", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "campaign:\n  goal: x\n",
			wantErr: "campaign.name is required",
		},
		{
			name:    "unknown theme",
			yaml:    "campaign:\n  name: A\n  theme: vaporwave\n",
			wantErr: `campaign.theme "vaporwave"`,
		},
		{
			name:    "bad driver",
			yaml:    "campaign:\n  name: A\nstorage:\n  driver: postgres\n",
			wantErr: `storage.driver "postgres"`,
		},
		{
			name:    "zoom range inverted",
			yaml:    "campaign:\n  name: A\ntimeline:\n  zoom_min: 100\n  zoom_max: 50\n",
			wantErr: "zoom_min must not exceed",
		},
		{
			name:    "autosave too short",
			yaml:    "campaign:\n  name: A\nautosave_interval: 10ms\n",
			wantErr: "autosave_interval must be at least 1s",
		},
		{
			name:    "port out of range",
			yaml:    "campaign:\n  name: A\ndashboard:\n  port: 70000\n",
			wantErr: "dashboard.port 70000",
		},
		{
			name:    "unknown agent",
			yaml:    "campaign:\n  name: A\nloops:\n  - agent: oracle\n",
			wantErr: `loops[0].agent "oracle"`,
		},
		{
			name:    "bad interval",
			yaml:    "campaign:\n  name: A\nloops:\n  - agent: scout\n    interval: 2m\n",
			wantErr: `loops[0].interval "2m"`,
		},
		{
			name:    "discord half configured",
			yaml:    "campaign:\n  name: A\nnotify:\n  discord_webhook_id: \"1\"\n",
			wantErr: "must be set together",
		},
		{
			name:    "negative overlap",
			yaml:    "campaign:\n  name: A\nagents:\n  max_overlap: -1\n",
			wantErr: "agents.max_overlap must be positive",
		},
		{
			name:    "negative followups",
			yaml:    "campaign:\n  name: A\nagents:\n  max_followups: -2\n",
			wantErr: "agents.max_followups must be positive",
		},
		{
			name:    "negative gap",
			yaml:    "campaign:\n  name: A\nagents:\n  gap_units: -0.5\n",
			wantErr: "agents.gap_units must be positive",
		},
		{
			name:    "negative emotion window",
			yaml:    "campaign:\n  name: A\nagents:\n  emotion_window: -1h\n",
			wantErr: "agents.emotion_window must be positive",
		},
		{
			name:    "bad digest spec",
			yaml:    "campaign:\n  name: A\nnotify:\n  digest: sometimes\n",
			wantErr: `notify.digest "sometimes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_CollectsAllErrors(t *testing.T) {
	_, err := Parse([]byte("storage:\n  driver: postgres\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"campaign.name", "storage.driver"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("campaign: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Campaign.Name != "Debut EP" {
		t.Errorf("Campaign.Name = %q, want %q", cfg.Campaign.Name, "Debut EP")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err)
	}
}

func TestTimelineSettings(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}
	s := cfg.Timeline.Settings()
	if s.GridSize != 0.5 || s.SnapToGrid || s.ZoomMin != 20 || s.ZoomMax != 150 || s.Duration != 600 {
		t.Errorf("Settings() = %+v", s)
	}

	def := TimelineConfig{}.Settings()
	if def != campaign.DefaultTimelineSettings() {
		t.Errorf("empty overrides = %+v, want defaults", def)
	}
}

func TestMetaAndSeedLoops(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}
	m := cfg.Campaign.Meta()
	if m.UserID != "alice" || m.CurrentTheme != campaign.ThemeAqua {
		t.Errorf("Meta() = %+v", m)
	}

	loops := cfg.SeedLoops()
	if len(loops) != 2 {
		t.Fatalf("len(SeedLoops) = %d, want 2", len(loops))
	}
	if loops[0].ID != "loop-scout" || loops[0].Interval != campaign.Every5Minutes {
		t.Errorf("loops[0] = %+v", loops[0])
	}
	if loops[1].Status != campaign.LoopDisabled {
		t.Errorf("loops[1].Status = %q, want disabled", loops[1].Status)
	}
	if loops[1].UserID != "alice" {
		t.Errorf("loops[1].UserID = %q, want alice", loops[1].UserID)
	}
}

func TestParse_SnapToGridEnvWithoutYAML(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Timeline.Settings().SnapToGrid {
		t.Error("SnapToGrid = false without override, want default true")
	}

	t.Setenv("CY_TIMELINE_SNAP_TO_GRID", "false")
	cfg, err = Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Timeline.Settings().SnapToGrid {
		t.Error("SnapToGrid = true, want false from CY_TIMELINE_SNAP_TO_GRID")
	}
}

func TestParse_AgentThresholds(t *testing.T) {
	t.Setenv("CY_AGENTS_MAX_OVERLAP", "4")
	cfg, err := Parse([]byte("campaign:\n  name: A\nagents:\n  gap_units: 2\n  emotion_window: 48h\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := AgentsConfig{GapUnits: 2, MaxOverlap: 4, EmotionWindow: 48 * time.Hour}
	if cfg.Agents != want {
		t.Errorf("Agents = %+v, want %+v", cfg.Agents, want)
	}
}
