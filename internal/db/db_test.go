package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/campaignyard/internal/config"
	"github.com/zulandar/campaignyard/internal/models"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "campaignyard",
			want:     "root@tcp(127.0.0.1:3306)/campaignyard?parseTime=true",
		},
		{
			name:     "custom host and port",
			user:     "root",
			host:     "10.0.0.5",
			port:     3307,
			database: "campaigns_bob",
			want:     "root@tcp(10.0.0.5:3307)/campaigns_bob?parseTime=true",
		},
		{
			name:     "admin without database",
			user:     "dolt",
			host:     "dolt-server.vpc.internal",
			port:     3306,
			database: "",
			want:     "dolt@tcp(dolt-server.vpc.internal:3306)/?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDSN_ParseTimeFlag(t *testing.T) {
	dsn := DSN("root", "localhost", 3306, "test")
	if !strings.Contains(dsn, "parseTime=true") {
		t.Errorf("DSN missing parseTime=true: %s", dsn)
	}
}

func TestAllModels_Count(t *testing.T) {
	models := AllModels()
	if len(models) != 2 {
		t.Errorf("AllModels() returned %d models, want 2", len(models))
	}
}

func TestOpenSQLite_AutoMigrate(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, table := range []string{"campaign_snapshots", "loop_event_archive"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing after AutoMigrate", table)
		}
	}

	// Migrating twice is harmless.
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
	if err := db.Create(&models.Snapshot{Key: "k", Payload: []byte("{}")}).Error; err != nil {
		t.Fatalf("insert snapshot: %v", err)
	}
}

func TestInit_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.db")
	db, err := Init(config.StorageConfig{Driver: config.DriverSQLite, Path: path})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !db.Migrator().HasTable(&models.LoopEventRecord{}) {
		t.Error("loop_event_archive missing after Init")
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.StorageConfig{Driver: "postgres"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if !strings.Contains(err.Error(), `db: unknown driver "postgres"`) {
		t.Errorf("error = %q", err)
	}
}

func TestConnect_Error(t *testing.T) {
	// Port 1 is unlikely to have a MySQL server; expect connection error.
	_, err := Connect("root", "127.0.0.1", 1, "nonexistent")
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: connect to")
	}
}

func TestConnectAdmin_Error(t *testing.T) {
	_, err := ConnectAdmin("root", "127.0.0.1", 1)
	if err == nil {
		t.Fatal("expected error connecting to invalid port")
	}
	if !strings.Contains(err.Error(), "db: admin connect to") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: admin connect to")
	}
}
