package main

import (
	"context"
	"fmt"

	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/config"
	"github.com/zulandar/campaignyard/internal/db"
	"github.com/zulandar/campaignyard/internal/persist"
	"github.com/zulandar/campaignyard/internal/scheduler"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// workspace is a loaded campaign: config, store, engine and the adapter
// that persists it.
type workspace struct {
	cfg     *config.Config
	db      *gorm.DB
	engine  *campaign.Engine
	adapter *persist.Adapter
	archive *persist.EventArchive
	// loaded is false when no snapshot existed yet.
	loaded bool
}

// openWorkspace loads config, opens (and migrates) the store and restores
// the campaign snapshot. Loops from the config are seeded into a fresh
// campaign; into a stored one only those with ids it doesn't know yet.
func openWorkspace(ctx context.Context, configPath string, log *zap.Logger) (*workspace, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Init(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	settings := cfg.Timeline.Settings()
	engine := campaign.New(campaign.Options{
		Meta:     cfg.Campaign.Meta(),
		Timeline: &settings,
	})
	archive := persist.NewEventArchive(gormDB)
	adapter := persist.NewAdapter(engine, persist.NewGormKV(gormDB), persist.Options{
		Key:     cfg.Storage.Key,
		Archive: archive,
		Logger:  log,
	})

	loaded, err := adapter.Load(ctx)
	if err != nil {
		closeDB(gormDB)
		return nil, err
	}

	seed := cfg.SeedLoops()
	if !loaded {
		if len(seed) > 0 {
			engine.SetLoops(seed)
		}
	} else {
		for _, l := range seed {
			if l.ID == "" {
				continue
			}
			if _, ok := engine.GetLoop(l.ID); !ok {
				engine.AddLoop(l)
			}
		}
	}

	return &workspace{
		cfg:     cfg,
		db:      gormDB,
		engine:  engine,
		adapter: adapter,
		archive: archive,
		loaded:  loaded,
	}, nil
}

// thresholds overlays the configured agent tuning on the scheduler defaults.
func (w *workspace) thresholds() *scheduler.Thresholds {
	th := scheduler.DefaultThresholds()
	a := w.cfg.Agents
	if a.GapUnits > 0 {
		th.GapUnits = a.GapUnits
	}
	if a.MaxOverlap > 0 {
		th.MaxOverlap = a.MaxOverlap
	}
	if a.MaxFollowups > 0 {
		th.MaxFollowups = a.MaxFollowups
	}
	if a.EmotionWindow > 0 {
		th.EmotionWindow = a.EmotionWindow
	}
	return &th
}

func (w *workspace) Close() {
	closeDB(w.db)
}

func closeDB(gormDB *gorm.DB) {
	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
}
