// Package persist saves and restores campaign engine state through a
// key-value store.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KV is the storage the adapter writes snapshots to.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// GormKV stores values in the campaign_snapshots table.
type GormKV struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormKV returns a KV backed by db. The table must already be migrated.
func NewGormKV(db *gorm.DB) *GormKV {
	return &GormKV{db: db, now: time.Now}
}

// Get returns the value stored under key.
func (s *GormKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row models.Snapshot
	err := s.db.WithContext(ctx).Where(&models.Snapshot{Key: key}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("persist: get %s: %w", key, err)
	}
	return row.Payload, true, nil
}

// Put upserts value under key.
func (s *GormKV) Put(ctx context.Context, key string, value []byte) error {
	row := models.Snapshot{
		Key:     key,
		Payload: value,
		Version: campaign.SnapshotVersion,
		SavedAt: s.now(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "version", "saved_at", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("persist: put %s: %w", key, result.Error)
	}
	return nil
}

// MemoryKV is an in-process KV, used when no storage is configured.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
