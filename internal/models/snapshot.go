package models

import "time"

// Snapshot stores one serialized campaign under a key.
type Snapshot struct {
	Key       string    `gorm:"primaryKey;size:128"`
	Payload   []byte    `gorm:"type:longblob;not null"`
	Version   int       `gorm:"default:1"`
	SavedAt   time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the default pluralised name.
func (Snapshot) TableName() string { return "campaign_snapshots" }
