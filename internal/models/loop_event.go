package models

import "time"

// LoopEventRecord archives one loop execution. The engine only keeps the
// newest events in memory; this table keeps all of them.
type LoopEventRecord struct {
	ID                   uint   `gorm:"primaryKey;autoIncrement"`
	EventID              string `gorm:"size:64;uniqueIndex"`
	CampaignID           string `gorm:"size:64;index:idx_campaign_loop"`
	LoopID               string `gorm:"size:64;index:idx_campaign_loop"`
	Agent                string `gorm:"size:16;index"`
	Success              bool
	Message              string `gorm:"type:text"`
	ClipsCreated         int
	CardsCreated         int
	SuggestionsGenerated int
	ExecutionTimeMs      int64
	Error                string    `gorm:"type:text"`
	CreatedAt            time.Time `gorm:"index"`
}

// TableName overrides the default pluralised name.
func (LoopEventRecord) TableName() string { return "loop_event_archive" }
