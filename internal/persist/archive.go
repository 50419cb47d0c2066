package persist

import (
	"context"
	"fmt"

	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventArchive keeps every loop event in the loop_event_archive table, long
// after the engine's bounded history has dropped it.
type EventArchive struct {
	db *gorm.DB
}

// NewEventArchive returns an archive backed by db.
func NewEventArchive(db *gorm.DB) *EventArchive {
	return &EventArchive{db: db}
}

// Append stores events, given newest first, for a campaign. Events already
// archived are skipped.
func (a *EventArchive) Append(ctx context.Context, campaignID string, events []campaign.LoopEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]models.LoopEventRecord, len(events))
	// Insert oldest first so row ids follow event order.
	for i, ev := range events {
		rows[len(events)-1-i] = models.LoopEventRecord{
			EventID:              ev.ID,
			CampaignID:           campaignID,
			LoopID:               ev.LoopID,
			Agent:                string(ev.Agent),
			Success:              ev.Result.Success,
			Message:              ev.Result.Message,
			ClipsCreated:         ev.Result.ClipsCreated,
			CardsCreated:         ev.Result.CardsCreated,
			SuggestionsGenerated: ev.Result.SuggestionsGenerated,
			ExecutionTimeMs:      ev.Result.ExecutionTimeMs,
			Error:                ev.Result.Error,
			CreatedAt:            ev.CreatedAt,
		}
	}
	err := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("persist: archive %d events: %w", len(events), err)
	}
	return nil
}

// List returns archived events for a campaign, newest first. An empty
// loopID matches every loop; limit <= 0 means no limit.
func (a *EventArchive) List(ctx context.Context, campaignID, loopID string, limit int) ([]campaign.LoopEvent, error) {
	q := a.db.WithContext(ctx).Where(&models.LoopEventRecord{CampaignID: campaignID, LoopID: loopID}).
		Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.LoopEventRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("persist: list events for %s: %w", campaignID, err)
	}
	out := make([]campaign.LoopEvent, len(rows))
	for i, r := range rows {
		out[i] = campaign.LoopEvent{
			ID:     r.EventID,
			LoopID: r.LoopID,
			Agent:  campaign.AgentName(r.Agent),
			Result: campaign.LoopResult{
				Success:              r.Success,
				Message:              r.Message,
				ClipsCreated:         r.ClipsCreated,
				CardsCreated:         r.CardsCreated,
				SuggestionsGenerated: r.SuggestionsGenerated,
				ExecutionTimeMs:      r.ExecutionTimeMs,
				Error:                r.Error,
			},
			CreatedAt: r.CreatedAt,
		}
	}
	return out, nil
}
