package dashboard

import (
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
)

// CampaignSummary is the header data every front-end shows.
type CampaignSummary struct {
	Meta            campaign.CampaignMeta `json:"meta"`
	IsDirty         bool                  `json:"isDirty"`
	LastSavedAt     *time.Time            `json:"lastSavedAt"`
	Revision        uint64                `json:"revision"`
	Tracks          int                   `json:"tracks"`
	Clips           int                   `json:"clips"`
	Cards           int                   `json:"cards"`
	PendingCount    int                   `json:"pendingSuggestions"`
	LoopHealthScore float64               `json:"loopHealthScore"`
}

func campaignSummary(e *campaign.Engine) CampaignSummary {
	tl := e.Timeline()
	s := CampaignSummary{
		Meta:            e.Meta(),
		IsDirty:         e.IsDirty(),
		Revision:        e.Revision(),
		Tracks:          len(tl.Tracks),
		Clips:           len(tl.Clips),
		Cards:           len(e.Cards().Cards),
		PendingCount:    len(e.PendingSuggestions()),
		LoopHealthScore: e.Loops().LoopHealthScore,
	}
	if t, ok := e.LastSavedAt(); ok {
		s.LastSavedAt = &t
	}
	return s
}
