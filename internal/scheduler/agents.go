package scheduler

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
)

// View is the read-only state an agent analyses.
type View struct {
	Timeline campaign.TimelineState
	Cards    []campaign.Card
	Pending  []campaign.LoopSuggestion
	Now      time.Time
}

// Thresholds tunes the simulated agents.
type Thresholds struct {
	// GapUnits is the smallest gap, in grid units, scout reports.
	GapUnits float64
	// MaxOverlap is how many clips may overlap before tracker objects.
	MaxOverlap int
	// MaxFollowups caps the cards coach proposes per run.
	MaxFollowups int
	// EmotionWindow is how far back insight looks at cards.
	EmotionWindow time.Duration
}

// DefaultThresholds returns the standard agent tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GapUnits:      3,
		MaxOverlap:    3,
		MaxFollowups:  5,
		EmotionWindow: 7 * 24 * time.Hour,
	}
}

// Validate reports the first threshold that isn't positive. A zero
// MaxOverlap would let tracker compare against an empty active set.
func (th Thresholds) Validate() error {
	switch {
	case th.GapUnits <= 0:
		return fmt.Errorf("scheduler: gap units %g must be positive", th.GapUnits)
	case th.MaxOverlap <= 0:
		return fmt.Errorf("scheduler: max overlap %d must be positive", th.MaxOverlap)
	case th.MaxFollowups <= 0:
		return fmt.Errorf("scheduler: max followups %d must be positive", th.MaxFollowups)
	case th.EmotionWindow <= 0:
		return fmt.Errorf("scheduler: emotion window %v must be positive", th.EmotionWindow)
	}
	return nil
}

// Agent inspects a view and proposes suggestions. The returned message
// summarises the run for the loop event.
type Agent func(v View, th Thresholds) (suggestions []campaign.LoopSuggestion, message string)

// DefaultAgents returns the four simulated agents.
func DefaultAgents() map[campaign.AgentName]Agent {
	return map[campaign.AgentName]Agent{
		campaign.AgentScout:   scout,
		campaign.AgentCoach:   coach,
		campaign.AgentTracker: tracker,
		campaign.AgentInsight: insight,
	}
}

func hasPending(v View, agent campaign.AgentName, typ campaign.SuggestionType) bool {
	return slices.ContainsFunc(v.Pending, func(s campaign.LoopSuggestion) bool {
		return s.Agent == agent && s.Type == typ
	})
}

func clipsByTrack(tl campaign.TimelineState) map[string][]campaign.Clip {
	out := make(map[string][]campaign.Clip)
	for _, c := range tl.Clips {
		out[c.TrackID] = append(out[c.TrackID], c)
	}
	for _, clips := range out {
		slices.SortFunc(clips, func(a, b campaign.Clip) int { return cmp.Compare(a.StartTime, b.StartTime) })
	}
	return out
}

// scout looks for empty stretches between consecutive clips on a track and
// proposes filler clips.
func scout(v View, th Thresholds) ([]campaign.LoopSuggestion, string) {
	if hasPending(v, campaign.AgentScout, campaign.SuggestTimelineGap) {
		return nil, "gap suggestion already pending"
	}
	minGap := th.GapUnits * v.Timeline.GridSize
	byTrack := clipsByTrack(v.Timeline)

	var specs []campaign.ClipSpec
	for _, tr := range v.Timeline.Tracks {
		clips := byTrack[tr.ID]
		end := 0.0
		for i, c := range clips {
			if i > 0 && c.StartTime-end >= minGap {
				specs = append(specs, campaign.ClipSpec{
					TrackID:   tr.ID,
					Name:      fmt.Sprintf("Fill: %s", tr.Name),
					StartTime: end,
					Duration:  c.StartTime - end,
				})
			}
			end = math.Max(end, c.End())
		}
	}
	if len(specs) == 0 {
		return nil, "no gaps found"
	}
	priority := campaign.PriorityLow
	if len(specs) > 2 {
		priority = campaign.PriorityMedium
	}
	msg := fmt.Sprintf("found %d gap(s) of at least %g seconds", len(specs), minGap)
	return []campaign.LoopSuggestion{{
		Agent:    campaign.AgentScout,
		Type:     campaign.SuggestTimelineGap,
		Message:  msg,
		Priority: priority,
		Action:   campaign.RecommendedAction{Type: campaign.ActionCreateClips, Clips: specs},
	}}, msg
}

// coach proposes a follow-up card for clips nobody has reflected on yet.
func coach(v View, th Thresholds) ([]campaign.LoopSuggestion, string) {
	if hasPending(v, campaign.AgentCoach, campaign.SuggestMissingFollowups) {
		return nil, "follow-up suggestion already pending"
	}
	if th.MaxFollowups <= 0 {
		return nil, "follow-up limit unset"
	}
	var specs []campaign.CardSpec
	for _, c := range v.Timeline.Clips {
		if len(c.CardLinks) > 0 {
			continue
		}
		specs = append(specs, campaign.CardSpec{
			Type:         campaign.CardLoopImprovement,
			Content:      fmt.Sprintf("How did %q land? Add a note.", c.Name),
			LinkedClipID: c.ID,
		})
		if len(specs) == th.MaxFollowups {
			break
		}
	}
	if len(specs) == 0 {
		return nil, "every clip has a card"
	}
	msg := fmt.Sprintf("%d clip(s) have no follow-up card", len(specs))
	return []campaign.LoopSuggestion{{
		Agent:    campaign.AgentCoach,
		Type:     campaign.SuggestMissingFollowups,
		Message:  msg,
		Priority: campaign.PriorityMedium,
		Action:   campaign.RecommendedAction{Type: campaign.ActionCreateCards, Cards: specs},
	}}, msg
}

// tracker finds the first point where more than MaxOverlap clips run at
// once and proposes pushing the clip that tipped it over until the earliest
// running clip ends.
func tracker(v View, th Thresholds) ([]campaign.LoopSuggestion, string) {
	if hasPending(v, campaign.AgentTracker, campaign.SuggestOverload) {
		return nil, "overload suggestion already pending"
	}
	clips := slices.Clone(v.Timeline.Clips)
	slices.SortFunc(clips, func(a, b campaign.Clip) int {
		if c := cmp.Compare(a.StartTime, b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if th.MaxOverlap <= 0 {
		return nil, "overlap limit unset"
	}
	var active []campaign.Clip
	for _, c := range clips {
		active = slices.DeleteFunc(active, func(a campaign.Clip) bool { return a.End() <= c.StartTime })
		if len(active) < th.MaxOverlap {
			active = append(active, c)
			continue
		}
		earliest := slices.MinFunc(active, func(a, b campaign.Clip) int { return cmp.Compare(a.End(), b.End()) })
		offset := earliest.End() - c.StartTime
		msg := fmt.Sprintf("%d clips overlap at %gs", len(active)+1, c.StartTime)
		return []campaign.LoopSuggestion{{
			Agent:    campaign.AgentTracker,
			Type:     campaign.SuggestOverload,
			Message:  msg,
			Priority: campaign.PriorityHigh,
			Action: campaign.RecommendedAction{
				Type:   campaign.ActionAdjustTiming,
				Timing: &campaign.TimingAdjustment{ClipIDs: []string{c.ID}, Offset: offset},
			},
		}}, msg
	}
	return nil, "no overload"
}

// insight warns when negative cards outnumber positive ones recently.
func insight(v View, th Thresholds) ([]campaign.LoopSuggestion, string) {
	if hasPending(v, campaign.AgentInsight, campaign.SuggestEmotionDrop) {
		return nil, "emotion suggestion already pending"
	}
	cutoff := v.Now.Add(-th.EmotionWindow)
	var neg, pos int
	for _, c := range v.Cards {
		if c.Timestamp.Before(cutoff) {
			continue
		}
		switch {
		case c.Type.Negative():
			neg++
		case c.Type.Positive():
			pos++
		}
	}
	if neg <= pos {
		return nil, fmt.Sprintf("mood steady (%d negative, %d positive)", neg, pos)
	}
	priority := campaign.PriorityMedium
	if neg >= 2*pos {
		priority = campaign.PriorityHigh
	}
	msg := fmt.Sprintf("negative cards outnumber positive %d to %d", neg, pos)
	return []campaign.LoopSuggestion{{
		Agent:    campaign.AgentInsight,
		Type:     campaign.SuggestEmotionDrop,
		Message:  msg,
		Priority: priority,
		Action: campaign.RecommendedAction{
			Type:  campaign.ActionCreateCards,
			Cards: []campaign.CardSpec{{Type: campaign.CardLoopWarning, Content: "Rough stretch. " + msg + "."}},
		},
	}}, msg
}
