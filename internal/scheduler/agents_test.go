package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zulandar/campaignyard/internal/campaign"
)

var agentNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func gapTimeline() campaign.TimelineState {
	return campaign.TimelineState{
		GridSize: 1,
		Tracks:   []campaign.Track{{ID: "t1", Name: "Promo"}, {ID: "t2", Name: "Radio"}},
		Clips: []campaign.Clip{
			{ID: "c2", TrackID: "t1", Name: "Launch", StartTime: 8, Duration: 2},
			{ID: "c1", TrackID: "t1", Name: "Teaser", StartTime: 0, Duration: 2},
			{ID: "c3", TrackID: "t2", Name: "Spin", StartTime: 0, Duration: 2},
			{ID: "c4", TrackID: "t2", Name: "Spin 2", StartTime: 3, Duration: 2},
		},
	}
}

func TestScout_FindsGaps(t *testing.T) {
	got, msg := scout(View{Timeline: gapTimeline(), Now: agentNow}, DefaultThresholds())
	if len(got) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1 (%s)", len(got), msg)
	}
	s := got[0]
	if s.Agent != campaign.AgentScout || s.Type != campaign.SuggestTimelineGap {
		t.Errorf("suggestion = %s/%s", s.Agent, s.Type)
	}
	if s.Action.Type != campaign.ActionCreateClips {
		t.Errorf("Action.Type = %q, want create_clips", s.Action.Type)
	}
	want := []campaign.ClipSpec{{TrackID: "t1", Name: "Fill: Promo", StartTime: 2, Duration: 6}}
	if diff := cmp.Diff(want, s.Action.Clips); diff != "" {
		t.Errorf("clips mismatch (-want +got):\n%s", diff)
	}
	if s.Priority != campaign.PriorityLow {
		t.Errorf("Priority = %q, want low", s.Priority)
	}
}

func TestScout_GapScalesWithGrid(t *testing.T) {
	tl := gapTimeline()
	tl.GridSize = 4
	got, _ := scout(View{Timeline: tl}, DefaultThresholds())
	if len(got) != 0 {
		t.Errorf("6s gap should be below 12s threshold, got %+v", got)
	}
}

func TestScout_SkipsWhenPending(t *testing.T) {
	v := View{
		Timeline: gapTimeline(),
		Pending:  []campaign.LoopSuggestion{{Agent: campaign.AgentScout, Type: campaign.SuggestTimelineGap}},
	}
	got, msg := scout(v, DefaultThresholds())
	if len(got) != 0 {
		t.Errorf("expected no suggestion while one is pending")
	}
	if !strings.Contains(msg, "pending") {
		t.Errorf("message = %q", msg)
	}
}

func TestCoach_ProposesFollowups(t *testing.T) {
	tl := gapTimeline()
	tl.Clips[0].CardLinks = []string{"card-1"}
	th := DefaultThresholds()
	th.MaxFollowups = 2

	got, _ := coach(View{Timeline: tl}, th)
	if len(got) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1", len(got))
	}
	cards := got[0].Action.Cards
	if len(cards) != 2 {
		t.Fatalf("len(cards) = %d, want 2 (capped)", len(cards))
	}
	if cards[0].LinkedClipID != "c1" || cards[1].LinkedClipID != "c3" {
		t.Errorf("linked clips = %q, %q; want c1, c3", cards[0].LinkedClipID, cards[1].LinkedClipID)
	}
	for _, c := range cards {
		if c.Type != campaign.CardLoopImprovement {
			t.Errorf("card type = %q, want loop_improvement", c.Type)
		}
	}
}

func TestCoach_AllLinked(t *testing.T) {
	tl := gapTimeline()
	for i := range tl.Clips {
		tl.Clips[i].CardLinks = []string{"x"}
	}
	if got, _ := coach(View{Timeline: tl}, DefaultThresholds()); len(got) != 0 {
		t.Errorf("expected no suggestion, got %d", len(got))
	}
}

func TestTracker_Overload(t *testing.T) {
	tl := campaign.TimelineState{Clips: []campaign.Clip{
		{ID: "a", StartTime: 0, Duration: 10},
		{ID: "b", StartTime: 1, Duration: 9},
		{ID: "c", StartTime: 2, Duration: 8},
		{ID: "d", StartTime: 3, Duration: 2},
	}}
	got, msg := tracker(View{Timeline: tl}, DefaultThresholds())
	if len(got) != 1 {
		t.Fatalf("len(suggestions) = %d, want 1", len(got))
	}
	s := got[0]
	if s.Priority != campaign.PriorityHigh {
		t.Errorf("Priority = %q, want high", s.Priority)
	}
	want := &campaign.TimingAdjustment{ClipIDs: []string{"d"}, Offset: 7}
	if diff := cmp.Diff(want, s.Action.Timing); diff != "" {
		t.Errorf("timing mismatch (-want +got):\n%s", diff)
	}
	if msg != "4 clips overlap at 3s" {
		t.Errorf("message = %q", msg)
	}
}

func TestAgents_NonPositiveLimits(t *testing.T) {
	tl := campaign.TimelineState{Clips: []campaign.Clip{
		{ID: "a", StartTime: 0, Duration: 10},
		{ID: "b", StartTime: 1, Duration: 9},
	}}
	for _, n := range []int{0, -1} {
		th := DefaultThresholds()
		th.MaxOverlap = n
		th.MaxFollowups = n
		if got, msg := tracker(View{Timeline: tl}, th); len(got) != 0 || msg != "overlap limit unset" {
			t.Errorf("tracker(MaxOverlap=%d) = %d suggestions, %q", n, len(got), msg)
		}
		if got, msg := coach(View{Timeline: tl}, th); len(got) != 0 || msg != "follow-up limit unset" {
			t.Errorf("coach(MaxFollowups=%d) = %d suggestions, %q", n, len(got), msg)
		}
	}
}

func TestThresholds_Validate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	tests := []struct {
		name    string
		mutate  func(*Thresholds)
		wantErr string
	}{
		{"gap", func(th *Thresholds) { th.GapUnits = 0 }, "gap units"},
		{"overlap", func(th *Thresholds) { th.MaxOverlap = 0 }, "max overlap"},
		{"followups", func(th *Thresholds) { th.MaxFollowups = -3 }, "max followups"},
		{"window", func(th *Thresholds) { th.EmotionWindow = 0 }, "emotion window"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			err := th.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTracker_EndedClipsDoNotCount(t *testing.T) {
	tl := campaign.TimelineState{Clips: []campaign.Clip{
		{ID: "a", StartTime: 0, Duration: 3},
		{ID: "b", StartTime: 1, Duration: 9},
		{ID: "c", StartTime: 2, Duration: 8},
		{ID: "d", StartTime: 3, Duration: 2},
	}}
	if got, _ := tracker(View{Timeline: tl}, DefaultThresholds()); len(got) != 0 {
		t.Errorf("expected no overload, got %+v", got)
	}
}

func TestInsight_EmotionBalance(t *testing.T) {
	recent := agentNow.Add(-time.Hour)
	old := agentNow.Add(-8 * 24 * time.Hour)
	card := func(ct campaign.CardType, at time.Time) campaign.Card {
		return campaign.Card{Type: ct, Timestamp: at}
	}

	tests := []struct {
		name     string
		cards    []campaign.Card
		wantN    int
		priority campaign.Priority
	}{
		{
			name:  "steady",
			cards: []campaign.Card{card(campaign.CardDoubt, recent), card(campaign.CardHope, recent)},
			wantN: 0,
		},
		{
			name: "slight drop",
			cards: []campaign.Card{
				card(campaign.CardDoubt, recent), card(campaign.CardFear, recent), card(campaign.CardFrustration, recent),
				card(campaign.CardHope, recent), card(campaign.CardPride, recent),
			},
			wantN:    1,
			priority: campaign.PriorityMedium,
		},
		{
			name:     "sharp drop",
			cards:    []campaign.Card{card(campaign.CardDoubt, recent), card(campaign.CardFear, recent)},
			wantN:    1,
			priority: campaign.PriorityHigh,
		},
		{
			name:  "old cards ignored",
			cards: []campaign.Card{card(campaign.CardDoubt, old), card(campaign.CardFear, old), card(campaign.CardHope, recent)},
			wantN: 0,
		},
		{
			name:  "neutral types ignored",
			cards: []campaign.Card{card(campaign.CardFusion, recent), card(campaign.CardLoopWarning, recent)},
			wantN: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := insight(View{Cards: tt.cards, Now: agentNow}, DefaultThresholds())
			if len(got) != tt.wantN {
				t.Fatalf("len(suggestions) = %d, want %d", len(got), tt.wantN)
			}
			if tt.wantN == 0 {
				return
			}
			if got[0].Priority != tt.priority {
				t.Errorf("Priority = %q, want %q", got[0].Priority, tt.priority)
			}
			cards := got[0].Action.Cards
			if len(cards) != 1 || cards[0].Type != campaign.CardLoopWarning {
				t.Errorf("cards = %+v, want one loop_warning", cards)
			}
		})
	}
}

func TestDefaultAgents_CoverEveryAgent(t *testing.T) {
	agents := DefaultAgents()
	for _, name := range campaign.Agents {
		if agents[name] == nil {
			t.Errorf("no agent for %q", name)
		}
	}
}
