package campaign

import "time"

// ThemeID identifies one of the themed front-ends.
type ThemeID string

const (
	ThemeASCII    ThemeID = "ascii"
	ThemeXP       ThemeID = "xp"
	ThemeAqua     ThemeID = "aqua"
	ThemeDAW      ThemeID = "daw"
	ThemeAnalogue ThemeID = "analogue"
)

// Themes lists every known theme in display order.
var Themes = []ThemeID{ThemeASCII, ThemeXP, ThemeAqua, ThemeDAW, ThemeAnalogue}

// Valid reports whether t is a known theme.
func (t ThemeID) Valid() bool {
	for _, known := range Themes {
		if t == known {
			return true
		}
	}
	return false
}

// AgentName identifies a simulated background agent.
type AgentName string

const (
	AgentScout   AgentName = "scout"
	AgentCoach   AgentName = "coach"
	AgentTracker AgentName = "tracker"
	AgentInsight AgentName = "insight"
)

// Agents lists every known agent.
var Agents = []AgentName{AgentScout, AgentCoach, AgentTracker, AgentInsight}

// Valid reports whether a is a known agent.
func (a AgentName) Valid() bool {
	for _, known := range Agents {
		if a == known {
			return true
		}
	}
	return false
}

// LoopType is the category of work a loop performs.
type LoopType string

const (
	LoopImprovement LoopType = "improvement"
	LoopExploration LoopType = "exploration"
	LoopHealthcheck LoopType = "healthcheck"
	LoopEmotion     LoopType = "emotion"
	LoopPrediction  LoopType = "prediction"
)

// LoopInterval is how often a loop wants to run.
type LoopInterval string

const (
	Every5Minutes  LoopInterval = "5m"
	Every15Minutes LoopInterval = "15m"
	Hourly         LoopInterval = "1h"
	Daily          LoopInterval = "daily"
)

// Duration returns the wall-clock period of the interval, or 0 if unknown.
func (i LoopInterval) Duration() time.Duration {
	switch i {
	case Every5Minutes:
		return 5 * time.Minute
	case Every15Minutes:
		return 15 * time.Minute
	case Hourly:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	}
	return 0
}

// LoopStatus is the lifecycle state of a loop.
type LoopStatus string

const (
	LoopIdle     LoopStatus = "idle"
	LoopRunning  LoopStatus = "running"
	LoopError    LoopStatus = "error"
	LoopDisabled LoopStatus = "disabled"
)

// CardType is the emotional or narrative tag of a card.
type CardType string

const (
	CardHope            CardType = "hope"
	CardDoubt           CardType = "doubt"
	CardPride           CardType = "pride"
	CardFear            CardType = "fear"
	CardClarity         CardType = "clarity"
	CardExcitement      CardType = "excitement"
	CardFrustration     CardType = "frustration"
	CardBreakthrough    CardType = "breakthrough"
	CardUncertainty     CardType = "uncertainty"
	CardLoopInsight     CardType = "loop_insight"
	CardLoopWarning     CardType = "loop_warning"
	CardLoopImprovement CardType = "loop_improvement"
	CardLoopPrediction  CardType = "loop_prediction"
	CardFusion          CardType = "fusion"
)

var cardColours = map[CardType]string{
	CardHope:            "#51CF66",
	CardDoubt:           "#94A3B8",
	CardPride:           "#8B5CF6",
	CardFear:            "#EF4444",
	CardClarity:         "#3AA9BE",
	CardExcitement:      "#F59E0B",
	CardFrustration:     "#FF5252",
	CardBreakthrough:    "#10B981",
	CardUncertainty:     "#6B7280",
	CardLoopInsight:     "#3AA9BE",
	CardLoopWarning:     "#F59E0B",
	CardLoopImprovement: "#51CF66",
	CardLoopPrediction:  "#8B5CF6",
	CardFusion:          "#EC4899",
}

// Valid reports whether c is one of the fixed card types.
func (c CardType) Valid() bool {
	_, ok := cardColours[c]
	return ok
}

// DefaultColour returns the palette colour for the card type.
func (c CardType) DefaultColour() string {
	return cardColours[c]
}

// Negative reports whether the card type expresses a negative emotion.
func (c CardType) Negative() bool {
	switch c {
	case CardDoubt, CardFear, CardFrustration, CardUncertainty:
		return true
	}
	return false
}

// Positive reports whether the card type expresses a positive emotion.
func (c CardType) Positive() bool {
	switch c {
	case CardHope, CardPride, CardClarity, CardExcitement, CardBreakthrough:
		return true
	}
	return false
}

// CardSort is the ordering applied to the visible card list.
type CardSort string

const (
	SortByTimestamp CardSort = "timestamp"
	SortByType      CardSort = "type"
	SortByRecent    CardSort = "recent"
)

// Priority ranks a loop suggestion.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// SuggestionType is the finding that produced a suggestion.
type SuggestionType string

const (
	SuggestMissingFollowups SuggestionType = "missing_followups"
	SuggestTimelineGap      SuggestionType = "timeline_gap"
	SuggestEmotionDrop      SuggestionType = "emotion_drop"
	SuggestOverload         SuggestionType = "overload"
)

// SuggestionStatus tracks the user's response to a suggestion.
type SuggestionStatus string

const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionAccepted SuggestionStatus = "accepted"
	SuggestionDeclined SuggestionStatus = "declined"
	SuggestionModified SuggestionStatus = "modified"
)

// ActionType tags the variant carried by a RecommendedAction.
type ActionType string

const (
	ActionCreateClips    ActionType = "create_clips"
	ActionCreateCards    ActionType = "create_cards"
	ActionModifyTimeline ActionType = "modify_timeline"
	ActionAdjustTiming   ActionType = "adjust_timing"
)

// Track is a named lane grouping related clips.
type Track struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Colour string `json:"colour"`
	Height int    `json:"height"`
	Muted  bool   `json:"muted"`
	Solo   bool   `json:"solo"`
	Order  int    `json:"order"`
}

// Clip is a time-bounded unit of planned activity placed on a track.
// StartTime and Duration are in seconds.
type Clip struct {
	ID          string         `json:"id"`
	TrackID     string         `json:"trackId"`
	Name        string         `json:"name"`
	StartTime   float64        `json:"startTime"`
	Duration    float64        `json:"duration"`
	Colour      string         `json:"colour"`
	AgentSource string         `json:"agentSource,omitempty"`
	CardLinks   []string       `json:"cardLinks"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// End returns the time at which the clip finishes.
func (c Clip) End() float64 { return c.StartTime + c.Duration }

// Card is a short annotation tagged with an emotional or narrative type.
// LinkedClipID is empty when the card is not tied to a clip.
type Card struct {
	ID           string         `json:"id"`
	Type         CardType       `json:"type"`
	Content      string         `json:"content"`
	Timestamp    time.Time      `json:"timestamp"`
	LinkedClipID string         `json:"linkedClipId,omitempty"`
	Colour       string         `json:"colour"`
	CreatedBy    string         `json:"createdBy"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Loop describes a recurring background task owned by an agent.
type Loop struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Agent     AgentName      `json:"agent"`
	LoopType  LoopType       `json:"loopType"`
	Interval  LoopInterval   `json:"interval"`
	Payload   map[string]any `json:"payload,omitempty"`
	LastRun   *time.Time     `json:"lastRun"`
	NextRun   time.Time      `json:"nextRun"`
	Status    LoopStatus     `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// LoopResult is the structured outcome of one loop execution.
type LoopResult struct {
	Success              bool   `json:"success"`
	Message              string `json:"message"`
	ClipsCreated         int    `json:"clipsCreated,omitempty"`
	CardsCreated         int    `json:"cardsCreated,omitempty"`
	SuggestionsGenerated int    `json:"suggestionsGenerated,omitempty"`
	ExecutionTimeMs      int64  `json:"executionTimeMs,omitempty"`
	Error                string `json:"error,omitempty"`
}

// LoopEvent records one execution of a loop.
type LoopEvent struct {
	ID        string     `json:"id"`
	LoopID    string     `json:"loopId"`
	Agent     AgentName  `json:"agent"`
	Result    LoopResult `json:"result"`
	CreatedAt time.Time  `json:"createdAt"`
}

// RecommendedAction is the change a suggestion proposes. Type selects which
// of the payload fields is meaningful.
type RecommendedAction struct {
	Type   ActionType        `json:"type"`
	Clips  []ClipSpec        `json:"clips,omitempty"`
	Cards  []CardSpec        `json:"cards,omitempty"`
	Tracks []TrackSpec       `json:"tracks,omitempty"`
	Timing *TimingAdjustment `json:"timing,omitempty"`
}

// TimingAdjustment shifts a set of clips by Offset seconds.
type TimingAdjustment struct {
	ClipIDs []string `json:"clipIds"`
	Offset  float64  `json:"offset"`
}

// LoopSuggestion is a proposed change generated by a loop, pending user acceptance.
type LoopSuggestion struct {
	ID        string            `json:"id"`
	Agent     AgentName         `json:"agent"`
	Type      SuggestionType    `json:"suggestionType"`
	Message   string            `json:"message"`
	Priority  Priority          `json:"priority"`
	Action    RecommendedAction `json:"recommendedAction"`
	CreatedAt time.Time         `json:"createdAt"`
	Status    SuggestionStatus  `json:"status"`
}

// AgentLoopStats summarises the loops of one agent.
type AgentLoopStats struct {
	LoopCount   int        `json:"loopCount"`
	LastRun     *time.Time `json:"lastRun"`
	SuccessRate float64    `json:"successRate"`
}

// LoopMetrics is an externally computed summary of loop health.
type LoopMetrics struct {
	TotalLoops           int                          `json:"totalLoops"`
	ActiveLoops          int                          `json:"activeLoops"`
	LoopsExecutedLast24h int                          `json:"loopsExecutedLast24h"`
	LoopHealthScore      float64                      `json:"loopHealthScore"`
	NextLoopRun          *time.Time                   `json:"nextLoopRun"`
	AgentBreakdown       map[AgentName]AgentLoopStats `json:"agentBreakdown"`
}

// CampaignMeta identifies the loaded campaign.
type CampaignMeta struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Goal         string    `json:"goal"`
	CurrentTheme ThemeID   `json:"currentTheme"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
