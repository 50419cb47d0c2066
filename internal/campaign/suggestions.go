package campaign

import "time"

// AcceptSuggestion applies the suggestion's recommended action through the
// ordinary mutation paths and marks it accepted, all in one step. Only
// pending or modified suggestions are applied; anything else is a no-op.
// It returns the ids of clips, cards or tracks the action created.
func (e *Engine) AcceptSuggestion(id string) []string {
	var created []string
	e.mutate(true, []Store{StoreLoops, StoreTimeline, StoreCards}, func() bool {
		i := e.loops.suggestionIndex(id)
		if i < 0 {
			return false
		}
		s := &e.loops.suggestions[i]
		if s.Status != SuggestionPending && s.Status != SuggestionModified {
			return false
		}
		created = e.applyActionLocked(s.Agent, s.Action)
		s.Status = SuggestionAccepted
		return true
	})
	return created
}

// DeclineSuggestion marks a pending or modified suggestion declined.
func (e *Engine) DeclineSuggestion(id string) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.suggestionIndex(id)
		if i < 0 {
			return false
		}
		s := &e.loops.suggestions[i]
		if s.Status != SuggestionPending && s.Status != SuggestionModified {
			return false
		}
		s.Status = SuggestionDeclined
		return true
	})
}

// ModifySuggestion replaces the action of a pending suggestion and marks it
// modified so the user's edit is applied on acceptance.
func (e *Engine) ModifySuggestion(id string, action RecommendedAction) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.suggestionIndex(id)
		if i < 0 {
			return false
		}
		s := &e.loops.suggestions[i]
		if s.Status != SuggestionPending && s.Status != SuggestionModified {
			return false
		}
		s.Action = copySuggestion(LoopSuggestion{Action: action}).Action
		s.Status = SuggestionModified
		return true
	})
}

func (e *Engine) applyActionLocked(agent AgentName, a RecommendedAction) []string {
	var created []string
	switch a.Type {
	case ActionCreateClips:
		for _, spec := range a.Clips {
			if spec.AgentSource == "" {
				spec.AgentSource = string(agent)
			}
			if id := e.addClipLocked(spec); id != "" {
				created = append(created, id)
			}
		}
	case ActionCreateCards:
		for _, spec := range a.Cards {
			if spec.CreatedBy == "" {
				spec.CreatedBy = string(agent)
			}
			if id := e.addCardLocked(spec); id != "" {
				created = append(created, id)
			}
		}
	case ActionModifyTimeline:
		for _, spec := range a.Tracks {
			created = append(created, e.addTrackLocked(spec.Name, spec.Colour))
		}
		for _, spec := range a.Clips {
			if spec.AgentSource == "" {
				spec.AgentSource = string(agent)
			}
			if id := e.addClipLocked(spec); id != "" {
				created = append(created, id)
			}
		}
	case ActionAdjustTiming:
		if a.Timing == nil {
			break
		}
		for _, clipID := range a.Timing.ClipIDs {
			if c := e.timeline.clip(clipID); c != nil {
				e.moveClipLocked(clipID, c.TrackID, c.StartTime+a.Timing.Offset)
			}
		}
	}
	return created
}

// SuggestionCounts tallies suggestions by status.
type SuggestionCounts struct {
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Declined int `json:"declined"`
	Modified int `json:"modified"`
}

// AgentInsightStats summarises one agent's loops.
type AgentInsightStats struct {
	Loops       int        `json:"loops"`
	LastRun     *time.Time `json:"lastRun"`
	SuccessRate float64    `json:"successRate"`
}

// LoopInsights is a derived summary of loop activity.
type LoopInsights struct {
	TotalLoops      int                        `json:"totalLoops"`
	ActiveLoops     int                        `json:"activeLoops"`
	LoopHealthScore float64                    `json:"loopHealthScore"`
	LoopBreakdown   map[AgentName]AgentInsightStats `json:"loopBreakdown"`
	RecentEvents    []LoopEvent                `json:"recentEvents"`
	Suggestions     SuggestionCounts           `json:"suggestions"`
}

const recentEventLimit = 10

// LoopInsights derives a summary from the current loop state. Success rates
// are computed over the events still held in the history.
func (e *Engine) LoopInsights() LoopInsights {
	var in LoopInsights
	e.read(func() {
		s := &e.loops
		in.TotalLoops = len(s.loops)
		in.LoopHealthScore = s.health
		in.LoopBreakdown = make(map[AgentName]AgentInsightStats)
		for _, l := range s.loops {
			if l.Status != LoopDisabled {
				in.ActiveLoops++
			}
			ai := in.LoopBreakdown[l.Agent]
			ai.Loops++
			if l.LastRun != nil && (ai.LastRun == nil || l.LastRun.After(*ai.LastRun)) {
				ai.LastRun = copyTime(l.LastRun)
			}
			in.LoopBreakdown[l.Agent] = ai
		}
		runs := make(map[AgentName][2]int)
		for i := 0; i < s.events.len(); i++ {
			ev := s.events.at(i)
			r := runs[ev.Agent]
			r[0]++
			if ev.Result.Success {
				r[1]++
			}
			runs[ev.Agent] = r
			if i < recentEventLimit {
				in.RecentEvents = append(in.RecentEvents, ev)
			}
		}
		for agent, r := range runs {
			ai := in.LoopBreakdown[agent]
			ai.SuccessRate = float64(r[1]) / float64(r[0])
			in.LoopBreakdown[agent] = ai
		}
		for _, sg := range s.suggestions {
			switch sg.Status {
			case SuggestionPending:
				in.Suggestions.Pending++
			case SuggestionAccepted:
				in.Suggestions.Accepted++
			case SuggestionDeclined:
				in.Suggestions.Declined++
			case SuggestionModified:
				in.Suggestions.Modified++
			}
		}
	})
	return in
}
