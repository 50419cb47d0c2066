package campaign

import (
	"maps"
	"slices"
	"time"
)

// MaxLoopEvents bounds the loop event history.
const MaxLoopEvents = 100

// eventRing keeps the newest events, newest first. Pushing onto a full ring
// evicts the oldest event.
type eventRing struct {
	buf  []LoopEvent
	head int
	n    int
}

func newEventRing(capacity int) eventRing {
	return eventRing{buf: make([]LoopEvent, capacity)}
}

func (r *eventRing) push(ev LoopEvent) {
	r.head = (r.head - 1 + len(r.buf)) % len(r.buf)
	r.buf[r.head] = ev
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *eventRing) len() int { return r.n }

func (r *eventRing) at(i int) LoopEvent {
	return r.buf[(r.head+i)%len(r.buf)]
}

// list returns the events newest first.
func (r *eventRing) list() []LoopEvent {
	out := make([]LoopEvent, r.n)
	for i := range out {
		out[i] = r.at(i)
	}
	return out
}

// reset replaces the contents with events given newest first, keeping at
// most the ring capacity.
func (r *eventRing) reset(events []LoopEvent) {
	clear(r.buf)
	r.head, r.n = 0, 0
	if len(events) > len(r.buf) {
		events = events[:len(r.buf)]
	}
	for i := len(events) - 1; i >= 0; i-- {
		r.push(events[i])
	}
}

// LoopState is a copy of the loop store.
type LoopState struct {
	Loops           []Loop           `json:"loops"`
	LoopEvents      []LoopEvent      `json:"loopEvents"`
	LoopSuggestions []LoopSuggestion `json:"loopSuggestions"`
	LoopMetrics     *LoopMetrics     `json:"loopMetrics"`
	NextLoopRun     *time.Time       `json:"nextLoopRun"`
	LoopHealthScore float64          `json:"loopHealthScore"`
}

// LoopUpdate holds the loop fields to change. Nil fields are left as-is.
type LoopUpdate struct {
	Status   *LoopStatus    `json:"status,omitempty"`
	Interval *LoopInterval  `json:"interval,omitempty"`
	LoopType *LoopType      `json:"loopType,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	LastRun  *time.Time     `json:"lastRun,omitempty"`
	NextRun  *time.Time     `json:"nextRun,omitempty"`
}

type loopStore struct {
	loops       []Loop
	events      eventRing
	suggestions []LoopSuggestion
	metrics     *LoopMetrics
	nextRun     *time.Time
	health      float64
}

func newLoopStore() loopStore {
	return loopStore{events: newEventRing(MaxLoopEvents), health: 100}
}

func (s *loopStore) index(id string) int {
	return slices.IndexFunc(s.loops, func(l Loop) bool { return l.ID == id })
}

func (s *loopStore) suggestionIndex(id string) int {
	return slices.IndexFunc(s.suggestions, func(sg LoopSuggestion) bool { return sg.ID == id })
}

func (s *loopStore) state() LoopState {
	st := LoopState{
		Loops:           make([]Loop, len(s.loops)),
		LoopEvents:      s.events.list(),
		LoopSuggestions: make([]LoopSuggestion, len(s.suggestions)),
		LoopMetrics:     copyMetrics(s.metrics),
		NextLoopRun:     copyTime(s.nextRun),
		LoopHealthScore: s.health,
	}
	for i, l := range s.loops {
		st.Loops[i] = copyLoop(l)
	}
	for i, sg := range s.suggestions {
		st.LoopSuggestions[i] = copySuggestion(sg)
	}
	return st
}

func copyLoop(l Loop) Loop {
	l.Payload = cloneMap(l.Payload)
	l.LastRun = copyTime(l.LastRun)
	return l
}

func copySuggestion(s LoopSuggestion) LoopSuggestion {
	a := &s.Action
	a.Clips = slices.Clone(a.Clips)
	a.Cards = slices.Clone(a.Cards)
	a.Tracks = slices.Clone(a.Tracks)
	if a.Timing != nil {
		t := *a.Timing
		t.ClipIDs = slices.Clone(t.ClipIDs)
		a.Timing = &t
	}
	return s
}

func copyMetrics(m *LoopMetrics) *LoopMetrics {
	if m == nil {
		return nil
	}
	out := *m
	out.NextLoopRun = copyTime(m.NextLoopRun)
	out.AgentBreakdown = maps.Clone(m.AgentBreakdown)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SetLoops replaces every loop.
func (e *Engine) SetLoops(loops []Loop) {
	e.mutate(true, []Store{StoreLoops, StoreMemory}, func() bool {
		e.loops.loops = make([]Loop, 0, len(loops))
		for _, l := range loops {
			e.loops.loops = append(e.loops.loops, e.normalizeLoop(l))
		}
		e.memory.dropLinks(func(ml MemoryLink) bool {
			return ml.EntityType == EntityLoop && e.loops.index(ml.EntityID) < 0
		})
		return true
	})
}

// AddLoop stores a loop. A loop with an existing id replaces it; an empty id
// is assigned. It returns the loop id.
func (e *Engine) AddLoop(l Loop) string {
	var id string
	e.mutate(true, []Store{StoreLoops}, func() bool {
		l = e.normalizeLoop(l)
		id = l.ID
		if i := e.loops.index(l.ID); i >= 0 {
			e.loops.loops[i] = l
		} else {
			e.loops.loops = append(e.loops.loops, l)
		}
		return true
	})
	return id
}

func (e *Engine) normalizeLoop(l Loop) Loop {
	now := e.now()
	if l.ID == "" {
		l.ID = e.newID("loop")
	}
	if l.Status == "" {
		l.Status = LoopIdle
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	if l.UpdatedAt.IsZero() {
		l.UpdatedAt = now
	}
	if l.NextRun.IsZero() {
		l.NextRun = now.Add(l.Interval.Duration())
	}
	return copyLoop(l)
}

// UpdateLoop merges u into the loop and stamps UpdatedAt.
func (e *Engine) UpdateLoop(id string, u LoopUpdate) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.index(id)
		if i < 0 {
			return false
		}
		l := &e.loops.loops[i]
		if u.Status != nil {
			l.Status = *u.Status
		}
		if u.Interval != nil {
			l.Interval = *u.Interval
		}
		if u.LoopType != nil {
			l.LoopType = *u.LoopType
		}
		if u.Payload != nil {
			l.Payload = cloneMap(u.Payload)
		}
		if u.LastRun != nil {
			l.LastRun = copyTime(u.LastRun)
		}
		if u.NextRun != nil {
			l.NextRun = *u.NextRun
		}
		l.UpdatedAt = e.now()
		return true
	})
}

// BeginLoopRun marks a loop running. It reports false, changing nothing, when
// the loop is unknown or disabled.
func (e *Engine) BeginLoopRun(id string) bool {
	var ok bool
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.index(id)
		if i < 0 || e.loops.loops[i].Status == LoopDisabled {
			return false
		}
		l := &e.loops.loops[i]
		l.Status = LoopRunning
		l.UpdatedAt = e.now()
		ok = true
		return true
	})
	return ok
}

// FinishLoopRun settles a run: status becomes idle or error and the run
// times are stamped. A loop disabled or removed while it ran is left as it
// is, and false is returned.
func (e *Engine) FinishLoopRun(id string, failed bool, lastRun, nextRun time.Time) bool {
	var ok bool
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.index(id)
		if i < 0 || e.loops.loops[i].Status == LoopDisabled {
			return false
		}
		l := &e.loops.loops[i]
		l.Status = LoopIdle
		if failed {
			l.Status = LoopError
		}
		l.LastRun = copyTime(&lastRun)
		l.NextRun = nextRun
		l.UpdatedAt = e.now()
		ok = true
		return true
	})
	return ok
}

// RemoveLoop deletes a loop. Its past events stay in the history; memory
// links to it go.
func (e *Engine) RemoveLoop(id string) {
	e.mutate(true, []Store{StoreLoops, StoreMemory}, func() bool {
		i := e.loops.index(id)
		if i < 0 {
			return false
		}
		e.loops.loops = slices.Delete(e.loops.loops, i, i+1)
		e.memory.dropEntity(EntityLoop, id)
		return true
	})
}

// AddLoopEvent records an event at the front of the bounded history,
// evicting the oldest when full. Missing id and timestamp are assigned. It
// returns the stored event.
func (e *Engine) AddLoopEvent(ev LoopEvent) LoopEvent {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		if ev.ID == "" {
			ev.ID = e.newID("event")
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = e.now()
		}
		e.loops.events.push(ev)
		return true
	})
	return ev
}

// ClearLoopEvents empties the event history.
func (e *Engine) ClearLoopEvents() {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		if e.loops.events.len() == 0 {
			return false
		}
		e.loops.events.reset(nil)
		return true
	})
}

// AddLoopSuggestion stores a suggestion. Missing id, timestamp and status
// (pending) are assigned. It returns the suggestion id.
func (e *Engine) AddLoopSuggestion(s LoopSuggestion) string {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		if s.ID == "" {
			s.ID = e.newID("suggestion")
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = e.now()
		}
		if s.Status == "" {
			s.Status = SuggestionPending
		}
		if s.Priority == "" {
			s.Priority = PriorityMedium
		}
		e.loops.suggestions = append(e.loops.suggestions, copySuggestion(s))
		return true
	})
	return s.ID
}

// UpdateLoopSuggestion sets the status of a suggestion.
func (e *Engine) UpdateLoopSuggestion(id string, status SuggestionStatus) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.suggestionIndex(id)
		if i < 0 || e.loops.suggestions[i].Status == status {
			return false
		}
		e.loops.suggestions[i].Status = status
		return true
	})
}

// RemoveLoopSuggestion deletes a suggestion.
func (e *Engine) RemoveLoopSuggestion(id string) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		i := e.loops.suggestionIndex(id)
		if i < 0 {
			return false
		}
		e.loops.suggestions = slices.Delete(e.loops.suggestions, i, i+1)
		return true
	})
}

// SetLoopMetrics replaces the metrics, next run and health score together.
func (e *Engine) SetLoopMetrics(m LoopMetrics) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		m.LoopHealthScore = clamp(m.LoopHealthScore, 0, 100)
		e.loops.metrics = copyMetrics(&m)
		e.loops.nextRun = copyTime(m.NextLoopRun)
		e.loops.health = m.LoopHealthScore
		return true
	})
}

// UpdateLoopHealthScore sets the health score clamped to [0,100].
func (e *Engine) UpdateLoopHealthScore(score float64) {
	e.mutate(true, []Store{StoreLoops}, func() bool {
		e.loops.health = clamp(score, 0, 100)
		return true
	})
}

// Loops returns a copy of the loop state.
func (e *Engine) Loops() LoopState {
	var s LoopState
	e.read(func() { s = e.loops.state() })
	return s
}

// GetLoop returns the loop with the given id.
func (e *Engine) GetLoop(id string) (Loop, bool) {
	var (
		l  Loop
		ok bool
	)
	e.read(func() {
		if i := e.loops.index(id); i >= 0 {
			l, ok = copyLoop(e.loops.loops[i]), true
		}
	})
	return l, ok
}

// LoopsByAgent returns the loops owned by agent.
func (e *Engine) LoopsByAgent(agent AgentName) []Loop {
	return e.filterLoops(func(l Loop) bool { return l.Agent == agent })
}

// ActiveLoops returns every loop that is not disabled.
func (e *Engine) ActiveLoops() []Loop {
	return e.filterLoops(func(l Loop) bool { return l.Status != LoopDisabled })
}

func (e *Engine) filterLoops(keep func(Loop) bool) []Loop {
	var out []Loop
	e.read(func() {
		for _, l := range e.loops.loops {
			if keep(l) {
				out = append(out, copyLoop(l))
			}
		}
	})
	return out
}

// LoopEvents returns the event history, newest first.
func (e *Engine) LoopEvents() []LoopEvent {
	var out []LoopEvent
	e.read(func() { out = e.loops.events.list() })
	return out
}

// LoopEventsFor returns the events of one loop, newest first.
func (e *Engine) LoopEventsFor(loopID string) []LoopEvent {
	var out []LoopEvent
	e.read(func() {
		for i := 0; i < e.loops.events.len(); i++ {
			if ev := e.loops.events.at(i); ev.LoopID == loopID {
				out = append(out, ev)
			}
		}
	})
	return out
}

// PendingSuggestions returns suggestions still awaiting a decision.
func (e *Engine) PendingSuggestions() []LoopSuggestion {
	var out []LoopSuggestion
	e.read(func() {
		for _, s := range e.loops.suggestions {
			if s.Status == SuggestionPending {
				out = append(out, copySuggestion(s))
			}
		}
	})
	return out
}

// Suggestion returns the suggestion with the given id.
func (e *Engine) Suggestion(id string) (LoopSuggestion, bool) {
	var (
		s  LoopSuggestion
		ok bool
	)
	e.read(func() {
		if i := e.loops.suggestionIndex(id); i >= 0 {
			s, ok = copySuggestion(e.loops.suggestions[i]), true
		}
	})
	return s, ok
}
