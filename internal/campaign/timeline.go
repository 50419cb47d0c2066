package campaign

import (
	"cmp"
	"math"
	"slices"
	"time"
)

const (
	// MinClipDuration is the shortest clip allowed when snapping is off.
	MinClipDuration = 0.1
	// MinGridSize is the smallest accepted grid size in seconds.
	MinGridSize = 0.1

	defaultTrackHeight = 60
)

var trackColours = []string{
	"#3AA9BE", // cyan
	"#51CF66", // green
	"#F59E0B", // amber
	"#8B5CF6", // purple
	"#EF4444", // red
	"#EC4899", // pink
	"#14B8A6", // teal
}

// TimelineSettings are the persisted view settings a timeline starts with.
type TimelineSettings struct {
	GridSize   float64 `json:"gridSize" yaml:"grid_size"`
	SnapToGrid bool    `json:"snapToGrid" yaml:"snap_to_grid"`
	Zoom       float64 `json:"zoom" yaml:"zoom"`
	ZoomMin    float64 `json:"zoomMin" yaml:"zoom_min"`
	ZoomMax    float64 `json:"zoomMax" yaml:"zoom_max"`
	Duration   float64 `json:"duration" yaml:"duration"`
}

// DefaultTimelineSettings returns a 1s grid with snapping, 50px/s zoom
// bounded to [10,200] and a five minute timeline.
func DefaultTimelineSettings() TimelineSettings {
	return TimelineSettings{
		GridSize:   1,
		SnapToGrid: true,
		Zoom:       50,
		ZoomMin:    10,
		ZoomMax:    200,
		Duration:   300,
	}
}

func (s TimelineSettings) normalized() TimelineSettings {
	d := DefaultTimelineSettings()
	if s.GridSize <= 0 {
		s.GridSize = d.GridSize
	}
	s.GridSize = math.Max(MinGridSize, s.GridSize)
	if s.ZoomMin <= 0 {
		s.ZoomMin = d.ZoomMin
	}
	if s.ZoomMax < s.ZoomMin {
		s.ZoomMax = math.Max(d.ZoomMax, s.ZoomMin)
	}
	if s.Zoom <= 0 {
		s.Zoom = d.Zoom
	}
	s.Zoom = clamp(s.Zoom, s.ZoomMin, s.ZoomMax)
	if s.Duration <= 0 {
		s.Duration = d.Duration
	}
	return s
}

// TimelineState is a copy of the timeline including view-only fields.
type TimelineState struct {
	Tracks           []Track  `json:"tracks"`
	Clips            []Clip   `json:"clips"`
	PlayheadPosition float64  `json:"playheadPosition"`
	Zoom             float64  `json:"zoom"`
	ScrollOffset     float64  `json:"scrollOffset"`
	SnapToGrid       bool     `json:"snapToGrid"`
	GridSize         float64  `json:"gridSize"`
	IsPlaying        bool     `json:"isPlaying"`
	Duration         float64  `json:"duration"`
	SelectedClipIDs  []string `json:"selectedClipIds"`
	SelectedTrackIDs []string `json:"selectedTrackIds"`
}

// ClipSpec describes a clip to create. The engine assigns the id and timestamps.
type ClipSpec struct {
	TrackID     string         `json:"trackId"`
	Name        string         `json:"name"`
	StartTime   float64        `json:"startTime"`
	Duration    float64        `json:"duration"`
	Colour      string         `json:"colour,omitempty"`
	AgentSource string         `json:"agentSource,omitempty"`
	CardLinks   []string       `json:"cardLinks,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TrackSpec describes a track to create.
type TrackSpec struct {
	Name   string `json:"name"`
	Colour string `json:"colour,omitempty"`
}

// TrackUpdate holds the track fields to change. Nil fields are left as-is.
type TrackUpdate struct {
	Name   *string `json:"name,omitempty"`
	Colour *string `json:"colour,omitempty"`
	Height *int    `json:"height,omitempty"`
	Muted  *bool   `json:"muted,omitempty"`
	Solo   *bool   `json:"solo,omitempty"`
}

// ClipUpdate holds the clip fields to change. Timing goes through MoveClip
// and ResizeClip so the grid policy always applies.
type ClipUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Colour      *string        `json:"colour,omitempty"`
	AgentSource *string        `json:"agentSource,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type timelineStore struct {
	tracks []Track
	clips  []Clip

	playhead     float64
	zoom         float64
	zoomMin      float64
	zoomMax      float64
	scrollOffset float64
	snapToGrid   bool
	gridSize     float64
	isPlaying    bool
	duration     float64

	selectedClipIDs  []string
	selectedTrackIDs []string
}

func newTimelineStore(s TimelineSettings) timelineStore {
	return timelineStore{
		zoom:       s.Zoom,
		zoomMin:    s.ZoomMin,
		zoomMax:    s.ZoomMax,
		snapToGrid: s.SnapToGrid,
		gridSize:   s.GridSize,
		duration:   s.Duration,
	}
}

func (t *timelineStore) trackIndex(id string) int {
	return slices.IndexFunc(t.tracks, func(tr Track) bool { return tr.ID == id })
}

func (t *timelineStore) clipIndex(id string) int {
	return slices.IndexFunc(t.clips, func(c Clip) bool { return c.ID == id })
}

func (t *timelineStore) clip(id string) *Clip {
	if i := t.clipIndex(id); i >= 0 {
		return &t.clips[i]
	}
	return nil
}

// snapStart applies the grid policy to a start time.
func (t *timelineStore) snapStart(start float64) float64 {
	start = math.Max(0, start)
	if t.snapToGrid {
		start = snap(start, t.gridSize)
	}
	return start
}

// snapDuration applies the grid policy to a duration.
func (t *timelineStore) snapDuration(d float64) float64 {
	if t.snapToGrid {
		return math.Max(t.gridSize, snap(d, t.gridSize))
	}
	return math.Max(MinClipDuration, d)
}

func (t *timelineStore) resnapAll() {
	if !t.snapToGrid {
		return
	}
	for i := range t.clips {
		t.clips[i].StartTime = t.snapStart(t.clips[i].StartTime)
		t.clips[i].Duration = t.snapDuration(t.clips[i].Duration)
	}
}

func (t *timelineStore) renumberTracks() {
	for i := range t.tracks {
		t.tracks[i].Order = i
	}
}

func (t *timelineStore) addLink(clipID, cardID string, now time.Time) bool {
	c := t.clip(clipID)
	if c == nil || slices.Contains(c.CardLinks, cardID) {
		return false
	}
	c.CardLinks = append(c.CardLinks, cardID)
	c.UpdatedAt = now
	return true
}

func (t *timelineStore) removeLink(clipID, cardID string, now time.Time) bool {
	c := t.clip(clipID)
	if c == nil || !slices.Contains(c.CardLinks, cardID) {
		return false
	}
	c.CardLinks = slices.DeleteFunc(c.CardLinks, func(id string) bool { return id == cardID })
	c.UpdatedAt = now
	return true
}

func (t *timelineStore) state() TimelineState {
	s := TimelineState{
		Tracks:           slices.Clone(t.tracks),
		Clips:            make([]Clip, len(t.clips)),
		PlayheadPosition: t.playhead,
		Zoom:             t.zoom,
		ScrollOffset:     t.scrollOffset,
		SnapToGrid:       t.snapToGrid,
		GridSize:         t.gridSize,
		IsPlaying:        t.isPlaying,
		Duration:         t.duration,
		SelectedClipIDs:  slices.Clone(t.selectedClipIDs),
		SelectedTrackIDs: slices.Clone(t.selectedTrackIDs),
	}
	if s.Tracks == nil {
		s.Tracks = []Track{}
	}
	for i, c := range t.clips {
		s.Clips[i] = copyClip(c)
	}
	if s.SelectedClipIDs == nil {
		s.SelectedClipIDs = []string{}
	}
	if s.SelectedTrackIDs == nil {
		s.SelectedTrackIDs = []string{}
	}
	return s
}

func copyClip(c Clip) Clip {
	c.CardLinks = slices.Clone(c.CardLinks)
	if c.CardLinks == nil {
		c.CardLinks = []string{}
	}
	c.Metadata = cloneMap(c.Metadata)
	return c
}

// AddTrack appends a track. An empty colour is taken from the rotating
// palette indexed by the current track count. It returns the new track id.
func (e *Engine) AddTrack(name, colour string) string {
	var id string
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		id = e.addTrackLocked(name, colour)
		return true
	})
	return id
}

func (e *Engine) addTrackLocked(name, colour string) string {
	t := &e.timeline
	if colour == "" {
		colour = trackColours[len(t.tracks)%len(trackColours)]
	}
	id := e.newID("track")
	t.tracks = append(t.tracks, Track{
		ID:     id,
		Name:   name,
		Colour: colour,
		Height: defaultTrackHeight,
		Order:  len(t.tracks),
	})
	return id
}

// RemoveTrack deletes the track and every clip on it. Cards linked to those
// clips are unlinked, not deleted.
func (e *Engine) RemoveTrack(id string) {
	e.mutate(true, []Store{StoreTimeline, StoreCards, StoreMemory}, func() bool {
		t := &e.timeline
		i := t.trackIndex(id)
		if i < 0 {
			return false
		}
		var doomed []string
		for _, c := range t.clips {
			if c.TrackID == id {
				doomed = append(doomed, c.ID)
			}
		}
		for _, clipID := range doomed {
			e.removeClipLocked(clipID)
		}
		t.tracks = slices.Delete(t.tracks, i, i+1)
		t.renumberTracks()
		t.selectedTrackIDs = without(t.selectedTrackIDs, id)
		return true
	})
}

// UpdateTrack merges u into the track.
func (e *Engine) UpdateTrack(id string, u TrackUpdate) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		i := e.timeline.trackIndex(id)
		if i < 0 {
			return false
		}
		tr := &e.timeline.tracks[i]
		if u.Name != nil {
			tr.Name = *u.Name
		}
		if u.Colour != nil {
			tr.Colour = *u.Colour
		}
		if u.Height != nil && *u.Height > 0 {
			tr.Height = *u.Height
		}
		if u.Muted != nil {
			tr.Muted = *u.Muted
		}
		if u.Solo != nil {
			tr.Solo = *u.Solo
		}
		return true
	})
}

// ReorderTracks moves the given tracks to the front in the given order.
// Unknown ids are skipped; tracks not named keep their relative order after
// the named ones. Order indices are rewritten to match.
func (e *Engine) ReorderTracks(ids []string) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		reordered := make([]Track, 0, len(t.tracks))
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			if i := t.trackIndex(id); i >= 0 {
				reordered = append(reordered, t.tracks[i])
				seen[id] = true
			}
		}
		if len(reordered) == 0 {
			return false
		}
		for _, tr := range t.tracks {
			if !seen[tr.ID] {
				reordered = append(reordered, tr)
			}
		}
		t.tracks = reordered
		t.renumberTracks()
		return true
	})
}

// AddClip creates a clip from spec on an existing track and returns its id,
// or "" when the track does not exist. Start and duration follow the same
// grid policy as MoveClip and ResizeClip. Card ids in spec.CardLinks are
// linked in both directions; unknown card ids are dropped.
func (e *Engine) AddClip(spec ClipSpec) string {
	var id string
	e.mutate(true, []Store{StoreTimeline, StoreCards}, func() bool {
		id = e.addClipLocked(spec)
		return id != ""
	})
	return id
}

func (e *Engine) addClipLocked(spec ClipSpec) string {
	t := &e.timeline
	ti := t.trackIndex(spec.TrackID)
	if ti < 0 {
		return ""
	}
	now := e.now()
	colour := spec.Colour
	if colour == "" {
		colour = t.tracks[ti].Colour
	}
	c := Clip{
		ID:          e.newID("clip"),
		TrackID:     spec.TrackID,
		Name:        spec.Name,
		StartTime:   t.snapStart(spec.StartTime),
		Duration:    t.snapDuration(spec.Duration),
		Colour:      colour,
		AgentSource: spec.AgentSource,
		CardLinks:   []string{},
		Metadata:    cloneMap(spec.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t.clips = append(t.clips, c)
	for _, cardID := range spec.CardLinks {
		e.linkLocked(cardID, c.ID)
	}
	return c.ID
}

// RemoveClip deletes the clip. Cards linked to it keep existing with their
// link cleared.
func (e *Engine) RemoveClip(id string) {
	e.mutate(true, []Store{StoreTimeline, StoreCards, StoreMemory}, func() bool {
		return e.removeClipLocked(id)
	})
}

func (e *Engine) removeClipLocked(id string) bool {
	t := &e.timeline
	i := t.clipIndex(id)
	if i < 0 {
		return false
	}
	for ci := range e.cards.cards {
		if e.cards.cards[ci].LinkedClipID == id {
			e.cards.cards[ci].LinkedClipID = ""
		}
	}
	t.clips = slices.Delete(t.clips, i, i+1)
	t.selectedClipIDs = without(t.selectedClipIDs, id)
	e.memory.dropEntity(EntityClip, id)
	return true
}

// UpdateClip merges u into the clip and stamps UpdatedAt.
func (e *Engine) UpdateClip(id string, u ClipUpdate) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		c := e.timeline.clip(id)
		if c == nil {
			return false
		}
		if u.Name != nil {
			c.Name = *u.Name
		}
		if u.Colour != nil {
			c.Colour = *u.Colour
		}
		if u.AgentSource != nil {
			c.AgentSource = *u.AgentSource
		}
		if u.Metadata != nil {
			c.Metadata = cloneMap(u.Metadata)
		}
		c.UpdatedAt = e.now()
		return true
	})
}

// MoveClip reassigns the clip to trackID at startTime. With snapping on the
// start is rounded to the nearest grid multiple; it is never negative.
func (e *Engine) MoveClip(id, trackID string, startTime float64) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		return e.moveClipLocked(id, trackID, startTime)
	})
}

func (e *Engine) moveClipLocked(id, trackID string, startTime float64) bool {
	t := &e.timeline
	c := t.clip(id)
	if c == nil || t.trackIndex(trackID) < 0 {
		return false
	}
	c.TrackID = trackID
	c.StartTime = t.snapStart(startTime)
	c.UpdatedAt = e.now()
	return true
}

// ResizeClip sets the clip duration. With snapping on it is rounded to the
// nearest grid multiple and at least one grid unit; otherwise it is at
// least MinClipDuration.
func (e *Engine) ResizeClip(id string, duration float64) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		c := t.clip(id)
		if c == nil {
			return false
		}
		c.Duration = t.snapDuration(duration)
		c.UpdatedAt = e.now()
		return true
	})
}

// SetPlayheadPosition moves the playhead, clamped at zero.
func (e *Engine) SetPlayheadPosition(pos float64) {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.timeline.playhead = math.Max(0, pos)
		return true
	})
}

// SetPlaying sets the playback flag.
func (e *Engine) SetPlaying(playing bool) {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.timeline.isPlaying = playing
		return true
	})
}

// TogglePlayback flips the playback flag.
func (e *Engine) TogglePlayback() {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.timeline.isPlaying = !e.timeline.isPlaying
		return true
	})
}

// SetZoom sets pixels per second, clamped to the configured bounds.
func (e *Engine) SetZoom(zoom float64) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		t.zoom = clamp(zoom, t.zoomMin, t.zoomMax)
		return true
	})
}

// SetScrollOffset sets the horizontal scroll, clamped at zero.
func (e *Engine) SetScrollOffset(offset float64) {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.timeline.scrollOffset = math.Max(0, offset)
		return true
	})
}

// ToggleSnapToGrid flips the snapping policy. Turning it on re-snaps every clip.
func (e *Engine) ToggleSnapToGrid() {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		t.snapToGrid = !t.snapToGrid
		t.resnapAll()
		return true
	})
}

// SetGridSize changes the grid, floored at MinGridSize. Clips are re-snapped
// to the new grid when snapping is on.
func (e *Engine) SetGridSize(size float64) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		t.gridSize = math.Max(MinGridSize, size)
		t.resnapAll()
		return true
	})
}

// SetDuration sets the total timeline length, at least one grid unit.
func (e *Engine) SetDuration(seconds float64) {
	e.mutate(true, []Store{StoreTimeline}, func() bool {
		t := &e.timeline
		t.duration = math.Max(t.gridSize, seconds)
		return true
	})
}

// SelectClips replaces the clip selection. Unknown ids are ignored.
func (e *Engine) SelectClips(ids []string) {
	e.mutate(false, []Store{StoreView}, func() bool {
		t := &e.timeline
		t.selectedClipIDs = known(ids, func(id string) bool { return t.clipIndex(id) >= 0 })
		return true
	})
}

// SelectTracks replaces the track selection. Unknown ids are ignored.
func (e *Engine) SelectTracks(ids []string) {
	e.mutate(false, []Store{StoreView}, func() bool {
		t := &e.timeline
		t.selectedTrackIDs = known(ids, func(id string) bool { return t.trackIndex(id) >= 0 })
		return true
	})
}

// ClearSelection empties the clip and track selections.
func (e *Engine) ClearSelection() {
	e.mutate(false, []Store{StoreView}, func() bool {
		e.timeline.selectedClipIDs = nil
		e.timeline.selectedTrackIDs = nil
		return true
	})
}

// Timeline returns a copy of the timeline state.
func (e *Engine) Timeline() TimelineState {
	var s TimelineState
	e.read(func() { s = e.timeline.state() })
	return s
}

// Track returns the track with the given id.
func (e *Engine) Track(id string) (Track, bool) {
	var (
		tr Track
		ok bool
	)
	e.read(func() {
		if i := e.timeline.trackIndex(id); i >= 0 {
			tr, ok = e.timeline.tracks[i], true
		}
	})
	return tr, ok
}

// Clip returns a copy of the clip with the given id.
func (e *Engine) Clip(id string) (Clip, bool) {
	var (
		c  Clip
		ok bool
	)
	e.read(func() {
		if p := e.timeline.clip(id); p != nil {
			c, ok = copyClip(*p), true
		}
	})
	return c, ok
}

// ClipsForTrack returns the clips on a track ordered by start time.
func (e *Engine) ClipsForTrack(trackID string) []Clip {
	var out []Clip
	e.read(func() {
		for _, c := range e.timeline.clips {
			if c.TrackID == trackID {
				out = append(out, copyClip(c))
			}
		}
	})
	slices.SortStableFunc(out, func(a, b Clip) int { return cmp.Compare(a.StartTime, b.StartTime) })
	return out
}

// snap rounds v to the nearest multiple of grid, trimming float noise so
// multiples of fractional grids compare cleanly.
func snap(v, grid float64) float64 {
	return math.Round(math.Round(v/grid)*grid*1e9) / 1e9
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}

// known returns the distinct ids for which exists reports true, in order.
func known(ids []string, exists func(string) bool) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) && exists(id) {
			out = append(out, id)
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
