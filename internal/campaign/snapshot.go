package campaign

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// SnapshotVersion is the schema version written by Snapshot.
const SnapshotVersion = 1

// ErrUnsupportedSnapshot is returned by Restore for snapshots of any other
// schema version, including a missing one.
var ErrUnsupportedSnapshot = errors.New("campaign: unsupported snapshot version")

// Snapshot is the persisted subset of engine state. Selection, playhead,
// scroll offset and playback are view-only and reset on restore.
type Snapshot struct {
	Version  int              `json:"version"`
	Meta     CampaignMeta     `json:"meta"`
	Timeline TimelineSnapshot `json:"timeline"`
	Cards    CardsSnapshot    `json:"cards"`
	Loops    LoopState        `json:"loops"`
	Memory   MemoryState      `json:"memory"`
	// SavedAt is when the snapshot was last written, if ever.
	SavedAt *time.Time `json:"savedAt,omitempty"`

	// Revision is the engine revision the snapshot was taken at. It is not
	// serialized; pass it to MarkSaved after a successful write.
	Revision uint64 `json:"-"`
}

// TimelineSnapshot is the persisted part of the timeline.
type TimelineSnapshot struct {
	Tracks     []Track `json:"tracks"`
	Clips      []Clip  `json:"clips"`
	Zoom       float64 `json:"zoom"`
	SnapToGrid bool    `json:"snapToGrid"`
	GridSize   float64 `json:"gridSize"`
	Duration   float64 `json:"duration"`
}

// CardsSnapshot is the persisted part of the card store.
type CardsSnapshot struct {
	Cards        []Card   `json:"cards"`
	FilterByType CardType `json:"filterByType,omitempty"`
	SortBy       CardSort `json:"sortBy"`
}

// Snapshot captures the persisted subset of state.
func (e *Engine) Snapshot() Snapshot {
	var s Snapshot
	e.read(func() {
		tl := e.timeline.state()
		cs := e.cards.state()
		s = Snapshot{
			Version: SnapshotVersion,
			Meta:    e.meta.meta,
			Timeline: TimelineSnapshot{
				Tracks:     tl.Tracks,
				Clips:      tl.Clips,
				Zoom:       tl.Zoom,
				SnapToGrid: tl.SnapToGrid,
				GridSize:   tl.GridSize,
				Duration:   tl.Duration,
			},
			Cards: CardsSnapshot{
				Cards:        cs.Cards,
				FilterByType: cs.FilterByType,
				SortBy:       cs.SortBy,
			},
			Loops:    e.loops.state(),
			Memory:   e.memory.state(),
			SavedAt:  copyTime(e.meta.lastSavedAt),
			Revision: e.meta.revision,
		}
	})
	return s
}

// Restore replaces engine state with a snapshot. Values are normalized the
// same way mutations normalize them and card/clip links are repaired before
// the state becomes visible. Loops caught mid-run come back idle. The engine
// is clean afterwards.
func (e *Engine) Restore(s Snapshot) error {
	if s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, s.Version)
	}

	e.mu.Lock()
	if s.Meta.ID != "" {
		if !s.Meta.CurrentTheme.Valid() {
			s.Meta.CurrentTheme = e.meta.meta.CurrentTheme
		}
		e.meta.meta = s.Meta
	}

	t := &e.timeline
	t.tracks = slices.Clone(s.Timeline.Tracks)
	t.renumberTracks()
	t.clips = make([]Clip, 0, len(s.Timeline.Clips))
	for _, c := range s.Timeline.Clips {
		if t.trackIndex(c.TrackID) < 0 {
			continue
		}
		t.clips = append(t.clips, copyClip(c))
	}
	if s.Timeline.GridSize > 0 {
		t.gridSize = math.Max(MinGridSize, s.Timeline.GridSize)
	}
	if s.Timeline.Zoom > 0 {
		t.zoom = clamp(s.Timeline.Zoom, t.zoomMin, t.zoomMax)
	}
	if s.Timeline.Duration > 0 {
		t.duration = s.Timeline.Duration
	}
	t.snapToGrid = s.Timeline.SnapToGrid
	for i := range t.clips {
		t.clips[i].StartTime = t.snapStart(t.clips[i].StartTime)
		t.clips[i].Duration = t.snapDuration(t.clips[i].Duration)
	}
	t.playhead, t.scrollOffset, t.isPlaying = 0, 0, false
	t.selectedClipIDs, t.selectedTrackIDs = nil, nil

	e.cards = newCardStore()
	for _, c := range s.Cards.Cards {
		e.cards.cards = append(e.cards.cards, copyCard(c))
	}
	if s.Cards.FilterByType.Valid() {
		e.cards.filter = s.Cards.FilterByType
	}
	switch s.Cards.SortBy {
	case SortByTimestamp, SortByType, SortByRecent:
		e.cards.sortBy = s.Cards.SortBy
	}

	e.loops = newLoopStore()
	for _, l := range s.Loops.Loops {
		if l.Status == LoopRunning {
			l.Status = LoopIdle
		}
		e.loops.loops = append(e.loops.loops, copyLoop(l))
	}
	e.loops.events.reset(s.Loops.LoopEvents)
	for _, sg := range s.Loops.LoopSuggestions {
		e.loops.suggestions = append(e.loops.suggestions, copySuggestion(sg))
	}
	e.loops.metrics = copyMetrics(s.Loops.LoopMetrics)
	e.loops.nextRun = copyTime(s.Loops.NextLoopRun)
	e.loops.health = clamp(s.Loops.LoopHealthScore, 0, 100)

	e.repairLinksLocked()
	e.setMemoriesLocked(s.Memory.Memories, s.Memory.Links)
	e.meta.lastSavedAt = copyTime(s.SavedAt)
	e.meta.dirty = false
	e.meta.revision++
	e.mu.Unlock()

	e.notify(Change{Stores: []Store{StoreMeta, StoreTimeline, StoreCards, StoreLoops, StoreMemory, StoreView}})
	return nil
}
