package campaign

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestEngine returns an engine with a ticking clock (one second per call)
// and sequential ids such as "clip-3".
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWith(t, nil)
}

func newTestEngineWith(t *testing.T, settings *TimelineSettings) *Engine {
	t.Helper()
	clock := testEpoch
	n := 0
	return New(Options{
		Meta:     CampaignMeta{ID: "camp-1", Name: "Debut EP", UserID: "user-1"},
		Timeline: settings,
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		NewID: func(prefix string) string {
			n++
			return fmt.Sprintf("%s-%d", prefix, n)
		},
	})
}

func TestNew_Defaults(t *testing.T) {
	e := New(Options{})
	m := e.Meta()
	if m.ID == "" {
		t.Error("expected generated campaign id")
	}
	if m.CurrentTheme != ThemeDAW {
		t.Errorf("CurrentTheme = %q, want %q", m.CurrentTheme, ThemeDAW)
	}
	tl := e.Timeline()
	if tl.GridSize != 1 || !tl.SnapToGrid || tl.Zoom != 50 || tl.Duration != 300 {
		t.Errorf("unexpected timeline defaults: %+v", tl)
	}
	if e.IsDirty() {
		t.Error("new engine should be clean")
	}
	if got := e.Loops().LoopHealthScore; got != 100 {
		t.Errorf("LoopHealthScore = %v, want 100", got)
	}
}

func TestNew_NormalizesSettings(t *testing.T) {
	e := newTestEngineWith(t, &TimelineSettings{GridSize: 0.01, Zoom: 900, ZoomMin: 20, ZoomMax: 100})
	tl := e.Timeline()
	if tl.GridSize != MinGridSize {
		t.Errorf("GridSize = %v, want %v", tl.GridSize, MinGridSize)
	}
	if tl.Zoom != 100 {
		t.Errorf("Zoom = %v, want 100", tl.Zoom)
	}
	if tl.SnapToGrid {
		t.Error("explicit settings with SnapToGrid=false should not snap")
	}
}

func TestDirtyFlag_MarkCleanAndDirty(t *testing.T) {
	e := newTestEngine(t)
	e.AddTrack("Promo", "")
	if !e.IsDirty() {
		t.Fatal("AddTrack should mark dirty")
	}
	if _, ok := e.LastSavedAt(); ok {
		t.Error("LastSavedAt should be unset before first save")
	}

	e.MarkClean()
	if e.IsDirty() {
		t.Error("MarkClean should clear dirty")
	}
	if _, ok := e.LastSavedAt(); !ok {
		t.Error("MarkClean should stamp LastSavedAt")
	}

	e.MarkDirty()
	if !e.IsDirty() {
		t.Error("MarkDirty should set dirty")
	}
}

func TestMarkSaved_RejectsStaleRevision(t *testing.T) {
	e := newTestEngine(t)
	e.AddTrack("Promo", "")
	snap := e.Snapshot()

	e.AddTrack("Radio", "")
	if e.MarkSaved(snap.Revision) {
		t.Fatal("MarkSaved should refuse a revision older than the latest change")
	}
	if !e.IsDirty() {
		t.Error("engine should stay dirty after a stale save")
	}

	if !e.MarkSaved(e.Snapshot().Revision) {
		t.Error("MarkSaved with current revision should succeed")
	}
	if e.IsDirty() {
		t.Error("engine should be clean")
	}
}

func TestUpdateCampaignMeta(t *testing.T) {
	e := newTestEngine(t)
	before := e.Meta().UpdatedAt
	name, goal := "Second Album", "100 radio adds"
	e.UpdateCampaignMeta(MetaUpdate{Name: &name, Goal: &goal})

	m := e.Meta()
	if m.Name != name || m.Goal != goal {
		t.Errorf("meta = %+v, want name %q goal %q", m, name, goal)
	}
	if !m.UpdatedAt.After(before) {
		t.Error("UpdatedAt should advance")
	}
	if !e.IsDirty() {
		t.Error("meta update should mark dirty")
	}

	e.SetTheme("vaporwave")
	if got := e.Meta().CurrentTheme; got != ThemeDAW {
		t.Errorf("unknown theme changed CurrentTheme to %q", got)
	}
	e.SetTheme(ThemeAqua)
	if got := e.Meta().CurrentTheme; got != ThemeAqua {
		t.Errorf("CurrentTheme = %q, want %q", got, ThemeAqua)
	}
}

func TestSubscribe(t *testing.T) {
	e := newTestEngine(t)
	var got []Change
	unsubscribe := e.Subscribe(func(c Change) {
		// Listeners run outside the lock and may read.
		_ = e.Timeline()
		got = append(got, c)
	})

	e.AddTrack("Promo", "")
	e.SetPlayheadPosition(12)
	e.RemoveClip("missing")

	if len(got) != 2 {
		t.Fatalf("got %d changes, want 2", len(got))
	}
	if !got[0].Dirty || got[0].Stores[0] != StoreTimeline {
		t.Errorf("first change = %+v, want dirty timeline change", got[0])
	}
	if got[1].Dirty {
		t.Errorf("playhead change should not be dirty: %+v", got[1])
	}

	unsubscribe()
	e.AddTrack("Radio", "")
	if len(got) != 2 {
		t.Errorf("listener called after unsubscribe")
	}
}

func TestConcurrentMutations(t *testing.T) {
	e := newTestEngine(t)
	trackID := e.AddTrack("Promo", "")

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				clipID := e.AddClip(ClipSpec{TrackID: trackID, Name: "Post", StartTime: float64(i), Duration: 1})
				cardID := e.AddCard(CardSpec{Type: CardHope, Content: "ok"})
				e.LinkCardToClip(clipID, cardID)
				_ = e.Timeline()
				_ = e.CardsForClip(clipID)
			}
		}(w)
	}
	wg.Wait()

	if got := len(e.Timeline().Clips); got != workers*perWorker {
		t.Errorf("clips = %d, want %d", got, workers*perWorker)
	}
	if v := e.CheckLinks(); len(v) != 0 {
		t.Errorf("link violations after concurrent use: %v", v)
	}
}
