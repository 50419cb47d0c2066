package campaign

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func memoryIDs(ms []Memory) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func TestAddMemory_Defaults(t *testing.T) {
	e := newTestEngine(t)
	id := e.AddMemory(MemorySpec{Type: MemoryPattern, Title: "Tuesdays land best", Agent: AgentScout})
	m, ok := e.Memory(id)
	if !ok {
		t.Fatal("memory missing")
	}
	if m.Importance != DefaultImportance {
		t.Errorf("Importance = %d, want %d", m.Importance, DefaultImportance)
	}
	if m.OS != ThemeDAW {
		t.Errorf("OS = %q, want current theme", m.OS)
	}
	if m.CampaignID != "camp-1" || m.UserID != "user-1" {
		t.Errorf("memory owner = %q/%q", m.CampaignID, m.UserID)
	}
	if !e.IsDirty() {
		t.Error("AddMemory should mark dirty")
	}

	g, _ := e.Memory(e.AddMemory(MemorySpec{Type: MemoryFact, Importance: 9, Global: true}))
	if g.CampaignID != "" || g.Importance != MaxImportance {
		t.Errorf("global memory = %+v", g)
	}
	if id := e.AddMemory(MemorySpec{Type: "rumour"}); id != "" {
		t.Errorf("unknown type returned id %q", id)
	}
}

func TestMemoryLinks(t *testing.T) {
	e := newTestEngine(t)
	track := e.AddTrack("Promo", "")
	clip := e.AddClip(ClipSpec{TrackID: track, Name: "Teaser", Duration: 2})
	card := e.AddCard(CardSpec{Type: CardHope})
	mem := e.AddMemory(MemorySpec{Type: MemoryEmotion, Title: "launch nerves"})

	first := e.AddMemoryLink(mem, EntityClip, clip)
	if first == "" {
		t.Fatal("AddMemoryLink returned empty id")
	}
	if again := e.AddMemoryLink(mem, EntityClip, clip); again != first {
		t.Errorf("duplicate link id = %q, want %q", again, first)
	}
	e.AddMemoryLink(mem, EntityCard, card)
	e.AddMemoryLink(mem, EntityCampaign, "camp-1")

	if id := e.AddMemoryLink(mem, EntityClip, "clip-missing"); id != "" {
		t.Errorf("link to unknown clip = %q", id)
	}
	if id := e.AddMemoryLink("memory-missing", EntityClip, clip); id != "" {
		t.Errorf("link from unknown memory = %q", id)
	}
	if got := len(e.Memories().Links); got != 3 {
		t.Fatalf("len(Links) = %d, want 3", got)
	}
	if diff := cmp.Diff([]string{mem}, memoryIDs(e.MemoriesForEntity(EntityClip, clip))); diff != "" {
		t.Errorf("MemoriesForEntity mismatch (-want +got):\n%s", diff)
	}

	// Removing the clip and card drops their links only.
	e.RemoveClip(clip)
	e.RemoveCard(card)
	links := e.Memories().Links
	if len(links) != 1 || links[0].EntityType != EntityCampaign {
		t.Errorf("links after removals = %+v", links)
	}

	e.RemoveMemory(mem)
	if st := e.Memories(); len(st.Memories) != 0 || len(st.Links) != 0 {
		t.Errorf("state after RemoveMemory = %+v", st)
	}
}

func TestMemoryLinks_LoopRemoval(t *testing.T) {
	e := newTestEngine(t)
	loop := e.AddLoop(Loop{Agent: AgentCoach, Interval: Hourly})
	mem := e.AddMemory(MemorySpec{Type: MemoryWarning})
	e.AddMemoryLink(mem, EntityLoop, loop)

	e.SetLoops(nil)
	if got := len(e.Memories().Links); got != 0 {
		t.Errorf("len(Links) = %d after loops replaced, want 0", got)
	}
}

func TestMemorySelectors(t *testing.T) {
	e := newTestEngine(t)
	low := e.AddMemory(MemorySpec{Type: MemoryFact, Importance: 1, OS: ThemeASCII, Agent: AgentTracker})
	high := e.AddMemory(MemorySpec{Type: MemoryPattern, Importance: 5, OS: ThemeAqua, Agent: AgentScout})
	mid := e.AddMemory(MemorySpec{Type: MemoryReflection, Importance: 4, OS: ThemeAqua})
	newest := e.AddMemory(MemorySpec{Type: MemoryEmotion, Importance: 4, OS: ThemeXP})

	if diff := cmp.Diff([]string{high, mid}, memoryIDs(e.MemoriesByOS(ThemeAqua))); diff != "" {
		t.Errorf("MemoriesByOS mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{low}, memoryIDs(e.MemoriesByAgent(AgentTracker))); diff != "" {
		t.Errorf("MemoriesByAgent mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{newest, mid}, memoryIDs(e.RecentMemories(2))); diff != "" {
		t.Errorf("RecentMemories mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{high, newest, mid}, memoryIDs(e.ImportantMemories(4, 0))); diff != "" {
		t.Errorf("ImportantMemories mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateMemory(t *testing.T) {
	e := newTestEngine(t)
	id := e.AddMemory(MemorySpec{Type: MemoryFact, Title: "old"})
	title, imp, bad := "new", -3, MemoryType("gossip")
	e.UpdateMemory(id, MemoryUpdate{Title: &title, Importance: &imp, Type: &bad})
	m, _ := e.Memory(id)
	if m.Title != "new" || m.Importance != MinImportance || m.Type != MemoryFact {
		t.Errorf("memory = %+v", m)
	}
	e.UpdateMemory("memory-missing", MemoryUpdate{Title: &title})
}

func TestSnapshot_CarriesMemory(t *testing.T) {
	src := populated(t)
	clip := src.Timeline().Clips[0].ID
	mem := src.AddMemory(MemorySpec{Type: MemoryPattern, Title: "teasers work"})
	src.AddMemoryLink(mem, EntityClip, clip)

	snap := src.Snapshot()
	// A link whose clip is gone in the stored data is dropped on restore.
	snap.Memory.Links = append(snap.Memory.Links, MemoryLink{ID: "memlink-stale", MemoryID: mem, EntityType: EntityClip, EntityID: "clip-gone"})

	dst := newTestEngine(t)
	if err := dst.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	st := dst.Memories()
	if len(st.Memories) != 1 || st.Memories[0].Title != "teasers work" {
		t.Errorf("memories = %+v", st.Memories)
	}
	if len(st.Links) != 1 || st.Links[0].EntityID != clip {
		t.Errorf("links = %+v", st.Links)
	}
}
