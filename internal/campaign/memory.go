package campaign

import (
	"cmp"
	"slices"
	"time"
)

// MemoryType classifies what an OS remembers.
type MemoryType string

const (
	MemoryFact       MemoryType = "fact"
	MemoryPattern    MemoryType = "pattern"
	MemoryReflection MemoryType = "reflection"
	MemoryEmotion    MemoryType = "emotion"
	MemoryWarning    MemoryType = "warning"
)

// Valid reports whether t is a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryFact, MemoryPattern, MemoryReflection, MemoryEmotion, MemoryWarning:
		return true
	}
	return false
}

// EntityType names what a memory link points at.
type EntityType string

const (
	EntityClip     EntityType = "clip"
	EntityCard     EntityType = "card"
	EntityLoop     EntityType = "loop"
	EntityCampaign EntityType = "campaign"
)

// Importance bounds. Memories default to DefaultImportance.
const (
	MinImportance     = 1
	MaxImportance     = 5
	DefaultImportance = 3
)

// Memory is something an OS theme or agent learned about the campaign.
type Memory struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	CampaignID string         `json:"campaignId,omitempty"`
	OS         ThemeID        `json:"os"`
	Agent      AgentName      `json:"agent,omitempty"`
	Type       MemoryType     `json:"memoryType"`
	Title      string         `json:"title"`
	Content    map[string]any `json:"content,omitempty"`
	Importance int            `json:"importance"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// MemoryLink ties a memory to an entity of the campaign.
type MemoryLink struct {
	ID         string     `json:"id"`
	MemoryID   string     `json:"memoryId"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// MemorySpec describes a memory to add. Zero Importance means
// DefaultImportance; an empty OS means the campaign's current theme.
type MemorySpec struct {
	OS         ThemeID        `json:"os"`
	Agent      AgentName      `json:"agent,omitempty"`
	Type       MemoryType     `json:"memoryType"`
	Title      string         `json:"title"`
	Content    map[string]any `json:"content,omitempty"`
	Importance int            `json:"importance"`
	// Global memories are not tied to this campaign.
	Global bool `json:"global,omitempty"`
}

// MemoryUpdate holds the memory fields to change. Nil fields are left as-is.
type MemoryUpdate struct {
	Title      *string        `json:"title,omitempty"`
	Content    map[string]any `json:"content,omitempty"`
	Importance *int           `json:"importance,omitempty"`
	Type       *MemoryType    `json:"memoryType,omitempty"`
}

// MemoryState is the memory store as seen by readers.
type MemoryState struct {
	Memories []Memory     `json:"memories"`
	Links    []MemoryLink `json:"memoryLinks"`
}

type memoryStore struct {
	memories []Memory
	links    []MemoryLink
}

func (s *memoryStore) index(id string) int {
	return slices.IndexFunc(s.memories, func(m Memory) bool { return m.ID == id })
}

func (s *memoryStore) state() MemoryState {
	st := MemoryState{
		Memories: make([]Memory, len(s.memories)),
		Links:    slices.Clone(s.links),
	}
	for i, m := range s.memories {
		st.Memories[i] = copyMemory(m)
	}
	return st
}

// dropLinks removes the links drop selects and reports whether any went.
func (s *memoryStore) dropLinks(drop func(MemoryLink) bool) bool {
	n := len(s.links)
	s.links = slices.DeleteFunc(s.links, drop)
	return len(s.links) != n
}

func (s *memoryStore) dropEntity(t EntityType, id string) bool {
	return s.dropLinks(func(l MemoryLink) bool { return l.EntityType == t && l.EntityID == id })
}

func copyMemory(m Memory) Memory {
	m.Content = cloneMap(m.Content)
	return m
}

func clampImportance(v int) int {
	if v == 0 {
		return DefaultImportance
	}
	return max(MinImportance, min(MaxImportance, v))
}

// AddMemory stores a memory and returns its id, or "" for an unknown type.
func (e *Engine) AddMemory(spec MemorySpec) string {
	var id string
	e.mutate(true, []Store{StoreMemory}, func() bool {
		id = e.addMemoryLocked(spec)
		return id != ""
	})
	return id
}

func (e *Engine) addMemoryLocked(spec MemorySpec) string {
	if !spec.Type.Valid() {
		return ""
	}
	m := Memory{
		ID:         e.newID("memory"),
		UserID:     e.meta.meta.UserID,
		OS:         spec.OS,
		Agent:      spec.Agent,
		Type:       spec.Type,
		Title:      spec.Title,
		Content:    cloneMap(spec.Content),
		Importance: clampImportance(spec.Importance),
		CreatedAt:  e.now(),
	}
	if !m.OS.Valid() {
		m.OS = e.meta.meta.CurrentTheme
	}
	if !spec.Global {
		m.CampaignID = e.meta.meta.ID
	}
	e.memory.memories = append(e.memory.memories, m)
	return m.ID
}

// UpdateMemory merges u into the memory.
func (e *Engine) UpdateMemory(id string, u MemoryUpdate) {
	e.mutate(true, []Store{StoreMemory}, func() bool {
		i := e.memory.index(id)
		if i < 0 {
			return false
		}
		m := &e.memory.memories[i]
		if u.Title != nil {
			m.Title = *u.Title
		}
		if u.Content != nil {
			m.Content = cloneMap(u.Content)
		}
		if u.Importance != nil {
			m.Importance = clampImportance(*u.Importance)
		}
		if u.Type != nil && u.Type.Valid() {
			m.Type = *u.Type
		}
		return true
	})
}

// RemoveMemory deletes a memory together with its links.
func (e *Engine) RemoveMemory(id string) {
	e.mutate(true, []Store{StoreMemory}, func() bool {
		i := e.memory.index(id)
		if i < 0 {
			return false
		}
		e.memory.memories = slices.Delete(e.memory.memories, i, i+1)
		e.memory.dropLinks(func(l MemoryLink) bool { return l.MemoryID == id })
		return true
	})
}

// SetMemories replaces every memory and link. Links to unknown memories are
// dropped.
func (e *Engine) SetMemories(memories []Memory, links []MemoryLink) {
	e.mutate(true, []Store{StoreMemory}, func() bool {
		e.setMemoriesLocked(memories, links)
		return true
	})
}

func (e *Engine) setMemoriesLocked(memories []Memory, links []MemoryLink) {
	e.memory = memoryStore{}
	for _, m := range memories {
		m = copyMemory(m)
		m.Importance = clampImportance(m.Importance)
		e.memory.memories = append(e.memory.memories, m)
	}
	for _, l := range links {
		if e.memory.index(l.MemoryID) >= 0 && e.entityExistsLocked(l.EntityType, l.EntityID) {
			e.memory.links = append(e.memory.links, l)
		}
	}
}

// ClearMemory removes every memory and link.
func (e *Engine) ClearMemory() {
	e.mutate(true, []Store{StoreMemory}, func() bool {
		if len(e.memory.memories) == 0 && len(e.memory.links) == 0 {
			return false
		}
		e.memory = memoryStore{}
		return true
	})
}

func (e *Engine) entityExistsLocked(t EntityType, id string) bool {
	switch t {
	case EntityClip:
		return e.timeline.clipIndex(id) >= 0
	case EntityCard:
		return e.cards.index(id) >= 0
	case EntityLoop:
		return e.loops.index(id) >= 0
	case EntityCampaign:
		return id == e.meta.meta.ID
	}
	return false
}

// AddMemoryLink links a memory to an entity and returns the link id. Linking
// the same pair twice returns the existing link. Unknown memories or
// entities are a no-op returning "".
func (e *Engine) AddMemoryLink(memoryID string, t EntityType, entityID string) string {
	var id string
	e.mutate(true, []Store{StoreMemory}, func() bool {
		var changed bool
		id, changed = e.addMemoryLinkLocked(memoryID, t, entityID)
		return changed
	})
	return id
}

func (e *Engine) addMemoryLinkLocked(memoryID string, t EntityType, entityID string) (string, bool) {
	if e.memory.index(memoryID) < 0 || !e.entityExistsLocked(t, entityID) {
		return "", false
	}
	for _, l := range e.memory.links {
		if l.MemoryID == memoryID && l.EntityType == t && l.EntityID == entityID {
			return l.ID, false
		}
	}
	l := MemoryLink{
		ID:         e.newID("memlink"),
		MemoryID:   memoryID,
		EntityType: t,
		EntityID:   entityID,
		CreatedAt:  e.now(),
	}
	e.memory.links = append(e.memory.links, l)
	return l.ID, true
}

// RemoveMemoryLink deletes one link.
func (e *Engine) RemoveMemoryLink(id string) {
	e.mutate(true, []Store{StoreMemory}, func() bool {
		return e.memory.dropLinks(func(l MemoryLink) bool { return l.ID == id })
	})
}

// Memories returns every memory and link.
func (e *Engine) Memories() MemoryState {
	var s MemoryState
	e.read(func() { s = e.memory.state() })
	return s
}

// Memory returns the memory with the given id.
func (e *Engine) Memory(id string) (Memory, bool) {
	var (
		m  Memory
		ok bool
	)
	e.read(func() {
		if i := e.memory.index(id); i >= 0 {
			m, ok = copyMemory(e.memory.memories[i]), true
		}
	})
	return m, ok
}

func (e *Engine) filterMemories(keep func(Memory) bool) []Memory {
	var out []Memory
	e.read(func() {
		for _, m := range e.memory.memories {
			if keep(m) {
				out = append(out, copyMemory(m))
			}
		}
	})
	return out
}

// MemoriesByOS returns the memories recorded by one theme.
func (e *Engine) MemoriesByOS(os ThemeID) []Memory {
	return e.filterMemories(func(m Memory) bool { return m.OS == os })
}

// MemoriesByAgent returns the memories recorded by one agent.
func (e *Engine) MemoriesByAgent(agent AgentName) []Memory {
	return e.filterMemories(func(m Memory) bool { return m.Agent == agent })
}

// MemoriesForEntity returns the memories linked to an entity, most important
// first.
func (e *Engine) MemoriesForEntity(t EntityType, id string) []Memory {
	var out []Memory
	e.read(func() {
		for _, l := range e.memory.links {
			if l.EntityType != t || l.EntityID != id {
				continue
			}
			if i := e.memory.index(l.MemoryID); i >= 0 {
				out = append(out, copyMemory(e.memory.memories[i]))
			}
		}
	})
	sortByRelevance(out)
	return out
}

// RecentMemories returns up to limit memories, newest first.
func (e *Engine) RecentMemories(limit int) []Memory {
	out := e.filterMemories(func(Memory) bool { return true })
	slices.SortStableFunc(out, func(a, b Memory) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return truncate(out, limit)
}

// ImportantMemories returns up to limit memories of at least minImportance,
// most important first and newest first within a level.
func (e *Engine) ImportantMemories(minImportance, limit int) []Memory {
	out := e.filterMemories(func(m Memory) bool { return m.Importance >= minImportance })
	sortByRelevance(out)
	return truncate(out, limit)
}

func sortByRelevance(ms []Memory) {
	slices.SortStableFunc(ms, func(a, b Memory) int {
		if c := cmp.Compare(b.Importance, a.Importance); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

func truncate(ms []Memory, limit int) []Memory {
	if limit > 0 && len(ms) > limit {
		return ms[:limit]
	}
	return ms
}
