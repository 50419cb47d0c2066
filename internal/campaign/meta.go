package campaign

import "time"

type metaStore struct {
	meta        CampaignMeta
	dirty       bool
	revision    uint64
	lastSavedAt *time.Time
}

// MetaUpdate holds the campaign fields to change. Nil fields are left as-is.
type MetaUpdate struct {
	Name   *string  `json:"name,omitempty"`
	Goal   *string  `json:"goal,omitempty"`
	Theme  *ThemeID `json:"currentTheme,omitempty"`
	UserID *string  `json:"userId,omitempty"`
}

// UpdateCampaignMeta merges u into the campaign metadata and stamps UpdatedAt.
// An unknown theme is ignored.
func (e *Engine) UpdateCampaignMeta(u MetaUpdate) {
	e.mutate(true, []Store{StoreMeta}, func() bool {
		m := &e.meta.meta
		if u.Name != nil {
			m.Name = *u.Name
		}
		if u.Goal != nil {
			m.Goal = *u.Goal
		}
		if u.Theme != nil && u.Theme.Valid() {
			m.CurrentTheme = *u.Theme
		}
		if u.UserID != nil {
			m.UserID = *u.UserID
		}
		m.UpdatedAt = e.now()
		return true
	})
}

// SetTheme switches the active front-end theme.
func (e *Engine) SetTheme(theme ThemeID) {
	e.UpdateCampaignMeta(MetaUpdate{Theme: &theme})
}

// MarkClean clears the dirty flag and stamps the last-saved time.
func (e *Engine) MarkClean() {
	e.mu.Lock()
	e.markCleanLocked()
	e.mu.Unlock()
}

// MarkSaved clears the dirty flag only if no persisted change happened after
// the snapshot with the given revision was taken. It reports whether the
// engine is now clean.
func (e *Engine) MarkSaved(revision uint64) bool {
	return e.MarkSavedAt(revision, e.now())
}

// MarkSavedAt is MarkSaved with an explicit save time, for adapters that
// store the time alongside the snapshot.
func (e *Engine) MarkSavedAt(revision uint64, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.revision != revision {
		return false
	}
	e.meta.dirty = false
	e.meta.lastSavedAt = &at
	return true
}

func (e *Engine) markCleanLocked() {
	now := e.now()
	e.meta.dirty = false
	e.meta.lastSavedAt = &now
}

// MarkDirty forces the next save even if nothing changed.
func (e *Engine) MarkDirty() {
	e.mutate(true, []Store{StoreMeta}, func() bool { return true })
}

// Meta returns the campaign metadata.
func (e *Engine) Meta() CampaignMeta {
	var m CampaignMeta
	e.read(func() { m = e.meta.meta })
	return m
}

// IsDirty reports whether there are unsaved changes.
func (e *Engine) IsDirty() bool {
	var d bool
	e.read(func() { d = e.meta.dirty })
	return d
}

// LastSavedAt returns when the engine was last marked clean, if ever.
func (e *Engine) LastSavedAt() (time.Time, bool) {
	var (
		t  time.Time
		ok bool
	)
	e.read(func() {
		if e.meta.lastSavedAt != nil {
			t, ok = *e.meta.lastSavedAt, true
		}
	})
	return t, ok
}

// Revision returns a counter incremented on every persisted change.
func (e *Engine) Revision() uint64 {
	var r uint64
	e.read(func() { r = e.meta.revision })
	return r
}
