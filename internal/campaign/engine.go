// Package campaign is the campaign state engine shared by every front-end.
//
// An Engine composes five stores (metadata, timeline, cards, loops, memory)
// behind a single lock. Mutations are total: operating on an unknown id is a no-op and
// out-of-range values are clamped, so callers never handle errors from them.
// Selectors return copies; no caller ever holds a pointer into engine state.
//
// Card-to-clip links are only changed through Engine methods, which update the
// card's LinkedClipID and the clip's CardLinks in the same critical section.
package campaign

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store names the part of the engine a change touched.
type Store string

const (
	StoreMeta     Store = "meta"
	StoreTimeline Store = "timeline"
	StoreCards    Store = "cards"
	StoreLoops    Store = "loops"
	StoreMemory   Store = "memory"
	StoreView     Store = "view"
)

// Change is delivered to subscribers after a mutation completes.
type Change struct {
	Stores []Store
	// Dirty is true when the change touched persisted state.
	Dirty bool
}

// Options configures a new Engine. Zero fields take defaults.
type Options struct {
	Meta     CampaignMeta
	Timeline *TimelineSettings
	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func(prefix string) string
}

// Engine is the campaign state engine. It is safe for concurrent use; every
// mutation runs to completion under the write lock, so callers observe
// mutations in lock-acquisition order.
type Engine struct {
	mu    sync.RWMutex
	now   func() time.Time
	newID func(prefix string) string

	meta     metaStore
	timeline timelineStore
	cards    cardStore
	loops    loopStore
	memory   memoryStore

	lmu          sync.Mutex
	listeners    map[int]func(Change)
	nextListener int
}

// New constructs an engine with the given initial state.
func New(opts Options) *Engine {
	e := &Engine{
		now:       opts.Now,
		newID:     opts.NewID,
		listeners: make(map[int]func(Change)),
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = func(prefix string) string { return prefix + "-" + uuid.NewString() }
	}

	settings := DefaultTimelineSettings()
	if opts.Timeline != nil {
		settings = opts.Timeline.normalized()
	}
	e.timeline = newTimelineStore(settings)
	e.cards = newCardStore()
	e.loops = newLoopStore()

	now := e.now()
	meta := opts.Meta
	if meta.ID == "" {
		meta.ID = e.newID("campaign")
	}
	if !meta.CurrentTheme.Valid() {
		meta.CurrentTheme = ThemeDAW
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = now
	}
	e.meta = metaStore{meta: meta}
	return e
}

// Subscribe registers fn to be called after every mutation that changed
// state. fn runs outside the engine lock and may call selectors. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn func(Change)) (unsubscribe func()) {
	e.lmu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.lmu.Unlock()
	return func() {
		e.lmu.Lock()
		delete(e.listeners, id)
		e.lmu.Unlock()
	}
}

func (e *Engine) notify(c Change) {
	e.lmu.Lock()
	fns := make([]func(Change), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.lmu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// mutate runs fn under the write lock. When fn reports a change to persisted
// state the dirty flag is set before the lock is released.
func (e *Engine) mutate(persisted bool, stores []Store, fn func() bool) {
	e.mu.Lock()
	changed := fn()
	if changed && persisted {
		e.meta.dirty = true
		e.meta.revision++
	}
	e.mu.Unlock()
	if changed {
		e.notify(Change{Stores: stores, Dirty: persisted})
	}
}

func (e *Engine) read(fn func()) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn()
}
