package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/campaignyard/internal/campaign"
	"go.uber.org/zap"
)

// flushTimeout bounds the final save made when Run is cancelled.
const flushTimeout = 5 * time.Second

// Options configures an Adapter.
type Options struct {
	// Key names the snapshot in the KV store.
	Key string
	// Archive, when set, receives every loop event on save.
	Archive *EventArchive
	Logger  *zap.Logger
	// Now stamps saves; defaults to time.Now.
	Now func() time.Time
}

// Adapter moves engine snapshots in and out of a KV store.
type Adapter struct {
	engine  *campaign.Engine
	kv      KV
	key     string
	archive *EventArchive
	log     *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	lastEventID string
}

// NewAdapter returns an adapter for engine. An empty key defaults to
// "campaign:<campaign id>".
func NewAdapter(engine *campaign.Engine, kv KV, opts Options) *Adapter {
	a := &Adapter{
		engine:  engine,
		kv:      kv,
		key:     opts.Key,
		archive: opts.Archive,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.key == "" {
		a.key = "campaign:" + engine.Meta().ID
	}
	if a.log == nil {
		a.log = zap.NewNop()
	}
	return a
}

// Key returns the KV key the adapter reads and writes.
func (a *Adapter) Key() string { return a.key }

// Save writes the current snapshot. The engine is marked clean only when the
// write succeeds and nothing changed while it was in flight.
func (a *Adapter) Save(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := a.engine.Snapshot()
	at := a.now()
	snap.SavedAt = &at
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("persist: encode snapshot: %w", err)
	}
	if err := a.kv.Put(ctx, a.key, data); err != nil {
		return fmt.Errorf("persist: save %s: %w", a.key, err)
	}
	if !a.engine.MarkSavedAt(snap.Revision, at) {
		a.log.Debug("engine changed during save; staying dirty", zap.Uint64("revision", snap.Revision))
	}
	a.archiveLocked(ctx, snap.Meta.ID, snap.Loops.LoopEvents)
	return nil
}

// archiveLocked appends events newer than the last archived one. Failures
// are logged; the next save retries them.
func (a *Adapter) archiveLocked(ctx context.Context, campaignID string, events []campaign.LoopEvent) {
	if a.archive == nil || len(events) == 0 {
		return
	}
	fresh := events
	for i, ev := range events {
		if ev.ID == a.lastEventID {
			fresh = events[:i]
			break
		}
	}
	if len(fresh) == 0 {
		return
	}
	if err := a.archive.Append(ctx, campaignID, fresh); err != nil {
		a.log.Warn("loop event archive failed", zap.Error(err), zap.Int("events", len(fresh)))
		return
	}
	a.lastEventID = fresh[0].ID
}

// Load restores the engine from the stored snapshot. It reports false when
// nothing is stored, leaving the engine untouched.
func (a *Adapter) Load(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, ok, err := a.kv.Get(ctx, a.key)
	if err != nil {
		return false, fmt.Errorf("persist: load %s: %w", a.key, err)
	}
	if !ok {
		return false, nil
	}
	var snap campaign.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("persist: decode %s: %w", a.key, err)
	}
	if err := a.engine.Restore(snap); err != nil {
		return false, fmt.Errorf("persist: restore %s: %w", a.key, err)
	}
	if evs := snap.Loops.LoopEvents; len(evs) > 0 {
		a.lastEventID = evs[0].ID
	}
	a.log.Info("campaign loaded",
		zap.String("key", a.key),
		zap.Int("tracks", len(snap.Timeline.Tracks)),
		zap.Int("clips", len(snap.Timeline.Clips)),
		zap.Int("cards", len(snap.Cards.Cards)))
	return true, nil
}

// Run saves the engine every interval while it is dirty, until ctx is
// cancelled. A failed save is logged and retried on the next tick. A final
// save is attempted on the way out.
func (a *Adapter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.flush(ctx)
			return
		case <-ticker.C:
			if !a.engine.IsDirty() {
				continue
			}
			if err := a.Save(ctx); err != nil {
				a.log.Warn("autosave failed", zap.Error(err))
			}
		}
	}
}

func (a *Adapter) flush(parent context.Context) {
	if !a.engine.IsDirty() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), flushTimeout)
	defer cancel()
	if err := a.Save(ctx); err != nil {
		a.log.Error("final save failed", zap.Error(err))
		return
	}
	a.log.Info("campaign saved on shutdown", zap.String("key", a.key))
}
