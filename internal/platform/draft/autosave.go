package draft

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
)

// Record wraps a draft payload with its save time. SavedAt is informational
// only; restore decisions never depend on it.
type Record struct {
	Payload json.RawMessage `json:"payload"`
	SavedAt time.Time       `json:"savedAt"`
}

// Snapshot captures the owner's current editable state. Returning a nil
// payload means there is nothing worth keeping and the draft key should be
// deleted rather than written.
type Snapshot func() ([]byte, error)

// Autosaver debounces draft writes for one owning store. Every MarkDirty
// call cancels the pending timer and starts a new one, so a burst of edits
// collapses into a single write after the quiet period. At most one write
// is scheduled at any time.
type Autosaver struct {
	store    Store
	interval time.Duration
	snapshot Snapshot
	log      zerolog.Logger
	metrics  *telemetry.Metrics

	mu     sync.Mutex
	key    string
	active bool
	timer  *time.Timer
}

func NewAutosaver(store Store, interval time.Duration, snapshot Snapshot, log zerolog.Logger, metrics *telemetry.Metrics) *Autosaver {
	return &Autosaver{
		store:    store,
		interval: interval,
		snapshot: snapshot,
		log:      log.With().Str("component", "autosave").Logger(),
		metrics:  metrics,
	}
}

// Activate switches the saver onto key and returns any previously saved
// payload for it. The caller decides whether the payload may be applied;
// in-memory state loaded from the server always wins over a stale draft.
func (a *Autosaver) Activate(key string) ([]byte, bool) {
	a.mu.Lock()
	a.key = key
	a.active = true
	a.mu.Unlock()

	value, ok, err := a.store.Get(key)
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("draft read failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(value, &rec); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("draft unreadable, discarding")
		_ = a.store.Delete(key)
		return nil, false
	}
	if a.metrics != nil {
		a.metrics.DraftRestoreTotal.Inc()
	}
	return rec.Payload, true
}

// MarkDirty (re)schedules a write after the quiet period. A no-op while the
// saver is inactive.
func (a *Autosaver) MarkDirty() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.interval, a.flush)
}

func (a *Autosaver) flush() {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	key := a.key
	a.mu.Unlock()

	payload, err := a.snapshot()
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("draft snapshot failed")
		a.count("failed")
		return
	}

	if payload == nil {
		if err := a.store.Delete(key); err != nil {
			a.log.Warn().Err(err).Str("key", key).Msg("draft delete failed")
			a.count("failed")
			return
		}
		a.count("deleted")
		return
	}

	value, err := json.Marshal(Record{Payload: payload, SavedAt: time.Now()})
	if err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("draft encode failed")
		a.count("failed")
		return
	}
	if err := a.store.Put(key, value); err != nil {
		a.log.Warn().Err(err).Str("key", key).Msg("draft write failed")
		a.count("failed")
		return
	}
	a.count("saved")
}

// Clear deletes the draft key and cancels any pending write. Called after a
// confirmed submission and on teardown.
func (a *Autosaver) Clear() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	key := a.key
	active := a.active
	a.mu.Unlock()

	if active {
		if err := a.store.Delete(key); err != nil {
			a.log.Warn().Err(err).Str("key", key).Msg("draft clear failed")
		}
	}
}

// Deactivate stops future writes without touching the stored draft. The
// owning store calls this on teardown so a workspace opened later for a
// different visit cannot inherit the watcher.
func (a *Autosaver) Deactivate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.active = false
	a.key = ""
}

func (a *Autosaver) count(result string) {
	if a.metrics != nil {
		a.metrics.DraftWritesTotal.WithLabelValues(result).Inc()
	}
}
