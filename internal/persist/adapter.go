package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

// DefaultDebounce is the quiet window before a change is written.
const DefaultDebounce = 300 * time.Millisecond

// RecordValidator checks a stored record before it is hydrated.
// *state.Schema implements it.
type RecordValidator interface {
	ValidateRecord(record ir.IRObject) error
}

// Adapter hydrates the store from durable storage and writes a whitelisted
// projection back after changes settle.
type Adapter struct {
	store     *engine.Store
	storage   Storage
	validator RecordValidator
	logger    *slog.Logger
	metrics   *Metrics
	debounce  time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	sub     *engine.Subscription
	baseSeq int64 // Store seq once hydration finished

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64 // Incremented whenever the pending write is replaced or dropped
	pending    state.AppState
	hasPending bool
	closed     bool

	// writeMu serializes storage writes and guards last.
	writeMu sync.Mutex
	last    string // Encoded record known to be in storage
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDebounce sets the quiet window. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.debounce = d
		}
	}
}

// WithValidator checks stored records against a schema before hydration.
func WithValidator(v RecordValidator) Option {
	return func(a *Adapter) {
		a.validator = v
	}
}

// WithMetrics records hydration and write counters.
func WithMetrics(m *Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// New hydrates st from storage and starts observing it.
//
// Hydration runs synchronously before New returns: the legacy theme key is
// applied first, then the appState record. A nil storage disables
// persistence; every method then does nothing.
//
// ctx bounds hydration and the adapter's later storage calls.
func New(ctx context.Context, st *engine.Store, storage Storage, opts ...Option) *Adapter {
	a := &Adapter{
		store:    st,
		storage:  storage,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(ctx)

	if storage == nil {
		a.logger.Info("storage unavailable, persistence disabled")
		return a
	}

	a.hydrate(a.ctx)
	a.baseSeq = st.Current().Seq()

	first := true
	a.sub = st.Subscribe(func(snap state.AppState) {
		// The first emission is the hydrated state itself.
		if first {
			first = false
			return
		}
		a.schedule(snap)
	})
	return a
}

// SaveNow writes the current state immediately, dropping any pending
// debounced write.
func (a *Adapter) SaveNow(ctx context.Context) error {
	if a.storage == nil {
		return ErrStorageUnavailable
	}
	a.dropPending()
	return a.write(ctx, a.store.Current())
}

// Clear removes the appState record and drops any pending write.
func (a *Adapter) Clear(ctx context.Context) error {
	if a.storage == nil {
		return ErrStorageUnavailable
	}
	a.dropPending()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.storage.Remove(ctx, RecordKey); err != nil {
		return fmt.Errorf("clear persisted state: %w", err)
	}
	a.last = ""
	return nil
}

// SaveTheme stores an explicit theme choice under the legacy theme key.
func (a *Adapter) SaveTheme(ctx context.Context, theme string) error {
	if a.storage == nil {
		return ErrStorageUnavailable
	}
	if err := a.storage.Set(ctx, ThemeKey, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

// ClearTheme removes the explicit theme choice.
func (a *Adapter) ClearTheme(ctx context.Context) error {
	if a.storage == nil {
		return ErrStorageUnavailable
	}
	if err := a.storage.Remove(ctx, ThemeKey); err != nil {
		return fmt.Errorf("clear theme: %w", err)
	}
	return nil
}

// ThemePreference returns the explicit theme choice, if one is stored.
func (a *Adapter) ThemePreference(ctx context.Context) (string, bool) {
	if a.storage == nil {
		return "", false
	}
	theme, ok, err := a.storage.Get(ctx, ThemeKey)
	if err != nil {
		a.logger.Warn("failed to read theme preference", "error", err)
		return "", false
	}
	return theme, ok
}

// Close stops observing the store. The current state is written before
// Close returns if it changed since hydration, including changes still
// queued for the subscription. Close is idempotent.
func (a *Adapter) Close() error {
	if a.sub != nil {
		a.sub.Unsubscribe()
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	pending := a.hasPending
	a.stopTimerLocked()
	a.mu.Unlock()

	var err error
	if a.storage != nil {
		if cur := a.store.Current(); pending || cur.Seq() != a.baseSeq {
			err = a.write(a.ctx, cur)
		}
	}
	a.cancel()
	return err
}

// hydrate applies the legacy theme key, then the appState record.
func (a *Adapter) hydrate(ctx context.Context) {
	if theme, ok := a.read(ctx, ThemeKey); ok {
		if state.IsKnownTheme(theme) {
			a.applyHydration(ThemeKey, state.UIThemePatch(theme))
		} else {
			a.logger.Warn("ignoring unknown stored theme", "theme", theme)
			a.metrics.recordHydration(ThemeKey, "invalid")
		}
	}

	raw, ok := a.read(ctx, RecordKey)
	if !ok {
		return
	}
	rec, err := decodeRecord(raw)
	if err == nil && a.validator != nil {
		err = a.validator.ValidateRecord(rec)
	}
	if err != nil {
		a.logger.Warn("failed to hydrate state", "key", RecordKey, "error", err)
		a.metrics.recordHydration(RecordKey, "invalid")
		return
	}

	patch := hydrationPatch(rec)
	if patch == nil {
		a.metrics.recordHydration(RecordKey, "empty")
		return
	}
	if a.applyHydration(RecordKey, patch) {
		a.last = raw
	}
}

func (a *Adapter) applyHydration(key string, patch ir.IRObject) bool {
	if err := a.store.Update(patch); err != nil {
		a.logger.Warn("failed to hydrate state", "key", key, "error", err)
		a.metrics.recordHydration(key, "invalid")
		return false
	}
	a.logger.Debug("state hydrated", "key", key)
	a.metrics.recordHydration(key, "applied")
	return true
}

// read returns a stored value. Missing keys and storage errors report false.
func (a *Adapter) read(ctx context.Context, key string) (string, bool) {
	v, ok, err := a.storage.Get(ctx, key)
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		a.logger.Info("storage unavailable, skipping hydration", "key", key)
		a.metrics.recordHydration(key, "failed")
		return "", false
	case err != nil:
		a.logger.Warn("failed to read stored state", "key", key, "error", err)
		a.metrics.recordHydration(key, "failed")
		return "", false
	case !ok:
		a.metrics.recordHydration(key, "missing")
		return "", false
	}
	return v, true
}

// schedule replaces the pending snapshot and restarts the quiet window.
func (a *Adapter) schedule(snap state.AppState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}

	a.stopTimerLocked()
	a.pending, a.hasPending = snap, true
	gen := a.gen
	a.timer = time.AfterFunc(a.debounce, func() { a.fire(gen) })
}

// fire writes the pending snapshot unless it was replaced or dropped after
// the timer was armed.
//
// writeMu is held across the check and the write, so a Clear or SaveNow that
// drops the pending snapshot either wins before the check or waits for the
// write to finish.
func (a *Adapter) fire(gen uint64) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.mu.Lock()
	if a.closed || gen != a.gen || !a.hasPending {
		a.mu.Unlock()
		return
	}
	snap := a.pending
	a.hasPending = false
	a.timer = nil
	a.mu.Unlock()

	if err := a.writeLocked(a.ctx, snap); err != nil {
		a.logger.Error("failed to persist state", "error", err)
	}
}

func (a *Adapter) dropPending() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimerLocked()
}

func (a *Adapter) stopTimerLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.pending, a.hasPending = state.AppState{}, false
}

// write stores the projection of snap unless storage already holds it.
func (a *Adapter) write(ctx context.Context, snap state.AppState) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return a.writeLocked(ctx, snap)
}

// writeLocked is write with writeMu held.
func (a *Adapter) writeLocked(ctx context.Context, snap state.AppState) error {
	encoded, err := Project(snap).Encode()
	if err != nil {
		return err
	}
	if encoded == a.last {
		a.metrics.recordWrite("skipped")
		return nil
	}
	if err := a.storage.Set(ctx, RecordKey, encoded); err != nil {
		a.metrics.recordWrite("failed")
		return fmt.Errorf("persist state: %w", err)
	}
	a.last = encoded
	a.metrics.recordWrite("written")
	a.logger.Debug("state persisted", "seq", snap.Seq())
	return nil
}
