package debug

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/statecore/internal/engine"
	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
	"github.com/roach88/statecore/internal/store"
)

// DefaultCapacity is the number of history entries kept in memory.
const DefaultCapacity = 50

// Entry is one recorded state change.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Seq       int64          `json:"seq"`
	Action    string         `json:"action"`
	State     state.AppState `json:"state"`
	Changes   ir.IRObject    `json:"changes"`
}

// ChangedKeys returns the changed top-level slices in canonical order.
func (e Entry) ChangedKeys() []string {
	return e.Changes.SortedKeys()
}

// HistorySink receives every recorded entry. *store.Store implements it.
type HistorySink interface {
	AppendHistory(ctx context.Context, rec store.HistoryRecord) error
	TrimHistory(ctx context.Context, session string, keep int) error
}

// Recorder keeps a bounded history of state changes.
type Recorder struct {
	store    *engine.Store
	logger   *slog.Logger
	now      engine.NowFunc
	capacity int
	sink     HistorySink
	session  string

	ctx context.Context
	sub *engine.Subscription

	mu      sync.RWMutex
	history *ring[Entry]
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCapacity sets the number of entries kept in memory.
func WithCapacity(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithNow sets the clock used for entry timestamps.
func WithNow(now engine.NowFunc) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithSink also writes every entry to sink under session. The sink keeps
// the same number of entries per session as the in-memory history.
func WithSink(sink HistorySink, session string) Option {
	return func(r *Recorder) {
		r.sink = sink
		r.session = session
	}
}

// New starts recording changes published by st.
func New(ctx context.Context, st *engine.Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:    st,
		logger:   slog.Default(),
		now:      time.Now,
		capacity: DefaultCapacity,
		ctx:      ctx,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.history = newRing[Entry](r.capacity)

	r.sub = engine.Pairwise(st, func(s state.AppState) state.AppState { return s }, r.observe)
	r.logger.Info("state debug tools available", "capacity", r.capacity, "session", r.session)
	return r
}

// State returns the current state.
func (r *Recorder) State() state.AppState {
	return r.store.Current()
}

// History returns the recorded entries, oldest first.
func (r *Recorder) History() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.slice()
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.history.len()
}

// ResetState resets the store to its initial state.
func (r *Recorder) ResetState() error {
	return r.store.Reset()
}

// UpdateState deep-merges patch into the store.
func (r *Recorder) UpdateState(patch ir.IRObject) error {
	return r.store.Update(patch)
}

// TimeTravel replaces the state with the snapshot recorded at index.
// It returns false, leaving the state unchanged, when index is out of range
// or the snapshot is rejected by the store.
func (r *Recorder) TimeTravel(index int) bool {
	r.mu.RLock()
	entry, ok := r.history.at(index)
	size := r.history.len()
	r.mu.RUnlock()

	if !ok {
		r.logger.Warn("time travel index out of range", "index", index, "history", size)
		return false
	}
	if err := r.store.Replace(entry.State); err != nil {
		r.logger.Warn("time travel rejected", "index", index, "error", err)
		return false
	}
	r.logger.Debug("time travel", "index", index, "seq", entry.Seq)
	return true
}

// Help lists the debug commands.
func (r *Recorder) Help() string {
	var b strings.Builder
	b.WriteString("State debug tools:\n")
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-16s %s\n", c.usage, c.help)
	}
	return b.String()
}

// Close stops recording. The history stays readable.
func (r *Recorder) Close() {
	r.sub.Unsubscribe()
}

// observe records the change from prev to cur, if any top-level slice
// differs.
func (r *Recorder) observe(prev, cur state.AppState) {
	keys := state.ChangedSlices(prev, cur)
	if len(keys) == 0 {
		return
	}

	changes := make(ir.IRObject, len(keys))
	for _, k := range keys {
		v, ok := cur.Slice(k)
		if !ok {
			v = ir.IRNull{}
		}
		changes[k] = v
	}

	entry := Entry{
		Timestamp: r.now(),
		Seq:       cur.Seq(),
		Action:    "State updated: " + strings.Join(keys, ", "),
		State:     cur,
		Changes:   changes,
	}

	r.mu.Lock()
	evicted := r.history.push(entry)
	r.mu.Unlock()

	r.logger.Debug("state updated",
		"seq", entry.Seq,
		"changed", keys,
		"evicted", evicted)

	if r.sink != nil {
		r.persist(entry)
	}
}

func (r *Recorder) persist(e Entry) {
	rec := store.HistoryRecord{
		Session:     r.session,
		Seq:         e.Seq,
		RecordedAt:  e.Timestamp,
		Label:       e.Action,
		ChangedKeys: e.ChangedKeys(),
		Snapshot:    e.State.Tree(),
	}
	if err := r.sink.AppendHistory(r.ctx, rec); err != nil {
		r.logger.Warn("failed to store history entry", "seq", e.Seq, "error", err)
		return
	}
	if err := r.sink.TrimHistory(r.ctx, r.session, r.capacity); err != nil {
		r.logger.Warn("failed to trim stored history", "error", err)
	}
}
