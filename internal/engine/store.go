package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

func defaultNow() time.Time { return time.Now() }

// Validator checks a merged snapshot before it is published.
// *state.Schema implements it for strict mode.
type Validator interface {
	ValidateState(state.AppState) error
}

// Store holds the current application state and publishes every new
// snapshot to its subscribers.
//
// Thread-safety model:
//   - Current(), Subscribe(), mutations: safe from any goroutine
//   - Subscriber callbacks run on the subscription's own goroutine and may
//     call back into the store (including mutations)
//   - Settle() must not be called from a subscriber callback
type Store struct {
	mu      sync.RWMutex // writer lock; Current takes the read side
	current state.AppState
	initial ir.IRObject
	subs    []*Subscription
	nextID  uint64
	closed  bool

	clock     *Clock
	ids       IDGenerator
	now       NowFunc
	logger    *slog.Logger
	validator Validator
	metrics   *Metrics

	pendingMu   sync.Mutex
	pendingCond *sync.Cond
	pending     int // snapshots enqueued but not yet delivered
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithValidator enables strict validation of every merged snapshot.
func WithValidator(v Validator) Option {
	return func(s *Store) {
		s.validator = v
	}
}

// WithMetrics records store metrics. A nil *Metrics is allowed.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithIDGenerator sets the notification id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithNow sets the wall clock used for notification timestamps.
func WithNow(now NowFunc) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInitialOverlay merges overlay into the built-in initial state. The
// result is used at construction and by Reset.
func WithInitialOverlay(overlay ir.IRObject) Option {
	return func(s *Store) {
		s.initial = ir.DeepMerge(s.initial, overlay)
	}
}

// New creates a Store holding the initial state.
//
// Returns an error if the initial state (including any overlay) does not
// validate.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		initial: state.Initial(),
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		now:     defaultNow,
		logger:  slog.Default(),
	}
	s.pendingCond = sync.NewCond(&s.pendingMu)

	for _, opt := range opts {
		opt(s)
	}

	initial := state.FromTree(s.initial)
	if err := s.check(initial); err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	s.current = initial
	return s, nil
}

// Current returns the current snapshot. It never blocks on subscribers.
func (s *Store) Current() state.AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Initial returns the snapshot Reset publishes.
func (s *Store) Initial() state.AppState {
	return state.FromTree(s.initial)
}

// Subscribe registers fn for the current snapshot and every later one, in
// publication order. fn runs on a goroutine owned by the subscription.
//
// Subscribing to a closed store returns an already-closed Subscription.
func (s *Store) Subscribe(fn func(state.AppState)) *Subscription {
	sub := &Subscription{
		store: s,
		q:     newQueue[state.AppState](),
		fn:    fn,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.closed.Store(true)
		sub.q.Close()
		close(sub.done)
		return sub
	}
	s.nextID++
	sub.id = s.nextID
	s.subs = append(s.subs, sub)
	s.addPending(1)
	sub.q.Enqueue(s.current)
	s.metrics.setSubscribers(len(s.subs))
	s.mu.Unlock()

	go sub.run()
	return sub
}

// SubscriberCount returns the number of live subscriptions.
func (s *Store) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// Update deep-merges patch into the current state and publishes the result.
//
// Objects merge recursively; arrays, scalars and values absent on either
// side are replaced; an explicit null removes the key. The previous snapshot
// is never modified.
func (s *Store) Update(patch ir.IRObject) error {
	return s.apply("update", func(state.AppState) (ir.IRObject, error) {
		return patch, nil
	})
}

// Reset publishes the initial state.
func (s *Store) Reset() error {
	return s.commit("reset", func() (state.AppState, error) {
		return state.FromTree(s.initial), nil
	})
}

// Replace publishes st wholesale, discarding the current state. Used by
// time travel.
func (s *Store) Replace(st state.AppState) error {
	return s.commit("replace", func() (state.AppState, error) {
		return st, nil
	})
}

// Settle blocks until every snapshot published so far, and every snapshot
// published by callbacks in response, has been delivered.
func (s *Store) Settle(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.pendingMu.Lock()
		s.pendingCond.Broadcast()
		s.pendingMu.Unlock()
	})
	defer stop()

	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	for s.pending > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.pendingCond.Wait()
	}
	return nil
}

// Close unsubscribes every subscriber. Later mutations return ErrClosed.
// Close is idempotent.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.metrics.setSubscribers(0)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
	s.logger.Debug("store closed", "subscribers", len(subs))
}

// apply computes a patch against the current state under the writer lock,
// then merges, validates and publishes it.
func (s *Store) apply(op string, build func(cur state.AppState) (ir.IRObject, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	patch, err := build(s.current)
	if err != nil {
		return s.reject(op, err)
	}
	if err := state.ValidatePatch(patch); err != nil {
		return s.reject(op, newUpdateError(err))
	}

	next := s.current.Apply(patch)
	if err := s.check(next); err != nil {
		return s.reject(op, err)
	}

	s.publishLocked(op, next)
	return nil
}

// commit validates and publishes a whole snapshot.
func (s *Store) commit(op string, build func() (state.AppState, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	next, err := build()
	if err != nil {
		return s.reject(op, err)
	}
	if err := s.check(next); err != nil {
		return s.reject(op, err)
	}

	s.publishLocked(op, next)
	return nil
}

// check validates a merged snapshot. Failures are returned as *UpdateError.
func (s *Store) check(next state.AppState) error {
	if err := state.Validate(next); err != nil {
		return newUpdateError(err)
	}
	if s.validator != nil {
		if err := s.validator.ValidateState(next); err != nil {
			return &UpdateError{Code: ErrCodeSchemaViolation, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// reject logs and counts a failed mutation. Errors other than *UpdateError
// (a derived op failing to build its patch) are returned wrapped.
func (s *Store) reject(op string, err error) error {
	var ue *UpdateError
	if errors.As(err, &ue) {
		s.metrics.recordRejected(op, ue.Code)
		s.logger.Warn("update rejected", "op", op, "code", ue.Code, "slice", ue.Slice, "error", ue.Message)
		return err
	}
	s.logger.Warn("update failed", "op", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// publishLocked stamps next and hands it to every subscriber.
// Caller must hold s.mu.
func (s *Store) publishLocked(op string, next state.AppState) {
	seq := s.clock.Next()
	next = next.WithSeq(seq)
	s.current = next

	s.addPending(len(s.subs))
	for _, sub := range s.subs {
		if !sub.q.Enqueue(next) {
			s.donePending(1)
		}
	}

	s.metrics.recordApplied(op, seq)
	s.logger.Debug("state published", "op", op, "seq", seq, "subscribers", len(s.subs))
}

func (s *Store) remove(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.Index(s.subs, sub); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}
	s.metrics.setSubscribers(len(s.subs))
}

func (s *Store) addPending(n int) {
	if n == 0 {
		return
	}
	s.pendingMu.Lock()
	s.pending += n
	s.metrics.setPending(s.pending)
	s.pendingMu.Unlock()
}

func (s *Store) donePending(n int) {
	if n == 0 {
		return
	}
	s.pendingMu.Lock()
	s.pending -= n
	s.metrics.setPending(s.pending)
	if s.pending <= 0 {
		s.pending = 0
		s.pendingCond.Broadcast()
	}
	s.pendingMu.Unlock()
}
