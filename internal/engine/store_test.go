package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statecore/internal/ir"
	"github.com/roach88/statecore/internal/state"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(NewSequenceGenerator("n")),
		WithNow(FixedNow(testNow)),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func settle(t *testing.T, s *Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Settle(ctx))
}

// recorder collects values delivered to a callback.
type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

func TestStore_InitialState(t *testing.T) {
	s := newTestStore(t)
	cur := s.Current()

	assert.False(t, cur.User().IsAuthenticated)
	assert.Equal(t, "light", cur.UI().Theme)
	assert.Equal(t, int64(0), cur.Seq())
}

func TestStore_SubscribeEmitsCurrentFirst(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetTheme("dark"))

	var got recorder[state.AppState]
	sub := s.Subscribe(got.add)
	defer sub.Unsubscribe()
	settle(t, s)

	values := got.all()
	require.Len(t, values, 1)
	assert.Equal(t, "dark", values[0].UI().Theme)
}

func TestStore_DeliversEverySnapshotInOrder(t *testing.T) {
	s := newTestStore(t)

	var a, b recorder[int64]
	subA := s.Subscribe(func(st state.AppState) { a.add(st.Seq()) })
	subB := s.Subscribe(func(st state.AppState) {
		time.Sleep(time.Millisecond) // slow subscriber
		b.add(st.Seq())
	})
	defer subA.Unsubscribe()
	defer subB.Unsubscribe()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.SetLoading(i%2 == 0))
	}
	settle(t, s)

	assert.Equal(t, a.all(), b.all(), "all observers see the same sequence")
	seqs := a.all()
	require.Len(t, seqs, 21)
	for i := 1; i < len(seqs); i++ {
		assert.Equal(t, seqs[i-1]+1, seqs[i])
	}
}

func TestStore_UpdateDoesNotWaitForCallbacks(t *testing.T) {
	s := newTestStore(t)

	release := make(chan struct{})
	sub := s.Subscribe(func(state.AppState) { <-release })
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			_ = s.SetLoading(i%2 == 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Update blocked on a slow subscriber")
	}
	close(release)
	settle(t, s)
}

func TestStore_UpdateMergeSemantics(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(ir.Obj(
		ir.O("ui", ir.Obj(ir.O("notifications", ir.IRArray{ir.Obj(
			ir.O("id", ir.IRString("a")),
			ir.O("message", ir.IRString("one")),
			ir.O("type", ir.IRString("info")),
			ir.O("timestamp", ir.IRInt(1)),
			ir.O("read", ir.IRBool(false)),
		)}))),
	)))
	require.NoError(t, s.Update(ir.Obj(ir.O("ui", ir.Obj(ir.O("notifications", ir.IRArray{}))))))

	ui := s.Current().UI()
	assert.Empty(t, ui.Notifications, "arrays are replaced, not concatenated")
	assert.Equal(t, "light", ui.Theme, "siblings survive")
}

func TestStore_UpdateIdempotent(t *testing.T) {
	s := newTestStore(t)
	patch := ir.Obj(ir.O("ui", ir.Obj(ir.O("theme", ir.IRString("dark")))))

	require.NoError(t, s.Update(patch))
	once := s.Current()
	require.NoError(t, s.Update(patch))

	assert.True(t, once.Equal(s.Current()))
	assert.Greater(t, s.Current().Seq(), once.Seq(), "every update publishes")
}

func TestStore_PreviousSnapshotUnchanged(t *testing.T) {
	s := newTestStore(t)
	before := s.Current()

	require.NoError(t, s.SetTheme("dark"))

	assert.Equal(t, "light", before.UI().Theme)
	assert.Equal(t, "dark", s.Current().UI().Theme)
}

func TestStore_UnknownSlicesSurvive(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Update(ir.Obj(ir.O("analytics", ir.Obj(ir.O("sessionId", ir.IRString("x")))))))
	require.NoError(t, s.SetTheme("dark"))

	v, ok := s.Current().Lookup("analytics.sessionId")
	require.True(t, ok)
	assert.Equal(t, ir.IRString("x"), v)
}

func TestStore_RejectsInvalidPatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	s := newTestStore(t, WithMetrics(m))
	before := s.Current()

	tests := []struct {
		name  string
		patch ir.IRObject
		code  UpdateErrorCode
	}{
		{"scalar ui", ir.Obj(ir.O("ui", ir.IRString("x")), ir.O("user", ir.Obj(ir.O("username", ir.IRString("ada"))))), ErrCodeInvalidSlice},
		{"removed user", ir.Obj(ir.O("user", ir.IRNull{})), ErrCodeInvalidSlice},
		{"wrong field type", ir.Obj(ir.O("ui", ir.Obj(ir.O("isLoading", ir.IRString("yes"))))), ErrCodeInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Update(tt.patch)
			require.Error(t, err)
			assert.True(t, IsUpdateError(err, tt.code), "got %v", err)
		})
	}

	assert.True(t, before.Equal(s.Current()), "state untouched, siblings included")
	assert.Equal(t, before.Seq(), s.Current().Seq(), "nothing published")
	assert.Equal(t, float64(3), testutil.ToFloat64(m.updates.WithLabelValues("update", "rejected")))
}

type rejectAll struct{}

func (rejectAll) ValidateState(state.AppState) error { return errors.New("nope") }

func TestStore_ValidatorViolation(t *testing.T) {
	_, err := New(WithValidator(rejectAll{}))
	require.Error(t, err, "initial state is validated too")

	schema, err := state.NewSchema()
	require.NoError(t, err)
	s := newTestStore(t, WithValidator(schema))

	err = s.Update(ir.Obj(ir.O("ui", ir.Obj(ir.O("colour", ir.IRString("red"))))))
	assert.True(t, IsUpdateError(err, ErrCodeSchemaViolation), "got %v", err)

	var ue *UpdateError
	require.True(t, errors.As(err, &ue))
	var se *state.SchemaError
	assert.True(t, errors.As(ue, &se))
}

func TestStore_InitialOverlay(t *testing.T) {
	s := newTestStore(t, WithInitialOverlay(ir.Obj(ir.O("ui", ir.Obj(ir.O("theme", ir.IRString("nord")))))))
	assert.Equal(t, "nord", s.Current().UI().Theme)

	require.NoError(t, s.SetTheme("dark"))
	require.NoError(t, s.Reset())
	assert.Equal(t, "nord", s.Current().UI().Theme, "reset restores the overlaid initial state")

	_, err := New(WithInitialOverlay(ir.Obj(ir.O("ui", ir.IRInt(1)))))
	assert.Error(t, err)
}

func TestStore_ResetRestoresDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetAuthState(true, &state.UserData{Username: state.String("ada")}))
	require.NoError(t, s.SetTheme("dark"))
	_, err := s.AddNotification("hi", state.NotificationInfo, nil)
	require.NoError(t, err)

	require.NoError(t, s.Reset())

	assert.True(t, s.Current().Equal(s.Initial()))
}

func TestStore_Replace(t *testing.T) {
	s := newTestStore(t)
	target := s.Current().Apply(state.ThemePatch("dracula"))

	require.NoError(t, s.Replace(target))
	assert.Equal(t, "dracula", s.Current().UI().Theme)

	broken := state.FromTree(ir.Obj(ir.O("ui", ir.Obj())))
	err := s.Replace(broken)
	assert.True(t, IsUpdateError(err, ErrCodeInvalidSlice))
	assert.Equal(t, "dracula", s.Current().UI().Theme)
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := newTestStore(t)

	var got recorder[int64]
	sub := s.Subscribe(func(st state.AppState) { got.add(st.Seq()) })
	settle(t, s)
	assert.Equal(t, 1, s.SubscriberCount())

	sub.Unsubscribe()
	sub.Unsubscribe()
	<-sub.Done()
	assert.Equal(t, 0, s.SubscriberCount())

	require.NoError(t, s.SetLoading(true))
	settle(t, s)
	assert.Len(t, got.all(), 1)
}

func TestStore_UnsubscribeFromCallback(t *testing.T) {
	s := newTestStore(t)

	var got recorder[int64]
	var sub *Subscription
	ready := make(chan struct{})
	sub = s.Subscribe(func(st state.AppState) {
		<-ready
		got.add(st.Seq())
		sub.Unsubscribe()
	})
	require.NoError(t, s.SetLoading(true))
	close(ready)
	settle(t, s)

	assert.Len(t, got.all(), 1)
}

func TestStore_CallbackMayUpdate(t *testing.T) {
	s := newTestStore(t)

	sub := s.Subscribe(func(st state.AppState) {
		if st.UI().IsLoading {
			_ = s.SetLoading(false)
		}
	})
	defer sub.Unsubscribe()

	require.NoError(t, s.SetLoading(true))
	settle(t, s)

	assert.False(t, s.Current().UI().IsLoading, "settle waits for cascaded updates")
}

func TestStore_PanickingSubscriberIsContained(t *testing.T) {
	s := newTestStore(t)

	bad := s.Subscribe(func(state.AppState) { panic("boom") })
	defer bad.Unsubscribe()
	var got recorder[int64]
	good := s.Subscribe(func(st state.AppState) { got.add(st.Seq()) })
	defer good.Unsubscribe()

	require.NoError(t, s.SetLoading(true))
	settle(t, s)
	assert.Len(t, got.all(), 2)
}

func TestStore_Close(t *testing.T) {
	s, err := New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	sub := s.Subscribe(func(state.AppState) {})
	s.Close()
	s.Close()

	<-sub.Done()
	assert.True(t, sub.Closed())
	assert.ErrorIs(t, s.SetLoading(true), ErrClosed)

	late := s.Subscribe(func(state.AppState) { t.Error("closed store delivered") })
	<-late.Done()
	settle(t, s)
}

func TestStore_SettleHonoursContext(t *testing.T) {
	s := newTestStore(t)

	release := make(chan struct{})
	sub := s.Subscribe(func(state.AppState) { <-release })
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Settle(ctx), context.DeadlineExceeded)

	close(release)
	settle(t, s)
}

func TestMetrics_NilRegistererDisables(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
	m.recordApplied("update", 1) // nil-safe
}

func TestMetrics_Recorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	s := newTestStore(t, WithMetrics(m))

	sub := s.Subscribe(func(state.AppState) {})
	defer sub.Unsubscribe()
	require.NoError(t, s.SetTheme("dark"))
	require.NoError(t, s.Reset())
	settle(t, s)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.updates.WithLabelValues("set_theme", "applied")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.updates.WithLabelValues("reset", "applied")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.seq))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.subscribers))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.queued))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice fails")
}
