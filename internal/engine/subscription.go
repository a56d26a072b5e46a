package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roach88/statecore/internal/state"
)

// Subscription is a live registration of a callback on a Store.
type Subscription struct {
	id     uint64
	store  *Store
	q      *queue[state.AppState]
	fn     func(state.AppState)
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// Unsubscribe stops delivery. Snapshots still queued are dropped; a callback
// already running is allowed to finish. Unsubscribe is idempotent and may be
// called from inside the callback.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.remove(sub)
		sub.stop()
	})
}

// Done is closed once the delivery goroutine has exited.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Closed reports whether the subscription has been stopped.
func (sub *Subscription) Closed() bool {
	return sub.closed.Load()
}

func (sub *Subscription) stop() {
	if sub.closed.Swap(true) {
		return
	}
	sub.store.donePending(sub.q.Close())
}

// run drains the queue until it is closed.
func (sub *Subscription) run() {
	defer close(sub.done)
	for {
		for {
			snap, ok := sub.q.TryDequeue()
			if !ok {
				break
			}
			if !sub.closed.Load() {
				sub.deliver(snap)
			}
			sub.store.donePending(1)
		}
		if _, open := <-sub.q.Wait(); !open {
			return
		}
	}
}

// deliver runs the callback. A panicking callback is logged and does not
// take the delivery goroutine down.
func (sub *Subscription) deliver(snap state.AppState) {
	defer func() {
		if r := recover(); r != nil {
			sub.store.logger.Error("subscriber panicked",
				"subscription", sub.id,
				"seq", snap.Seq(),
				"panic", fmt.Sprint(r))
		}
	}()
	sub.fn(snap)
}
