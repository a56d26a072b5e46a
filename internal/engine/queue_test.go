package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[string]()

	for _, s := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(s))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestQueue_WaitSignals(t *testing.T) {
	q := newQueue[int]()

	done := make(chan int)
	go func() {
		<-q.Wait()
		v, _ := q.TryDequeue()
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("waiter was not signaled")
	}
}

func TestQueue_CloseDropsAndRejects(t *testing.T) {
	q := newQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)

	assert.Equal(t, 2, q.Close())
	assert.True(t, q.Closed())
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Enqueue(3), "enqueue after close should fail")
	assert.Equal(t, 0, q.Close(), "second close is a no-op")

	_, open := <-q.Wait()
	for open {
		_, open = <-q.Wait()
	}
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := newQueue[int]()
	const goroutines, perG = 10, 100

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				q.Enqueue(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perG, q.Len())
}
