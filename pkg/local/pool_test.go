package local

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPool_TaskExecution(t *testing.T) {
	p := NewPool(2)
	p.Start()

	var called int32
	p.Submit(func(int) { atomic.AddInt32(&called, 1) })
	p.Submit(func(int) { atomic.AddInt32(&called, 1) })

	// close and wait for tasks
	p.Close()
	require.Equal(t, int32(2), atomic.LoadInt32(&called))
}

func TestPool_WorkerIndex(t *testing.T) {
	p := NewPool(3)
	require.Equal(t, 3, p.Size())
	p.Start()

	var mu sync.Mutex
	seen := make(map[int]int)
	for range 30 {
		p.Submit(func(worker int) {
			time.Sleep(time.Millisecond)
			mu.Lock()
			seen[worker]++
			mu.Unlock()
		})
	}
	p.Close()

	total := 0
	for worker, n := range seen {
		require.GreaterOrEqual(t, worker, 0)
		require.Less(t, worker, 3)
		total += n
	}
	require.Equal(t, 30, total)
}

func TestPool_WorkerRunsOneTaskAtATime(t *testing.T) {
	p := NewPool(4)
	p.Start()

	var busy [4]int32
	var overlap atomic.Bool
	for range 40 {
		p.Submit(func(worker int) {
			if !atomic.CompareAndSwapInt32(&busy[worker], 0, 1) {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			atomic.StoreInt32(&busy[worker], 0)
		})
	}
	p.Close()

	require.False(t, overlap.Load())
}

func TestPool_CloseWaitsForLongTask(t *testing.T) {
	p := NewPool(1)
	p.Start()

	var done int32
	p.Submit(func(int) {
		time.Sleep(50 * time.Millisecond)
		atomic.StoreInt32(&done, 1)
	})

	// Close should wait for the running task to finish
	p.Close()
	require.Equal(t, int32(1), atomic.LoadInt32(&done))
}

func TestPool_SubmitAfterClosePanics(t *testing.T) {
	p := NewPool(1)
	p.Start()
	p.Close()

	// Submitting after close will panic; ensure it does and recover
	didPanic := false
	func() {
		defer func() {
			if r := recover(); r != nil {
				didPanic = true
			}
		}()
		p.Submit(func(int) {})
	}()
	require.True(t, didPanic)
}
