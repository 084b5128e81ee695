package bridge

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zindlerb/bridgefs/pkg/loop"
)

func newTestBridge(t *testing.T, initLaunch Launcher) *Bridge {
	t.Helper()

	l := loop.Start()
	b := New(l, initLaunch)
	t.Cleanup(l.Close)
	t.Cleanup(b.Close)
	return b
}

func TestRunDeliversResult(t *testing.T) {
	b := newTestBridge(t, nil)

	res := b.Run(func(resume Resume) {
		resume(Result{Long: 42})
	})
	assert.Equal(t, int64(42), res.Long)
}

func TestRunDeliversDeferredResult(t *testing.T) {
	b := newTestBridge(t, nil)

	// The launcher returns before the result exists; the completion
	// arrives on a later loop turn, like a real async backend.
	res := b.Run(func(resume Resume) {
		b.loop.Schedule(func() {
			resume(Result{Long: 7})
		})
	})
	assert.Equal(t, int64(7), res.Long)
}

func TestInitRunsOnceBeforeFirstJob(t *testing.T) {
	var inits atomic.Int32
	var order []string
	var mu sync.Mutex

	b := newTestBridge(t, func(resume Resume) {
		inits.Add(1)
		mu.Lock()
		order = append(order, "init")
		mu.Unlock()
		resume(Result{})
	})

	for i := 0; i < 3; i++ {
		b.Run(func(resume Resume) {
			mu.Lock()
			order = append(order, "job")
			mu.Unlock()
			resume(Result{})
		})
	}

	assert.Equal(t, int32(1), inits.Load())
	require.Equal(t, []string{"init", "job", "job", "job"}, order)
}

func TestResumeCalledExactlyOnce(t *testing.T) {
	b := newTestBridge(t, nil)

	var completions atomic.Int32
	const runs = 50
	for i := 0; i < runs; i++ {
		b.Run(func(resume Resume) {
			completions.Add(1)
			resume(Result{})
		})
	}
	assert.Equal(t, int32(runs), completions.Load())
}

func TestMutualExclusion(t *testing.T) {
	b := newTestBridge(t, nil)

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				b.Run(func(resume Resume) {
					n := inFlight.Add(1)
					for {
						max := maxInFlight.Load()
						if n <= max || maxInFlight.CompareAndSwap(max, n) {
							break
						}
					}
					b.loop.Schedule(func() {
						inFlight.Add(-1)
						resume(Result{})
					})
				})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load(), "at most one job in flight")
}

func TestProgramOrderPerGoroutine(t *testing.T) {
	b := newTestBridge(t, nil)

	var got []int64
	for i := int64(0); i < 20; i++ {
		i := i
		res := b.Run(func(resume Resume) {
			resume(Result{Long: i})
		})
		got = append(got, res.Long)
	}
	for i, v := range got {
		assert.Equal(t, int64(i), v)
	}
}

func TestErrnoResult(t *testing.T) {
	b := newTestBridge(t, nil)

	res := b.Run(func(resume Resume) {
		resume(Result{Code: 2})
	})
	assert.Equal(t, uint32(2), uint32(res.Code))
}
