// Package bridge provides the rendezvous between goroutines issuing
// blocking filesystem calls and the event loop that executes the
// asynchronous backend primitives.
package bridge

import (
	"sync"

	"github.com/negrel/assert"

	"github.com/zindlerb/bridgefs/pkg/loop"
	"github.com/zindlerb/bridgefs/pkg/vfs"
)

// Result is a job's result slot: a syscall-style long return or a
// backend error code, depending on which primitive the launcher started.
type Result struct {
	Long int64
	Code vfs.Errno
}

// Resume delivers a job's result. Exactly one call must occur per
// launcher invocation, from the event-loop goroutine.
type Resume func(Result)

// Launcher starts one asynchronous backend operation. It runs on the
// event-loop goroutine with no locks held and must arrange for resume to
// be invoked when the operation completes.
type Launcher func(resume Resume)

// job carries one launcher and its result slot through the handshake.
// Each job is observed by exactly two goroutines: the submitter that
// created it and the event loop that completes it.
type job struct {
	launch Launcher
	result Result
}

// Bridge serializes blocking submitters against a single executor task
// on the event loop. Run blocks the calling goroutine until the
// launcher's continuation has delivered a result; the loop goroutine
// itself never blocks on backend completion, it returns to the scheduler
// between picking a job up and finishing it.
type Bridge struct {
	loop *loop.Loop

	// Serializes Run callers; at most one job is in flight system-wide.
	runMu sync.Mutex

	mu           sync.Mutex
	cond         *sync.Cond
	current      *job
	readyToWork  bool
	finishedWork bool
	initialized  bool
	quit         bool

	initLaunch Launcher
}

// New installs the executor task on l and takes a keep-alive token so
// the loop outlives pending work. initLaunch, if non-nil, is pushed
// through the handshake once, before the first submitted job.
func New(l *loop.Loop, initLaunch Launcher) *Bridge {
	b := &Bridge{loop: l, initLaunch: initLaunch}
	b.cond = sync.NewCond(&b.mu)
	l.KeepalivePush()
	l.Schedule(b.iter)
	return b
}

// Run executes launch on the event loop and blocks until its resume has
// been called. Safe to call from multiple goroutines; calls are
// serialized, so each caller observes strict program order.
func (b *Bridge) Run(launch Launcher) Result {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	if !b.initialized {
		if b.initLaunch != nil {
			b.push(&job{launch: b.initLaunch})
		}
		b.initialized = true
	}

	j := &job{launch: launch}
	b.push(j)
	return j.result
}

// push publishes one job to the executor and waits for completion.
func (b *Bridge) push(j *job) {
	b.mu.Lock()
	assert.False(b.readyToWork, "job already pending")
	b.current = j
	b.finishedWork = false
	b.readyToWork = true
	b.mu.Unlock()
	b.cond.Broadcast()

	b.mu.Lock()
	for !b.finishedWork {
		b.cond.Wait()
	}
	b.mu.Unlock()
}

// iter is the executor. Each invocation handles exactly one job: wait
// for it, start it, and hand the loop back. The completion continuation
// reschedules iter for the next job.
func (b *Bridge) iter() {
	b.mu.Lock()
	for !b.readyToWork {
		b.cond.Wait()
	}
	if b.quit {
		b.mu.Unlock()
		b.loop.KeepalivePop()
		return
	}
	j := b.current
	b.readyToWork = false
	b.mu.Unlock()

	// The launcher runs unlocked so the loop can keep turning across the
	// async operation's suspension points.
	j.launch(func(res Result) {
		j.result = res
		b.mu.Lock()
		b.finishedWork = true
		b.mu.Unlock()
		b.cond.Broadcast()
		b.loop.Schedule(b.iter)
	})
}

// Close wakes the executor and releases its keep-alive token. No Run
// call may be in flight or issued afterwards.
func (b *Bridge) Close() {
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.mu.Lock()
	b.quit = true
	b.readyToWork = true
	b.mu.Unlock()
	b.cond.Broadcast()
}
