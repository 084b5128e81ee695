// Package loop runs the host event loop the async backend is bound to.
// Backend primitives may only execute on the loop goroutine; tasks run
// one at a time in submission order.
package loop

import (
	"runtime"
	"sync"

	"github.com/eapache/queue"
	"github.com/negrel/assert"
)

type Loop struct {
	mu        sync.Mutex
	wake      *sync.Cond
	tasks     *queue.Queue
	keepalive int
	closing   bool
	done      chan struct{}
}

// Start spawns the loop goroutine and begins processing tasks.
func Start() *Loop {
	l := &Loop{
		tasks: queue.New(),
		done:  make(chan struct{}),
	}
	l.wake = sync.NewCond(&l.mu)
	go l.run()
	return l
}

func (l *Loop) run() {
	runtime.LockOSThread()
	defer close(l.done)

	l.mu.Lock()
	for {
		for l.tasks.Length() == 0 {
			if l.closing && l.keepalive == 0 {
				l.mu.Unlock()
				return
			}
			l.wake.Wait()
		}
		task := l.tasks.Remove().(func())
		l.mu.Unlock()
		task()
		l.mu.Lock()
	}
}

// Schedule queues task for execution on the loop goroutine. Safe to call
// from any goroutine, including from a task already running on the loop.
func (l *Loop) Schedule(task func()) {
	l.mu.Lock()
	l.tasks.Add(task)
	l.mu.Unlock()
	l.wake.Signal()
}

// KeepalivePush prevents Close from stopping the loop until a matching
// KeepalivePop.
func (l *Loop) KeepalivePush() {
	l.mu.Lock()
	l.keepalive++
	l.mu.Unlock()
}

func (l *Loop) KeepalivePop() {
	l.mu.Lock()
	l.keepalive--
	assert.GreaterOrEqual(l.keepalive, 0, "keepalive underflow")
	l.mu.Unlock()
	l.wake.Signal()
}

// Close drains queued tasks, waits for keep-alive holders to let go and
// stops the loop goroutine.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()
	l.wake.Signal()
	<-l.done
}
