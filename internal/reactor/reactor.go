// Package reactor is the single-threaded cooperative reactor: the
// Transaction Engine's Manager posts its update rounds (Update and
// self-rescheduled events) here, so those rounds run one at a time on a
// single goroutine. Other entry points (Manager.Cancel,
// Manager.RollbackBelow, the broadcast router and the swap board) run on
// the caller's goroutine and guard their own state with mutexes.
package reactor

import (
	"context"

	"github.com/lightningnetwork/lnd/queue"
)

// dropOldestOnFull is the reactor queue's backpressure policy: under
// sustained overload, drop the oldest attempted enqueue rather than block
// the caller indefinitely. The reactor is expected to keep up in normal
// operation; this only bounds worst-case memory during a stall.
func dropOldestOnFull(queueLen int, _ func()) bool {
	const highWaterMark = 4096
	return queueLen >= highWaterMark
}

// Reactor drains a single FIFO of posted work on one goroutine.
type Reactor struct {
	work *queue.BackpressureQueue[func()]
	quit chan struct{}
	done chan struct{}
}

// New constructs a Reactor. Call Run in its own goroutine to start
// draining; call Stop to shut it down.
func New() *Reactor {
	return &Reactor{
		work: queue.NewBackpressureQueue[func()](1<<16, dropOldestOnFull),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Post enqueues fn to run on the reactor goroutine. Post never blocks the
// caller for long: it only blocks if the queue is transiently full, and
// even then the drop predicate bounds the wait.
func (r *Reactor) Post(fn func()) {
	ctx := context.Background()
	_ = r.work.Enqueue(ctx, fn)
}

// Run drains the work queue until Stop is called. It is meant to be the
// body of the single reactor goroutine; calling it from more than one
// goroutine defeats the single-threaded guarantee this package exists to
// provide.
func (r *Reactor) Run() {
	defer close(r.done)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-r.quit
		cancel()
	}()

	for {
		res := r.work.Dequeue(ctx)
		fn, err := res.Unpack()
		if err != nil {
			return
		}
		fn()
	}
}

// Stop signals Run to exit and waits for it to do so.
func (r *Reactor) Stop() {
	close(r.quit)
	<-r.done
}
