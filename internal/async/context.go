// Package async is the Async Context: a re-entrancy guard and
// self-reschedule mechanism for state-machine updates.
package async

import (
	"sync/atomic"

	"github.com/mimblecoin/walletcore/internal/core"
)

// Scheduler posts a self-reschedule event for txID. The event carries no
// pointer back into the transaction — only the id — so a transaction that
// has since been destroyed is simply not found when the event fires; this
// is a weak self-reference realized as a table lookup instead of a
// language-level weak pointer.
type Scheduler interface {
	Schedule(txID core.TxID)
}

// Context brackets every asynchronous operation a single transaction
// initiates (a peer send, a proof request, a self-reschedule) with a
// matched AsyncStarted/AsyncFinished pair, and exposes the idempotent
// UpdateAsync self-reschedule.
type Context struct {
	txID      core.TxID
	scheduler Scheduler

	outstanding int32 // atomic
	pending     int32 // atomic: 1 iff a self-event is already queued
}

// NewContext binds a Context to a transaction id and the scheduler used to
// post its self-reschedule events.
func NewContext(txID core.TxID, scheduler Scheduler) *Context {
	return &Context{txID: txID, scheduler: scheduler}
}

// AsyncStarted increments the outstanding-async counter. Call it
// immediately before initiating any operation whose result arrives via a
// later callback.
func (c *Context) AsyncStarted() {
	atomic.AddInt32(&c.outstanding, 1)
}

// AsyncFinished decrements the outstanding-async counter. Call it exactly
// once for every AsyncStarted, when the corresponding callback fires (or
// is abandoned).
func (c *Context) AsyncFinished() {
	atomic.AddInt32(&c.outstanding, -1)
}

// Outstanding reports the current number of in-flight asynchronous
// operations this transaction initiated.
func (c *Context) Outstanding() int32 {
	return atomic.LoadInt32(&c.outstanding)
}

// UpdateAsync is an idempotent self-reschedule: if no self-event is
// currently pending for this transaction, one is created and posted; a
// second call before the first fires is a no-op.
func (c *Context) UpdateAsync() {
	if atomic.CompareAndSwapInt32(&c.pending, 0, 1) {
		c.scheduler.Schedule(c.txID)
	}
}

// EventFired must be called by the owner (txengine.Manager) exactly once
// per fired self-event, before it invokes the transaction's Update. It
// clears the pending flag so a subsequent UpdateAsync call schedules a
// fresh event rather than being swallowed as a duplicate.
func (c *Context) EventFired() {
	atomic.StoreInt32(&c.pending, 0)
}
