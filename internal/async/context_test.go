package async

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
)

type fakeScheduler struct {
	scheduled []core.TxID
}

func (f *fakeScheduler) Schedule(txID core.TxID) {
	f.scheduled = append(f.scheduled, txID)
}

func TestUpdateAsyncIsIdempotentUntilFired(t *testing.T) {
	txID := core.NewTxID()
	sched := &fakeScheduler{}
	ctx := NewContext(txID, sched)

	ctx.UpdateAsync()
	ctx.UpdateAsync()
	ctx.UpdateAsync()
	require.Len(t, sched.scheduled, 1, "a second self-reschedule before the first fires must be a no-op")

	ctx.EventFired()
	ctx.UpdateAsync()
	require.Len(t, sched.scheduled, 2, "EventFired clears pending, so the next UpdateAsync schedules a fresh event")
}

func TestAsyncStartedFinishedTracksOutstanding(t *testing.T) {
	ctx := NewContext(core.NewTxID(), &fakeScheduler{})
	require.Zero(t, ctx.Outstanding())

	ctx.AsyncStarted()
	ctx.AsyncStarted()
	require.EqualValues(t, 2, ctx.Outstanding())

	ctx.AsyncFinished()
	require.EqualValues(t, 1, ctx.Outstanding())
	ctx.AsyncFinished()
	require.Zero(t, ctx.Outstanding())
}

// TestScheduleDropsUnknownTxID exercises the weak self-reference contract
// from the owning side: a Scheduler implementation is expected to look the
// txID up in its live table and silently do nothing if it's gone, rather
// than dereferencing a pointer to a destroyed transaction. fakeScheduler
// here stands in for txengine.Manager.Schedule.
func TestScheduleDropsUnknownTxID(t *testing.T) {
	live := map[core.TxID]bool{}
	sched := schedulerFunc(func(txID core.TxID) {
		if !live[txID] {
			return
		}
		t.Fatalf("scheduled event fired for a transaction no longer tracked")
	})

	txID := core.NewTxID()
	ctx := NewContext(txID, sched)
	// txID was never added to live: this models a transaction destroyed
	// between UpdateAsync and the event actually firing.
	ctx.UpdateAsync()
}

type schedulerFunc func(core.TxID)

func (f schedulerFunc) Schedule(txID core.TxID) { f(txID) }
