// Package events is the Event Fan-out: a single registered observer sink
// notified of every externally visible change to wallet state. One
// internal fan-out point observers attach to, narrowed to a single sink.
package events

import (
	"github.com/mimblecoin/walletcore/internal/core"
)

// Sink receives every category of notification the wallet core emits.
// Implementations must not block: at-least-once delivery on the reactor
// goroutine means a slow sink stalls every other posted operation.
type Sink interface {
	OnTxStatusChanged(desc core.TxDescription)
	OnAllUTXOChanged(coins []core.Coin)
	OnAddressesChanged(addresses []core.Address)
	OnSyncProgress(done, total int64)
	OnOfferChanged(offer core.SwapOffer, removed bool)
}

// Dispatcher holds the single registered Sink and forwards every event to
// it, per §4.10's "a single registered observer sink." Calling any
// dispatch method with no sink registered is a safe no-op.
type Dispatcher struct {
	sink Sink
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// SetSink registers sink as the receiver of every future event,
// replacing any previously registered sink.
func (d *Dispatcher) SetSink(sink Sink) {
	d.sink = sink
}

// ClearSink unregisters the current sink.
func (d *Dispatcher) ClearSink() {
	d.sink = nil
}

func (d *Dispatcher) TxStatusChanged(desc core.TxDescription) {
	if d.sink != nil {
		d.sink.OnTxStatusChanged(desc)
	}
}

func (d *Dispatcher) AllUTXOChanged(coins []core.Coin) {
	if d.sink != nil {
		d.sink.OnAllUTXOChanged(coins)
	}
}

func (d *Dispatcher) AddressesChanged(addresses []core.Address) {
	if d.sink != nil {
		d.sink.OnAddressesChanged(addresses)
	}
}

func (d *Dispatcher) SyncProgress(done, total int64) {
	if d.sink != nil {
		d.sink.OnSyncProgress(done, total)
	}
}

func (d *Dispatcher) OfferChanged(offer core.SwapOffer, removed bool) {
	if d.sink != nil {
		d.sink.OnOfferChanged(offer, removed)
	}
}
