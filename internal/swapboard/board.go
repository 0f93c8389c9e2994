// Package swapboard is the Swap Offers Board: an in-memory index of
// published swap offers, their admission rules, and observer fan-out.
package swapboard

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mimblecoin/walletcore/internal/broadcast"
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/swapoffer"
)

// TransactionLookup consults the transaction store for the linked-tx
// status the board's admission rule and on_transaction_changed both need,
// per §4.8's "delayed update" rule: an offer whose linked transaction has
// already left Pending is not admitted. Removal of an indexed offer is
// done by OnTransactionChanged, which drops it when its atomic-swap
// transaction moves to InProgress, Canceled or Failed.
type TransactionLookup interface {
	// TxStatus reports the status and type of txID, or found=false if no
	// such transaction is known.
	TxStatus(txID core.TxID) (status core.TxStatus, txType core.TxType, found bool)
}

// Observer is notified of every change to the board's offer set, in
// subscription order; notifications are synchronous on the delivery
// thread.
type Observer interface {
	OnOfferAdded(offer core.SwapOffer)
	OnOfferRemoved(txID core.TxID)
}

// Board is the in-memory swap offers index.
type Board struct {
	mu sync.Mutex

	offers    map[core.TxID]core.SwapOffer
	observers []Observer

	codec  *swapoffer.Codec
	router *broadcast.Router
	txs    TransactionLookup

	tipHeight uint64
}

// NewBoard constructs an empty Board. codec signs and verifies offer
// wire messages; router carries them over the BBS transport; txs answers
// the linked-transaction status queries the admission rule needs.
func NewBoard(codec *swapoffer.Codec, router *broadcast.Router, txs TransactionLookup) *Board {
	return &Board{
		offers: make(map[core.TxID]core.SwapOffer),
		codec:  codec,
		router: router,
		txs:    txs,
	}
}

// Subscribe appends observer to the notification list, in subscription
// order.
func (b *Board) Subscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, observer)
}

// Unsubscribe removes observer from the notification list.
func (b *Board) Unsubscribe(observer Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	filtered := b.observers[:0]
	for _, o := range b.observers {
		if o != observer {
			filtered = append(filtered, o)
		}
	}
	b.observers = filtered
}

// PublishOffer validates, signs, broadcasts and locally indexes offer,
// per publish_offer's admission checks:
//   - offer.Coin must not be CoinUnknown
//   - offer.Status must be OfferPending
//   - every parameter in MandatorySwapParameters must be present
//   - offer.PublisherID must be a local address
//   - offer.TxID must not already be on the board
//   - the offer must not already be expired against the current tip
func (b *Board) PublishOffer(offer core.SwapOffer) error {
	if err := validateOffer(offer); err != nil {
		return err
	}

	b.mu.Lock()
	if _, exists := b.offers[offer.TxID]; exists {
		b.mu.Unlock()
		return newErr(ErrOfferAlreadyPublished, "offer already published for this transaction")
	}
	if expired(offer, b.tipHeight) {
		b.mu.Unlock()
		return newErr(ErrExpiredOffer, "offer already expired at current tip")
	}
	b.mu.Unlock()

	msg, ok := b.codec.CreateMessage(offer, offer.PublisherID)
	if !ok {
		return newErr(ErrForeignOffer, "publisher_id is not a local address")
	}

	if err := b.router.SendRawMessage(broadcast.ContentSwapOffers, msg); err != nil {
		return err
	}

	offer.IsOwn = true
	b.insert(offer)
	return nil
}

// OnMessage implements broadcast.Listener: it decodes and admits an
// inbound offer received over the BBS transport. Duplicate offers (by
// TxID) and offers whose linked transaction has already left Pending are
// silently dropped, per §4.8's delayed-update rule; a malformed or
// unverifiable message returns accepted=false. The router does not act
// on the returned value: it has already recorded the payload's hash in
// its dedup cache before dispatching.
func (b *Board) OnMessage(_ int64, payload []byte) (accepted bool) {
	offer, ok := b.codec.ParseMessage(payload)
	if !ok {
		return false
	}

	b.mu.Lock()
	if _, exists := b.offers[offer.TxID]; exists {
		b.mu.Unlock()
		return true
	}
	if expired(offer, b.tipHeight) {
		b.mu.Unlock()
		return true
	}
	b.mu.Unlock()

	if status, _, found := b.txs.TxStatus(offer.TxID); found && status != core.TxStatusPending {
		return true
	}

	b.insert(offer)
	return true
}

// OnTransactionChanged removes an atomic-swap offer once its linked
// transaction moves to InProgress, Canceled, or Failed: an offer only
// makes sense while its transaction is still Pending. Any other status,
// including Completed, is ignored.
func (b *Board) OnTransactionChanged(txID core.TxID, status core.TxStatus, txType core.TxType) {
	if txType != core.TxTypeAtomicSwap {
		return
	}
	switch status {
	case core.TxStatusInProgress, core.TxStatusCanceled, core.TxStatusFailed:
		b.remove(txID)
	}
}

// OnSystemStateChanged advances the board's notion of the current tip and
// expires every offer whose ExpiryHeight is now at or below it, per
// §4.8's "expired by min_height + peer_response_time".
func (b *Board) OnSystemStateChanged(newHeight uint64) {
	b.mu.Lock()
	b.tipHeight = newHeight
	var toExpire []core.TxID
	for txID, offer := range b.offers {
		if expired(offer, newHeight) {
			toExpire = append(toExpire, txID)
		}
	}
	b.mu.Unlock()

	for _, txID := range toExpire {
		b.remove(txID)
	}
}

// Offers returns a snapshot of every currently published offer.
func (b *Board) Offers() []core.SwapOffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]core.SwapOffer, 0, len(b.offers))
	for _, o := range b.offers {
		out = append(out, o)
	}
	return out
}

func (b *Board) insert(offer core.SwapOffer) {
	b.mu.Lock()
	b.offers[offer.TxID] = offer
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()

	notify(observers, func(o Observer) { o.OnOfferAdded(offer) })
}

func (b *Board) remove(txID core.TxID) {
	b.mu.Lock()
	if _, exists := b.offers[txID]; !exists {
		b.mu.Unlock()
		return
	}
	delete(b.offers, txID)
	observers := append([]Observer(nil), b.observers...)
	b.mu.Unlock()

	notify(observers, func(o Observer) { o.OnOfferRemoved(txID) })
}

// notify fans a notification out to every observer as a single joined
// unit of work, delivered in subscription order. A concurrency limit of
// 1 makes errgroup deliver strictly in submission order while still
// giving the board one awaitable unit rather than a hand-rolled loop
// with its own recover/error bookkeeping. Observer callbacks are not
// expected to fail; the error return is unused.
func notify(observers []Observer, fn func(Observer)) {
	var g errgroup.Group
	g.SetLimit(1)
	for _, o := range observers {
		o := o
		g.Go(func() error {
			fn(o)
			return nil
		})
	}
	_ = g.Wait()
}

func validateOffer(offer core.SwapOffer) error {
	if offer.Status != core.OfferPending {
		return newErr(ErrInvalidOffer, "offer status must be Pending to publish")
	}
	if offer.Coin == core.CoinUnknown {
		return newErr(ErrInvalidOffer, "offer must select a coin")
	}
	if missing, ok := offer.MissingMandatory(); ok {
		return newErr(ErrInvalidOffer, fmt.Sprintf("missing mandatory parameter %d", missing))
	}
	return nil
}

func expired(offer core.SwapOffer, tipHeight uint64) bool {
	minHeight, ok1 := readUint64(offer, core.MinHeight)
	peerResponseTime, ok2 := readUint64(offer, core.PeerResponseTime)
	if !ok1 || !ok2 {
		return false
	}
	return offer.ExpiryHeight(minHeight, peerResponseTime) <= tipHeight
}

// readUint64 decodes offer's raw blob for id as a uint64, per the
// ParameterID → TypeTag dispatch (internal/core.TagUint64 for both
// MinHeight and PeerResponseTime).
func readUint64(offer core.SwapOffer, id core.ParameterID) (uint64, bool) {
	blob, ok := offer.Parameters[id]
	if !ok {
		return 0, false
	}
	v, err := params.DecodeUint64(blob)
	if err != nil {
		return 0, false
	}
	return v, true
}
