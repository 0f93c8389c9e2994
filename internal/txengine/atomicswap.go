package txengine

import (
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/params"
)

// OfferPublisher is the Swap Offers Board's publish_offer entry point, as
// seen from a Negotiator: it takes an assembled offer and either accepts
// it (broadcasting and indexing it) or rejects it with a board-local
// error. Satisfied by swapboard.Board.
type OfferPublisher interface {
	PublishOffer(offer core.SwapOffer) error
}

// AtomicSwapNegotiator implements only the rendezvous half of an atomic
// swap; the actual cross-chain handshake protocol details are
// intentionally omitted. It ensures the mandatory swap parameters are
// present, publishes the offer to the Swap Offers Board, and then idles
// in InProgress — the counter-chain negotiation that eventually drives
// the transaction to Completed happens entirely outside this negotiator.
type AtomicSwapNegotiator struct {
	publisher OfferPublisher
}

// NewAtomicSwapNegotiator constructs an AtomicSwapNegotiator that
// publishes rendezvous offers via publisher.
func NewAtomicSwapNegotiator(publisher OfferPublisher) *AtomicSwapNegotiator {
	return &AtomicSwapNegotiator{publisher: publisher}
}

func (n *AtomicSwapNegotiator) UpdateImpl(ctx *UpdateContext) (Outcome, error) {
	status, err := currentStatus(ctx.Params)
	if err != nil {
		return Outcome{}, err
	}

	if status != core.TxStatusPending {
		// The handshake past rendezvous is out of scope; this negotiator
		// has nothing further to drive once the offer is published.
		return BlockedOnPeer(), nil
	}

	offer, err := assembleOffer(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := offer.MissingMandatory(); ok {
		return Failed(core.FailureMissingMandatoryParameter, true), nil
	}

	// The offer announcement is a fire-and-forget broadcast: whatever
	// happens next (a taker responding, a local cancel) happens entirely
	// outside this negotiator, so the outstanding marker brackets just the
	// publish call itself rather than spanning rounds like a peer send does.
	ctx.Async.AsyncStarted()
	err = n.publisher.PublishOffer(offer)
	ctx.Async.AsyncFinished()
	if err != nil {
		return Failed(core.FailureFailedToRegister, true), nil
	}

	if err := params.Set(ctx.Params, core.Status, core.TxStatusInProgress, true, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}

	// Broadcasting can take long enough for the tip read at the top of
	// this round to go stale; reschedule immediately so expiry is
	// rechecked against a freshly read tip rather than the stale snapshot.
	ctx.Async.UpdateAsync()
	return Progressed(), nil
}

// assembleOffer builds a core.SwapOffer from this transaction's currently
// stored parameter set, the shape the Offer Protocol Handler and the
// Swap Offers Board both operate on.
func assembleOffer(ctx *UpdateContext) (core.SwapOffer, error) {
	rows, err := ctx.Params.AllParameters()
	if err != nil {
		return core.SwapOffer{}, err
	}
	parameters := make(map[core.ParameterID][]byte, len(rows))
	for _, r := range rows {
		parameters[r.ParameterID] = r.Value
	}

	myIDOpt, err := params.Get[[]byte](ctx.Params, core.MyID, core.DefaultSubID)
	if err != nil {
		return core.SwapOffer{}, err
	}
	coinOpt, err := params.Get[uint64](ctx.Params, core.AtomicSwapCoin, core.DefaultSubID)
	if err != nil {
		return core.SwapOffer{}, err
	}

	return core.SwapOffer{
		TxID:        ctx.TxID,
		Status:      core.OfferPending,
		PublisherID: myIDOpt.UnwrapOr(nil),
		Coin:        coinOpt.UnwrapOr(core.CoinUnknown),
		Parameters:  parameters,
		IsOwn:       true,
	}, nil
}
