package core

// SwapOffer is a signed, published willingness to enter a cross-chain
// swap. Parameters holds the full parameter set the offer was
// constructed from (including the mandatory ones listed below), so the
// board and the wire codec can round-trip an offer without loss.
type SwapOffer struct {
	TxID        TxID
	Status      OfferStatus
	PublisherID []byte
	Coin        uint64 // 0 == Unknown, rejected by publish_offer's InvalidOffer check
	Parameters  map[ParameterID][]byte

	// IsOwn is true for offers published locally (the board's
	// PublishOffer and the atomic-swap negotiator set it); offers
	// admitted from the network are left false, whatever their
	// PublisherID.
	IsOwn bool
}

// CoinUnknown is the sentinel value of SwapOffer.Coin meaning "no coin
// selected", which publish_offer must reject.
const CoinUnknown uint64 = 0

// MandatorySwapParameters is the fixed list of parameters required to be
// present on every swap offer.
var MandatorySwapParameters = []ParameterID{
	AtomicSwapCoin,
	AtomicSwapIsBeamSide,
	Amount,
	AtomicSwapAmount,
	MinHeight,
	PeerResponseTime,
}

// MissingMandatory returns the first mandatory parameter absent from the
// offer, or 0 if all are present.
func (o SwapOffer) MissingMandatory() (ParameterID, bool) {
	for _, id := range MandatorySwapParameters {
		if _, ok := o.Parameters[id]; !ok {
			return id, true
		}
	}
	return 0, false
}

// ExpiryHeight is min_height + peer_response_time, the height at which
// on_system_state_changed retires the offer.
func (o SwapOffer) ExpiryHeight(minHeight, peerResponseTime uint64) uint64 {
	return minHeight + peerResponseTime
}
