package swapboard

import (
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/broadcast"
	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/swapoffer"
)

type fakeSender struct{ sent [][]byte }

func (f *fakeSender) SendRaw(_ broadcast.ContentType, payload []byte) error {
	f.sent = append(f.sent, payload)
	return nil
}

type fakeResolver struct {
	id   []byte
	priv *btcec.PrivateKey
}

func (r *fakeResolver) LocalSigningKey(publisherID []byte) (*btcec.PrivateKey, bool) {
	if string(publisherID) != string(r.id) {
		return nil, false
	}
	return r.priv, true
}

type fakeTxLookup struct {
	statuses map[core.TxID]struct {
		status core.TxStatus
		txType core.TxType
	}
}

func newFakeTxLookup() *fakeTxLookup {
	return &fakeTxLookup{statuses: make(map[core.TxID]struct {
		status core.TxStatus
		txType core.TxType
	})}
}

func (l *fakeTxLookup) set(txID core.TxID, status core.TxStatus, txType core.TxType) {
	l.statuses[txID] = struct {
		status core.TxStatus
		txType core.TxType
	}{status, txType}
}

func (l *fakeTxLookup) TxStatus(txID core.TxID) (core.TxStatus, core.TxType, bool) {
	v, ok := l.statuses[txID]
	return v.status, v.txType, ok
}

type recordingObserver struct {
	added   []core.SwapOffer
	removed []core.TxID
}

func (o *recordingObserver) OnOfferAdded(offer core.SwapOffer) { o.added = append(o.added, offer) }
func (o *recordingObserver) OnOfferRemoved(txID core.TxID)     { o.removed = append(o.removed, txID) }

func testTxID(t *testing.T, tag byte) core.TxID {
	t.Helper()
	id, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	id[15] = tag
	return id
}

func mandatoryOffer(t *testing.T, txID core.TxID, publisherID []byte, coin uint64) core.SwapOffer {
	t.Helper()
	return core.SwapOffer{
		TxID:        txID,
		Status:      core.OfferPending,
		PublisherID: publisherID,
		Coin:        coin,
		Parameters: map[core.ParameterID][]byte{
			core.AtomicSwapCoin:       params.EncodeUint64(coin),
			core.AtomicSwapIsBeamSide: {1, 1}, // wireVersion + bool payload
			core.Amount:               params.EncodeUint64(1000),
			core.AtomicSwapAmount:     params.EncodeUint64(1000),
			core.MinHeight:            params.EncodeUint64(100),
			core.PeerResponseTime:     params.EncodeUint64(50),
		},
	}
}

func newTestBoard(t *testing.T) (*Board, *fakeResolver, *fakeTxLookup, *fakeSender) {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	resolver := &fakeResolver{id: priv.PubKey().SerializeCompressed(), priv: priv}
	codec := swapoffer.NewCodec(resolver)
	sender := &fakeSender{}
	router := broadcast.NewRouter(sender)
	lookup := newFakeTxLookup()
	board := NewBoard(codec, router, lookup)
	router.RegisterListener(broadcast.ContentSwapOffers, board)
	return board, resolver, lookup, sender
}

func TestPublishOfferExpiryByTip(t *testing.T) {
	t.Parallel()

	board, resolver, _, _ := newTestBoard(t)
	offer := mandatoryOffer(t, testTxID(t, 1), resolver.id, 1)

	require.NoError(t, board.PublishOffer(offer))
	require.Len(t, board.Offers(), 1)

	board.OnSystemStateChanged(149)
	require.Len(t, board.Offers(), 1)

	board.OnSystemStateChanged(150)
	require.Empty(t, board.Offers())
}

func TestOnMessageDedupsByTxID(t *testing.T) {
	t.Parallel()

	board, resolver, _, _ := newTestBoard(t)
	txID := testTxID(t, 2)

	offerBTC := mandatoryOffer(t, txID, resolver.id, 1)
	require.NoError(t, board.PublishOffer(offerBTC))

	offerQTUM := mandatoryOffer(t, txID, resolver.id, 2)
	msg, ok := swapoffer.NewCodec(resolver).CreateMessage(offerQTUM, resolver.id)
	require.True(t, ok)

	accepted := board.OnMessage(0, msg)
	require.True(t, accepted)

	offers := board.Offers()
	require.Len(t, offers, 1)
	require.Equal(t, uint64(1), offers[0].Coin, "canonical coin should remain the first published one")
}

func TestLinkedTxRemovesOffer(t *testing.T) {
	t.Parallel()

	board, resolver, _, _ := newTestBoard(t)

	var offers []core.SwapOffer
	for i := byte(1); i <= 6; i++ {
		o := mandatoryOffer(t, testTxID(t, i), resolver.id, uint64(i))
		require.NoError(t, board.PublishOffer(o))
		offers = append(offers, o)
	}
	require.Len(t, board.Offers(), 6)

	observer := &recordingObserver{}
	board.Subscribe(observer)

	board.OnTransactionChanged(offers[0].TxID, core.TxStatusInProgress, core.TxTypeAtomicSwap)
	board.OnTransactionChanged(offers[1].TxID, core.TxStatusCanceled, core.TxTypeAtomicSwap)
	board.OnTransactionChanged(offers[2].TxID, core.TxStatusFailed, core.TxTypeAtomicSwap)
	board.OnTransactionChanged(offers[3].TxID, core.TxStatusPending, core.TxTypeAtomicSwap)
	board.OnTransactionChanged(offers[4].TxID, core.TxStatusCompleted, core.TxTypeSimple)
	// Completed is ignored even for an AtomicSwap offer: only InProgress,
	// Canceled, and Failed remove it.
	board.OnTransactionChanged(offers[5].TxID, core.TxStatusCompleted, core.TxTypeAtomicSwap)

	require.Len(t, board.Offers(), 3)
	require.Len(t, observer.removed, 3)
}

func TestPublishOfferRejectsMissingMandatoryParameter(t *testing.T) {
	t.Parallel()

	for i, id := range core.MandatorySwapParameters {
		id := id
		t.Run(fmt.Sprintf("param%d", i), func(t *testing.T) {
			t.Parallel()

			board, resolver, _, _ := newTestBoard(t)
			offer := mandatoryOffer(t, testTxID(t, 1), resolver.id, 1)
			delete(offer.Parameters, id)

			err := board.PublishOffer(offer)
			require.Error(t, err)
			require.Empty(t, board.Offers())
		})
	}
}

func TestPublishOfferRejectsForeignPublisher(t *testing.T) {
	t.Parallel()

	board, _, _, _ := newTestBoard(t)
	offer := mandatoryOffer(t, testTxID(t, 1), []byte("someone else"), 1)

	err := board.PublishOffer(offer)
	require.Error(t, err)
}

func TestPublishOfferRejectsDuplicateTxID(t *testing.T) {
	t.Parallel()

	board, resolver, _, _ := newTestBoard(t)
	txID := testTxID(t, 1)

	require.NoError(t, board.PublishOffer(mandatoryOffer(t, txID, resolver.id, 1)))
	err := board.PublishOffer(mandatoryOffer(t, txID, resolver.id, 2))
	require.Error(t, err)
}

func TestOnMessageDelaysAdmissionForNonPendingLinkedTx(t *testing.T) {
	t.Parallel()

	board, resolver, lookup, _ := newTestBoard(t)
	txID := testTxID(t, 1)
	lookup.set(txID, core.TxStatusInProgress, core.TxTypeAtomicSwap)

	offer := mandatoryOffer(t, txID, resolver.id, 1)
	msg, ok := swapoffer.NewCodec(resolver).CreateMessage(offer, resolver.id)
	require.True(t, ok)

	accepted := board.OnMessage(0, msg)
	require.True(t, accepted)
	require.Empty(t, board.Offers())
}
