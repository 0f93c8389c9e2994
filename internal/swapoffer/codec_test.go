package swapoffer

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
)

type fakeResolver struct {
	keys map[string]*btcec.PrivateKey
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{keys: make(map[string]*btcec.PrivateKey)}
}

func (r *fakeResolver) addLocal(t *testing.T) []byte {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	id := priv.PubKey().SerializeCompressed()
	r.keys[string(id)] = priv
	return id
}

func (r *fakeResolver) LocalSigningKey(publisherID []byte) (*btcec.PrivateKey, bool) {
	priv, ok := r.keys[string(publisherID)]
	return priv, ok
}

func testTxID(t *testing.T) core.TxID {
	t.Helper()
	id, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	id[3] = 9
	return id
}

func TestCreateMessageFailsForUnknownPublisher(t *testing.T) {
	t.Parallel()

	codec := NewCodec(newFakeResolver())
	offer := core.SwapOffer{TxID: testTxID(t), Status: core.OfferPending, PublisherID: []byte("not local")}

	_, ok := codec.CreateMessage(offer, []byte("not local"))
	require.False(t, ok)
}

func TestCreateMessageParseMessageRoundTrip(t *testing.T) {
	t.Parallel()

	resolver := newFakeResolver()
	publisherID := resolver.addLocal(t)
	codec := NewCodec(resolver)

	offer := core.SwapOffer{
		TxID:        testTxID(t),
		Status:      core.OfferPending,
		PublisherID: publisherID,
		Coin:        3,
		Parameters: map[core.ParameterID][]byte{
			core.MinHeight: {1, 2, 3},
		},
	}

	msg, ok := codec.CreateMessage(offer, publisherID)
	require.True(t, ok)

	got, ok := codec.ParseMessage(msg)
	require.True(t, ok)
	require.Equal(t, offer.TxID, got.TxID)
	require.Equal(t, offer.Status, got.Status)
	require.Equal(t, offer.PublisherID, got.PublisherID)
	require.Equal(t, offer.Coin, got.Coin)
	require.Equal(t, offer.Parameters, got.Parameters)
}

func TestParseMessageRejectsTamperedBytes(t *testing.T) {
	t.Parallel()

	resolver := newFakeResolver()
	publisherID := resolver.addLocal(t)
	codec := NewCodec(resolver)

	offer := core.SwapOffer{
		TxID:        testTxID(t),
		Status:      core.OfferPending,
		PublisherID: publisherID,
		Coin:        1,
		Parameters:  map[core.ParameterID][]byte{},
	}
	msg, ok := codec.CreateMessage(offer, publisherID)
	require.True(t, ok)

	for i := range msg {
		tampered := append([]byte(nil), msg...)
		tampered[i] ^= 0xFF
		_, ok := codec.ParseMessage(tampered)
		require.False(t, ok, "tampering byte %d should be rejected", i)
	}
}

func TestEncodeBodyIsDeterministicRegardlessOfMapOrder(t *testing.T) {
	t.Parallel()

	offer := core.SwapOffer{
		TxID:        testTxID(t),
		Status:      core.OfferPending,
		PublisherID: []byte{1, 2, 3},
		Coin:        7,
		Parameters: map[core.ParameterID][]byte{
			core.AtomicSwapAmount: {9},
			core.AtomicSwapCoin:   {1},
			core.MinHeight:        {2},
			core.PeerResponseTime: {3},
			core.Amount:           {4},
		},
	}

	first := encodeBody(offer)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, encodeBody(offer), "same logical offer must encode to the same bytes every time")
	}
}

func TestParseMessageRejectsTruncated(t *testing.T) {
	t.Parallel()

	_, ok := NewCodec(newFakeResolver()).ParseMessage([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestCreateMessageRejectsMismatchedPublisher(t *testing.T) {
	t.Parallel()

	resolver := newFakeResolver()
	signer := resolver.addLocal(t)
	codec := NewCodec(resolver)

	claimed, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	offer := core.SwapOffer{
		TxID:        testTxID(t),
		Status:      core.OfferPending,
		PublisherID: claimed.PubKey().SerializeCompressed(),
		Coin:        1,
		Parameters:  map[core.ParameterID][]byte{},
	}

	msg, ok := codec.CreateMessage(offer, signer)
	require.False(t, ok, "signer is not the claimed publisher, so create must fail")
	require.Nil(t, msg)
}
