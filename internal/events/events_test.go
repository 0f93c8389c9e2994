package events

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
)

type recordingSink struct {
	txStatus  []core.TxDescription
	utxo      [][]core.Coin
	addresses [][]core.Address
	sync      []struct{ done, total int64 }
	offers    []struct {
		offer   core.SwapOffer
		removed bool
	}
}

func (s *recordingSink) OnTxStatusChanged(desc core.TxDescription) {
	s.txStatus = append(s.txStatus, desc)
}

func (s *recordingSink) OnAllUTXOChanged(coins []core.Coin) {
	s.utxo = append(s.utxo, coins)
}

func (s *recordingSink) OnAddressesChanged(addresses []core.Address) {
	s.addresses = append(s.addresses, addresses)
}

func (s *recordingSink) OnSyncProgress(done, total int64) {
	s.sync = append(s.sync, struct{ done, total int64 }{done, total})
}

func (s *recordingSink) OnOfferChanged(offer core.SwapOffer, removed bool) {
	s.offers = append(s.offers, struct {
		offer   core.SwapOffer
		removed bool
	}{offer, removed})
}

func TestDispatcherWithNoSinkIsANoOp(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	d.TxStatusChanged(core.TxDescription{})
	d.AllUTXOChanged(nil)
	d.AddressesChanged(nil)
	d.SyncProgress(1, 2)
	d.OfferChanged(core.SwapOffer{}, false)
}

func TestDispatcherForwardsToRegisteredSink(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	sink := &recordingSink{}
	d.SetSink(sink)

	txID, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)

	d.TxStatusChanged(core.TxDescription{TxID: txID, Status: core.TxStatusCompleted})
	d.AllUTXOChanged([]core.Coin{{ID: core.CoinID{Value: 1}}})
	d.AddressesChanged([]core.Address{{Label: "primary"}})
	d.SyncProgress(5, 10)
	d.OfferChanged(core.SwapOffer{TxID: txID}, true)

	require.Len(t, sink.txStatus, 1)
	require.Equal(t, txID, sink.txStatus[0].TxID)
	require.Len(t, sink.utxo, 1)
	require.Len(t, sink.addresses, 1)
	require.Equal(t, []struct{ done, total int64 }{{5, 10}}, sink.sync)
	require.Len(t, sink.offers, 1)
	require.True(t, sink.offers[0].removed)
}

func TestDispatcherClearSinkStopsForwarding(t *testing.T) {
	t.Parallel()

	d := NewDispatcher()
	sink := &recordingSink{}
	d.SetSink(sink)
	d.ClearSink()

	d.SyncProgress(1, 1)
	require.Empty(t, sink.sync)
}
