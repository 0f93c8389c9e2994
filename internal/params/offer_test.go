package params

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/store"
)

func TestEncodeDecodeOfferBodyRoundTrip(t *testing.T) {
	t.Parallel()

	txID, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	txID[0] = 0xAB

	rows := []store.TxParamRow{
		{ParameterID: core.MinHeight, Value: []byte{0, 0, 0, 0, 0, 0, 3, 232}},
		{ParameterID: core.PeerResponseTime, Value: []byte{0, 0, 0, 0, 0, 0, 0, 60}},
	}

	body := EncodeOfferBody(txID, core.OfferPending, []byte{2, 3, 4}, 7, rows)

	gotTxID, gotStatus, gotPub, gotCoin, gotRows, err := DecodeOfferBody(body)
	require.NoError(t, err)
	require.Equal(t, txID, gotTxID)
	require.Equal(t, core.OfferPending, gotStatus)
	require.Equal(t, []byte{2, 3, 4}, gotPub)
	require.Equal(t, uint64(7), gotCoin)
	require.Equal(t, rows, gotRows)
}

func TestDecodeOfferBodyRejectsTruncation(t *testing.T) {
	t.Parallel()

	txID, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	body := EncodeOfferBody(txID, core.OfferPending, []byte{1}, 1, nil)

	for n := 0; n < len(body); n++ {
		_, _, _, _, _, err := DecodeOfferBody(body[:n])
		require.Error(t, err, "truncating to %d bytes should fail", n)
	}
}

func TestDecodeOfferBodyRejectsTrailingBytes(t *testing.T) {
	t.Parallel()

	txID, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	body := EncodeOfferBody(txID, core.OfferPending, []byte{1}, 1, nil)
	body = append(body, 0xFF)

	_, _, _, _, _, err = DecodeOfferBody(body)
	require.Error(t, err)
}
