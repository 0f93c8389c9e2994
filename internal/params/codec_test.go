package params

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		id    core.ParameterID
		value interface{}
	}{
		{"bool", core.TransactionRegistered, true},
		{"uint64", core.Amount, uint64(1234567890)},
		{"int64", core.CreateTime, int64(-42)},
		{"string", core.Message, "hello wallet"},
		{"bytes", core.MyID, []byte{1, 2, 3, 4}},
		{"status", core.Status, core.TxStatusRegistering},
		{"failure reason", core.FailureReasonParam, core.FailureCanceled},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			blob, err := encode(tc.id, tc.value)
			require.NoError(t, err)
			require.Equal(t, wireVersion, blob[0])

			decoded, err := decode(tc.id, blob)
			require.NoError(t, err)
			require.Equal(t, tc.value, decoded)
		})
	}
}

func TestEncodeWrongType(t *testing.T) {
	t.Parallel()

	_, err := encode(core.Amount, "not a uint64")
	require.Error(t, err)
}

func TestDecodeRejectsUnknownWireVersion(t *testing.T) {
	t.Parallel()

	blob, err := encode(core.Amount, uint64(1))
	require.NoError(t, err)
	blob[0] = wireVersion + 1

	_, err = decode(core.Amount, blob)
	require.Error(t, err)
}

func TestDecodeRejectsEmptyBlob(t *testing.T) {
	t.Parallel()

	_, err := decode(core.Amount, nil)
	require.Error(t, err)
}

func TestCoinIDListRoundTrip(t *testing.T) {
	t.Parallel()

	ids := []core.CoinID{
		{Type: 1, SubIdx: 0, Value: 100},
		{Type: 2, SubIdx: 3, Value: 200},
	}
	blob, err := encode(core.InputCoins, ids)
	require.NoError(t, err)

	decoded, err := decode(core.InputCoins, blob)
	require.NoError(t, err)
	require.Equal(t, ids, decoded)
}

func TestDecodeUint64(t *testing.T) {
	t.Parallel()

	blob, err := encode(core.MinHeight, uint64(500))
	require.NoError(t, err)

	v, err := DecodeUint64(blob)
	require.NoError(t, err)
	require.Equal(t, uint64(500), v)

	_, err = DecodeUint64([]byte{wireVersion, 1, 2, 3})
	require.Error(t, err)
}
