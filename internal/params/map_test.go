package params

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "wallet.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func testTxID(t *testing.T) core.TxID {
	t.Helper()
	id, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	id[15] = 1
	return id
}

func TestMapGetSetRoundTrip(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	txID := testTxID(t)

	err := db.Update(func(tx *store.Tx) error {
		m := New(tx, txID)

		opt, err := Get[uint64](m, core.Amount, core.DefaultSubID)
		require.NoError(t, err)
		require.True(t, opt.IsNone())

		require.NoError(t, Set(m, core.Amount, uint64(500), true, core.DefaultSubID))

		opt, err = Get[uint64](m, core.Amount, core.DefaultSubID)
		require.NoError(t, err)
		require.True(t, opt.IsSome())
		require.Equal(t, uint64(500), opt.UnwrapOr(0))
		return nil
	})
	require.NoError(t, err)
}

func TestMapGetMandatoryMissing(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	txID := testTxID(t)

	err := db.Update(func(tx *store.Tx) error {
		m := New(tx, txID)
		_, err := GetMandatory[uint64](m, core.Amount)
		require.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestMapSetIsIdempotentOnEqualValue(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	txID := testTxID(t)

	err := db.Update(func(tx *store.Tx) error {
		m := New(tx, txID)
		require.NoError(t, Set(m, core.Amount, uint64(9), true, core.DefaultSubID))
		require.NoError(t, Set(m, core.Amount, uint64(9), true, core.DefaultSubID))

		rows, err := m.AllParameters()
		require.NoError(t, err)
		require.Len(t, rows, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestMapPublicParametersFiltersUnsent(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	txID := testTxID(t)

	err := db.Update(func(tx *store.Tx) error {
		m := New(tx, txID)
		require.NoError(t, Set(m, core.Amount, uint64(9), true, core.DefaultSubID))
		require.NoError(t, Set(m, core.KernelID, []byte{1, 2, 3}, false, core.DefaultSubID))

		pub, err := m.PublicParameters()
		require.NoError(t, err)
		require.Len(t, pub, 1)
		require.Equal(t, core.Amount, pub[0].ParameterID)

		all, err := m.AllParameters()
		require.NoError(t, err)
		require.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestMapDelete(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	txID := testTxID(t)

	err := db.Update(func(tx *store.Tx) error {
		m := New(tx, txID)
		require.NoError(t, Set(m, core.Amount, uint64(9), true, core.DefaultSubID))
		require.NoError(t, m.Delete(core.Amount, core.DefaultSubID))

		opt, err := Get[uint64](m, core.Amount, core.DefaultSubID)
		require.NoError(t, err)
		require.True(t, opt.IsNone())
		return nil
	})
	require.NoError(t, err)
}
