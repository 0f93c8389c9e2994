package txengine

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/require"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/gateway"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/params"
	"github.com/mimblecoin/walletcore/internal/store"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "wallet.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func newTestKeyKeeper(t *testing.T) *keykeeper.Local {
	t.Helper()
	master, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	kk, err := keykeeper.NewLocal(master)
	require.NoError(t, err)
	return kk
}

func testTxID(t *testing.T, tag byte) core.TxID {
	t.Helper()
	id, err := core.TxIDFromBytes(make([]byte, 16))
	require.NoError(t, err)
	id[15] = tag
	return id
}

func newTrackedTransfer(t *testing.T, db *store.DB, gw gateway.Gateway) (*Manager, *Tx, core.TxID) {
	t.Helper()
	mgr := NewManager(db, newTestKeyKeeper(t), gw)
	mgr.RegisterNegotiator(core.TxTypeSimple, func() Negotiator { return NewTransferNegotiator() })

	txID := testTxID(t, 1)
	tx, err := mgr.Track(txID, core.TxTypeSimple)
	require.NoError(t, err)
	return mgr, tx, txID
}

func setAmount(t *testing.T, db *store.DB, txID core.TxID, amount uint64) {
	t.Helper()
	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		return params.Set(pm, core.Amount, amount, true, core.DefaultSubID)
	}))
}

func setPeerIDs(t *testing.T, db *store.DB, txID core.TxID) {
	t.Helper()
	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		if err := params.Set(pm, core.MyID, []byte("me"), true, core.DefaultSubID); err != nil {
			return err
		}
		return params.Set(pm, core.PeerID, []byte("peer"), false, core.DefaultSubID)
	}))
}

func statusOf(t *testing.T, db *store.DB, txID core.TxID) core.TxStatus {
	t.Helper()
	var status core.TxStatus
	require.NoError(t, db.View(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		s, err := currentStatus(pm)
		if err != nil {
			return err
		}
		status = s
		return nil
	}))
	return status
}

func TestTransferHappyPath(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	setAmount(t, db, txID, 1000)
	setPeerIDs(t, db, txID)

	// Pending -> InProgress: negotiate sends our half to the peer.
	tx.Update()
	require.Equal(t, core.TxStatusInProgress, statusOf(t, db, txID))
	require.Len(t, gw.SentMessages(), 1)

	// InProgress, still waiting on the peer's signature: no progress.
	tx.Update()
	require.Equal(t, core.TxStatusInProgress, statusOf(t, db, txID))

	// Peer responds with its signature share.
	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		return params.Set(pm, core.PeerSignature, []byte("peer sig"), true, core.DefaultSubID)
	}))

	// InProgress -> Registering: sign locally and confirm the kernel.
	tx.Update()
	require.Equal(t, core.TxStatusRegistering, statusOf(t, db, txID))
	require.Equal(t, 1, len(gw.SentMessages())) // no additional peer send this round

	// Registering, no proof yet: no progress.
	tx.Update()
	require.Equal(t, core.TxStatusRegistering, statusOf(t, db, txID))

	// The gateway's proof callback records the proof height directly on
	// the Parameter Map, then drives another round.
	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		return params.Set(pm, core.KernelProofHeight, uint64(100), false, core.DefaultSubID)
	}))

	// Registering -> Completed.
	tx.Update()
	require.Equal(t, core.TxStatusCompleted, statusOf(t, db, txID))
	require.Equal(t, []core.TxID{txID}, gw.Completed())

	// Update on an already-terminal transaction is a no-op.
	tx.Update()
	require.Equal(t, core.TxStatusCompleted, statusOf(t, db, txID))
}

func TestTransferMissingAmountFailsOnFirstRound(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	tx.Update()
	require.Equal(t, core.TxStatusFailed, statusOf(t, db, txID))
}

func TestTransferExpiresWhenTipPassesMaxHeight(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	setAmount(t, db, txID, 1000)
	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		return params.Set(pm, core.MaxHeight, uint64(50), true, core.DefaultSubID)
	}))

	tx.Update() // Pending -> InProgress
	require.Equal(t, core.TxStatusInProgress, statusOf(t, db, txID))

	gw.SetTip(core.ChainStateRow{Height: 51})
	tx.Update()
	require.Equal(t, core.TxStatusFailed, statusOf(t, db, txID))
	require.Equal(t, []core.TxID{txID}, gw.Completed())
}

func TestCancelFromPendingSendsNoPeerMessage(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	require.NoError(t, tx.Cancel())
	require.Equal(t, core.TxStatusCanceled, statusOf(t, db, txID))
	require.Empty(t, gw.SentMessages())
}

func TestCancelFromInProgressNotifiesPeerExactlyOnce(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	setAmount(t, db, txID, 1000)
	setPeerIDs(t, db, txID)
	tx.Update() // Pending -> InProgress, one peer send

	require.NoError(t, tx.Cancel())
	require.Equal(t, core.TxStatusCanceled, statusOf(t, db, txID))
	require.Len(t, gw.SentMessages(), 2, "negotiate's send plus cancel's failure notification")
	require.Equal(t, []core.TxID{txID}, gw.Completed())

	// Cancel is idempotent-safe to call again is not guaranteed by the
	// contract (status is no longer Pending/InProgress), so a second
	// call must be rejected rather than double-notify the peer.
	err := tx.Cancel()
	require.Error(t, err)
	require.Len(t, gw.SentMessages(), 2)
}

func TestCancelRejectedFromTerminalStatus(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, _ := newTrackedTransfer(t, db, gw)

	require.NoError(t, tx.Cancel())
	err := tx.Cancel()
	require.Error(t, err)
}

func TestRollbackBelowResetsRegisteringOnlyAboveHeight(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	gw := gateway.NewLoopback()
	_, tx, txID := newTrackedTransfer(t, db, gw)

	require.NoError(t, db.Update(func(dtx *store.Tx) error {
		pm := params.New(dtx, txID)
		if err := params.Set(pm, core.KernelProofHeight, uint64(100), false, core.DefaultSubID); err != nil {
			return err
		}
		return params.Set(pm, core.Status, core.TxStatusCompleted, true, core.DefaultSubID)
	}))

	// Rollback below a height still above the recorded proof: no-op.
	require.NoError(t, tx.RollbackBelow(150))
	require.Equal(t, core.TxStatusCompleted, statusOf(t, db, txID))

	// Rollback below a height under the recorded proof: reverts to
	// Registering.
	require.NoError(t, tx.RollbackBelow(50))
	require.Equal(t, core.TxStatusRegistering, statusOf(t, db, txID))
}
