package txengine

import (
	"crypto/sha256"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/keykeeper"
	"github.com/mimblecoin/walletcore/internal/params"
)

// TransferNegotiator drives a simple two-party transfer: register the
// transaction with the peer, sign it once both sides have exchanged
// their half, request a kernel proof, and settle once the proof arrives.
type TransferNegotiator struct{}

// NewTransferNegotiator constructs a TransferNegotiator.
func NewTransferNegotiator() *TransferNegotiator {
	return &TransferNegotiator{}
}

func (n *TransferNegotiator) UpdateImpl(ctx *UpdateContext) (Outcome, error) {
	status, err := currentStatus(ctx.Params)
	if err != nil {
		return Outcome{}, err
	}

	switch status {
	case core.TxStatusPending:
		return n.negotiate(ctx)
	case core.TxStatusInProgress:
		return n.signAndRegister(ctx)
	case core.TxStatusRegistering:
		return n.awaitProof(ctx)
	default:
		return Progressed(), nil
	}
}

// negotiate moves a freshly created transfer into InProgress and sends
// its public parameters to the peer.
func (n *TransferNegotiator) negotiate(ctx *UpdateContext) (Outcome, error) {
	if _, err := params.GetMandatory[uint64](ctx.Params, core.Amount); err != nil {
		return Failed(core.FailureMissingMandatoryParameter, true), nil
	}

	if err := params.Set(ctx.Params, core.Status, core.TxStatusInProgress, true, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}
	if err := SendTxParameters(ctx); err != nil {
		return Outcome{}, err
	}
	// The peer's signature share arrives later, via whatever inbound
	// transport calls Manager.Update once it lands. Mark it outstanding
	// here; signAndRegister clears it the round it sees the share.
	ctx.Async.AsyncStarted()
	return BlockedOnPeer(), nil
}

// signAndRegister waits for the peer's nonce and signature share, then
// signs locally, marks the transaction registered, and asks the gateway
// to confirm the kernel — all inside one round, since the Key Keeper call
// is synchronous in the Local implementation this module ships.
func (n *TransferNegotiator) signAndRegister(ctx *UpdateContext) (Outcome, error) {
	if ctx.KeyKeeper == nil {
		return Failed(core.FailureNoKeyKeeper, true), nil
	}

	peerSigOpt, err := params.Get[[]byte](ctx.Params, core.PeerSignature, core.DefaultSubID)
	if err != nil {
		return Outcome{}, err
	}
	if peerSigOpt.IsNone() {
		return BlockedOnPeer(), nil
	}
	ctx.Async.AsyncFinished()

	slot, err := ctx.KeyKeeper.SlotAllocate()
	if err != nil {
		return Failed(core.FailureKeyKeeperError, true), nil
	}
	defer ctx.KeyKeeper.SlotFree(slot)

	digest := sha256.Sum256(ctx.TxID[:])
	sig, kkStatus, err := ctx.KeyKeeper.Sign(0, keykeeper.KeyTypeSpend, slot, digest)
	if err != nil || kkStatus == keykeeper.StatusError {
		return Failed(core.FailureKeyKeeperError, true), nil
	}
	if kkStatus == keykeeper.StatusUserAbort {
		return Failed(core.FailureKeyKeeperUserAbort, true), nil
	}

	kernelID := sha256.Sum256(sig)
	if err := params.Set(ctx.Params, core.KernelID, kernelID[:], false, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}
	if err := params.Set(ctx.Params, core.TransactionRegistered, true, false, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}
	if err := params.Set(ctx.Params, core.Status, core.TxStatusRegistering, true, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}

	if err := ctx.Gateway.ConfirmKernel(ctx.TxID, kernelID[:]); err != nil {
		return Failed(core.FailureFailedToRegister, true), nil
	}
	ctx.Gateway.UpdateOnNextTip(ctx.TxID)

	// The kernel proof arrives later via the gateway's proof callback.
	// awaitProof clears this the round KernelProofHeight shows up.
	ctx.Async.AsyncStarted()
	return BlockedOnProof(), nil
}

// awaitProof settles the transaction once a kernel proof height has been
// recorded by the gateway's proof callback (which sets KernelProofHeight
// via the Parameter Map directly, then calls Manager.Update to drive
// another round).
func (n *TransferNegotiator) awaitProof(ctx *UpdateContext) (Outcome, error) {
	proofHeightOpt, err := params.Get[uint64](ctx.Params, core.KernelProofHeight, core.DefaultSubID)
	if err != nil {
		return Outcome{}, err
	}
	if proofHeightOpt.IsNone() {
		return BlockedOnProof(), nil
	}
	proofHeight := proofHeightOpt.UnwrapOr(0)
	if proofHeight == 0 {
		return BlockedOnProof(), nil
	}
	ctx.Async.AsyncFinished()

	if err := params.Set(ctx.Params, core.Status, core.TxStatusCompleted, true, core.DefaultSubID); err != nil {
		return Outcome{}, err
	}
	ctx.Gateway.OnTxCompleted(ctx.TxID)
	return Progressed(), nil
}
