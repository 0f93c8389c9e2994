// Package gateway is the Transaction Engine's outbound edge: sending peer
// messages, requesting kernel proofs, reading the tip, and ref-counted
// async re-entrancy markers. The engine in internal/txengine keeps its
// own outstanding-async count in async.Context and does not call the
// Gateway's markers.
package gateway

import "github.com/mimblecoin/walletcore/internal/core"

// PeerMessage is the wire shape sent to a remote peer during negotiation:
// {tx_id, tx_type, from_id, params}.
type PeerMessage struct {
	TxID    core.TxID
	TxType  core.TxType
	FromID  []byte
	Params  []Param
}

// Param is one (id, blob) pair carried on a PeerMessage.
type Param struct {
	ID    core.ParameterID
	SubID core.SubID
	Value []byte
}

// KernelProof is the eventual callback payload for a confirmed kernel.
type KernelProof struct {
	KernelID     []byte
	ProofHeight  uint64
}

// Gateway is the abstract capability a Negotiator drives the outside world
// through. Every method other than GetTip is fire-and-forget from the
// caller's perspective: results, if any, arrive later as a call back into
// the owning txengine.Manager, never as a return value here: the call
// returns immediately and posts a future event.
type Gateway interface {
	// SendTxParams is a best-effort, store-and-forward send.
	SendTxParams(peerID []byte, msg PeerMessage) error

	// ConfirmKernel asks the node for a Merkle proof of kernelID belonging
	// to txID; the proof arrives later via the Manager's proof callback.
	ConfirmKernel(txID core.TxID, kernelID []byte) error

	// GetTip synchronously reads the latest known chain tip.
	GetTip() (core.ChainStateRow, bool)

	// UpdateOnNextTip subscribes txID to the next tip change.
	UpdateOnNextTip(txID core.TxID)

	// OnTxCompleted notifies the supervisor that txID reached a terminal
	// status.
	OnTxCompleted(txID core.TxID)

	// AsyncStarted/AsyncFinished are ref-counted re-entrancy markers;
	// every asynchronous operation a tx initiates must be bracketed by
	// exactly one matched pair.
	AsyncStarted()
	AsyncFinished()
}
