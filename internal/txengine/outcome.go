package txengine

import "github.com/mimblecoin/walletcore/internal/core"

// OutcomeKind tags the result of one round of Negotiator.UpdateImpl. This
// is a result-carrying replacement for exception-driven control flow:
// instead of raising and catching a TransactionFailedException, a
// Negotiator returns a value the outer Update loop switches on
// exhaustively.
type OutcomeKind uint8

const (
	// OutcomeProgressed means the round did useful work and the caller
	// should proceed to the outer loop's expiry check as normal.
	OutcomeProgressed OutcomeKind = iota

	// OutcomeBlockedOnPeer means the round is waiting on a peer message
	// that hasn't arrived; no further local work is possible right now.
	OutcomeBlockedOnPeer

	// OutcomeBlockedOnProof means the round is waiting on a kernel proof
	// callback from the Gateway.
	OutcomeBlockedOnProof

	// OutcomeFailed means the transaction cannot proceed and must be
	// failed out via the on_failed path.
	OutcomeFailed
)

// Outcome is the tagged sum type a Negotiator returns from UpdateImpl.
type Outcome struct {
	Kind   OutcomeKind
	Reason core.FailureReason
	Notify bool
}

// Progressed reports that the round advanced the transaction's state.
func Progressed() Outcome {
	return Outcome{Kind: OutcomeProgressed}
}

// BlockedOnPeer reports that the round is waiting for a peer message.
func BlockedOnPeer() Outcome {
	return Outcome{Kind: OutcomeBlockedOnPeer}
}

// BlockedOnProof reports that the round is waiting for a kernel proof.
func BlockedOnProof() Outcome {
	return Outcome{Kind: OutcomeBlockedOnProof}
}

// Failed reports that the transaction must be failed out with reason,
// optionally notifying the peer first.
func Failed(reason core.FailureReason, notify bool) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason, Notify: notify}
}
