package core

// TxStatus is the transaction engine's state machine status: Pending →
// InProgress → Registering → Completed, with horizontal edges to
// Canceled and Failed.
type TxStatus uint8

const (
	TxStatusPending TxStatus = iota
	TxStatusInProgress
	TxStatusRegistering
	TxStatusCompleted
	TxStatusCanceled
	TxStatusFailed
)

var txStatusNames = map[TxStatus]string{
	TxStatusPending:      "Pending",
	TxStatusInProgress:   "InProgress",
	TxStatusRegistering:  "Registering",
	TxStatusCompleted:    "Completed",
	TxStatusCanceled:     "Canceled",
	TxStatusFailed:       "Failed",
}

func (s TxStatus) String() string {
	if n, ok := txStatusNames[s]; ok {
		return n
	}
	return "Unknown"
}

// IsTerminal reports whether s is one of the three terminal statuses;
// terminal transactions do not expire and are not further negotiated.
func (s TxStatus) IsTerminal() bool {
	switch s {
	case TxStatusCompleted, TxStatusCanceled, TxStatusFailed:
		return true
	default:
		return false
	}
}

// TxType distinguishes negotiators registered with the Transaction Engine.
type TxType uint8

const (
	TxTypeSimple TxType = iota
	TxTypeAtomicSwap
)

func (t TxType) String() string {
	switch t {
	case TxTypeSimple:
		return "Simple"
	case TxTypeAtomicSwap:
		return "AtomicSwap"
	default:
		return "Unknown"
	}
}

// FailureReason is the stable, catalog-backed reason a transaction
// failed: each failure carries a stable enum value and a short canonical
// message.
type FailureReason uint8

const (
	FailureUnknown FailureReason = iota
	FailureCanceled
	FailureKeyKeeperUserAbort
	FailureKeyKeeperError
	FailureNoKeyKeeper
	FailureNoMasterKey
	FailureTransactionExpired
	FailureFailedToRegister
	FailureInvalidKernelProof
	FailureMissingMandatoryParameter
	FailurePeerRejected
)

// canonicalMessages is the authoritative message catalog, stable across
// versions.
var canonicalMessages = map[FailureReason]string{
	FailureUnknown:                    "unknown failure",
	FailureCanceled:                   "canceled by user",
	FailureKeyKeeperUserAbort:         "operation rejected by key keeper user",
	FailureKeyKeeperError:             "key keeper failure, retry",
	FailureNoKeyKeeper:                "no key keeper is attached",
	FailureNoMasterKey:                "no master key available",
	FailureTransactionExpired:         "transaction expired",
	FailureFailedToRegister:           "failed to register transaction on chain",
	FailureInvalidKernelProof:         "invalid kernel proof",
	FailureMissingMandatoryParameter:  "missing mandatory parameter",
	FailurePeerRejected:               "rejected by peer",
}

func (r FailureReason) String() string {
	if m, ok := canonicalMessages[r]; ok {
		return m
	}
	return "unrecognized failure"
}

// Retryable reports whether the caller may retry the same transaction,
// per the user-retryable / user-fatal split.
func (r FailureReason) Retryable() bool {
	return r == FailureKeyKeeperError
}

// CoinStatus is a UTXO's lifecycle state.
type CoinStatus uint8

const (
	CoinAvailable CoinStatus = iota
	CoinOutgoing
	CoinIncoming
	CoinChangeV0
	CoinSpent
	CoinConsumed
	CoinMaturing
)

func (s CoinStatus) String() string {
	switch s {
	case CoinAvailable:
		return "Available"
	case CoinOutgoing:
		return "Outgoing"
	case CoinIncoming:
		return "Incoming"
	case CoinChangeV0:
		return "ChangeV0"
	case CoinSpent:
		return "Spent"
	case CoinConsumed:
		return "Consumed"
	case CoinMaturing:
		return "Maturing"
	default:
		return "Unknown"
	}
}

// OfferStatus is a swap offer's lifecycle state. Only OfferPending is
// publishable.
type OfferStatus uint8

const (
	OfferPending OfferStatus = iota
	OfferInProgress
	OfferCompleted
	OfferCanceled
	OfferExpired
	OfferFailed
)

func (s OfferStatus) String() string {
	switch s {
	case OfferPending:
		return "Pending"
	case OfferInProgress:
		return "InProgress"
	case OfferCompleted:
		return "Completed"
	case OfferCanceled:
		return "Canceled"
	case OfferExpired:
		return "Expired"
	case OfferFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
