// Package txengine is the Transaction Engine: a set of per-TxID state
// machines sharing one outer update contract.
package txengine

import "fmt"

// ErrorCode identifies an engine-local fault distinct from a transaction's
// own FailureReason (which is a stable, catalog-backed enum stored
// alongside the transaction, not a Go error at all — see core.FailureReason).
type ErrorCode int

const (
	// ErrUnknownTxType indicates Track was called with a TxType that has
	// no registered Negotiator factory.
	ErrUnknownTxType ErrorCode = iota

	// ErrUnknownTx indicates an operation was requested against a TxID
	// the Manager isn't currently tracking.
	ErrUnknownTx

	// ErrInvalidCancel indicates Cancel was called on a transaction whose
	// status isn't Pending or InProgress.
	ErrInvalidCancel
)

var errorCodeStrings = map[ErrorCode]string{
	ErrUnknownTxType:  "ErrUnknownTxType",
	ErrUnknownTx:      "ErrUnknownTx",
	ErrInvalidCancel:  "ErrInvalidCancel",
}

func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is the engine-local error type, following the same
// ErrorCode+Description+wrapped-Err shape as every other package's error
// type in this module.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("txengine: %v: %v (%v)", e.ErrorCode, e.Description, e.Err)
	}
	return fmt.Sprintf("txengine: %v: %v", e.ErrorCode, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}
