package store

import "fmt"

// ErrorCode identifies a kind of storage fault: an engine code paired
// with a human-readable message, modeled directly on wtxmgr.TxStoreError.
type ErrorCode int

const (
	// ErrDatabase wraps a raw SQL driver error.
	ErrDatabase ErrorCode = iota

	// ErrSchemaVersion indicates the on-disk schema version parameter did
	// not match the compiled constant. System-fatal: open() fails.
	ErrSchemaVersion

	// ErrBlobSizeMismatch indicates a caller tried to decode a blob whose
	// length doesn't match what the column's fixed-width type expects.
	ErrBlobSizeMismatch

	// ErrUnexpectedRowCount indicates a single-row exec affected a number
	// of rows other than one; a programmer error, never a user fault.
	ErrUnexpectedRowCount

	// ErrNotFound indicates a lookup by key found no row.
	ErrNotFound

	// ErrNonFunctionalRequired indicates delete_idle was attempted on a
	// row that has a body and PoW applied.
	ErrNonFunctionalRequired
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:              "ErrDatabase",
	ErrSchemaVersion:         "ErrSchemaVersion",
	ErrBlobSizeMismatch:      "ErrBlobSizeMismatch",
	ErrUnexpectedRowCount:    "ErrUnexpectedRowCount",
	ErrNotFound:              "ErrNotFound",
	ErrNonFunctionalRequired: "ErrNonFunctionalRequired",
}

func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is the single error type surfaced by the storage engine: it
// carries an engine code, a human description, and (when wrapping a
// driver failure) the underlying error.
type Error struct {
	ErrorCode   ErrorCode
	Description string
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %v: %v (%v)", e.ErrorCode, e.Description, e.Err)
	}
	return fmt.Sprintf("store: %v: %v", e.ErrorCode, e.Description)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newErr(code ErrorCode, desc string, err error) *Error {
	return &Error{ErrorCode: code, Description: desc, Err: err}
}
