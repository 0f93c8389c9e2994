// Package core holds the vocabulary shared by every wallet component:
// transaction identifiers, the parameter catalog, coin and address
// records, chain state rows, and swap offers. It has no behavior of its
// own beyond encoding/decoding and small helpers; the components in
// internal/store, internal/params, internal/txengine and friends give it
// life.
package core

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// TxID is a 16-byte opaque transaction identifier, stable across peer,
// persistence and wire representations.
type TxID [16]byte

// NewTxID generates a fresh, universally unique transaction id.
func NewTxID() TxID {
	var id TxID
	u := uuid.New()
	copy(id[:], u[:])
	return id
}

// String renders the id as hex, matching how chainhash.Hash values are
// printed in logs.
func (id TxID) String() string {
	return hex.EncodeToString(id[:])
}

// TxIDFromBytes parses a 16-byte slice into a TxID.
func TxIDFromBytes(b []byte) (TxID, error) {
	var id TxID
	if len(b) != len(id) {
		return id, fmt.Errorf("core: invalid TxID length %d, want %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// IsZero reports whether id is the zero value (never assigned).
func (id TxID) IsZero() bool {
	return id == TxID{}
}
