// Package params is the Parameter Map: typed (de)serialization of
// per-transaction parameters on top of the Storage Engine.
package params

import (
	"bytes"

	fn "github.com/lightningnetwork/lnd/fn/v2"

	"github.com/mimblecoin/walletcore/internal/core"
	"github.com/mimblecoin/walletcore/internal/store"
)

// Map is a typed façade over a single store.Tx's tx_parameters rows for
// one TxID. A fresh Map is cheap to construct — it holds no state of its
// own beyond the transaction and id it was built with.
type Map struct {
	tx   *store.Tx
	txID core.TxID
}

// New binds a Map to a transaction and transaction id. Every method below
// operates within that already-open store.Tx, so the caller controls the
// commit/rollback boundary.
func New(tx *store.Tx, txID core.TxID) *Map {
	return &Map{tx: tx, txID: txID}
}

// Get decodes the blob at (id, sub) as T, the typed get_parameter<T>
// accessor. It returns fn.None if the row is absent.
func Get[T any](m *Map, id core.ParameterID, sub core.SubID) (fn.Option[T], error) {
	blob, ok, err := m.tx.GetParameter(m.txID, id, sub)
	if err != nil {
		return fn.None[T](), err
	}
	if !ok {
		return fn.None[T](), nil
	}
	decoded, err := decode(id, blob)
	if err != nil {
		return fn.None[T](), &Error{ErrorCode: ErrDecode, ParamID: uint32(id), Err: err}
	}
	typed, ok := decoded.(T)
	if !ok {
		return fn.None[T](), &Error{ErrorCode: ErrDecode, ParamID: uint32(id)}
	}
	return fn.Some(typed), nil
}

// GetMandatory is Get, raising ErrMissingMandatory instead of returning
// None: the typed get_mandatory<T> accessor.
func GetMandatory[T any](m *Map, id core.ParameterID) (T, error) {
	opt, err := Get[T](m, id, core.DefaultSubID)
	if err != nil {
		var zero T
		return zero, err
	}
	return opt.UnwrapOrErr(&Error{ErrorCode: ErrMissingMandatory, ParamID: uint32(id)})
}

// Set encodes value under (id, sub) and stores it, marking the row public
// iff shouldSend: the typed set_parameter<T> accessor. It is idempotent
// on an equal already-stored value: when the encoded bytes equal the
// stored ones, nothing is written, so the row's public flag is also left
// as it was.
func Set[T any](m *Map, id core.ParameterID, value T, shouldSend bool, sub core.SubID) error {
	current, _, err := m.tx.GetParameter(m.txID, id, sub)
	if err != nil {
		return err
	}
	encoded, err := encode(id, value)
	if err != nil {
		return &Error{ErrorCode: ErrDecode, ParamID: uint32(id), Err: err}
	}
	if bytes.Equal(current, encoded) {
		return nil
	}
	return m.tx.PutParameter(m.txID, id, sub, encoded, shouldSend)
}

// Delete removes the parameter at (id, sub).
func (m *Map) Delete(id core.ParameterID, sub core.SubID) error {
	return m.tx.DeleteParameter(m.txID, id, sub)
}

// PublicParameters returns the currently public (shouldSend=true)
// parameters for this transaction, ready to attach to a peer message via
// SendTxParameters.
func (m *Map) PublicParameters() ([]store.TxParamRow, error) {
	return m.tx.ListPublicParameters(m.txID)
}

// AllParameters returns every stored parameter for this transaction, used
// to reconstruct a full SwapOffer.
func (m *Map) AllParameters() ([]store.TxParamRow, error) {
	return m.tx.ListAllParameters(m.txID)
}
