package store

import (
	"database/sql"
	"errors"

	"github.com/mimblecoin/walletcore/internal/core"
)

const (
	qUpsertTxParam QueryID = iota + 400
	qGetTxParam
	qDeleteTxParam
	qListPublicTxParams
	qListAllTxParams
)

// PutParameter upserts the blob for (txID, paramID, subID), setting the
// public flag as given. It is idempotent on equal value: the caller (the
// Parameter Map, internal/params) is responsible for skipping the write
// entirely when the value is unchanged.
func (tx *Tx) PutParameter(txID core.TxID, paramID core.ParameterID, subID core.SubID, value []byte, public bool) error {
	stmt, err := tx.stmt(qUpsertTxParam, `
		INSERT INTO tx_parameters (tx_id, parameter_id, sub_id, value, public)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (tx_id, parameter_id, sub_id) DO UPDATE SET
			value = excluded.value,
			public = excluded.public`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(txID[:], uint32(paramID), uint32(subID), value, boolToInt(public))
	if err != nil {
		return newErr(ErrDatabase, "putting tx parameter", err)
	}
	return nil
}

// GetParameter returns the raw blob for (txID, paramID, subID), and
// whether it was present.
func (tx *Tx) GetParameter(txID core.TxID, paramID core.ParameterID, subID core.SubID) ([]byte, bool, error) {
	stmt, err := tx.stmt(qGetTxParam, `
		SELECT value FROM tx_parameters
		WHERE tx_id = ? AND parameter_id = ? AND sub_id = ?`)
	if err != nil {
		return nil, false, err
	}
	var value []byte
	err = stmt.QueryRow(txID[:], uint32(paramID), uint32(subID)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, newErr(ErrDatabase, "getting tx parameter", err)
	}
	return value, true, nil
}

// DeleteParameter removes (txID, paramID, subID) if present.
func (tx *Tx) DeleteParameter(txID core.TxID, paramID core.ParameterID, subID core.SubID) error {
	stmt, err := tx.stmt(qDeleteTxParam, `
		DELETE FROM tx_parameters WHERE tx_id = ? AND parameter_id = ? AND sub_id = ?`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(txID[:], uint32(paramID), uint32(subID))
	if err != nil {
		return newErr(ErrDatabase, "deleting tx parameter", err)
	}
	return nil
}

// TxParamRow is a single stored parameter, keyed and value together, used
// when replaying a full public parameter set to a peer.
type TxParamRow struct {
	ParameterID core.ParameterID
	SubID       core.SubID
	Value       []byte
}

// ListPublicParameters returns every parameter marked public for txID, in
// the shape SendTxParameters needs to assemble a peer message.
func (tx *Tx) ListPublicParameters(txID core.TxID) ([]TxParamRow, error) {
	stmt, err := tx.stmt(qListPublicTxParams, `
		SELECT parameter_id, sub_id, value FROM tx_parameters
		WHERE tx_id = ? AND public = 1`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(txID[:])
	if err != nil {
		return nil, newErr(ErrDatabase, "listing public tx parameters", err)
	}
	return scanTxParamRows(rows)
}

// ListAllParameters returns every stored parameter for txID, used by the
// Offer Protocol Handler to reconstruct a SwapOffer's parameter set.
func (tx *Tx) ListAllParameters(txID core.TxID) ([]TxParamRow, error) {
	stmt, err := tx.stmt(qListAllTxParams, `
		SELECT parameter_id, sub_id, value FROM tx_parameters WHERE tx_id = ?`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(txID[:])
	if err != nil {
		return nil, newErr(ErrDatabase, "listing tx parameters", err)
	}
	return scanTxParamRows(rows)
}

func scanTxParamRows(rows *sql.Rows) ([]TxParamRow, error) {
	defer rows.Close()
	var out []TxParamRow
	for rows.Next() {
		var (
			paramID, subID uint32
			value          []byte
		)
		if err := rows.Scan(&paramID, &subID, &value); err != nil {
			return nil, newErr(ErrDatabase, "scanning tx parameter row", err)
		}
		out = append(out, TxParamRow{
			ParameterID: core.ParameterID(paramID),
			SubID:       core.SubID(subID),
			Value:       value,
		})
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
