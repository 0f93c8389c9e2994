package store

import (
	"database/sql"
	"errors"

	"github.com/mimblecoin/walletcore/internal/core"
)

const (
	qInsertState QueryID = iota + 100
	qFindStateByHeightHash
	qGetStateByRowID
	qUpdateRowPrevCountNext
	qIncrementCountNext
	qDecrementCountNext
	qDeleteState
	qInsertTip
	qDeleteTip
	qFindChildrenByHashPrev
	qSelectTipsAtHeight
)

// InsertState inserts a new chain state row, linking it to its parent (if
// present, by (height-1, hash_prev)) and to any already-present children
// (rows whose hash_prev == this row's hash), per the linking algorithm:
//
//   - if a parent row exists, this row's RowPrev is set to it, the
//     parent's CountNext is incremented, and the parent leaves Tips.
//   - for every already-present child (hash_prev == hash): the child's
//     RowPrev becomes this row, the child leaves Tips, and this row's
//     CountNext is incremented once per child found.
//   - if no children were found, this row enters Tips at its height.
//
// These invariants must hold under arbitrary insert/delete order, which
// is why every step re-derives its state from the database rather than
// trusting caller-supplied counters.
func (tx *Tx) InsertState(row core.ChainStateRow) (int64, error) {
	insertStmt, err := tx.stmt(qInsertState, `
		INSERT INTO states
			(height, hash, hash_prev, difficulty, timestamp,
			 hash_utxos, hash_kernels, state_flags, row_prev,
			 count_next, pow, blind_offset, mmr, body, chain_work)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, 0, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}

	res, err := insertStmt.Exec(
		row.Height, row.Hash[:], row.HashPrev[:], row.Difficulty, row.Timestamp,
		row.HashUtxos[:], row.HashKernels[:], row.StateFlags,
		nullableBytes(row.PoW), nullableBytes(row.BlindOffset),
		nullableBytes(row.Mmr), nullableBytes(row.Body), row.ChainWork,
	)
	if err != nil {
		return 0, newErr(ErrDatabase, "inserting chain state row", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return 0, newErr(ErrDatabase, "reading inserted rowid", err)
	}

	// Link to parent, if the parent already exists.
	if parentRowID, ok, err := tx.findStateByHeightHash(row.Height-1, row.HashPrev); err != nil {
		return 0, err
	} else if ok {
		if err := tx.setRowPrev(rowID, parentRowID); err != nil {
			return 0, err
		}
		if err := tx.bumpCountNext(parentRowID, 1); err != nil {
			return 0, err
		}
		if err := tx.deleteTipByState(parentRowID); err != nil {
			return 0, err
		}
	}

	// Link already-present children whose hash_prev == our hash.
	children, err := tx.findChildrenByHashPrev(row.Hash)
	if err != nil {
		return 0, err
	}

	if len(children) == 0 {
		if err := tx.insertTip(row.Height, rowID); err != nil {
			return 0, err
		}
		return rowID, nil
	}

	for _, childRowID := range children {
		if err := tx.setRowPrev(childRowID, rowID); err != nil {
			return 0, err
		}
		if err := tx.deleteTipByState(childRowID); err != nil {
			return 0, err
		}
		if err := tx.bumpCountNext(rowID, 1); err != nil {
			return 0, err
		}
	}

	return rowID, nil
}

// GetState loads the full row for rowID.
func (tx *Tx) GetState(rowID int64) (core.ChainStateRow, error) {
	stmt, err := tx.stmt(qGetStateByRowID, `
		SELECT rowid, height, hash, hash_prev, difficulty, timestamp,
		       hash_utxos, hash_kernels, state_flags, row_prev,
		       count_next, pow, blind_offset, mmr, body, chain_work
		FROM states WHERE rowid = ?`)
	if err != nil {
		return core.ChainStateRow{}, err
	}
	return scanStateRow(stmt.QueryRow(rowID))
}

// StateFind returns the rowid of the row at (height, hash), if any.
func (tx *Tx) StateFind(height uint64, hash [32]byte) (int64, bool, error) {
	return tx.findStateByHeightHash(height, hash)
}

// DeleteIdle removes a non-functional row (permitted only on a
// non-functional row), undoing exactly what InsertState would have
// done for it: it decrements its parent's CountNext (re-adding the parent
// to Tips if that drops to zero), and it clears RowPrev on every child,
// re-adding each child to Tips (a child that loses its parent link has, by
// definition, no functional ancestry and becomes its own frontier row).
func (tx *Tx) DeleteIdle(rowID int64) error {
	row, err := tx.GetState(rowID)
	if err != nil {
		return err
	}
	if row.IsFunctional() {
		return newErr(ErrNonFunctionalRequired,
			"delete_idle requires a row with no body/PoW", nil)
	}

	children, err := tx.findChildrenByRowPrev(rowID)
	if err != nil {
		return err
	}
	for _, childRowID := range children {
		if err := tx.clearRowPrev(childRowID); err != nil {
			return err
		}
		child, err := tx.GetState(childRowID)
		if err != nil {
			return err
		}
		if err := tx.insertTip(child.Height, childRowID); err != nil {
			return err
		}
	}

	if row.IsTip() {
		if err := tx.deleteTipByState(rowID); err != nil {
			return err
		}
	}

	if row.RowPrev != nil {
		if err := tx.bumpCountNext(*row.RowPrev, -1); err != nil {
			return err
		}
		parent, err := tx.GetState(*row.RowPrev)
		if err != nil {
			return err
		}
		if parent.CountNext == 0 {
			if err := tx.insertTip(parent.Height, *row.RowPrev); err != nil {
				return err
			}
		}
	}

	delStmt, err := tx.stmt(qDeleteState, `DELETE FROM states WHERE rowid = ?`)
	if err != nil {
		return err
	}
	res, err := delStmt.Exec(rowID)
	if err != nil {
		return newErr(ErrDatabase, "deleting chain state row", err)
	}
	return mustAffectOneRow(res)
}

// --- internal helpers -------------------------------------------------

func (tx *Tx) findStateByHeightHash(height uint64, hash [32]byte) (int64, bool, error) {
	stmt, err := tx.stmt(qFindStateByHeightHash,
		`SELECT rowid FROM states WHERE height = ? AND hash = ?`)
	if err != nil {
		return 0, false, err
	}
	var rowID int64
	err = stmt.QueryRow(height, hash[:]).Scan(&rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, newErr(ErrDatabase, "finding chain state row", err)
	}
	return rowID, true, nil
}

func (tx *Tx) findChildrenByHashPrev(hash [32]byte) ([]int64, error) {
	stmt, err := tx.stmt(qFindChildrenByHashPrev,
		`SELECT rowid FROM states WHERE hash_prev = ?`)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(hash[:])
	if err != nil {
		return nil, newErr(ErrDatabase, "finding child rows", err)
	}
	defer rows.Close()
	return scanInt64Rows(rows)
}

func (tx *Tx) findChildrenByRowPrev(rowID int64) ([]int64, error) {
	rows, err := tx.sqlTx.Query(`SELECT rowid FROM states WHERE row_prev = ?`, rowID)
	if err != nil {
		return nil, newErr(ErrDatabase, "finding child rows by row_prev", err)
	}
	defer rows.Close()
	return scanInt64Rows(rows)
}

func scanInt64Rows(rows *sql.Rows) ([]int64, error) {
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, newErr(ErrDatabase, "scanning rowid", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, newErr(ErrDatabase, "iterating rows", err)
	}
	return out, nil
}

func (tx *Tx) setRowPrev(rowID, parentRowID int64) error {
	res, err := tx.sqlTx.Exec(`UPDATE states SET row_prev = ? WHERE rowid = ?`, parentRowID, rowID)
	if err != nil {
		return newErr(ErrDatabase, "setting row_prev", err)
	}
	return mustAffectOneRow(res)
}

func (tx *Tx) clearRowPrev(rowID int64) error {
	res, err := tx.sqlTx.Exec(`UPDATE states SET row_prev = NULL WHERE rowid = ?`, rowID)
	if err != nil {
		return newErr(ErrDatabase, "clearing row_prev", err)
	}
	return mustAffectOneRow(res)
}

func (tx *Tx) bumpCountNext(rowID int64, delta int) error {
	res, err := tx.sqlTx.Exec(`UPDATE states SET count_next = count_next + ? WHERE rowid = ?`, delta, rowID)
	if err != nil {
		return newErr(ErrDatabase, "updating count_next", err)
	}
	return mustAffectOneRow(res)
}

func (tx *Tx) insertTip(height uint64, rowID int64) error {
	_, err := tx.sqlTx.Exec(`INSERT OR IGNORE INTO tips (height, state) VALUES (?, ?)`, height, rowID)
	if err != nil {
		return newErr(ErrDatabase, "inserting tip", err)
	}
	return nil
}

func (tx *Tx) deleteTipByState(rowID int64) error {
	_, err := tx.sqlTx.Exec(`DELETE FROM tips WHERE state = ?`, rowID)
	if err != nil {
		return newErr(ErrDatabase, "deleting tip", err)
	}
	return nil
}

func scanStateRow(row *sql.Row) (core.ChainStateRow, error) {
	var (
		r                    core.ChainStateRow
		hash, hashPrev       []byte
		hashUtxos, hashKrnls []byte
		rowPrev              sql.NullInt64
		pow, blind, mmr, bod []byte
	)
	err := row.Scan(
		&r.RowID, &r.Height, &hash, &hashPrev, &r.Difficulty, &r.Timestamp,
		&hashUtxos, &hashKrnls, &r.StateFlags, &rowPrev, &r.CountNext,
		&pow, &blind, &mmr, &bod, &r.ChainWork,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return r, newErr(ErrNotFound, "chain state row not found", nil)
	}
	if err != nil {
		return r, newErr(ErrDatabase, "scanning chain state row", err)
	}
	if err := copyFixed(r.Hash[:], hash); err != nil {
		return r, err
	}
	if err := copyFixed(r.HashPrev[:], hashPrev); err != nil {
		return r, err
	}
	if err := copyFixed(r.HashUtxos[:], hashUtxos); err != nil {
		return r, err
	}
	if err := copyFixed(r.HashKernels[:], hashKrnls); err != nil {
		return r, err
	}
	if rowPrev.Valid {
		v := rowPrev.Int64
		r.RowPrev = &v
	}
	r.PoW, r.BlindOffset, r.Mmr, r.Body = pow, blind, mmr, bod
	return r, nil
}

func copyFixed(dst []byte, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != len(dst) {
		return newErr(ErrBlobSizeMismatch, "fixed-width column length mismatch", nil)
	}
	copy(dst, src)
	return nil
}

func nullableBytes(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return b
}
