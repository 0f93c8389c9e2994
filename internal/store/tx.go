package store

import "database/sql"

// Tx is a scoped acquisition of a database transaction: guaranteed
// rollback on any exit other than an explicit Commit. Transactions do
// not nest — starting one while another is open on the same *DB blocks
// on the underlying single connection, which is the desired backpressure
// under the single-threaded reactor model.
type Tx struct {
	db    *DB
	sqlTx *sql.Tx
}

// Update opens a writable transaction, runs fn, and commits if fn returns
// nil. Any other exit path — fn returning an error, or fn panicking — rolls
// back. Panics are re-raised after rollback.
func (d *DB) Update(fn func(tx *Tx) error) (err error) {
	sqlTx, txErr := d.sqlDB.Begin()
	if txErr != nil {
		return newErr(ErrDatabase, "beginning transaction", txErr)
	}

	tx := &Tx{db: d, sqlTx: sqlTx}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			log.Warnf("store: rollback failed: %v", rbErr)
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return newErr(ErrDatabase, "committing transaction", err)
	}
	committed = true
	return nil
}

// View opens a read-only pass identical in shape to Update, for callers
// that want the same scoping discipline without implying a write.
func (d *DB) View(fn func(tx *Tx) error) error {
	return d.Update(fn)
}

// stmt binds a cached prepared statement to this transaction.
func (tx *Tx) stmt(id QueryID, query string) (*sql.Stmt, error) {
	base, err := tx.db.prepared(id, query)
	if err != nil {
		return nil, err
	}
	return tx.sqlTx.Stmt(base), nil
}

// mustAffectOneRow implements the TestChanged1Row discipline: any
// single-row update or insert must affect exactly one row, and a
// mismatch is a programmer error (ErrUnexpectedRowCount), not a user
// fault.
func mustAffectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return newErr(ErrDatabase, "reading rows affected", err)
	}
	if n != 1 {
		return newErr(ErrUnexpectedRowCount,
			"expected exactly one row to change", nil)
	}
	return nil
}
