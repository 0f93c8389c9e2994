package store

// RebuildTipsReachable recomputes the TipsReachable set from scratch: a
// tip belongs to it iff its entire ancestry back to genesis (RowPrev ==
// nil) is present and functional. It only maintains membership: no row
// is ranked or preferred among several reachable tips, and ChainWork is
// not read.
//
// It walks the ancestry of every tip, so it suits cold-start recovery
// rather than the hot path. It does not check or change row_prev or
// count_next.
func (tx *Tx) RebuildTipsReachable() error {
	if _, err := tx.sqlTx.Exec(`DELETE FROM tips_reachable`); err != nil {
		return newErr(ErrDatabase, "clearing tips_reachable", err)
	}

	rows, err := tx.sqlTx.Query(`SELECT state, height FROM tips`)
	if err != nil {
		return newErr(ErrDatabase, "listing tips", err)
	}
	type tip struct {
		state  int64
		height uint64
	}
	var tips []tip
	for rows.Next() {
		var t tip
		if err := rows.Scan(&t.state, &t.height); err != nil {
			rows.Close()
			return newErr(ErrDatabase, "scanning tip", err)
		}
		tips = append(tips, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return newErr(ErrDatabase, "iterating tips", err)
	}

	for _, t := range tips {
		reachable, err := tx.ancestryComplete(t.state)
		if err != nil {
			return err
		}
		if reachable {
			if _, err := tx.sqlTx.Exec(
				`INSERT OR IGNORE INTO tips_reachable (height, state) VALUES (?, ?)`,
				t.height, t.state,
			); err != nil {
				return newErr(ErrDatabase, "inserting reachable tip", err)
			}
		}
	}
	return nil
}

// ancestryComplete walks RowPrev links back from rowID and reports whether
// every ancestor is functional, terminating successfully at a row with no
// parent (genesis).
func (tx *Tx) ancestryComplete(rowID int64) (bool, error) {
	current := rowID
	for {
		row, err := tx.GetState(current)
		if err != nil {
			return false, err
		}
		if !row.IsFunctional() {
			return false, nil
		}
		if row.RowPrev == nil {
			return true, nil
		}
		current = *row.RowPrev
	}
}

// CountNextConsistent reports whether every row's stored CountNext equals
// the number of rows whose RowPrev references it. Intended for tests.
func (tx *Tx) CountNextConsistent() (bool, error) {
	rows, err := tx.sqlTx.Query(`
		SELECT s.rowid, s.count_next,
		       (SELECT COUNT(*) FROM states c WHERE c.row_prev = s.rowid)
		FROM states s`)
	if err != nil {
		return false, newErr(ErrDatabase, "checking count_next consistency", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rowID int64
		var stored, actual uint32
		if err := rows.Scan(&rowID, &stored, &actual); err != nil {
			return false, newErr(ErrDatabase, "scanning consistency row", err)
		}
		if stored != actual {
			return false, nil
		}
	}
	return true, rows.Err()
}

// TipsConsistent reports whether the Tips table exactly equals the set of
// rows with count_next = 0.
func (tx *Tx) TipsConsistent() (bool, error) {
	var mismatches int
	row := tx.sqlTx.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT * FROM (
				SELECT rowid FROM states WHERE count_next = 0
				EXCEPT
				SELECT state FROM tips
			)
			UNION ALL
			SELECT * FROM (
				SELECT state FROM tips
				EXCEPT
				SELECT rowid FROM states WHERE count_next = 0
			)
		)`)
	if err := row.Scan(&mismatches); err != nil {
		return false, newErr(ErrDatabase, "checking tips consistency", err)
	}
	return mismatches == 0, nil
}
