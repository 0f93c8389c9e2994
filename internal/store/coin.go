package store

import (
	"database/sql"
	"errors"

	"github.com/mimblecoin/walletcore/internal/core"
)

const (
	qUpsertCoin QueryID = iota + 200
	qGetCoin
	qCoinsByCreateTx
	qCoinsBySpentTx
	qCoinsByStatus
)

// SaveCoins persists coins in a single transaction: bulk save_coins(vec)
// is one transaction. Each coin is upserted by its (type, sub_idx, value)
// primary key.
func (tx *Tx) SaveCoins(coins []core.Coin) error {
	stmt, err := tx.stmt(qUpsertCoin, `
		INSERT INTO coins
			(coin_type, coin_sub_idx, coin_value, status, maturity,
			 create_height, spent_height, create_tx_id, spent_tx_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (coin_type, coin_sub_idx, coin_value) DO UPDATE SET
			status = excluded.status,
			maturity = excluded.maturity,
			create_height = excluded.create_height,
			spent_height = excluded.spent_height,
			create_tx_id = excluded.create_tx_id,
			spent_tx_id = excluded.spent_tx_id`)
	if err != nil {
		return err
	}

	for _, c := range coins {
		_, err := stmt.Exec(
			c.ID.Type, c.ID.SubIdx, c.ID.Value, c.Status, c.Maturity,
			c.CreateHeight, c.SpentHeight,
			txIDPtrOrNil(c.CreateTxID), txIDPtrOrNil(c.SpentTxID),
		)
		if err != nil {
			return newErr(ErrDatabase, "saving coin", err)
		}
	}
	return nil
}

// GetCoin looks up a single coin by id.
func (tx *Tx) GetCoin(id core.CoinID) (core.Coin, error) {
	stmt, err := tx.stmt(qGetCoin, `
		SELECT coin_type, coin_sub_idx, coin_value, status, maturity,
		       create_height, spent_height, create_tx_id, spent_tx_id
		FROM coins WHERE coin_type = ? AND coin_sub_idx = ? AND coin_value = ?`)
	if err != nil {
		return core.Coin{}, err
	}
	return scanCoin(stmt.QueryRow(id.Type, id.SubIdx, id.Value))
}

// CoinsLinkedToTx returns every coin whose create_tx_id or spent_tx_id
// matches txID, used by set_completed_tx_coin_statuses.
func (tx *Tx) CoinsLinkedToTx(txID core.TxID) ([]core.Coin, error) {
	createStmt, err := tx.stmt(qCoinsByCreateTx, `
		SELECT coin_type, coin_sub_idx, coin_value, status, maturity,
		       create_height, spent_height, create_tx_id, spent_tx_id
		FROM coins WHERE create_tx_id = ?`)
	if err != nil {
		return nil, err
	}
	spentStmt, err := tx.stmt(qCoinsBySpentTx, `
		SELECT coin_type, coin_sub_idx, coin_value, status, maturity,
		       create_height, spent_height, create_tx_id, spent_tx_id
		FROM coins WHERE spent_tx_id = ?`)
	if err != nil {
		return nil, err
	}

	seen := make(map[core.CoinID]bool)
	var out []core.Coin
	for _, stmt := range []*sql.Stmt{createStmt, spentStmt} {
		rows, err := stmt.Query(txID[:])
		if err != nil {
			return nil, newErr(ErrDatabase, "querying coins linked to tx", err)
		}
		coins, err := scanCoins(rows)
		if err != nil {
			return nil, err
		}
		for _, c := range coins {
			if !seen[c.ID] {
				seen[c.ID] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func scanCoin(row *sql.Row) (core.Coin, error) {
	var (
		c                        core.Coin
		createTxID, spentTxID    []byte
	)
	err := row.Scan(
		&c.ID.Type, &c.ID.SubIdx, &c.ID.Value, &c.Status, &c.Maturity,
		&c.CreateHeight, &c.SpentHeight, &createTxID, &spentTxID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return c, newErr(ErrNotFound, "coin not found", nil)
	}
	if err != nil {
		return c, newErr(ErrDatabase, "scanning coin", err)
	}
	if id, err := optionalTxID(createTxID); err != nil {
		return c, err
	} else {
		c.CreateTxID = id
	}
	if id, err := optionalTxID(spentTxID); err != nil {
		return c, err
	} else {
		c.SpentTxID = id
	}
	return c, nil
}

func scanCoins(rows *sql.Rows) ([]core.Coin, error) {
	defer rows.Close()
	var out []core.Coin
	for rows.Next() {
		var (
			c                     core.Coin
			createTxID, spentTxID []byte
		)
		if err := rows.Scan(
			&c.ID.Type, &c.ID.SubIdx, &c.ID.Value, &c.Status, &c.Maturity,
			&c.CreateHeight, &c.SpentHeight, &createTxID, &spentTxID,
		); err != nil {
			return nil, newErr(ErrDatabase, "scanning coin row", err)
		}
		var err error
		if c.CreateTxID, err = optionalTxID(createTxID); err != nil {
			return nil, err
		}
		if c.SpentTxID, err = optionalTxID(spentTxID); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func txIDPtrOrNil(id *core.TxID) interface{} {
	if id == nil {
		return nil
	}
	return id[:]
}

func optionalTxID(b []byte) (*core.TxID, error) {
	if len(b) == 0 {
		return nil, nil
	}
	id, err := core.TxIDFromBytes(b)
	if err != nil {
		return nil, newErr(ErrBlobSizeMismatch, "decoding tx id column", err)
	}
	return &id, nil
}
