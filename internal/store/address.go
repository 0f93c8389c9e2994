package store

import (
	"database/sql"
	"errors"

	"github.com/mimblecoin/walletcore/internal/core"
)

const (
	qUpsertAddress QueryID = iota + 300
	qGetAddress
)

// SaveAddress upserts a wallet address keyed by WalletID.
func (tx *Tx) SaveAddress(a core.Address) error {
	stmt, err := tx.stmt(qUpsertAddress, `
		INSERT INTO addresses (wallet_id, label, category, create_time, duration, own_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet_id) DO UPDATE SET
			label = excluded.label,
			category = excluded.category,
			duration = excluded.duration,
			own_id = excluded.own_id`)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(a.WalletID[:], a.Label, a.Category, a.CreateTime, a.Duration, a.OwnID)
	if err != nil {
		return newErr(ErrDatabase, "saving address", err)
	}
	return nil
}

// GetAddress looks up an address by wallet id.
func (tx *Tx) GetAddress(walletID [33]byte) (core.Address, error) {
	stmt, err := tx.stmt(qGetAddress, `
		SELECT wallet_id, label, category, create_time, duration, own_id
		FROM addresses WHERE wallet_id = ?`)
	if err != nil {
		return core.Address{}, err
	}

	var (
		a  core.Address
		id []byte
	)
	err = stmt.QueryRow(walletID[:]).Scan(&id, &a.Label, &a.Category, &a.CreateTime, &a.Duration, &a.OwnID)
	if errors.Is(err, sql.ErrNoRows) {
		return a, newErr(ErrNotFound, "address not found", nil)
	}
	if err != nil {
		return a, newErr(ErrDatabase, "scanning address", err)
	}
	if err := copyFixed(a.WalletID[:], id); err != nil {
		return a, err
	}
	return a, nil
}

// IsLocalAddress reports whether walletID belongs to a local (own_id != 0)
// address, used by the Swap Offers Board's ForeignOffer check.
func (tx *Tx) IsLocalAddress(walletID [33]byte) (bool, error) {
	a, err := tx.GetAddress(walletID)
	if err != nil {
		var storeErr *Error
		if errors.As(err, &storeErr) && storeErr.ErrorCode == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return a.IsLocal(), nil
}
