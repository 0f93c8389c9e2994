package core

// ChainStateRow is one row of the locally tracked chain state DAG.
// Primary key is (Height, Hash); RowPrev is a foreign key to the parent
// row, or nil at genesis / when the parent is not yet known.
type ChainStateRow struct {
	RowID       int64
	Height      uint64
	Hash        [32]byte
	HashPrev    [32]byte
	Difficulty  uint32
	Timestamp   int64
	HashUtxos   [32]byte
	HashKernels [32]byte
	StateFlags  uint32
	RowPrev     *int64
	CountNext   uint32
	PoW         []byte
	BlindOffset []byte
	Mmr         []byte
	Body        []byte

	// ChainWork is a supplemental cumulative-work field. It is stored
	// and loaded with the row; no query in this module ranks tips by it.
	ChainWork uint64
}

// IsFunctional reports whether a row has a body and proof of work
// applied. Deletion via delete_idle is only permitted on non-functional
// rows.
func (r ChainStateRow) IsFunctional() bool {
	return len(r.Body) > 0 && len(r.PoW) > 0
}

// IsTip reports membership in the Tips set: every row with no children.
func (r ChainStateRow) IsTip() bool {
	return r.CountNext == 0
}
