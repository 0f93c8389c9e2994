package core

// TxDescription is the denormalized projection of a transaction's
// parameter set used by observers.
type TxDescription struct {
	TxID          TxID
	Type          TxType
	Amount        uint64
	Fee           uint64
	Change        uint64
	MinHeight     uint64
	PeerID        []byte
	MyID          []byte
	Message       string
	CreateTime    int64
	ModifyTime    int64
	Sender        bool
	SelfTx        bool
	Status        TxStatus
	KernelID      []byte
	FailureReason FailureReason
}
