package core

// ParameterID enumerates the named slots addressable in a transaction's
// parameter row set. The catalog is deliberately large — a real wallet
// core carries on the order of 150 such slots covering every negotiation
// round of every transaction type — but only the ones a component in this
// module actually reads or writes are given a TypeTag below; the rest are
// reserved so the numbering is stable if a future negotiator needs them.
type ParameterID uint32

const (
	_ ParameterID = iota // 0 is never a valid parameter id

	// Bookkeeping, present on every transaction.
	TransactionType
	Status
	CreateTime
	ModifyTime
	IsInitiator
	IsSender
	Lifetime
	MinHeight
	MaxHeight
	PeerResponseTime
	PeerResponseHeight
	MyID
	PeerID
	MySecureWalletID
	PeerSecureWalletID
	Message

	// Value transfer.
	Amount
	Fee
	Change
	MinConfirmations

	// Registration / kernel proof.
	TransactionRegistered
	KernelID
	KernelProofHeight
	KernelUnconfirmedHeight
	FailureReasonParam
	Canceled

	// Signing.
	NonceSlot
	PeerPublicNonce
	PeerSignature
	InputCoins
	OutputCoins

	// Atomic swap rendezvous (mandatory subset of the parameter catalog).
	AtomicSwapCoin
	AtomicSwapIsBeamSide
	AtomicSwapAmount
	AtomicSwapPublisherID
	AtomicSwapCoinTxID

	// reservedParameterCeiling marks the end of the assigned range. The
	// full catalog reserves ids up to 150 for negotiators this module does
	// not implement (asset issuance, lelantus, shielded pool) — those are
	// out of scope and are never encoded here.
	reservedParameterCeiling = 150
)

// SubID disambiguates repeated parameters under the same ParameterID, e.g.
// one InputCoins/PeerSignature slot per transaction input.
type SubID uint32

// DefaultSubID is used for parameters that are not repeated.
const DefaultSubID SubID = 0

// TypeTag identifies the wire/disk representation a ParameterID's blob
// must be decoded as: one central dispatch keyed by ParameterID →
// TypeTag.
type TypeTag uint8

const (
	TagUnknown TypeTag = iota
	TagBool
	TagUint64
	TagInt64
	TagString
	TagBytes
	TagTxID
	TagStatus
	TagFailureReason
	TagCoinIDList
)

// parameterTags is the authoritative ParameterID → TypeTag dispatch table.
// internal/params consults this both when encoding to disk and when
// framing a peer message, so disk and wire encodings stay identical.
var parameterTags = map[ParameterID]TypeTag{
	TransactionType:        TagUint64,
	Status:                 TagStatus,
	CreateTime:             TagInt64,
	ModifyTime:             TagInt64,
	IsInitiator:            TagBool,
	IsSender:               TagBool,
	Lifetime:               TagUint64,
	MinHeight:              TagUint64,
	MaxHeight:              TagUint64,
	PeerResponseTime:       TagUint64,
	PeerResponseHeight:     TagUint64,
	MyID:                   TagBytes,
	PeerID:                 TagBytes,
	MySecureWalletID:       TagBytes,
	PeerSecureWalletID:     TagBytes,
	Message:                TagString,
	Amount:                 TagUint64,
	Fee:                    TagUint64,
	Change:                 TagUint64,
	MinConfirmations:       TagUint64,
	TransactionRegistered:  TagBool,
	KernelID:               TagBytes,
	KernelProofHeight:      TagUint64,
	KernelUnconfirmedHeight: TagUint64,
	FailureReasonParam:     TagFailureReason,
	Canceled:               TagBool,
	NonceSlot:              TagUint64,
	PeerPublicNonce:        TagBytes,
	PeerSignature:          TagBytes,
	InputCoins:             TagCoinIDList,
	OutputCoins:            TagCoinIDList,
	AtomicSwapCoin:         TagUint64,
	AtomicSwapIsBeamSide:   TagBool,
	AtomicSwapAmount:       TagUint64,
	AtomicSwapPublisherID:  TagBytes,
	AtomicSwapCoinTxID:     TagBytes,
}

// TagFor returns the TypeTag registered for id, or TagUnknown if id has no
// registered codec (either an out-of-scope catalog slot or a caller bug).
func TagFor(id ParameterID) TypeTag {
	return parameterTags[id]
}

// PublicParameterIDs is the set of parameters that carry the public flag
// marking them as transmissible to the peer, and that an initiator is
// expected to mark shouldSend=true for during normal negotiation. This is
// a convenience default; callers can always override the flag explicitly.
var PublicParameterIDs = map[ParameterID]bool{
	TransactionType:  true,
	Amount:           true,
	Fee:              true,
	MinHeight:        true,
	MaxHeight:        true,
	PeerResponseTime: true,
	MyID:             true,
	Message:          true,
}
