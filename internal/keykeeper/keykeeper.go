// Package keykeeper is the Key Keeper Interface: an opaque signing and
// derivation capability. The wallet core never touches private key
// material directly — every signature and every derived public key
// crosses this interface.
package keykeeper

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// KeyType distinguishes the derivation purpose of a requested key, e.g. a
// transaction's spend key versus its nonce key.
type KeyType uint8

const (
	KeyTypeSpend KeyType = iota
	KeyTypeNonce
	KeyTypeBBSIdentity
)

// SlotID identifies a reserved one-shot signing nonce.
type SlotID uint64

// InvalidSlot is the sentinel returned by SlotAllocate on failure and
// accepted by SlotFree as a safe no-op: double-free is safe, idempotent
// on the Invalid slot.
const InvalidSlot SlotID = 0

// Status is the outcome of a Key Keeper request that isn't a plain
// success.
type Status uint8

const (
	StatusOK Status = iota
	StatusUserAbort
	StatusError
)

// ErrNoKeyKeeper is raised when a transaction needs signing but no Key
// Keeper is attached.
var ErrNoKeyKeeper = errors.New("keykeeper: no key keeper attached")

// ErrNoMasterKey is raised when a Local Key Keeper is constructed without
// a master extended key.
var ErrNoMasterKey = errors.New("keykeeper: no master key available")

// KeyKeeper is the abstract capability every negotiator signs through.
type KeyKeeper interface {
	// DeriveKey deterministically derives the public key for (index,
	// type). The private half never leaves the implementation.
	DeriveKey(index uint64, kind KeyType) (*btcec.PublicKey, error)

	// SlotAllocate reserves a fresh one-shot signing nonce and returns its
	// id, or InvalidSlot on failure.
	SlotAllocate() (SlotID, error)

	// SlotFree releases a nonce slot. Freeing InvalidSlot, or a slot
	// that's already free, is a safe no-op.
	SlotFree(id SlotID)

	// Sign signs digest using the key at (index, type), optionally
	// consuming the nonce reserved at slot (slot may be InvalidSlot for
	// signatures that don't need a fresh nonce, e.g. the Offer Protocol
	// Handler's publisher signature). Status distinguishes a retryable
	// failure from a non-retryable user rejection.
	Sign(index uint64, kind KeyType, slot SlotID, digest [32]byte) ([]byte, Status, error)
}

// Local is a KeyKeeper backed by an in-process secp256k1 master key. It is
// the concrete implementation this module ships so tests and the CLI
// skeleton have something to run against; a hardware-backed Key Keeper
// would satisfy the same interface without this module needing to change.
type Local struct {
	master *btcec.PrivateKey
	slots  map[SlotID]*btcec.PrivateKey
	nextID SlotID
}

// NewLocal constructs a Local Key Keeper from a master private key. A nil
// master returns ErrNoMasterKey.
func NewLocal(master *btcec.PrivateKey) (*Local, error) {
	if master == nil {
		return nil, ErrNoMasterKey
	}
	return &Local{
		master: master,
		slots:  make(map[SlotID]*btcec.PrivateKey),
		nextID: 1,
	}, nil
}

func (l *Local) childKey(index uint64, kind KeyType) *btcec.PrivateKey {
	// Deterministic, non-cryptographically-hardened child derivation:
	// tweak the master scalar by SHA-256(index || kind). A hardware Key
	// Keeper would use BIP32 or an equivalent; this module only needs
	// determinism and domain separation between key types.
	h := sha256.New()
	var buf [9]byte
	buf[0] = byte(kind)
	for i := 0; i < 8; i++ {
		buf[1+i] = byte(index >> (8 * i))
	}
	h.Write(buf[:])
	tweak := h.Sum(nil)

	var tweakScalar btcec.ModNScalar
	tweakScalar.SetByteSlice(tweak)

	childScalar := new(btcec.ModNScalar).Set(&l.master.Key)
	childScalar.Add(&tweakScalar)

	return btcec.PrivKeyFromScalar(childScalar)
}

func (l *Local) DeriveKey(index uint64, kind KeyType) (*btcec.PublicKey, error) {
	return l.childKey(index, kind).PubKey(), nil
}

func (l *Local) SlotAllocate() (SlotID, error) {
	id := l.nextID
	l.nextID++
	l.slots[id] = l.childKey(uint64(id), KeyTypeNonce)
	return id, nil
}

func (l *Local) SlotFree(id SlotID) {
	if id == InvalidSlot {
		return
	}
	delete(l.slots, id)
}

func (l *Local) Sign(index uint64, kind KeyType, slot SlotID, digest [32]byte) ([]byte, Status, error) {
	if slot != InvalidSlot {
		if _, ok := l.slots[slot]; !ok {
			return nil, StatusError, fmt.Errorf("keykeeper: unknown or already-freed slot %d", slot)
		}
	}
	priv := l.childKey(index, kind)
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize(), StatusOK, nil
}

// LocalSigningKey implements swapoffer.AddressResolver: publisherID is the
// compressed BBS identity public key at derivation index 0, and it is
// "local" iff it matches this Key Keeper's own BBS identity key. A hosted
// wallet with several BBS addresses would extend this to a small index
// table; this module only ever publishes offers under its own_id.
func (l *Local) LocalSigningKey(publisherID []byte) (*btcec.PrivateKey, bool) {
	priv := l.childKey(0, KeyTypeBBSIdentity)
	if !bytes.Equal(priv.PubKey().SerializeCompressed(), publisherID) {
		return nil, false
	}
	return priv, true
}

// OwnBBSIdentity returns the compressed public key of this Key Keeper's
// BBS identity, the own_id a swap offer's PublisherID is populated with.
func (l *Local) OwnBBSIdentity() []byte {
	return l.childKey(0, KeyTypeBBSIdentity).PubKey().SerializeCompressed()
}
