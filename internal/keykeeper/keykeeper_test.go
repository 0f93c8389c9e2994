package keykeeper

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	master, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	l, err := NewLocal(master)
	require.NoError(t, err)
	return l
}

func TestNewLocalRejectsNilMaster(t *testing.T) {
	t.Parallel()

	_, err := NewLocal(nil)
	require.ErrorIs(t, err, ErrNoMasterKey)
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	l := newTestLocal(t)

	a, err := l.DeriveKey(5, KeyTypeSpend)
	require.NoError(t, err)
	b, err := l.DeriveKey(5, KeyTypeSpend)
	require.NoError(t, err)
	require.True(t, a.IsEqual(b))

	c, err := l.DeriveKey(5, KeyTypeNonce)
	require.NoError(t, err)
	require.False(t, a.IsEqual(c))

	d, err := l.DeriveKey(6, KeyTypeSpend)
	require.NoError(t, err)
	require.False(t, a.IsEqual(d))
}

func TestSignProducesVerifiableSignature(t *testing.T) {
	t.Parallel()

	l := newTestLocal(t)

	digest := sha256.Sum256([]byte("a transaction id"))
	sig, status, err := l.Sign(0, KeyTypeSpend, InvalidSlot, digest)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	pub, err := l.DeriveKey(0, KeyTypeSpend)
	require.NoError(t, err)

	parsedSig, err := ecdsa.ParseDERSignature(sig)
	require.NoError(t, err)
	require.True(t, parsedSig.Verify(digest[:], pub))
}

func TestSlotAllocateAndFreeAreSafe(t *testing.T) {
	t.Parallel()

	l := newTestLocal(t)

	slot, err := l.SlotAllocate()
	require.NoError(t, err)
	require.NotEqual(t, InvalidSlot, slot)

	digest := sha256.Sum256([]byte("digest"))
	_, status, err := l.Sign(0, KeyTypeSpend, slot, digest)
	require.NoError(t, err)
	require.Equal(t, StatusOK, status)

	l.SlotFree(slot)
	l.SlotFree(slot) // double-free is a safe no-op
	l.SlotFree(InvalidSlot)

	_, _, err = l.Sign(0, KeyTypeSpend, slot, digest)
	require.Error(t, err, "signing with a freed slot should fail")
}

func TestLocalSigningKeyMatchesOwnIdentityOnly(t *testing.T) {
	t.Parallel()

	l := newTestLocal(t)
	own := l.OwnBBSIdentity()

	priv, ok := l.LocalSigningKey(own)
	require.True(t, ok)
	require.True(t, priv.PubKey().IsEqual(l.childKey(0, KeyTypeBBSIdentity).PubKey()))

	other, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	_, ok = l.LocalSigningKey(other.PubKey().SerializeCompressed())
	require.False(t, ok)
}
